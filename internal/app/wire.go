//go:build wireinject

package app

import (
	"context"

	"github.com/google/wire"

	"papertrade/internal/config"
	"papertrade/internal/safety"
)

func buildAppWithWire(ctx context.Context, cfg *config.Config, gate safety.Decision) (*App, error) {
	wire.Build(
		NewBuilder,
		provideAppFromBuilder,
	)
	return nil, nil
}
