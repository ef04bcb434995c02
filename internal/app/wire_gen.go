//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject

package app

import (
	"context"

	"papertrade/internal/config"
	"papertrade/internal/safety"
)

func buildAppWithWire(ctx context.Context, cfg *config.Config, gate safety.Decision) (*App, error) {
	builder := NewBuilder(cfg, gate)
	app, err := provideAppFromBuilder(builder, ctx)
	if err != nil {
		return nil, err
	}
	return app, nil
}

type appBuilderDeps interface {
	Build(context.Context) (*App, error)
}

func provideAppFromBuilder(b appBuilderDeps, ctx context.Context) (*App, error) {
	return b.Build(ctx)
}
