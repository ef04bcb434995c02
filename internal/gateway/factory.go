// Package gateway selects an exchange backend from the effective trading
// mode decided by the safety gate.
package gateway

import (
	"fmt"

	"papertrade/internal/config"
	"papertrade/internal/gateway/binance"
	"papertrade/internal/gateway/exchange"
	"papertrade/internal/safety"
)

// NewClientFromConfig builds the exchange client for the given gate
// decision. Paper mode needs no client (the router talks to the ledger
// directly); a real live backend is intentionally not provided.
func NewClientFromConfig(cfg *config.Config, decision safety.Decision) (exchange.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	switch decision.EffectiveMode {
	case safety.ModePaper, safety.ModeMonitor:
		return nil, nil
	case safety.ModeDryRun:
		return binance.New(binance.Config{
			APIKey:    cfg.Exchange.APIKey,
			APISecret: cfg.Exchange.APISecret,
			Mode:      decision.EffectiveMode,
			Balance:   cfg.Trading.StartingBalance,
		})
	case safety.ModeLive:
		return nil, fmt.Errorf("live exchange backend is not implemented; refusing to construct a real-money client")
	default:
		return nil, fmt.Errorf("unsupported trading mode: %s", decision.EffectiveMode)
	}
}
