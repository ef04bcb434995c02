package config

import (
	"fmt"
	"strings"
)

// Validate checks the config for obvious mistakes. It is deliberately
// environment-free so the result is stable across processes.
func (c *Config) Validate() error {
	return validate(c)
}

func validate(c *Config) error {
	if err := c.Trading.validate(); err != nil {
		return err
	}
	if err := c.Exchange.validate(); err != nil {
		return err
	}
	return nil
}

func (t *TradingConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(t.Mode)) {
	case "paper", "monitor", "live", "dry_run":
	default:
		return fmt.Errorf("trading.mode must be one of paper|monitor|live|dry_run, got %q", t.Mode)
	}
	if t.StartingBalance <= 0 {
		return fmt.Errorf("trading.starting_balance must be > 0")
	}
	if t.SlippageRate < 0 || t.SlippageRate >= 1 {
		return fmt.Errorf("trading.slippage_rate must be in [0, 1)")
	}
	if t.CommissionRate < 0 || t.CommissionRate >= 1 {
		return fmt.Errorf("trading.commission_rate must be in [0, 1)")
	}
	if t.MaxExposure < 0 {
		return fmt.Errorf("trading.max_exposure must be >= 0")
	}
	return nil
}

func (e *ExchangeConfig) validate() error {
	// Credential safety is enforced by the gate, not here: validation must
	// not read the environment.
	if e.Name != "" && !strings.EqualFold(e.Name, "binance") {
		return fmt.Errorf("exchange.name %q is not supported", e.Name)
	}
	return nil
}
