// Package app assembles the execution core: safety gate decision, cost
// model, paper ledger, exchange client and router.
package app

import (
	"context"
	"fmt"

	"papertrade/internal/config"
	"papertrade/internal/costprofile"
	"papertrade/internal/gateway"
	"papertrade/internal/gateway/exchange"
	"papertrade/internal/invariant"
	"papertrade/internal/logger"
	"papertrade/internal/paper"
	"papertrade/internal/router"
	"papertrade/internal/safety"
)

// App is the assembled process.
type App struct {
	Cfg      *config.Config
	Gate     safety.Decision
	Ledger   *paper.Ledger
	Router   *router.Router
	Client   exchange.Client
	Registry *costprofile.Registry
}

// NewApp builds the application from config plus the startup gate decision
// (not started).
func NewApp(cfg *config.Config, gate safety.Decision) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg, gate)
}

// Run blocks until the context is canceled. Order flow arrives through the
// router from callers; the app itself only keeps the session alive.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	<-ctx.Done()
	return nil
}

// Builder constructs an App step by step; each stage can be overridden in
// tests.
type Builder struct {
	cfg  *config.Config
	gate safety.Decision

	clientFn func(*config.Config, safety.Decision) (exchange.Client, error)
}

// NewBuilder captures the config and the gate decision taken at startup.
func NewBuilder(cfg *config.Config, gate safety.Decision) *Builder {
	return &Builder{cfg: cfg, gate: gate, clientFn: gateway.NewClientFromConfig}
}

// WithClientFactory replaces the exchange client factory (tests).
func (b *Builder) WithClientFactory(fn func(*config.Config, safety.Decision) (exchange.Client, error)) *Builder {
	if fn != nil {
		b.clientFn = fn
	}
	return b
}

// Build wires everything. The safety gate has already spoken: only the
// effective mode it produced is consulted here.
func (b *Builder) Build(ctx context.Context) (*App, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ledgerCfg := paper.Config{
		StartingBalance: b.cfg.Trading.StartingBalance,
		SlippageRate:    b.cfg.Trading.SlippageRate,
		CommissionRate:  b.cfg.Trading.CommissionRate,
		LogPath:         b.cfg.Trading.TradeLogPath,
	}

	var registry *costprofile.Registry
	if path := b.cfg.CostProfiles.Path; path != "" {
		var err error
		registry, err = costprofile.NewRegistry(path)
		if err != nil {
			return nil, fmt.Errorf("cost profiles: %w", err)
		}
		if active := b.cfg.CostProfiles.Active; active != "" {
			profile, ok := registry.Profile(active)
			if !ok {
				return nil, fmt.Errorf("cost profile %q not found in %s", active, path)
			}
			ledgerCfg.CostModel = profile.Build()
			logger.Infof("using cost profile %q", active)
		}
	}

	ledger, err := paper.New(ledgerCfg)
	if err != nil {
		return nil, err
	}

	client, err := b.clientFn(b.cfg, b.gate)
	if err != nil {
		return nil, err
	}

	mode := router.ModePaper
	switch b.gate.EffectiveMode {
	case safety.ModeDryRun:
		mode = router.ModeDryRun
	case safety.ModeLive:
		mode = router.ModeLive
	}
	rt, err := router.New(router.Config{Mode: mode, Ledger: ledger, Client: client})
	if err != nil {
		return nil, err
	}

	logger.Infof("execution core ready: mode=%s live=%v (%s)",
		b.gate.EffectiveMode, b.gate.IsLive, b.gate.Reason)
	return &App{
		Cfg:      b.cfg,
		Gate:     b.gate,
		Ledger:   ledger,
		Router:   rt,
		Client:   client,
		Registry: registry,
	}, nil
}

// Shutdown flattens the book and runs the invariant validator as a soft
// pre-flight for reporting: violations are surfaced loudly, never raised.
func (a *App) Shutdown(ctx context.Context, priceProvider func(string) (float64, error)) {
	if a.Ledger != nil {
		results := a.Ledger.CloseAllPositions(priceProvider)
		logger.Infof("flattened %d positions, final balance %.2f", len(results), a.Ledger.Balance())

		report := invariant.RunAll(a.Ledger.TradeLog(), a.Cfg.Trading.StartingBalance, invariant.RiskConfig{
			MaxExposure: a.Cfg.Trading.MaxExposure,
			Epsilon:     1e-6,
		})
		if !report.OK() {
			logger.Banner(report.Banner())
		}
		if err := a.Ledger.Close(); err != nil {
			logger.Warnf("trade log close failed: %v", err)
		}
	}
	if a.Client != nil {
		if err := a.Client.Close(ctx); err != nil {
			logger.Warnf("exchange client close failed: %v", err)
		}
	}
}
