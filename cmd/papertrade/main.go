package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"papertrade/internal/app"
	"papertrade/internal/config"
	"papertrade/internal/gateway/exchange"
	"papertrade/internal/logger"
	"papertrade/internal/safety"
)

func main() {
	// .env is optional, real env vars win over it either way.
	_ = godotenv.Load()

	cfgPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, reason := config.LoadOrDefault(*cfgPath)
	if reason != "" {
		logger.Warnf("%s, running with safe defaults", reason)
	}

	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		log.Fatalf("log output: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	mode, ok := safety.ParseMode(cfg.Trading.Mode)
	if !ok {
		logger.Warnf("unknown trading mode %q, falling back to paper", cfg.Trading.Mode)
	}
	decision := safety.Resolve(safety.FromEnv(mode, cfg.Trading.AllowLiveTrading, os.Getenv))
	logger.Infof("safety gate: %s", decision.Reason)

	if !decision.IsLive {
		if err := safety.ValidateNoLiveKeysInSafeMode(cfg.Exchange.APIKey, cfg.Exchange.APISecret, decision.EffectiveMode); err != nil {
			log.Fatalf("%v", err)
		}
	}

	a, err := app.NewApp(cfg, decision)
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		logger.Errorf("run: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.Shutdown(shutdownCtx, tickerProvider(shutdownCtx, a.Client))
	logger.Infof("bye")
}

// tickerProvider adapts the exchange client to the ledger's flatten price
// lookup. A nil client means paper mode; the ledger then reuses last marks.
func tickerProvider(ctx context.Context, client exchange.Client) func(string) (float64, error) {
	if client == nil {
		return nil
	}
	return func(symbol string) (float64, error) {
		return client.GetTickerPrice(ctx, symbol)
	}
}

func setupLogOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nil, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	logger.SetOutput(io.MultiWriter(os.Stdout, f))
	return f, nil
}
