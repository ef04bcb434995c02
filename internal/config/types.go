// Package config loads and validates the process configuration.
package config

// Config is the main configuration carrier.
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Trading      TradingConfig      `mapstructure:"trading"`
	Exchange     ExchangeConfig     `mapstructure:"exchange"`
	CostProfiles CostProfilesConfig `mapstructure:"cost_profiles"`
}

type AppConfig struct {
	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
}

// TradingConfig drives the execution mode, the safety gate's first key and
// the paper ledger parameters.
type TradingConfig struct {
	Mode             string  `mapstructure:"mode"` // paper | monitor | live | dry_run
	AllowLiveTrading bool    `mapstructure:"allow_live_trading"`
	StartingBalance  float64 `mapstructure:"starting_balance"`
	SlippageRate     float64 `mapstructure:"slippage_rate"`
	CommissionRate   float64 `mapstructure:"commission_rate"`
	MaxExposure      float64 `mapstructure:"max_exposure"` // fraction of equity
	TradeLogPath     string  `mapstructure:"trade_log_path"`
}

type ExchangeConfig struct {
	Name      string `mapstructure:"name"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	Testnet   bool   `mapstructure:"testnet"`
}

// CostProfilesConfig points at the hot-reloadable cost-profile file.
type CostProfilesConfig struct {
	Path   string `mapstructure:"path"`
	Active string `mapstructure:"active"`
}

// Default returns the safe baseline configuration: paper mode, modest flat
// execution costs. The default mode must never be live.
func Default() *Config {
	return &Config{
		App: AppConfig{LogLevel: "info"},
		Trading: TradingConfig{
			Mode:            "paper",
			StartingBalance: 10_000,
			SlippageRate:    0.001,
			CommissionRate:  0.001,
			MaxExposure:     1.0,
			TradeLogPath:    "trades.csv",
		},
	}
}
