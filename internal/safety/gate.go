// Package safety implements the two-key live-trading gate. Real-money
// execution requires both the config flag and the environment flag; every
// other combination degrades to paper trading.
package safety

import (
	"errors"
	"fmt"
	"strings"
)

// Mode is the configured trading mode.
type Mode string

const (
	ModePaper   Mode = "paper"
	ModeMonitor Mode = "monitor"
	ModeLive    Mode = "live"
	ModeDryRun  Mode = "dry_run"
)

// EnvLiveTrading is the environment variable forming the second key.
const EnvLiveTrading = "LIVE_TRADING_ENABLED"

// liveKeyMinLen: credential strings longer than this are treated as
// live-looking by ValidateNoLiveKeysInSafeMode.
const liveKeyMinLen = 10

// ParseMode normalizes a mode string. Unknown input maps to paper: the
// default of this system must never be live.
func ParseMode(raw string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModePaper:
		return ModePaper, true
	case ModeMonitor:
		return ModeMonitor, true
	case ModeLive:
		return ModeLive, true
	case ModeDryRun:
		return ModeDryRun, true
	default:
		return ModePaper, false
	}
}

// GateConfig is an explicit snapshot of everything the gate consults. It is
// built once at process startup so Resolve stays a pure function.
type GateConfig struct {
	Mode                  Mode
	AllowLiveTrading      bool
	LiveTradingEnvEnabled bool
}

// FromEnv builds a GateConfig using the supplied env lookup (os.Getenv in
// production, a stub in tests).
func FromEnv(mode Mode, allowLiveTrading bool, getenv func(string) string) GateConfig {
	return GateConfig{
		Mode:                  mode,
		AllowLiveTrading:      allowLiveTrading,
		LiveTradingEnvEnabled: EnvEnabled(getenv(EnvLiveTrading)),
	}
}

// EnvEnabled reports whether an environment value counts as truthy for the
// live-trading gate: true, 1 or yes, case-insensitive.
func EnvEnabled(val string) bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

// Decision is the gate's verdict: the mode the process actually runs in.
type Decision struct {
	IsLive        bool
	EffectiveMode Mode
	Reason        string
}

// Resolve determines the effective trading mode. paper and monitor are
// always safe; live and dry_run unlock only when both keys are present.
func Resolve(gc GateConfig) Decision {
	switch gc.Mode {
	case ModePaper, ModeMonitor:
		return Decision{
			IsLive:        false,
			EffectiveMode: gc.Mode,
			Reason:        fmt.Sprintf("mode %q never trades live", gc.Mode),
		}
	case ModeLive, ModeDryRun:
		if !gc.AllowLiveTrading {
			return Decision{
				IsLive:        false,
				EffectiveMode: ModePaper,
				Reason:        fmt.Sprintf("mode %q blocked: allow_live_trading is not set in config, forcing paper", gc.Mode),
			}
		}
		if !gc.LiveTradingEnvEnabled {
			return Decision{
				IsLive:        false,
				EffectiveMode: ModePaper,
				Reason:        fmt.Sprintf("mode %q blocked: %s environment gate is not enabled, forcing paper", gc.Mode, EnvLiveTrading),
			}
		}
		return Decision{
			IsLive:        true,
			EffectiveMode: gc.Mode,
			Reason:        "both live-trading keys present",
		}
	default:
		return Decision{
			IsLive:        false,
			EffectiveMode: ModePaper,
			Reason:        fmt.Sprintf("unknown trading mode %q, defaulting to paper", gc.Mode),
		}
	}
}

// GateError is the fatal safety-tier error: callers are required to
// propagate it to process exit. It is a distinguished type so it cannot be
// downgraded to an ignorable result.
type GateError struct {
	Reason string
}

func (e *GateError) Error() string {
	return "live trading gate: " + e.Reason
}

// IsGateError reports whether err is (or wraps) a GateError.
func IsGateError(err error) bool {
	var ge *GateError
	return errors.As(err, &ge)
}

// ValidateNoLiveKeysInSafeMode is a defense-in-depth check independent of
// the primary gate: any credential longer than liveKeyMinLen characters is
// treated as live-looking, and its presence in a safe mode is fatal.
func ValidateNoLiveKeysInSafeMode(apiKey, apiSecret string, mode Mode) error {
	if mode != ModePaper && mode != ModeMonitor {
		return nil
	}
	if len(strings.TrimSpace(apiKey)) > liveKeyMinLen || len(strings.TrimSpace(apiSecret)) > liveKeyMinLen {
		return &GateError{
			Reason: fmt.Sprintf("live-looking API credentials configured while in %q mode; refusing to start", mode),
		}
	}
	return nil
}
