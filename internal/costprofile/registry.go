// Package costprofile manages named execution-cost profiles loaded from a
// YAML file: fee tiers, slippage and spread parameters that can be tuned
// while the process runs. The safety gate's mode decision is deliberately
// not part of this file and never hot-reloads.
package costprofile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"papertrade/internal/cost"
	"papertrade/internal/logger"
)

// TierSpec is one fee-tier row as written in the profile file.
type TierSpec struct {
	MinVolume float64 `mapstructure:"min_volume" yaml:"min_volume"`
	Maker     float64 `mapstructure:"maker" yaml:"maker"`
	Taker     float64 `mapstructure:"taker" yaml:"taker"`
}

// SlippageSpec maps onto cost.DynamicSlippageModel.
type SlippageSpec struct {
	Base           float64 `mapstructure:"base" yaml:"base"`
	ImpactScale    float64 `mapstructure:"impact_scale" yaml:"impact_scale"`
	VolatilityMult float64 `mapstructure:"volatility_mult" yaml:"volatility_mult"`
	Max            float64 `mapstructure:"max" yaml:"max"`
}

// SpreadSpec maps onto cost.SpreadModel.
type SpreadSpec struct {
	BaseBps        float64 `mapstructure:"base_bps" yaml:"base_bps"`
	VolatilityMult float64 `mapstructure:"volatility_mult" yaml:"volatility_mult"`
	MinBps         float64 `mapstructure:"min_bps" yaml:"min_bps"`
	MaxBps         float64 `mapstructure:"max_bps" yaml:"max_bps"`
}

// Profile is one named cost profile.
type Profile struct {
	ID          string         `mapstructure:"id" yaml:"id"`
	Description string         `mapstructure:"description" yaml:"description"`
	Discount    float64        `mapstructure:"discount" yaml:"discount"`
	FeeTiers    []TierSpec     `mapstructure:"fee_tiers" yaml:"fee_tiers"`
	Slippage    SlippageSpec   `mapstructure:"slippage" yaml:"slippage"`
	Spread      SpreadSpec     `mapstructure:"spread" yaml:"spread"`
	Schema      map[string]any `mapstructure:"schema" yaml:"schema"`

	schemaCompiled *jsonschema.Schema
}

// FileConfig maps the cost_profiles document root.
type FileConfig struct {
	CostProfiles map[string]Profile `yaml:"cost_profiles"`
}

// Snapshot is an immutable view of the loaded profiles.
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Profiles map[string]Profile
}

// ChangeListener fires after every successful reload.
type ChangeListener func(Snapshot)

// Registry loads the profile file and watches it for updates.
type Registry struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

// NewRegistry reads the file and starts the watch.
func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("cost profile registry requires a path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read cost profile file failed: %w", err)
	}
	r := &Registry{path: path, v: v}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("cost profile reload failed: %v", err)
			return
		}
		r.notifyListeners()
	})
	v.WatchConfig()
	return r, nil
}

// OnChange registers a reload listener.
func (r *Registry) OnChange(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// Snapshot returns the current profile set.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// Profile returns the profile with the given ID.
func (r *Registry) Profile(id string) (Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.snapshot.Profiles[strings.TrimSpace(id)]
	return p, ok
}

// IDs returns the sorted profile IDs.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.snapshot.Profiles))
	for id := range r.snapshot.Profiles {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) reload() error {
	cfg, err := readProfileFile(r.path)
	if err != nil {
		return err
	}
	profiles := make(map[string]Profile, len(cfg.CostProfiles))
	for name, p := range cfg.CostProfiles {
		norm := normalizeProfile(name, p)
		profiles[norm.ID] = norm
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Profiles: profiles,
	}
	r.mu.Unlock()
	logger.Infof("cost profile registry loaded %d profiles from %s", len(profiles), filepath.Base(r.path))
	return nil
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	snap := cloneSnapshot(r.snapshot)
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		go func(cb ChangeListener) {
			defer recoverListener()
			cb(snap)
		}(fn)
	}
}

func recoverListener() {
	if p := recover(); p != nil {
		logger.Errorf("cost profile listener panic: %v", p)
	}
}

func normalizeProfile(name string, p Profile) Profile {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		p.ID = strings.TrimSpace(name)
	}
	p.Description = strings.TrimSpace(p.Description)
	if len(p.Schema) > 0 {
		compiled, err := compileSchema(p.Schema)
		if err != nil {
			logger.Errorf("cost profile schema compile failed id=%s: %v", p.ID, err)
		} else {
			p.schemaCompiled = compiled
		}
	}
	return p
}

func compileSchema(data map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("profile.json", bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return compiler.Compile("profile.json")
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{
		Version:  src.Version,
		LoadedAt: src.LoadedAt,
		Profiles: make(map[string]Profile, len(src.Profiles)),
	}
	for id, p := range src.Profiles {
		dst.Profiles[id] = p
	}
	return dst
}

func readProfileFile(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read cost profile file failed: %w", err)
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse cost profile file failed: %w", err)
	}
	return cfg, nil
}

// ValidateOverrides checks runtime override parameters against the
// profile's declared schema, when it has one.
func (p Profile) ValidateOverrides(params map[string]any) error {
	if p.schemaCompiled == nil {
		return nil
	}
	return p.schemaCompiled.Validate(params)
}

// Build constructs the execution model described by the profile.
func (p Profile) Build() *cost.RealisticExecutionModel {
	var tiers map[cost.VolumeTier]cost.TierRate
	if len(p.FeeTiers) > 0 {
		sorted := append([]TierSpec(nil), p.FeeTiers...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinVolume < sorted[j].MinVolume })
		tiers = make(map[cost.VolumeTier]cost.TierRate, len(sorted))
		for i, t := range sorted {
			tiers[cost.VolumeTier(i)] = cost.TierRate{MinVolume: t.MinVolume, Maker: t.Maker, Taker: t.Taker}
		}
	}
	slip := cost.DynamicSlippageModel{
		Base:           p.Slippage.Base,
		ImpactScale:    p.Slippage.ImpactScale,
		VolatilityMult: p.Slippage.VolatilityMult,
		MaxSlippage:    p.Slippage.Max,
	}
	spread := cost.SpreadModel{
		BaseBps:        p.Spread.BaseBps,
		VolatilityMult: p.Spread.VolatilityMult,
		MinBps:         p.Spread.MinBps,
		MaxBps:         p.Spread.MaxBps,
	}
	return cost.NewRealisticExecutionModel(cost.NewFeeSchedule(tiers, p.Discount), slip, spread)
}
