package smr

import (
	"fmt"
	"sync"
	"time"

	"github.com/agilira/argus"
)

// HotConfig watches a configuration file and applies changes to an Engine's
// runtime-tunable parameters without disruption, grounded on the
// argus-backed hot-reload wrapper pattern this pack's agilira-balios cache
// uses for its own Config. MaxThreads has no hot-reload path — it sizes the
// Engine's pre-allocated slot array at construction and cannot change
// without rebuilding the Engine.
type HotConfig struct {
	eng     *Engine
	watcher *argus.Watcher
	mu      sync.RWMutex
	current tunables

	// OnReload is called after a change is successfully applied. Optional;
	// must be fast and non-blocking.
	OnReload func(old, new tunables)
}

// tunables is the subset of Config that can change after construction.
type tunables struct {
	PerThreadThreshold int64
	MinVersionCacheTTL time.Duration
}

// HotConfigOptions configures a HotConfig.
type HotConfigOptions struct {
	// ConfigPath is the file argus watches. Supports JSON, YAML, TOML,
	// HCL, INI, and Properties, per argus.UniversalConfigWatcherWithConfig.
	ConfigPath string

	// PollInterval is how often argus checks the file for changes.
	// Default 1s, floor 100ms.
	PollInterval time.Duration

	// OnReload is called after a successfully applied change.
	OnReload func(old, new tunables)
}

// NewHotConfig starts watching opts.ConfigPath and applies recognized keys
// to eng as they change:
//
//	smr.per_thread_threshold (int)
//	smr.min_version_cache_ttl (duration string, e.g. "200us")
//
// Unrecognized keys and malformed values are ignored; a malformed file
// leaves eng's current settings untouched rather than reverting to
// defaults.
func NewHotConfig(eng *Engine, opts HotConfigOptions) (*HotConfig, error) {
	if opts.ConfigPath == "" {
		return nil, fmt.Errorf("smr: NewHotConfig: ConfigPath is required")
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = time.Second
	} else if opts.PollInterval < 100*time.Millisecond {
		opts.PollInterval = 100 * time.Millisecond
	}

	hc := &HotConfig{
		eng:      eng,
		OnReload: opts.OnReload,
		current: tunables{
			PerThreadThreshold: DefaultPerThreadThreshold,
			MinVersionCacheTTL: DefaultMinVersionCacheTTL,
		},
	}

	watcher, err := argus.UniversalConfigWatcherWithConfig(
		opts.ConfigPath,
		hc.handleConfigChange,
		argus.Config{PollInterval: opts.PollInterval},
	)
	if err != nil {
		return nil, err
	}
	hc.watcher = watcher
	return hc, nil
}

// Start begins watching, if not already running.
func (hc *HotConfig) Start() error {
	if hc.watcher.IsRunning() {
		return nil
	}
	return hc.watcher.Start()
}

// Stop stops watching the configuration file.
func (hc *HotConfig) Stop() error {
	return hc.watcher.Stop()
}

// Current returns the last-applied tunables snapshot.
func (hc *HotConfig) Current() (int64, time.Duration) {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.current.PerThreadThreshold, hc.current.MinVersionCacheTTL
}

func (hc *HotConfig) handleConfigChange(data map[string]interface{}) {
	hc.mu.Lock()
	old := hc.current
	next := old

	section, ok := data["smr"].(map[string]interface{})
	if !ok {
		section = data
	}
	if v, ok := parsePositiveInt(section["per_thread_threshold"]); ok {
		next.PerThreadThreshold = int64(v)
	}
	if d, ok := parseDuration(section["min_version_cache_ttl"]); ok {
		next.MinVersionCacheTTL = d
	}
	hc.current = next
	hc.mu.Unlock()

	if next.PerThreadThreshold != old.PerThreadThreshold {
		hc.eng.SetPerThreadThreshold(next.PerThreadThreshold)
	}
	if next.MinVersionCacheTTL != old.MinVersionCacheTTL {
		hc.eng.SetMinVersionCacheTTL(next.MinVersionCacheTTL)
	}
	if hc.OnReload != nil && next != old {
		hc.OnReload(old, next)
	}
}

// parsePositiveInt extracts a positive integer from a JSON/YAML-decoded
// value, which may surface as either int or float64 depending on format.
func parsePositiveInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		if v > 0 {
			return v, true
		}
	case float64:
		if v > 0 {
			return int(v), true
		}
	}
	return 0, false
}

// parseDuration extracts a time.Duration from a string value like "200us".
func parseDuration(value interface{}) (time.Duration, bool) {
	str, ok := value.(string)
	if !ok {
		return 0, false
	}
	d, err := time.ParseDuration(str)
	if err != nil {
		return 0, false
	}
	return d, true
}
