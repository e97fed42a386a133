package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hakim/headerstat/internal/config"
)

// Preset defines a named run profile with pre-configured settings.
// Zero fields leave the loaded configuration untouched.
type Preset struct {
	Name           string
	Description    string
	NumTargets     int
	NumHeaders     int
	Timeout        string
	Concurrency    int
	TLSFingerprint string
}

// builtinPresets is the registry of all known presets.
var builtinPresets = map[string]Preset{
	"quick": {
		Name:        "quick",
		Description: "Smoke test: top 100 sites, short timeout",
		NumTargets:  100,
		NumHeaders:  10,
		Timeout:     "3s",
		Concurrency: 50,
	},
	"standard": {
		Name:        "standard",
		Description: "Top 1000 sites with the default timeout",
		NumTargets:  1000,
		NumHeaders:  10,
		Timeout:     "10s",
		Concurrency: 100,
	},
	"browser": {
		Name:           "browser",
		Description:    "Top 1000 sites with a Chrome TLS fingerprint, for hosts that filter non-browser clients",
		NumTargets:     1000,
		NumHeaders:     20,
		Timeout:        "10s",
		Concurrency:    100,
		TLSFingerprint: "chrome",
	},
	"full": {
		Name:        "full",
		Description: "Whole target list, wide ranking, high fan-out",
		NumTargets:  0,
		NumHeaders:  25,
		Timeout:     "15s",
		Concurrency: 500,
	},
}

// BuiltinPresets returns the available preset templates.
func BuiltinPresets() map[string]Preset {
	// Return a copy so callers cannot mutate the registry.
	out := make(map[string]Preset, len(builtinPresets))
	for k, v := range builtinPresets {
		out[k] = v
	}
	return out
}

// PresetNames returns the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(builtinPresets))
	for name := range builtinPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPreset returns a preset by name, or an error if not found.
func GetPreset(name string) (*Preset, error) {
	p, ok := builtinPresets[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q, available: %s", name, strings.Join(PresetNames(), ", "))
	}
	cp := p
	return &cp, nil
}

// Apply overlays the preset onto cfg. The "full" preset's zero NumTargets
// means "read the whole list" and is applied as such.
func (p *Preset) Apply(cfg *config.Config) {
	if p.NumTargets > 0 || p.Name == "full" {
		cfg.NumTargets = p.NumTargets
	}
	if p.NumHeaders > 0 {
		cfg.NumHeaders = p.NumHeaders
	}
	if p.Timeout != "" {
		cfg.Fetch.Timeout = p.Timeout
	}
	if p.Concurrency > 0 {
		cfg.Fetch.Concurrency = p.Concurrency
	}
	if p.TLSFingerprint != "" {
		cfg.Fetch.TLSFingerprint = p.TLSFingerprint
	}
}
