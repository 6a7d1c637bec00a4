// Package config defines the Payload Inspector's injected configuration
// surface (spec §6.2 Config) plus the overlay of a TOML file read through
// spf13/viper, grounded the same way the teacher's cmd/rtmp-server/flags.go
// cliConfig struct separates user-facing flag values from the runtime
// Config the rest of the program consumes.
package config

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// Mode selects which alternate consumer drives the InputQ (spec §6.2 mode).
type Mode string

const (
	ModeCheck  Mode = "check"
	ModeView   Mode = "view"
	ModeFilter Mode = "filter"
)

// Config is the fully-resolved, validated set of options the orchestrator
// needs to run one pipeline (spec §6.2).
type Config struct {
	// InputPath names the input for logging (spec §6.2 input_source); the
	// CLI sets it to "-" when reading stdin.
	InputPath string
	// OutputPath is empty to mean "write to stdout" (spec §6.2 output_file).
	OutputPath string
	// LinkToFilter restricts the scanner to one link_id when non-nil (spec
	// §6.2 link_to_filter).
	LinkToFilter *uint8
	// SanityChecks enables the §4.2.3 RDH sanity predicates.
	SanityChecks bool
	// DumpRDHs additionally dumps GBT words in View mode.
	DumpRDHs bool
	Mode     Mode

	// InputQCapacity / StatsQCapacity size the bounded pipeline queues
	// (spec §5); both default to a small, deliberately backpressure-prone
	// capacity unless overridden by a config file.
	InputQCapacity int
	StatsQCapacity int
}

// Default returns the baseline configuration before flag/file overlays.
func Default() Config {
	return Config{
		Mode:           ModeCheck,
		InputQCapacity: 64,
		StatsQCapacity: 256,
	}
}

// fileOverlay is the subset of Config a TOML config file may override,
// named for viper/toml's struct-tag unmarshaling (holocm-holo-build's
// PackageDefinition pattern: export fields with clear names so parse errors
// read naturally, spec.md's Config collaborator has no opinion on file
// format so TOML is reused from the pack rather than invented fresh).
type fileOverlay struct {
	SanityChecks   bool `toml:"sanity_checks"`
	DumpRDHs       bool `toml:"dump_rdhs"`
	InputQCapacity int  `toml:"input_queue_capacity"`
	StatsQCapacity int  `toml:"stats_queue_capacity"`
}

// LoadFileOverlay reads a TOML config file through viper (so future
// env-var/flag binding can share the same keys) and applies any set fields
// onto cfg, returning the merged result.
func LoadFileOverlay(cfg Config, path string) (Config, error) {
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	var overlay fileOverlay
	raw, err := tomlRoundTrip(v.AllSettings())
	if err != nil {
		return cfg, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if _, err := toml.Decode(raw, &overlay); err != nil {
		return cfg, fmt.Errorf("config: decode %s: %w", path, err)
	}

	if v.IsSet("sanity_checks") {
		cfg.SanityChecks = overlay.SanityChecks
	}
	if v.IsSet("dump_rdhs") {
		cfg.DumpRDHs = overlay.DumpRDHs
	}
	if overlay.InputQCapacity > 0 {
		cfg.InputQCapacity = overlay.InputQCapacity
	}
	if overlay.StatsQCapacity > 0 {
		cfg.StatsQCapacity = overlay.StatsQCapacity
	}
	return cfg, nil
}

// tomlRoundTrip re-encodes viper's generic settings map back to TOML text so
// BurntSushi/toml (which viper does not use internally) can decode it into a
// concrete struct — viper owns file discovery/parsing, toml owns strict
// struct decoding, matching how holo-build treats TOML as the source of
// truth for a typed manifest.
func tomlRoundTrip(settings map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(settings); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Validate checks cross-field invariants the CLI layer can't express via
// flag parsing alone.
func (c Config) Validate() error {
	if c.InputQCapacity < 0 || c.StatsQCapacity < 0 {
		return fmt.Errorf("config: queue capacities must be >= 0")
	}
	switch c.Mode {
	case ModeCheck, ModeView, ModeFilter:
	default:
		return fmt.Errorf("config: unknown mode %q", c.Mode)
	}
	return nil
}
