package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/meshio/pkg/formats"
)

// Config is the optional config.toml. Flags override every value.
//
//	[convert.vtu-binary]
//	compression = "none"
//
//	[serve]
//	addr = ":8080"
//	max_upload_bytes = 67108864
//	cache_ttl = "12h"
//	redis = "redis://localhost:6379/0"
//
//	[cache]
//	dir = "/var/cache/meshio"
//	disabled = false
type Config struct {
	// Convert holds default writer options per output format identifier.
	Convert map[string]map[string]any `toml:"convert"`
	Serve   ServeConfig               `toml:"serve"`
	Cache   CacheConfig               `toml:"cache"`
}

// ServeConfig configures the conversion server.
type ServeConfig struct {
	Addr           string        `toml:"addr"`
	MaxUploadBytes int64         `toml:"max_upload_bytes"`
	CacheTTL       time.Duration `toml:"cache_ttl"`
	Redis          string        `toml:"redis"`
}

// CacheConfig configures the local conversion cache.
type CacheConfig struct {
	Dir      string `toml:"dir"`
	Disabled bool   `toml:"disabled"`
}

// Defaults.
const (
	defaultAddr           = "127.0.0.1:8080"
	defaultMaxUploadBytes = 64 << 20
	defaultCacheTTL       = 24 * time.Hour
)

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		Serve: ServeConfig{
			Addr:           defaultAddr,
			MaxUploadBytes: defaultMaxUploadBytes,
			CacheTTL:       defaultCacheTTL,
		},
	}
}

// LoadConfig reads path over the defaults. An empty path means the XDG
// location, which may be absent; an explicit path must exist. Unknown keys
// are rejected so typos do not go unnoticed.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	explicit := path != ""
	if !explicit {
		dir, err := xdgDir("XDG_CONFIG_HOME", ".config")
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(dir, "config.toml")
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("load config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// writerOptions merges the config defaults for format with the flag
// options; flags win.
func (cfg Config) writerOptions(format string, flags formats.Options) formats.Options {
	defaults := cfg.Convert[format]
	if len(defaults) == 0 && len(flags) == 0 {
		return nil
	}
	opts := make(formats.Options, len(defaults)+len(flags))
	for k, v := range defaults {
		opts[k] = v
	}
	for k, v := range flags {
		opts[k] = v
	}
	return opts
}

// parseOptions turns repeated key=value flags into writer options. Values
// stay strings; backends convert them on access.
func parseOptions(pairs []string) (formats.Options, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	opts := make(formats.Options, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid option %q, want key=value", p)
		}
		opts[k] = v
	}
	return opts, nil
}
