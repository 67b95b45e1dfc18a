package main

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/unkn0wn-root/swrcache"
)

var (
	backends   = []string{"memory", "sqlite", "redis", "bigcache", "ristretto"}
	logFormats = []string{"none", "zap", "logrus", "slog"}
)

const (
	defaultDSN      = "file:swrcache.db"
	defaultRedisURL = "redis://localhost:6379/0"
)

// config is the resolved settings from flags, SWRCACHE_* env vars and the config file.
type config struct {
	Backend       string        `mapstructure:"backend"`
	DSN           string        `mapstructure:"dsn"`
	RedisURL      string        `mapstructure:"redis-url"`
	APIURL        string        `mapstructure:"api-url"`
	Token         string        `mapstructure:"token"`
	Namespace     string        `mapstructure:"namespace"`
	SchemaVersion string        `mapstructure:"schema-version"`
	RetainFor     time.Duration `mapstructure:"retain-for"`
	LogFormat     string        `mapstructure:"log-format"`
	Verbose       bool          `mapstructure:"verbose"`
	Dedupe        bool          `mapstructure:"dedupe"`
	Hooks         bool          `mapstructure:"hooks"`
	Fence         bool          `mapstructure:"fence"`
	NoColor       bool          `mapstructure:"no-color"`

	// Per-entity overrides from the "ttl" map, e.g. ttl.orders: 2m.
	TTLs swrcache.TTLTable `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", "memory")
	v.SetDefault("dsn", defaultDSN)
	v.SetDefault("redis-url", defaultRedisURL)
	v.SetDefault("api-url", "")
	v.SetDefault("token", "")
	v.SetDefault("namespace", "")
	v.SetDefault("schema-version", "")
	v.SetDefault("retain-for", time.Duration(0))
	v.SetDefault("log-format", "none")
	v.SetDefault("verbose", false)
	v.SetDefault("dedupe", false)
	v.SetDefault("hooks", false)
	v.SetDefault("fence", false)
	v.SetDefault("no-color", false)
}

// loadConfig merges defaults, the config file, env and flags (lowest to highest).
func loadConfig(v *viper.Viper) (config, error) {
	if f := v.GetString("config"); f != "" {
		v.SetConfigFile(f)
	} else {
		v.SetConfigName(".swrcache")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	v.SetEnvPrefix("SWRCACHE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	for entity := range swrcache.DefaultTTLs() {
		_ = v.BindEnv("ttl." + entity)
	}
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return config{}, fmt.Errorf("unable to unmarshal config: %w", err)
	}
	ttls, err := ttlOverrides(v)
	if err != nil {
		return config{}, err
	}
	cfg.TTLs = ttls

	return cfg, cfg.validate()
}

func ttlOverrides(v *viper.Viper) (swrcache.TTLTable, error) {
	names := make(map[string]struct{})
	for entity := range swrcache.DefaultTTLs() {
		names[entity] = struct{}{}
	}
	for entity := range v.GetStringMap("ttl") {
		names[entity] = struct{}{}
	}

	out := swrcache.TTLTable{}
	for entity := range names {
		key := "ttl." + entity
		if !v.IsSet(key) {
			continue
		}
		d := v.GetDuration(key)
		if d <= 0 {
			return nil, fmt.Errorf("%s: want a positive duration such as 10m, got %q", key, v.GetString(key))
		}
		out[entity] = d
	}
	return out, nil
}

func (c config) validate() error {
	if !slices.Contains(backends, c.Backend) {
		return fmt.Errorf("unknown backend %q (want one of %s)", c.Backend, strings.Join(backends, ", "))
	}
	if !slices.Contains(logFormats, c.LogFormat) {
		return fmt.Errorf("unknown log format %q (want one of %s)", c.LogFormat, strings.Join(logFormats, ", "))
	}
	if c.RetainFor < 0 {
		return fmt.Errorf("retain-for must not be negative, got %s", c.RetainFor)
	}
	return nil
}

// ttlSummary renders the effective TTL table for --verbose output.
func (c config) ttlSummary() string {
	eff := swrcache.DefaultTTLs().With(c.TTLs)
	keys := make([]string, 0, len(eff))
	for k := range eff {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+eff[k].String())
	}
	return strings.Join(parts, " ")
}
