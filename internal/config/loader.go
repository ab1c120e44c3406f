package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/leaptable/pkg/core"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "LEAPTABLE_"

// ConfigFileName is the name of the runtime config file.
const ConfigFileName = "leaptable.yaml"

// ConfigFileNameAlt is the alternate name of the runtime config file.
const ConfigFileNameAlt = "leaptable.yml"

// flagKeys maps flag names to config keys where the kebab-to-snake
// transform is not enough.
var flagKeys = map[string]string{
	"schema":               "schema_path",
	"db-type":              "database.type",
	"db-path":              "database.path",
	"db-host":              "database.host",
	"db-port":              "database.port",
	"db-name":              "database.database",
	"db-user":              "database.user",
	"db-password":          "database.password",
	"async-max-concurrent": "async.max_concurrent",
	"async-retention-ttl":  "async.retention_ttl",
	"async-max-results":    "async.max_results",
	"async-store":          "async.store",
	"async-store-path":     "async.store_path",
}

// RegisterFlags adds the runtime config flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("schema", "", "model definition document (YAML or JSON)")
	fs.Bool("watch", false, "reload the schema when the file changes")
	fs.String("bind-mode", DefaultBindMode, "placeholder binding: native or text")
	fs.Bool("calculated-columns", false, "evaluate calculated column expressions")
	fs.String("db-type", "", "database adapter: sqlite, duckdb, postgres")
	fs.String("db-path", "", "database file for sqlite and duckdb")
	fs.String("db-host", "", "database host")
	fs.Int("db-port", 0, "database port")
	fs.String("db-name", "", "database name")
	fs.String("db-user", "", "database user")
	fs.String("db-password", "", "database password")
	fs.Int("async-max-concurrent", 0, "cap on running async operations")
	fs.Duration("async-retention-ttl", DefaultRetentionTTL, "age after which finished results are evicted")
	fs.Int("async-max-results", DefaultMaxResults, "maximum retained results")
	fs.String("async-store", DefaultResultStore, "result store: memory or sqlite")
	fs.String("async-store-path", "", "sqlite file for the sqlite result store")
}

// Load loads the engine configuration from cfgFile, environment variables and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// An empty cfgFile looks for leaptable.yaml or leaptable.yml in the working directory.
func Load(cfgFile string, flags *pflag.FlagSet) (*core.EngineConfig, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]any{
		"bind_mode":           DefaultBindMode,
		"async.store":         DefaultResultStore,
		"async.retention_ttl": DefaultRetentionTTL.String(),
		"async.max_results":   DefaultMaxResults,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	cfgFile = findConfigFile(cfgFile)
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, &core.ConfigLoadError{Source: cfgFile, Err: err}
		}
	}

	// 3. Environment, LEAPTABLE_DATABASE__TYPE -> database.type
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg core.EngineConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.BindMode = strings.ToLower(cfg.BindMode)
	if cfg.BindMode != "native" && cfg.BindMode != "text" {
		return nil, fmt.Errorf("invalid bind_mode %q: want native or text", cfg.BindMode)
	}

	if cfgFile != "" {
		base := filepath.Dir(cfgFile)
		cfg.SchemaPath = resolvePathRelativeTo(cfg.SchemaPath, base)
		cfg.Async.StorePath = resolvePathRelativeTo(cfg.Async.StorePath, base)
		if cfg.Database != nil && cfg.Database.Path != ":memory:" {
			cfg.Database.Path = resolvePathRelativeTo(cfg.Database.Path, base)
		}
	}
	ApplyDatabaseDefaults(cfg.Database)

	return &cfg, nil
}

func flagKey(name string) string {
	if key, ok := flagKeys[name]; ok {
		return key
	}
	return strings.ReplaceAll(name, "-", "_")
}

// findConfigFile returns explicit when set, otherwise the first default
// config file found in the working directory, or "".
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
