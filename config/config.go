package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/s3proxy"
	s3proxyhttp "github.com/sagarc03/s3proxy/http"
	"github.com/sagarc03/s3proxy/s3store"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "S3PROXY"

// Storage backends.
const (
	BackendS3         = "s3"
	BackendFilesystem = "filesystem"
)

const redacted = "REDACTED"

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for s3proxy.
type Config struct {
	Name    string                 `mapstructure:"name" yaml:"name" validate:"required"`
	Env     string                 `mapstructure:"env" yaml:"env" validate:"required,oneof=development production"`
	Server  ServerConfig           `mapstructure:"server" yaml:"server"`
	Policy  PolicyConfig           `mapstructure:"policy" yaml:"policy"`
	Storage StorageConfig          `mapstructure:"storage" yaml:"storage"`
	Auth    AuthConfig             `mapstructure:"auth" yaml:"auth"`
	CORS    s3proxyhttp.CORSConfig `mapstructure:"cors" yaml:"cors"`
	Metrics MetricsConfig          `mapstructure:"metrics" yaml:"metrics"`
	Log     LogConfig              `mapstructure:"log" yaml:"log"`
}

// ServerConfig holds HTTP server configuration. Timeouts are in seconds.
type ServerConfig struct {
	Port            int    `mapstructure:"port" yaml:"port" validate:"required,min=1,max=65535"`
	PathPrefix      string `mapstructure:"path_prefix" yaml:"path_prefix" validate:"omitempty,startswith=/"`
	ReadTimeout     int    `mapstructure:"read_timeout" yaml:"read_timeout" validate:"min=0"`
	WriteTimeout    int    `mapstructure:"write_timeout" yaml:"write_timeout" validate:"min=0"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"min=1"`
}

// PolicyConfig holds the MIME type lists and extension overrides. Extension
// keys are written without the leading dot ("md: text/markdown") since viper
// splits keys on dots.
type PolicyConfig struct {
	s3proxy.PolicyConfig `mapstructure:",squash" yaml:",inline"`
	Extensions           map[string]string `mapstructure:"extensions" yaml:"extensions,omitempty"`
}

// StorageConfig selects and configures the object backend.
type StorageConfig struct {
	Backend string         `mapstructure:"backend" yaml:"backend" validate:"required,oneof=s3 filesystem"`
	Path    string         `mapstructure:"path" yaml:"path" validate:"required_if=Backend filesystem"`
	S3      s3store.Config `mapstructure:"s3" yaml:"s3"`
}

// AuthConfig describes how the upstream authenticating proxy passes the user.
type AuthConfig struct {
	UserHeader  string `mapstructure:"user_header" yaml:"user_header" validate:"required"`
	RequireUser bool   `mapstructure:"require_user" yaml:"require_user"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path" validate:"omitempty,startswith=/"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=debug info warn error"`
}

// IsProduction reports whether the production environment is selected.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// NewPolicy builds the content policy described by the configuration.
func (c *Config) NewPolicy() *s3proxy.Policy {
	return s3proxy.NewPolicy(c.Policy.PolicyConfig, s3proxy.NewMimeTable(c.Policy.Extensions))
}

// HandlerConfig maps the configuration onto the HTTP handler settings.
// Metadata and the metrics recorder are left to the caller.
func (c *Config) HandlerConfig() s3proxyhttp.HandlerConfig {
	return s3proxyhttp.HandlerConfig{
		PathPrefix:  c.Server.PathPrefix,
		UserHeader:  c.Auth.UserHeader,
		RequireUser: c.Auth.RequireUser,
		CORS:        c.CORS,
		MetricsPath: c.Metrics.Path,
	}
}

// ReadTimeoutDuration returns the server read timeout as a duration.
func (s ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns the server write timeout as a duration.
func (s ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// ShutdownTimeoutDuration returns the graceful shutdown budget as a duration.
func (s ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(s.ShutdownTimeout) * time.Second
}

// Redacted returns a copy of c with profile secret keys masked.
func (c *Config) Redacted() Config {
	out := *c
	if c.Storage.S3.Profiles != nil {
		out.Storage.S3.Profiles = maps.Clone(c.Storage.S3.Profiles)
		for name, p := range out.Storage.S3.Profiles {
			if p.SecretKey != "" {
				p.SecretKey = redacted
				out.Storage.S3.Profiles[name] = p
			}
		}
	}
	return out
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"port":         "server.port",
	"path-prefix":  "server.path_prefix",
	"backend":      "storage.backend",
	"storage-path": "storage.path",
	"region":       "storage.s3.region",
	"endpoint":     "storage.s3.endpoint",
	"log-level":    "log.level",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("name", "s3proxy")
	v.SetDefault("env", "development")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.path_prefix", "/s3proxy")
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 120)
	v.SetDefault("server.shutdown_timeout", 10)

	v.SetDefault("policy.accept", s3proxy.DefaultAcceptMimeTypes)
	v.SetDefault("policy.also_allow", []string{})
	v.SetDefault("policy.disallow", []string{})

	v.SetDefault("storage.backend", BackendS3)
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.use_path_style", false)

	v.SetDefault("auth.user_header", s3proxyhttp.DefaultUserHeader)
	v.SetDefault("auth.require_user", false)

	v.SetDefault("cors.enabled", false)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "HEAD", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"*"})
	v.SetDefault("cors.exposed_headers", []string{"Content-Length", "Content-Disposition", "X-Request-ID"})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("log.level", "info")
}

// stringToListHook decodes a string into a []string field. A value starting
// with "[" is parsed as a JSON array, anything else is split on commas and
// whitespace.
func stringToListHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.Slice || to.Elem().Kind() != reflect.String {
			return data, nil
		}
		return splitList(reflect.ValueOf(data).String())
	}
}

func splitList(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}, nil
	}
	if strings.HasPrefix(raw, "[") {
		var items []string
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return nil, fmt.Errorf("parse list %q: %w", raw, err)
		}
		return items, nil
	}
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	}), nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is only
// an error when required is true.
func LoadEnvFile(path string, required bool) error {
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if !required && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load env file %s: %w", path, err)
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// List values (policy.accept, policy.disallow, ...) may be given in the
// environment as comma- or space-separated strings, or as a JSON array.
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		stringToListHook(),
	))
	if err := v.Unmarshal(&cfg, hooks); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
