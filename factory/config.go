package factory

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/utcpbridge/catalog"
	"github.com/effective-security/x/configloader"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Cache providers
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Defaults
const (
	DefaultCachePrefix = "utcpbridge"
	DefaultCacheTTL    = 10 * time.Minute
	DefaultHTTPTimeout = 30 * time.Second
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config of the bridge
type Config struct {
	// EnvFiles are loaded into the process environment before the config is expanded.
	// Relative paths are resolved against the config folder.
	EnvFiles []string `json:"env_files,omitempty" yaml:"env_files,omitempty"`
	// Variables are used to substitute ${VAR} references in the manuals,
	// before falling back to the environment.
	Variables map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"`
	// Manuals specifies the list of manuals to load
	Manuals    []*ManualConfig  `json:"manuals" yaml:"manuals" validate:"dive"`
	Cache      CacheConfig      `json:"cache" yaml:"cache"`
	HTTP       HTTPConfig       `json:"http" yaml:"http"`
	Bridge     BridgeConfig     `json:"bridge" yaml:"bridge"`
	LocalTools LocalToolsConfig `json:"local_tools" yaml:"local_tools"`
}

// ManualConfig specifies where to discover a manual
type ManualConfig struct {
	Name string `json:"name" yaml:"name" validate:"required,excludes=."`
	// Type is http or file
	Type       string            `json:"type" yaml:"type" validate:"required,oneof=http file"`
	URL        string            `json:"url,omitempty" yaml:"url,omitempty" validate:"required_if=Type http"`
	HTTPMethod string            `json:"http_method,omitempty" yaml:"http_method,omitempty"`
	Headers    map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Auth       *catalog.Auth     `json:"auth,omitempty" yaml:"auth,omitempty"`
	File       string            `json:"file,omitempty" yaml:"file,omitempty" validate:"required_if=Type file"`
	// CallTemplate is used for the tools that do not specify their own
	CallTemplate *catalog.CallTemplate `json:"call_template,omitempty" yaml:"call_template,omitempty"`
}

// CacheConfig specifies the manual cache
type CacheConfig struct {
	// Provider is none, memory or redis
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty" validate:"omitempty,oneof=none memory redis"`
	RedisURL string `json:"redis_url,omitempty" yaml:"redis_url,omitempty" validate:"required_if=Provider redis"`
	Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	// TTL is a duration string, such as 10m
	TTL string `json:"ttl,omitempty" yaml:"ttl,omitempty"`
}

// HTTPConfig specifies the HTTP client
type HTTPConfig struct {
	// Timeout is a duration string, such as 30s
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// BridgeConfig specifies the bridged tools
type BridgeConfig struct {
	NamePrefix string `json:"name_prefix,omitempty" yaml:"name_prefix,omitempty"`
}

// LocalToolsConfig enables the in-process tools
type LocalToolsConfig struct {
	WebSearch bool `json:"web_search,omitempty" yaml:"web_search,omitempty"`
}

// Validate returns error if the config is invalid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	seen := map[string]bool{}
	for _, m := range c.Manuals {
		if seen[m.Name] {
			return errors.Errorf("invalid configuration: duplicate manual name: %s", m.Name)
		}
		seen[m.Name] = true
	}

	if _, err := parseDuration(c.Cache.TTL, DefaultCacheTTL); err != nil {
		return errors.WithMessage(err, "invalid configuration: cache.ttl")
	}
	if _, err := parseDuration(c.HTTP.Timeout, DefaultHTTPTimeout); err != nil {
		return errors.WithMessage(err, "invalid configuration: http.timeout")
	}
	return nil
}

// LoadConfig from file
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}

	envFiles, err := readEnvFiles(file)
	if err != nil {
		return nil, err
	}
	if len(envFiles) > 0 {
		if err = godotenv.Load(envFiles...); err != nil {
			return nil, errors.Wrapf(err, "failed to load env files")
		}
	}

	err = configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// readEnvFiles returns env_files before the rest of the config is expanded,
// so the loaded values are visible to the expansion.
func readEnvFiles(file string) ([]string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config")
	}

	var probe struct {
		EnvFiles []string `yaml:"env_files"`
	}
	// JSON is valid YAML
	if err = yaml.Unmarshal(data, &probe); err != nil {
		return nil, errors.Wrapf(err, "failed to decode config")
	}

	dir := filepath.Dir(file)
	files := make([]string, 0, len(probe.EnvFiles))
	for _, f := range probe.EnvFiles {
		if !filepath.IsAbs(f) {
			f = filepath.Join(dir, f)
		}
		files = append(files, f)
	}
	return files, nil
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid duration %q", s)
	}
	return d, nil
}
