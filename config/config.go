package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

var (
	defaultConfig = Config{
		ListenAddr: ":8080",
		Cache:      defaultCache,
		Upstream:   defaultUpstream,
		Web:        defaultWeb,
	}

	defaultCache = Cache{
		FreshTTL:    Duration(24 * time.Hour),
		NegativeTTL: Duration(5 * time.Minute),
		MaxEntries:  5000,
	}

	defaultUpstream = Upstream{
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
			"(KHTML, like Gecko) Chrome/124.0 Safari/537.36",
		Timeout: Duration(10 * time.Second),
		Retries: 3,
	}

	defaultWeb = Web{
		StaticDir: "static",
	}
)

// Config describes the whole service configuration: where to listen, how
// long lookups stay cached and how the upstream provider is reached.
type Config struct {
	// TCP address to listen to for http
	// Default is `:8080`
	ListenAddr string `yaml:"listen_addr,omitempty"`

	// Whether to print debug logs
	LogDebug bool `yaml:"log_debug,omitempty"`

	Cache Cache `yaml:"cache,omitempty"`

	Upstream Upstream `yaml:"upstream"`

	Web Web `yaml:"web,omitempty"`

	// Catches all undefined fields
	XXX map[string]interface{} `yaml:",inline"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	*c = defaultConfig

	// set c to the defaults and then overwrite it with the input.
	type plain Config
	if err := unmarshal((*plain)(c)); err != nil {
		return err
	}

	if len(c.Upstream.URL) == 0 {
		return fmt.Errorf("section `upstream` must be set")
	}

	return checkOverflow(c.XXX, "config")
}

// Cache configures the in-memory vehicle record store.
type Cache struct {
	// How long a successfully fetched record stays served from memory
	FreshTTL Duration `yaml:"fresh_ttl,omitempty"`

	// How long an upstream "not found" is remembered. Must not exceed
	// `fresh_ttl` so provider hiccups heal faster than data goes stale
	NegativeTTL Duration `yaml:"negative_ttl,omitempty"`

	// Maximum number of cached entries; the oldest entry is displaced
	// when the bound would be exceeded. Zero disables the bound
	MaxEntries int `yaml:"max_entries,omitempty"`

	// Catches all undefined fields
	XXX map[string]interface{} `yaml:",inline"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (c *Cache) UnmarshalYAML(unmarshal func(interface{}) error) error {
	*c = defaultCache

	type plain Cache
	if err := unmarshal((*plain)(c)); err != nil {
		return err
	}

	if c.FreshTTL <= 0 {
		return fmt.Errorf("field `cache.fresh_ttl` must be positive")
	}
	if c.NegativeTTL <= 0 {
		return fmt.Errorf("field `cache.negative_ttl` must be positive")
	}
	if c.NegativeTTL > c.FreshTTL {
		return fmt.Errorf("field `cache.negative_ttl` must not exceed `cache.fresh_ttl`. Got %s > %s",
			c.NegativeTTL, c.FreshTTL)
	}
	if c.MaxEntries < 0 {
		return fmt.Errorf("field `cache.max_entries` must not be negative")
	}

	return checkOverflow(c.XXX, "cache")
}

// Upstream configures the remote vehicle-data provider.
type Upstream struct {
	// Provider page URL with a `{vrm}` placeholder for the looked-up mark
	URL string `yaml:"url"`

	// User-Agent header sent with provider requests
	UserAgent string `yaml:"user_agent,omitempty"`

	// Upper bound for a single fetch, timeouts count as transient failures
	Timeout Duration `yaml:"timeout,omitempty"`

	// Attempts per fetch on transport errors
	Retries int `yaml:"retries,omitempty"`

	// Outbound requests per second towards the provider
	// if omitted or zero - no limits would be applied
	MaxRPS float64 `yaml:"max_rps,omitempty"`

	// Catches all undefined fields
	XXX map[string]interface{} `yaml:",inline"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (u *Upstream) UnmarshalYAML(unmarshal func(interface{}) error) error {
	*u = defaultUpstream

	type plain Upstream
	if err := unmarshal((*plain)(u)); err != nil {
		return err
	}

	if len(u.URL) == 0 {
		return fmt.Errorf("field `upstream.url` cannot be empty")
	}
	if !strings.Contains(u.URL, "{vrm}") {
		return fmt.Errorf("field `upstream.url` must contain the `{vrm}` placeholder. Got %q", u.URL)
	}
	if u.Timeout <= 0 {
		return fmt.Errorf("field `upstream.timeout` must be positive")
	}
	if u.Retries < 1 {
		return fmt.Errorf("field `upstream.retries` must be at least 1")
	}
	if u.MaxRPS < 0 {
		return fmt.Errorf("field `upstream.max_rps` must not be negative")
	}

	return checkOverflow(u.XXX, "upstream")
}

// Web configures the static form collaborator.
type Web struct {
	// Directory with index.html and friends; a built-in page is served
	// when the directory or file is missing
	StaticDir string `yaml:"static_dir,omitempty"`

	// Catches all undefined fields
	XXX map[string]interface{} `yaml:",inline"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (w *Web) UnmarshalYAML(unmarshal func(interface{}) error) error {
	*w = defaultWeb

	type plain Web
	if err := unmarshal((*plain)(w)); err != nil {
		return err
	}

	return checkOverflow(w.XXX, "web")
}

// LoadFile loads and validates configuration from provided .yml file
func LoadFile(filename string) (*Config, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func checkOverflow(m map[string]interface{}, ctx string) error {
	if len(m) > 0 {
		var keys []string
		for k := range m {
			keys = append(keys, k)
		}
		return fmt.Errorf("unknown fields in %s: %s", ctx, strings.Join(keys, ", "))
	}
	return nil
}
