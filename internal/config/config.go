// Package config provides configuration management for go-pugblog.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
)

var AppVersion = "-unset-" // will be set at build time

const (
	DefaultListenPort = 11980
	DefaultBasePath   = "/posts"
)

// Store drivers
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
)

// MainConfig holds the main configuration for go-pugblog
type MainConfig struct {
	Web     WebConfig     `mapstructure:"web"`
	Store   StoreConfig   `mapstructure:"store"`
	Log     LogConfig     `mapstructure:"log"`
	Profile ProfileConfig `mapstructure:"profile"`

	AppVersion string `mapstructure:"-"`
}

// WebConfig holds web interface configuration
type WebConfig struct {
	ListenPort      int           `mapstructure:"listen_port"`
	SSL             bool          `mapstructure:"ssl"`
	CertFile        string        `mapstructure:"cert_file"`
	KeyFile         string        `mapstructure:"key_file"`
	BasePath        string        `mapstructure:"base_path"`
	TemplateDir     string        `mapstructure:"template_dir"`    // empty: use embedded templates
	WatchTemplates  bool          `mapstructure:"watch_templates"` // reload template_dir on change
	Minify          bool          `mapstructure:"minify"`
	LegacyRoutes    bool          `mapstructure:"legacy_routes"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	TrustedProxies  []string      `mapstructure:"trusted_proxies"`

	// Write protection, disabled when either is empty
	AdminUser         string `mapstructure:"admin_user"`
	AdminPasswordHash string `mapstructure:"admin_password_hash"`
}

// StoreConfig selects and configures the post store
type StoreConfig struct {
	Driver  string        `mapstructure:"driver"`
	Timeout time.Duration `mapstructure:"timeout"`

	SQLitePath string `mapstructure:"sqlite_path"`

	MongoURI        string `mapstructure:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection"`

	PostgresDSN      string `mapstructure:"postgres_dsn"`
	PostgresMaxConns int32  `mapstructure:"postgres_max_conns"`
}

// LogConfig holds zerolog settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// ProfileConfig enables the pprof web endpoint
type ProfileConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Addr           string        `mapstructure:"addr"`
	MemProfileEach time.Duration `mapstructure:"mem_profile_each"`
	MemProfileFor  time.Duration `mapstructure:"mem_profile_for"`
}

// NewDefaultConfig returns a configuration with sensible defaults
func NewDefaultConfig() *MainConfig {
	return &MainConfig{
		AppVersion: AppVersion,
		Web: WebConfig{
			ListenPort:      DefaultListenPort,
			BasePath:        DefaultBasePath,
			LegacyRoutes:    true,
			MaxBodyBytes:    1 << 20,
			ShutdownTimeout: 30 * time.Second,
			TrustedProxies:  []string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"},
		},
		Store: StoreConfig{
			Driver:           StoreMemory,
			Timeout:          10 * time.Second,
			SQLitePath:       "./data/pugblog.sq3",
			MongoURI:         "mongodb://localhost:27017",
			MongoDatabase:    "pugblog",
			MongoCollection:  "posts",
			PostgresMaxConns: 10,
		},
		Log: LogConfig{
			Level: "info",
		},
		Profile: ProfileConfig{
			Addr:           "127.0.0.1:51111",
			MemProfileEach: 5 * time.Minute,
			MemProfileFor:  30 * time.Second,
		},
	}
}

// Load overlays the TOML file at path onto the defaults.
// A missing file is not an error when allowMissing is set.
func Load(path string, allowMissing bool) (*MainConfig, error) {
	cfg := NewDefaultConfig()
	if path == "" {
		return cfg, nil
	}

	m := map[string]interface{}{}
	if _, err := toml.DecodeFile(path, &m); err != nil {
		if allowMissing && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to decode configuration file %s: %w", path, err)
	}

	sections := []struct {
		name string
		dst  interface{}
	}{
		{"web", &cfg.Web},
		{"store", &cfg.Store},
		{"log", &cfg.Log},
		{"profile", &cfg.Profile},
	}
	known := make(map[string]bool, len(sections))
	for _, s := range sections {
		known[s.name] = true
		if err := decodeSection(m[s.name], s.dst); err != nil {
			return nil, fmt.Errorf("failed to decode %s configuration items: %w", s.name, err)
		}
	}

	var unknown []string
	for key := range m {
		if !known[key] {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown configuration keys in %s: %s", path, strings.Join(unknown, ", "))
	}

	return cfg, nil
}

// decodeSection decodes one table onto dst. Keys missing from the table
// keep their defaults, lists given in the table replace the default list
// and keys dst does not know are an error.
func decodeSection(input, dst interface{}) error {
	if input == nil {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
		ZeroFields:  true,
		ErrorUnused: true,
		Result:      dst,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// Validate checks the configuration for values the server cannot run with
func (c *MainConfig) Validate() error {
	if c.Web.ListenPort < 1024 || c.Web.ListenPort > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 1024 and 65535)", c.Web.ListenPort)
	}
	if c.Web.SSL && (c.Web.CertFile == "" || c.Web.KeyFile == "") {
		return errors.New("SSL enabled but cert_file or key_file not specified in config")
	}
	if err := ValidateBasePath(c.Web.BasePath); err != nil {
		return err
	}
	switch c.Store.Driver {
	case StoreMemory, StoreSQLite, StoreMongo, StorePostgres:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Web.WatchTemplates && c.Web.TemplateDir == "" {
		return errors.New("watch_templates requires template_dir")
	}
	return nil
}

// ValidateBasePath accepts "" or a path starting with "/" and not ending with "/".
func ValidateBasePath(p string) error {
	if p == "" {
		return nil
	}
	if !strings.HasPrefix(p, "/") || strings.HasSuffix(p, "/") {
		return fmt.Errorf("invalid base path %q (must start with / and not end with /)", p)
	}
	if strings.ContainsAny(p, ":*") {
		return fmt.Errorf("invalid base path %q (must not contain route wildcards)", p)
	}
	return nil
}

// WriteProtected reports whether the write routes require authentication
func (w *WebConfig) WriteProtected() bool {
	return w.AdminUser != "" && w.AdminPasswordHash != ""
}
