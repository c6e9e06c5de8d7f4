package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	errs "github.com/ksyq12/sitectl/internal/errors"
	"github.com/ksyq12/sitectl/internal/paths"
	"github.com/ksyq12/sitectl/internal/platform"
)

// configDir is the default config directory
const configDir = ".config/sitectl"
const configFile = "config.yaml"

// Config represents the application configuration
type Config struct {
	DataDir               string        `yaml:"data_dir" validate:"required"`
	Paths                 Paths         `yaml:"paths"`
	Templates             Templates     `yaml:"templates"`
	WebUser               string        `yaml:"web_user" validate:"required"`
	WebGroup              string        `yaml:"web_group" validate:"required"`
	Binaries              Binaries      `yaml:"binaries"`
	RuntimeVersions       []string      `yaml:"runtime_versions" validate:"dive,required"`
	Simulate              bool          `yaml:"simulate"`
	CommandTimeout        time.Duration `yaml:"command_timeout" validate:"gt=0"`
	MaxConcurrentCommands int           `yaml:"max_concurrent_commands" validate:"min=1,max=64"`
	Registry              Registry      `yaml:"registry"`
	LockDir               string        `yaml:"lock_dir"`
	MetricsTextfile       string        `yaml:"metrics_textfile"`
	LogLevel              string        `yaml:"log_level" validate:"oneof=debug info warn warning error"`
}

// Paths are the base directories of site artifacts.
type Paths struct {
	Webroot        string `yaml:"webroot" validate:"required"`
	ProxyAvailable string `yaml:"proxy_available" validate:"required"`
	ProxyEnabled   string `yaml:"proxy_enabled" validate:"required,nefield=ProxyAvailable"`
	PoolBase       string `yaml:"pool_base" validate:"required"`
	SocketBase     string `yaml:"socket_base" validate:"required"`
	LogBase        string `yaml:"log_base" validate:"required"`
}

// Templates are optional template file overrides; empty means embedded.
type Templates struct {
	Proxy string `yaml:"proxy"`
	Pool  string `yaml:"pool"`
	Index string `yaml:"index"`
}

// Binaries name the external programs sitectl runs.
type Binaries struct {
	Proxy           string `yaml:"proxy" validate:"required"`
	ServiceManager  string `yaml:"service_manager" validate:"required"`
	RuntimeTemplate string `yaml:"runtime_template" validate:"required,versioned"`
	ServiceTemplate string `yaml:"service_template" validate:"required,versioned"`
}

// Registry selects the site record store.
type Registry struct {
	Driver string `yaml:"driver" validate:"oneof=yaml sqlite memory"`
	Path   string `yaml:"path"`
}

// New creates a Config with default values for the current platform.
func New() *Config {
	p, err := platform.DetectPaths()
	if err != nil {
		p = platform.Fallback()
	}
	return newWithPlatform(p)
}

func newWithPlatform(p *platform.PlatformPaths) *Config {
	return &Config{
		DataDir: p.DataDir,
		Paths: Paths{
			ProxyAvailable: p.ProxyAvailable,
			ProxyEnabled:   p.ProxyEnabled,
			PoolBase:       p.PoolBase,
			SocketBase:     p.SocketBase,
		},
		WebUser:  "www-data",
		WebGroup: "www-data",
		Binaries: Binaries{
			Proxy:           "nginx",
			ServiceManager:  "systemctl",
			RuntimeTemplate: "php{version}",
			ServiceTemplate: "php{version}-fpm",
		},
		Simulate:              true,
		CommandTimeout:        30 * time.Second,
		MaxConcurrentCommands: 4,
		Registry:              Registry{Driver: "yaml"},
		LogLevel:              "warn",
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, configDir), nil
}

// ConfigPath returns the config file path
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads the config file at path (the default location when empty),
// applies environment overrides and validates the result. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	return load(path, New(), os.LookupEnv)
}

func load(path string, cfg *Config, lookup func(string) (string, bool)) (*Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeConfig, "failed to locate config", err)
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errs.Wrap(errs.ErrCodeConfig, fmt.Sprintf("failed to parse config %s", path), err)
		}
	case os.IsNotExist(err):
	default:
		return nil, errs.Wrap(errs.ErrCodeConfig, fmt.Sprintf("failed to read config %s", path), err)
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	cfg.fillDerived()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envString maps SITECTL_* variables onto string fields.
func (c *Config) envString() map[string]*string {
	return map[string]*string{
		"SITECTL_DATA_DIR":                 &c.DataDir,
		"SITECTL_WEBROOT":                  &c.Paths.Webroot,
		"SITECTL_NGINX_AVAILABLE":          &c.Paths.ProxyAvailable,
		"SITECTL_NGINX_ENABLED":            &c.Paths.ProxyEnabled,
		"SITECTL_PHP_FPM_BASE":             &c.Paths.PoolBase,
		"SITECTL_PHP_SOCKET_BASE":          &c.Paths.SocketBase,
		"SITECTL_LOG_BASE":                 &c.Paths.LogBase,
		"SITECTL_NGINX_TEMPLATE":           &c.Templates.Proxy,
		"SITECTL_PHP_FPM_TEMPLATE":         &c.Templates.Pool,
		"SITECTL_INDEX_TEMPLATE":           &c.Templates.Index,
		"SITECTL_WEB_USER":                 &c.WebUser,
		"SITECTL_WEB_GROUP":                &c.WebGroup,
		"SITECTL_NGINX_BIN":                &c.Binaries.Proxy,
		"SITECTL_SYSTEMCTL_BIN":            &c.Binaries.ServiceManager,
		"SITECTL_PHP_BIN_TEMPLATE":         &c.Binaries.RuntimeTemplate,
		"SITECTL_PHP_FPM_SERVICE_TEMPLATE": &c.Binaries.ServiceTemplate,
		"SITECTL_REGISTRY":                 &c.Registry.Driver,
		"SITECTL_REGISTRY_PATH":            &c.Registry.Path,
		"SITECTL_LOCK_DIR":                 &c.LockDir,
		"SITECTL_METRICS_TEXTFILE":         &c.MetricsTextfile,
		"SITECTL_LOG_LEVEL":                &c.LogLevel,
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for key, field := range c.envString() {
		if v, ok := lookup(key); ok && v != "" {
			*field = v
		}
	}

	if v, ok := lookup("SITECTL_PHP_VERSIONS"); ok && v != "" {
		c.RuntimeVersions = nil
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				c.RuntimeVersions = append(c.RuntimeVersions, part)
			}
		}
	}

	if v, ok := lookup("SITECTL_SIMULATE"); ok && v != "" {
		c.Simulate = parseBool(v)
	}

	if v, ok := lookup("SITECTL_COMMAND_TIMEOUT"); ok && v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return errs.Wrap(errs.ErrCodeConfig, "invalid SITECTL_COMMAND_TIMEOUT", err)
		}
		c.CommandTimeout = d
	}
	return nil
}

// fillDerived sets paths that default relative to DataDir.
func (c *Config) fillDerived() {
	if c.DataDir == "" {
		return
	}
	if c.Paths.Webroot == "" {
		c.Paths.Webroot = filepath.Join(c.DataDir, "var", "www")
	}
	if c.Paths.LogBase == "" {
		c.Paths.LogBase = filepath.Join(c.DataDir, "logs")
	}
	if c.LockDir == "" {
		c.LockDir = filepath.Join(c.DataDir, "locks")
	}
	if c.Registry.Path == "" {
		switch c.Registry.Driver {
		case "sqlite":
			c.Registry.Path = filepath.Join(c.DataDir, "sites.db")
		default:
			c.Registry.Path = filepath.Join(c.DataDir, "sites.yaml")
		}
	}
}

// BaseDirs returns the artifact base directories.
func (c *Config) BaseDirs() paths.BaseDirs {
	return paths.BaseDirs{
		Webroot:        c.Paths.Webroot,
		ProxyAvailable: c.Paths.ProxyAvailable,
		ProxyEnabled:   c.Paths.ProxyEnabled,
		PoolBase:       c.Paths.PoolBase,
		SocketBase:     c.Paths.SocketBase,
		LogBase:        c.Paths.LogBase,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("versioned", func(fl validator.FieldLevel) bool {
		return strings.Contains(fl.Field().String(), "{version}")
	})
	return v
}

// Validate checks the configuration and reports every invalid key.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errs.Wrap(errs.ErrCodeConfig, "invalid configuration", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return &errs.SiteError{
		Code:    errs.ErrCodeConfig,
		Message: "invalid configuration: " + strings.Join(msgs, "; "),
	}
}

func describe(fe validator.FieldError) string {
	key := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return key + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", key, fe.Param(), fe.Value())
	case "versioned":
		return key + " must contain {version}"
	case "nefield":
		return key + " must differ from proxy_available"
	default:
		return fmt.Sprintf("%s failed %s=%s (got %v)", key, fe.Tag(), fe.Param(), fe.Value())
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// parseTimeout accepts a Go duration ("45s") or whole seconds ("45").
func parseTimeout(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(strings.TrimSpace(v))
}
