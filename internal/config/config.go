// Package config provides configuration management for isle sites using
// Viper for flexible configuration loading from files, environment
// variables, and command-line flags.
//
// The configuration covers site metadata used in rendered pages and the
// feed, the source tree layout, the dev server address, supervisor timing,
// and the island registry.
package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/isle/internal/validation"
)

// Config is the complete, validated configuration of a site.
type Config struct {
	Site    SiteConfig        `mapstructure:"site"`
	Feed    FeedConfig        `mapstructure:"feed"`
	Paths   PathsConfig       `mapstructure:"paths"`
	Server  ServerConfig      `mapstructure:"server"`
	Dev     DevConfig         `mapstructure:"dev"`
	Islands map[string]string `mapstructure:"islands"`
}

type SiteConfig struct {
	Name        string `mapstructure:"name"`
	URL         string `mapstructure:"url"`
	Description string `mapstructure:"description"`
	Author      string `mapstructure:"author"`
	Email       string `mapstructure:"email"`
	BasePath    string `mapstructure:"base_path"`
}

type FeedConfig struct {
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
	Path        string `mapstructure:"path"`
}

// PathsConfig locates the source tree. Relative entries are resolved
// against Root by Resolve.
type PathsConfig struct {
	Root     string `mapstructure:"root"`
	Src      string `mapstructure:"src"`
	Posts    string `mapstructure:"posts"`
	Pages    string `mapstructure:"pages"`
	Layouts  string `mapstructure:"layouts"`
	Styles   string `mapstructure:"styles"`
	Public   string `mapstructure:"public"`
	Cache    string `mapstructure:"cache"`
	Output   string `mapstructure:"output"`
	Manifest string `mapstructure:"manifest"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DevConfig tunes the supervisor.
type DevConfig struct {
	Debounce        time.Duration `mapstructure:"debounce"`
	HealthAttempts  int           `mapstructure:"health_attempts"`
	HealthInterval  time.Duration `mapstructure:"health_interval"`
	RestartPatterns []string      `mapstructure:"restart_patterns"`
	Ignore          []string      `mapstructure:"ignore"`
}

var islandNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("site.name", "isle")
	v.SetDefault("site.url", "http://localhost:3100")
	v.SetDefault("site.description", "A static site built with isle")
	v.SetDefault("site.base_path", "")

	v.SetDefault("feed.path", "rss.xml")

	v.SetDefault("paths.root", ".")
	v.SetDefault("paths.src", "src")
	v.SetDefault("paths.posts", "src/posts")
	v.SetDefault("paths.pages", "src/pages")
	v.SetDefault("paths.layouts", "src/layouts")
	v.SetDefault("paths.styles", "src/styles")
	v.SetDefault("paths.public", "public")
	v.SetDefault("paths.cache", ".cache")
	v.SetDefault("paths.output", "dist")
	v.SetDefault("paths.manifest", "package.json")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 3100)

	v.SetDefault("dev.debounce", 150*time.Millisecond)
	v.SetDefault("dev.health_attempts", 50)
	v.SetDefault("dev.health_interval", 100*time.Millisecond)
	// the child is the same binary, so Go sources are not restart triggers
	v.SetDefault("dev.restart_patterns", []string{"isle.yml", "isle.yaml", "package.json", ".env"})
	v.SetDefault("dev.ignore", []string{".git", "node_modules", ".cache", "dist"})
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads, defaults and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	// Viper lowercases map keys; island names are lowercase by contract anyway.
	if cfg.Islands == nil {
		cfg.Islands = make(map[string]string)
	}
	if cfg.Feed.Title == "" {
		cfg.Feed.Title = cfg.Site.Name
	}
	if cfg.Feed.Description == "" {
		cfg.Feed.Description = cfg.Site.Description
	}
	cfg.Site.URL = strings.TrimSuffix(cfg.Site.URL, "/")
	cfg.Site.BasePath = normalizeBasePath(cfg.Site.BasePath)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg.Paths = cfg.Paths.Resolve()
	return &cfg, nil
}

// Resolve returns a copy with every relative path joined onto Root.
func (p PathsConfig) Resolve() PathsConfig {
	root := p.Root
	if root == "" {
		root = "."
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	join := func(s string) string {
		if s == "" || filepath.IsAbs(s) {
			return s
		}
		return filepath.Join(root, s)
	}
	return PathsConfig{
		Root:     root,
		Src:      join(p.Src),
		Posts:    join(p.Posts),
		Pages:    join(p.Pages),
		Layouts:  join(p.Layouts),
		Styles:   join(p.Styles),
		Public:   join(p.Public),
		Cache:    join(p.Cache),
		Output:   join(p.Output),
		Manifest: join(p.Manifest),
	}
}

// StyleModuleCache is the path of the persisted class-name mapping.
func (p PathsConfig) StyleModuleCache() string {
	return filepath.Join(p.Cache, "css-modules.json")
}

// Address is the host:port the dev server binds.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BaseURL is the loopback URL the supervisor uses to reach the dev server.
func (s ServerConfig) BaseURL() string {
	host := s.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, s.Port)
}

func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "/" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimSuffix(p, "/")
}

// validateConfig validates configuration values for correctness
func validateConfig(config *Config) error {
	if err := validation.ValidateSiteURL(config.Site.URL); err != nil {
		return fmt.Errorf("site url: %w", err)
	}
	if err := validation.ValidateBasePath(config.Site.BasePath); err != nil {
		return fmt.Errorf("site base_path: %w", err)
	}

	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validatePathsConfig(&config.Paths); err != nil {
		return fmt.Errorf("paths config: %w", err)
	}

	if err := validateDevConfig(&config.Dev); err != nil {
		return fmt.Errorf("dev config: %w", err)
	}

	for name, entry := range config.Islands {
		if !islandNamePattern.MatchString(name) {
			return fmt.Errorf("island name %q must match %s", name, islandNamePattern)
		}
		if strings.TrimSpace(entry) == "" {
			return fmt.Errorf("island %q has no source path", name)
		}
		if err := validatePath(strings.SplitN(entry, "#", 2)[0]); err != nil {
			return fmt.Errorf("island %q: %w", name, err)
		}
	}

	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Allow 0 for system-assigned ports in testing
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if config.Host != "" {
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return fmt.Errorf("host contains dangerous character: %s", char)
			}
		}
	}

	return nil
}

func validatePathsConfig(config *PathsConfig) error {
	if strings.TrimSpace(config.Output) == "" {
		return fmt.Errorf("output directory must not be empty")
	}
	if filepath.Clean(config.Output) == "." || filepath.Clean(config.Output) == "/" {
		return fmt.Errorf("refusing to use %q as output directory", config.Output)
	}
	for name, p := range map[string]string{
		"src":   config.Src,
		"cache": config.Cache,
	} {
		if p == "" {
			return fmt.Errorf("%s directory must not be empty", name)
		}
	}
	return nil
}

func validateDevConfig(config *DevConfig) error {
	if config.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative")
	}
	if config.HealthAttempts < 1 {
		return fmt.Errorf("health_attempts must be at least 1")
	}
	if config.HealthInterval <= 0 {
		return fmt.Errorf("health_interval must be positive")
	}
	return nil
}

// validatePath validates a source-relative path
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	if filepath.IsAbs(cleanPath) {
		return fmt.Errorf("path must be relative to the source directory: %s", path)
	}

	return nil
}
