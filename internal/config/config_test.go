package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(v *viper.Viper)
		expectError bool
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name:  "defaults",
			setup: func(v *viper.Viper) {},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "localhost", cfg.Server.Host)
				assert.Equal(t, 3100, cfg.Server.Port)
				assert.Equal(t, "rss.xml", cfg.Feed.Path)
				assert.Equal(t, 150*time.Millisecond, cfg.Dev.Debounce)
				assert.Equal(t, 50, cfg.Dev.HealthAttempts)
				assert.Equal(t, 100*time.Millisecond, cfg.Dev.HealthInterval)
				assert.Equal(t, []string{"isle.yml", "isle.yaml", "package.json", ".env"}, cfg.Dev.RestartPatterns)
				assert.Empty(t, cfg.Islands)
			},
		},
		{
			name: "feed falls back to site metadata",
			setup: func(v *viper.Viper) {
				v.Set("site.name", "Field Notes")
				v.Set("site.description", "Notes from the field")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "Field Notes", cfg.Feed.Title)
				assert.Equal(t, "Notes from the field", cfg.Feed.Description)
			},
		},
		{
			name: "base path and url are normalized",
			setup: func(v *viper.Viper) {
				v.Set("site.url", "https://example.com/")
				v.Set("site.base_path", "blog/")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "https://example.com", cfg.Site.URL)
				assert.Equal(t, "/blog", cfg.Site.BasePath)
			},
		},
		{
			name: "islands",
			setup: func(v *viper.Viper) {
				v.Set("islands", map[string]string{
					"counter": "components/Counter.tsx",
					"chart":   "components/Charts.tsx#LineChart",
				})
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Len(t, cfg.Islands, 2)
				assert.Equal(t, "components/Charts.tsx#LineChart", cfg.Islands["chart"])
			},
		},
		{
			name: "duration strings",
			setup: func(v *viper.Viper) {
				v.Set("dev.debounce", "300ms")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 300*time.Millisecond, cfg.Dev.Debounce)
			},
		},
		{
			name:        "invalid port type",
			setup:       func(v *viper.Viper) { v.Set("server.port", "invalid_port") },
			expectError: true,
		},
		{
			name:        "port out of range",
			setup:       func(v *viper.Viper) { v.Set("server.port", 70000) },
			expectError: true,
		},
		{
			name: "island path traversal",
			setup: func(v *viper.Viper) {
				v.Set("islands", map[string]string{"evil": "../outside.tsx"})
			},
			expectError: true,
		},
		{
			name:        "site url without scheme",
			setup:       func(v *viper.Viper) { v.Set("site.url", "example.com") },
			expectError: true,
		},
		{
			name:        "base path with relative segment",
			setup:       func(v *viper.Viper) { v.Set("site.base_path", "/a/../b") },
			expectError: true,
		},
		{
			name:        "zero health attempts",
			setup:       func(v *viper.Viper) { v.Set("dev.health_attempts", 0) },
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			tt.setup(v)

			cfg, err := LoadFrom(v)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			tt.check(t, cfg)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `
site:
  name: Example
  url: https://example.com
server:
  port: 4000
paths:
  root: ` + dir + `
islands:
  counter: components/Counter.tsx
`
	path := filepath.Join(dir, "isle.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "Example", cfg.Site.Name)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, "components/Counter.tsx", cfg.Islands["counter"])
	assert.Equal(t, filepath.Join(dir, "src", "posts"), cfg.Paths.Posts)
	assert.Equal(t, filepath.Join(dir, ".cache", "css-modules.json"), cfg.Paths.StyleModuleCache())
}

func TestLoadWithEnvironment(t *testing.T) {
	t.Setenv("ISLE_SERVER_PORT", "9999")
	t.Setenv("ISLE_SITE_NAME", "from-env")

	v := viper.New()
	v.SetEnvPrefix("ISLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Site.Name)
}

func TestPathsResolve(t *testing.T) {
	root := t.TempDir()
	abs := filepath.Join(root, "elsewhere")

	p := PathsConfig{Root: root, Src: "src", Output: abs, Public: ""}.Resolve()

	assert.Equal(t, filepath.Join(root, "src"), p.Src)
	assert.Equal(t, abs, p.Output)
	assert.Empty(t, p.Public)
}

func TestServerAddresses(t *testing.T) {
	assert.Equal(t, "0.0.0.0:3100", ServerConfig{Host: "0.0.0.0", Port: 3100}.Address())
	assert.Equal(t, "http://localhost:3100", ServerConfig{Host: "0.0.0.0", Port: 3100}.BaseURL())
	assert.Equal(t, "http://127.0.0.1:8080", ServerConfig{Host: "127.0.0.1", Port: 8080}.BaseURL())
}

func TestValidateServerConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  ServerConfig
		wantErr bool
	}{
		{"valid", ServerConfig{Host: "localhost", Port: 3100}, false},
		{"system assigned port", ServerConfig{Host: "localhost", Port: 0}, false},
		{"negative port", ServerConfig{Host: "localhost", Port: -1}, true},
		{"shell metacharacter", ServerConfig{Host: "localhost;rm -rf /", Port: 80}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateServerConfig(&tt.config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePathsConfig(t *testing.T) {
	base := PathsConfig{Src: "src", Cache: ".cache", Output: "dist"}
	assert.NoError(t, validatePathsConfig(&base))

	for _, out := range []string{"", ".", "/"} {
		p := base
		p.Output = out
		assert.Error(t, validatePathsConfig(&p), "output %q", out)
	}
}

func TestIslandNames(t *testing.T) {
	valid := []string{"counter", "line-chart", "nav_menu", "a1"}
	invalid := []string{"Counter", "1up", "has space", ""}

	for _, name := range valid {
		assert.True(t, islandNamePattern.MatchString(name), name)
	}
	for _, name := range invalid {
		assert.False(t, islandNamePattern.MatchString(name), name)
	}
}
