package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/liamcoop/typetour/posts"
)

// Config holds the settings shared by the tour and the server
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Posts    PostsConfig    `yaml:"posts"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

// DatabaseConfig selects the portion rule store.
// An empty URL keeps rules in memory.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type PostsConfig struct {
	URL string `yaml:"url"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		Server: ServerConfig{Port: "8080"},
		Posts:  PostsConfig{URL: posts.DefaultURL},
		Log:    LogConfig{Level: "INFO"},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return cfg, fmt.Errorf("config: resolve %s: %w", path, err)
		}
		file, err := os.Open(abs)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		defer file.Close()

		if err := decode(file, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", abs, err)
		}
	}

	cfg.applyEnv(os.LookupEnv)
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	err := decoder.Decode(cfg)
	if err == io.EOF {
		return nil
	}
	return err
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	for name, dst := range map[string]*string{
		"PORT":         &c.Server.Port,
		"DATABASE_URL": &c.Database.URL,
		"POSTS_URL":    &c.Posts.URL,
		"LOG_LEVEL":    &c.Log.Level,
	} {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
}
