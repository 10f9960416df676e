package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/liamcoop/typetour/posts"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "typetour.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTS_URL", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg != Default() {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
	if cfg.Posts.URL != posts.DefaultURL {
		t.Errorf("Expected default posts URL, got %q", cfg.Posts.URL)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTS_URL", "")
	t.Setenv("LOG_LEVEL", "")

	path := writeConfig(t, `
server:
  port: "9090"
database:
  url: postgres://localhost/typetour
posts:
  url: http://localhost:3000/posts
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("Expected port 9090, got %q", cfg.Server.Port)
	}
	if cfg.Database.URL != "postgres://localhost/typetour" {
		t.Errorf("Unexpected database URL %q", cfg.Database.URL)
	}
	if cfg.Posts.URL != "http://localhost:3000/posts" {
		t.Errorf("Unexpected posts URL %q", cfg.Posts.URL)
	}
	if cfg.Log.Level != "INFO" {
		t.Errorf("Unset keys should keep defaults, got log level %q", cfg.Log.Level)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load() of empty file failed: %v", err)
	}
	if cfg.Server.Port == "" {
		t.Error("Expected defaults to survive an empty file")
	}
}

func TestLoadUnknownField(t *testing.T) {
	_, err := Load(writeConfig(t, "server:\n  prot: \"1\"\n"))
	if err == nil {
		t.Fatal("Expected error for unknown field")
	}
	if !strings.Contains(err.Error(), "prot") {
		t.Errorf("Expected error to name the field, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("POSTS_URL", "http://env/posts")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, "server:\n  port: \"9090\"\n"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	want := Config{
		Server:   ServerConfig{Port: "7070"},
		Database: DatabaseConfig{URL: "postgres://env/db"},
		Posts:    PostsConfig{URL: "http://env/posts"},
		Log:      LogConfig{Level: "debug"},
	}
	if cfg != want {
		t.Errorf("Load() = %+v, want %+v", cfg, want)
	}
}
