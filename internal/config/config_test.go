package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  data_dir: "./datasets"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DataDir != filepath.Join(dir, "datasets") {
		t.Errorf("data_dir not expanded relative to config dir: %s", cfg.Storage.DataDir)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("debug: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
	if cfg.Embedding.Dimensions != 768 {
		t.Errorf("expected default dimensions 768, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Search.SimilarityK != 10 {
		t.Errorf("expected default similarity_k 10, got %d", cfg.Search.SimilarityK)
	}
	if cfg.Search.SliceSize != 50 {
		t.Errorf("expected default slice_size 50, got %d", cfg.Search.SliceSize)
	}
	if !cfg.Watch.EnabledOrDefault() {
		t.Error("watch should default to enabled")
	}
}

func TestLoad_missingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}
