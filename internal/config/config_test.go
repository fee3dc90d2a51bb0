package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agent.MaxTurns != 10 || cfg.Agent.TopK != 3 {
		t.Fatalf("unexpected agent defaults: %+v", cfg.Agent)
	}
	if cfg.LLM.Model != "gpt-4" {
		t.Fatalf("model = %q", cfg.LLM.Model)
	}
	if cfg.Index.PersistDir != "./storage/internal_db" || cfg.Index.CorpusDir != "./internal_docs" {
		t.Fatalf("unexpected index defaults: %+v", cfg.Index)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("agent:\n  max_turns: 4\nembedder:\n  type: openai\nvector_store:\n  type: qdrant\n  qdrant:\n    host: localhost\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agent.MaxTurns != 4 {
		t.Fatalf("max_turns = %d", cfg.Agent.MaxTurns)
	}
	if cfg.Agent.TopK != 3 {
		t.Fatalf("top_k should keep its default, got %d", cfg.Agent.TopK)
	}
	if cfg.Embedder.OpenAI == nil || cfg.Embedder.OpenAI.Model != "text-embedding-3-small" {
		t.Fatalf("openai embedder defaults not applied: %+v", cfg.Embedder.OpenAI)
	}
	if cfg.VectorStore.Qdrant.Port != 6334 {
		t.Fatalf("qdrant port = %d", cfg.VectorStore.Qdrant.Port)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Agent.MaxTurns = 0
	cfg.Index.Format = "xml"
	err := cfg.Validate()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Server.Addr = ":9999"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Server.Addr != ":9999" {
		t.Fatalf("addr = %q", loaded.Server.Addr)
	}
}

func TestLoadEnvIgnoresMissingFile(t *testing.T) {
	if err := LoadEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
}

func TestLoadEnvReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("PATENTRAG_TEST_DOTENV=loaded\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATENTRAG_TEST_DOTENV", "")
	os.Unsetenv("PATENTRAG_TEST_DOTENV")
	if err := LoadEnv(path); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if got := os.Getenv("PATENTRAG_TEST_DOTENV"); got != "loaded" {
		t.Fatalf("env = %q", got)
	}
}

func TestLoadDefaultSearchOrder(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, path, err := LoadDefault()
	if err != nil || path != "" || cfg.Agent.MaxTurns != 10 {
		t.Fatalf("no file: cfg=%+v path=%q err=%v", cfg.Agent, path, err)
	}
	if err := os.WriteFile("config.yaml", []byte("agent:\n  max_turns: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, path, err = LoadDefault()
	if err != nil || path != "config.yaml" || cfg.Agent.MaxTurns != 7 {
		t.Fatalf("cwd file: cfg=%+v path=%q err=%v", cfg.Agent, path, err)
	}
}
