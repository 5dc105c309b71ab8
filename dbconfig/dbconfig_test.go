package dbconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nrgarcia/machdb/buffer"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.MaxPages != 64 || cfg.Policy != "lru" || cfg.IndexOrder != 3 {
		t.Fatalf("got %#v", cfg)
	}
	if cfg.LRFUDecay != buffer.DefaultLRFUDecay {
		t.Errorf("LRFUDecay = %v, want %v", cfg.LRFUDecay, buffer.DefaultLRFUDecay)
	}
	if cfg.BufferPolicy() != buffer.LRU {
		t.Errorf("BufferPolicy() = %v, want LRU", cfg.BufferPolicy())
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("missing file should yield Default(), got %#v", cfg)
	}
}

func TestLoadPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.yaml")
	if err := os.WriteFile(path, []byte("max_pages: 128\npolicy: lrfu\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxPages != 128 {
		t.Errorf("MaxPages = %d, want 128", cfg.MaxPages)
	}
	if cfg.BufferPolicy() != buffer.LRFU {
		t.Errorf("BufferPolicy() = %v, want LRFU", cfg.BufferPolicy())
	}
	// Fields the file omits keep their default.
	if cfg.IndexOrder != 3 {
		t.Errorf("IndexOrder = %d, want default 3", cfg.IndexOrder)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("max_pages: [not an int\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}

func TestBufferPolicyUnrecognized(t *testing.T) {
	cfg := Config{Policy: "bogus"}
	if cfg.BufferPolicy() != buffer.LRU {
		t.Errorf("unrecognized policy should default to LRU, got %v", cfg.BufferPolicy())
	}
}
