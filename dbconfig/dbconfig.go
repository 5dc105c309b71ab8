// Package dbconfig loads machdb's tuning knobs from an optional YAML
// file: buffer cache size and eviction policy, LRFU decay, and B+ tree
// branching factor. Absent a file, Default returns the documented
// defaults.
package dbconfig

import (
	"os"

	"gopkg.in/yaml.v2"

	"github.com/nrgarcia/machdb/buffer"
	"github.com/nrgarcia/machdb/dberr"
)

// Config holds every engine knob a deployment may want to override.
type Config struct {
	MaxPages   int     `yaml:"max_pages"`
	Policy     string  `yaml:"policy"` // "lru" | "fifo" | "lrfu"
	LRFUDecay  float64 `yaml:"lrfu_decay"`
	IndexOrder int     `yaml:"index_order"`
}

// Default returns the engine's built-in knobs: a 64-page buffer cache
// under LRU, matching cache_manager.py's 0.5 LRFU decay and a B+ tree
// order of 3.
func Default() Config {
	return Config{
		MaxPages:   64,
		Policy:     "lru",
		LRFUDecay:  buffer.DefaultLRFUDecay,
		IndexOrder: 3,
	}
}

// Load reads a YAML config file at path, filling in Default() for any
// field the file omits. A missing file is not an error: Load returns
// Default() unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, dberr.New(dberr.StorageError, "read config %q: %v", path, err)
	}
	// Unmarshal over the defaults so a partial file only overrides the
	// knobs it actually names.
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, dberr.New(dberr.StorageError, "parse config %q: %v", path, err)
	}
	return cfg, nil
}

// BufferPolicy maps the config's textual policy name to buffer.Policy,
// defaulting to buffer.LRU for an unrecognized or empty value.
func (c Config) BufferPolicy() buffer.Policy {
	switch c.Policy {
	case "fifo":
		return buffer.FIFO
	case "lrfu":
		return buffer.LRFU
	default:
		return buffer.LRU
	}
}
