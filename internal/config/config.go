package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"mtfs/internal/hash"
	"mtfs/internal/tree"
)

type Config struct {
	ChunkSize  int64    `yaml:"chunk_size"`
	Algorithm  string   `yaml:"algorithm"`
	Exclude    []string `yaml:"exclude"`
	Workers    int      `yaml:"workers"`
	OutputFile string   `yaml:"output_file"`
}

func Default() *Config {
	return &Config{
		ChunkSize: tree.DefaultChunkSize,
		Algorithm: string(hash.Default),
		Workers:   runtime.NumCPU() * 2,
		Exclude: []string{
			".git/",
			".svn/",
			"node_modules/",
			"vendor/",
			"__pycache__/",
			"*.tmp",
			"*.swp",
			".DS_Store",
			"Thumbs.db",
		},
	}
}

// Load reads a YAML config from path, applying defaults for absent keys.
// A missing file is not an error; it yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects out-of-range chunk sizes and unknown algorithms before
// any of the values reach a tree.
func (c *Config) Validate() error {
	if c.ChunkSize < tree.MinChunkSize || c.ChunkSize > tree.MaxChunkSize {
		return fmt.Errorf("%w: chunk_size %d not in [%d, %d]",
			tree.ErrInvalidChunkSize, c.ChunkSize, tree.MinChunkSize, tree.MaxChunkSize)
	}
	if _, err := hash.New(hash.Algorithm(c.Algorithm)); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	return nil
}
