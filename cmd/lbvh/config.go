package main

import (
	"fmt"
	"math/rand"

	"github.com/BurntSushi/toml"
	"github.com/spindex/lbvh"
)

// Config is the TOML description of a dataset and how to build over it.
type Config struct {
	Dataset DatasetConfig `toml:"dataset"`
	Build   BuildConfig   `toml:"build"`
	Bench   BenchConfig   `toml:"bench"`
}

type DatasetConfig struct {
	Count   int     `toml:"count"`
	Dims    int     `toml:"dims"`
	Seed    int64   `toml:"seed"`
	Extent  float64 `toml:"extent"`
	MaxSize float64 `toml:"maxSize"`
}

type BuildConfig struct {
	Backend     string  `toml:"backend"`
	Workers     int     `toml:"workers"`
	Morton64    bool    `toml:"morton64"`
	ScaleFactor float64 `toml:"scaleFactor"`
}

type BenchConfig struct {
	Sizes        []int  `toml:"sizes"`
	QueryWorkers int    `toml:"queryWorkers"`
	Queries      int    `toml:"queries"`
	ChartPath    string `toml:"chartPath"`
}

func DefaultConfig() *Config {
	return &Config{
		Dataset: DatasetConfig{
			Count:   10000,
			Dims:    3,
			Seed:    1,
			Extent:  1000,
			MaxSize: 5,
		},
		Build: BuildConfig{
			Backend:     "threads",
			ScaleFactor: 1,
		},
		Bench: BenchConfig{
			Sizes:        []int{1000, 10000, 100000},
			QueryWorkers: 4,
			Queries:      10000,
		},
	}
}

// LoadConfig reads a TOML config, applying defaults for absent fields.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parsing %s: unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Dataset.Count <= 0 {
		return fmt.Errorf("dataset.count must be positive, got %d", c.Dataset.Count)
	}
	if c.Dataset.Dims != 2 && c.Dataset.Dims != 3 {
		return fmt.Errorf("dataset.dims must be 2 or 3, got %d", c.Dataset.Dims)
	}
	if c.Dataset.Extent <= 0 {
		return fmt.Errorf("dataset.extent must be positive, got %g", c.Dataset.Extent)
	}
	if _, err := backendFromName(c.Build.Backend, c.Build.Workers); err != nil {
		return err
	}
	return nil
}

func backendFromName(name string, workers int) (lbvh.Backend, error) {
	switch name {
	case "sequential":
		return lbvh.Sequential(), nil
	case "threads":
		return lbvh.Threads(workers), nil
	case "device":
		return lbvh.Device(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want sequential, threads or device)", name)
	}
}

// Generate produces the dataset's boxes. Deterministic for a given seed.
func (d DatasetConfig) Generate() []lbvh.Box[float64] {
	return d.generateN(d.Count)
}

func (d DatasetConfig) generateN(n int) []lbvh.Box[float64] {
	rng := rand.New(rand.NewSource(d.Seed))
	boxes := make([]lbvh.Box[float64], n)
	for i := range boxes {
		var c [3]float64
		for a := 0; a < d.Dims; a++ {
			c[a] = rng.Float64() * d.Extent
		}
		var b lbvh.Box[float64]
		for a := 0; a < d.Dims; a++ {
			half := rng.Float64() * d.MaxSize
			b.Min[a] = c[a] - half
			b.Max[a] = c[a] + half
		}
		boxes[i] = b
	}
	return boxes
}

func (c *Config) buildOptions() ([]lbvh.Option[float64], error) {
	be, err := backendFromName(c.Build.Backend, c.Build.Workers)
	if err != nil {
		return nil, err
	}
	opts := []lbvh.Option[float64]{
		lbvh.WithBackend[float64](be),
		lbvh.WithDims[float64](c.Dataset.Dims),
	}
	if c.Build.Morton64 {
		opts = append(opts, lbvh.WithMorton64[float64]())
	}
	if c.Build.ScaleFactor != 0 && c.Build.ScaleFactor != 1 {
		opts = append(opts, lbvh.WithScaleFactor(c.Build.ScaleFactor))
	}
	return opts, nil
}
