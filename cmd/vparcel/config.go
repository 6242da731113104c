package main

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/andreyvit/vparcel"
)

type fileConfig struct {
	Dump struct {
		MaxBytes int `toml:"max_bytes"`
		MaxDepth int `toml:"max_depth"`
	} `toml:"dump"`
}

type config struct {
	Dump vparcel.DumpOptions
}

func defaultConfig() config {
	return config{
		Dump: vparcel.DumpOptions{
			MaxBytes: 32,
			MaxDepth: vparcel.DefaultMaxDepth,
		},
	}
}

// loadConfig applies the keys defined in the TOML file at path on top of
// cfg.
func loadConfig(path string, cfg config) (config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return config{}, fmt.Errorf("load config: unknown key %s", undecoded[0])
	}

	if meta.IsDefined("dump", "max_bytes") {
		if raw.Dump.MaxBytes <= 0 {
			return config{}, fmt.Errorf("load config: dump.max_bytes must be positive, got %d", raw.Dump.MaxBytes)
		}
		cfg.Dump.MaxBytes = raw.Dump.MaxBytes
	}
	if meta.IsDefined("dump", "max_depth") {
		if raw.Dump.MaxDepth <= 0 {
			return config{}, fmt.Errorf("load config: dump.max_depth must be positive, got %d", raw.Dump.MaxDepth)
		}
		cfg.Dump.MaxDepth = raw.Dump.MaxDepth
	}
	return cfg, nil
}
