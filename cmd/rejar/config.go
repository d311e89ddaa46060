package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config mirrors the remap flags for file-driven runs. Flags set on the
// command line take precedence over file values.
type Config struct {
	Input            string   `toml:"input"`
	Output           string   `toml:"output"`
	Mappings         string   `toml:"mappings"`
	From             string   `toml:"from"`
	To               string   `toml:"to"`
	Classpath        []string `toml:"classpath"`
	RenameSynthetics bool     `toml:"rename_synthetics"`
}

func readConfig(path string) (*Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("read config %s: unknown key %q", path, undecoded[0].String())
	}
	return &cfg, nil
}
