package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// config holds optional defaults read from sindex.toml in the working
// directory. Flags and environment variables win over it.
type config struct {
	Database         string `toml:"database"`
	Basedir          string `toml:"basedir"`
	IncludeLocalSyms bool   `toml:"include_local_syms"`
	Format           string `toml:"format"`
}

const configFile = "sindex.toml"

// loadConfig reads sindex.toml when present; a missing file is not an error.
func loadConfig() (*config, error) {
	cfg := &config{}
	data, err := os.ReadFile(configFile)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", configFile, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configFile, err)
	}
	return cfg, nil
}

// projectRoot resolves the base directory indexed paths are made relative
// to: the SINDEX_BASEDIR environment variable, then the config file. Empty
// means the indexer defaults to the current directory.
func projectRoot(cfg *config) string {
	if env := os.Getenv("SINDEX_BASEDIR"); env != "" {
		return env
	}
	return cfg.Basedir
}
