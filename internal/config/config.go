// Package config resolves the daemon's runtime settings: listen address,
// worker pool size, downloads directory, and database path. Values come
// from CLI flags when the caller explicitly set them, falling back to
// environment variables and finally to hardcoded defaults.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Config holds everything the daemon needs to start serving.
type Config struct {
	Addr         string `env:"DLMGR_ADDR"      envDefault:"127.0.0.1:8000"`
	Workers      int    `env:"DLMGR_WORKERS"   envDefault:"5"`
	DownloadsDir string `env:"DLMGR_DOWNLOADS" envDefault:"~/Downloads"`
	DatabasePath string `env:"DLMGR_DATABASE"  envDefault:"/tmp/downloads.db"`
}

// Overrides carries the CLI flag values and whether each was explicitly set
// by the caller, so Load can prefer an explicit flag over the environment.
type Overrides struct {
	Addr            string
	AddrSet         bool
	Workers         int
	WorkersSet      bool
	DownloadsDir    string
	DownloadsDirSet bool
	DatabasePath    string
	DatabasePathSet bool
}

// Load builds a Config starting from environment variables (or their
// defaults), then applies any explicitly-set CLI flag on top.
func Load(o Overrides) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse environment config")
	}
	if o.AddrSet {
		cfg.Addr = o.Addr
	}
	if o.WorkersSet {
		cfg.Workers = o.Workers
	}
	if o.DownloadsDirSet {
		cfg.DownloadsDir = o.DownloadsDir
	}
	if o.DatabasePathSet {
		cfg.DatabasePath = o.DatabasePath
	}

	expanded, err := expandTilde(cfg.DownloadsDir)
	if err != nil {
		return Config{}, err
	}
	cfg.DownloadsDir = expanded
	return cfg, nil
}

// expandTilde turns a leading "~" into the current user's home directory,
// the way the CLI's --downloads flag is documented to behave.
func expandTilde(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve home directory")
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}
