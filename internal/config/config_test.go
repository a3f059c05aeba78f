package config

import (
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load(Overrides{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != "127.0.0.1:8000" {
		t.Errorf("addr = %q", cfg.Addr)
	}
	if cfg.Workers != 5 {
		t.Errorf("workers = %d", cfg.Workers)
	}
	if cfg.DatabasePath != "/tmp/downloads.db" {
		t.Errorf("database = %q", cfg.DatabasePath)
	}
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("DLMGR_ADDR", "0.0.0.0:9000")
	t.Setenv("DLMGR_WORKERS", "12")

	cfg, err := Load(Overrides{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != "0.0.0.0:9000" {
		t.Errorf("addr = %q, want env value", cfg.Addr)
	}
	if cfg.Workers != 12 {
		t.Errorf("workers = %d, want 12", cfg.Workers)
	}
}

func TestFlagBeatsEnv(t *testing.T) {
	t.Setenv("DLMGR_ADDR", "0.0.0.0:9000")

	cfg, err := Load(Overrides{Addr: "127.0.0.1:7777", AddrSet: true})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != "127.0.0.1:7777" {
		t.Errorf("addr = %q, want explicit flag value", cfg.Addr)
	}
}

func TestUnsetFlagDoesNotOverride(t *testing.T) {
	t.Setenv("DLMGR_DATABASE", "/var/lib/dl.db")

	cfg, err := Load(Overrides{DatabasePath: "/tmp/downloads.db", DatabasePathSet: false})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabasePath != "/var/lib/dl.db" {
		t.Errorf("database = %q, want env value when flag unset", cfg.DatabasePath)
	}
}

func TestTildeExpansion(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(Overrides{DownloadsDir: "~/Downloads", DownloadsDirSet: true})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DownloadsDir != filepath.Join(home, "Downloads") {
		t.Errorf("downloads = %q, want under %q", cfg.DownloadsDir, home)
	}

	cfg, err = Load(Overrides{DownloadsDir: "~", DownloadsDirSet: true})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DownloadsDir != home {
		t.Errorf("downloads = %q, want %q", cfg.DownloadsDir, home)
	}
}

func TestNonTildePathUntouched(t *testing.T) {
	cfg, err := Load(Overrides{DownloadsDir: "/srv/dl", DownloadsDirSet: true})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DownloadsDir != "/srv/dl" {
		t.Errorf("downloads = %q, want unchanged", cfg.DownloadsDir)
	}
}
