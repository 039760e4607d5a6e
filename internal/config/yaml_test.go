// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "spectral.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("")
	if err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config, got nil")
	}
	if cfg.Mode != "both" {
		t.Errorf("expected default mode both, got %q", cfg.Mode)
	}
	if cfg.Analyzer.ColorARGB != DefaultColorARGB {
		t.Errorf("expected default color %#x, got %#x", uint32(DefaultColorARGB), cfg.Analyzer.ColorARGB)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoadConfig_InvalidMode(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, "mode: broadcast\n")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "mode") {
		t.Error("expected mode validation error, got nil or wrong error")
	}
}

func TestLoadConfig_AcceptsAllModes(t *testing.T) {
	t.Parallel()
	for _, mode := range []string{"sender", "receiver", "both"} {
		path := writeTempConfig(t, "mode: "+mode+"\n")
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Errorf("mode %q rejected: %v", mode, err)
			continue
		}
		if cfg.Mode != mode {
			t.Errorf("expected mode %q, got %q", mode, cfg.Mode)
		}
	}
}

func TestLoadConfig_ClampsRangeAndTimeout(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, "analyzer:\n  range_db: 90\nregistry:\n  stale_timeout: 100ms\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if cfg.Analyzer.RangeDB != MaxRangeDB {
		t.Errorf("expected range_db clamped to %v, got %v", float64(MaxRangeDB), cfg.Analyzer.RangeDB)
	}
	if cfg.Registry.StaleTimeout != MinStaleTimeoutMs*time.Millisecond {
		t.Errorf("expected stale_timeout clamped to %v, got %v",
			MinStaleTimeoutMs*time.Millisecond, cfg.Registry.StaleTimeout)
	}
}

func TestClampBands(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in, want int
	}{
		{0, MinBands},
		{11, MinBands},
		{12, 12},
		{24, 24},
		{64, 64},
		{65, MaxBands},
		{1000, MaxBands},
	}
	for _, tc := range cases {
		if got := ClampBands(tc.in); got != tc.want {
			t.Errorf("ClampBands(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
