package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lazypower/synapse/internal/graph"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Port != 37787 {
		t.Errorf("port = %d, want 37787", cfg.Server.Port)
	}
	if cfg.Graph.MaxNodes != 10000 {
		t.Errorf("max nodes = %d, want 10000", cfg.Graph.MaxNodes)
	}
	if cfg.Graph.HalfLifeDays != 90 {
		t.Errorf("half life = %v, want 90", cfg.Graph.HalfLifeDays)
	}
	if cfg.ListenAddr() != "127.0.0.1:37787" {
		t.Errorf("listen addr = %s", cfg.ListenAddr())
	}
	if cfg.MaintenanceInterval() != time.Hour {
		t.Errorf("interval = %v, want 1h", cfg.MaintenanceInterval())
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != Default().Server.Port {
		t.Error("empty path should yield defaults")
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("explicit path to a missing file should error, not fall back to defaults")
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synapse.yaml")
	content := `
server:
  bind: 0.0.0.0
  port: 9000
graph:
  max_nodes: 200
  decay_curve: power
  half_life_days: 30
maintenance:
  interval_minutes: 15
  aggressive: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr() != "0.0.0.0:9000" {
		t.Errorf("listen addr = %s", cfg.ListenAddr())
	}
	if cfg.Graph.MaxNodes != 200 {
		t.Errorf("max nodes = %d, want 200", cfg.Graph.MaxNodes)
	}
	if cfg.MaintenanceInterval() != 15*time.Minute {
		t.Errorf("interval = %v, want 15m", cfg.MaintenanceInterval())
	}
	if !cfg.Maintenance.Aggressive {
		t.Error("aggressive not parsed")
	}

	// Unset sections keep defaults.
	if cfg.Database.KeepSnapshots != 10 {
		t.Errorf("keep snapshots = %d, want default 10", cfg.Database.KeepSnapshots)
	}

	d := cfg.DecayConfig()
	if d.Curve != graph.CurvePower {
		t.Errorf("curve = %s, want power", d.Curve)
	}
	if want := math.Ln2 / 30; d.Rate != want {
		t.Errorf("rate = %v, want %v", d.Rate, want)
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("malformed yaml should error")
	}
}
