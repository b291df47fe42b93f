// Package config holds synapse configuration: typed structs with
// defaults, optionally overridden from a YAML file.
package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lazypower/synapse/internal/graph"
)

// Config holds all synapse configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Graph       GraphConfig       `yaml:"graph"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Path          string `yaml:"path"`
	KeepSnapshots int    `yaml:"keep_snapshots"` // older snapshots are pruned
}

type GraphConfig struct {
	MaxNodes        int     `yaml:"max_nodes"`      // soft capacity; 0 = unlimited
	DecayCurve      string  `yaml:"decay_curve"`    // exponential, linear, power, logarithmic
	HalfLifeDays    float64 `yaml:"half_life_days"` // drives the decay rate
	ImportanceFloor float64 `yaml:"importance_floor"`
	EdgeFloor       float64 `yaml:"edge_floor"`
}

type MaintenanceConfig struct {
	IntervalMinutes int  `yaml:"interval_minutes"` // periodic sweep cadence while serving
	Aggressive      bool `yaml:"aggressive"`
	MaxOperations   int  `yaml:"max_operations"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37787,
		},
		Database: DatabaseConfig{
			Path:          "", // resolved at runtime via store.DefaultDBPath()
			KeepSnapshots: 10,
		},
		Graph: GraphConfig{
			MaxNodes:        10000,
			DecayCurve:      string(graph.CurveExponential),
			HalfLifeDays:    90,
			ImportanceFloor: 0.05,
			EdgeFloor:       0.02,
		},
		Maintenance: MaintenanceConfig{
			IntervalMinutes: 60,
			MaxOperations:   0,
		},
	}
}

// Load reads a YAML config file over the defaults. An empty path means no
// config file and returns the defaults; an explicitly supplied path that
// cannot be read is an error rather than silently falling back.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// MaintenanceInterval returns the periodic sweep cadence.
func (c *Config) MaintenanceInterval() time.Duration {
	if c.Maintenance.IntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.Maintenance.IntervalMinutes) * time.Minute
}

// DecayConfig maps the graph section onto a decay configuration.
func (c *Config) DecayConfig() graph.Decay {
	d := graph.DefaultDecay()
	if c.Graph.DecayCurve != "" {
		d.Curve = graph.Curve(c.Graph.DecayCurve)
	}
	if c.Graph.HalfLifeDays > 0 {
		d.Rate = math.Ln2 / c.Graph.HalfLifeDays
	}
	if c.Graph.ImportanceFloor > 0 {
		d.ImportanceFloor = c.Graph.ImportanceFloor
	}
	if c.Graph.EdgeFloor > 0 {
		d.EdgeFloor = c.Graph.EdgeFloor
	}
	return d
}

// GraphOptions maps the graph section onto graph options.
func (c *Config) GraphOptions() graph.Options {
	return graph.Options{MaxNodes: c.Graph.MaxNodes}
}
