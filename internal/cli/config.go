package cli

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "30s" or "5m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std converts back to a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the YAML server configuration.
type Config struct {
	// Addr is the HTTP listen address for serve.
	Addr string `yaml:"addr"`
	// Database is the SQLite file path.
	Database string `yaml:"database"`
	// UserID owns the served workbook.
	UserID string `yaml:"user_id"`

	// Autosave is the snapshot flush interval.
	Autosave Duration `yaml:"autosave"`

	// Actor is how the server's own session appears to collaborators.
	Actor ActorConfig `yaml:"actor"`

	// OutboxCapacity bounds queued offline edits per session.
	OutboxCapacity int `yaml:"outbox_capacity"`
	// Heartbeat is the presence heartbeat interval.
	Heartbeat Duration `yaml:"heartbeat"`
}

// ActorConfig names a collaborator on the wire.
type ActorConfig struct {
	Label string `yaml:"label"`
	Color string `yaml:"color"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Addr:     ":8080",
		Database: "gridsync.db",
		UserID:   "default",
		Autosave: Duration(5 * time.Second),
		Actor:    ActorConfig{Label: "server", Color: "#888888"},
	}
}

// LoadConfig reads a YAML config file, filling unset fields with
// defaults. An empty path returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Database == "" {
		cfg.Database = "gridsync.db"
	}
	if cfg.UserID == "" {
		cfg.UserID = "default"
	}
	if cfg.Autosave <= 0 {
		cfg.Autosave = Duration(5 * time.Second)
	}
	return cfg, nil
}
