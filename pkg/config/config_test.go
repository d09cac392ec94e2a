package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.HTTPPort != 8080 {
		t.Fatalf("expected http port 8080, got %d", cfg.Server.HTTPPort)
	}
	if cfg.Capacity.Policy != "hard" {
		t.Fatalf("expected hard capacity policy, got %q", cfg.Capacity.Policy)
	}
	if cfg.Grid.DefaultCapacity != 10 {
		t.Fatalf("expected default capacity 10, got %d", cfg.Grid.DefaultCapacity)
	}
	if cfg.Outbox.PollInterval != 5*time.Second {
		t.Fatalf("expected 5s poll interval, got %s", cfg.Outbox.PollInterval)
	}
	if cfg.Redis.Enabled() {
		t.Fatalf("redis should be disabled without addresses")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SITEGRID_CAPACITY_POLICY", "advisory")
	t.Setenv("SITEGRID_DATABASE_DRIVER", "memory")
	t.Setenv("SITEGRID_GRID_MAX_CELLS", "64")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Capacity.Policy != "advisory" {
		t.Fatalf("expected advisory policy, got %q", cfg.Capacity.Policy)
	}
	if cfg.Database.Driver != "memory" {
		t.Fatalf("expected memory driver, got %q", cfg.Database.Driver)
	}
	if cfg.Grid.MaxCells != 64 {
		t.Fatalf("expected max cells 64, got %d", cfg.Grid.MaxCells)
	}
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "sitegrid", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=sitegrid sslmode=disable"
	if got := c.DSN(); got != want {
		t.Fatalf("dsn = %q, want %q", got, want)
	}
}
