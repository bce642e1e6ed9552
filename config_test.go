package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"autopilot/pilot"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "autopilot.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadConfigOverlay(t *testing.T) {
	path := writeConfig(t, `
variant: wrap
seed: 99
arena:
  width: 800
  height: 600
spawn:
  pattern: edge
search:
  sim_count: 64
  workers: 4
auth:
  token_ttl: 30m
log:
  level: debug
  format: json
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Variant != "wrap" || cfg.Seed != 99 {
		t.Errorf("unexpected variant/seed %q/%d", cfg.Variant, cfg.Seed)
	}
	if cfg.Arena != (pilot.Arena{Width: 800, Height: 600}) {
		t.Errorf("unexpected arena %+v", cfg.Arena)
	}
	if cfg.Spawn.Pattern != SpawnEdge || cfg.Spawn.Every != 4 {
		t.Errorf("spawn overlay lost defaults: %+v", cfg.Spawn)
	}
	if cfg.Auth.TokenTTL != 30*time.Minute {
		t.Errorf("expected 30m ttl, got %s", cfg.Auth.TokenTTL)
	}
	if cfg.TickRate != 60 || cfg.Addr != ":8080" {
		t.Errorf("unset fields should keep defaults, got rate=%d addr=%q", cfg.TickRate, cfg.Addr)
	}

	v, err := cfg.PlannerVariant()
	if err != nil {
		t.Fatalf("PlannerVariant: %v", err)
	}
	if v.Name != "wrap" || v.Config.SimCount != 64 || v.Config.Workers != 4 {
		t.Errorf("unexpected planner variant %+v", v.Config)
	}
	if v.Config.Selection != pilot.SelectFirstAlive {
		t.Errorf("wrap should select first alive, got %v", v.Config.Selection)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv(EnvAddr, ":9999")
	t.Setenv(EnvPassphrase, "from-env")
	t.Setenv(EnvSeed, "1234")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.Auth.Passphrase != "from-env" || cfg.Seed != 1234 {
		t.Errorf("env overrides not applied: addr=%q pass=%q seed=%d", cfg.Addr, cfg.Auth.Passphrase, cfg.Seed)
	}
}

func TestLoadConfigBadSeed(t *testing.T) {
	t.Setenv(EnvSeed, "not-a-number")
	if _, err := LoadConfig(""); err == nil {
		t.Fatal("expected error for a bad seed")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for a missing config file")
	}
}

func TestLoadDotEnvMissingIsFine(t *testing.T) {
	if err := loadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	os.WriteFile(path, []byte(EnvJWTSecret+"=from-file-0123456789\n"+EnvAddr+"=:7000\n"), 0o644)
	t.Setenv(EnvAddr, ":6000")
	t.Setenv(EnvJWTSecret, "")
	os.Unsetenv(EnvJWTSecret)

	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}
	if got := os.Getenv(EnvAddr); got != ":6000" {
		t.Errorf("existing env var overridden: %q", got)
	}
	if got := os.Getenv(EnvJWTSecret); got != "from-file-0123456789" {
		t.Errorf("expected secret from .env, got %q", got)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"arena":     func(c *Config) { c.Arena.Width = 0 },
		"tick rate": func(c *Config) { c.TickRate = 0 },
		"broadcast": func(c *Config) { c.BroadcastEvery = 0 },
		"trails":    func(c *Config) { c.Trails = -1 },
		"spawn":     func(c *Config) { c.Spawn.Every = 0 },
		"pattern":   func(c *Config) { c.Spawn.Pattern = "ring" },
		"radius":    func(c *Config) { c.Spawn.Radius = 0 },
		"ttl":       func(c *Config) { c.Auth.TokenTTL = 0 },
		"variant":   func(c *Config) { c.Variant = "hexagonal" },
		"min > sim": func(c *Config) { c.Search.MinDuration = 30 },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestPlannerVariantRocksFollowControl(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Variant = "wrap"
	cfg.Search.RocksFollowControl = true
	v, err := cfg.PlannerVariant()
	if err != nil {
		t.Fatalf("PlannerVariant: %v", err)
	}
	if !v.Rules.RocksFollowControl {
		t.Error("expected rocks to follow control")
	}
	if v.Rules.Boundary != pilot.BoundaryWrap || v.Rules.Steering != pilot.SteerRelative {
		t.Errorf("unexpected rules %+v", v.Rules)
	}
}

func TestNewLoggerFormats(t *testing.T) {
	for _, format := range []string{"", "text", "json", "logfmt"} {
		if _, err := NewLogger(LogConfig{Level: "info", Format: format}, os.Stderr); err != nil {
			t.Errorf("format %q: %v", format, err)
		}
	}
	if _, err := NewLogger(LogConfig{Level: "info", Format: "xml"}, os.Stderr); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := NewLogger(LogConfig{Level: "loud"}, os.Stderr); err == nil {
		t.Error("expected error for unknown level")
	}
}
