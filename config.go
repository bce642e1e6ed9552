package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"autopilot/pilot"
)

// Environment overrides, applied after the config file
const (
	EnvAddr       = "AUTOPILOT_ADDR"
	EnvPassphrase = "AUTOPILOT_PASSPHRASE"
	EnvJWTSecret  = "AUTOPILOT_JWT_SECRET"
	EnvSeed       = "AUTOPILOT_SEED"
)

// Config is the full server configuration
type Config struct {
	Addr      string      `yaml:"addr"`
	ClientDir string      `yaml:"client_dir"`
	PublicURL string      `yaml:"public_url"` // encoded by /qr, defaults to the request host
	Variant   string      `yaml:"variant"`    // classic or wrap
	Seed      uint64      `yaml:"seed"`
	Arena     pilot.Arena `yaml:"arena"`
	TickRate  int         `yaml:"tick_rate"`

	BroadcastEvery int `yaml:"broadcast_every"` // ticks between frames
	Trails         int `yaml:"trails"`          // candidate paths sent per frame

	Spawn     SpawnConfig     `yaml:"spawn"`
	Search    SearchConfig    `yaml:"search"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// SpawnConfig controls asteroid waves
type SpawnConfig struct {
	Pattern  string  `yaml:"pattern"` // spiral or edge
	Every    int     `yaml:"every"`   // ticks between waves
	MaxRocks int     `yaml:"max_rocks"`
	Speed    float64 `yaml:"speed"`
	Radius   float64 `yaml:"radius"`
	Turn     float64 `yaml:"turn"` // spiral angle advance per wave
}

// SearchConfig overrides the variant's planner settings. Zero keeps the preset.
type SearchConfig struct {
	SimCount           int  `yaml:"sim_count"`
	SimDuration        int  `yaml:"sim_duration"`
	MinDuration        int  `yaml:"min_duration"`
	MaxSimCount        int  `yaml:"max_sim_count"`
	Workers            int  `yaml:"workers"`
	RocksFollowControl bool `yaml:"rocks_follow_control"`
}

// AuthConfig holds the operator credentials
type AuthConfig struct {
	Passphrase     string        `yaml:"passphrase"`
	PassphraseHash string        `yaml:"passphrase_hash"` // bcrypt, wins over Passphrase
	JWTSecret      string        `yaml:"jwt_secret"`
	TokenTTL       time.Duration `yaml:"token_ttl"`
	BcryptCost     int           `yaml:"bcrypt_cost"`
}

// LogConfig selects level and output format
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text, json or logfmt
}

// TelemetryConfig tunes the event writer
type TelemetryConfig struct {
	FlushInterval time.Duration `yaml:"flush_interval"`
	BatchSize     int           `yaml:"batch_size"`
}

// DefaultConfig is a 512x512 arena at 60 Hz with a five-rock spiral wave
// every fourth frame.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8080",
		Variant:        "classic",
		Seed:           1,
		Arena:          pilot.Arena{Width: 512, Height: 512},
		TickRate:       60,
		BroadcastEvery: 2,
		Trails:         64,
		Spawn: SpawnConfig{
			Pattern:  SpawnSpiral,
			Every:    4,
			MaxRocks: 400,
			Speed:    pilot.RockSpeed,
			Radius:   pilot.RockRadius,
			Turn:     0.2,
		},
		Auth: AuthConfig{
			TokenTTL:   12 * time.Hour,
			BcryptCost: 12,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			FlushInterval: 5 * time.Second,
			BatchSize:     50,
		},
	}
}

// LoadConfig overlays the YAML file at path (if any) and the environment,
// including a .env file in the working directory, onto the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if err := loadDotEnv(".env"); err != nil {
		return cfg, fmt.Errorf("dotenv: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func loadYAML(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, out)
}

// loadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is fine.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvAddr); v != "" {
		c.Addr = v
	}
	if v := os.Getenv(EnvPassphrase); v != "" {
		c.Auth.Passphrase = v
	}
	if v := os.Getenv(EnvJWTSecret); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv(EnvSeed); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSeed, err)
		}
		c.Seed = seed
	}
	return nil
}

// Validate reports the first setting the server cannot run with
func (c Config) Validate() error {
	switch {
	case c.Arena.Width <= 0 || c.Arena.Height <= 0:
		return fmt.Errorf("arena must be positive, got %gx%g", c.Arena.Width, c.Arena.Height)
	case c.TickRate <= 0:
		return fmt.Errorf("tick_rate must be positive, got %d", c.TickRate)
	case c.BroadcastEvery <= 0:
		return fmt.Errorf("broadcast_every must be positive, got %d", c.BroadcastEvery)
	case c.Trails < 0:
		return fmt.Errorf("trails must not be negative, got %d", c.Trails)
	case c.Spawn.Every <= 0:
		return fmt.Errorf("spawn.every must be positive, got %d", c.Spawn.Every)
	case c.Spawn.Pattern != SpawnSpiral && c.Spawn.Pattern != SpawnEdge:
		return fmt.Errorf("spawn.pattern must be %q or %q, got %q", SpawnSpiral, SpawnEdge, c.Spawn.Pattern)
	case c.Spawn.Radius <= 0:
		return fmt.Errorf("spawn.radius must be positive, got %g", c.Spawn.Radius)
	case c.Auth.TokenTTL <= 0:
		return fmt.Errorf("auth.token_ttl must be positive, got %s", c.Auth.TokenTTL)
	}
	v, err := c.PlannerVariant()
	if err != nil {
		return err
	}
	if err := v.Config.Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	return nil
}

// PlannerVariant resolves the named variant and applies search overrides
func (c Config) PlannerVariant() (pilot.Variant, error) {
	v, err := pilot.VariantByName(c.Variant)
	if err != nil {
		return v, err
	}
	s := c.Search
	if s.SimCount > 0 {
		v.Config.SimCount = s.SimCount
	}
	if s.SimDuration > 0 {
		v.Config.SimDuration = s.SimDuration
		if v.Config.MinDuration > s.SimDuration || v.Config.Selection == pilot.SelectFirstAlive {
			v.Config.MinDuration = s.SimDuration
		}
	}
	if s.MinDuration > 0 {
		v.Config.MinDuration = s.MinDuration
	}
	if s.MaxSimCount > 0 {
		v.Config.MaxSimCount = s.MaxSimCount
	}
	if s.Workers > 0 {
		v.Config.Workers = s.Workers
	}
	v.Rules.RocksFollowControl = s.RocksFollowControl
	return v, nil
}
