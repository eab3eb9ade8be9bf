package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	NetworkName     string `toml:"NetworkName"`
	RPCAddress      string `toml:"RPCAddress"`
	DataDir         string `toml:"DataDir"`
	GenesisFile     string `toml:"GenesisFile"`
	BlockIntervalMs uint64 `toml:"BlockIntervalMs"`
	// RPCMaxConnections caps concurrent RPC connections; 0 means unbounded.
	RPCMaxConnections int `toml:"RPCMaxConnections"`

	Indexer   Indexer   `toml:"indexer"`
	Auth      Auth      `toml:"auth"`
	RateLimit RateLimit `toml:"rate_limit"`
	Logging   Logging   `toml:"logging"`
	Telemetry Telemetry `toml:"telemetry"`
	Pauses    Pauses    `toml:"pauses"`
}

// BlockInterval returns the ledger clock period.
func (c *Config) BlockInterval() time.Duration {
	return time.Duration(c.BlockIntervalMs) * time.Millisecond
}

// Load loads the configuration from the given path, writing a default file
// when none exists. FARM_* environment variables override file values.
func Load(path string) (*Config, error) {
	var cfg *Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg, err = createDefault(path)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = &Config{}
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config file %s: unknown key %q", path, undecoded[0].String())
		}
	}

	applyDefaults(cfg)
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		NetworkName:       "farm-local",
		RPCAddress:        "127.0.0.1:8545",
		DataDir:           "./farm-data",
		GenesisFile:       "genesis.yaml",
		BlockIntervalMs:   1000,
		RPCMaxConnections: 256,
		Indexer:           Indexer{DSN: "farm-events.db", Retention: 100000},
		Auth:              Auth{Issuer: "farmd", TokenTTLHours: 24},
		RateLimit:         RateLimit{RequestsPerSecond: 20, Burst: 40},
		Logging:           Logging{Level: "info", MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 28},
		Telemetry:         Telemetry{Endpoint: "localhost:4318", Insecure: true},
	}
}

func applyDefaults(cfg *Config) {
	def := defaults()
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = def.NetworkName
	}
	if cfg.BlockIntervalMs == 0 {
		cfg.BlockIntervalMs = def.BlockIntervalMs
	}
	if strings.TrimSpace(cfg.Auth.Issuer) == "" {
		cfg.Auth.Issuer = def.Auth.Issuer
	}
	if cfg.Auth.TokenTTLHours == 0 {
		cfg.Auth.TokenTTLHours = def.Auth.TokenTTLHours
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = def.Logging.Level
	}
}

// applyEnv lets operators keep secrets and deployment paths out of the file.
func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv("FARM_JWT_SECRET"); ok {
		cfg.Auth.JWTSecret = v
	}
	if v, ok := os.LookupEnv("FARM_RPC_ADDRESS"); ok && strings.TrimSpace(v) != "" {
		cfg.RPCAddress = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("FARM_DATA_DIR"); ok && strings.TrimSpace(v) != "" {
		cfg.DataDir = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("FARM_GENESIS_FILE"); ok && strings.TrimSpace(v) != "" {
		cfg.GenesisFile = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("FARM_INDEXER_DSN"); ok {
		cfg.Indexer.DSN = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("FARM_BLOCK_INTERVAL_MS"); ok && strings.TrimSpace(v) != "" {
		ms, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("FARM_BLOCK_INTERVAL_MS: %w", err)
		}
		cfg.BlockIntervalMs = ms
	}
	return nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := defaults()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
