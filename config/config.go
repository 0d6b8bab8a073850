package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultListenAddress = ":8080"
	DefaultDataDir       = "./bonding-data"
	DefaultEnvironment   = "dev"
	DefaultAuditDSN      = "file:bonding-audit.db"
	// DefaultProtocolFeePermille is the buy fee withheld before the curve.
	DefaultProtocolFeePermille uint64 = 5
)

type Config struct {
	ListenAddress       string          `toml:"ListenAddress"`
	DataDir             string          `toml:"DataDir"`
	Environment         string          `toml:"Environment"`
	LogFile             string          `toml:"LogFile"`
	AuditDSN            string          `toml:"AuditDSN"`
	ProtocolFeePermille uint64          `toml:"ProtocolFeePermille"`
	Contract            ContractConfig  `toml:"contract"`
	RateLimit           RateLimitConfig `toml:"rate_limit"`
	Telemetry           TelemetryConfig `toml:"telemetry"`
	QuoteCacheSize      int             `toml:"QuoteCacheSize"`
}

// Load loads the configuration from the given path. A missing file is
// created with defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}

	cfg.applyDefaults()
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{
		ListenAddress:       DefaultListenAddress,
		DataDir:             DefaultDataDir,
		Environment:         DefaultEnvironment,
		AuditDSN:            DefaultAuditDSN,
		ProtocolFeePermille: DefaultProtocolFeePermille,
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = DefaultListenAddress
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = DefaultDataDir
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = DefaultEnvironment
	}
	if c.QuoteCacheSize <= 0 {
		c.QuoteCacheSize = 256
	}
	c.Contract.applyDefaults()
	c.RateLimit.applyDefaults()
	c.Telemetry.applyDefaults()
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil config")
	}
	return persist(path, cfg)
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// StatePath is the leveldb directory under DataDir.
func (c *Config) StatePath() string {
	return filepath.Join(c.DataDir, "state")
}
