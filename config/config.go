package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the node-level configuration loaded from TOML. Economic
// parameters live in a separate policy file (see policy.go) so operators can
// tune fees and lock periods without touching deployment settings.
type Config struct {
	RPCAddress       string `toml:"RPCAddress"`
	DataDir          string `toml:"DataDir"`
	Backend          string `toml:"Backend"`
	AuditDBPath      string `toml:"AuditDBPath"`
	PolicyFile       string `toml:"PolicyFile"`
	ChainID          uint64 `toml:"ChainID"`
	LogFile          string `toml:"LogFile"`
	LogMaxSizeMB     int    `toml:"LogMaxSizeMB"`
	LogMaxBackups    int    `toml:"LogMaxBackups"`
	JWTSecretEnv     string `toml:"JWTSecretEnv"`
	JWTIssuer        string `toml:"JWTIssuer"`
	RateLimitPerSec  int    `toml:"RateLimitPerSec"`
	RateLimitBurst   int    `toml:"RateLimitBurst"`
	PlatformOwner    string `toml:"PlatformOwner"`
	PlatformTreasury string `toml:"PlatformTreasury"`
	RevenueVault     string `toml:"RevenueVault"`
	StakingVault     string `toml:"StakingVault"`
	RewardsTreasury  string `toml:"RewardsTreasury"`
}

const (
	defaultRPCAddress = "127.0.0.1:8651"
	defaultBackend    = "bolt"
	defaultChainID    = 8651
)

// Load reads the configuration from the given path, creating a commented
// default file when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = defaultRPCAddress
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./data"
	}
	if strings.TrimSpace(cfg.Backend) == "" {
		cfg.Backend = defaultBackend
	}
	if strings.TrimSpace(cfg.AuditDBPath) == "" {
		cfg.AuditDBPath = filepath.Join(cfg.DataDir, "audit.db")
	}
	if strings.TrimSpace(cfg.PolicyFile) == "" {
		cfg.PolicyFile = "./policy.yaml"
	}
	if cfg.ChainID == 0 {
		cfg.ChainID = defaultChainID
	}
	if cfg.RateLimitPerSec <= 0 {
		cfg.RateLimitPerSec = 20
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 40
	}
	if strings.TrimSpace(cfg.JWTSecretEnv) == "" {
		cfg.JWTSecretEnv = "TUNELEDGER_JWT_SECRET"
	}
}

func validate(cfg *Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "bolt", "leveldb", "memory":
	default:
		return fmt.Errorf("config: unsupported backend %q", cfg.Backend)
	}
	return nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
