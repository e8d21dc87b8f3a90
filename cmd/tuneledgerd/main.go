package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"tuneledger/audit"
	"tuneledger/config"
	"tuneledger/core"
	"tuneledger/crypto"
	"tuneledger/native/access"
	"tuneledger/observability/logging"
	"tuneledger/rpc"
	"tuneledger/storage"
)

const envKey = "TUNELEDGER_ENV"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	policyFile := flag.String("policy", "", "Path to the economic policy file (overrides config PolicyFile)")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv(envKey))

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup("tuneledgerd", env, logging.Options{
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})

	policyPath := cfg.PolicyFile
	if strings.TrimSpace(*policyFile) != "" {
		policyPath = *policyFile
	}
	policy, err := config.LoadPolicy(policyPath)
	if err != nil {
		logger.Error("Failed to load economic policy", slog.Any("error", err))
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("Failed to prepare data directory", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		logger.Error("Failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	nodeCfg, err := nodeConfig(cfg, policy)
	if err != nil {
		logger.Error("Invalid node configuration", slog.Any("error", err))
		os.Exit(1)
	}

	node := core.NewNode(db, nodeCfg, logger)

	auditStore, err := audit.Open(cfg.AuditDBPath)
	if err != nil {
		logger.Error("Failed to open audit store", slog.Any("error", err))
		os.Exit(1)
	}
	node.SetAuditor(auditStore)

	secret := []byte(strings.TrimSpace(os.Getenv(cfg.JWTSecretEnv)))
	if len(secret) == 0 {
		logger.Warn("JWT secret not configured; mutating RPC methods will be rejected", "env", cfg.JWTSecretEnv)
	}

	server := rpc.NewServer(node, rpc.Options{
		JWTSecret:       secret,
		JWTIssuer:       cfg.JWTIssuer,
		RateLimitPerSec: float64(cfg.RateLimitPerSec),
		RateLimitBurst:  cfg.RateLimitBurst,
		Logger:          logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("tuneledger node starting", "rpc", cfg.RPCAddress, "backend", cfg.Backend, "chainId", cfg.ChainID)
	if err := server.Start(ctx, cfg.RPCAddress); err != nil {
		logger.Error("RPC server terminated", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("tuneledger node stopped")
}

func openDatabase(cfg *config.Config) (storage.Database, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "leveldb":
		return storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	case "memory":
		return storage.NewMemDB(), nil
	default:
		return storage.NewBoltDB(filepath.Join(cfg.DataDir, "ledger.db"))
	}
}

func nodeConfig(cfg *config.Config, policy *config.Policy) (core.Config, error) {
	out := core.Config{
		ChainID:             cfg.ChainID,
		PlatformFeeBps:      policy.PlatformFeeBps,
		StreamPrice:         policy.StreamPriceAmount(),
		LockRates:           policy.LockRates(),
		VotingPeriodSeconds: policy.VotingPeriodSeconds,
		PassThresholdBps:    policy.PassThresholdBps,
	}
	plans, err := accessPlans(policy)
	if err != nil {
		return out, err
	}
	out.Plans = plans

	assignments := []struct {
		name  string
		value string
		dst   *[20]byte
	}{
		{"PlatformOwner", cfg.PlatformOwner, &out.Owner},
		{"PlatformTreasury", cfg.PlatformTreasury, &out.PlatformTreasury},
		{"RevenueVault", cfg.RevenueVault, &out.RevenueVault},
		{"StakingVault", cfg.StakingVault, &out.StakingVault},
		{"RewardsTreasury", cfg.RewardsTreasury, &out.RewardsTreasury},
	}
	for _, a := range assignments {
		if strings.TrimSpace(a.value) == "" {
			return out, fmt.Errorf("config: %s address required", a.name)
		}
		decoded, err := crypto.DecodeAddress(strings.TrimSpace(a.value))
		if err != nil {
			return out, fmt.Errorf("config: invalid %s address: %w", a.name, err)
		}
		copy(a.dst[:], decoded.Bytes())
	}
	return out, nil
}

func accessPlans(policy *config.Policy) ([]access.Plan, error) {
	plans := make([]access.Plan, 0, len(policy.Plans))
	for _, p := range policy.Plans {
		price, ok := new(big.Int).SetString(p.Price, 10)
		if !ok {
			return nil, fmt.Errorf("config: plan %q has invalid price %q", p.ID, p.Price)
		}
		plans = append(plans, access.Plan{
			ID:              p.ID,
			DurationSeconds: p.DurationSeconds,
			Price:           price,
		})
	}
	return plans, nil
}
