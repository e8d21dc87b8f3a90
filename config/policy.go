package config

import (
	"fmt"
	"math/big"
	"os"

	"gopkg.in/yaml.v3"
)

// LockPeriodPolicy configures one staking lock tier. Rate is the 1e18-scaled
// per-second accrual rate expressed as a decimal string.
type LockPeriodPolicy struct {
	Seconds uint64 `yaml:"seconds"`
	Rate    string `yaml:"rate"`
}

// PlanPolicy configures one subscription tier.
type PlanPolicy struct {
	ID              string `yaml:"id"`
	DurationSeconds uint64 `yaml:"durationSeconds"`
	Price           string `yaml:"price"`
}

// Policy bundles the economic parameters: fees, staking tiers, subscription
// plans, stream pricing, and governance thresholds.
type Policy struct {
	PlatformFeeBps      uint32             `yaml:"platformFeeBps"`
	StreamPrice         string             `yaml:"streamPrice"`
	LockPeriods         []LockPeriodPolicy `yaml:"lockPeriods"`
	Plans               []PlanPolicy       `yaml:"plans"`
	VotingPeriodSeconds uint64             `yaml:"votingPeriodSeconds"`
	PassThresholdBps    uint64             `yaml:"passThresholdBps"`
}

// LoadPolicy reads and validates the economic policy file.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: read %s: %w", path, err)
	}
	policy := &Policy{}
	if err := yaml.Unmarshal(data, policy); err != nil {
		return nil, fmt.Errorf("policy: parse %s: %w", path, err)
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return policy, nil
}

// Validate checks bounds on every policy knob.
func (p *Policy) Validate() error {
	if p.PlatformFeeBps > 10_000 {
		return fmt.Errorf("policy: platformFeeBps %d exceeds 10000", p.PlatformFeeBps)
	}
	if p.PassThresholdBps > 10_000 {
		return fmt.Errorf("policy: passThresholdBps %d exceeds 10000", p.PassThresholdBps)
	}
	if p.StreamPrice != "" {
		if _, err := parseAmount(p.StreamPrice); err != nil {
			return fmt.Errorf("policy: streamPrice: %w", err)
		}
	}
	seen := make(map[uint64]struct{}, len(p.LockPeriods))
	for _, tier := range p.LockPeriods {
		if tier.Seconds == 0 {
			return fmt.Errorf("policy: lock period duration must be positive")
		}
		if _, dup := seen[tier.Seconds]; dup {
			return fmt.Errorf("policy: duplicate lock period %d", tier.Seconds)
		}
		seen[tier.Seconds] = struct{}{}
		if _, err := parseAmount(tier.Rate); err != nil {
			return fmt.Errorf("policy: lock period %d rate: %w", tier.Seconds, err)
		}
	}
	ids := make(map[string]struct{}, len(p.Plans))
	for _, plan := range p.Plans {
		if plan.ID == "" {
			return fmt.Errorf("policy: plan id required")
		}
		if _, dup := ids[plan.ID]; dup {
			return fmt.Errorf("policy: duplicate plan %q", plan.ID)
		}
		ids[plan.ID] = struct{}{}
		if plan.DurationSeconds == 0 {
			return fmt.Errorf("policy: plan %q duration must be positive", plan.ID)
		}
		if _, err := parseAmount(plan.Price); err != nil {
			return fmt.Errorf("policy: plan %q price: %w", plan.ID, err)
		}
	}
	return nil
}

// LockRates converts the lock tiers into the staking engine's rate map.
func (p *Policy) LockRates() map[uint64]*big.Int {
	rates := make(map[uint64]*big.Int, len(p.LockPeriods))
	for _, tier := range p.LockPeriods {
		rate, err := parseAmount(tier.Rate)
		if err != nil {
			continue
		}
		rates[tier.Seconds] = rate
	}
	return rates
}

// StreamPriceAmount parses the configured stream price, nil when unset.
func (p *Policy) StreamPriceAmount() *big.Int {
	if p.StreamPrice == "" {
		return nil
	}
	amount, err := parseAmount(p.StreamPrice)
	if err != nil {
		return nil
	}
	return amount
}

func parseAmount(raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal amount %q", raw)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount %q must not be negative", raw)
	}
	return amount, nil
}
