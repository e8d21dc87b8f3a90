package staking

import "math/big"

// EarlyExitPenaltyBps is the principal fraction forfeited on early exit.
const EarlyExitPenaltyBps = 1_000 // 10%

// RateScale is the denominator of the 1e18-scaled per-second accrual rate.
var RateScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// StakeLock is a single time-locked staking position. Positions carry a
// stable per-owner identifier allocated at stake time; withdrawing one lock
// never invalidates another lock's identifier.
type StakeLock struct {
	ID          uint64   `json:"id"`
	Owner       [20]byte `json:"owner"`
	Amount      *big.Int `json:"amount"`
	LockSeconds uint64   `json:"lockSeconds"`
	RewardRate  *big.Int `json:"rewardRate"`
	StakedAt    int64    `json:"stakedAt"`
	Active      bool     `json:"active"`
	StoppedAt   int64    `json:"stoppedAt,omitempty"`
	Penalty     *big.Int `json:"penalty,omitempty"`
}

// Clone returns a deep copy of the stake lock.
func (s *StakeLock) Clone() *StakeLock {
	if s == nil {
		return nil
	}
	clone := *s
	if s.Amount != nil {
		clone.Amount = new(big.Int).Set(s.Amount)
	}
	if s.RewardRate != nil {
		clone.RewardRate = new(big.Int).Set(s.RewardRate)
	}
	if s.Penalty != nil {
		clone.Penalty = new(big.Int).Set(s.Penalty)
	}
	return &clone
}

// UnlockAt returns the unix timestamp at which the principal becomes
// withdrawable. Early exit does not shorten this: it only forfeits part of
// the principal and stops reward accrual.
func (s *StakeLock) UnlockAt() int64 {
	if s == nil {
		return 0
	}
	return s.StakedAt + int64(s.LockSeconds)
}

// Reward computes the linear accrual earned by the lock as of the supplied
// timestamp: amount * rate * elapsedSeconds / 1e18. For early-exited locks the
// accrual window ends at the exit timestamp.
func (s *StakeLock) Reward(now int64) *big.Int {
	if s == nil || s.Amount == nil || s.RewardRate == nil {
		return big.NewInt(0)
	}
	end := now
	if !s.Active && s.StoppedAt > 0 && s.StoppedAt < end {
		end = s.StoppedAt
	}
	elapsed := end - s.StakedAt
	if elapsed <= 0 {
		return big.NewInt(0)
	}
	reward := new(big.Int).Mul(s.Amount, s.RewardRate)
	reward.Mul(reward, big.NewInt(elapsed))
	return reward.Div(reward, RateScale)
}
