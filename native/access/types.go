package access

import "math/big"

// Plan describes a purchasable subscription tier.
type Plan struct {
	ID              string   `json:"id"`
	DurationSeconds uint64   `json:"durationSeconds"`
	Price           *big.Int `json:"price"`
}

// Clone returns a deep copy of the plan.
func (p Plan) Clone() Plan {
	clone := p
	if p.Price != nil {
		clone.Price = new(big.Int).Set(p.Price)
	}
	return clone
}

// Subscription is an account's access window. Renewing before expiry extends
// from the current expiry, never shortens it.
type Subscription struct {
	Account   [20]byte `json:"account"`
	PlanID    string   `json:"planId"`
	StartedAt int64    `json:"startedAt"`
	ExpiresAt int64    `json:"expiresAt"`
}

// Clone returns a deep copy of the subscription.
func (s *Subscription) Clone() *Subscription {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}
