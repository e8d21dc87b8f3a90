package revenue

import "math/big"

// Distribution records the three-way split applied to a single gross payment.
// PlatformFee + Royalty + SellerProceeds always equals Amount exactly; the
// only rounding applied is the single integer truncation inside each
// basis-point computation, and the seller absorbs the remainder.
type Distribution struct {
	TrackID          uint64   `json:"trackId"`
	Payer            [20]byte `json:"payer"`
	Amount           *big.Int `json:"amount"`
	PlatformFee      *big.Int `json:"platformFee"`
	RoyaltyRecipient [20]byte `json:"royaltyRecipient"`
	Royalty          *big.Int `json:"royalty"`
	Seller           [20]byte `json:"seller"`
	SellerProceeds   *big.Int `json:"sellerProceeds"`
	DistributedAt    int64    `json:"distributedAt"`
}

// Clone returns a deep copy of the distribution record.
func (d *Distribution) Clone() *Distribution {
	if d == nil {
		return nil
	}
	clone := *d
	if d.Amount != nil {
		clone.Amount = new(big.Int).Set(d.Amount)
	}
	if d.PlatformFee != nil {
		clone.PlatformFee = new(big.Int).Set(d.PlatformFee)
	}
	if d.Royalty != nil {
		clone.Royalty = new(big.Int).Set(d.Royalty)
	}
	if d.SellerProceeds != nil {
		clone.SellerProceeds = new(big.Int).Set(d.SellerProceeds)
	}
	return &clone
}
