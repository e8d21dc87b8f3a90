package track

import "math/big"

// BpsDenominator is the denominator for basis-point fractions.
const BpsDenominator = 10_000

// Track is a minted music token. Metadata and URI are frozen at mint time and
// never rewritten; only Owner and Plays mutate afterwards.
type Track struct {
	ID               uint64   `json:"id"`
	Artist           [20]byte `json:"artist"`
	Owner            [20]byte `json:"owner"`
	Metadata         string   `json:"metadata"`
	URI              string   `json:"uri"`
	RoyaltyRecipient [20]byte `json:"royaltyRecipient"`
	RoyaltyBps       uint32   `json:"royaltyBps"`
	MintedAt         int64    `json:"mintedAt"`
	Plays            uint64   `json:"plays"`
}

// Clone returns a deep copy of the track record.
func (t *Track) Clone() *Track {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

// RoyaltyAmount computes the royalty owed for a sale of the track at the
// supplied gross price. Integer division truncates: the royalty rounds down
// and the remainder stays with the seller.
func RoyaltyAmount(t *Track, salePrice *big.Int) ([20]byte, *big.Int) {
	if t == nil || salePrice == nil || salePrice.Sign() <= 0 || t.RoyaltyBps == 0 {
		var zero [20]byte
		if t != nil {
			zero = t.RoyaltyRecipient
		}
		return zero, big.NewInt(0)
	}
	amount := new(big.Int).Mul(salePrice, big.NewInt(int64(t.RoyaltyBps)))
	amount.Div(amount, big.NewInt(BpsDenominator))
	return t.RoyaltyRecipient, amount
}
