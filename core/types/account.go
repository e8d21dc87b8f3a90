package types

import "math/big"

// Account captures the ledger position of a single platform participant.
// Balance holds withdrawable payment funds denominated in wei. BalanceNOTE
// holds the NOTE platform token used for staking and governance weight.
// MintNonce is the artist's mint-authorization counter; it increments exactly
// once per successful signed mint and makes every authorization single-use.
type Account struct {
	MintNonce   uint64   `json:"mintNonce"`
	Balance     *big.Int `json:"balance"`
	BalanceNOTE *big.Int `json:"balanceNote"`
}

// Normalize replaces nil balance fields with zero values so callers can do
// arithmetic without nil checks.
func (a *Account) Normalize() *Account {
	if a == nil {
		return &Account{Balance: big.NewInt(0), BalanceNOTE: big.NewInt(0)}
	}
	if a.Balance == nil {
		a.Balance = big.NewInt(0)
	}
	if a.BalanceNOTE == nil {
		a.BalanceNOTE = big.NewInt(0)
	}
	return a
}
