package state

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"tuneledger/core/types"
	"tuneledger/native/access"
	"tuneledger/native/governance"
	"tuneledger/native/staking"
	"tuneledger/native/track"
	"tuneledger/storage"
)

// Manager provides the persistence layer backing every native engine. Records
// are JSON-encoded under keccak-hashed readable keys in a flat key-value
// store; engines only ever see cloned values, never aliases into storage.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func storageKey(readable string) []byte {
	return ethcrypto.Keccak256([]byte(readable))
}

func addrHex(addr []byte) string {
	return hex.EncodeToString(addr)
}

func (m *Manager) getJSON(readable string, out interface{}) (bool, error) {
	data, err := m.db.Get(storageKey(readable))
	if err != nil {
		if storage.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("state: decode %s: %w", readable, err)
	}
	return true, nil
}

func (m *Manager) putJSON(readable string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", readable, err)
	}
	return m.db.Put(storageKey(readable), data)
}

func (m *Manager) delete(readable string) error {
	return m.db.Delete(storageKey(readable))
}

// --- Accounts ---

// GetAccount loads the account record, returning a zeroed account when none
// is stored yet.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	account := &types.Account{}
	if _, err := m.getJSON(fmt.Sprintf(accountKeyFormat, addrHex(addr)), account); err != nil {
		return nil, err
	}
	return account.Normalize(), nil
}

// PutAccount persists the account record.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if account == nil {
		account = &types.Account{}
	}
	return m.putJSON(fmt.Sprintf(accountKeyFormat, addrHex(addr)), account.Normalize())
}

// MintNonce returns the artist's current mint-authorization counter.
func (m *Manager) MintNonce(addr [20]byte) (uint64, error) {
	account, err := m.GetAccount(addr[:])
	if err != nil {
		return 0, err
	}
	return account.MintNonce, nil
}

// SetMintNonce stores the artist's mint-authorization counter.
func (m *Manager) SetMintNonce(addr [20]byte, nonce uint64) error {
	account, err := m.GetAccount(addr[:])
	if err != nil {
		return err
	}
	account.MintNonce = nonce
	return m.PutAccount(addr[:], account)
}

// --- NOTE supply ---

// NoteTotalSupply returns the total minted NOTE supply.
func (m *Manager) NoteTotalSupply() (*big.Int, error) {
	supply := big.NewInt(0)
	if _, err := m.getJSON(noteSupplyKey, supply); err != nil {
		return nil, err
	}
	return supply, nil
}

// MintNOTE credits freshly minted NOTE tokens to the address and grows the
// tracked total supply. Used by genesis funding and administrative top-ups.
func (m *Manager) MintNOTE(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("state: mint amount must be positive")
	}
	account, err := m.GetAccount(addr[:])
	if err != nil {
		return err
	}
	account.BalanceNOTE = new(big.Int).Add(account.BalanceNOTE, amount)
	if err := m.PutAccount(addr[:], account); err != nil {
		return err
	}
	supply, err := m.NoteTotalSupply()
	if err != nil {
		return err
	}
	return m.putJSON(noteSupplyKey, new(big.Int).Add(supply, amount))
}

// CreditBalance tops up the spendable payment balance for an address. This is
// the deposit rail's entry point into the ledger.
func (m *Manager) CreditBalance(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("state: credit amount must be positive")
	}
	account, err := m.GetAccount(addr[:])
	if err != nil {
		return err
	}
	account.Balance = new(big.Int).Add(account.Balance, amount)
	return m.PutAccount(addr[:], account)
}

// --- Tracks ---

// TrackNextID allocates the next track identifier, starting at 1.
func (m *Manager) TrackNextID() (uint64, error) {
	var current uint64
	if _, err := m.getJSON(trackNextIDKey, &current); err != nil {
		return 0, err
	}
	next := current + 1
	if err := m.putJSON(trackNextIDKey, next); err != nil {
		return 0, err
	}
	return next, nil
}

// TrackGet loads a track record by identifier.
func (m *Manager) TrackGet(id uint64) (*track.Track, bool, error) {
	stored := &track.Track{}
	ok, err := m.getJSON(fmt.Sprintf(trackKeyFormat, id), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return stored, true, nil
}

// TrackPut persists a track record.
func (m *Manager) TrackPut(t *track.Track) error {
	if t == nil {
		return fmt.Errorf("state: nil track")
	}
	return m.putJSON(fmt.Sprintf(trackKeyFormat, t.ID), t)
}

// --- Revenue ---

// PendingWithdrawalGet returns the accrued withdrawable balance.
func (m *Manager) PendingWithdrawalGet(addr [20]byte) (*big.Int, error) {
	pending := big.NewInt(0)
	if _, err := m.getJSON(fmt.Sprintf(pendingKeyFormat, addrHex(addr[:])), pending); err != nil {
		return nil, err
	}
	return pending, nil
}

// PendingWithdrawalSet stores the accrued withdrawable balance.
func (m *Manager) PendingWithdrawalSet(addr [20]byte, amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	return m.putJSON(fmt.Sprintf(pendingKeyFormat, addrHex(addr[:])), amount)
}

// RevenueSourceSet marks the address as an authorized revenue source.
func (m *Manager) RevenueSourceSet(addr [20]byte) error {
	return m.putJSON(fmt.Sprintf(revenueSourceFormat, addrHex(addr[:])), true)
}

// RevenueSourceDelete removes the address from the revenue source set.
func (m *Manager) RevenueSourceDelete(addr [20]byte) error {
	return m.delete(fmt.Sprintf(revenueSourceFormat, addrHex(addr[:])))
}

// IsRevenueSource reports whether the address may invoke distributions.
func (m *Manager) IsRevenueSource(addr [20]byte) (bool, error) {
	var authorized bool
	ok, err := m.getJSON(fmt.Sprintf(revenueSourceFormat, addrHex(addr[:])), &authorized)
	if err != nil {
		return false, err
	}
	return ok && authorized, nil
}

// --- Staking ---

// StakeNextID allocates the owner's next stable stake identifier, starting
// at 1. Identifiers are never reused, even after the lock is closed.
func (m *Manager) StakeNextID(owner [20]byte) (uint64, error) {
	key := fmt.Sprintf(stakeNextIDKeyFormat, addrHex(owner[:]))
	var current uint64
	if _, err := m.getJSON(key, &current); err != nil {
		return 0, err
	}
	next := current + 1
	if err := m.putJSON(key, next); err != nil {
		return 0, err
	}
	return next, nil
}

func (m *Manager) stakeIDs(owner [20]byte) ([]uint64, error) {
	ids := []uint64{}
	if _, err := m.getJSON(fmt.Sprintf(stakeIDsKeyFormat, addrHex(owner[:])), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (m *Manager) writeStakeIDs(owner [20]byte, ids []uint64) error {
	return m.putJSON(fmt.Sprintf(stakeIDsKeyFormat, addrHex(owner[:])), ids)
}

// StakeGet loads a single stake lock.
func (m *Manager) StakeGet(owner [20]byte, id uint64) (*staking.StakeLock, bool, error) {
	stored := &staking.StakeLock{}
	ok, err := m.getJSON(fmt.Sprintf(stakeKeyFormat, addrHex(owner[:]), id), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return stored, true, nil
}

// StakePut persists a stake lock and indexes it under its owner.
func (m *Manager) StakePut(lock *staking.StakeLock) error {
	if lock == nil {
		return fmt.Errorf("state: nil stake lock")
	}
	if err := m.putJSON(fmt.Sprintf(stakeKeyFormat, addrHex(lock.Owner[:]), lock.ID), lock); err != nil {
		return err
	}
	ids, err := m.stakeIDs(lock.Owner)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == lock.ID {
			return nil
		}
	}
	return m.writeStakeIDs(lock.Owner, append(ids, lock.ID))
}

// StakeDelete removes a stake lock and its index entry.
func (m *Manager) StakeDelete(owner [20]byte, id uint64) error {
	if err := m.delete(fmt.Sprintf(stakeKeyFormat, addrHex(owner[:]), id)); err != nil {
		return err
	}
	ids, err := m.stakeIDs(owner)
	if err != nil {
		return err
	}
	filtered := ids[:0]
	for _, existing := range ids {
		if existing != id {
			filtered = append(filtered, existing)
		}
	}
	return m.writeStakeIDs(owner, filtered)
}

// StakesByOwner loads every live lock for the owner.
func (m *Manager) StakesByOwner(owner [20]byte) ([]*staking.StakeLock, error) {
	ids, err := m.stakeIDs(owner)
	if err != nil {
		return nil, err
	}
	locks := make([]*staking.StakeLock, 0, len(ids))
	for _, id := range ids {
		lock, ok, err := m.StakeGet(owner, id)
		if err != nil {
			return nil, err
		}
		if ok && lock != nil {
			locks = append(locks, lock)
		}
	}
	return locks, nil
}

// --- Governance ---

// GovernanceNextProposalID allocates the next proposal identifier, starting
// at 1.
func (m *Manager) GovernanceNextProposalID() (uint64, error) {
	var current uint64
	if _, err := m.getJSON(proposalNextIDKey, &current); err != nil {
		return 0, err
	}
	next := current + 1
	if err := m.putJSON(proposalNextIDKey, next); err != nil {
		return 0, err
	}
	return next, nil
}

// GovernanceGetProposal loads a proposal by identifier.
func (m *Manager) GovernanceGetProposal(id uint64) (*governance.Proposal, bool, error) {
	stored := &governance.Proposal{}
	ok, err := m.getJSON(fmt.Sprintf(proposalKeyFormat, id), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return stored, true, nil
}

// GovernancePutProposal persists a proposal.
func (m *Manager) GovernancePutProposal(p *governance.Proposal) error {
	if p == nil {
		return fmt.Errorf("state: nil proposal")
	}
	return m.putJSON(fmt.Sprintf(proposalKeyFormat, p.ID), p)
}

// GovernanceHasVoted reports whether the voter already cast a ballot.
func (m *Manager) GovernanceHasVoted(id uint64, voter [20]byte) (bool, error) {
	stored := &governance.Vote{}
	ok, err := m.getJSON(fmt.Sprintf(voteKeyFormat, id, addrHex(voter[:])), stored)
	if err != nil {
		return false, err
	}
	return ok, nil
}

// GovernancePutVote persists a ballot.
func (m *Manager) GovernancePutVote(v *governance.Vote) error {
	if v == nil {
		return fmt.Errorf("state: nil vote")
	}
	return m.putJSON(fmt.Sprintf(voteKeyFormat, v.ProposalID, addrHex(v.Voter[:])), v)
}

// --- Subscriptions ---

// SubscriptionGet loads the account's subscription record.
func (m *Manager) SubscriptionGet(addr [20]byte) (*access.Subscription, bool, error) {
	stored := &access.Subscription{}
	ok, err := m.getJSON(fmt.Sprintf(subscriptionKeyFormat, addrHex(addr[:])), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return stored, true, nil
}

// SubscriptionPut persists a subscription record.
func (m *Manager) SubscriptionPut(sub *access.Subscription) error {
	if sub == nil {
		return fmt.Errorf("state: nil subscription")
	}
	return m.putJSON(fmt.Sprintf(subscriptionKeyFormat, addrHex(sub.Account[:])), sub)
}

// --- Pauses ---

// IsPaused reports whether the module's administrative pause switch is set.
// Errors resolve to "not paused" so a corrupt flag cannot brick the ledger.
func (m *Manager) IsPaused(module string) bool {
	var paused bool
	ok, err := m.getJSON(fmt.Sprintf(pauseKeyFormat, module), &paused)
	if err != nil || !ok {
		return false
	}
	return paused
}

// SetPaused flips the module's administrative pause switch.
func (m *Manager) SetPaused(module string, paused bool) error {
	return m.putJSON(fmt.Sprintf(pauseKeyFormat, module), paused)
}
