package core

import (
	"errors"
	"log/slog"
	"math/big"
	"sync"

	"tuneledger/core/events"
	"tuneledger/core/state"
	"tuneledger/core/types"
	"tuneledger/native/access"
	"tuneledger/native/governance"
	"tuneledger/native/revenue"
	"tuneledger/native/staking"
	"tuneledger/native/track"
	"tuneledger/storage"
)

var (
	// ErrUnauthorized is returned when an administrative operation is invoked
	// by anyone other than the platform owner.
	ErrUnauthorized = errors.New("core: caller is not the platform owner")
	// ErrUnknownModule is returned when a pause toggle names a module the
	// ledger does not run.
	ErrUnknownModule = errors.New("core: unknown module")
)

// pauseModules enumerates the toggleable engines.
var pauseModules = map[string]bool{
	track.PauseModule:      true,
	revenue.PauseModule:    true,
	staking.PauseModule:    true,
	governance.PauseModule: true,
	access.PauseModule:     true,
}

// Config carries everything the node needs at construction time: the
// privileged accounts, the domain-separation chain identifier, and the
// economic policy knobs.
type Config struct {
	ChainID          uint64
	Owner            [20]byte
	PlatformTreasury [20]byte
	RevenueVault     [20]byte
	StakingVault     [20]byte
	RewardsTreasury  [20]byte

	PlatformFeeBps      uint32
	StreamPrice         *big.Int
	Plans               []access.Plan
	LockRates           map[uint64]*big.Int
	VotingPeriodSeconds uint64
	PassThresholdBps    uint64
}

// Node owns the state manager and every native engine, and serializes all
// mutating operations under a single lock. Engines never talk to storage or to
// each other except through the wiring established here.
type Node struct {
	mu sync.RWMutex

	state    *state.Manager
	recorder *events.Recorder
	logger   *slog.Logger
	owner    [20]byte

	tracks     *track.Engine
	revenue    *revenue.Engine
	staking    *staking.Engine
	governance *governance.Engine
	access     *access.Engine
}

// NewNode wires the engines against the supplied database and configuration.
func NewNode(db storage.Database, cfg Config, logger *slog.Logger) *Node {
	if logger == nil {
		logger = slog.Default()
	}
	manager := state.NewManager(db)
	recorder := events.NewRecorder(0)

	n := &Node{
		state:      manager,
		recorder:   recorder,
		logger:     logger,
		owner:      cfg.Owner,
		tracks:     track.NewEngine(),
		revenue:    revenue.NewEngine(),
		staking:    staking.NewEngine(),
		governance: governance.NewEngine(),
		access:     access.NewEngine(),
	}

	n.tracks.SetState(manager)
	n.tracks.SetEmitter(recorder)
	n.tracks.SetPauses(manager)
	n.tracks.SetChainID(cfg.ChainID)
	n.tracks.SetPlatformFeeBps(cfg.PlatformFeeBps)

	n.revenue.SetState(manager)
	n.revenue.SetEmitter(recorder)
	n.revenue.SetPauses(manager)
	n.revenue.SetOwner(cfg.Owner)
	n.revenue.SetVault(cfg.RevenueVault)
	n.revenue.SetPlatformTreasury(cfg.PlatformTreasury)
	n.revenue.SetPlatformFeeBps(cfg.PlatformFeeBps)

	n.staking.SetState(manager)
	n.staking.SetEmitter(recorder)
	n.staking.SetPauses(manager)
	n.staking.SetVault(cfg.StakingVault)
	n.staking.SetRewardsTreasury(cfg.RewardsTreasury)
	if len(cfg.LockRates) > 0 {
		n.staking.SetLockPeriods(cfg.LockRates)
	}

	n.governance.SetState(manager)
	n.governance.SetEmitter(recorder)
	n.governance.SetPauses(manager)
	n.governance.SetOwner(cfg.Owner)
	n.governance.SetVotingPeriodSeconds(cfg.VotingPeriodSeconds)
	n.governance.SetPassThresholdBps(cfg.PassThresholdBps)

	n.access.SetState(manager)
	n.access.SetEmitter(recorder)
	n.access.SetPauses(manager)
	n.access.SetRouter(n.revenue)
	n.access.SetTracks(n.tracks)
	n.access.SetPlans(cfg.Plans)
	n.access.SetStreamPrice(cfg.StreamPrice)

	return n
}

// SetAuditor wires the advisory audit trail into the revenue engine.
func (n *Node) SetAuditor(a revenue.Auditor) { n.revenue.SetAuditor(a) }

// SetTransferFunc overrides the revenue payout transfer, typically to reach an
// external payment rail.
func (n *Node) SetTransferFunc(fn revenue.TransferFunc) { n.revenue.SetTransferFunc(fn) }

// SetNowFunc overrides the time source of every engine for deterministic
// testing.
func (n *Node) SetNowFunc(now func() int64) {
	n.tracks.SetNowFunc(now)
	n.revenue.SetNowFunc(now)
	n.staking.SetNowFunc(now)
	n.governance.SetNowFunc(now)
	n.access.SetNowFunc(now)
}

// RecentEvents returns up to limit of the most recently emitted ledger events.
func (n *Node) RecentEvents(limit int) []events.Event {
	return n.recorder.Recent(limit)
}

// --- Tracks ---

// MintTrack verifies the signed authorization and mints the track.
func (n *Node) MintTrack(auth track.MintAuthorization, sig []byte) (*track.Track, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	minted, err := n.tracks.Mint(auth, sig)
	if err != nil {
		return nil, err
	}
	n.logger.Info("track minted", "trackId", minted.ID)
	return minted, nil
}

// Track returns the stored track record.
func (n *Node) Track(id uint64) (*track.Track, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.tracks.Get(id)
}

// TrackMetadata returns the immutable metadata fixed at mint time.
func (n *Node) TrackMetadata(id uint64) (string, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.tracks.MetadataOf(id)
}

// TrackURI returns the off-ledger document reference fixed at mint time.
func (n *Node) TrackURI(id uint64) (string, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.tracks.URIOf(id)
}

// RoyaltyInfo computes the royalty recipient and amount for a hypothetical
// sale at the supplied price.
func (n *Node) RoyaltyInfo(id uint64, salePrice *big.Int) ([20]byte, *big.Int, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.tracks.RoyaltyInfo(id, salePrice)
}

// MintNonce returns the artist's current mint-authorization nonce.
func (n *Node) MintNonce(artist [20]byte) (uint64, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.tracks.NonceOf(artist)
}

// TransferTrack moves track ownership; only the current owner may call it.
func (n *Node) TransferTrack(caller, to [20]byte, id uint64) (*track.Track, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tracks.Transfer(caller, to, id)
}

// --- Revenue ---

// AuthorizeRevenueSource adds an account to the revenue source set.
func (n *Node) AuthorizeRevenueSource(caller, source [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.revenue.AuthorizeSource(caller, source)
}

// RevokeRevenueSource removes an account from the revenue source set.
func (n *Node) RevokeRevenueSource(caller, source [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.revenue.RevokeSource(caller, source)
}

// IsRevenueSource reports whether the account may invoke Distribute.
func (n *Node) IsRevenueSource(addr [20]byte) (bool, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.revenue.IsSource(addr)
}

// Distribute splits a gross track payment among treasury, royalty recipient,
// and seller.
func (n *Node) Distribute(source [20]byte, trackID uint64, declared, paid *big.Int) (*revenue.Distribution, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.revenue.Distribute(source, trackID, declared, paid)
}

// PendingWithdrawal returns the account's accrued withdrawable balance.
func (n *Node) PendingWithdrawal(addr [20]byte) (*big.Int, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.revenue.PendingOf(addr)
}

// VaultReserve returns the revenue vault's held balance.
func (n *Node) VaultReserve() (*big.Int, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.revenue.VaultReserve()
}

// Withdraw pays out the account's full pending balance.
func (n *Node) Withdraw(account [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	amount, err := n.revenue.Withdraw(account)
	if err != nil {
		return nil, err
	}
	n.logger.Info("withdrawal settled", "amount", amount.String())
	return amount, nil
}

// --- Staking ---

// Stake locks NOTE tokens for one of the configured lock periods.
func (n *Node) Stake(owner [20]byte, amount *big.Int, lockSeconds uint64) (*staking.StakeLock, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.staking.Stake(owner, amount, lockSeconds)
}

// StopStakeEarly locks in the early-exit penalty and stops reward accrual.
func (n *Node) StopStakeEarly(owner [20]byte, id uint64) (*staking.StakeLock, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.staking.StopEarly(owner, id)
}

// WithdrawStake closes a matured position and pays principal plus reward.
func (n *Node) WithdrawStake(owner [20]byte, id uint64) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.staking.Withdraw(owner, id)
}

// Stakes returns the owner's live positions ordered by identifier.
func (n *Node) Stakes(owner [20]byte) ([]*staking.StakeLock, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.staking.StakesOf(owner)
}

// BondedNOTE sums the owner's locked principal across live positions.
func (n *Node) BondedNOTE(owner [20]byte) (*big.Int, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.staking.BondedOf(owner)
}

// --- Governance ---

// Propose opens a proposal with the fixed voting window.
func (n *Node) Propose(caller [20]byte, description string) (*governance.Proposal, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.governance.Propose(caller, description)
}

// CastVote records a ballot weighted by the voter's NOTE balance.
func (n *Node) CastVote(voter [20]byte, proposalID uint64) (*governance.Vote, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.governance.Vote(voter, proposalID)
}

// ExecuteProposal settles a proposal after its voting window closes.
func (n *Node) ExecuteProposal(caller [20]byte, proposalID uint64) (*governance.Proposal, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.governance.Execute(caller, proposalID)
}

// Proposal returns the stored proposal record.
func (n *Node) Proposal(id uint64) (*governance.Proposal, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.governance.ProposalOf(id)
}

// HasVoted reports whether the voter already cast a ballot on the proposal.
func (n *Node) HasVoted(id uint64, voter [20]byte) (bool, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.governance.HasVoted(id, voter)
}

// --- Access ---

// Subscribe charges the plan price and opens or extends the access window.
func (n *Node) Subscribe(account [20]byte, planID string) (*access.Subscription, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.access.Subscribe(account, planID)
}

// Subscription returns the account's stored subscription record.
func (n *Node) Subscription(account [20]byte) (*access.Subscription, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.access.SubscriptionOf(account)
}

// SubscriptionActive reports whether the account holds an unexpired
// subscription.
func (n *Node) SubscriptionActive(account [20]byte) (bool, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.access.IsActive(account)
}

// PurchaseStream settles a pay-per-stream purchase and records the play.
func (n *Node) PurchaseStream(buyer [20]byte, trackID uint64) (*revenue.Distribution, uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.access.PurchaseStream(buyer, trackID)
}

// --- Accounts and administration ---

// Account returns the stored account record for the address.
func (n *Node) Account(addr [20]byte) (*types.Account, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state.GetAccount(addr[:])
}

// NoteTotalSupply returns the total minted NOTE supply.
func (n *Node) NoteTotalSupply() (*big.Int, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state.NoteTotalSupply()
}

// MintNOTE credits freshly minted NOTE to the address. Owner only; genesis
// funding and administrative top-ups go through here.
func (n *Node) MintNOTE(caller, to [20]byte, amount *big.Int) error {
	if caller != n.owner {
		return ErrUnauthorized
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.MintNOTE(to, amount)
}

// CreditBalance tops up the spendable payment balance for an address. Owner
// only; this is the deposit rail's entry point.
func (n *Node) CreditBalance(caller, to [20]byte, amount *big.Int) error {
	if caller != n.owner {
		return ErrUnauthorized
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.CreditBalance(to, amount)
}

// SetPaused flips a module's administrative pause switch. Owner only.
func (n *Node) SetPaused(caller [20]byte, module string, paused bool) error {
	if caller != n.owner {
		return ErrUnauthorized
	}
	if !pauseModules[module] {
		return ErrUnknownModule
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.state.SetPaused(module, paused); err != nil {
		return err
	}
	n.logger.Info("pause toggled", "module", module, "paused", paused)
	return nil
}

// IsPaused reports whether the module's pause switch is set.
func (n *Node) IsPaused(module string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state.IsPaused(module)
}
