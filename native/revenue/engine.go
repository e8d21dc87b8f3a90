package revenue

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"tuneledger/core/events"
	"tuneledger/core/types"
	"tuneledger/native/common"
	"tuneledger/native/track"
)

var (
	errNilState            = errors.New("revenue engine: state not configured")
	ErrUnauthorizedSource  = errors.New("revenue engine: caller is not an authorized revenue source")
	ErrNotOwner            = errors.New("revenue engine: caller is not the platform owner")
	ErrTrackNotFound       = errors.New("revenue engine: track not found")
	ErrZeroAmount          = errors.New("revenue engine: amount must be positive")
	ErrPaymentMismatch     = errors.New("revenue engine: paid amount does not match declared amount")
	ErrExcessiveFees       = errors.New("revenue engine: royalty plus platform fee exceeds payment")
	ErrInsufficientFunds   = errors.New("revenue engine: insufficient balance")
	ErrNoFunds             = errors.New("revenue engine: no pending balance to withdraw")
	ErrTransferFailed      = errors.New("revenue engine: payout transfer failed")
	ErrInvalidInput        = errors.New("revenue engine: invalid input")
	errVaultNotSet         = errors.New("revenue engine: vault not configured")
	errVaultUnderfunded    = errors.New("revenue engine: vault underfunded")
	errTreasuryNotSet      = errors.New("revenue engine: platform treasury not configured")
)

// PauseModule is the identifier used with the administrative pause switch.
const PauseModule = "revenue"

type engineState interface {
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
	TrackGet(id uint64) (*track.Track, bool, error)
	PendingWithdrawalGet(addr [20]byte) (*big.Int, error)
	PendingWithdrawalSet(addr [20]byte, amount *big.Int) error
	RevenueSourceSet(addr [20]byte) error
	RevenueSourceDelete(addr [20]byte) error
	IsRevenueSource(addr [20]byte) (bool, error)
}

// Auditor receives copies of settled distributions and withdrawals. The audit
// trail is advisory: a failing auditor never rolls back ledger state.
type Auditor interface {
	RecordDistribution(d *Distribution) error
	RecordWithdrawal(account [20]byte, amount *big.Int, at int64) error
}

// TransferFunc moves withdrawn funds to their destination. Implementations
// that talk to an external payment rail report failure via the returned error,
// which rolls back the withdrawal atomically.
type TransferFunc func(to [20]byte, amount *big.Int) error

// Engine implements the revenue splitter and the pull-payment withdrawal
// vault. Distributions only ever accrue pending balances; funds leave the
// vault exclusively through Withdraw, with the balance zeroed before the
// transfer runs.
type Engine struct {
	state            engineState
	emitter          events.Emitter
	auditor          Auditor
	nowFn            func() int64
	pauses           common.PauseView
	transferFn       TransferFunc
	owner            [20]byte
	vault            [20]byte
	platformTreasury [20]byte
	platformFeeBps   uint32
}

// NewEngine constructs a revenue engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetAuditor wires the advisory audit trail.
func (e *Engine) SetAuditor(a Auditor) { e.auditor = a }

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetPauses wires the administrative pause switches.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetTransferFunc overrides the payout transfer. Nil restores the default
// internal settlement, which credits the recipient's ledger balance.
func (e *Engine) SetTransferFunc(fn TransferFunc) { e.transferFn = fn }

// SetOwner configures the platform owner allowed to mutate the source set.
func (e *Engine) SetOwner(addr [20]byte) { e.owner = addr }

// SetVault configures the holding account for undistributed payouts.
func (e *Engine) SetVault(addr [20]byte) { e.vault = addr }

// SetPlatformTreasury configures the recipient of platform fees.
func (e *Engine) SetPlatformTreasury(addr [20]byte) { e.platformTreasury = addr }

// SetPlatformFeeBps configures the platform fee fraction.
func (e *Engine) SetPlatformFeeBps(bps uint32) { e.platformFeeBps = bps }

// PlatformFeeBps returns the configured platform fee fraction.
func (e *Engine) PlatformFeeBps() uint32 { return e.platformFeeBps }

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(WrapEvent(evt))
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}

func ensureAccount(acc *types.Account) *types.Account {
	return acc.Normalize()
}

// AuthorizeSource adds an account to the revenue source set. Only the
// platform owner may call this.
func (e *Engine) AuthorizeSource(caller, source [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if caller != e.owner || isZeroAddress(e.owner) {
		return ErrNotOwner
	}
	if isZeroAddress(source) {
		return ErrInvalidInput
	}
	if err := e.state.RevenueSourceSet(source); err != nil {
		return err
	}
	e.emit(SourceAuthorizedEvent(hexAddr(source)))
	return nil
}

// RevokeSource removes an account from the revenue source set.
func (e *Engine) RevokeSource(caller, source [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if caller != e.owner || isZeroAddress(e.owner) {
		return ErrNotOwner
	}
	if err := e.state.RevenueSourceDelete(source); err != nil {
		return err
	}
	e.emit(SourceRevokedEvent(hexAddr(source)))
	return nil
}

// IsSource reports whether the account may invoke Distribute.
func (e *Engine) IsSource(addr [20]byte) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	return e.state.IsRevenueSource(addr)
}

// Distribute splits a gross payment for a track among the platform treasury,
// the royalty recipient, and the current owner (seller). The caller must be an
// authorized revenue source and must pay exactly the declared amount: the
// source collected the payment upstream, so its own account is debited for
// the full gross amount.
func (e *Engine) Distribute(source [20]byte, trackID uint64, declared, paid *big.Int) (*Distribution, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.pauses, PauseModule); err != nil {
		return nil, err
	}
	authorized, err := e.state.IsRevenueSource(source)
	if err != nil {
		return nil, err
	}
	if !authorized {
		return nil, ErrUnauthorizedSource
	}
	if declared == nil || declared.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if paid == nil || paid.Cmp(declared) != 0 {
		return nil, ErrPaymentMismatch
	}
	return e.split(source, trackID, declared)
}

// SplitFrom performs a distribution on behalf of an internally trusted caller
// (the access engine's purchase path), bypassing the revenue source set but
// applying the identical split and accrual rules.
func (e *Engine) SplitFrom(payer [20]byte, trackID uint64, amount *big.Int) (*Distribution, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.pauses, PauseModule); err != nil {
		return nil, err
	}
	return e.split(payer, trackID, amount)
}

// CreditPlatform moves a payment from the payer into the vault and accrues
// the full amount to the platform treasury's pending balance. Subscription
// revenue takes this path: there is no track, so nothing to split.
func (e *Engine) CreditPlatform(payer [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := common.Guard(e.pauses, PauseModule); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	if isZeroAddress(e.vault) {
		return errVaultNotSet
	}
	if isZeroAddress(e.platformTreasury) {
		return errTreasuryNotSet
	}
	payerAccount, err := e.state.GetAccount(payer[:])
	if err != nil {
		return err
	}
	payerAccount = ensureAccount(payerAccount)
	if payerAccount.Balance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	payerAccount.Balance = new(big.Int).Sub(payerAccount.Balance, amount)
	if err := e.state.PutAccount(payer[:], payerAccount); err != nil {
		return err
	}
	vaultAccount, err := e.state.GetAccount(e.vault[:])
	if err != nil {
		return err
	}
	vaultAccount = ensureAccount(vaultAccount)
	vaultAccount.Balance = new(big.Int).Add(vaultAccount.Balance, amount)
	if err := e.state.PutAccount(e.vault[:], vaultAccount); err != nil {
		return err
	}
	return e.credit(e.platformTreasury, amount)
}

// split debits the payer, applies the three-way split, and accrues the
// resulting pending balances. It is shared between Distribute and the access
// engine's internally authorized purchase path.
func (e *Engine) split(payer [20]byte, trackID uint64, amount *big.Int) (*Distribution, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if isZeroAddress(e.vault) {
		return nil, errVaultNotSet
	}
	if e.platformFeeBps > 0 && isZeroAddress(e.platformTreasury) {
		return nil, errTreasuryNotSet
	}
	stored, ok, err := e.state.TrackGet(trackID)
	if err != nil {
		return nil, err
	}
	if !ok || stored == nil {
		return nil, ErrTrackNotFound
	}

	platformFee := new(big.Int).Mul(amount, big.NewInt(int64(e.platformFeeBps)))
	platformFee.Div(platformFee, big.NewInt(track.BpsDenominator))
	royaltyTo, royalty := track.RoyaltyAmount(stored, amount)
	combined := new(big.Int).Add(platformFee, royalty)
	if combined.Cmp(amount) > 0 {
		return nil, ErrExcessiveFees
	}
	sellerProceeds := new(big.Int).Sub(amount, combined)

	payerAccount, err := e.state.GetAccount(payer[:])
	if err != nil {
		return nil, err
	}
	payerAccount = ensureAccount(payerAccount)
	if payerAccount.Balance.Cmp(amount) < 0 {
		return nil, ErrInsufficientFunds
	}
	payerAccount.Balance = new(big.Int).Sub(payerAccount.Balance, amount)
	if err := e.state.PutAccount(payer[:], payerAccount); err != nil {
		return nil, err
	}
	vaultAccount, err := e.state.GetAccount(e.vault[:])
	if err != nil {
		return nil, err
	}
	vaultAccount = ensureAccount(vaultAccount)
	vaultAccount.Balance = new(big.Int).Add(vaultAccount.Balance, amount)
	if err := e.state.PutAccount(e.vault[:], vaultAccount); err != nil {
		return nil, err
	}

	if err := e.credit(e.platformTreasury, platformFee); err != nil {
		return nil, err
	}
	if err := e.credit(royaltyTo, royalty); err != nil {
		return nil, err
	}
	if err := e.credit(stored.Owner, sellerProceeds); err != nil {
		return nil, err
	}

	dist := &Distribution{
		TrackID:          trackID,
		Payer:            payer,
		Amount:           new(big.Int).Set(amount),
		PlatformFee:      platformFee,
		RoyaltyRecipient: royaltyTo,
		Royalty:          royalty,
		Seller:           stored.Owner,
		SellerProceeds:   sellerProceeds,
		DistributedAt:    e.now(),
	}
	e.emit(DistributedEvent(dist, hexAddr(payer), hexAddr(royaltyTo), hexAddr(stored.Owner)))
	if e.auditor != nil {
		_ = e.auditor.RecordDistribution(dist.Clone())
	}
	return dist.Clone(), nil
}

// credit adds the amount to the account's pending withdrawal balance.
func (e *Engine) credit(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	pending, err := e.state.PendingWithdrawalGet(addr)
	if err != nil {
		return err
	}
	if pending == nil {
		pending = big.NewInt(0)
	}
	return e.state.PendingWithdrawalSet(addr, new(big.Int).Add(pending, amount))
}

// PendingOf returns the account's accumulated withdrawable balance.
func (e *Engine) PendingOf(addr [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	pending, err := e.state.PendingWithdrawalGet(addr)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(pending), nil
}

// VaultReserve returns the vault account's held balance. It equals the sum of
// all pending withdrawal balances at every quiescent point.
func (e *Engine) VaultReserve() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if isZeroAddress(e.vault) {
		return nil, errVaultNotSet
	}
	vaultAccount, err := e.state.GetAccount(e.vault[:])
	if err != nil {
		return nil, err
	}
	vaultAccount = ensureAccount(vaultAccount)
	return new(big.Int).Set(vaultAccount.Balance), nil
}

// Withdraw pays out the caller's full pending balance. The pending balance is
// zeroed and the vault reserve debited before the transfer runs; a failing
// transfer restores both, so the operation is all-or-nothing.
func (e *Engine) Withdraw(account [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.pauses, PauseModule); err != nil {
		return nil, err
	}
	if isZeroAddress(e.vault) {
		return nil, errVaultNotSet
	}
	pending, err := e.state.PendingWithdrawalGet(account)
	if err != nil {
		return nil, err
	}
	if pending == nil || pending.Sign() == 0 {
		return nil, ErrNoFunds
	}
	amount := new(big.Int).Set(pending)

	vaultAccount, err := e.state.GetAccount(e.vault[:])
	if err != nil {
		return nil, err
	}
	vaultAccount = ensureAccount(vaultAccount)
	if vaultAccount.Balance.Cmp(amount) < 0 {
		return nil, errVaultUnderfunded
	}

	// Effects before interaction: zero the balance and debit the reserve
	// first so a re-entrant or failing transfer can never double-pay.
	if err := e.state.PendingWithdrawalSet(account, big.NewInt(0)); err != nil {
		return nil, err
	}
	vaultAccount.Balance = new(big.Int).Sub(vaultAccount.Balance, amount)
	if err := e.state.PutAccount(e.vault[:], vaultAccount); err != nil {
		return nil, err
	}

	if err := e.transfer(account, amount); err != nil {
		// Roll the whole operation back.
		if restoreErr := e.state.PendingWithdrawalSet(account, amount); restoreErr != nil {
			return nil, fmt.Errorf("%w: rollback failed: %v", ErrTransferFailed, restoreErr)
		}
		vaultAccount.Balance = new(big.Int).Add(vaultAccount.Balance, amount)
		if restoreErr := e.state.PutAccount(e.vault[:], vaultAccount); restoreErr != nil {
			return nil, fmt.Errorf("%w: rollback failed: %v", ErrTransferFailed, restoreErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	e.emit(WithdrawnEvent(hexAddr(account), amount.String()))
	if e.auditor != nil {
		_ = e.auditor.RecordWithdrawal(account, new(big.Int).Set(amount), e.now())
	}
	return amount, nil
}

func (e *Engine) transfer(to [20]byte, amount *big.Int) error {
	if e.transferFn != nil {
		return e.transferFn(to, amount)
	}
	// Default settlement credits the recipient's spendable ledger balance.
	account, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	account = ensureAccount(account)
	account.Balance = new(big.Int).Add(account.Balance, amount)
	return e.state.PutAccount(to[:], account)
}
