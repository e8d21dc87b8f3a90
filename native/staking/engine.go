package staking

import (
	"encoding/hex"
	"errors"
	"math/big"
	"sort"
	"time"

	"tuneledger/core/events"
	"tuneledger/core/types"
	"tuneledger/native/common"
)

var (
	errNilState            = errors.New("staking engine: state not configured")
	ErrUnknownLockPeriod   = errors.New("staking engine: lock period not configured")
	ErrInvalidAmount       = errors.New("staking engine: amount must be positive")
	ErrInsufficientFunds   = errors.New("staking engine: insufficient NOTE balance")
	ErrStakeNotFound       = errors.New("staking engine: stake not found")
	ErrAlreadyStopped      = errors.New("staking engine: stake already exited early")
	ErrLockNotExpired      = errors.New("staking engine: lock period has not elapsed")
	ErrTreasuryUnderfunded = errors.New("staking engine: rewards treasury underfunded")
	errVaultNotSet         = errors.New("staking engine: staking vault not configured")
	errTreasuryNotSet      = errors.New("staking engine: rewards treasury not configured")
	errVaultUnderfunded    = errors.New("staking engine: staking vault underfunded")
)

// PauseModule is the identifier used with the administrative pause switch.
const PauseModule = "staking"

type engineState interface {
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
	StakeNextID(owner [20]byte) (uint64, error)
	StakeGet(owner [20]byte, id uint64) (*StakeLock, bool, error)
	StakePut(lock *StakeLock) error
	StakeDelete(owner [20]byte, id uint64) error
	StakesByOwner(owner [20]byte) ([]*StakeLock, error)
}

// Engine manages time-locked NOTE staking positions with linear reward
// accrual and an early-exit penalty. Principal sits in the staking vault until
// withdrawal; rewards are funded from the rewards treasury and penalties flow
// back into it.
type Engine struct {
	state     engineState
	emitter   events.Emitter
	nowFn     func() int64
	pauses    common.PauseView
	lockRates map[uint64]*big.Int
	vault     [20]byte
	treasury  [20]byte
}

// NewEngine constructs a staking engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter:   events.NoopEmitter{},
		lockRates: map[uint64]*big.Int{},
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

// SetLockPeriods replaces the configured lock periods and their 1e18-scaled
// per-second accrual rates.
func (e *Engine) SetLockPeriods(rates map[uint64]*big.Int) {
	e.lockRates = make(map[uint64]*big.Int, len(rates))
	for seconds, rate := range rates {
		if seconds == 0 || rate == nil || rate.Sign() < 0 {
			continue
		}
		e.lockRates[seconds] = new(big.Int).Set(rate)
	}
}

// SetVault configures the account holding locked principal.
func (e *Engine) SetVault(addr [20]byte) { e.vault = addr }

// SetRewardsTreasury configures the account funding rewards and receiving
// early-exit penalties.
func (e *Engine) SetRewardsTreasury(addr [20]byte) { e.treasury = addr }

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

// Stake locks the owner's NOTE tokens for one of the configured lock periods
// and returns the created position with its stable identifier.
func (e *Engine) Stake(owner [20]byte, amount *big.Int, lockSeconds uint64) (*StakeLock, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.pauses, PauseModule); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	rate, ok := e.lockRates[lockSeconds]
	if !ok {
		return nil, ErrUnknownLockPeriod
	}
	if isZeroAddress(e.vault) {
		return nil, errVaultNotSet
	}
	ownerAccount, err := e.state.GetAccount(owner[:])
	if err != nil {
		return nil, err
	}
	ownerAccount = ownerAccount.Normalize()
	if ownerAccount.BalanceNOTE.Cmp(amount) < 0 {
		return nil, ErrInsufficientFunds
	}
	ownerAccount.BalanceNOTE = new(big.Int).Sub(ownerAccount.BalanceNOTE, amount)
	if err := e.state.PutAccount(owner[:], ownerAccount); err != nil {
		return nil, err
	}
	vaultAccount, err := e.state.GetAccount(e.vault[:])
	if err != nil {
		return nil, err
	}
	vaultAccount = vaultAccount.Normalize()
	vaultAccount.BalanceNOTE = new(big.Int).Add(vaultAccount.BalanceNOTE, amount)
	if err := e.state.PutAccount(e.vault[:], vaultAccount); err != nil {
		return nil, err
	}
	id, err := e.state.StakeNextID(owner)
	if err != nil {
		return nil, err
	}
	lock := &StakeLock{
		ID:          id,
		Owner:       owner,
		Amount:      new(big.Int).Set(amount),
		LockSeconds: lockSeconds,
		RewardRate:  new(big.Int).Set(rate),
		StakedAt:    e.now(),
		Active:      true,
		Penalty:     big.NewInt(0),
	}
	if err := e.state.StakePut(lock); err != nil {
		return nil, err
	}
	e.emit(StakeLockedEvent(hexAddr(owner), lock.ID, lock.Amount.String(), lockSeconds))
	return lock.Clone(), nil
}

// StopEarly marks a position as early-exited: a 10% principal penalty is
// locked in and reward accrual stops, but the principal remains locked until
// the original lock period elapses.
func (e *Engine) StopEarly(owner [20]byte, id uint64) (*StakeLock, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.pauses, PauseModule); err != nil {
		return nil, err
	}
	lock, ok, err := e.state.StakeGet(owner, id)
	if err != nil {
		return nil, err
	}
	if !ok || lock == nil {
		return nil, ErrStakeNotFound
	}
	if !lock.Active {
		return nil, ErrAlreadyStopped
	}
	penalty := new(big.Int).Mul(lock.Amount, big.NewInt(EarlyExitPenaltyBps))
	penalty.Div(penalty, big.NewInt(10_000))
	lock.Active = false
	lock.StoppedAt = e.now()
	lock.Penalty = penalty
	if err := e.state.StakePut(lock); err != nil {
		return nil, err
	}
	e.emit(StakeEarlyExitEvent(hexAddr(owner), id, penalty.String()))
	return lock.Clone(), nil
}

// Withdraw closes a position once its original lock period has elapsed. The
// payout is principal minus any early-exit penalty plus the accrued reward;
// the penalty moves to the rewards treasury and the position is deleted.
func (e *Engine) Withdraw(owner [20]byte, id uint64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.pauses, PauseModule); err != nil {
		return nil, err
	}
	if isZeroAddress(e.vault) {
		return nil, errVaultNotSet
	}
	if isZeroAddress(e.treasury) {
		return nil, errTreasuryNotSet
	}
	lock, ok, err := e.state.StakeGet(owner, id)
	if err != nil {
		return nil, err
	}
	if !ok || lock == nil {
		return nil, ErrStakeNotFound
	}
	now := e.now()
	if now < lock.UnlockAt() {
		return nil, ErrLockNotExpired
	}
	reward := lock.Reward(now)
	penalty := big.NewInt(0)
	if lock.Penalty != nil {
		penalty = new(big.Int).Set(lock.Penalty)
	}
	principal := new(big.Int).Sub(lock.Amount, penalty)

	vaultAccount, err := e.state.GetAccount(e.vault[:])
	if err != nil {
		return nil, err
	}
	vaultAccount = vaultAccount.Normalize()
	if vaultAccount.BalanceNOTE.Cmp(lock.Amount) < 0 {
		return nil, errVaultUnderfunded
	}

	treasuryAccount, err := e.state.GetAccount(e.treasury[:])
	if err != nil {
		return nil, err
	}
	treasuryAccount = treasuryAccount.Normalize()
	if reward.Sign() > 0 && treasuryAccount.BalanceNOTE.Cmp(reward) < 0 {
		return nil, ErrTreasuryUnderfunded
	}

	// The full locked amount leaves the vault: principal back to the owner,
	// penalty over to the treasury.
	vaultAccount.BalanceNOTE = new(big.Int).Sub(vaultAccount.BalanceNOTE, lock.Amount)
	if err := e.state.PutAccount(e.vault[:], vaultAccount); err != nil {
		return nil, err
	}
	treasuryAccount.BalanceNOTE = new(big.Int).Add(treasuryAccount.BalanceNOTE, penalty)
	treasuryAccount.BalanceNOTE = new(big.Int).Sub(treasuryAccount.BalanceNOTE, reward)
	if err := e.state.PutAccount(e.treasury[:], treasuryAccount); err != nil {
		return nil, err
	}
	ownerAccount, err := e.state.GetAccount(owner[:])
	if err != nil {
		return nil, err
	}
	ownerAccount = ownerAccount.Normalize()
	payout := new(big.Int).Add(principal, reward)
	ownerAccount.BalanceNOTE = new(big.Int).Add(ownerAccount.BalanceNOTE, payout)
	if err := e.state.PutAccount(owner[:], ownerAccount); err != nil {
		return nil, err
	}
	if err := e.state.StakeDelete(owner, id); err != nil {
		return nil, err
	}
	e.emit(StakeWithdrawnEvent(hexAddr(owner), id, principal.String(), reward.String(), penalty.String()))
	return payout, nil
}

// StakesOf returns the owner's live positions ordered by identifier.
func (e *Engine) StakesOf(owner [20]byte) ([]*StakeLock, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	locks, err := e.state.StakesByOwner(owner)
	if err != nil {
		return nil, err
	}
	out := make([]*StakeLock, 0, len(locks))
	for _, lock := range locks {
		if lock == nil {
			continue
		}
		out = append(out, lock.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// BondedOf sums the owner's locked principal across live positions.
func (e *Engine) BondedOf(owner [20]byte) (*big.Int, error) {
	locks, err := e.StakesOf(owner)
	if err != nil {
		return nil, err
	}
	total := big.NewInt(0)
	for _, lock := range locks {
		if lock.Amount != nil {
			total.Add(total, lock.Amount)
		}
	}
	return total, nil
}
