package access

import (
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"time"

	"tuneledger/core/events"
	"tuneledger/core/types"
	"tuneledger/native/common"
	"tuneledger/native/revenue"
)

var (
	errNilState           = errors.New("access engine: state not configured")
	errRouterNotSet       = errors.New("access engine: revenue router not configured")
	errTracksNotSet       = errors.New("access engine: track ledger not configured")
	ErrUnknownPlan        = errors.New("access engine: unknown subscription plan")
	ErrStreamPriceNotSet  = errors.New("access engine: stream price not configured")
	ErrNoSubscription     = errors.New("access engine: no subscription on record")
)

// PauseModule is the identifier used with the administrative pause switch.
const PauseModule = "access"

type engineState interface {
	SubscriptionGet(addr [20]byte) (*Subscription, bool, error)
	SubscriptionPut(sub *Subscription) error
}

// revenueRouter is the slice of the revenue engine the access paths need.
type revenueRouter interface {
	SplitFrom(payer [20]byte, trackID uint64, amount *big.Int) (*revenue.Distribution, error)
	CreditPlatform(payer [20]byte, amount *big.Int) error
}

// trackLedger is the slice of the track engine the stream path needs.
type trackLedger interface {
	RecordPlay(id uint64) (uint64, error)
}

// Engine sells subscriptions and pay-per-stream access. Both paths route
// their payments through the revenue engine so that every unit entering the
// vault is matched by a pending withdrawal credit.
type Engine struct {
	state       engineState
	emitter     events.Emitter
	nowFn       func() int64
	pauses      common.PauseView
	router      revenueRouter
	tracks      trackLedger
	plans       map[string]Plan
	streamPrice *big.Int
}

// NewEngine constructs an access engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		plans:   map[string]Plan{},
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

// SetRouter wires the revenue engine used to settle payments.
func (e *Engine) SetRouter(r revenueRouter) { e.router = r }

// SetTracks wires the track ledger used to record plays.
func (e *Engine) SetTracks(t trackLedger) { e.tracks = t }

// SetPlans replaces the configured subscription plans.
func (e *Engine) SetPlans(plans []Plan) {
	e.plans = make(map[string]Plan, len(plans))
	for _, plan := range plans {
		id := strings.TrimSpace(plan.ID)
		if id == "" || plan.DurationSeconds == 0 || plan.Price == nil || plan.Price.Sign() <= 0 {
			continue
		}
		plan.ID = id
		e.plans[id] = plan.Clone()
	}
}

// SetStreamPrice configures the flat pay-per-stream price.
func (e *Engine) SetStreamPrice(price *big.Int) {
	if price == nil {
		e.streamPrice = nil
		return
	}
	e.streamPrice = new(big.Int).Set(price)
}

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

// Subscribe charges the plan price and opens or extends the account's access
// window. Renewing before expiry extends from the current expiry.
func (e *Engine) Subscribe(account [20]byte, planID string) (*Subscription, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.pauses, PauseModule); err != nil {
		return nil, err
	}
	if e.router == nil {
		return nil, errRouterNotSet
	}
	plan, ok := e.plans[strings.TrimSpace(planID)]
	if !ok {
		return nil, ErrUnknownPlan
	}
	if err := e.router.CreditPlatform(account, plan.Price); err != nil {
		return nil, err
	}
	now := e.now()
	sub, ok, err := e.state.SubscriptionGet(account)
	if err != nil {
		return nil, err
	}
	if !ok || sub == nil {
		sub = &Subscription{Account: account, StartedAt: now}
	}
	base := now
	if sub.ExpiresAt > now {
		base = sub.ExpiresAt
	}
	sub.PlanID = plan.ID
	sub.ExpiresAt = base + int64(plan.DurationSeconds)
	if err := e.state.SubscriptionPut(sub); err != nil {
		return nil, err
	}
	e.emit(SubscribedEvent(hexAddr(account), plan.ID, sub.ExpiresAt))
	return sub.Clone(), nil
}

// SubscriptionOf returns the stored subscription record.
func (e *Engine) SubscriptionOf(account [20]byte) (*Subscription, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	sub, ok, err := e.state.SubscriptionGet(account)
	if err != nil {
		return nil, err
	}
	if !ok || sub == nil {
		return nil, ErrNoSubscription
	}
	return sub.Clone(), nil
}

// IsActive reports whether the account holds an unexpired subscription.
func (e *Engine) IsActive(account [20]byte) (bool, error) {
	sub, err := e.SubscriptionOf(account)
	if errors.Is(err, ErrNoSubscription) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return e.now() < sub.ExpiresAt, nil
}

// PurchaseStream settles a single pay-per-stream purchase: the buyer pays the
// configured stream price, the payment is split like any other track revenue,
// and the track's play counter advances.
func (e *Engine) PurchaseStream(buyer [20]byte, trackID uint64) (*revenue.Distribution, uint64, error) {
	if e == nil || e.state == nil {
		return nil, 0, errNilState
	}
	if err := common.Guard(e.pauses, PauseModule); err != nil {
		return nil, 0, err
	}
	if e.router == nil {
		return nil, 0, errRouterNotSet
	}
	if e.tracks == nil {
		return nil, 0, errTracksNotSet
	}
	if e.streamPrice == nil || e.streamPrice.Sign() <= 0 {
		return nil, 0, ErrStreamPriceNotSet
	}
	dist, err := e.router.SplitFrom(buyer, trackID, e.streamPrice)
	if err != nil {
		return nil, 0, err
	}
	plays, err := e.tracks.RecordPlay(trackID)
	if err != nil {
		return nil, 0, err
	}
	e.emit(StreamEvent(hexAddr(buyer), trackID, e.streamPrice.String(), plays))
	return dist, plays, nil
}
