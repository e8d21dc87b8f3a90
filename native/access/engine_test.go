package access

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"tuneledger/native/revenue"
)

type mockState struct {
	subs map[[20]byte]*Subscription
}

func newMockState() *mockState {
	return &mockState{subs: make(map[[20]byte]*Subscription)}
}

func (m *mockState) SubscriptionGet(addr [20]byte) (*Subscription, bool, error) {
	sub, ok := m.subs[addr]
	if !ok {
		return nil, false, nil
	}
	return sub.Clone(), true, nil
}

func (m *mockState) SubscriptionPut(sub *Subscription) error {
	m.subs[sub.Account] = sub.Clone()
	return nil
}

type mockRouter struct {
	splits  []*big.Int
	credits []*big.Int
	fail    error
}

func (m *mockRouter) SplitFrom(payer [20]byte, trackID uint64, amount *big.Int) (*revenue.Distribution, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	m.splits = append(m.splits, new(big.Int).Set(amount))
	return &revenue.Distribution{
		TrackID: trackID,
		Payer:   payer,
		Amount:  new(big.Int).Set(amount),
	}, nil
}

func (m *mockRouter) CreditPlatform(payer [20]byte, amount *big.Int) error {
	if m.fail != nil {
		return m.fail
	}
	m.credits = append(m.credits, new(big.Int).Set(amount))
	return nil
}

type mockTracks struct {
	plays map[uint64]uint64
}

func (m *mockTracks) RecordPlay(id uint64) (uint64, error) {
	if m.plays == nil {
		m.plays = make(map[uint64]uint64)
	}
	m.plays[id]++
	return m.plays[id], nil
}

func addr(last byte) [20]byte {
	var out [20]byte
	out[19] = last
	return out
}

const (
	baseTime = int64(1_700_000_000)
	monthly  = uint64(30 * 24 * 60 * 60)
)

func newTestEngine(state *mockState, router *mockRouter, now *int64) *Engine {
	engine := NewEngine()
	engine.SetState(state)
	engine.SetRouter(router)
	engine.SetPlans([]Plan{{ID: "monthly", DurationSeconds: monthly, Price: big.NewInt(10_000)}})
	engine.SetNowFunc(func() int64 { return *now })
	return engine
}

func TestSubscribeChargesPlanPrice(t *testing.T) {
	state := newMockState()
	router := &mockRouter{}
	now := baseTime
	engine := newTestEngine(state, router, &now)
	account := addr(0x01)

	sub, err := engine.Subscribe(account, "monthly")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if sub.ExpiresAt != baseTime+int64(monthly) {
		t.Fatalf("expiry mismatch: %d", sub.ExpiresAt)
	}
	if len(router.credits) != 1 || router.credits[0].Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("plan price not charged: %v", router.credits)
	}

	if _, err := engine.Subscribe(account, "annual"); !errors.Is(err, ErrUnknownPlan) {
		t.Fatalf("expected unknown plan, got %v", err)
	}
}

func TestRenewalExtendsFromCurrentExpiry(t *testing.T) {
	state := newMockState()
	router := &mockRouter{}
	now := baseTime
	engine := newTestEngine(state, router, &now)
	account := addr(0x01)

	first, err := engine.Subscribe(account, "monthly")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	// Renewing half-way through must stack on the unexpired remainder.
	now = baseTime + int64(monthly)/2
	renewed, err := engine.Subscribe(account, "monthly")
	if err != nil {
		t.Fatalf("renewal failed: %v", err)
	}
	if renewed.ExpiresAt != first.ExpiresAt+int64(monthly) {
		t.Fatalf("renewal did not extend from expiry: %d", renewed.ExpiresAt)
	}

	// Renewing after expiry restarts from the current time.
	now = renewed.ExpiresAt + 1_000
	again, err := engine.Subscribe(account, "monthly")
	if err != nil {
		t.Fatalf("late renewal failed: %v", err)
	}
	if again.ExpiresAt != now+int64(monthly) {
		t.Fatalf("late renewal extended from stale expiry: %d", again.ExpiresAt)
	}
}

func TestSubscribeChargeFailureLeavesNoRecord(t *testing.T) {
	state := newMockState()
	router := &mockRouter{fail: fmt.Errorf("insufficient balance")}
	now := baseTime
	engine := newTestEngine(state, router, &now)
	account := addr(0x01)

	if _, err := engine.Subscribe(account, "monthly"); err == nil {
		t.Fatalf("expected charge failure to propagate")
	}
	if _, err := engine.SubscriptionOf(account); !errors.Is(err, ErrNoSubscription) {
		t.Fatalf("failed charge must not create a subscription: %v", err)
	}
}

func TestIsActiveTracksExpiry(t *testing.T) {
	state := newMockState()
	router := &mockRouter{}
	now := baseTime
	engine := newTestEngine(state, router, &now)
	account := addr(0x01)

	active, err := engine.IsActive(account)
	if err != nil || active {
		t.Fatalf("account without subscription must be inactive: %v", err)
	}

	sub, err := engine.Subscribe(account, "monthly")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	active, err = engine.IsActive(account)
	if err != nil || !active {
		t.Fatalf("fresh subscription must be active: %v", err)
	}

	now = sub.ExpiresAt
	active, err = engine.IsActive(account)
	if err != nil || active {
		t.Fatalf("subscription at expiry must be inactive: %v", err)
	}
}

func TestPurchaseStreamSplitsAndCountsPlay(t *testing.T) {
	state := newMockState()
	router := &mockRouter{}
	tracks := &mockTracks{}
	now := baseTime
	engine := newTestEngine(state, router, &now)
	engine.SetTracks(tracks)
	engine.SetStreamPrice(big.NewInt(250))
	buyer := addr(0x02)

	dist, plays, err := engine.PurchaseStream(buyer, 7)
	if err != nil {
		t.Fatalf("purchase failed: %v", err)
	}
	if plays != 1 {
		t.Fatalf("play count mismatch: %d", plays)
	}
	if dist.Amount.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("stream price not charged: %s", dist.Amount)
	}
	if len(router.splits) != 1 {
		t.Fatalf("payment not routed through revenue split")
	}

	if _, _, err := engine.PurchaseStream(buyer, 7); err != nil {
		t.Fatalf("second purchase failed: %v", err)
	}
	if tracks.plays[7] != 2 {
		t.Fatalf("plays not accumulated: %d", tracks.plays[7])
	}
}

func TestPurchaseStreamRequiresConfiguredPrice(t *testing.T) {
	state := newMockState()
	router := &mockRouter{}
	now := baseTime
	engine := newTestEngine(state, router, &now)
	engine.SetTracks(&mockTracks{})

	if _, _, err := engine.PurchaseStream(addr(0x02), 7); !errors.Is(err, ErrStreamPriceNotSet) {
		t.Fatalf("expected unset price rejection, got %v", err)
	}
}
