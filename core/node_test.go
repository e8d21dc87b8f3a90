package core

import (
	"errors"
	"math/big"
	"testing"

	"tuneledger/crypto"
	"tuneledger/native/access"
	"tuneledger/native/track"
	"tuneledger/storage"
)

func addr(last byte) [20]byte {
	var out [20]byte
	out[19] = last
	return out
}

var (
	owner    = addr(0xA0)
	treasury = addr(0xA1)
	revVault = addr(0xA2)
	stkVault = addr(0xA3)
	rewards  = addr(0xA4)
)

const (
	testChainID = 8651
	baseTime    = int64(1_700_000_000)
	lockMonth   = uint64(30 * 24 * 60 * 60)
)

func newTestNode(t *testing.T, now *int64) *Node {
	t.Helper()
	node := NewNode(storage.NewMemDB(), Config{
		ChainID:          testChainID,
		Owner:            owner,
		PlatformTreasury: treasury,
		RevenueVault:     revVault,
		StakingVault:     stkVault,
		RewardsTreasury:  rewards,
		PlatformFeeBps:   500,
		StreamPrice:      big.NewInt(1_000),
		Plans: []access.Plan{
			{ID: "monthly", DurationSeconds: lockMonth, Price: big.NewInt(50_000)},
		},
		LockRates: map[uint64]*big.Int{
			lockMonth: big.NewInt(1_000_000_000),
		},
	}, nil)
	node.SetNowFunc(func() int64 { return *now })
	return node
}

func mintTestTrack(t *testing.T, node *Node) (uint64, [20]byte) {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	var artist [20]byte
	copy(artist[:], key.PubKey().Address().Bytes())

	auth := track.MintAuthorization{
		Artist:           artist,
		Recipient:        artist,
		Metadata:         "ipfs://meta",
		URI:              "ipfs://audio",
		RoyaltyRecipient: artist,
		RoyaltyBps:       1_000,
		Nonce:            0,
	}
	sig, err := auth.Sign(testChainID, key)
	if err != nil {
		t.Fatalf("sign authorization: %v", err)
	}
	minted, err := node.MintTrack(auth, sig)
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	return minted.ID, artist
}

func TestStreamPurchaseFlowsThroughSplitAndWithdrawal(t *testing.T) {
	now := baseTime
	node := newTestNode(t, &now)
	trackID, artist := mintTestTrack(t, node)

	listener := addr(0x01)
	if err := node.CreditBalance(owner, listener, big.NewInt(10_000)); err != nil {
		t.Fatalf("funding failed: %v", err)
	}

	dist, plays, err := node.PurchaseStream(listener, trackID)
	if err != nil {
		t.Fatalf("stream purchase failed: %v", err)
	}
	if plays != 1 {
		t.Fatalf("play count mismatch: %d", plays)
	}
	// 5% platform fee, 10% royalty, 85% to the owner (who is the artist).
	if dist.PlatformFee.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("platform fee mismatch: %s", dist.PlatformFee)
	}
	if dist.Royalty.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("royalty mismatch: %s", dist.Royalty)
	}
	if dist.SellerProceeds.Cmp(big.NewInt(850)) != 0 {
		t.Fatalf("seller proceeds mismatch: %s", dist.SellerProceeds)
	}

	reserve, err := node.VaultReserve()
	if err != nil {
		t.Fatalf("reserve query failed: %v", err)
	}
	if reserve.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("vault reserve mismatch: %s", reserve)
	}

	// Artist accrued royalty plus seller proceeds; withdrawal settles into
	// the spendable balance and empties the vault share.
	pending, err := node.PendingWithdrawal(artist)
	if err != nil {
		t.Fatalf("pending query failed: %v", err)
	}
	if pending.Cmp(big.NewInt(950)) != 0 {
		t.Fatalf("artist pending mismatch: %s", pending)
	}
	paid, err := node.Withdraw(artist)
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if paid.Cmp(big.NewInt(950)) != 0 {
		t.Fatalf("payout mismatch: %s", paid)
	}
	account, err := node.Account(artist)
	if err != nil {
		t.Fatalf("account query failed: %v", err)
	}
	if account.Balance.Cmp(big.NewInt(950)) != 0 {
		t.Fatalf("artist balance mismatch: %s", account.Balance)
	}
}

func TestSubscriptionRevenueAccruesToTreasury(t *testing.T) {
	now := baseTime
	node := newTestNode(t, &now)

	listener := addr(0x02)
	if err := node.CreditBalance(owner, listener, big.NewInt(100_000)); err != nil {
		t.Fatalf("funding failed: %v", err)
	}

	sub, err := node.Subscribe(listener, "monthly")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if sub.ExpiresAt != baseTime+int64(lockMonth) {
		t.Fatalf("expiry mismatch: %d", sub.ExpiresAt)
	}
	active, err := node.SubscriptionActive(listener)
	if err != nil || !active {
		t.Fatalf("subscription should be active: %v", err)
	}

	pending, err := node.PendingWithdrawal(treasury)
	if err != nil {
		t.Fatalf("pending query failed: %v", err)
	}
	if pending.Cmp(big.NewInt(50_000)) != 0 {
		t.Fatalf("treasury did not accrue plan price: %s", pending)
	}
}

func TestStakingLifecycleThroughNode(t *testing.T) {
	now := baseTime
	node := newTestNode(t, &now)
	staker := addr(0x03)

	if err := node.MintNOTE(owner, staker, big.NewInt(10_000)); err != nil {
		t.Fatalf("note mint failed: %v", err)
	}
	if err := node.MintNOTE(owner, rewards, big.NewInt(1_000_000_000)); err != nil {
		t.Fatalf("treasury funding failed: %v", err)
	}

	lock, err := node.Stake(staker, big.NewInt(10_000), lockMonth)
	if err != nil {
		t.Fatalf("stake failed: %v", err)
	}
	bonded, err := node.BondedNOTE(staker)
	if err != nil || bonded.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("bonded mismatch: %s %v", bonded, err)
	}

	now = baseTime + int64(lockMonth) + 1
	payout, err := node.WithdrawStake(staker, lock.ID)
	if err != nil {
		t.Fatalf("stake withdrawal failed: %v", err)
	}
	if payout.Cmp(big.NewInt(10_000)) < 0 {
		t.Fatalf("payout below principal: %s", payout)
	}
	stakes, err := node.Stakes(staker)
	if err != nil || len(stakes) != 0 {
		t.Fatalf("stake not removed: %v %v", stakes, err)
	}
}

func TestGovernanceUsesNoteSupplyFromState(t *testing.T) {
	now := baseTime
	node := newTestNode(t, &now)
	voter := addr(0x04)

	if err := node.MintNOTE(owner, voter, big.NewInt(6_000)); err != nil {
		t.Fatalf("note mint failed: %v", err)
	}
	if err := node.MintNOTE(owner, addr(0x05), big.NewInt(4_000)); err != nil {
		t.Fatalf("note mint failed: %v", err)
	}

	proposal, err := node.Propose(owner, "rotate the treasury key")
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	if _, err := node.CastVote(voter, proposal.ID); err != nil {
		t.Fatalf("vote failed: %v", err)
	}

	now = proposal.VotingEnd + 1
	executed, err := node.ExecuteProposal(owner, proposal.ID)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	// 6000 of the 10,000 NOTE supply exceeds the 50% default threshold.
	if !executed.Passed {
		t.Fatalf("proposal should have passed")
	}
}

func TestAdministrationIsOwnerGated(t *testing.T) {
	now := baseTime
	node := newTestNode(t, &now)
	outsider := addr(0x06)

	if err := node.MintNOTE(outsider, outsider, big.NewInt(1)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected owner gate on mint, got %v", err)
	}
	if err := node.CreditBalance(outsider, outsider, big.NewInt(1)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected owner gate on credit, got %v", err)
	}
	if err := node.SetPaused(outsider, "staking", true); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected owner gate on pause, got %v", err)
	}
	if err := node.SetPaused(owner, "nonsense", true); !errors.Is(err, ErrUnknownModule) {
		t.Fatalf("expected unknown module, got %v", err)
	}

	if err := node.SetPaused(owner, "staking", true); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if !node.IsPaused("staking") {
		t.Fatalf("pause not visible")
	}
	if _, err := node.Stake(addr(0x07), big.NewInt(1), lockMonth); err == nil {
		t.Fatalf("paused module accepted a stake")
	}
	if err := node.SetPaused(owner, "staking", false); err != nil {
		t.Fatalf("unpause failed: %v", err)
	}
}

func TestRecentEventsCaptureLedgerActivity(t *testing.T) {
	now := baseTime
	node := newTestNode(t, &now)
	mintTestTrack(t, node)

	recent := node.RecentEvents(10)
	if len(recent) == 0 {
		t.Fatalf("expected at least one event")
	}
	if recent[len(recent)-1].EventType() != "track.minted" {
		t.Fatalf("unexpected event type: %s", recent[len(recent)-1].EventType())
	}
}
