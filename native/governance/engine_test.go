package governance

import (
	"errors"
	"math/big"
	"testing"

	"tuneledger/core/types"
)

type mockState struct {
	accounts  map[string]*types.Account
	supply    *big.Int
	nextID    uint64
	proposals map[uint64]*Proposal
	votes     map[string]*Vote
}

func newMockState() *mockState {
	return &mockState{
		accounts:  make(map[string]*types.Account),
		supply:    big.NewInt(0),
		proposals: make(map[uint64]*Proposal),
		votes:     make(map[string]*Vote),
	}
}

func voteKey(id uint64, voter [20]byte) string {
	return string(append([]byte{byte(id)}, voter[:]...))
}

func (m *mockState) GetAccount(addr []byte) (*types.Account, error) {
	if acc, ok := m.accounts[string(addr)]; ok {
		clone := *acc
		clone.Balance = new(big.Int).Set(acc.Balance)
		clone.BalanceNOTE = new(big.Int).Set(acc.BalanceNOTE)
		return &clone, nil
	}
	return (&types.Account{}).Normalize(), nil
}

func (m *mockState) NoteTotalSupply() (*big.Int, error) {
	return new(big.Int).Set(m.supply), nil
}

func (m *mockState) GovernanceNextProposalID() (uint64, error) {
	m.nextID++
	return m.nextID, nil
}

func (m *mockState) GovernanceGetProposal(id uint64) (*Proposal, bool, error) {
	stored, ok := m.proposals[id]
	if !ok {
		return nil, false, nil
	}
	return stored.Clone(), true, nil
}

func (m *mockState) GovernancePutProposal(p *Proposal) error {
	m.proposals[p.ID] = p.Clone()
	return nil
}

func (m *mockState) GovernanceHasVoted(id uint64, voter [20]byte) (bool, error) {
	_, ok := m.votes[voteKey(id, voter)]
	return ok, nil
}

func (m *mockState) GovernancePutVote(v *Vote) error {
	m.votes[voteKey(v.ProposalID, v.Voter)] = v.Clone()
	return nil
}

func (m *mockState) setNOTE(addr [20]byte, amount int64) {
	m.accounts[string(addr[:])] = &types.Account{
		Balance:     big.NewInt(0),
		BalanceNOTE: big.NewInt(amount),
	}
}

func addr(last byte) [20]byte {
	var out [20]byte
	out[19] = last
	return out
}

var (
	owner  = addr(0xA0)
	voterA = addr(0xB0)
	voterB = addr(0xB1)
)

const baseTime = int64(1_700_000_000)

func newTestEngine(state *mockState, now *int64) *Engine {
	engine := NewEngine()
	engine.SetState(state)
	engine.SetOwner(owner)
	engine.SetNowFunc(func() int64 { return *now })
	return engine
}

func TestProposeIsOwnerGatedAndOpensWindow(t *testing.T) {
	state := newMockState()
	now := baseTime
	engine := newTestEngine(state, &now)

	if _, err := engine.Propose(voterA, "raise fees"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected owner gate, got %v", err)
	}
	if _, err := engine.Propose(owner, "   "); !errors.Is(err, ErrEmptyDescription) {
		t.Fatalf("expected description requirement, got %v", err)
	}

	proposal, err := engine.Propose(owner, "raise fees")
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	if proposal.ID != 1 {
		t.Fatalf("unexpected proposal id: %d", proposal.ID)
	}
	if proposal.VotingEnd != baseTime+int64(DefaultVotingPeriodSeconds) {
		t.Fatalf("voting window mismatch: %d", proposal.VotingEnd)
	}
}

func TestVoteWeightIsBalanceAtBallotTime(t *testing.T) {
	state := newMockState()
	now := baseTime
	engine := newTestEngine(state, &now)
	state.setNOTE(voterA, 1_000)

	proposal, err := engine.Propose(owner, "proposal")
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}

	vote, err := engine.Vote(voterA, proposal.ID)
	if err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	if vote.Weight.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("vote weight mismatch: %s", vote.Weight)
	}

	stored, err := engine.ProposalOf(proposal.ID)
	if err != nil {
		t.Fatalf("proposal load failed: %v", err)
	}
	if stored.VoteTally.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("tally mismatch: %s", stored.VoteTally)
	}
}

func TestVoteRejectsDoubleVoteAndZeroPower(t *testing.T) {
	state := newMockState()
	now := baseTime
	engine := newTestEngine(state, &now)
	state.setNOTE(voterA, 500)

	proposal, err := engine.Propose(owner, "proposal")
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}

	if _, err := engine.Vote(voterA, proposal.ID); err != nil {
		t.Fatalf("first vote failed: %v", err)
	}
	if _, err := engine.Vote(voterA, proposal.ID); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("expected double-vote rejection, got %v", err)
	}
	if _, err := engine.Vote(voterB, proposal.ID); !errors.Is(err, ErrNoVotingPower) {
		t.Fatalf("expected zero-power rejection, got %v", err)
	}
	if _, err := engine.Vote(voterA, 99); !errors.Is(err, ErrProposalNotFound) {
		t.Fatalf("expected unknown proposal, got %v", err)
	}
}

func TestVoteRejectedAfterWindowCloses(t *testing.T) {
	state := newMockState()
	now := baseTime
	engine := newTestEngine(state, &now)
	state.setNOTE(voterA, 500)

	proposal, err := engine.Propose(owner, "proposal")
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}

	now = proposal.VotingEnd + 1
	if _, err := engine.Vote(voterA, proposal.ID); !errors.Is(err, ErrVotingClosed) {
		t.Fatalf("expected closed window, got %v", err)
	}
}

func TestExecuteSettlesOnceAfterWindow(t *testing.T) {
	state := newMockState()
	now := baseTime
	engine := newTestEngine(state, &now)
	state.supply = big.NewInt(10_000)
	state.setNOTE(voterA, 6_000)

	proposal, err := engine.Propose(owner, "proposal")
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	if _, err := engine.Vote(voterA, proposal.ID); err != nil {
		t.Fatalf("vote failed: %v", err)
	}

	// Settlement is rejected while the window is open and for non-owners.
	if _, err := engine.Execute(owner, proposal.ID); !errors.Is(err, ErrVotingOpen) {
		t.Fatalf("expected open-window rejection, got %v", err)
	}
	now = proposal.VotingEnd + 1
	if _, err := engine.Execute(voterA, proposal.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected owner gate, got %v", err)
	}

	executed, err := engine.Execute(owner, proposal.ID)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	// 6000 of 10000 exceeds the 50% threshold.
	if !executed.Passed {
		t.Fatalf("proposal should have passed")
	}
	if !executed.Executed {
		t.Fatalf("proposal not marked executed")
	}

	if _, err := engine.Execute(owner, proposal.ID); !errors.Is(err, ErrAlreadyExecuted) {
		t.Fatalf("expected single execution, got %v", err)
	}
}

func TestExecuteFailsQuorumAtExactThreshold(t *testing.T) {
	state := newMockState()
	now := baseTime
	engine := newTestEngine(state, &now)
	state.supply = big.NewInt(10_000)
	state.setNOTE(voterA, 5_000)

	proposal, err := engine.Propose(owner, "proposal")
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	if _, err := engine.Vote(voterA, proposal.ID); err != nil {
		t.Fatalf("vote failed: %v", err)
	}

	now = proposal.VotingEnd + 1
	executed, err := engine.Execute(owner, proposal.ID)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	// The tally must strictly exceed half the supply; exactly half fails.
	if executed.Passed {
		t.Fatalf("proposal at exact threshold must not pass")
	}
}

func TestExecuteWithZeroSupplyNeverPasses(t *testing.T) {
	state := newMockState()
	now := baseTime
	engine := newTestEngine(state, &now)

	proposal, err := engine.Propose(owner, "proposal")
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	now = proposal.VotingEnd + 1
	executed, err := engine.Execute(owner, proposal.ID)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if executed.Passed {
		t.Fatalf("zero supply must not pass a proposal")
	}
}
