package governance

import (
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"time"

	"tuneledger/core/events"
	"tuneledger/core/types"
	"tuneledger/native/common"
)

// DefaultVotingPeriodSeconds is the fixed voting window applied when the
// policy does not override it.
const DefaultVotingPeriodSeconds uint64 = 7 * 24 * 60 * 60 // 7 days

// DefaultPassThresholdBps requires the tally to exceed half the NOTE supply.
const DefaultPassThresholdBps uint64 = 5_000

var (
	errNilState         = errors.New("governance: state not configured")
	ErrNotOwner         = errors.New("governance: caller is not the platform owner")
	ErrEmptyDescription = errors.New("governance: proposal description required")
	ErrProposalNotFound = errors.New("governance: proposal not found")
	ErrVotingClosed     = errors.New("governance: voting period closed")
	ErrAlreadyVoted     = errors.New("governance: voter already cast a ballot")
	ErrNoVotingPower    = errors.New("governance: voter has zero voting power")
	ErrVotingOpen       = errors.New("governance: voting still in progress")
	ErrAlreadyExecuted  = errors.New("governance: proposal already executed")
	errTallyOverflow    = errors.New("governance: vote tally overflow")
)

// PauseModule is the identifier used with the administrative pause switch.
const PauseModule = "governance"

type engineState interface {
	GetAccount(addr []byte) (*types.Account, error)
	NoteTotalSupply() (*big.Int, error)
	GovernanceNextProposalID() (uint64, error)
	GovernanceGetProposal(id uint64) (*Proposal, bool, error)
	GovernancePutProposal(p *Proposal) error
	GovernanceHasVoted(id uint64, voter [20]byte) (bool, error)
	GovernancePutVote(v *Vote) error
}

// Engine orchestrates the proposal/vote/execute state machine. Vote weight is
// the voter's NOTE balance at ballot time; balances are deliberately not
// snapshotted at proposal creation (see the repo design notes).
type Engine struct {
	state               engineState
	emitter             events.Emitter
	nowFn               func() int64
	pauses              common.PauseView
	owner               [20]byte
	votingPeriodSeconds uint64
	passThresholdBps    uint64
}

// NewEngine constructs a governance engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter:             events.NoopEmitter{},
		votingPeriodSeconds: DefaultVotingPeriodSeconds,
		passThresholdBps:    DefaultPassThresholdBps,
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// SetState wires the engine to the state backend providing persistence.
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

// SetOwner configures the platform owner allowed to propose and execute.
func (e *Engine) SetOwner(addr [20]byte) { e.owner = addr }

// SetVotingPeriodSeconds overrides the fixed voting window. Zero restores the
// default.
func (e *Engine) SetVotingPeriodSeconds(seconds uint64) {
	if seconds == 0 {
		e.votingPeriodSeconds = DefaultVotingPeriodSeconds
		return
	}
	e.votingPeriodSeconds = seconds
}

// SetPassThresholdBps overrides the supply fraction a tally must exceed.
func (e *Engine) SetPassThresholdBps(bps uint64) {
	if bps == 0 || bps > 10_000 {
		e.passThresholdBps = DefaultPassThresholdBps
		return
	}
	e.passThresholdBps = bps
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

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}

// Propose opens a new proposal with the fixed voting window. Only the
// platform owner may propose.
func (e *Engine) Propose(caller [20]byte, description string) (*Proposal, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.pauses, PauseModule); err != nil {
		return nil, err
	}
	if caller != e.owner || isZeroAddress(e.owner) {
		return nil, ErrNotOwner
	}
	trimmed := strings.TrimSpace(description)
	if trimmed == "" {
		return nil, ErrEmptyDescription
	}
	id, err := e.state.GovernanceNextProposalID()
	if err != nil {
		return nil, err
	}
	now := e.now()
	proposal := &Proposal{
		ID:          id,
		Proposer:    caller,
		Description: trimmed,
		VoteTally:   big.NewInt(0),
		VotingStart: now,
		VotingEnd:   now + int64(e.votingPeriodSeconds),
	}
	if err := e.state.GovernancePutProposal(proposal); err != nil {
		return nil, err
	}
	e.emit(ProposedEvent(proposal))
	return proposal.Clone(), nil
}

// Vote casts a ballot weighted by the voter's NOTE balance at call time.
func (e *Engine) Vote(voter [20]byte, proposalID uint64) (*Vote, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.pauses, PauseModule); err != nil {
		return nil, err
	}
	proposal, ok, err := e.state.GovernanceGetProposal(proposalID)
	if err != nil {
		return nil, err
	}
	if !ok || proposal == nil {
		return nil, ErrProposalNotFound
	}
	now := e.now()
	if now < proposal.VotingStart || now > proposal.VotingEnd || proposal.Executed {
		return nil, ErrVotingClosed
	}
	voted, err := e.state.GovernanceHasVoted(proposalID, voter)
	if err != nil {
		return nil, err
	}
	if voted {
		return nil, ErrAlreadyVoted
	}
	account, err := e.state.GetAccount(voter[:])
	if err != nil {
		return nil, err
	}
	account = account.Normalize()
	if account.BalanceNOTE.Sign() <= 0 {
		return nil, ErrNoVotingPower
	}
	weight := new(big.Int).Set(account.BalanceNOTE)
	if proposal.VoteTally == nil {
		proposal.VoteTally = big.NewInt(0)
	}
	tally := new(big.Int).Add(proposal.VoteTally, weight)
	if tally.Cmp(proposal.VoteTally) < 0 {
		return nil, errTallyOverflow
	}
	proposal.VoteTally = tally

	vote := &Vote{
		ProposalID: proposalID,
		Voter:      voter,
		Weight:     weight,
		VotedAt:    now,
	}
	if err := e.state.GovernancePutVote(vote); err != nil {
		return nil, err
	}
	if err := e.state.GovernancePutProposal(proposal); err != nil {
		return nil, err
	}
	e.emit(VoteCastEvent(vote, hexAddr(voter)))
	return vote.Clone(), nil
}

// Execute settles a proposal after its voting window closes. The proposal
// passes when the tally exceeds the configured fraction of the NOTE total
// supply. A proposal executes at most once; later attempts fail.
func (e *Engine) Execute(caller [20]byte, proposalID uint64) (*Proposal, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.pauses, PauseModule); err != nil {
		return nil, err
	}
	if caller != e.owner || isZeroAddress(e.owner) {
		return nil, ErrNotOwner
	}
	proposal, ok, err := e.state.GovernanceGetProposal(proposalID)
	if err != nil {
		return nil, err
	}
	if !ok || proposal == nil {
		return nil, ErrProposalNotFound
	}
	if proposal.Executed {
		return nil, ErrAlreadyExecuted
	}
	now := e.now()
	if now <= proposal.VotingEnd {
		return nil, ErrVotingOpen
	}
	supply, err := e.state.NoteTotalSupply()
	if err != nil {
		return nil, err
	}
	if supply == nil {
		supply = big.NewInt(0)
	}
	tally := proposal.VoteTally
	if tally == nil {
		tally = big.NewInt(0)
	}
	// tally/supply > threshold/10000, evaluated without division.
	lhs := new(big.Int).Mul(tally, big.NewInt(10_000))
	rhs := new(big.Int).Mul(supply, new(big.Int).SetUint64(e.passThresholdBps))
	proposal.Passed = supply.Sign() > 0 && lhs.Cmp(rhs) > 0
	proposal.Executed = true
	if err := e.state.GovernancePutProposal(proposal); err != nil {
		return nil, err
	}
	e.emit(ExecutedEvent(proposal))
	return proposal.Clone(), nil
}

// ProposalOf returns the stored proposal.
func (e *Engine) ProposalOf(id uint64) (*Proposal, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	proposal, ok, err := e.state.GovernanceGetProposal(id)
	if err != nil {
		return nil, err
	}
	if !ok || proposal == nil {
		return nil, ErrProposalNotFound
	}
	return proposal.Clone(), nil
}

// HasVoted reports whether the voter already cast a ballot for the proposal.
func (e *Engine) HasVoted(id uint64, voter [20]byte) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	return e.state.GovernanceHasVoted(id, voter)
}
