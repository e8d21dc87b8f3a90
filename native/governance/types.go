package governance

import "math/big"

// Proposal is a platform governance proposal with a fixed voting window.
// Weight accumulates in VoteTally as ballots arrive; the outcome is decided at
// execution time against the NOTE total supply.
type Proposal struct {
	ID          uint64   `json:"id"`
	Proposer    [20]byte `json:"proposer"`
	Description string   `json:"description"`
	VoteTally   *big.Int `json:"voteTally"`
	VotingStart int64    `json:"votingStart"`
	VotingEnd   int64    `json:"votingEnd"`
	Executed    bool     `json:"executed"`
	Passed      bool     `json:"passed"`
}

// Clone returns a deep copy of the proposal.
func (p *Proposal) Clone() *Proposal {
	if p == nil {
		return nil
	}
	clone := *p
	if p.VoteTally != nil {
		clone.VoteTally = new(big.Int).Set(p.VoteTally)
	}
	return &clone
}

// Vote records a single weighted ballot. One vote per (voter, proposal).
type Vote struct {
	ProposalID uint64   `json:"proposalId"`
	Voter      [20]byte `json:"voter"`
	Weight     *big.Int `json:"weight"`
	VotedAt    int64    `json:"votedAt"`
}

// Clone returns a deep copy of the vote.
func (v *Vote) Clone() *Vote {
	if v == nil {
		return nil
	}
	clone := *v
	if v.Weight != nil {
		clone.Weight = new(big.Int).Set(v.Weight)
	}
	return &clone
}
