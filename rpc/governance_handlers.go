package rpc

import (
	"errors"
	"net/http"

	"tuneledger/native/governance"
)

type govProposeParams struct {
	Caller      string `json:"caller"`
	Description string `json:"description"`
}

type govVoteParams struct {
	Voter      string `json:"voter"`
	ProposalID uint64 `json:"proposalId"`
}

type govExecuteParams struct {
	Caller     string `json:"caller"`
	ProposalID uint64 `json:"proposalId"`
}

type govProposalParams struct {
	ProposalID uint64 `json:"proposalId"`
}

type govHasVotedParams struct {
	ProposalID uint64 `json:"proposalId"`
	Voter      string `json:"voter"`
}

type proposalResult struct {
	ID          uint64 `json:"id"`
	Proposer    string `json:"proposer"`
	Description string `json:"description"`
	VoteTally   string `json:"voteTally"`
	VotingStart int64  `json:"votingStart"`
	VotingEnd   int64  `json:"votingEnd"`
	Executed    bool   `json:"executed"`
	Passed      bool   `json:"passed"`
}

func proposalResultOf(p *governance.Proposal) proposalResult {
	return proposalResult{
		ID:          p.ID,
		Proposer:    bech32Of(p.Proposer),
		Description: p.Description,
		VoteTally:   p.VoteTally.String(),
		VotingStart: p.VotingStart,
		VotingEnd:   p.VotingEnd,
		Executed:    p.Executed,
		Passed:      p.Passed,
	}
}

func (s *Server) handleGovernancePropose(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params govProposeParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	proposal, err := s.node.Propose(caller, params.Description)
	if err != nil {
		writeNodeError(w, req, "failed to create proposal", err)
		return
	}
	writeResult(w, req.ID, proposalResultOf(proposal))
}

func (s *Server) handleGovernanceVote(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params govVoteParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	voter, err := decodeBech32(params.Voter)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid voter address", err.Error())
		return
	}
	vote, err := s.node.CastVote(voter, params.ProposalID)
	if err != nil {
		writeNodeError(w, req, "failed to cast vote", err)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{
		"proposalId": vote.ProposalID,
		"voter":      bech32Of(vote.Voter),
		"weight":     vote.Weight.String(),
		"votedAt":    vote.VotedAt,
	})
}

func (s *Server) handleGovernanceExecute(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params govExecuteParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	proposal, err := s.node.ExecuteProposal(caller, params.ProposalID)
	if err != nil {
		writeNodeError(w, req, "failed to execute proposal", err)
		return
	}
	writeResult(w, req.ID, proposalResultOf(proposal))
}

func (s *Server) handleGovernanceProposal(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params govProposalParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	proposal, err := s.node.Proposal(params.ProposalID)
	if err != nil {
		if errors.Is(err, governance.ErrProposalNotFound) {
			writeError(w, http.StatusNotFound, req.ID, codeServerError, "proposal not found", nil)
			return
		}
		writeNodeError(w, req, "failed to load proposal", err)
		return
	}
	writeResult(w, req.ID, proposalResultOf(proposal))
}

func (s *Server) handleGovernanceHasVoted(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params govHasVotedParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	voter, err := decodeBech32(params.Voter)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid voter address", err.Error())
		return
	}
	voted, err := s.node.HasVoted(params.ProposalID, voter)
	if err != nil {
		writeNodeError(w, req, "failed to query ballot", err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"hasVoted": voted})
}
