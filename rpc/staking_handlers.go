package rpc

import (
	"net/http"

	"tuneledger/native/staking"
)

type stakeLockParams struct {
	Owner       string `json:"owner"`
	Amount      string `json:"amount"`
	LockSeconds uint64 `json:"lockSeconds"`
}

type stakeIDParams struct {
	Owner   string `json:"owner"`
	StakeID uint64 `json:"stakeId"`
}

type stakeOwnerParams struct {
	Owner string `json:"owner"`
}

type stakeLockResult struct {
	ID          uint64 `json:"id"`
	Owner       string `json:"owner"`
	Amount      string `json:"amount"`
	LockSeconds uint64 `json:"lockSeconds"`
	RewardRate  string `json:"rewardRate"`
	StakedAt    int64  `json:"stakedAt"`
	UnlockAt    int64  `json:"unlockAt"`
	Active      bool   `json:"active"`
	StoppedAt   int64  `json:"stoppedAt,omitempty"`
	Penalty     string `json:"penalty"`
}

func stakeLockResultOf(lock *staking.StakeLock) stakeLockResult {
	return stakeLockResult{
		ID:          lock.ID,
		Owner:       bech32Of(lock.Owner),
		Amount:      lock.Amount.String(),
		LockSeconds: lock.LockSeconds,
		RewardRate:  lock.RewardRate.String(),
		StakedAt:    lock.StakedAt,
		UnlockAt:    lock.UnlockAt(),
		Active:      lock.Active,
		StoppedAt:   lock.StoppedAt,
		Penalty:     lock.Penalty.String(),
	}
}

func (s *Server) handleStakeLock(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params stakeLockParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	owner, err := decodeBech32(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid owner address", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	lock, err := s.node.Stake(owner, amount, params.LockSeconds)
	if err != nil {
		writeNodeError(w, req, "failed to stake", err)
		return
	}
	writeResult(w, req.ID, stakeLockResultOf(lock))
}

func (s *Server) handleStakeStopEarly(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params stakeIDParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	owner, err := decodeBech32(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid owner address", err.Error())
		return
	}
	lock, err := s.node.StopStakeEarly(owner, params.StakeID)
	if err != nil {
		writeNodeError(w, req, "failed to stop stake", err)
		return
	}
	writeResult(w, req.ID, stakeLockResultOf(lock))
}

func (s *Server) handleStakeWithdraw(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params stakeIDParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	owner, err := decodeBech32(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid owner address", err.Error())
		return
	}
	payout, err := s.node.WithdrawStake(owner, params.StakeID)
	if err != nil {
		writeNodeError(w, req, "failed to withdraw stake", err)
		return
	}
	writeResult(w, req.ID, map[string]string{"payout": payout.String()})
}

func (s *Server) handleStakeList(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params stakeOwnerParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	owner, err := decodeBech32(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid owner address", err.Error())
		return
	}
	locks, err := s.node.Stakes(owner)
	if err != nil {
		writeNodeError(w, req, "failed to list stakes", err)
		return
	}
	results := make([]stakeLockResult, 0, len(locks))
	for _, lock := range locks {
		results = append(results, stakeLockResultOf(lock))
	}
	writeResult(w, req.ID, results)
}

func (s *Server) handleStakeBonded(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params stakeOwnerParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	owner, err := decodeBech32(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid owner address", err.Error())
		return
	}
	bonded, err := s.node.BondedNOTE(owner)
	if err != nil {
		writeNodeError(w, req, "failed to sum bonded stake", err)
		return
	}
	writeResult(w, req.ID, map[string]string{"bonded": bonded.String()})
}
