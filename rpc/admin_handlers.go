package rpc

import (
	"net/http"

	"tuneledger/core/types"
)

type adminFundParams struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type adminPauseParams struct {
	Caller string `json:"caller,omitempty"`
	Module string `json:"module"`
	Paused bool   `json:"paused"`
}

type ledgerAccountParams struct {
	Account string `json:"account"`
}

type ledgerEventsParams struct {
	Limit int `json:"limit,omitempty"`
}

type accountResult struct {
	Address     string `json:"address"`
	Balance     string `json:"balance"`
	BalanceNOTE string `json:"balanceNOTE"`
	MintNonce   uint64 `json:"mintNonce"`
}

func (s *Server) handleAdminMintNote(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params adminFundParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	to, err := decodeBech32(params.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid destination address", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.MintNOTE(caller, to, amount); err != nil {
		writeNodeError(w, req, "failed to mint NOTE", err)
		return
	}
	writeResult(w, req.ID, map[string]string{"minted": amount.String()})
}

func (s *Server) handleAdminCreditBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params adminFundParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	to, err := decodeBech32(params.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid destination address", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.CreditBalance(caller, to, amount); err != nil {
		writeNodeError(w, req, "failed to credit balance", err)
		return
	}
	writeResult(w, req.ID, map[string]string{"credited": amount.String()})
}

func (s *Server) handleAdminSetPaused(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params adminPauseParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := s.node.SetPaused(caller, params.Module, params.Paused); err != nil {
		writeNodeError(w, req, "failed to toggle pause", err)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{
		"module": params.Module,
		"paused": params.Paused,
	})
}

func (s *Server) handleAdminIsPaused(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params adminPauseParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	writeResult(w, req.ID, map[string]bool{"paused": s.node.IsPaused(params.Module)})
}

func (s *Server) handleLedgerGetAccount(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params ledgerAccountParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	account, err := decodeBech32(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid account address", err.Error())
		return
	}
	stored, err := s.node.Account(account)
	if err != nil {
		writeNodeError(w, req, "failed to load account", err)
		return
	}
	writeResult(w, req.ID, accountResult{
		Address:     params.Account,
		Balance:     stored.Balance.String(),
		BalanceNOTE: stored.BalanceNOTE.String(),
		MintNonce:   stored.MintNonce,
	})
}

func (s *Server) handleLedgerNoteSupply(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	supply, err := s.node.NoteTotalSupply()
	if err != nil {
		writeNodeError(w, req, "failed to load supply", err)
		return
	}
	writeResult(w, req.ID, map[string]string{"totalSupply": supply.String()})
}

func (s *Server) handleLedgerEvents(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	limit := 0
	if len(req.Params) == 1 {
		var params ledgerEventsParams
		if err := singleParam(req, &params); err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return
		}
		limit = params.Limit
	}
	recent := s.node.RecentEvents(limit)
	results := make([]interface{}, 0, len(recent))
	for _, evt := range recent {
		if carrier, ok := evt.(interface{ Event() *types.Event }); ok {
			results = append(results, carrier.Event())
			continue
		}
		results = append(results, map[string]string{"type": evt.EventType()})
	}
	writeResult(w, req.ID, results)
}
