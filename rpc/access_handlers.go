package rpc

import (
	"errors"
	"net/http"

	"tuneledger/native/access"
)

type accessSubscribeParams struct {
	Account string `json:"account"`
	PlanID  string `json:"planId"`
}

type accessAccountParams struct {
	Account string `json:"account"`
}

type accessStreamParams struct {
	Buyer   string `json:"buyer"`
	TrackID uint64 `json:"trackId"`
}

type subscriptionResult struct {
	Account   string `json:"account"`
	PlanID    string `json:"planId"`
	StartedAt int64  `json:"startedAt"`
	ExpiresAt int64  `json:"expiresAt"`
}

func subscriptionResultOf(sub *access.Subscription) subscriptionResult {
	return subscriptionResult{
		Account:   bech32Of(sub.Account),
		PlanID:    sub.PlanID,
		StartedAt: sub.StartedAt,
		ExpiresAt: sub.ExpiresAt,
	}
}

func (s *Server) handleAccessSubscribe(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params accessSubscribeParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	account, err := decodeBech32(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid account address", err.Error())
		return
	}
	sub, err := s.node.Subscribe(account, params.PlanID)
	if err != nil {
		writeNodeError(w, req, "failed to subscribe", err)
		return
	}
	writeResult(w, req.ID, subscriptionResultOf(sub))
}

func (s *Server) handleAccessSubscription(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params accessAccountParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	account, err := decodeBech32(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid account address", err.Error())
		return
	}
	sub, err := s.node.Subscription(account)
	if err != nil {
		if errors.Is(err, access.ErrNoSubscription) {
			writeError(w, http.StatusNotFound, req.ID, codeServerError, "no subscription on record", nil)
			return
		}
		writeNodeError(w, req, "failed to load subscription", err)
		return
	}
	writeResult(w, req.ID, subscriptionResultOf(sub))
}

func (s *Server) handleAccessIsActive(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params accessAccountParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	account, err := decodeBech32(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid account address", err.Error())
		return
	}
	active, err := s.node.SubscriptionActive(account)
	if err != nil {
		writeNodeError(w, req, "failed to query subscription", err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"active": active})
}

func (s *Server) handleAccessPurchaseStream(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params accessStreamParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	buyer, err := decodeBech32(params.Buyer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid buyer address", err.Error())
		return
	}
	dist, plays, err := s.node.PurchaseStream(buyer, params.TrackID)
	if err != nil {
		writeNodeError(w, req, "failed to purchase stream", err)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{
		"distribution": distributionResultOf(dist),
		"plays":        plays,
	})
}
