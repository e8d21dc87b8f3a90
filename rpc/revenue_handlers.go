package rpc

import (
	"net/http"

	"tuneledger/native/revenue"
)

type revenueSourceParams struct {
	Caller string `json:"caller,omitempty"`
	Source string `json:"source"`
}

type revenueDistributeParams struct {
	Source  string `json:"source"`
	TrackID uint64 `json:"trackId"`
	Amount  string `json:"amount"`
	Paid    string `json:"paid"`
}

type revenueAccountParams struct {
	Account string `json:"account"`
}

type distributionResult struct {
	TrackID          uint64 `json:"trackId"`
	Payer            string `json:"payer"`
	Amount           string `json:"amount"`
	PlatformFee      string `json:"platformFee"`
	RoyaltyRecipient string `json:"royaltyRecipient"`
	Royalty          string `json:"royalty"`
	Seller           string `json:"seller"`
	SellerProceeds   string `json:"sellerProceeds"`
	DistributedAt    int64  `json:"distributedAt"`
}

func distributionResultOf(d *revenue.Distribution) distributionResult {
	return distributionResult{
		TrackID:          d.TrackID,
		Payer:            bech32Of(d.Payer),
		Amount:           d.Amount.String(),
		PlatformFee:      d.PlatformFee.String(),
		RoyaltyRecipient: bech32Of(d.RoyaltyRecipient),
		Royalty:          d.Royalty.String(),
		Seller:           bech32Of(d.Seller),
		SellerProceeds:   d.SellerProceeds.String(),
		DistributedAt:    d.DistributedAt,
	}
}

func (s *Server) handleRevenueAuthorizeSource(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params revenueSourceParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	source, err := decodeBech32(params.Source)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid source address", err.Error())
		return
	}
	if err := s.node.AuthorizeRevenueSource(caller, source); err != nil {
		writeNodeError(w, req, "failed to authorize source", err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"authorized": true})
}

func (s *Server) handleRevenueRevokeSource(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params revenueSourceParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	source, err := decodeBech32(params.Source)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid source address", err.Error())
		return
	}
	if err := s.node.RevokeRevenueSource(caller, source); err != nil {
		writeNodeError(w, req, "failed to revoke source", err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"authorized": false})
}

func (s *Server) handleRevenueIsSource(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params revenueSourceParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	source, err := decodeBech32(params.Source)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid source address", err.Error())
		return
	}
	authorized, err := s.node.IsRevenueSource(source)
	if err != nil {
		writeNodeError(w, req, "failed to query source", err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"authorized": authorized})
}

func (s *Server) handleRevenueDistribute(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params revenueDistributeParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	source, err := decodeBech32(params.Source)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid source address", err.Error())
		return
	}
	declared, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	paid, err := parseAmount(params.Paid)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	dist, err := s.node.Distribute(source, params.TrackID, declared, paid)
	if err != nil {
		writeNodeError(w, req, "failed to distribute revenue", err)
		return
	}
	writeResult(w, req.ID, distributionResultOf(dist))
}

func (s *Server) handleRevenuePending(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params revenueAccountParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	account, err := decodeBech32(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid account address", err.Error())
		return
	}
	pending, err := s.node.PendingWithdrawal(account)
	if err != nil {
		writeNodeError(w, req, "failed to query pending balance", err)
		return
	}
	writeResult(w, req.ID, map[string]string{"pending": pending.String()})
}

func (s *Server) handleRevenueVaultReserve(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	reserve, err := s.node.VaultReserve()
	if err != nil {
		writeNodeError(w, req, "failed to query vault reserve", err)
		return
	}
	writeResult(w, req.ID, map[string]string{"reserve": reserve.String()})
}

func (s *Server) handleRevenueWithdraw(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params revenueAccountParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	account, err := decodeBech32(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid account address", err.Error())
		return
	}
	amount, err := s.node.Withdraw(account)
	if err != nil {
		writeNodeError(w, req, "failed to withdraw", err)
		return
	}
	writeResult(w, req.ID, map[string]string{"amount": amount.String()})
}
