package rpc

import (
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"tuneledger/native/track"
)

type trackMintParams struct {
	Artist           string `json:"artist"`
	Recipient        string `json:"recipient"`
	Metadata         string `json:"metadata"`
	URI              string `json:"uri"`
	RoyaltyRecipient string `json:"royaltyRecipient,omitempty"`
	RoyaltyBps       uint32 `json:"royaltyBps"`
	Nonce            uint64 `json:"nonce"`
	Signature        string `json:"signature"`
}

type trackTransferParams struct {
	Caller  string `json:"caller"`
	To      string `json:"to"`
	TrackID uint64 `json:"trackId"`
}

type trackIDParams struct {
	TrackID uint64 `json:"trackId"`
}

type trackRoyaltyParams struct {
	TrackID   uint64 `json:"trackId"`
	SalePrice string `json:"salePrice"`
}

type trackNonceParams struct {
	Artist string `json:"artist"`
}

type trackResult struct {
	ID               uint64 `json:"id"`
	Artist           string `json:"artist"`
	Owner            string `json:"owner"`
	Metadata         string `json:"metadata"`
	URI              string `json:"uri"`
	RoyaltyRecipient string `json:"royaltyRecipient"`
	RoyaltyBps       uint32 `json:"royaltyBps"`
	MintedAt         int64  `json:"mintedAt"`
	Plays            uint64 `json:"plays"`
}

func trackResultOf(t *track.Track) trackResult {
	return trackResult{
		ID:               t.ID,
		Artist:           bech32Of(t.Artist),
		Owner:            bech32Of(t.Owner),
		Metadata:         t.Metadata,
		URI:              t.URI,
		RoyaltyRecipient: bech32Of(t.RoyaltyRecipient),
		RoyaltyBps:       t.RoyaltyBps,
		MintedAt:         t.MintedAt,
		Plays:            t.Plays,
	}
}

func decodeSignature(raw string) ([]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	return hex.DecodeString(trimmed)
}

func (s *Server) handleTrackMint(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params trackMintParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	artist, err := decodeBech32(params.Artist)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid artist address", err.Error())
		return
	}
	recipient, err := decodeBech32(params.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid recipient address", err.Error())
		return
	}
	var royaltyTo [20]byte
	if strings.TrimSpace(params.RoyaltyRecipient) != "" {
		royaltyTo, err = decodeBech32(params.RoyaltyRecipient)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid royalty recipient", err.Error())
			return
		}
	}
	sig, err := decodeSignature(params.Signature)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid signature encoding", err.Error())
		return
	}
	auth := track.MintAuthorization{
		Artist:           artist,
		Recipient:        recipient,
		Metadata:         params.Metadata,
		URI:              params.URI,
		RoyaltyRecipient: royaltyTo,
		RoyaltyBps:       params.RoyaltyBps,
		Nonce:            params.Nonce,
	}
	minted, err := s.node.MintTrack(auth, sig)
	if err != nil {
		writeNodeError(w, req, "failed to mint track", err)
		return
	}
	writeResult(w, req.ID, trackResultOf(minted))
}

func (s *Server) handleTrackGet(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params trackIDParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	stored, err := s.node.Track(params.TrackID)
	if err != nil {
		if errors.Is(err, track.ErrTrackNotFound) {
			writeError(w, http.StatusNotFound, req.ID, codeServerError, "track not found", nil)
			return
		}
		writeNodeError(w, req, "failed to load track", err)
		return
	}
	writeResult(w, req.ID, trackResultOf(stored))
}

func (s *Server) handleTrackMetadata(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params trackIDParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	metadata, err := s.node.TrackMetadata(params.TrackID)
	if err != nil {
		writeNodeError(w, req, "failed to load metadata", err)
		return
	}
	writeResult(w, req.ID, map[string]string{"metadata": metadata})
}

func (s *Server) handleTrackURI(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params trackIDParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	uri, err := s.node.TrackURI(params.TrackID)
	if err != nil {
		writeNodeError(w, req, "failed to load uri", err)
		return
	}
	writeResult(w, req.ID, map[string]string{"uri": uri})
}

func (s *Server) handleTrackRoyaltyInfo(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params trackRoyaltyParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	salePrice, err := parseAmount(params.SalePrice)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	recipient, amount, err := s.node.RoyaltyInfo(params.TrackID, salePrice)
	if err != nil {
		writeNodeError(w, req, "failed to compute royalty", err)
		return
	}
	writeResult(w, req.ID, map[string]string{
		"recipient": bech32Of(recipient),
		"amount":    amount.String(),
	})
}

func (s *Server) handleTrackNonce(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params trackNonceParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	artist, err := decodeBech32(params.Artist)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid artist address", err.Error())
		return
	}
	nonce, err := s.node.MintNonce(artist)
	if err != nil {
		writeNodeError(w, req, "failed to load nonce", err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"nonce": nonce})
}

func (s *Server) handleTrackTransfer(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params trackTransferParams
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
	transferred, err := s.node.TransferTrack(caller, to, params.TrackID)
	if err != nil {
		writeNodeError(w, req, "failed to transfer track", err)
		return
	}
	writeResult(w, req.ID, trackResultOf(transferred))
}
