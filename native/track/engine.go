package track

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

var (
	errNilState           = errors.New("track engine: state not configured")
	ErrInvalidSignature   = errors.New("track engine: invalid mint signature")
	ErrInvalidInput       = errors.New("track engine: invalid input")
	ErrStaleNonce         = errors.New("track engine: authorization nonce mismatch")
	ErrRoyaltyOverflow    = errors.New("track engine: royalty plus platform fee exceeds 100%")
	ErrTrackNotFound      = errors.New("track engine: track not found")
	ErrNotOwner           = errors.New("track engine: caller does not own track")
	ErrInvalidRoyaltyBps  = errors.New("track engine: royalty basis points out of range")
	ErrRecipientNotSet    = errors.New("track engine: royalty recipient required")
	errTrackIDExhausted   = errors.New("track engine: track id space exhausted")
	errSignatureMalformed = errors.New("track engine: malformed signature")
)

// PauseModule is the identifier used with the administrative pause switch.
const PauseModule = "track"

type engineState interface {
	TrackNextID() (uint64, error)
	TrackGet(id uint64) (*Track, bool, error)
	TrackPut(t *Track) error
	MintNonce(addr [20]byte) (uint64, error)
	SetMintNonce(addr [20]byte, nonce uint64) error
}

// Engine owns the music token ledger: signature-gated minting, write-once
// metadata, royalty configuration, and ownership transfers.
type Engine struct {
	state          engineState
	emitter        events.Emitter
	nowFn          func() int64
	pauses         common.PauseView
	chainID        uint64
	platformFeeBps uint32
}

// NewEngine constructs a track engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// SetState configures the state backend used by the engine.
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

// SetChainID fixes the domain-separation chain identifier used when hashing
// mint authorizations.
func (e *Engine) SetChainID(id uint64) { e.chainID = id }

// SetPlatformFeeBps records the platform fee so that mints whose royalty would
// make the combined fees exceed 100% of a sale are rejected up front.
func (e *Engine) SetPlatformFeeBps(bps uint32) { e.platformFeeBps = bps }

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

// Mint verifies the artist's signed authorization and, on success, allocates
// the next track identifier, persists the immutable track record, and
// increments the artist's nonce exactly once.
func (e *Engine) Mint(auth MintAuthorization, sig []byte) (*Track, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.pauses, PauseModule); err != nil {
		return nil, err
	}
	if isZeroAddress(auth.Artist) || isZeroAddress(auth.Recipient) {
		return nil, ErrInvalidInput
	}
	metadata := strings.TrimSpace(auth.Metadata)
	uri := strings.TrimSpace(auth.URI)
	if metadata == "" || uri == "" {
		return nil, ErrInvalidInput
	}
	if auth.RoyaltyBps > BpsDenominator {
		return nil, ErrInvalidRoyaltyBps
	}
	if auth.RoyaltyBps > 0 && isZeroAddress(auth.RoyaltyRecipient) {
		return nil, ErrRecipientNotSet
	}
	if uint64(auth.RoyaltyBps)+uint64(e.platformFeeBps) > BpsDenominator {
		return nil, ErrRoyaltyOverflow
	}
	currentNonce, err := e.state.MintNonce(auth.Artist)
	if err != nil {
		return nil, err
	}
	if auth.Nonce != currentNonce {
		return nil, ErrStaleNonce
	}
	if len(sig) != 65 {
		return nil, errSignatureMalformed
	}
	signer, err := RecoverSigner(auth.Hash(e.chainID), sig)
	if err != nil {
		return nil, ErrInvalidSignature
	}
	if signer != auth.Artist {
		return nil, ErrInvalidSignature
	}
	id, err := e.state.TrackNextID()
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, errTrackIDExhausted
	}
	minted := &Track{
		ID:               id,
		Artist:           auth.Artist,
		Owner:            auth.Recipient,
		Metadata:         metadata,
		URI:              uri,
		RoyaltyRecipient: auth.RoyaltyRecipient,
		RoyaltyBps:       auth.RoyaltyBps,
		MintedAt:         e.now(),
	}
	if err := e.state.TrackPut(minted); err != nil {
		return nil, err
	}
	if err := e.state.SetMintNonce(auth.Artist, currentNonce+1); err != nil {
		return nil, err
	}
	e.emit(TrackMintedEvent(minted.ID, hexAddr(minted.Artist), hexAddr(minted.Owner), minted.URI, minted.RoyaltyBps))
	return minted.Clone(), nil
}

// Get returns the stored track record.
func (e *Engine) Get(id uint64) (*Track, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	stored, ok, err := e.state.TrackGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || stored == nil {
		return nil, ErrTrackNotFound
	}
	return stored.Clone(), nil
}

// MetadataOf returns the on-ledger metadata fixed at mint time.
func (e *Engine) MetadataOf(id uint64) (string, error) {
	stored, err := e.Get(id)
	if err != nil {
		return "", err
	}
	return stored.Metadata, nil
}

// URIOf returns the off-ledger document reference fixed at mint time.
func (e *Engine) URIOf(id uint64) (string, error) {
	stored, err := e.Get(id)
	if err != nil {
		return "", err
	}
	return stored.URI, nil
}

// RoyaltyInfo computes the royalty recipient and amount for a sale at the
// supplied gross price. The division truncates toward zero.
func (e *Engine) RoyaltyInfo(id uint64, salePrice *big.Int) ([20]byte, *big.Int, error) {
	stored, err := e.Get(id)
	if err != nil {
		var zero [20]byte
		return zero, nil, err
	}
	recipient, amount := RoyaltyAmount(stored, salePrice)
	return recipient, amount, nil
}

// NonceOf returns the artist's current mint-authorization nonce.
func (e *Engine) NonceOf(artist [20]byte) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	return e.state.MintNonce(artist)
}

// Transfer moves ownership of a track. Only the current owner may transfer;
// metadata, URI, and royalty configuration are untouched.
func (e *Engine) Transfer(caller [20]byte, to [20]byte, id uint64) (*Track, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.pauses, PauseModule); err != nil {
		return nil, err
	}
	if isZeroAddress(to) {
		return nil, ErrInvalidInput
	}
	stored, ok, err := e.state.TrackGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || stored == nil {
		return nil, ErrTrackNotFound
	}
	if stored.Owner != caller {
		return nil, ErrNotOwner
	}
	from := stored.Owner
	stored.Owner = to
	if err := e.state.TrackPut(stored); err != nil {
		return nil, err
	}
	e.emit(TrackTransferredEvent(id, hexAddr(from), hexAddr(to)))
	return stored.Clone(), nil
}

// RecordPlay increments the play counter for a track. Called by the access
// engine after a successful pay-per-stream purchase.
func (e *Engine) RecordPlay(id uint64) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	stored, ok, err := e.state.TrackGet(id)
	if err != nil {
		return 0, err
	}
	if !ok || stored == nil {
		return 0, ErrTrackNotFound
	}
	stored.Plays++
	if err := e.state.TrackPut(stored); err != nil {
		return 0, err
	}
	return stored.Plays, nil
}
