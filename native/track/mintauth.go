package track

import (
	"encoding/hex"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"tuneledger/crypto"
)

// mintDomain separates mint-authorization digests from any other signed
// payload in the ecosystem. Bumping the version invalidates outstanding
// authorizations.
const mintDomain = "tuneledger/mint/v1"

// MintAuthorization is the structured payload an artist signs to authorize a
// single mint. The nonce binds the authorization to the artist's current
// counter; once consumed, the same payload can never authorize a second mint
// because the digest of the incremented nonce no longer matches.
type MintAuthorization struct {
	Artist           [20]byte `json:"artist"`
	Recipient        [20]byte `json:"recipient"`
	Metadata         string   `json:"metadata"`
	URI              string   `json:"uri"`
	RoyaltyRecipient [20]byte `json:"royaltyRecipient"`
	RoyaltyBps       uint32   `json:"royaltyBps"`
	Nonce            uint64   `json:"nonce"`
}

// Hash computes the domain-separated keccak256 digest of the authorization.
func (a MintAuthorization) Hash(chainID uint64) []byte {
	payload := fmt.Sprintf("%s|chain=%d|artist=%s|to=%s|meta=%s|uri=%s|royaltyTo=%s|royaltyBps=%d|nonce=%d",
		mintDomain,
		chainID,
		hex.EncodeToString(a.Artist[:]),
		hex.EncodeToString(a.Recipient[:]),
		strings.TrimSpace(a.Metadata),
		strings.TrimSpace(a.URI),
		hex.EncodeToString(a.RoyaltyRecipient[:]),
		a.RoyaltyBps,
		a.Nonce,
	)
	return ethcrypto.Keccak256([]byte(payload))
}

// Sign produces the artist's signature over the authorization digest. The
// service itself only verifies; this helper exists for clients and tests.
func (a MintAuthorization) Sign(chainID uint64, key *crypto.PrivateKey) ([]byte, error) {
	if key == nil || key.PrivateKey == nil {
		return nil, fmt.Errorf("nil signing key")
	}
	sig, err := ethcrypto.Sign(a.Hash(chainID), key.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("sign mint authorization: %w", err)
	}
	return sig, nil
}

// RecoverSigner recovers the address that produced the supplied signature over
// the digest.
func RecoverSigner(digest []byte, sig []byte) ([20]byte, error) {
	var out [20]byte
	pub, err := ethcrypto.SigToPub(digest, sig)
	if err != nil {
		return out, fmt.Errorf("recover pubkey: %w", err)
	}
	copy(out[:], ethcrypto.PubkeyToAddress(*pub).Bytes())
	return out, nil
}
