package types

// Event is the wire form of a ledger event: a type tag such as
// "track.minted" plus flat string attributes.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
