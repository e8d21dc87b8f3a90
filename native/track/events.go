package track

import (
	"strconv"

	"tuneledger/core/events"
	"tuneledger/core/types"
)

const (
	// EventTypeTrackMinted is emitted when a signed mint succeeds.
	EventTypeTrackMinted = "track.minted"
	// EventTypeTrackTransferred is emitted when track ownership changes.
	EventTypeTrackTransferred = "track.transferred"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

// TrackMintedEvent returns the structured event payload for a successful mint.
func TrackMintedEvent(id uint64, artist string, owner string, uri string, royaltyBps uint32) *types.Event {
	return &types.Event{
		Type: EventTypeTrackMinted,
		Attributes: map[string]string{
			"id":         strconv.FormatUint(id, 10),
			"artist":     artist,
			"owner":      owner,
			"uri":        uri,
			"royaltyBps": strconv.FormatUint(uint64(royaltyBps), 10),
		},
	}
}

// TrackTransferredEvent captures an ownership change.
func TrackTransferredEvent(id uint64, from string, to string) *types.Event {
	return &types.Event{
		Type: EventTypeTrackTransferred,
		Attributes: map[string]string{
			"id":   strconv.FormatUint(id, 10),
			"from": from,
			"to":   to,
		},
	}
}
