package access

import (
	"strconv"

	"tuneledger/core/events"
	"tuneledger/core/types"
)

const (
	// EventTypeSubscribed is emitted when a subscription starts or renews.
	EventTypeSubscribed = "access.subscribed"
	// EventTypeStream is emitted when a pay-per-stream purchase settles.
	EventTypeStream = "access.stream"
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

// SubscribedEvent captures a subscription purchase or renewal.
func SubscribedEvent(account, planID string, expiresAt int64) *types.Event {
	return &types.Event{
		Type: EventTypeSubscribed,
		Attributes: map[string]string{
			"account":   account,
			"planId":    planID,
			"expiresAt": strconv.FormatInt(expiresAt, 10),
		},
	}
}

// StreamEvent captures a settled pay-per-stream purchase.
func StreamEvent(buyer string, trackID uint64, price string, plays uint64) *types.Event {
	return &types.Event{
		Type: EventTypeStream,
		Attributes: map[string]string{
			"buyer":   buyer,
			"trackId": strconv.FormatUint(trackID, 10),
			"price":   price,
			"plays":   strconv.FormatUint(plays, 10),
		},
	}
}
