package revenue

import (
	"math/big"
	"strconv"

	"tuneledger/core/events"
	"tuneledger/core/types"
)

const (
	// EventTypeDistributed is emitted when a gross payment is split and accrued.
	EventTypeDistributed = "revenue.distributed"
	// EventTypeWithdrawn is emitted when a pending balance is paid out.
	EventTypeWithdrawn = "revenue.withdrawn"
	// EventTypeSourceAuthorized is emitted when a revenue source is added.
	EventTypeSourceAuthorized = "revenue.source.authorized"
	// EventTypeSourceRevoked is emitted when a revenue source is removed.
	EventTypeSourceRevoked = "revenue.source.revoked"
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

// DistributedEvent describes the full split for auditability: who paid, for
// which track, and how much landed in each pending balance.
func DistributedEvent(d *Distribution, payer, royaltyTo, seller string) *types.Event {
	attrs := map[string]string{}
	if d != nil {
		attrs["trackId"] = strconv.FormatUint(d.TrackID, 10)
		attrs["payer"] = payer
		attrs["amount"] = bigString(d.Amount)
		attrs["platformFee"] = bigString(d.PlatformFee)
		attrs["royaltyRecipient"] = royaltyTo
		attrs["royalty"] = bigString(d.Royalty)
		attrs["seller"] = seller
		attrs["sellerProceeds"] = bigString(d.SellerProceeds)
	}
	return &types.Event{Type: EventTypeDistributed, Attributes: attrs}
}

// WithdrawnEvent captures a completed payout.
func WithdrawnEvent(account string, amount string) *types.Event {
	return &types.Event{
		Type: EventTypeWithdrawn,
		Attributes: map[string]string{
			"account": account,
			"amount":  amount,
		},
	}
}

// SourceAuthorizedEvent captures an addition to the revenue source set.
func SourceAuthorizedEvent(source string) *types.Event {
	return &types.Event{
		Type:       EventTypeSourceAuthorized,
		Attributes: map[string]string{"source": source},
	}
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// SourceRevokedEvent captures a removal from the revenue source set.
func SourceRevokedEvent(source string) *types.Event {
	return &types.Event{
		Type:       EventTypeSourceRevoked,
		Attributes: map[string]string{"source": source},
	}
}
