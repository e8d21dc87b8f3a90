package governance

import (
	"strconv"

	"tuneledger/core/events"
	"tuneledger/core/types"
)

const (
	// EventTypeProposed is emitted when a new proposal opens for voting.
	EventTypeProposed = "governance.proposed"
	// EventTypeVoteCast is emitted when a voter records a weighted ballot.
	EventTypeVoteCast = "governance.vote"
	// EventTypeExecuted is emitted when a proposal's outcome is determined.
	EventTypeExecuted = "governance.executed"
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

// ProposedEvent announces a new proposal and its voting window.
func ProposedEvent(p *Proposal) *types.Event {
	attrs := map[string]string{}
	if p != nil {
		attrs["id"] = strconv.FormatUint(p.ID, 10)
		attrs["votingStart"] = strconv.FormatInt(p.VotingStart, 10)
		attrs["votingEnd"] = strconv.FormatInt(p.VotingEnd, 10)
	}
	return &types.Event{Type: EventTypeProposed, Attributes: attrs}
}

// VoteCastEvent records a ballot and its weight.
func VoteCastEvent(v *Vote, voter string) *types.Event {
	attrs := map[string]string{}
	if v != nil {
		attrs["id"] = strconv.FormatUint(v.ProposalID, 10)
		attrs["voter"] = voter
		if v.Weight != nil {
			attrs["weight"] = v.Weight.String()
		}
	}
	return &types.Event{Type: EventTypeVoteCast, Attributes: attrs}
}

// ExecutedEvent records the final outcome of a proposal.
func ExecutedEvent(p *Proposal) *types.Event {
	attrs := map[string]string{}
	if p != nil {
		attrs["id"] = strconv.FormatUint(p.ID, 10)
		attrs["passed"] = strconv.FormatBool(p.Passed)
		if p.VoteTally != nil {
			attrs["tally"] = p.VoteTally.String()
		}
	}
	return &types.Event{Type: EventTypeExecuted, Attributes: attrs}
}
