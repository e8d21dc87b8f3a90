package staking

import (
	"strconv"

	"tuneledger/core/events"
	"tuneledger/core/types"
)

const (
	// EventTypeStakeLocked is emitted when a new lock is created.
	EventTypeStakeLocked = "staking.locked"
	// EventTypeStakeEarlyExit is emitted when a lock is stopped early.
	EventTypeStakeEarlyExit = "staking.earlyExit"
	// EventTypeStakeWithdrawn is emitted when a lock is paid out and closed.
	EventTypeStakeWithdrawn = "staking.withdrawn"
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

// StakeLockedEvent captures a newly created lock.
func StakeLockedEvent(owner string, id uint64, amount string, lockSeconds uint64) *types.Event {
	return &types.Event{
		Type: EventTypeStakeLocked,
		Attributes: map[string]string{
			"owner":       owner,
			"id":          strconv.FormatUint(id, 10),
			"amount":      amount,
			"lockSeconds": strconv.FormatUint(lockSeconds, 10),
		},
	}
}

// StakeEarlyExitEvent captures an early exit and the penalty locked in.
func StakeEarlyExitEvent(owner string, id uint64, penalty string) *types.Event {
	return &types.Event{
		Type: EventTypeStakeEarlyExit,
		Attributes: map[string]string{
			"owner":   owner,
			"id":      strconv.FormatUint(id, 10),
			"penalty": penalty,
		},
	}
}

// StakeWithdrawnEvent captures the final payout for a closed lock.
func StakeWithdrawnEvent(owner string, id uint64, principal, reward, penalty string) *types.Event {
	return &types.Event{
		Type: EventTypeStakeWithdrawn,
		Attributes: map[string]string{
			"owner":     owner,
			"id":        strconv.FormatUint(id, 10),
			"principal": principal,
			"reward":    reward,
			"penalty":   penalty,
		},
	}
}
