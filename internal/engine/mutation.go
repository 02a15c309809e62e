package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/karpella/ec2console/internal/aws/ec2"
)

// transition describes how one action is expected to move an instance:
// the states the optimistic edit applies from, the state shown while
// the request is in flight, and the nominal terminal state used when
// the provider response carries none.
type transition struct {
	from       []ec2.InstanceState
	optimistic ec2.InstanceState
	terminal   ec2.InstanceState
}

// allows reports whether the optimistic edit applies from state s. An
// empty from list means any state.
func (t transition) allows(s ec2.InstanceState) bool {
	if len(t.from) == 0 {
		return true
	}
	for _, from := range t.from {
		if s == from {
			return true
		}
	}
	return false
}

var transitions = map[ec2.Action]transition{
	ec2.ActionStart: {
		from:       []ec2.InstanceState{ec2.StateStopped},
		optimistic: ec2.StatePending,
		terminal:   ec2.StateRunning,
	},
	ec2.ActionStop: {
		from:       []ec2.InstanceState{ec2.StateRunning, ec2.StatePending},
		optimistic: ec2.StateStopping,
		terminal:   ec2.StateStopped,
	},
	ec2.ActionReboot: {
		from:       []ec2.InstanceState{ec2.StateRunning},
		optimistic: ec2.StatePending,
		terminal:   ec2.StateRunning,
	},
	ec2.ActionTerminate: {
		optimistic: ec2.StateShuttingDown,
		terminal:   ec2.StateTerminated,
	},
}

// Outcome reports one settled mutation.
type Outcome struct {
	ID         string
	Key        Key
	InstanceID string
	Action     ec2.Action
	Previous   ec2.InstanceState
	Current    ec2.InstanceState
	OK         bool
	Message    string
	Err        error
}

// Dispatch runs one lifecycle mutation against the collection at key:
// optimistic edit, provider call, confirmation or rollback, and a
// forced reconciling re-fetch. Both the optimistic edit and the
// rollback work against the latest published collection, so concurrent
// mutations of other instances are preserved.
func (e *Engine) Dispatch(ctx context.Context, key Key, id string, action ec2.Action, opts ec2.ActionOptions) Outcome {
	outcome := Outcome{ID: uuid.NewString(), Key: key, InstanceID: id, Action: action}

	tr, ok := transitions[action]
	if !ok {
		return e.reject(outcome, fmt.Sprintf("unknown action %q", action))
	}
	if id == "" {
		return e.reject(outcome, "instance id is required")
	}

	entry := e.entry(key)

	entry.mu.Lock()
	idx := indexOf(entry.data, id)
	if idx == -1 {
		entry.mu.Unlock()
		return e.reject(outcome, fmt.Sprintf("instance %s is not in the current collection", id))
	}
	prior := entry.data[idx]
	if prior.State == ec2.StateTerminated {
		entry.mu.Unlock()
		return e.reject(outcome, fmt.Sprintf("instance %s is terminated", id))
	}
	outcome.Previous = prior.State
	applied := tr.allows(prior.State)
	if applied {
		data := append([]ec2.Instance(nil), entry.data...)
		data[idx].State = tr.optimistic
		entry.data = data
		entry.stats = ComputeStats(data, e.est)
	}
	entry.mu.Unlock()
	if applied {
		e.publish(Event{Kind: EventCollectionUpdated, Key: key})
	}

	res, err := e.perform(ctx, key, id, action, opts)
	if err != nil {
		e.swapInstance(entry, id, func(ec2.Instance) ec2.Instance { return prior })
		outcome.Current = prior.State
		outcome.Err = err
		outcome.Message = fmt.Sprintf("%s %s failed: %v", action, id, err)
		e.log.WithField("instance", id).WithField("action", string(action)).WithError(err).Warn("mutation failed, rolled back")
	} else {
		if res.PreviousState != "" {
			outcome.Previous = res.PreviousState
		}
		current := res.CurrentState
		if current == "" {
			current = tr.terminal
		}
		e.swapInstance(entry, id, func(inst ec2.Instance) ec2.Instance {
			inst.State = current
			return inst
		})
		outcome.OK = true
		outcome.Current = current
		outcome.Message = fmt.Sprintf("%s %s: %s -> %s", action, id, outcome.Previous, outcome.Current)
	}

	e.refreshAsync(key, true)
	e.publish(Event{Kind: EventMutationSettled, Key: key, Outcome: &outcome})
	return outcome
}

func (e *Engine) perform(ctx context.Context, key Key, id string, action ec2.Action, opts ec2.ActionOptions) (ec2.ActionResult, error) {
	client, err := e.clientFor(ctx, key.Region)
	if err != nil {
		return ec2.ActionResult{}, err
	}
	return withRetry(ctx, func() (ec2.ActionResult, error) {
		return client.PerformAction(ctx, id, action, opts)
	})
}

// reject settles a mutation that never reached the provider. No
// reconcile is scheduled since nothing diverged.
func (e *Engine) reject(outcome Outcome, msg string) Outcome {
	outcome.Err = &ec2.ValidationError{Message: msg}
	outcome.Message = msg
	e.publish(Event{Kind: EventMutationSettled, Key: outcome.Key, Outcome: &outcome})
	return outcome
}

// swapInstance replaces the target instance's value in the latest
// published collection and recomputes stats. Reports false when the
// instance is no longer present.
func (e *Engine) swapInstance(entry *collectionEntry, id string, update func(ec2.Instance) ec2.Instance) bool {
	entry.mu.Lock()
	idx := indexOf(entry.data, id)
	if idx == -1 {
		entry.mu.Unlock()
		return false
	}
	data := append([]ec2.Instance(nil), entry.data...)
	data[idx] = update(data[idx])
	entry.data = data
	entry.stats = ComputeStats(data, e.est)
	entry.mu.Unlock()

	e.publish(Event{Kind: EventCollectionUpdated, Key: entry.key})
	return true
}

func indexOf(instances []ec2.Instance, id string) int {
	for i := range instances {
		if instances[i].ID == id {
			return i
		}
	}
	return -1
}
