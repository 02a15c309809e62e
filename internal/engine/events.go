package engine

// EventKind says what changed.
type EventKind int

const (
	// EventCollectionUpdated fires whenever a collection snapshot is
	// republished: fetch completion, optimistic edit, rollback.
	EventCollectionUpdated EventKind = iota
	// EventMutationSettled fires once per Dispatch, after rollback or
	// confirmation.
	EventMutationSettled
	// EventRegionsRefreshed fires when the region list is refetched.
	EventRegionsRefreshed
)

// Event notifies subscribers that pull-based state moved on. Snapshots
// are still read with Collection; the event carries no instance data.
type Event struct {
	Kind    EventKind
	Key     Key
	Outcome *Outcome
}

// Subscribe registers a consumer. The channel is buffered; events are
// dropped rather than blocking the engine when a consumer lags.
func (e *Engine) Subscribe() <-chan Event {
	ch := make(chan Event, 16)
	e.subMu.Lock()
	e.subs = append(e.subs, ch)
	e.subMu.Unlock()
	return ch
}

// Unsubscribe removes a previously subscribed channel.
func (e *Engine) Unsubscribe(ch <-chan Event) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for i, sub := range e.subs {
		if sub == ch {
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			return
		}
	}
}

func (e *Engine) publish(ev Event) {
	e.subMu.Lock()
	subs := append([]chan Event(nil), e.subs...)
	e.subMu.Unlock()

	for _, sub := range subs {
		select {
		case sub <- ev:
		default:
			e.log.WithField("kind", ev.Kind).Debug("dropping engine event, subscriber is full")
		}
	}
}
