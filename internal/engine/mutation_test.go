package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/karpella/ec2console/internal/aws/ec2"
)

// mutationWorld backs the fake client with a mutable provider truth so
// reconciling fetches agree with confirmed and rolled-back edits.
type mutationWorld struct {
	mu     sync.Mutex
	states map[string]ec2.InstanceState
}

func newMutationWorld(states map[string]ec2.InstanceState) *mutationWorld {
	return &mutationWorld{states: states}
}

func (w *mutationWorld) list() []ec2.Instance {
	w.mu.Lock()
	defer w.mu.Unlock()
	instances := make([]ec2.Instance, 0, len(w.states))
	for id, state := range w.states {
		instances = append(instances, ec2.Instance{ID: id, State: state, Type: "t3.micro"})
	}
	return instances
}

func (w *mutationWorld) set(id string, state ec2.InstanceState) {
	w.mu.Lock()
	w.states[id] = state
	w.mu.Unlock()
}

func mutationEngine(t *testing.T, world *mutationWorld, perform func(ctx context.Context, id string, action ec2.Action, opts ec2.ActionOptions) (ec2.ActionResult, error)) *Engine {
	t.Helper()
	client := &fakeClient{
		listInstancesFunc: func(ctx context.Context, filters ec2.Filters) ([]ec2.Instance, error) {
			return world.list(), nil
		},
		performActionFunc: perform,
	}
	e, _ := newTestEngine(t, client)
	return e
}

func TestDispatch_OptimisticThenConfirmed(t *testing.T) {
	world := newMutationWorld(map[string]ec2.InstanceState{"i-1": ec2.StateRunning})
	release := make(chan struct{})
	e := mutationEngine(t, world, func(ctx context.Context, id string, action ec2.Action, opts ec2.ActionOptions) (ec2.ActionResult, error) {
		<-release
		world.set(id, ec2.StateStopping)
		return ec2.ActionResult{
			InstanceID:    id,
			Action:        action,
			PreviousState: ec2.StateRunning,
			CurrentState:  ec2.StateStopping,
		}, nil
	})
	key := Key{Region: "us-east-1"}

	if _, err := e.Refresh(context.Background(), key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	events := e.Subscribe()

	done := make(chan Outcome, 1)
	go func() {
		done <- e.Dispatch(context.Background(), key, "i-1", ec2.ActionStop, ec2.ActionOptions{})
	}()

	waitKeyEvent(t, events, EventCollectionUpdated, key)
	snap := e.Collection(key)
	if got := snap.Instances[0].State; got != ec2.StateStopping {
		t.Fatalf("optimistic state = %s, want %s", got, ec2.StateStopping)
	}

	close(release)
	out := <-done
	if !out.OK {
		t.Fatalf("unexpected failure: %v", out.Err)
	}
	if out.Previous != ec2.StateRunning || out.Current != ec2.StateStopping {
		t.Fatalf("outcome states = %s/%s, want running/stopping", out.Previous, out.Current)
	}
	if out.ID == "" {
		t.Fatal("expected an outcome id")
	}

	waitKeyEvent(t, events, EventMutationSettled, key)
	if got := e.Collection(key).Instances[0].State; got != ec2.StateStopping {
		t.Fatalf("confirmed state = %s, want %s", got, ec2.StateStopping)
	}
}

func TestDispatch_RollsBackOnFailure(t *testing.T) {
	world := newMutationWorld(map[string]ec2.InstanceState{"i-1": ec2.StateRunning})
	e := mutationEngine(t, world, func(ctx context.Context, id string, action ec2.Action, opts ec2.ActionOptions) (ec2.ActionResult, error) {
		return ec2.ActionResult{}, &ec2.APIError{Op: "StopInstances", Code: "UnauthorizedOperation", Message: "denied"}
	})
	key := Key{Region: "us-east-1"}

	if _, err := e.Refresh(context.Background(), key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := e.Dispatch(context.Background(), key, "i-1", ec2.ActionStop, ec2.ActionOptions{})
	if out.OK {
		t.Fatal("expected the mutation to fail")
	}
	var apiErr *ec2.APIError
	if !errors.As(out.Err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", out.Err)
	}
	if out.Current != ec2.StateRunning {
		t.Fatalf("outcome current = %s, want the captured prior state", out.Current)
	}
	if got := e.Collection(key).Instances[0].State; got != ec2.StateRunning {
		t.Fatalf("state after rollback = %s, want %s", got, ec2.StateRunning)
	}
}

func TestDispatch_RejectsTerminated(t *testing.T) {
	world := newMutationWorld(map[string]ec2.InstanceState{"i-1": ec2.StateTerminated})
	var calls int32
	e := mutationEngine(t, world, func(ctx context.Context, id string, action ec2.Action, opts ec2.ActionOptions) (ec2.ActionResult, error) {
		atomic.AddInt32(&calls, 1)
		return ec2.ActionResult{}, nil
	})
	key := Key{Region: "us-east-1"}

	if _, err := e.Refresh(context.Background(), key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := e.Dispatch(context.Background(), key, "i-1", ec2.ActionStart, ec2.ActionOptions{})
	if out.OK {
		t.Fatal("expected a rejection")
	}
	var verr *ec2.ValidationError
	if !errors.As(out.Err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", out.Err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatal("expected no provider call for a terminated instance")
	}
}

func TestDispatch_TargetMissing(t *testing.T) {
	world := newMutationWorld(map[string]ec2.InstanceState{"i-1": ec2.StateRunning})
	var calls int32
	e := mutationEngine(t, world, func(ctx context.Context, id string, action ec2.Action, opts ec2.ActionOptions) (ec2.ActionResult, error) {
		atomic.AddInt32(&calls, 1)
		return ec2.ActionResult{}, nil
	})
	key := Key{Region: "us-east-1"}

	if _, err := e.Refresh(context.Background(), key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := e.Dispatch(context.Background(), key, "i-9", ec2.ActionStop, ec2.ActionOptions{})
	var verr *ec2.ValidationError
	if !errors.As(out.Err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", out.Err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatal("expected no provider call for a missing instance")
	}
}

func TestDispatch_UnknownAction(t *testing.T) {
	world := newMutationWorld(map[string]ec2.InstanceState{})
	e := mutationEngine(t, world, nil)

	out := e.Dispatch(context.Background(), Key{Region: "us-east-1"}, "i-1", ec2.Action("hibernate"), ec2.ActionOptions{})
	var verr *ec2.ValidationError
	if !errors.As(out.Err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", out.Err)
	}
}

func TestDispatch_PreconditionMismatchSkipsOptimisticEdit(t *testing.T) {
	world := newMutationWorld(map[string]ec2.InstanceState{"i-1": ec2.StatePending})
	release := make(chan struct{})
	entered := make(chan struct{})
	e := mutationEngine(t, world, func(ctx context.Context, id string, action ec2.Action, opts ec2.ActionOptions) (ec2.ActionResult, error) {
		close(entered)
		<-release
		return ec2.ActionResult{InstanceID: id, Action: action, CurrentState: ec2.StatePending}, nil
	})
	key := Key{Region: "us-east-1"}

	if _, err := e.Refresh(context.Background(), key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan Outcome, 1)
	go func() {
		done <- e.Dispatch(context.Background(), key, "i-1", ec2.ActionStart, ec2.ActionOptions{})
	}()

	<-entered
	if got := e.Collection(key).Instances[0].State; got != ec2.StatePending {
		t.Fatalf("state while in flight = %s, want the unchanged %s", got, ec2.StatePending)
	}

	close(release)
	out := <-done
	if !out.OK {
		t.Fatalf("expected the call to proceed despite the mismatch: %v", out.Err)
	}
}

func TestDispatch_RebootFallsBackToNominalState(t *testing.T) {
	world := newMutationWorld(map[string]ec2.InstanceState{"i-1": ec2.StateRunning})
	e := mutationEngine(t, world, func(ctx context.Context, id string, action ec2.Action, opts ec2.ActionOptions) (ec2.ActionResult, error) {
		return ec2.ActionResult{InstanceID: id, Action: action}, nil
	})
	key := Key{Region: "us-east-1"}

	if _, err := e.Refresh(context.Background(), key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := e.Dispatch(context.Background(), key, "i-1", ec2.ActionReboot, ec2.ActionOptions{})
	if !out.OK {
		t.Fatalf("unexpected failure: %v", out.Err)
	}
	if out.Previous != ec2.StateRunning {
		t.Fatalf("outcome previous = %s, want %s", out.Previous, ec2.StateRunning)
	}
	if out.Current != ec2.StateRunning {
		t.Fatalf("outcome current = %s, want the nominal %s", out.Current, ec2.StateRunning)
	}
}

func TestDispatch_ConcurrentMutationsPreserveEachOther(t *testing.T) {
	world := newMutationWorld(map[string]ec2.InstanceState{
		"i-1": ec2.StateRunning,
		"i-2": ec2.StateStopped,
	})
	gate := make(chan struct{})
	entered := make(chan struct{})
	e := mutationEngine(t, world, func(ctx context.Context, id string, action ec2.Action, opts ec2.ActionOptions) (ec2.ActionResult, error) {
		switch id {
		case "i-1":
			close(entered)
			<-gate
			return ec2.ActionResult{}, &ec2.APIError{Op: "StopInstances", Code: "IncorrectInstanceState", Message: "nope"}
		case "i-2":
			world.set(id, ec2.StatePending)
			return ec2.ActionResult{InstanceID: id, Action: action, PreviousState: ec2.StateStopped, CurrentState: ec2.StatePending}, nil
		}
		return ec2.ActionResult{}, nil
	})
	key := Key{Region: "us-east-1"}

	if _, err := e.Refresh(context.Background(), key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan Outcome, 1)
	go func() {
		done <- e.Dispatch(context.Background(), key, "i-1", ec2.ActionStop, ec2.ActionOptions{})
	}()
	<-entered

	start := e.Dispatch(context.Background(), key, "i-2", ec2.ActionStart, ec2.ActionOptions{})
	if !start.OK {
		t.Fatalf("unexpected failure: %v", start.Err)
	}

	close(gate)
	stop := <-done
	if stop.OK {
		t.Fatal("expected the stop to fail")
	}

	states := map[string]ec2.InstanceState{}
	for _, inst := range e.Collection(key).Instances {
		states[inst.ID] = inst.State
	}
	if states["i-1"] != ec2.StateRunning {
		t.Fatalf("i-1 = %s, want the rolled back %s", states["i-1"], ec2.StateRunning)
	}
	if states["i-2"] != ec2.StatePending {
		t.Fatalf("i-2 = %s, want the preserved %s", states["i-2"], ec2.StatePending)
	}
}

func TestDispatch_SettledEventCarriesOutcome(t *testing.T) {
	world := newMutationWorld(map[string]ec2.InstanceState{"i-1": ec2.StateStopped})
	e := mutationEngine(t, world, func(ctx context.Context, id string, action ec2.Action, opts ec2.ActionOptions) (ec2.ActionResult, error) {
		world.set(id, ec2.StatePending)
		return ec2.ActionResult{InstanceID: id, Action: action, PreviousState: ec2.StateStopped, CurrentState: ec2.StatePending}, nil
	})
	key := Key{Region: "us-east-1"}

	if _, err := e.Refresh(context.Background(), key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	events := e.Subscribe()

	out := e.Dispatch(context.Background(), key, "i-1", ec2.ActionStart, ec2.ActionOptions{})
	ev := waitKeyEvent(t, events, EventMutationSettled, key)
	if ev.Outcome == nil {
		t.Fatal("expected the settled event to carry the outcome")
	}
	if ev.Outcome.ID != out.ID {
		t.Fatalf("event outcome id = %s, want %s", ev.Outcome.ID, out.ID)
	}
}
