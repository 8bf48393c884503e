package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stellarlinkco/agentrelay/internal/events"
)

func testEvent(typ string) *events.AgentEvent {
	return events.New(typ, events.Context{
		Agent:         events.AgentClaude,
		AgentID:       "agent-1",
		SessionID:     "sess-1",
		WorkspacePath: "/work",
		GitBranch:     "main",
	}, nil, nil)
}

func TestEmitTierOrder(t *testing.T) {
	r := New()

	var calls []string
	record := func(name string) Handler {
		return func(ctx context.Context, ev *events.AgentEvent) (*events.EventResult, error) {
			calls = append(calls, name)
			return nil, nil
		}
	}

	// Register out of tier order on purpose; dispatch order must still be
	// global, then category, then exact type.
	r.OnType("tool:start", record("typed"))
	r.OnCategory(events.CategoryTool, record("category"))
	r.OnAll(record("global-1"))
	r.OnAll(record("global-2"))

	results := r.Emit(context.Background(), testEvent("tool:start"))

	want := []string{"global-1", "global-2", "category", "typed"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, calls[i], want[i])
		}
	}
	if len(results) != 4 {
		t.Errorf("results = %d, want 4", len(results))
	}
}

func TestEmitRegistrationOrderWithinTier(t *testing.T) {
	r := New()
	var calls []int
	for i := 0; i < 5; i++ {
		i := i
		r.OnCategory(events.CategorySystem, func(ctx context.Context, ev *events.AgentEvent) (*events.EventResult, error) {
			calls = append(calls, i)
			return nil, nil
		})
	}

	r.Emit(context.Background(), testEvent("system:error"))
	for i, got := range calls {
		if got != i {
			t.Fatalf("calls = %v, want ascending registration order", calls)
		}
	}
}

func TestEmitIsolatesFailingHandlers(t *testing.T) {
	r := New()
	ran := false

	r.OnAll(func(ctx context.Context, ev *events.AgentEvent) (*events.EventResult, error) {
		return nil, errors.New("broken subscriber")
	})
	r.OnAll(func(ctx context.Context, ev *events.AgentEvent) (*events.EventResult, error) {
		panic("very broken subscriber")
	})
	r.OnAll(func(ctx context.Context, ev *events.AgentEvent) (*events.EventResult, error) {
		ran = true
		return &events.EventResult{Action: events.ActionDeny, Message: "no"}, nil
	})

	results := r.Emit(context.Background(), testEvent("tool:start"))

	if !ran {
		t.Fatal("handler after failures did not run")
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if results[0].Action != events.ActionContinue || results[0].Message != "broken subscriber" {
		t.Errorf("error result = %+v, want continue with error text", results[0])
	}
	if results[1].Action != events.ActionContinue {
		t.Errorf("panic result = %+v, want continue", results[1])
	}
	if results[2].Action != events.ActionDeny {
		t.Errorf("final result = %+v, want deny", results[2])
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	r := New()
	count := 0
	h := func(ctx context.Context, ev *events.AgentEvent) (*events.EventResult, error) {
		count++
		return nil, nil
	}

	unsub := r.OnType("tool:start", h)
	r.Emit(context.Background(), testEvent("tool:start"))
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	unsub()
	unsub() // second call is a no-op
	r.Emit(context.Background(), testEvent("tool:start"))
	if count != 1 {
		t.Fatalf("count after unsubscribe = %d, want 1", count)
	}

	// Re-registering the same handler receives future events again.
	r.OnType("tool:start", h)
	r.Emit(context.Background(), testEvent("tool:start"))
	if count != 2 {
		t.Fatalf("count after re-register = %d, want 2", count)
	}
}

func TestUnsubscribeDoesNotDisturbOtherRegistrations(t *testing.T) {
	r := New()
	var calls []string
	record := func(name string) Handler {
		return func(ctx context.Context, ev *events.AgentEvent) (*events.EventResult, error) {
			calls = append(calls, name)
			return nil, nil
		}
	}

	unsubA := r.OnAll(record("a"))
	r.OnAll(record("b"))
	r.OnAll(record("c"))
	unsubA()

	r.Emit(context.Background(), testEvent("session:start"))
	if len(calls) != 2 || calls[0] != "b" || calls[1] != "c" {
		t.Errorf("calls = %v, want [b c]", calls)
	}
}

func TestNilResultBecomesContinue(t *testing.T) {
	r := New()
	r.OnAll(func(ctx context.Context, ev *events.AgentEvent) (*events.EventResult, error) {
		return nil, nil
	})
	results := r.Emit(context.Background(), testEvent("session:start"))
	if len(results) != 1 || results[0].Action != events.ActionContinue {
		t.Errorf("results = %+v, want single continue", results)
	}
}
