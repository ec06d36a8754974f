package conversation

import (
	"context"
	"errors"
	"testing"
)

func TestEnsureConversation_CreatesOnce(t *testing.T) {
	state := New()
	calls := 0
	create := func(ctx context.Context) (string, error) {
		calls++
		return "conv-1", nil
	}

	id, err := state.EnsureConversation(context.Background(), create)
	if err != nil {
		t.Fatalf("EnsureConversation: %v", err)
	}
	if id != "conv-1" {
		t.Errorf("id = %q, want conv-1", id)
	}

	id, err = state.EnsureConversation(context.Background(), create)
	if err != nil {
		t.Fatalf("EnsureConversation second call: %v", err)
	}
	if id != "conv-1" {
		t.Errorf("id = %q, want conv-1", id)
	}
	if calls != 1 {
		t.Errorf("createFn called %d times, want 1", calls)
	}
}

func TestEnsureConversation_FailureLeavesStateUnset(t *testing.T) {
	state := New()
	boom := errors.New("server said no")
	failing := func(ctx context.Context) (string, error) {
		return "", boom
	}

	if _, err := state.EnsureConversation(context.Background(), failing); !errors.Is(err, boom) {
		t.Fatalf("expected creation error, got %v", err)
	}
	if state.ID() != "" {
		t.Errorf("id should remain unset after failure, got %q", state.ID())
	}

	// A later call retries creation.
	calls := 0
	working := func(ctx context.Context) (string, error) {
		calls++
		return "conv-2", nil
	}
	id, err := state.EnsureConversation(context.Background(), working)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if id != "conv-2" || calls != 1 {
		t.Errorf("retry produced id=%q calls=%d", id, calls)
	}
}

func TestReset(t *testing.T) {
	state := New()
	_, _ = state.EnsureConversation(context.Background(), func(ctx context.Context) (string, error) {
		return "conv-3", nil
	})
	state.AdvanceParent("turn-1")

	state.Reset()

	if state.ID() != "" {
		t.Errorf("id = %q after reset, want empty", state.ID())
	}
	if state.ParentID() != nil {
		t.Errorf("parent = %v after reset, want nil", state.ParentID())
	}

	// Creation happens again after reset.
	calls := 0
	_, err := state.EnsureConversation(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		return "conv-4", nil
	})
	if err != nil || calls != 1 {
		t.Errorf("expected creation after reset, err=%v calls=%d", err, calls)
	}
}

func TestAdvanceParent(t *testing.T) {
	state := New()

	if state.ParentID() != nil {
		t.Fatal("fresh state should have nil parent (first turn)")
	}

	state.AdvanceParent("resp-1")
	if got := state.ParentID(); got == nil || *got != "resp-1" {
		t.Errorf("parent = %v, want resp-1", got)
	}

	state.AdvanceParent("resp-2")
	if got := state.ParentID(); got == nil || *got != "resp-2" {
		t.Errorf("parent = %v, want resp-2", got)
	}
}
