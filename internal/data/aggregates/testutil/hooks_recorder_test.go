package testutil

import (
	"testing"
	"time"
)

func TestHooksRecorder_CapturesSignals(t *testing.T) {
	h := &HooksRecorder{}
	h.ObserveOperation("randomization.subject.claim", "success", 10*time.Millisecond)
	h.ObserveOperation("randomization.subject.claim", "exhausted", time.Millisecond)
	h.ObserveOperation("randomization.list.generate", "success", time.Millisecond)
	h.IncConflict("randomization.subject.claim")
	h.IncRetry("randomization.subject.claim")
	h.AddGeneratedEntries(20)
	h.AddGeneratedEntries(4)

	if len(h.Operations) != 3 {
		t.Fatalf("expected 3 op events, got %d", len(h.Operations))
	}
	got := h.StatusesFor("randomization.subject.claim")
	if len(got) != 2 || got[0] != "success" || got[1] != "exhausted" {
		t.Fatalf("unexpected claim statuses: %+v", got)
	}
	if len(h.Conflicts) != 1 || len(h.Retries) != 1 {
		t.Fatalf("unexpected conflicts=%+v retries=%+v", h.Conflicts, h.Retries)
	}
	if h.Generated != 24 {
		t.Fatalf("generated: want=24 got=%d", h.Generated)
	}
}
