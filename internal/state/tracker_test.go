package state

import "testing"

func TestDefaultIsNone(t *testing.T) {
	tr := NewTracker()
	if got := tr.Get("telegram:100"); got != None {
		t.Errorf("expected None for unknown user, got %v", got)
	}
}

func TestSetAndGet(t *testing.T) {
	tr := NewTracker()
	tr.Set("telegram:100", AwaitingQuestion)

	if got := tr.Get("telegram:100"); got != AwaitingQuestion {
		t.Errorf("expected AwaitingQuestion, got %v", got)
	}
	if got := tr.Get("telegram:200"); got != None {
		t.Errorf("other users should be unaffected, got %v", got)
	}
}

func TestClear(t *testing.T) {
	tr := NewTracker()
	tr.Set("telegram:100", AwaitingQuestion)
	tr.Clear("telegram:100")

	if got := tr.Get("telegram:100"); got != None {
		t.Errorf("expected None after clear, got %v", got)
	}
}
