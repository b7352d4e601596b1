package metrics

import "testing"

type recordSink struct {
	count int
}

func (r *recordSink) RecordTaskResults([]TaskResult) error {
	r.count++
	return nil
}

func (r *recordSink) RecordRound(RoundEvent) error {
	r.count++
	return nil
}

// plainSink implements only the base interface.
type plainSink struct{ count int }

func (p *plainSink) RecordTaskResults([]TaskResult) error {
	p.count++
	return nil
}

// TestMultiSink ensures events are forwarded to all sinks that support them.
func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	p := &plainSink{}
	m := NewMultiSink(s1, s2, p)
	if err := m.RecordTaskResults(nil); err != nil {
		t.Fatalf("record result: %v", err)
	}
	if err := m.RecordRound(RoundEvent{TaskID: "task-1"}); err != nil {
		t.Fatalf("record round: %v", err)
	}
	if err := m.RecordOutcome(OutcomeEvent{}); err != nil {
		t.Fatalf("record outcome: %v", err)
	}
	if s1.count != 2 || s2.count != 2 {
		t.Fatalf("results not forwarded")
	}
	if p.count != 1 {
		t.Fatalf("expected plain sink to receive only task results, got %d", p.count)
	}
}
