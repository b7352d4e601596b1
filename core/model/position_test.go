package model

import "testing"

func TestQuadrantSetMissing(t *testing.T) {
	s := NewQuadrantSet(0, 2)
	missing := s.Missing()
	if len(missing) != 2 || missing[0] != 1 || missing[1] != 3 {
		t.Fatalf("unexpected missing quadrants %v", missing)
	}
	c := s.Clone()
	c.Add(1)
	if s.Has(1) {
		t.Fatalf("clone shares storage")
	}
}

func TestPositionAdjacent(t *testing.T) {
	p := Pos(2, 2)
	cases := []struct {
		q    Position
		want bool
	}{
		{Pos(2, 3), true},
		{Pos(1, 2), true},
		{Pos(3, 3), false},
		{Pos(2, 2), false},
		{Pos(4, 2), false},
	}
	for _, c := range cases {
		if got := p.Adjacent(c.q); got != c.want {
			t.Errorf("Adjacent(%v,%v) = %v", p, c.q, got)
		}
	}
}

func TestParseDecision(t *testing.T) {
	if d, ok := ParseDecision("stop"); !ok || d != DecisionStop {
		t.Fatalf("stop not parsed")
	}
	if d, ok := ParseDecision(" CONTINUE\n"); !ok || d != DecisionContinue {
		t.Fatalf("upper case continue not parsed")
	}
	if _, ok := ParseDecision("maybe"); ok {
		t.Fatalf("unexpected parse of unknown decision")
	}
	if DecisionContinue.String() != "continue" {
		t.Fatalf("bad string %s", DecisionContinue)
	}
}
