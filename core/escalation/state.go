package escalation

import (
	"fmt"
	"sort"

	"github.com/kilianp07/cityguard/core/model"
)

// State is a controller state.
type State int

const (
	StateDiscover State = iota
	StatePassiveJudge
	StateActiveDispatch
	StateActiveJudge
	StateDone
	StateBudgetExhausted
)

var stateNames = [...]string{
	StateDiscover:        "DISCOVER",
	StatePassiveJudge:    "PASSIVE_JUDGE",
	StateActiveDispatch:  "ACTIVE_DISPATCH",
	StateActiveJudge:     "ACTIVE_JUDGE",
	StateDone:            "DONE",
	StateBudgetExhausted: "BUDGET_EXHAUSTED",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText renders the state name in JSON output.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", b)
}

// Terminal reports whether the controller stops in s.
func (s State) Terminal() bool { return s == StateDone || s == StateBudgetExhausted }

// EscalationState is everything the controller carries between transitions
// of one query. Excluded and Observed only ever grow.
type EscalationState struct {
	State     State
	Excluded  map[string]struct{}
	Observed  model.QuadrantSet
	Iteration int
	// Best is the latest synthesised summary, nil until one was produced.
	Best *model.Summary

	// Cards holds the snapshot of every observer placed on the grid.
	Cards map[string]model.ObserverSnapshot
	// Nearby is the set found by DISCOVER.
	Nearby []string
	// Dispatched is the batch sent by the last ACTIVE_DISPATCH and Pending
	// the reports it produced.
	Dispatched []string
	Pending    []model.Report
	// Rounds records every active batch in dispatch order.
	Rounds [][]string
}

// NewEscalationState returns the initial DISCOVER state.
func NewEscalationState() *EscalationState {
	return &EscalationState{
		State:    StateDiscover,
		Excluded: make(map[string]struct{}),
		Observed: model.NewQuadrantSet(),
		Cards:    make(map[string]model.ObserverSnapshot),
	}
}

// Exclude marks ids as used for the rest of the query.
func (s *EscalationState) Exclude(ids ...string) {
	for _, id := range ids {
		s.Excluded[id] = struct{}{}
	}
}

// IsExcluded reports whether id may no longer be selected.
func (s *EscalationState) IsExcluded(id string) bool {
	_, ok := s.Excluded[id]
	return ok
}

// ExcludedIDs returns the excluded ids in ascending order.
func (s *EscalationState) ExcludedIDs() []string {
	out := make([]string, 0, len(s.Excluded))
	for id := range s.Excluded {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Outcome is what a finished query returns to its caller.
type Outcome struct {
	TaskID string `json:"task_id"`
	// Report may be nil after BUDGET_EXHAUSTED.
	Report            *model.Summary   `json:"report"`
	State             State            `json:"state"`
	Iterations        int              `json:"iterations"`
	Exhausted         bool             `json:"exhausted"`
	Excluded          []string         `json:"excluded"`
	ObservedQuadrants []model.Quadrant `json:"observed_quadrants"`
	Rounds            [][]string       `json:"rounds"`
}

func outcomeOf(taskID string, st *EscalationState) Outcome {
	return Outcome{
		TaskID:            taskID,
		Report:            st.Best,
		State:             st.State,
		Iterations:        st.Iteration,
		Exhausted:         st.State == StateBudgetExhausted,
		Excluded:          st.ExcludedIDs(),
		ObservedQuadrants: st.Observed.Sorted(),
		Rounds:            st.Rounds,
	}
}
