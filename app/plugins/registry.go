// Package plugins maps configuration type names to selection policies and
// reasoning backends.
package plugins

import (
	"fmt"
	"sort"

	"github.com/kilianp07/cityguard/core/logger"
	"github.com/kilianp07/cityguard/core/reasoning"
	"github.com/kilianp07/cityguard/core/selection"
)

// Deps are the shared collaborators handed to every factory. Reasoner is nil
// when no LLM is configured.
type Deps struct {
	Reasoner reasoning.Reasoner
	Log      logger.Logger
}

// PolicyFactory builds a selection policy from a raw configuration map.
type PolicyFactory func(conf map[string]any, d Deps) (selection.Policy, error)

// Reasoning pairs the synthesizer and judge used by one query.
type Reasoning struct {
	Synthesizer reasoning.Synthesizer
	Judge       reasoning.Judge
}

// ReasoningFactory builds the synthesizer and judge pair.
type ReasoningFactory func(conf map[string]any, d Deps) (Reasoning, error)

var (
	Policies   = map[string]PolicyFactory{}
	Reasonings = map[string]ReasoningFactory{}
)

func RegisterPolicy(name string, f PolicyFactory)       { Policies[name] = f }
func RegisterReasoning(name string, f ReasoningFactory) { Reasonings[name] = f }

// NewPolicy builds the policy registered under name.
func NewPolicy(name string, conf map[string]any, d Deps) (selection.Policy, error) {
	f, ok := Policies[name]
	if !ok {
		return nil, fmt.Errorf("unknown selection policy %q (have %v)", name, keys(Policies))
	}
	return f(conf, d)
}

// NewReasoning builds the reasoning pair registered under name.
func NewReasoning(name string, conf map[string]any, d Deps) (Reasoning, error) {
	f, ok := Reasonings[name]
	if !ok {
		return Reasoning{}, fmt.Errorf("unknown reasoning backend %q (have %v)", name, keys(Reasonings))
	}
	return f(conf, d)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
