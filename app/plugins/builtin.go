package plugins

import (
	"fmt"

	"github.com/kilianp07/cityguard/core/factory"
	"github.com/kilianp07/cityguard/core/reasoning"
	"github.com/kilianp07/cityguard/core/selection"
)

func init() {
	RegisterPolicy("topk", func(conf map[string]any, _ Deps) (selection.Policy, error) {
		p := selection.NewTopK()
		if err := factory.Decode(conf, &p); err != nil {
			return nil, err
		}
		return p, nil
	})
	RegisterPolicy("llm", func(_ map[string]any, d Deps) (selection.Policy, error) {
		if d.Reasoner == nil {
			return nil, fmt.Errorf("llm selection policy needs a reasoner")
		}
		return selection.LLMPolicy{Reasoner: d.Reasoner, Log: d.Log}, nil
	})

	RegisterReasoning("heuristic", func(conf map[string]any, _ Deps) (Reasoning, error) {
		j := reasoning.NewQuorumJudge()
		if err := factory.Decode(conf, &j); err != nil {
			return Reasoning{}, err
		}
		return Reasoning{Synthesizer: reasoning.ConcatSynthesizer{}, Judge: j}, nil
	})
	RegisterReasoning("llm", func(_ map[string]any, d Deps) (Reasoning, error) {
		if d.Reasoner == nil {
			return Reasoning{}, fmt.Errorf("llm reasoning needs a reasoner")
		}
		return Reasoning{
			Synthesizer: reasoning.LLMSynthesizer{Reasoner: d.Reasoner},
			Judge:       reasoning.LLMJudge{Reasoner: d.Reasoner},
		}, nil
	})
}
