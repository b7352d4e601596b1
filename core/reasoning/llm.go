package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kilianp07/cityguard/core/model"
)

const synthesisSystem = `You merge field reports from several observers looking at the same place.
Prefer reports that agree with each other and ignore views that saw nothing relevant.
Name the road section and the situation at each observed side.`

const judgeSystem = `You check whether a report explains the root cause of the reported problem.
Answer "stop" when the report states what caused the problem.
Answer "continue" when no cause is given or the reasoning is clearly wrong.`

// LLMSynthesizer asks a Reasoner for the multi-view summary.
type LLMSynthesizer struct {
	Reasoner Reasoner
}

type summaryAnswer struct {
	Summary string `json:"summary"`
}

func (l LLMSynthesizer) Synthesize(ctx context.Context, task model.Task, reports []model.Report) (model.Summary, error) {
	s := baseSummary(task, reports)
	payload, err := json.Marshal(reports)
	if err != nil {
		return s, err
	}
	p := Prompt{
		System: synthesisSystem,
		User: fmt.Sprintf("Task %s: %s\nReports: %s\nReturn a JSON object {\"summary\": string}.",
			task.ID, task.Description, payload),
		Schema: "summary",
	}
	var out summaryAnswer
	if err := l.Reasoner.Invoke(ctx, p, &out); err != nil {
		return s, err
	}
	if strings.TrimSpace(out.Summary) == "" {
		return s, fmt.Errorf("%w: empty summary", ErrInvalidResponse)
	}
	s.Summary = out.Summary
	return s, nil
}

// LLMJudge asks a Reasoner for the continue/stop verdict.
type LLMJudge struct {
	Reasoner Reasoner
}

type decisionAnswer struct {
	Decision string `json:"decision"`
}

func (l LLMJudge) Judge(ctx context.Context, description string, s model.Summary) (model.Decision, error) {
	p := Prompt{
		System: judgeSystem,
		User: fmt.Sprintf("Task: %s\nReport: %s\nReturn a JSON object {\"decision\": \"continue\" | \"stop\"}.",
			description, s.Summary),
		Schema: "decision",
	}
	var out decisionAnswer
	if err := l.Reasoner.Invoke(ctx, p, &out); err != nil {
		return model.DecisionContinue, err
	}
	d, ok := model.ParseDecision(out.Decision)
	if !ok {
		return model.DecisionContinue, fmt.Errorf("%w: decision %q", ErrInvalidResponse, out.Decision)
	}
	return d, nil
}

// DecodeJSON unmarshals a raw reasoner answer into out, tolerating a
// surrounding markdown code fence.
func DecodeJSON(raw string, out any) error {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}
