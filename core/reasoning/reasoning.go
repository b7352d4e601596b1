// Package reasoning wraps the external reasoning capability used to merge
// observer reports and to decide whether a query needs more evidence.
package reasoning

import (
	"context"
	"errors"
	"time"

	"github.com/kilianp07/cityguard/core/model"
)

// ErrInvalidResponse is returned when a reasoner answer does not match the
// requested schema.
var ErrInvalidResponse = errors.New("invalid reasoning response")

// Image is an optional attachment sent along with a prompt.
type Image struct {
	URL string `json:"url"`
}

// Prompt is the structured payload handed to a Reasoner.
type Prompt struct {
	System string
	User   string
	Images []Image
	// Schema names the JSON object expected back; implementations may use
	// it to request structured output.
	Schema string
}

// Reasoner answers a prompt by decoding a JSON object into out.
type Reasoner interface {
	Invoke(ctx context.Context, p Prompt, out any) error
}

// Synthesizer folds observer reports into one multi-view summary.
type Synthesizer interface {
	Synthesize(ctx context.Context, task model.Task, reports []model.Report) (model.Summary, error)
}

// Judge decides whether a summary is conclusive for the task.
type Judge interface {
	Judge(ctx context.Context, description string, s model.Summary) (model.Decision, error)
}

// baseSummary fills the bookkeeping fields shared by every synthesizer.
func baseSummary(task model.Task, reports []model.Report) model.Summary {
	s := model.Summary{
		TaskID:      task.ID,
		Description: task.Description,
		ObserverIDs: make([]string, 0, len(reports)),
		ObservedAt:  make([]time.Time, 0, len(reports)),
		Headings:    make([]float64, 0, len(reports)),
	}
	for _, r := range reports {
		s.ObserverIDs = append(s.ObserverIDs, r.ObserverID)
		s.ObservedAt = append(s.ObservedAt, r.ObservedAt)
		s.Headings = append(s.Headings, r.Heading)
	}
	return s
}
