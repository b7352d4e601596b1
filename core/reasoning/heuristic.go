package reasoning

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/kilianp07/cityguard/core/model"
)

// ConcatSynthesizer joins every report into a plain text summary. It needs
// no reasoner and is used for offline runs.
type ConcatSynthesizer struct{}

func (ConcatSynthesizer) Synthesize(_ context.Context, task model.Task, reports []model.Report) (model.Summary, error) {
	s := baseSummary(task, reports)
	var b strings.Builder
	for i, r := range reports {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%s facing %s at %v] %s", r.ObserverID, Compass(r.Heading), r.Position, r.Result)
		if r.Evidence != "" {
			fmt.Fprintf(&b, " (evidence: %s)", r.Evidence)
		}
	}
	s.Summary = b.String()
	return s, nil
}

// QuorumJudge stops once enough reports looked at the scene from enough
// different directions.
type QuorumJudge struct {
	MinReports  int `json:"min_reports"`
	MinHeadings int `json:"min_headings"`
}

// NewQuorumJudge returns a judge with the default quorum of three reports
// from two heading buckets.
func NewQuorumJudge() QuorumJudge { return QuorumJudge{MinReports: 3, MinHeadings: 2} }

func (q QuorumJudge) Judge(_ context.Context, _ string, s model.Summary) (model.Decision, error) {
	buckets := make(map[int]struct{})
	for _, h := range s.Headings {
		buckets[headingBucket(h)] = struct{}{}
	}
	if len(s.ObserverIDs) >= q.MinReports && len(buckets) >= q.MinHeadings {
		return model.DecisionStop, nil
	}
	return model.DecisionContinue, nil
}

// headingBucket maps a heading to one of four 90 degree sectors centred on
// north, east, south and west.
func headingBucket(h float64) int {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return int(math.Mod(h+45, 360) / 90)
}

// Compass names the closest of the eight compass points for a heading.
func Compass(h float64) string {
	points := [...]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return points[int(math.Mod(h+22.5, 360)/45)]
}
