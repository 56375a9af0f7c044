package score

import (
	"fmt"

	"github.com/ppiankov/kgrepair/internal/model"
)

// Signal severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Signal describes the history of one issue over a run.
type Signal struct {
	Issue       model.Issue `json:"issue"`
	Severity    string      `json:"severity"`
	Description string      `json:"description"`
	FirstSeen   int         `json:"first_seen"`
	ResolvedAt  int         `json:"resolved_at,omitempty"` // 0: still present at the end
	Reappeared  bool        `json:"reappeared,omitempty"`
}

// Score summarizes how far a run got toward a conforming graph.
type Score struct {
	Index     int            `json:"index"` // 0-100, share of seen issues resolved
	Converged bool           `json:"converged"`
	Seen      model.IssueSet `json:"seen"`
	Remaining model.IssueSet `json:"remaining"`
	Signals   []Signal       `json:"signals"`
}

// Scorer calculates the repair index and generates signals
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Calculate scores a finished run. A run with no records scores zero.
func (s *Scorer) Calculate(res *model.RunResult) Score {
	last, ok := res.Last()
	if !ok {
		return Score{}
	}

	var seen model.IssueSet
	for _, rec := range res.Records {
		for _, issue := range rec.Interpretation.Issues.Slice() {
			seen = seen.With(issue)
		}
	}
	remaining := last.Interpretation.Issues
	finalStatus := last.Interpretation.Status

	var signals []Signal
	resolved := 0
	for _, issue := range seen.Slice() {
		sig := s.track(res.Records, issue, finalStatus)
		if sig.ResolvedAt != 0 {
			resolved++
		}
		signals = append(signals, sig)
	}

	index := 100
	if n := seen.Len(); n > 0 {
		index = resolved * 100 / n
	}

	return Score{
		Index:     index,
		Converged: finalStatus == model.StatusOK,
		Seen:      seen,
		Remaining: remaining,
		Signals:   signals,
	}
}

// track follows one issue through the records.
func (s *Scorer) track(records []model.IterationRecord, issue model.Issue, final model.Status) Signal {
	first, lastIdx := -1, -1
	gaps := false
	for i, rec := range records {
		if !rec.Interpretation.Issues.Has(issue) {
			continue
		}
		if first < 0 {
			first = i
		} else if lastIdx != i-1 {
			gaps = true
		}
		lastIdx = i
	}

	sig := Signal{
		Issue:      issue,
		FirstSeen:  records[first].Iteration,
		Reappeared: gaps,
	}
	if lastIdx < len(records)-1 {
		sig.ResolvedAt = records[lastIdx+1].Iteration
		sig.Severity = SeverityInfo
		sig.Description = fmt.Sprintf("%s first seen in iteration %d, resolved in iteration %d",
			issue, sig.FirstSeen, sig.ResolvedAt)
	} else {
		sig.Severity = SeverityCritical
		if final == model.StatusWarning {
			sig.Severity = SeverityWarning
		}
		sig.Description = fmt.Sprintf("%s first seen in iteration %d, still present after iteration %d",
			issue, sig.FirstSeen, records[lastIdx].Iteration)
	}
	if gaps {
		sig.Description += " (reappeared)"
	}
	return sig
}
