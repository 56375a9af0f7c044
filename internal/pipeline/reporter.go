package pipeline

import (
	"fmt"
	"io"

	"github.com/ppiankov/kgrepair/internal/model"
	"github.com/ppiankov/kgrepair/internal/score"
)

// Reporter is told about every finished iteration and about the end of
// the run.
type Reporter interface {
	Iteration(rec model.IterationRecord)
	Finished(res *model.RunResult)
}

// TextReporter prints the human-readable progress lines.
type TextReporter struct {
	w       io.Writer
	verbose bool
}

// NewTextReporter writes to w. In verbose mode it also prints the issues
// fed into each iteration and a closing summary with the repair index.
func NewTextReporter(w io.Writer, verbose bool) *TextReporter {
	return &TextReporter{w: w, verbose: verbose}
}

func (r *TextReporter) Iteration(rec model.IterationRecord) {
	fmt.Fprintf(r.w, "\n--- Iteration %d ---\n", rec.Iteration)
	if r.verbose {
		fmt.Fprintf(r.w, "Issues in: %s\n", rec.IssuesIn)
		fmt.Fprintf(r.w, "Graph: %s (%d triples)\n", rec.GraphPath, rec.Triples)
	}
	fmt.Fprintf(r.w, "Interpretation: %s\n", rec.Interpretation.Message)
	fmt.Fprintf(r.w, "Decision: %s\n", rec.Action)
}

func (r *TextReporter) Finished(res *model.RunResult) {
	if !r.verbose {
		return
	}
	fmt.Fprintf(r.w, "\nRun %s finished after %d iteration(s): %s (%s)\n",
		res.RunID, res.Iterations(), res.FinalAction, res.StopReason)

	sc := score.NewScorer().Calculate(res)
	fmt.Fprintf(r.w, "Repair index: %d/100\n", sc.Index)
	for _, sig := range sc.Signals {
		fmt.Fprintf(r.w, "  [%s] %s\n", sig.Severity, sig.Description)
	}
}

type nopReporter struct{}

func (nopReporter) Iteration(model.IterationRecord) {}
func (nopReporter) Finished(*model.RunResult)       {}
