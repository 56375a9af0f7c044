package model

import (
	"fmt"
	"time"
)

// Status classifies the outcome of a conformance check.
type Status uint8

const (
	StatusOK        Status = iota + 1 // graph conforms
	StatusWarning                     // only non-violation severities reported
	StatusViolation                   // at least one violation
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusWarning:
		return "warning"
	case StatusViolation:
		return "violation"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// MarshalText renders the status name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name. Unknown names are kept as an
// out-of-range status rather than rejected, so old records still load.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "ok":
		*s = StatusOK
	case "warning":
		*s = StatusWarning
	case "violation":
		*s = StatusViolation
	default:
		*s = 0
	}
	return nil
}

// Action is the control decision taken after an iteration.
type Action uint8

const (
	ActionStop            Action = iota + 1 // end the run
	ActionAcceptWithNotes                   // end the run, keep the notes
	ActionIterate                           // rebuild with the new issues
)

func (a Action) String() string {
	switch a {
	case ActionStop:
		return "stop"
	case ActionAcceptWithNotes:
		return "accept_with_notes"
	case ActionIterate:
		return "iterate"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

// Terminal reports whether the action ends the loop on its own.
func (a Action) Terminal() bool {
	return a == ActionStop || a == ActionAcceptWithNotes
}

// MarshalText renders the action name.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses an action name.
func (a *Action) UnmarshalText(text []byte) error {
	switch string(text) {
	case "stop":
		*a = ActionStop
	case "accept_with_notes":
		*a = ActionAcceptWithNotes
	case "iterate":
		*a = ActionIterate
	default:
		return fmt.Errorf("unknown action %q", text)
	}
	return nil
}

// Interpretation is the symbolic reading of a conformance report.
// Issues is empty if and only if Status is StatusOK.
type Interpretation struct {
	Status  Status   `json:"status"`
	Issues  IssueSet `json:"issues"`
	Message string   `json:"message"`
}

// Validate checks the ok-iff-empty invariant.
func (i Interpretation) Validate() error {
	if (i.Status == StatusOK) != i.Issues.Empty() {
		return fmt.Errorf("interpretation status %s with issues %s", i.Status, i.Issues)
	}
	return nil
}

// StopReason records why a run ended.
type StopReason string

const (
	StopDecision        StopReason = "decision"         // policy returned a terminal action
	StopBudgetExhausted StopReason = "budget_exhausted" // max iterations reached
)

// IterationRecord is the audit entry for one pass of the loop.
// Records are appended once and never modified.
type IterationRecord struct {
	Iteration      int            `json:"iteration"`
	GraphPath      string         `json:"graph_path"`
	ArtifactCID    string         `json:"artifact_cid,omitempty"`
	Triples        int            `json:"triples"`
	IssuesIn       IssueSet       `json:"issues_in"`
	Interpretation Interpretation `json:"interpretation"`
	Action         Action         `json:"action"`
	CheckDuration  time.Duration  `json:"check_duration_ns"`
}

// RunResult is the outcome of a full repair run.
type RunResult struct {
	RunID       string            `json:"run_id"`
	FactsPath   string            `json:"facts_path,omitempty"`
	SchemaPath  string            `json:"schema_path,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
	Records     []IterationRecord `json:"records"`
	FinalAction Action            `json:"final_action"`
	StopReason  StopReason        `json:"stop_reason"`
}

// Last returns the final iteration record, if any.
func (r *RunResult) Last() (IterationRecord, bool) {
	if r == nil || len(r.Records) == 0 {
		return IterationRecord{}, false
	}
	return r.Records[len(r.Records)-1], true
}

// Iterations returns the number of completed iterations.
func (r *RunResult) Iterations() int {
	if r == nil {
		return 0
	}
	return len(r.Records)
}
