// Package interpret reduces a conformance report to symbolic issues.
package interpret

import (
	"strings"

	"github.com/ppiankov/kgrepair/internal/check"
	"github.com/ppiankov/kgrepair/internal/model"
)

// ConformsMessage is the message of an ok interpretation.
const ConformsMessage = "Data conforms to all SHACL constraints."

type marker struct {
	text  string
	issue model.Issue
}

// markers is matched case-sensitively against report text. It mirrors
// the wording pySHACL uses, so it is only as reliable as that wording.
var markers = []marker{
	{"rdfs:label", model.IssueMissingLabel},
	{"hasFather", model.IssueWrongParentType},
	{"hasMother", model.IssueWrongParentType},
	{"MinCountConstraintComponent", model.IssueCardinalityViolation},
	{"class", model.IssueMissingType},
	{"rdf:type", model.IssueMissingType},
	{"MaxCountConstraintComponent", model.IssueTooManyParents},
}

// Scan returns the issues whose markers occur in text. Text that matches
// no marker yields unknown_violation, so the result is never empty.
func Scan(text string) model.IssueSet {
	return orUnknown(match(text))
}

func match(text string) model.IssueSet {
	var issues model.IssueSet
	for _, m := range markers {
		if strings.Contains(text, m.text) {
			issues = issues.With(m.issue)
		}
	}
	return issues
}

func orUnknown(issues model.IssueSet) model.IssueSet {
	if issues.Empty() {
		return issues.With(model.IssueUnknownViolation)
	}
	return issues
}

// Interpreter turns checker output into an Interpretation.
type Interpreter struct {
	allowWarnings bool
}

// New returns an interpreter. With allowWarnings, a report made only of
// warning or info records is read as StatusWarning instead of
// StatusViolation.
func New(allowWarnings bool) *Interpreter {
	return &Interpreter{allowWarnings: allowWarnings}
}

// Interpret reads a bare (conforms, report) pair by scanning the text.
func (in *Interpreter) Interpret(conforms bool, report string) model.Interpretation {
	if conforms {
		return ok()
	}
	return violation(Scan(report))
}

// InterpretResult prefers the structured records of res and falls back to
// scanning the text report when there are none. Records are matched on
// their path, component and message; unknown_violation is reported only
// when no record matches any marker.
func (in *Interpreter) InterpretResult(res check.Result) model.Interpretation {
	if res.Conforms {
		return ok()
	}
	if len(res.Violations) == 0 {
		return in.Interpret(false, res.Report)
	}

	var issues model.IssueSet
	onlyWarnings := true
	for _, v := range res.Violations {
		issues |= match(strings.Join([]string{v.Path, v.Component, v.Message}, "\n"))
		if v.IsViolation() {
			onlyWarnings = false
		}
	}
	issues = orUnknown(issues)
	if in.allowWarnings && onlyWarnings {
		return model.Interpretation{
			Status:  model.StatusWarning,
			Issues:  issues,
			Message: "Detected warnings: " + strings.Join(issues.Strings(), ", "),
		}
	}
	return violation(issues)
}

func ok() model.Interpretation {
	return model.Interpretation{Status: model.StatusOK, Message: ConformsMessage}
}

func violation(issues model.IssueSet) model.Interpretation {
	return model.Interpretation{
		Status:  model.StatusViolation,
		Issues:  issues,
		Message: "Detected issues: " + strings.Join(issues.Strings(), ", "),
	}
}
