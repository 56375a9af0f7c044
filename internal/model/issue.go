package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Issue is a symbolic tag summarizing one class of constraint violation.
// The vocabulary is closed: the zero value is not a valid issue.
type Issue uint8

const (
	IssueMissingType          Issue = iota + 1 // node lacks rdf:type
	IssueMissingLabel                          // node lacks rdfs:label
	IssueWrongParentType                       // father/mother target has the wrong class
	IssueCardinalityViolation                  // a minimum-count constraint failed
	IssueTooManyParents                        // a maximum-count constraint failed
	IssueUnknownViolation                      // the report could not be explained
)

var issueNames = map[Issue]string{
	IssueMissingType:          "missing_type",
	IssueMissingLabel:         "missing_label",
	IssueWrongParentType:      "wrong_parent_type",
	IssueCardinalityViolation: "cardinality_violation",
	IssueTooManyParents:       "too_many_parents",
	IssueUnknownViolation:     "unknown_violation",
}

// AllIssues returns the full vocabulary in declaration order.
func AllIssues() []Issue {
	return []Issue{
		IssueMissingType,
		IssueMissingLabel,
		IssueWrongParentType,
		IssueCardinalityViolation,
		IssueTooManyParents,
		IssueUnknownViolation,
	}
}

func (i Issue) String() string {
	if name, ok := issueNames[i]; ok {
		return name
	}
	return fmt.Sprintf("issue(%d)", uint8(i))
}

// Valid reports whether i belongs to the vocabulary.
func (i Issue) Valid() bool {
	_, ok := issueNames[i]
	return ok
}

// ParseIssue maps a tag back to its Issue.
func ParseIssue(s string) (Issue, error) {
	for issue, name := range issueNames {
		if name == s {
			return issue, nil
		}
	}
	return 0, fmt.Errorf("unknown issue tag %q", s)
}

// MarshalText renders the issue tag. Issues outside the vocabulary are
// rejected.
func (i Issue) MarshalText() ([]byte, error) {
	if !i.Valid() {
		return nil, fmt.Errorf("invalid issue %d", uint8(i))
	}
	return []byte(i.String()), nil
}

// UnmarshalText parses an issue tag.
func (i *Issue) UnmarshalText(text []byte) error {
	issue, err := ParseIssue(string(text))
	if err != nil {
		return err
	}
	*i = issue
	return nil
}

// IssueSet is an unordered, deduplicated set of issues.
// It is a value type; With returns a new set.
type IssueSet uint16

// NewIssueSet builds a set from issues. Invalid issues are ignored.
func NewIssueSet(issues ...Issue) IssueSet {
	var s IssueSet
	for _, i := range issues {
		s = s.With(i)
	}
	return s
}

// With returns s plus i.
func (s IssueSet) With(i Issue) IssueSet {
	if !i.Valid() {
		return s
	}
	return s | 1<<uint(i)
}

// Has reports whether i is in s.
func (s IssueSet) Has(i Issue) bool {
	return i.Valid() && s&(1<<uint(i)) != 0
}

// Empty reports whether s has no issues.
func (s IssueSet) Empty() bool {
	return s == 0
}

// Len returns the number of issues in s.
func (s IssueSet) Len() int {
	n := 0
	for _, i := range AllIssues() {
		if s.Has(i) {
			n++
		}
	}
	return n
}

// Slice returns the issues sorted by tag name.
func (s IssueSet) Slice() []Issue {
	var out []Issue
	for _, i := range AllIssues() {
		if s.Has(i) {
			out = append(out, i)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].String() < out[b].String() })
	return out
}

// Strings returns the sorted tag names.
func (s IssueSet) Strings() []string {
	issues := s.Slice()
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.String()
	}
	return out
}

func (s IssueSet) String() string {
	return "{" + strings.Join(s.Strings(), ", ") + "}"
}

// MarshalJSON renders the set as a sorted list of tags.
func (s IssueSet) MarshalJSON() ([]byte, error) {
	tags := s.Strings()
	if tags == nil {
		tags = []string{}
	}
	return json.Marshal(tags)
}

// UnmarshalJSON parses a list of tags.
func (s *IssueSet) UnmarshalJSON(data []byte) error {
	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		return err
	}
	var out IssueSet
	for _, tag := range tags {
		issue, err := ParseIssue(tag)
		if err != nil {
			return err
		}
		out = out.With(issue)
	}
	*s = out
	return nil
}
