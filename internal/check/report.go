package check

import (
	"bufio"
	"fmt"
	"strings"
)

const shaclNS = "http://www.w3.org/ns/shacl#"

// FormatReport renders violations in the text layout pySHACL prints, so
// that every checker produces reports of the same shape.
func FormatReport(conforms bool, violations []Violation) string {
	var b strings.Builder
	b.WriteString("Validation Report\n")
	if conforms {
		b.WriteString("Conforms: True\n")
		return b.String()
	}
	b.WriteString("Conforms: False\n")
	fmt.Fprintf(&b, "Results (%d):\n", len(violations))
	for _, v := range violations {
		severity := v.Severity
		if severity == "" {
			severity = SeverityViolation
		}
		kind := "Violation"
		if severity != SeverityViolation {
			kind = strings.TrimPrefix(severity, "sh:")
		}
		fmt.Fprintf(&b, "Constraint %s in %s (%s%s):\n", kind, v.Component, shaclNS, v.Component)
		fmt.Fprintf(&b, "\tSeverity: %s\n", severity)
		fmt.Fprintf(&b, "\tFocus Node: %s\n", v.Focus)
		if v.Path != "" {
			fmt.Fprintf(&b, "\tResult Path: %s\n", v.Path)
		}
		if v.Message != "" {
			fmt.Fprintf(&b, "\tMessage: %s\n", v.Message)
		}
	}
	return b.String()
}

// ParseReport recovers violation records from a pySHACL style text report.
// Lines it does not recognize are ignored.
func ParseReport(report string) []Violation {
	var (
		out     []Violation
		current *Violation
	)
	flush := func() {
		if current != nil {
			out = append(out, *current)
			current = nil
		}
	}

	sc := bufio.NewScanner(strings.NewReader(report))
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if component, ok := constraintHeader(line); ok {
			flush()
			current = &Violation{Component: component}
			continue
		}
		if current == nil {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "Severity":
			current.Severity = value
		case "Focus Node":
			current.Focus = value
		case "Result Path":
			current.Path = value
		case "Message":
			current.Message = value
		}
	}
	flush()
	return out
}

// constraintHeader matches "Constraint Violation in XComponent (iri):".
func constraintHeader(line string) (string, bool) {
	if !strings.HasPrefix(line, "Constraint ") {
		return "", false
	}
	_, rest, ok := strings.Cut(line, " in ")
	if !ok {
		return "", false
	}
	component := strings.TrimSuffix(rest, ":")
	if i := strings.IndexByte(component, ' '); i >= 0 {
		component = component[:i]
	}
	return component, component != ""
}
