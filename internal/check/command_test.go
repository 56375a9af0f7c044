package check

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func writeArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "iteration_1.ttl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewCommandChecker_Validation(t *testing.T) {
	_, err := NewCommandChecker(nil, "shapes.ttl", nil)
	assert.Error(t, err)

	_, err = NewCommandChecker([]string{"pyshacl", "-s", "{shapes}"}, "shapes.ttl", nil)
	assert.ErrorContains(t, err, "{data}")
}

func TestCommandChecker_Args(t *testing.T) {
	c, err := NewCommandChecker([]string{"pyshacl", "-s", "{shapes}", "-i", "rdfs", "{data}"}, "shapes.ttl", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"pyshacl", "-s", "shapes.ttl", "-i", "rdfs", "runs/x/iteration_2.ttl"},
		c.args("runs/x/iteration_2.ttl"))
}

func TestCommandChecker_Conforms(t *testing.T) {
	requireShell(t)
	c, err := NewCommandChecker([]string{"sh", "-c", "test -f {data} && echo 'Validation Report' && echo 'Conforms: True'"}, "shapes.ttl", nil)
	require.NoError(t, err)

	res, err := c.Check(context.Background(), nil, writeArtifact(t, "# empty\n"))
	require.NoError(t, err)
	assert.True(t, res.Conforms)
	assert.Contains(t, res.Report, "Conforms: True")
	assert.Empty(t, res.Violations)
}

func TestCommandChecker_NonConforming(t *testing.T) {
	requireShell(t)
	report := FormatReport(false, []Violation{{
		Focus: "fhkb:Ann", Path: "fhkb:hasParent", Component: "MaxCountConstraintComponent", Severity: SeverityViolation,
	}})
	reportPath := writeArtifact(t, report)

	c, err := NewCommandChecker([]string{"sh", "-c", "cat {shapes}; exit 1", "{data}"}, reportPath, nil)
	require.NoError(t, err)

	res, err := c.Check(context.Background(), nil, writeArtifact(t, ""))
	require.NoError(t, err)
	assert.False(t, res.Conforms)
	assert.Equal(t, report, res.Report)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, "MaxCountConstraintComponent", res.Violations[0].Component)
}

func TestCommandChecker_Failure(t *testing.T) {
	requireShell(t)
	c, err := NewCommandChecker([]string{"sh", "-c", "echo 'no such shapes file' >&2; exit 2", "{data}"}, "shapes.ttl", nil)
	require.NoError(t, err)

	_, err = c.Check(context.Background(), nil, writeArtifact(t, ""))
	assert.ErrorContains(t, err, "no such shapes file")

	_, err = c.Check(context.Background(), nil, "")
	assert.ErrorContains(t, err, "artifact path")
}

func TestCommandChecker_MissingBinary(t *testing.T) {
	c, err := NewCommandChecker([]string{"kgrepair-no-such-validator", "{data}"}, "shapes.ttl", nil)
	require.NoError(t, err)
	_, err = c.Check(context.Background(), nil, writeArtifact(t, ""))
	assert.Error(t, err)
}
