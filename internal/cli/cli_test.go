package cli

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/kgrepair/internal/model"
	"github.com/ppiankov/kgrepair/internal/store"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// captureStdout runs fn with os.Stdout redirected and returns what it wrote.
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)

	out := make(chan string)
	go func() {
		data, _ := io.ReadAll(r)
		out <- string(data)
	}()

	orig := os.Stdout
	os.Stdout = w
	runErr := fn()
	os.Stdout = orig
	require.NoError(t, w.Close())
	return <-out, runErr
}

func examplePath(name string) string {
	return filepath.Join("..", "..", "examples", name)
}

func TestRunCommand_Example(t *testing.T) {
	out := t.TempDir()
	err := execute(t, "run",
		filepath.Join("..", "..", "examples", "sample_story.txt"),
		filepath.Join("..", "..", "examples", "genealogy.mg"),
		"--output-dir", out, "--run-id", "cli")
	require.NoError(t, err)

	res, err := store.ReadRecord(out, "cli")
	require.NoError(t, err)
	assert.Equal(t, model.StopDecision, res.StopReason)
	assert.Equal(t, model.ActionStop, res.FinalAction)
	assert.FileExists(t, filepath.Join(out, "cli", "iteration_1.ttl"))
}

func TestRunCommand_BadMaxIterations(t *testing.T) {
	out := t.TempDir()
	story := filepath.Join("..", "..", "examples", "sample_story.txt")
	schema := filepath.Join("..", "..", "examples", "genealogy.mg")

	err := execute(t, "run", story, schema, "three", "--output-dir", out)
	assert.ErrorContains(t, err, "max-iterations must be an integer")

	err = execute(t, "run", story, schema, "0", "--output-dir", out)
	assert.ErrorContains(t, err, "run.max_iterations must be >= 1")
}

func TestRunCommand_MissingSchema(t *testing.T) {
	err := execute(t, "run",
		filepath.Join("..", "..", "examples", "sample_story.txt"),
		filepath.Join(t.TempDir(), "missing.mg"),
		"--output-dir", t.TempDir())
	assert.ErrorContains(t, err, "read schema")
}

func TestBatchCommand_DistinctRuns(t *testing.T) {
	out := t.TempDir()
	// a configured run id must not be shared by the runs of a batch
	t.Setenv("KGREPAIR_RUN_RUN_ID", "fixed")

	err := execute(t, "batch", examplePath("batch.txt"), examplePath("genealogy.mg"),
		"--output-dir", out, "--workers", "2")
	require.NoError(t, err)

	ids, err := store.ListRunIDs(out)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
	assert.NotContains(t, ids, "fixed")

	var facts []string
	for _, id := range ids {
		res, err := store.ReadRecord(out, id)
		require.NoError(t, err)
		assert.Equal(t, id, res.RunID)
		facts = append(facts, filepath.Base(res.FactsPath))
	}
	assert.ElementsMatch(t, []string{"sample_story.txt", "family.yaml"}, facts)
}

func TestRunsCommands(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, execute(t, "batch", examplePath("batch.txt"), examplePath("genealogy.mg"), "--output-dir", out))
	ids, err := store.ListRunIDs(out)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	listing, err := captureStdout(t, func() error { return execute(t, "runs", "--output-dir", out) })
	require.NoError(t, err)
	for _, id := range ids {
		assert.Contains(t, listing, id)
	}
	assert.Contains(t, listing, "/100\n")

	shown, err := captureStdout(t, func() error { return execute(t, "runs", "show", ids[0], "--output-dir", out) })
	require.NoError(t, err)
	var record struct {
		RunID string `json:"run_id"`
		Score *struct {
			Index   int      `json:"index"`
			Signals []struct {
				Issue string `json:"issue"`
			} `json:"signals"`
		} `json:"score"`
	}
	require.NoError(t, json.Unmarshal([]byte(shown), &record))
	assert.Equal(t, ids[0], record.RunID)
	require.NotNil(t, record.Score)
	assert.GreaterOrEqual(t, record.Score.Index, 0)
	assert.LessOrEqual(t, record.Score.Index, 100)
	require.NotEmpty(t, record.Score.Signals)
	for _, sig := range record.Score.Signals {
		_, err := model.ParseIssue(sig.Issue)
		assert.NoError(t, err, "signal issue %q", sig.Issue)
	}

	err = execute(t, "runs", "show", "missing", "--output-dir", out)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCheckCommand_Artifacts(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, execute(t, "run", examplePath("sample_story.txt"), examplePath("genealogy.mg"),
		"--output-dir", out, "--run-id", "for-check"))

	artifact := filepath.Join(out, "for-check", "iteration_1.ttl")
	printed, err := captureStdout(t, func() error { return execute(t, "check", artifact, examplePath("genealogy.mg")) })
	require.NoError(t, err)
	assert.Contains(t, printed, "Conforms: False")
	assert.Contains(t, printed, "Interpretation: Detected issues: ")
	assert.Contains(t, printed, "too_many_parents")
	assert.Contains(t, printed, "Decision: iterate\n")

	// the graph the run stopped on checks clean on its own
	res, err := store.ReadRecord(out, "for-check")
	require.NoError(t, err)
	last := res.Records[len(res.Records)-1]
	printed, err = captureStdout(t, func() error { return execute(t, "check", last.GraphPath, examplePath("genealogy.mg")) })
	require.NoError(t, err)
	assert.Contains(t, printed, "Conforms: True")
	assert.Contains(t, printed, "Decision: stop\n")
}

func TestExtractCommand_Story(t *testing.T) {
	printed, err := captureStdout(t, func() error { return execute(t, "extract", examplePath("sample_story.txt")) })
	require.NoError(t, err)

	var facts model.FactSet
	require.NoError(t, json.Unmarshal([]byte(printed), &facts))
	ann, ok := facts["Ann Lee"]
	require.True(t, ok, "facts: %s", strings.TrimSpace(printed))
	assert.Equal(t, "Bob Lee", ann.Father)
	assert.Equal(t, "Carol Lee", ann.Mother)
	assert.Equal(t, []string{"Dan Lee"}, ann.Parents)
	require.NotNil(t, ann.BirthYear)
	assert.Equal(t, 1980, *ann.BirthYear)
}
