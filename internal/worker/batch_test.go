package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/kgrepair/internal/model"
)

type mockRunner struct {
	mu   sync.Mutex
	seen []string
	fail map[string]bool
}

func (m *mockRunner) RunFile(ctx context.Context, path string) (*model.RunResult, error) {
	time.Sleep(5 * time.Millisecond)
	m.mu.Lock()
	m.seen = append(m.seen, path)
	m.mu.Unlock()
	if m.fail[path] {
		return nil, errors.New("checker failed")
	}
	return &model.RunResult{
		RunID:       uuid.NewString(),
		FactsPath:   path,
		FinalAction: model.ActionStop,
		StopReason:  model.StopDecision,
	}, nil
}

func TestBatchProcessor_ProcessFiles(t *testing.T) {
	runner := &mockRunner{fail: map[string]bool{"b.txt": true}}
	processor := NewBatchProcessor(runner, 2)

	outcomes := processor.ProcessFiles(context.Background(), []string{"a.txt", "b.txt", "c.yaml"})
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}

	want := []string{"a.txt", "b.txt", "c.yaml"}
	for i, o := range outcomes {
		if o.FactsPath != want[i] {
			t.Errorf("outcome %d is for %s, want %s", i, o.FactsPath, want[i])
		}
	}
	if outcomes[1].Err() == nil {
		t.Error("expected b.txt to fail")
	}
	if outcomes[0].Err() != nil || outcomes[0].Result == nil {
		t.Errorf("a.txt: %v", outcomes[0].Err())
	}
	if outcomes[0].Result.RunID == outcomes[2].Result.RunID {
		t.Error("runs in a batch must have distinct run ids")
	}
}

// cancellingRunner cancels the batch during its first run, which itself
// succeeds. Later runs fail with the context error if they start at all.
type cancellingRunner struct {
	cancel context.CancelFunc
	calls  int32
}

func (r *cancellingRunner) RunFile(ctx context.Context, path string) (*model.RunResult, error) {
	if atomic.AddInt32(&r.calls, 1) == 1 {
		r.cancel()
		return &model.RunResult{RunID: "first", FactsPath: path}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &model.RunResult{RunID: uuid.NewString(), FactsPath: path}, nil
}

func TestBatchProcessor_CancelledMidBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := &cancellingRunner{cancel: cancel}
	paths := []string{"a.txt", "b.txt", "c.txt", "d.txt", "e.txt"}

	outcomes := NewBatchProcessor(runner, 1).ProcessFiles(ctx, paths)

	if len(outcomes) != len(paths) {
		t.Fatalf("expected %d outcomes, got %d", len(paths), len(outcomes))
	}
	for i, o := range outcomes {
		if o.FactsPath != paths[i] {
			t.Errorf("outcome %d is for %s, want %s", i, o.FactsPath, paths[i])
		}
	}
	if outcomes[0].Err() != nil || outcomes[0].Result == nil || outcomes[0].Result.RunID != "first" {
		t.Errorf("first run should be kept, got %+v", outcomes[0])
	}
	for _, o := range outcomes[1:] {
		if !errors.Is(o.Err(), context.Canceled) {
			t.Errorf("%s: expected context.Canceled, got %v", o.FactsPath, o.Err())
		}
		if o.Result != nil {
			t.Errorf("%s: unexpected result after cancellation", o.FactsPath)
		}
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	outcomes := NewBatchProcessor(&mockRunner{}, 4).ProcessFiles(context.Background(), nil)
	if len(outcomes) != 0 {
		t.Errorf("expected no outcomes, got %d", len(outcomes))
	}
}

func TestReadFactsList(t *testing.T) {
	dir := t.TempDir()
	content := strings.Join([]string{
		"# stories",
		"ann.txt",
		"",
		"  family.yaml  ",
		"ann.txt",
		"/abs/other.json",
	}, "\n")
	listPath := filepath.Join(dir, "batch.txt")
	if err := os.WriteFile(listPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	paths, err := ReadFactsList(listPath)
	if err != nil {
		t.Fatalf("ReadFactsList: %v", err)
	}
	want := []string{filepath.Join(dir, "ann.txt"), filepath.Join(dir, "family.yaml"), "/abs/other.json"}
	if len(paths) != len(want) {
		t.Fatalf("got %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("path %d = %s, want %s", i, paths[i], want[i])
		}
	}
}

func TestBatchProcessor_ProcessList(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "batch.txt")
	if err := os.WriteFile(listPath, []byte("one.txt\ntwo.txt\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	runner := &mockRunner{}
	outcomes, err := NewBatchProcessor(runner, 2).ProcessList(context.Background(), listPath)
	if err != nil {
		t.Fatalf("ProcessList: %v", err)
	}
	if len(outcomes) != 2 || len(runner.seen) != 2 {
		t.Errorf("expected 2 runs, got %d outcomes and %d calls", len(outcomes), len(runner.seen))
	}

	if _, err := NewBatchProcessor(runner, 2).ProcessList(context.Background(), filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for missing list file")
	}
}
