package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/kgrepair/internal/model"
)

// Runner executes one repair run on a facts file.
type Runner interface {
	RunFile(ctx context.Context, factsPath string) (*model.RunResult, error)
}

// RunJob is one facts file in a batch.
type RunJob struct {
	FactsPath string
	Runner    Runner

	index int // position in the batch input
}

// Execute runs the repair loop for the job's file.
func (j *RunJob) Execute(ctx context.Context) Result {
	res, err := j.Runner.RunFile(ctx, j.FactsPath)
	return &RunOutcome{FactsPath: j.FactsPath, Result: res, Error: err, index: j.index}
}

// RunOutcome is the result of one RunJob.
type RunOutcome struct {
	FactsPath string
	Result    *model.RunResult
	Error     error

	index int
}

func (o *RunOutcome) Err() error {
	return o.Error
}

// BatchProcessor runs many facts files concurrently. Each file gets its
// own run; runs share nothing but the runner's checker.
type BatchProcessor struct {
	runner      Runner
	concurrency int
}

// NewBatchProcessor returns a processor using at most concurrency workers.
func NewBatchProcessor(runner Runner, concurrency int) *BatchProcessor {
	return &BatchProcessor{runner: runner, concurrency: concurrency}
}

// ProcessFiles runs every path and returns one outcome per path, in input
// order. Paths that never ran because ctx ended carry ctx's error.
func (b *BatchProcessor) ProcessFiles(ctx context.Context, paths []string) []*RunOutcome {
	outcomes := make([]*RunOutcome, len(paths))
	if len(paths) == 0 {
		return outcomes
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()
	for i, path := range paths {
		if !pool.Submit(&RunJob{FactsPath: path, Runner: b.runner, index: i}) {
			break
		}
	}
	for _, r := range pool.Wait() {
		o := r.(*RunOutcome)
		outcomes[o.index] = o
	}

	for i, o := range outcomes {
		if o != nil {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		outcomes[i] = &RunOutcome{FactsPath: paths[i], Error: fmt.Errorf("not run: %w", err), index: i}
	}
	return outcomes
}

// ProcessList reads a list file and runs every entry.
func (b *BatchProcessor) ProcessList(ctx context.Context, listPath string) ([]*RunOutcome, error) {
	paths, err := ReadFactsList(listPath)
	if err != nil {
		return nil, fmt.Errorf("read list: %w", err)
	}
	return b.ProcessFiles(ctx, paths), nil
}

// ReadFactsList reads one facts path per line. Blank lines and lines
// starting with # are skipped, duplicates are dropped, and relative paths
// are resolved against the list file's directory.
func ReadFactsList(listPath string) ([]string, error) {
	file, err := os.Open(listPath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(listPath)
	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}
		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return paths, nil
}
