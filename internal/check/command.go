package check

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/kgrepair/internal/graph"
)

// Placeholders substituted into the command line.
const (
	PlaceholderData   = "{data}"
	PlaceholderShapes = "{shapes}"
)

// CommandChecker runs an external validator on the artifact file. Exit
// status 0 means the data conforms and 1 means it does not, which is the
// pyshacl convention. Any other status is a checker failure.
type CommandChecker struct {
	argv       []string
	schemaPath string
	logger     *zap.Logger
}

// NewCommandChecker validates the argv template. It must mention {data}.
func NewCommandChecker(argv []string, schemaPath string, logger *zap.Logger) (*CommandChecker, error) {
	if len(argv) == 0 {
		return nil, errors.New("checker command is empty")
	}
	hasData := false
	for _, a := range argv {
		if strings.Contains(a, PlaceholderData) {
			hasData = true
		}
	}
	if !hasData {
		return nil, fmt.Errorf("checker command must contain %s", PlaceholderData)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandChecker{argv: argv, schemaPath: schemaPath, logger: logger}, nil
}

func (c *CommandChecker) args(artifactPath string) []string {
	r := strings.NewReplacer(PlaceholderData, artifactPath, PlaceholderShapes, c.schemaPath)
	out := make([]string, len(c.argv))
	for i, a := range c.argv {
		out[i] = r.Replace(a)
	}
	return out
}

func (c *CommandChecker) Check(ctx context.Context, _ *graph.Graph, artifactPath string) (Result, error) {
	if artifactPath == "" {
		return Result{}, errors.New("command checker needs an artifact path")
	}
	args := c.args(artifactPath)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	var conforms bool
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		conforms = true
	case errors.As(err, &exitErr) && exitErr.ExitCode() == 1:
		conforms = false
	default:
		return Result{}, fmt.Errorf("run %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}

	report := stdout.String()
	c.logger.Debug("command check finished",
		zap.Strings("argv", args),
		zap.Bool("conforms", conforms),
		zap.Int("report_bytes", len(report)))
	return Result{
		Conforms:   conforms,
		Report:     report,
		Violations: ParseReport(report),
	}, nil
}
