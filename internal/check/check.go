// Package check validates a graph against a constraint schema.
//
// The repair loop only sees the Checker interface. Three implementations
// are provided: an in-process Datalog checker built on Mangle, a checker
// that shells out to an external validator such as pyshacl, and a client
// for a remote validation service. Any of them can be wrapped in Cached.
package check

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/kgrepair/internal/cache"
	"github.com/ppiankov/kgrepair/internal/graph"
	"github.com/ppiankov/kgrepair/internal/model"
)

// ErrTimeout is returned when a check does not finish within its deadline.
var ErrTimeout = errors.New("check: timed out")

// Severities used in violation records.
const (
	SeverityViolation = "sh:Violation"
	SeverityWarning   = "sh:Warning"
	SeverityInfo      = "sh:Info"
)

// Violation is one structured validation result.
type Violation struct {
	Focus     string `json:"focus"`
	Path      string `json:"path,omitempty"`
	Component string `json:"component"`
	Severity  string `json:"severity"`
	Message   string `json:"message,omitempty"`
}

// IsViolation reports whether the record has violation severity. Records
// without a severity count as violations.
func (v Violation) IsViolation() bool {
	return v.Severity == "" || v.Severity == SeverityViolation
}

// Result is the outcome of one check. Report is always populated;
// Violations is empty when the checker produced only text.
type Result struct {
	Conforms   bool        `json:"conforms"`
	Report     string      `json:"report"`
	Violations []Violation `json:"violations,omitempty"`
}

// Checker validates g. artifactPath is the serialized form of g on disk,
// for checkers that work on files.
type Checker interface {
	Check(ctx context.Context, g *graph.Graph, artifactPath string) (Result, error)
}

// WithTimeout runs c under a deadline. An expired deadline is reported as
// ErrTimeout; a non-positive timeout disables the deadline.
func WithTimeout(ctx context.Context, c Checker, timeout time.Duration, g *graph.Graph, artifactPath string) (Result, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := c.Check(ctx, g, artifactPath)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{}, fmt.Errorf("%w after %s: %v", ErrTimeout, timeout, err)
		}
		return Result{}, err
	}
	return res, nil
}

// New builds the checker selected by cfg for the schema at schemaPath,
// wrapped in the result cache when it is enabled.
func New(cfg *model.Config, schemaPath string, logger *zap.Logger) (Checker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	schema, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}

	var c Checker
	switch cfg.Checker.Kind {
	case model.CheckerMangle, "":
		c, err = NewMangleChecker(string(schema), logger)
	case model.CheckerCommand:
		c, err = NewCommandChecker(cfg.Checker.Command, schemaPath, logger)
	case model.CheckerHTTP:
		c, err = NewHTTPChecker(cfg.Checker, string(schema), logger)
	default:
		err = fmt.Errorf("unknown checker kind %q", cfg.Checker.Kind)
	}
	if err != nil {
		return nil, err
	}

	if !cfg.Cache.Enabled {
		return c, nil
	}
	store := cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	return NewCached(c, store, schema, cfg.Cache.DiskTTL, logger), nil
}
