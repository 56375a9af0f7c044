package check

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/kgrepair/internal/graph"
	"github.com/ppiankov/kgrepair/internal/model"
	"github.com/ppiankov/kgrepair/internal/util"
	"github.com/ppiankov/kgrepair/internal/worker"
)

const userAgent = "kgrepair/1 (+https://github.com/ppiankov/kgrepair)"

// retrySleep waits between attempts; tests replace it.
var retrySleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type httpRequest struct {
	Data       string `json:"data"`
	DataFormat string `json:"data_format"`
	Shapes     string `json:"shapes"`
}

type httpResponse struct {
	Conforms bool        `json:"conforms"`
	Report   string      `json:"report"`
	Results  []Violation `json:"results"`
}

// HTTPChecker posts the graph and the schema text to a validation service.
type HTTPChecker struct {
	endpoint string
	schema   string
	attempts int
	client   *http.Client
	limiter  *worker.HostLimiter
	logger   *zap.Logger
}

// Checkers built with the same rate settings share one limiter, so the
// runs of a batch draw from a single per-host budget.
var sharedLimiters = struct {
	sync.Mutex
	byRate map[string]*worker.HostLimiter
}{byRate: make(map[string]*worker.HostLimiter)}

func sharedLimiter(rps float64, burst int) *worker.HostLimiter {
	key := fmt.Sprintf("%g/%d", rps, burst)
	sharedLimiters.Lock()
	defer sharedLimiters.Unlock()
	l, ok := sharedLimiters.byRate[key]
	if !ok {
		l = worker.NewHostLimiter(rps, burst)
		sharedLimiters.byRate[key] = l
	}
	return l
}

// NewHTTPChecker builds a client for cfg.Endpoint.
func NewHTTPChecker(cfg model.CheckerConfig, schema string, logger *zap.Logger) (*HTTPChecker, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("http checker needs an endpoint")
	}
	proxy, err := util.ProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	attempts := cfg.Retries
	if attempts < 1 {
		attempts = 1
	}
	return &HTTPChecker{
		endpoint: cfg.Endpoint,
		schema:   schema,
		attempts: attempts,
		client: &http.Client{
			Transport: &http.Transport{Proxy: proxy},
		},
		limiter: sharedLimiter(cfg.RequestsPerSecond, cfg.Burst),
		logger:  logger,
	}, nil
}

// WithLimiter replaces the checker's limiter, so several checkers can
// share one budget per host.
func (c *HTTPChecker) WithLimiter(l *worker.HostLimiter) *HTTPChecker {
	c.limiter = l
	return c
}

func (c *HTTPChecker) Check(ctx context.Context, g *graph.Graph, _ string) (Result, error) {
	data, err := graph.MarshalTurtle(g)
	if err != nil {
		return Result{}, fmt.Errorf("serialize graph: %w", err)
	}
	body, err := json.Marshal(httpRequest{Data: string(data), DataFormat: "turtle", Shapes: c.schema})
	if err != nil {
		return Result{}, fmt.Errorf("encode request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			c.logger.Debug("retrying check", zap.Int("attempt", attempt+1), zap.Duration("backoff", backoff), zap.Error(lastErr))
			if err := retrySleep(ctx, backoff); err != nil {
				return Result{}, err
			}
		}

		res, retry, err := c.post(ctx, body)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		lastErr = err
		if !retry {
			break
		}
	}
	return Result{}, fmt.Errorf("http check %s: %w", c.endpoint, lastErr)
}

// post sends one request. The bool reports whether the failure is worth
// retrying.
func (c *HTTPChecker) post(ctx context.Context, body []byte) (Result, bool, error) {
	if err := c.limiter.Wait(ctx, c.endpoint); err != nil {
		return Result{}, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, isRetryableNetworkError(err), fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return Result{}, true, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return Result{}, retry, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out httpResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Result{}, false, fmt.Errorf("decode response: %w", err)
	}
	report := out.Report
	if report == "" {
		report = FormatReport(out.Conforms, out.Results)
	}
	violations := out.Results
	if len(violations) == 0 && !out.Conforms {
		violations = ParseReport(report)
	}
	return Result{Conforms: out.Conforms, Report: report, Violations: violations}, false, nil
}

func isRetryableNetworkError(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset") ||
		strings.Contains(s, "eof")
}
