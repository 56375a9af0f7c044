package check

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/kgrepair/internal/cache"
	"github.com/ppiankov/kgrepair/internal/graph"
	"github.com/ppiankov/kgrepair/internal/store"
)

// Cached memoizes another checker by content: the key is the schema CID
// plus the CID of the graph's Turtle serialization, so an unchanged graph
// is never validated twice. Failed checks are not cached.
type Cached struct {
	next      Checker
	store     cache.Cache
	schemaCID string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewCached wraps next. schema is the raw schema bytes.
func NewCached(next Checker, c cache.Cache, schema []byte, ttl time.Duration, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{
		next:      next,
		store:     c,
		schemaCID: store.ContentIDString(schema),
		ttl:       ttl,
		logger:    logger,
	}
}

func (c *Cached) Check(ctx context.Context, g *graph.Graph, artifactPath string) (Result, error) {
	data, err := graph.MarshalTurtle(g)
	if err != nil {
		return Result{}, fmt.Errorf("serialize graph: %w", err)
	}
	key := cache.Key(c.schemaCID, store.ContentIDString(data))

	if raw, ok := c.store.Get(key); ok {
		var res Result
		if err := json.Unmarshal(raw, &res); err == nil {
			c.logger.Debug("check cache hit", zap.String("key", key))
			return res, nil
		}
		_ = c.store.Delete(key)
	}

	res, err := c.next.Check(ctx, g, artifactPath)
	if err != nil {
		return Result{}, err
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return res, nil
	}
	if err := c.store.Set(key, raw, c.ttl); err != nil {
		c.logger.Warn("check cache write failed", zap.String("key", key), zap.Error(err))
	}
	return res, nil
}
