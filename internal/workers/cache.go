// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workers

import (
	"context"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/pdiddy/repurposing-engine/internal/orchestrator"
	"github.com/pdiddy/repurposing-engine/pkg/types"
)

const defaultCacheSize = 256

// Cache holds recent worker outcomes keyed by worker, normalized query, and
// molecule override. Entries expire after the configured TTL.
type Cache struct {
	lru *expirable.LRU[string, types.WorkerOutcome]
}

// NewCache returns a cache of at most size entries. A ttl of zero keeps
// entries until evicted by size.
func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = defaultCacheSize
	}
	return &Cache{lru: expirable.NewLRU[string, types.WorkerOutcome](size, nil, ttl)}
}

// Len returns the number of live entries.
func (c *Cache) Len() int { return c.lru.Len() }

// Purge drops every entry.
func (c *Cache) Purge() { c.lru.Purge() }

// Cached wraps w so repeated identical calls are served from c. Errors and
// error outcomes are never cached.
func Cached(w orchestrator.Worker, c *Cache) orchestrator.Worker {
	if c == nil {
		return w
	}
	return &cachedWorker{inner: w, cache: c}
}

type cachedWorker struct {
	inner orchestrator.Worker
	cache *Cache
}

func (w *cachedWorker) Name() string { return w.inner.Name() }

func (w *cachedWorker) Process(ctx context.Context, query string, attrs map[string]any) (types.WorkerOutcome, error) {
	key := cacheKey(w.inner.Name(), query, attrs)
	if out, ok := w.cache.lru.Get(key); ok {
		return clone(out), nil
	}

	out, err := w.inner.Process(ctx, query, attrs)
	if err != nil || out.IsError() {
		return out, err
	}
	w.cache.lru.Add(key, clone(out))
	return out, nil
}

func cacheKey(worker, query string, attrs map[string]any) string {
	q := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	m, _ := attrs[AttrMolecule].(string)
	return worker + "\x00" + q + "\x00" + strings.ToLower(m)
}

// clone copies the evidence slice and metadata map so callers cannot
// mutate a cached entry.
func clone(o types.WorkerOutcome) types.WorkerOutcome {
	o.Evidence = slices.Clone(o.Evidence)
	o.Metadata = maps.Clone(o.Metadata)
	return o
}
