package monitor

import "sync"

// BatchContext is a per-poll-cycle aggregation keyed by handler concrete
// type. The Poller creates one per concrete type it encounters among the
// running queue's batch-aware handlers, attaches it via BatchAware.Batch,
// and discards it at the end of the cycle. Handlers sharing a BatchContext
// can coalesce their status probes into a single backend call — e.g.
// handlers.RedisJobHandler registers its completion key here and the first
// one attached issues an MGET over the keys registered at that moment.
type BatchContext struct {
	mu   sync.Mutex
	data map[string]any
}

// NewBatchContext creates an empty collector.
func NewBatchContext() *BatchContext {
	return &BatchContext{data: make(map[string]any)}
}

// Add registers a value under key, for later retrieval by Get or Keys.
// Safe for concurrent use since multiple handlers of the same concrete
// type may be attached from different goroutines in future extensions,
// though the Poller currently attaches them sequentially within one cycle.
func (b *BatchContext) Add(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = value
}

// Get retrieves a previously Added value.
func (b *BatchContext) Get(key string) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	return v, ok
}

// Keys returns every key registered so far, for building a single batched
// backend request (e.g. an MGET over all completion keys).
func (b *BatchContext) Keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	return keys
}

// BatchCleanup coalesces Kill calls issued during Monitor.Cleanup, the way
// BatchContext coalesces status probes during a poll cycle. Handlers that
// implement GridAware receive the shared instance via
// AttachCleanup and register their own kill key; Kill is invoked exactly
// once after the drain loop finishes.
type BatchCleanup struct {
	mu   sync.Mutex
	keys []string
	kill func(keys []string) error
}

// NewBatchCleanup creates a cleanup aggregator. kill is invoked once, with
// every registered key, when Kill is called.
func NewBatchCleanup(kill func(keys []string) error) *BatchCleanup {
	return &BatchCleanup{kill: kill}
}

// Register adds a key (e.g. a backend job ID) to the batch to be killed.
func (c *BatchCleanup) Register(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append(c.keys, key)
}

// Kill flushes the aggregated kill request. Safe to call even with zero
// registered keys (no-op in that case).
func (c *BatchCleanup) Kill() error {
	c.mu.Lock()
	keys := c.keys
	c.mu.Unlock()
	if len(keys) == 0 || c.kill == nil {
		return nil
	}
	return c.kill(keys)
}
