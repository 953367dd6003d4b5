package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultCacheMaxSize = 128
	defaultCacheTTL     = 5 * time.Minute
)

// CacheConfig configures the tool result cache.
type CacheConfig struct {
	// MaxSize is the maximum number of entries in the LRU cache.
	MaxSize int
	// TTL is how long a cached result remains valid.
	TTL time.Duration
	// OnEvent, when set, is called with true for a hit and false for a
	// miss. Used to feed the metrics collector.
	OnEvent func(hit bool)
}

type cacheEntry struct {
	result   ToolResult
	storedAt time.Time
}

// cachedExecutor wraps an Executor with an LRU result cache keyed on tool
// name + canonical arguments. Error results are never cached.
type cachedExecutor struct {
	delegate Executor
	cache    *lru.Cache[string, cacheEntry]
	ttl      time.Duration
	onEvent  func(hit bool)
}

// NewCached wraps delegate with an LRU result cache. Zero config values
// fall back to defaults.
func NewCached(delegate Executor, config CacheConfig) Executor {
	if delegate == nil {
		return nil
	}
	if config.MaxSize <= 0 {
		config.MaxSize = defaultCacheMaxSize
	}
	if config.TTL <= 0 {
		config.TTL = defaultCacheTTL
	}
	cache, err := lru.New[string, cacheEntry](config.MaxSize)
	if err != nil {
		// lru.New only errors on non-positive size, guarded above.
		return delegate
	}
	return &cachedExecutor{
		delegate: delegate,
		cache:    cache,
		ttl:      config.TTL,
		onEvent:  config.OnEvent,
	}
}

func (c *cachedExecutor) Execute(ctx context.Context, call ToolCall) (*ToolResult, error) {
	key := cacheKey(c.delegate.Definition().Name, call.Args)

	if entry, ok := c.cache.Get(key); ok {
		if time.Since(entry.storedAt) < c.ttl {
			c.emit(true)
			cached := entry.result
			cached.CallID = call.ID
			cached.Data = cloneData(entry.result.Data)
			return &cached, nil
		}
		// Expired, evict so the LRU bookkeeping stays clean.
		c.cache.Remove(key)
	}
	c.emit(false)

	result, err := c.delegate.Execute(ctx, call)
	if err != nil {
		return result, err
	}
	if result != nil && result.Success {
		c.cache.Add(key, cacheEntry{
			result: ToolResult{
				Content: result.Content,
				Data:    cloneData(result.Data),
				Success: true,
			},
			storedAt: time.Now(),
		})
	}
	return result, nil
}

func (c *cachedExecutor) Definition() Definition {
	return c.delegate.Definition()
}

func (c *cachedExecutor) emit(hit bool) {
	if c.onEvent != nil {
		c.onEvent(hit)
	}
}

// cacheKey produces a deterministic key from tool name + arguments by
// serializing the args with keys sorted at every level.
func cacheKey(name string, args map[string]any) string {
	return fmt.Sprintf("%s:%s", name, normalizeArgs(args))
}

func normalizeArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	data, err := json.Marshal(sortedMap(args))
	if err != nil {
		return "{}"
	}
	return string(data)
}

// sortedMap rebuilds m so json.Marshal serializes nested maps with sorted
// keys too (top-level maps are already sorted by encoding/json).
func sortedMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := m[k]
		if nested, ok := v.(map[string]any); ok {
			v = sortedMap(nested)
		}
		out[k] = v
	}
	return out
}

// cloneData shallow-copies the payload map so cached entries never alias
// caller maps.
func cloneData(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

var _ Executor = (*cachedExecutor)(nil)
