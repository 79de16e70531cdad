// Package qcache caches answers by normalized question text. The event
// log is read-only, so a cached answer never goes stale within one
// process lifetime.
package qcache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/deshmukhh/crease/internal/domain/model"
	"github.com/deshmukhh/crease/pkg/metrics"
)

// Cache stores answers keyed by question text.
type Cache interface {
	// Get returns the cached answer for the question, if any.
	Get(ctx context.Context, question string) (*model.Answer, bool)

	// Put stores the answer for the question, evicting the oldest entry
	// when the cache is full.
	Put(ctx context.Context, question string, answer *model.Answer)

	Size() int64
}

// node is one entry of the eviction list, newest at the head.
type node struct {
	key    string
	answer *model.Answer
	next   *node
}

func (n *node) reset() {
	n.key = ""
	n.answer = nil
	n.next = nil
}

// inMemoryCache implements Cache with a map plus a linked list evicted
// from the tail. Bounded mode (maxSize > 0) recycles nodes through a
// sync.Pool; unbounded mode is just the map.
type inMemoryCache struct {
	mu       sync.RWMutex
	entries  map[string]*node
	head     *node
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// New creates an answer cache with configuration options.
func New(opts ...Option) Cache {
	c := &inMemoryCache{
		maxSize: 1024,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.entries = make(map[string]*node)
	if c.maxSize > 0 {
		c.nodePool = sync.Pool{
			New: func() interface{} {
				return &node{}
			},
		}
	}
	return c
}

// Key normalizes a question so trivial rephrasings share an entry.
func Key(question string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(question))), " ")
}

func (c *inMemoryCache) Get(ctx context.Context, question string) (*model.Answer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n, ok := c.entries[Key(question)]
	if !ok || n == nil {
		metrics.RecordCacheMiss()
		return nil, false
	}
	metrics.RecordCacheHit()
	return n.answer, true
}

func (c *inMemoryCache) Put(ctx context.Context, question string, answer *model.Answer) {
	key := Key(question)

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok {
		existing.answer = answer
		return
	}

	if c.maxSize > 0 {
		if len(c.entries) >= c.maxSize {
			c.evictOldest()
		}
		n := c.nodePool.Get().(*node)
		n.key = key
		n.answer = answer
		n.next = c.head
		c.head = n
		c.entries[key] = n
	} else {
		c.entries[key] = &node{key: key, answer: answer}
	}
	c.size.Add(1)
	metrics.UpdateCacheSize(int(c.size.Load()))
}

// evictOldest drops the tail of the list. Must be called with c.mu held.
func (c *inMemoryCache) evictOldest() {
	if c.head == nil {
		return
	}

	if c.head.next == nil {
		delete(c.entries, c.head.key)
		c.head.reset()
		c.nodePool.Put(c.head)
		c.head = nil
		c.size.Add(-1)
		return
	}

	var prev *node
	current := c.head
	for current.next != nil {
		prev = current
		current = current.next
	}
	prev.next = nil
	delete(c.entries, current.key)
	current.reset()
	c.nodePool.Put(current)
	c.size.Add(-1)
}

func (c *inMemoryCache) Size() int64 {
	return c.size.Load()
}
