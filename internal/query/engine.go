package query

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tasksearch/tsk/internal/task"
)

// defaultCacheSize bounds the AST cache.
const defaultCacheSize = 50

// Options configures an Engine. The zero value is usable.
type Options struct {
	// Properties backs property filters. Nil means no document has
	// properties.
	Properties PropertySource

	// Now anchors relative date keywords. Nil means time.Now.
	Now func() time.Time

	// CacheSize overrides the AST cache capacity. Zero means the default of
	// 50.
	CacheSize int
}

// Engine is the query facade: parse with a bounded AST cache, validate, and
// evaluate. It is safe for concurrent use; the cache is the only mutable
// state and is guarded by a mutex. Eviction is strictly insertion-ordered: a
// cache hit never refreshes an entry's position, so the oldest-inserted entry
// is always the one evicted. This is deliberately not an LRU.
type Engine struct {
	eval     Evaluator
	capacity int

	mu    sync.Mutex
	cache map[string]Node
	order []string
}

// NewEngine builds an engine with an empty cache.
func NewEngine(opts Options) *Engine {
	capacity := opts.CacheSize
	if capacity <= 0 {
		capacity = defaultCacheSize
	}

	return &Engine{
		eval:     Evaluator{Props: opts.Properties, Now: opts.Now},
		capacity: capacity,
		cache:    make(map[string]Node, capacity),
	}
}

// Parse returns the AST for a query, consulting the cache first. The cache
// key is the exact query string, no normalization. Only successful parses are
// cached.
func (e *Engine) Parse(query string) (Node, error) {
	e.mu.Lock()
	if node, ok := e.cache[query]; ok {
		e.mu.Unlock()

		return node, nil
	}
	e.mu.Unlock()

	node, err := Parse(Tokenize(query))
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.cache[query]; !ok {
		if len(e.order) >= e.capacity {
			oldest := e.order[0]
			e.order = e.order[1:]
			delete(e.cache, oldest)
		}

		e.cache[query] = node
		e.order = append(e.order, query)
	}

	return node, nil
}

// Validate reports whether the query parses.
func (e *Engine) Validate(query string) bool {
	_, err := e.Parse(query)

	return err == nil
}

// ParseError returns the syntax error for a query, or nil when it parses.
func (e *Engine) ParseError(query string) *SearchError {
	_, err := e.Parse(query)
	if err == nil {
		return nil
	}

	var searchError *SearchError
	if errors.As(err, &searchError) {
		return searchError
	}

	return &SearchError{Message: err.Error()}
}

// Evaluate parses the query and matches it against the task. A query that
// fails to parse matches nothing: the syntax error becomes a false result.
// Errors from the property lookup still propagate.
func (e *Engine) Evaluate(ctx context.Context, query string, tsk *task.Task, caseSensitive bool) (bool, error) {
	node, err := e.Parse(query)
	if err != nil {
		var searchError *SearchError
		if errors.As(err, &searchError) {
			return false, nil
		}

		return false, err
	}

	return e.eval.Evaluate(ctx, node, tsk, caseSensitive)
}

// ClearCache drops every cached AST.
func (e *Engine) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cache = make(map[string]Node, e.capacity)
	e.order = nil
}
