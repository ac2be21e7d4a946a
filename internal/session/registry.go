// ABOUTME: Thread-safe TTL registry of gateway clients keyed by conversation ID.
// ABOUTME: Each client sits behind its own mutex so turns on one conversation never interleave.

package session

import (
	"container/list"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/ideation-gateway/internal/ideation"
)

// SharedID is the conversation ID reported for every request in shared mode.
const SharedID = "shared"

// Factory builds a fresh client for a new conversation.
type Factory func(id string) *ideation.Client

// Config configures a Registry.
type Config struct {
	TTL     time.Duration
	MaxSize int

	// Shared routes every request to one client that never expires.
	Shared bool

	Factory Factory
	Logger  *slog.Logger
}

// entry stores one conversation and its position in the idle order.
type entry struct {
	id       string
	mu       sync.Mutex
	client   *ideation.Client
	lastUsed time.Time
	element  *list.Element

	// inUse counts Do/Peek calls holding or waiting on the entry. Guarded by
	// Registry.mu. Entries in use are never evicted or expired.
	inUse int
}

// Registry provides a thread-safe, TTL-based, size-limited set of clients.
// Uses a doubly-linked list ordered by last use for O(1) eviction.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	order    *list.List // ids, least recently used at front
	ttl      time.Duration
	maxSize  int
	factory  Factory
	shared   *entry
	logger   *slog.Logger
	done     chan struct{}
	closed   bool
}

// New creates a registry. A background goroutine periodically drops idle
// conversations; call Close to stop it.
func New(cfg Config) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 1000
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}

	r := &Registry{
		sessions: make(map[string]*entry),
		order:    list.New(),
		ttl:      cfg.TTL,
		maxSize:  cfg.MaxSize,
		factory:  cfg.Factory,
		logger:   cfg.Logger.With("component", "session"),
		done:     make(chan struct{}),
	}
	if cfg.Shared {
		r.shared = &entry{id: SharedID, client: r.factory(SharedID)}
	}
	go r.cleanup()
	return r
}

// Do runs fn with exclusive access to the client for id and returns the
// resolved conversation ID. An empty id starts a new conversation with a
// generated ID; an unknown or expired id starts a new conversation under
// that ID.
func (r *Registry) Do(id string, fn func(*ideation.Client)) string {
	e := r.acquire(id, true)
	defer r.release(e)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.client)
	return e.id
}

// Peek runs fn with exclusive access to an existing client. It reports false,
// without calling fn, when the conversation is unknown or expired.
func (r *Registry) Peek(id string, fn func(*ideation.Client)) bool {
	e := r.acquire(id, false)
	if e == nil {
		return false
	}
	defer r.release(e)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.client)
	return true
}

// Len returns the number of live conversations.
func (r *Registry) Len() int {
	if r.shared != nil {
		return 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// acquire finds or (when create is set) makes the entry for id and pins it
// until the matching release.
func (r *Registry) acquire(id string, create bool) *entry {
	if r.shared != nil {
		return r.shared
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if e, ok := r.sessions[id]; ok && id != "" {
		if e.inUse > 0 || now.Sub(e.lastUsed) < r.ttl {
			e.lastUsed = now
			e.inUse++
			r.order.MoveToBack(e.element)
			return e
		}
		r.removeLocked(e)
	}

	if !create {
		return nil
	}

	if id == "" {
		id = uuid.New().String()
	}

	// Evict least recently used if at capacity
	if len(r.sessions) >= r.maxSize {
		r.evictOldest()
	}

	e := &entry{id: id, client: r.factory(id), lastUsed: now, inUse: 1}
	e.element = r.order.PushBack(id)
	r.sessions[id] = e
	r.logger.Debug("conversation started", "session_id", id, "live", len(r.sessions))
	return e
}

// release unpins e and restarts its idle clock.
func (r *Registry) release(e *entry) {
	if e == r.shared {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e.inUse--
	e.lastUsed = time.Now()
	if cur, ok := r.sessions[e.id]; ok && cur == e {
		r.order.MoveToBack(e.element)
	}
}

// evictOldest removes the least recently used conversation that has no turn
// in flight. When every conversation is busy the registry grows past its cap.
// Must be called with mu held.
func (r *Registry) evictOldest() {
	for el := r.order.Front(); el != nil; el = el.Next() {
		id, _ := el.Value.(string)
		e, ok := r.sessions[id]
		if !ok || e.inUse > 0 {
			continue
		}
		r.removeLocked(e)
		r.logger.Debug("conversation evicted", "session_id", id)
		return
	}
	r.logger.Warn("all conversations busy, exceeding max_sessions", "live", len(r.sessions))
}

// removeLocked drops e from the registry. Must be called with mu held.
func (r *Registry) removeLocked(e *entry) {
	r.order.Remove(e.element)
	delete(r.sessions, e.id)
}

// cleanup runs in a background goroutine, periodically removing idle conversations.
func (r *Registry) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.runCleanup()
		case <-r.done:
			return
		}
	}
}

// runCleanup removes every conversation idle for longer than the TTL.
func (r *Registry) runCleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	removed := 0
	for _, e := range r.sessions {
		if e.inUse == 0 && now.Sub(e.lastUsed) >= r.ttl {
			r.removeLocked(e)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Debug("expired idle conversations", "removed", removed, "live", len(r.sessions))
	}
}

// Close stops the background cleanup goroutine. It is safe to call multiple times.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.closed {
		close(r.done)
		r.closed = true
	}
}
