// ABOUTME: In-memory registry of visitors, one session store and form per browser
// ABOUTME: Bounded in size; idle visitors are evicted by a background cleanup loop

package webapp

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/creatordash/internal/credform"
	"github.com/2389/creatordash/internal/gate"
	"github.com/2389/creatordash/internal/metrics"
	"github.com/2389/creatordash/internal/session"
)

// visitor is one browser's view of the dashboard.
type visitor struct {
	id    string
	store *session.Store
	gate  *gate.Gate
	form  *credform.Form

	// element is the visitor's place in the hub's recency list, guarded by
	// the hub's mutex.
	element *list.Element

	mu            sync.Mutex
	lastSeen      time.Time
	lastValidated time.Time
}

func (v *visitor) touch(now time.Time) {
	v.mu.Lock()
	v.lastSeen = now
	v.mu.Unlock()
}

func (v *visitor) idleSince() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastSeen
}

// dueForRevalidation reports whether the session should be rechecked and,
// if so, records now as the check time.
func (v *visitor) dueForRevalidation(now time.Time, every time.Duration) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if now.Sub(v.lastValidated) < every {
		return false
	}
	v.lastValidated = now
	return true
}

// visitorHub owns every live visitor. It holds at most max visitors; when
// full, the least recently seen one is evicted to make room.
type visitorHub struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	order    *list.List // visitor ids, least recently seen at front

	provider session.Provider
	ttl      time.Duration
	max      int
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
	cancel   context.CancelFunc
}

func newVisitorHub(provider session.Provider, ttl time.Duration, max int, m *metrics.Metrics, logger *slog.Logger) *visitorHub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &visitorHub{
		visitors: make(map[string]*visitor),
		order:    list.New(),
		provider: provider,
		ttl:      ttl,
		max:      max,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
		cancel:   cancel,
	}
	go h.cleanupLoop(ctx)
	return h
}

// get returns the visitor with id and marks it as seen.
func (h *visitorHub) get(id string) (*visitor, bool) {
	if id == "" {
		return nil, false
	}
	h.mu.Lock()
	v, ok := h.visitors[id]
	if ok {
		h.order.MoveToBack(v.element)
	}
	h.mu.Unlock()
	if ok {
		v.touch(h.now())
	}
	return v, ok
}

// touch marks v as seen without a lookup.
func (h *visitorHub) touch(v *visitor) {
	h.mu.Lock()
	if _, ok := h.visitors[v.id]; ok {
		h.order.MoveToBack(v.element)
	}
	h.mu.Unlock()
	v.touch(h.now())
}

// create registers a new visitor in the Loading state and starts resolving
// sessionToken in the background.
func (h *visitorHub) create(sessionToken string) *visitor {
	id := uuid.New().String()
	store := session.NewStore(h.provider, h.logger.With("visitor_id", id))
	v := &visitor{
		id:       id,
		store:    store,
		gate:     gate.New(store),
		form:     credform.New(h.logger),
		lastSeen: h.now(),
	}

	h.mu.Lock()
	var evicted []*visitor
	for h.max > 0 && len(h.visitors) >= h.max {
		old := h.removeLocked(h.order.Front().Value.(string))
		evicted = append(evicted, old)
	}
	v.element = h.order.PushBack(id)
	h.visitors[id] = v
	h.mu.Unlock()

	for _, old := range evicted {
		h.release(old)
	}
	if len(evicted) > 0 {
		h.logger.Debug("visitor limit reached, evicted least recently seen", "count", len(evicted), "max", h.max)
	}
	h.metrics.VisitorAdded()

	go func() {
		if err := store.Resolve(context.Background(), sessionToken); err != nil {
			h.logger.Warn("resolving visitor session", "visitor_id", id, "error", err)
		}
	}()

	return v
}

// removeLocked drops id from the hub. Must be called with mu held.
func (h *visitorHub) removeLocked(id string) *visitor {
	v, ok := h.visitors[id]
	if !ok {
		return nil
	}
	delete(h.visitors, id)
	h.order.Remove(v.element)
	return v
}

// release closes a visitor that has left the hub.
func (h *visitorHub) release(v *visitor) {
	v.store.Close()
	h.metrics.VisitorRemoved()
}

func (h *visitorHub) remove(id string) {
	h.mu.Lock()
	v := h.removeLocked(id)
	h.mu.Unlock()

	if v != nil {
		h.release(v)
	}
}

func (h *visitorHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.visitors)
}

// sweep evicts visitors idle for longer than the TTL.
func (h *visitorHub) sweep() int {
	cutoff := h.now().Add(-h.ttl)

	h.mu.Lock()
	var stale []string
	for id, v := range h.visitors {
		if v.idleSince().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	h.mu.Unlock()

	for _, id := range stale {
		h.remove(id)
	}
	if len(stale) > 0 {
		h.logger.Debug("evicted idle visitors", "count", len(stale))
	}
	return len(stale)
}

func (h *visitorHub) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sweep()
		}
	}
}

// Close stops the cleanup loop and closes every visitor's store.
func (h *visitorHub) Close() {
	h.cancel()

	h.mu.Lock()
	ids := make([]string, 0, len(h.visitors))
	for id := range h.visitors {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	for _, id := range ids {
		h.remove(id)
	}
}
