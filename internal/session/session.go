// Package session tracks logged-in browser sessions in memory.
package session

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userid"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Registry holds sessions with a sliding TTL. When full, the least
// recently used session is dropped.
type Registry struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
	now     func() time.Time
}

func NewRegistry(maxSize int, ttl time.Duration) *Registry {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &Registry{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		now:     time.Now,
	}
}

// Create starts a new session for userid.
func (r *Registry) Create(userid string) Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	s := &Session{
		ID:        uuid.NewString(),
		UserID:    userid,
		CreatedAt: now,
		ExpiresAt: now.Add(r.ttl),
	}
	r.items[s.ID] = r.lru.PushFront(s)

	if r.lru.Len() > r.maxSize {
		if oldest := r.lru.Back(); oldest != nil {
			r.remove(oldest)
		}
	}
	return *s
}

// Lookup returns a live session and extends its expiry.
func (r *Registry) Lookup(id string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	elem, ok := r.items[id]
	if !ok {
		return Session{}, false
	}
	s := elem.Value.(*Session)
	now := r.now()
	if now.After(s.ExpiresAt) {
		r.remove(elem)
		return Session{}, false
	}
	s.ExpiresAt = now.Add(r.ttl)
	r.lru.MoveToFront(elem)
	return *s, true
}

func (r *Registry) Revoke(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if elem, ok := r.items[id]; ok {
		r.remove(elem)
	}
}

// RevokeAll ends every session, e.g. after the credential changes.
func (r *Registry) RevokeAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.items)
	r.items = make(map[string]*list.Element)
	r.lru.Init()
	return n
}

func (r *Registry) remove(elem *list.Element) {
	s := elem.Value.(*Session)
	delete(r.items, s.ID)
	r.lru.Remove(elem)
}

// CleanExpired removes expired sessions and returns how many were removed.
func (r *Registry) CleanExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var expired []*list.Element
	for elem := r.lru.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*Session).ExpiresAt) {
			expired = append(expired, elem)
		}
	}
	for _, elem := range expired {
		r.remove(elem)
	}
	return len(expired)
}

func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Run cleans expired sessions every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.CleanExpired(); n > 0 {
				slog.DebugContext(ctx, "Expired sessions cleaned", "count", n)
			}
		}
	}
}

type ctxKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}
