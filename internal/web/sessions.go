package web

import (
	"sync"
	"time"

	"github.com/example/tablebook/internal/booking"
)

const sessionIdleTTL = 2 * time.Hour

type sessionKey struct {
	userID       int64
	restaurantID string
}

type sessionEntry struct {
	mu       sync.Mutex
	session  *booking.Session
	lastUsed time.Time
}

// registry holds one booking session per signed-in user and restaurant.
// Callers lock the entry for the whole request.
type registry struct {
	mu      sync.Mutex
	entries map[sessionKey]*sessionEntry
	now     func() time.Time
}

func newRegistry() *registry {
	return &registry{entries: map[sessionKey]*sessionEntry{}, now: time.Now}
}

// acquire returns the locked entry for key, creating it with create when
// missing. create runs without the registry lock. The caller must unlock the
// entry.
func (g *registry) acquire(key sessionKey, create func() (*booking.Session, error)) (*sessionEntry, error) {
	g.mu.Lock()
	g.evictLocked(g.now())
	e, ok := g.entries[key]
	if ok {
		e.lastUsed = g.now()
	}
	g.mu.Unlock()

	if !ok {
		s, err := create()
		if err != nil {
			return nil, err
		}
		g.mu.Lock()
		if e, ok = g.entries[key]; !ok {
			// nobody else created it meanwhile
			e = &sessionEntry{session: s}
			g.entries[key] = e
		}
		e.lastUsed = g.now()
		g.mu.Unlock()
	}

	e.mu.Lock()
	return e, nil
}

// evictLocked drops idle entries that no request is holding. g.mu must be
// held.
func (g *registry) evictLocked(now time.Time) {
	for k, e := range g.entries {
		if now.Sub(e.lastUsed) <= sessionIdleTTL {
			continue
		}
		if !e.mu.TryLock() {
			continue
		}
		delete(g.entries, k)
		e.mu.Unlock()
	}
}

// signIn restarts every session the user already has.
func (g *registry) signIn(u booking.User) {
	for _, e := range g.forUser(u.ID, false) {
		e.mu.Lock()
		user := u
		e.session.SignIn(&user)
		e.mu.Unlock()
	}
}

// signOut discards every session the user has.
func (g *registry) signOut(userID int64) {
	for _, e := range g.forUser(userID, true) {
		e.mu.Lock()
		e.session.SignOut()
		e.mu.Unlock()
	}
}

func (g *registry) forUser(userID int64, remove bool) []*sessionEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*sessionEntry
	for k, e := range g.entries {
		if k.userID != userID {
			continue
		}
		out = append(out, e)
		if remove {
			delete(g.entries, k)
		}
	}
	return out
}

func (g *registry) len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}
