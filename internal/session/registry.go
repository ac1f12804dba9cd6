// Package session holds the process-wide vault session registry: the only
// place a derived vault key lives, and only while the vault is unlocked.
// Keys are never written to durable storage.
package session

import (
	"sync"
	"time"

	"github.com/joshuarg007/made4founders-sub001/internal/crypto"
)

type entry struct {
	orgID     string
	key       [crypto.KeySize]byte
	expiresAt time.Time
}

// Registry maps a session identifier to a live derived key and its expiry.
// An entry's presence (and freshness) is the sole authority for "the vault
// is unlocked for this caller". Safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Unlock stores the key under sessionID with an absolute expiry,
// overwriting any existing entry for that session.
func (r *Registry) Unlock(sessionID, orgID string, key [crypto.KeySize]byte, ttl time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[sessionID] = &entry{
		orgID:     orgID,
		key:       key,
		expiresAt: time.Now().Add(ttl),
	}
}

// IsUnlocked reports whether a live, unexpired key exists for sessionID.
// Expired entries are evicted on sight.
func (r *Registry) IsUnlocked(sessionID string) bool {
	_, ok := r.Key(sessionID)
	return ok
}

// Key returns the live key for sessionID. An expired key is never handed
// out; expiry behaves as an auto-lock.
func (r *Registry) Key(sessionID string) ([crypto.KeySize]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sessionID]
	if !ok {
		return [crypto.KeySize]byte{}, false
	}
	if time.Now().After(e.expiresAt) {
		r.drop(sessionID)
		return [crypto.KeySize]byte{}, false
	}
	return e.key, true
}

// Lock removes the session's key immediately, regardless of expiry.
// Idempotent.
func (r *Registry) Lock(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drop(sessionID)
}

// LockOrg removes every entry belonging to orgID. Used by vault reset.
func (r *Registry) LockOrg(orgID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for sid, e := range r.entries {
		if e.orgID == orgID {
			r.drop(sid)
		}
	}
}

// drop zeroizes and deletes; callers hold r.mu.
func (r *Registry) drop(sessionID string) {
	if e, ok := r.entries[sessionID]; ok {
		crypto.Zero(e.key[:])
		delete(r.entries, sessionID)
	}
}
