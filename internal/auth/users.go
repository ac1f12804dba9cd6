package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/joshuarg007/made4founders-sub001/internal/totp"
)

var ErrUserNotFound = errors.New("user not found")

// UserStore is the read-only view of the account directory.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*User, error)
}

// MemoryUserStore backs tests and local development.
type MemoryUserStore struct {
	mu    sync.Mutex
	users map[string]User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: map[string]User{}}
}

func (s *MemoryUserStore) Put(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *MemoryUserStore) FindByID(_ context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := u
	return &out, nil
}

// MFAGate answers whether a user's account requires a second factor and
// checks submitted codes against the account's TOTP secret.
type MFAGate struct {
	Users   UserStore
	Timeout time.Duration
}

func NewMFAGate(users UserStore) *MFAGate {
	return &MFAGate{Users: users, Timeout: 5 * time.Second}
}

// Required treats a subject with no account record as having no MFA
// configured: the directory is owned by the external auth system, and a
// missing row must not wedge vault access for an already-authenticated
// caller.
func (g *MFAGate) Required(userID string) (bool, error) {
	u, err := g.lookup(userID)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.MFAEnabled && u.TOTPSecret != "", nil
}

func (g *MFAGate) Verify(userID, code string) (bool, error) {
	u, err := g.lookup(userID)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !u.MFAEnabled || u.TOTPSecret == "" {
		return false, nil
	}
	return totp.Verify(code, u.TOTPSecret, time.Now()), nil
}

func (g *MFAGate) lookup(userID string) (*User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), g.Timeout)
	defer cancel()
	return g.Users.FindByID(ctx, userID)
}
