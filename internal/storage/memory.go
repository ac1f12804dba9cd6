package storage

import (
	"context"
	"sync"

	"github.com/joshuarg007/made4founders-sub001/internal/vault"
)

// In-memory store implementations, used by tests and local development.

type MemoryConfigStore struct {
	mu      sync.Mutex
	configs map[string]vault.VaultConfig
}

func NewMemoryConfigStore() *MemoryConfigStore {
	return &MemoryConfigStore{configs: map[string]vault.VaultConfig{}}
}

func (s *MemoryConfigStore) Get(_ context.Context, orgID string) (*vault.VaultConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[orgID]
	if !ok {
		return nil, vault.ErrNotSetUp
	}
	out := cfg
	out.KDFSalt = append([]byte(nil), cfg.KDFSalt...)
	return &out, nil
}

func (s *MemoryConfigStore) Create(_ context.Context, cfg *vault.VaultConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[cfg.OrgID]; ok {
		return vault.ErrAlreadySetUp
	}
	s.configs[cfg.OrgID] = *cfg
	return nil
}

func (s *MemoryConfigStore) Update(_ context.Context, cfg *vault.VaultConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[cfg.OrgID]; !ok {
		return vault.ErrNotSetUp
	}
	s.configs[cfg.OrgID] = *cfg
	return nil
}

func (s *MemoryConfigStore) Delete(_ context.Context, orgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[orgID]; !ok {
		return vault.ErrNotSetUp
	}
	delete(s.configs, orgID)
	return nil
}

type MemoryCredentialStore struct {
	mu    sync.Mutex
	creds map[string]*vault.Credential
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{creds: map[string]*vault.Credential{}}
}

func (s *MemoryCredentialStore) Insert(_ context.Context, c *vault.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[c.ID] = c.Clone()
	return nil
}

func (s *MemoryCredentialStore) Get(_ context.Context, orgID, id string) (*vault.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.creds[id]
	if !ok || c.OrgID != orgID {
		return nil, vault.ErrNotFound
	}
	return c.Clone(), nil
}

func (s *MemoryCredentialStore) List(_ context.Context, orgID string, f vault.CredentialFilter) ([]*vault.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*vault.Credential
	for _, c := range s.creds {
		if c.OrgID != orgID {
			continue
		}
		if f.Category != "" && c.Category != f.Category {
			continue
		}
		if f.BusinessID != "" && !contains(c.BusinessIDs, f.BusinessID) {
			continue
		}
		out = append(out, c.Clone())
	}
	return out, nil
}

func (s *MemoryCredentialStore) Update(_ context.Context, c *vault.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.creds[c.ID]
	if !ok || cur.OrgID != c.OrgID {
		return vault.ErrNotFound
	}
	s.creds[c.ID] = c.Clone()
	return nil
}

func (s *MemoryCredentialStore) Delete(_ context.Context, orgID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.creds[id]
	if !ok || c.OrgID != orgID {
		return vault.ErrNotFound
	}
	delete(s.creds, id)
	return nil
}

func (s *MemoryCredentialStore) DeleteByOrg(_ context.Context, orgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.creds {
		if c.OrgID == orgID {
			delete(s.creds, id)
		}
	}
	return nil
}

// MemoryTransactor snapshots both stores and restores them when fn fails,
// matching the all-or-nothing behavior of a Mongo transaction.
type MemoryTransactor struct {
	configs *MemoryConfigStore
	creds   *MemoryCredentialStore
}

func NewMemoryTransactor(configs *MemoryConfigStore, creds *MemoryCredentialStore) *MemoryTransactor {
	return &MemoryTransactor{configs: configs, creds: creds}
}

func (t *MemoryTransactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	cfgSnap := t.configs.snapshot()
	credSnap := t.creds.snapshot()
	if err := fn(ctx); err != nil {
		t.configs.restore(cfgSnap)
		t.creds.restore(credSnap)
		return err
	}
	return nil
}

func (s *MemoryConfigStore) snapshot() map[string]vault.VaultConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]vault.VaultConfig, len(s.configs))
	for k, v := range s.configs {
		v.KDFSalt = append([]byte(nil), v.KDFSalt...)
		out[k] = v
	}
	return out
}

func (s *MemoryConfigStore) restore(snap map[string]vault.VaultConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs = snap
}

func (s *MemoryCredentialStore) snapshot() map[string]*vault.Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*vault.Credential, len(s.creds))
	for k, v := range s.creds {
		out[k] = v.Clone()
	}
	return out
}

func (s *MemoryCredentialStore) restore(snap map[string]*vault.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = snap
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
