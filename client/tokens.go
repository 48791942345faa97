package client

import "sync"

// TokenStore holds the access/refresh token pair for a session. Implementations
// must be safe for concurrent use.
type TokenStore interface {
	AccessToken() string
	RefreshToken() string
	SetTokens(access, refresh string)
	Clear()
}

// MemoryTokenStore is an in-process TokenStore.
type MemoryTokenStore struct {
	mu      sync.RWMutex
	access  string
	refresh string
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

func (s *MemoryTokenStore) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

func (s *MemoryTokenStore) SetTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = access
	s.refresh = refresh
}

func (s *MemoryTokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = ""
	s.refresh = ""
}
