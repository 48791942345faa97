package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/config"
	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/model"
)

var (
	ErrNotFound = errors.New("not found")
)

// Store persists contracts and proofs. Two implementations exist: an
// in-memory map store for development and a PostgreSQL store for production.
type Store interface {
	SaveContract(ctx context.Context, contract *model.Contract) error
	GetContract(ctx context.Context, id string) (*model.Contract, error)
	// ListContractsByUser returns contracts where the user is the creator or
	// an invited supervisor, newest first.
	ListContractsByUser(ctx context.Context, userID string) ([]*model.Contract, error)
	ListContractsByStatus(ctx context.Context, statuses ...model.ContractStatus) ([]*model.Contract, error)
	DeleteContract(ctx context.Context, id string) error

	SaveProof(ctx context.Context, proof *model.Proof) error
	GetProof(ctx context.Context, id string) (*model.Proof, error)
	DeleteProof(ctx context.Context, id string) error
	ListProofsByContract(ctx context.Context, contractID string) ([]*model.Proof, error)
	// ListPendingProofs returns APPROVE_PENDING proofs created before the cutoff.
	ListPendingProofs(ctx context.Context, before time.Time) ([]*model.Proof, error)
	// CountProofs returns total, approved, and pending proof counts for a contract.
	CountProofs(ctx context.Context, contractID string) (total, approved, pending int, err error)
}

// MemoryStore is an in-memory store for contracts and proofs. Records are
// cloned on the way in and out, so callers never share pointers with the
// store or with each other.
type MemoryStore struct {
	mu           sync.RWMutex
	contracts    map[string]*model.Contract
	proofs       map[string]*model.Proof
	maxContracts int // Maximum terminal contracts to keep, 0 = unlimited
}

// NewMemoryStore creates a memory store with the configured retention limit.
func NewMemoryStore(cfg *config.StoreConfig) *MemoryStore {
	maxContracts := cfg.MaxContracts
	if maxContracts < 0 {
		maxContracts = 0
	}
	return &MemoryStore{
		contracts:    make(map[string]*model.Contract),
		proofs:       make(map[string]*model.Proof),
		maxContracts: maxContracts,
	}
}

func (s *MemoryStore) SaveContract(ctx context.Context, contract *model.Contract) error {
	contract.UpdatedAt = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.contracts[contract.ID] = contract.Clone()

	s.cleanupIfNeeded()
	return nil
}

func (s *MemoryStore) GetContract(ctx context.Context, id string) (*model.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contracts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

func (s *MemoryStore) ListContractsByUser(ctx context.Context, userID string) ([]*model.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Contract
	for _, c := range s.contracts {
		if c.CreatorID == userID || c.FindSupervisor(userID) != nil {
			result = append(result, c.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) ListContractsByStatus(ctx context.Context, statuses ...model.ContractStatus) ([]*model.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Contract
	for _, c := range s.contracts {
		for _, st := range statuses {
			if c.Status == st {
				result = append(result, c.Clone())
				break
			}
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) DeleteContract(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contracts[id]; !ok {
		return ErrNotFound
	}
	delete(s.contracts, id)

	// Proofs of a deleted contract go with it.
	for pid, p := range s.proofs {
		if p.ContractID == id {
			delete(s.proofs, pid)
		}
	}
	return nil
}

func (s *MemoryStore) SaveProof(ctx context.Context, proof *model.Proof) error {
	proof.UpdatedAt = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.proofs[proof.ID] = proof.Clone()
	return nil
}

func (s *MemoryStore) GetProof(ctx context.Context, id string) (*model.Proof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.proofs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryStore) DeleteProof(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.proofs[id]; !ok {
		return ErrNotFound
	}
	delete(s.proofs, id)
	return nil
}

func (s *MemoryStore) ListProofsByContract(ctx context.Context, contractID string) ([]*model.Proof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Proof
	for _, p := range s.proofs {
		if p.ContractID == contractID {
			result = append(result, p.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) ListPendingProofs(ctx context.Context, before time.Time) ([]*model.Proof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Proof
	for _, p := range s.proofs {
		if p.Status == model.ProofPending && p.CreatedAt.Before(before) {
			result = append(result, p.Clone())
		}
	}
	return result, nil
}

func (s *MemoryStore) CountProofs(ctx context.Context, contractID string) (total, approved, pending int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.proofs {
		if p.ContractID != contractID {
			continue
		}
		total++
		switch p.Status {
		case model.ProofApproved:
			approved++
		case model.ProofPending:
			pending++
		}
	}
	return total, approved, pending, nil
}

// cleanupIfNeeded removes the oldest terminal contracts if the store exceeds
// maxContracts. Must be called with the lock held.
func (s *MemoryStore) cleanupIfNeeded() {
	if s.maxContracts <= 0 {
		return // Unlimited
	}

	if len(s.contracts) <= s.maxContracts {
		return
	}

	// Only terminal contracts are eligible for eviction.
	var terminal []*model.Contract
	for _, c := range s.contracts {
		if c.Status.Terminal() {
			terminal = append(terminal, c)
		}
	}
	sort.Slice(terminal, func(i, j int) bool {
		return terminal[i].CreatedAt.Before(terminal[j].CreatedAt)
	})

	removeCount := len(s.contracts) - s.maxContracts
	if removeCount > len(terminal) {
		removeCount = len(terminal)
	}
	for i := 0; i < removeCount; i++ {
		slog.Info("auto-cleaning old contract",
			"contract_id", terminal[i].ID,
			"created_at", terminal[i].CreatedAt,
		)
		delete(s.contracts, terminal[i].ID)
		for pid, p := range s.proofs {
			if p.ContractID == terminal[i].ID {
				delete(s.proofs, pid)
			}
		}
	}
}

// Count returns the number of contracts in the store
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contracts)
}
