package pending

import (
	"context"
	"sync"

	"github.com/rentflow/checkout/internal/domain/payment"
)

// MemoryStore is the single-slot in-process store. It mirrors the durable
// stores' semantics: one pending record at a time, last write wins.
type MemoryStore struct {
	mu     sync.RWMutex
	record *payment.PendingTransaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, tx *payment.PendingTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tx
	s.record = &cp
	return nil
}

func (s *MemoryStore) Load(_ context.Context) (*payment.PendingTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.record == nil {
		return nil, nil
	}
	cp := *s.record
	return &cp, nil
}

func (s *MemoryStore) Clear(_ context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record != nil && s.record.OrderID == orderID {
		s.record = nil
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]payment.PendingTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.record == nil {
		return nil, nil
	}
	return []payment.PendingTransaction{*s.record}, nil
}
