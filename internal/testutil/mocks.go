package testutil

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/rentflow/checkout/internal/backend"
	"github.com/rentflow/checkout/internal/domain/payment"
	"github.com/rentflow/checkout/internal/widget"
)

// --- Order Client Mock ---

// MockOrderClient fakes the backend order endpoints. Override the Func fields
// for failure cases; the default behavior echoes the request back as a valid
// order.
type MockOrderClient struct {
	mu      sync.Mutex
	created []*payment.Order
	status  map[string]*backend.OrderStatus

	CreateOrderFunc func(ctx context.Context, amount payment.Amount, bookingID, receipt string) (*payment.Order, error)
	OrderStatusFunc func(ctx context.Context, orderID string) (*backend.OrderStatus, error)
}

func NewMockOrderClient() *MockOrderClient {
	return &MockOrderClient{status: make(map[string]*backend.OrderStatus)}
}

func (m *MockOrderClient) CreateOrder(ctx context.Context, amount payment.Amount, bookingID, receipt string) (*payment.Order, error) {
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, amount, bookingID, receipt)
	}
	order := NewTestOrder(bookingID, amount.Value)
	order.Receipt = receipt
	m.mu.Lock()
	m.created = append(m.created, order)
	m.mu.Unlock()
	return order, nil
}

func (m *MockOrderClient) OrderStatus(ctx context.Context, orderID string) (*backend.OrderStatus, error) {
	if m.OrderStatusFunc != nil {
		return m.OrderStatusFunc(ctx, orderID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.status[orderID]; ok {
		return s, nil
	}
	return &backend.OrderStatus{OrderID: orderID, Status: "created"}, nil
}

// SetStatus primes the status the mock reports for an order.
func (m *MockOrderClient) SetStatus(orderID string, s *backend.OrderStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[orderID] = s
}

// Created returns the orders created through the mock.
func (m *MockOrderClient) Created() []*payment.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*payment.Order(nil), m.created...)
}

// --- Verification Client Mock ---

// MockVerifier fakes the backend verification endpoint. By default every
// completion verifies successfully.
type MockVerifier struct {
	mu    sync.Mutex
	calls []backend.VerifyParams

	VerifyFunc func(ctx context.Context, p backend.VerifyParams) (*payment.VerifiedTransaction, error)
}

func NewMockVerifier() *MockVerifier {
	return &MockVerifier{}
}

func (m *MockVerifier) Verify(ctx context.Context, p backend.VerifyParams) (*payment.VerifiedTransaction, error) {
	m.mu.Lock()
	m.calls = append(m.calls, p)
	m.mu.Unlock()

	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, p)
	}
	return NewTestVerifiedTransaction(p.OrderID, p.PaymentID), nil
}

// Calls returns every verification request the mock received.
func (m *MockVerifier) Calls() []backend.VerifyParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]backend.VerifyParams(nil), m.calls...)
}

// --- Pending Store Spy ---

// SpyStore wraps the in-memory behavior with call recording and Func
// overrides for failure injection.
type SpyStore struct {
	mu      sync.Mutex
	records map[string]payment.PendingTransaction
	saves   int
	clears  []string

	SaveFunc  func(ctx context.Context, tx *payment.PendingTransaction) error
	LoadFunc  func(ctx context.Context) (*payment.PendingTransaction, error)
	ClearFunc func(ctx context.Context, orderID string) error
	ListFunc  func(ctx context.Context) ([]payment.PendingTransaction, error)
}

func NewSpyStore() *SpyStore {
	return &SpyStore{records: make(map[string]payment.PendingTransaction)}
}

func (s *SpyStore) Save(ctx context.Context, tx *payment.PendingTransaction) error {
	if s.SaveFunc != nil {
		return s.SaveFunc(ctx, tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	s.records[tx.OrderID] = *tx
	return nil
}

func (s *SpyStore) Load(ctx context.Context) (*payment.PendingTransaction, error) {
	if s.LoadFunc != nil {
		return s.LoadFunc(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *payment.PendingTransaction
	for _, rec := range s.records {
		if latest == nil || rec.CreatedAt.After(latest.CreatedAt) {
			cp := rec
			latest = &cp
		}
	}
	return latest, nil
}

func (s *SpyStore) Clear(ctx context.Context, orderID string) error {
	if s.ClearFunc != nil {
		return s.ClearFunc(ctx, orderID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears = append(s.clears, orderID)
	delete(s.records, orderID)
	return nil
}

func (s *SpyStore) List(ctx context.Context) ([]payment.PendingTransaction, error) {
	if s.ListFunc != nil {
		return s.ListFunc(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]payment.PendingTransaction, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out, nil
}

// Saves reports how many pending records were written.
func (s *SpyStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Clears returns the order ids that were cleared, in order.
func (s *SpyStore) Clears() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.clears...)
}

// Has reports whether a record for the order is currently stored.
func (s *SpyStore) Has(orderID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[orderID]
	return ok
}

// --- SDK Loader Mock ---

// MockLoader returns a canned SDK without any script plumbing.
type MockLoader struct {
	SDK widget.SDK
	Err error

	mu    sync.Mutex
	calls int
}

func (m *MockLoader) EnsureLoaded(ctx context.Context, embedded bool) (widget.SDK, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.SDK, nil
}

func (m *MockLoader) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- Runtime Environment Stub ---

// StubEnvironment is a fixed-signal runtime environment.
type StubEnvironment struct {
	UA     string
	Bridge bool
	Nested bool
}

func (e StubEnvironment) UserAgent() string   { return e.UA }
func (e StubEnvironment) HasHostBridge() bool { return e.Bridge }
func (e StubEnvironment) IsNested() bool      { return e.Nested }

func newID(prefix string) string {
	return prefix + "_" + uuid.New().String()[:12]
}
