//go:build !integration

package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"student-writer-backend/internal/domain"
	"student-writer-backend/internal/domain/model"
	"student-writer-backend/internal/domain/ports/adapter"
	"student-writer-backend/internal/domain/ports/repository"
	"student-writer-backend/internal/usecase"
)

// ---- In-memory CodeRepository ----

type MockCodeRepo struct {
	mu    sync.Mutex
	byID  map[string]*model.RedemptionCode
	codes map[string]string // code -> id

	CreateErr    error
	DecrementErr error
}

func NewMockCodeRepo() *MockCodeRepo {
	return &MockCodeRepo{byID: make(map[string]*model.RedemptionCode), codes: make(map[string]string)}
}

var _ repository.CodeRepository = (*MockCodeRepo)(nil)

func (m *MockCodeRepo) Create(ctx context.Context, tx repository.Tx, code *model.RedemptionCode) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.codes[code.Code]; dup {
		return domain.ErrAlreadyExists
	}
	cp := *code
	m.byID[cp.ID] = &cp
	m.codes[cp.Code] = cp.ID
	return nil
}

func (m *MockCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.RedemptionCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.codes[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m.byID[id]
	return &cp, nil
}

func (m *MockCodeRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.RedemptionCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockCodeRepo) Decrement(ctx context.Context, tx repository.Tx, code string) (int, error) {
	if m.DecrementErr != nil {
		return 0, m.DecrementErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.codes[code]
	if !ok {
		return 0, domain.ErrNotFound
	}
	c := m.byID[id]
	if c.Quota <= 0 {
		return 0, domain.ErrQuotaExhausted
	}
	c.Quota--
	return c.Quota, nil
}

// ---- In-memory OrderRepository ----

type MockOrderRepo struct {
	mu       sync.Mutex
	byID     map[string]*model.PaymentOrder
	byOrder  map[string]string // order_id -> id
	SaveErr  error
	FindErr  error
	IssueErr error
}

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{byID: make(map[string]*model.PaymentOrder), byOrder: make(map[string]string)}
}

var _ repository.OrderRepository = (*MockOrderRepo)(nil)

func (m *MockOrderRepo) Save(ctx context.Context, tx repository.Tx, o *model.PaymentOrder) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.byOrder[o.OrderID]; dup {
		return domain.ErrAlreadyExists
	}
	cp := *o
	m.byID[cp.ID] = &cp
	m.byOrder[cp.OrderID] = cp.ID
	return nil
}

func (m *MockOrderRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.PaymentOrder, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byOrder[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m.byID[id]
	return &cp, nil
}

func (m *MockOrderRepo) SetTID(ctx context.Context, tx repository.Tx, id, tid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.TID = tid
	return nil
}

func (m *MockOrderRepo) MarkIssued(ctx context.Context, tx repository.Tx, id, codeID, aid string) (bool, error) {
	if m.IssueErr != nil {
		return false, m.IssueErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return false, nil
	}
	if o.Status != model.OrderStatusInitiated && o.Status != model.OrderStatusConfirming {
		return false, nil
	}
	o.Status = model.OrderStatusIssued
	o.CodeID = &codeID
	o.AID = aid
	now := time.Now()
	o.ApprovedAt = &now
	return true, nil
}

func (m *MockOrderRepo) MarkFailed(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if o.Status != model.OrderStatusIssued {
		o.Status = model.OrderStatusFailed
	}
	return nil
}

// Get returns a copy of the stored order for assertions.
func (m *MockOrderRepo) Get(orderID string) *model.PaymentOrder {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byOrder[orderID]
	if !ok {
		return nil
	}
	cp := *m.byID[id]
	return &cp
}

// ---- TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs the function immediately without a real transaction unless the
// test installs its own WithTxFunc.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// ---- Locker ----

type MockLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func NewMockLocker() *MockLocker { return &MockLocker{held: make(map[string]string)} }

var _ usecase.Locker = (*MockLocker)(nil)

func (m *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.held[key]; busy {
		return "", domain.ErrOrderLocked
	}
	m.held[key] = "tok-" + key
	return m.held[key], nil
}

func (m *MockLocker) Unlock(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] == token {
		delete(m.held, key)
	}
	return nil
}

// ---- FreeTier ----

type MockFreeTier struct {
	mu     sync.Mutex
	counts map[string]int
	Err    error
}

func NewMockFreeTier() *MockFreeTier { return &MockFreeTier{counts: make(map[string]int)} }

var _ usecase.FreeTier = (*MockFreeTier)(nil)

func (m *MockFreeTier) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key] <= limit, nil
}

// ---- PaymentGateway ----

type MockPaymentGateway struct {
	ReadyFunc   func(ctx context.Context, req adapter.CheckoutRequest) (adapter.CheckoutSession, error)
	ApproveFunc func(ctx context.Context, tid, orderID, pgToken string) (adapter.Approval, error)

	readyCalls   int
	approveCalls int
	mu           sync.Mutex
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() string { return "mock" }

func (m *MockPaymentGateway) Ready(ctx context.Context, req adapter.CheckoutRequest) (adapter.CheckoutSession, error) {
	m.mu.Lock()
	m.readyCalls++
	m.mu.Unlock()
	if m.ReadyFunc != nil {
		return m.ReadyFunc(ctx, req)
	}
	return adapter.CheckoutSession{TID: "T100", RedirectPCURL: "https://pg.example/pay"}, nil
}

func (m *MockPaymentGateway) Approve(ctx context.Context, tid, orderID, pgToken string) (adapter.Approval, error) {
	m.mu.Lock()
	m.approveCalls++
	m.mu.Unlock()
	if m.ApproveFunc != nil {
		return m.ApproveFunc(ctx, tid, orderID, pgToken)
	}
	return adapter.Approval{AID: "A100", TID: tid, OrderID: orderID}, nil
}

func (m *MockPaymentGateway) ApproveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.approveCalls
}

// ---- AIServiceAdapter ----

type MockAI struct {
	CompleteFunc func(ctx context.Context, model, prompt string) (string, error)
}

var _ adapter.AIServiceAdapter = (*MockAI)(nil)

func (m *MockAI) Name() string { return "mock-ai" }

func (m *MockAI) Complete(ctx context.Context, model, prompt string) (string, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, model, prompt)
	}
	return "completion text", nil
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
