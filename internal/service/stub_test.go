package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"coingate/internal/model"
	"coingate/internal/repository"

	"gorm.io/gorm"
)

// 内存桩，替代 MySQL / Redis，让 service 逻辑可以脱离基础设施跑单测

// fakeTx 直通事务：回调直接执行，桩存储自己保证一致性
type fakeTx struct{}

func (fakeTx) Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error {
	return fc(nil)
}

// noopLock 单测里没有跨进程并发，锁直接放行
type noopLock struct{}

func (noopLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	return nil
}
func (noopLock) Unlock(ctx context.Context) error { return nil }

func noopLockFactory(uid, token string) settleLock { return noopLock{} }

// mutexLock 并发用例用：同 uid 的变更真正串行
type mutexLock struct{ mu *sync.Mutex }

func (l mutexLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	l.mu.Lock()
	return nil
}
func (l mutexLock) Unlock(ctx context.Context) error {
	l.mu.Unlock()
	return nil
}

// stubAccounts 账户桩，GetByUID 返回副本，模拟数据库读
type stubAccounts struct {
	mu       sync.Mutex
	accounts map[string]*model.Account
}

func newStubAccounts(accounts ...*model.Account) *stubAccounts {
	s := &stubAccounts{accounts: make(map[string]*model.Account)}
	for _, a := range accounts {
		s.accounts[a.UID] = a
	}
	return s
}

func (s *stubAccounts) GetByUID(ctx context.Context, uid string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[uid]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *stubAccounts) Deduct(ctx context.Context, tx *gorm.DB, uid string, amount int64, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[uid]
	if !ok {
		return repository.ErrAccountNotFound
	}
	if a.Version != version {
		return repository.ErrOptimisticLock
	}
	if a.Balance < amount {
		return repository.ErrBalanceNotEnough
	}
	a.Balance -= amount
	a.Version++
	return nil
}

func (s *stubAccounts) Increase(ctx context.Context, tx *gorm.DB, uid string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[uid]
	if !ok {
		return repository.ErrAccountNotFound
	}
	a.Balance += amount
	a.Version++
	return nil
}

func (s *stubAccounts) balance(uid string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[uid].Balance
}

// stubOrders 订单桩，按 order_id 唯一，模拟唯一索引
type stubOrders struct {
	mu     sync.Mutex
	orders map[string]*model.CoinOrder
}

func newStubOrders(orders ...*model.CoinOrder) *stubOrders {
	s := &stubOrders{orders: make(map[string]*model.CoinOrder)}
	for _, o := range orders {
		s.orders[o.OrderID] = o
	}
	return s
}

func (s *stubOrders) Create(ctx context.Context, tx *gorm.DB, order *model.CoinOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[order.OrderID]; exists {
		return repository.ErrDuplicateOrder
	}
	cp := *order
	s.orders[order.OrderID] = &cp
	return nil
}

func (s *stubOrders) GetByOrderID(ctx context.Context, orderID string) (*model.CoinOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *stubOrders) MarkCompleted(ctx context.Context, tx *gorm.DB, orderID string, updatedBalance int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if o.Status != model.OrderStatusPending {
		return repository.ErrOrderStatusInvalid
	}
	now := time.Now()
	o.Status = model.OrderStatusCompleted
	o.UpdatedBalance = updatedBalance
	o.CompletedAt = &now
	return nil
}

// stubFlows 流水桩
type stubFlows struct {
	mu    sync.Mutex
	flows []*model.CoinFlow
}

func (s *stubFlows) Create(ctx context.Context, tx *gorm.DB, flow *model.CoinFlow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *flow
	s.flows = append(s.flows, &cp)
	return nil
}

func (s *stubFlows) ListByUID(ctx context.Context, uid string, page, pageSize int) ([]*model.CoinFlow, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.CoinFlow
	for _, f := range s.flows {
		if f.UID == uid {
			out = append(out, f)
		}
	}
	return out, int64(len(out)), nil
}

func (s *stubFlows) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.flows)
}

// stubOutbox 事件桩
type stubOutbox struct {
	mu       sync.Mutex
	messages []*model.OutboxMessage
}

func (s *stubOutbox) Create(ctx context.Context, tx *gorm.DB, msg *model.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *msg
	s.messages = append(s.messages, &cp)
	return nil
}

func (s *stubOutbox) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// stubSessions 会话桩
type stubSessions struct {
	mu       sync.Mutex
	sessions map[string]*model.GameSession
}

func newStubSessions(sessions ...*model.GameSession) *stubSessions {
	s := &stubSessions{sessions: make(map[string]*model.GameSession)}
	for _, sess := range sessions {
		s.sessions[sess.SessionID] = sess
	}
	return s
}

func (s *stubSessions) ActivateExclusive(ctx context.Context, session *model.GameSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, old := range s.sessions {
		if old.UID == session.UID && old.GameKey == session.GameKey {
			old.Status = model.SessionStatusInactive
		}
	}
	session.Status = model.SessionStatusActive
	cp := *session
	s.sessions[session.SessionID] = &cp
	return nil
}

func (s *stubSessions) GetBySessionID(ctx context.Context, sessionID string) (*model.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}
