package service

import (
	"context"
	"database/sql"
	"time"

	"coingate/internal/model"

	"gorm.io/gorm"
)

// 数据访问契约
// service 只依赖这些接口，具体实现在 internal/repository；
// 测试里用内存桩替换，不需要真实的 MySQL / Redis

type txRunner interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

type accountStore interface {
	GetByUID(ctx context.Context, uid string) (*model.Account, error)
	Deduct(ctx context.Context, tx *gorm.DB, uid string, amount int64, version int) error
	Increase(ctx context.Context, tx *gorm.DB, uid string, amount int64) error
}

type userStore interface {
	Create(ctx context.Context, account *model.Account) error
	GetByUID(ctx context.Context, uid string) (*model.Account, error)
	GetByUsername(ctx context.Context, username string) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	GetByResetToken(ctx context.Context, token string) (*model.Account, error)
	ListByUIDs(ctx context.Context, uids []string) ([]*model.Account, error)
	SetResetToken(ctx context.Context, uid, token string, expire time.Time) error
	UpdatePassword(ctx context.Context, uid, passwordHash string) error
}

type orderStore interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.CoinOrder) error
	GetByOrderID(ctx context.Context, orderID string) (*model.CoinOrder, error)
	MarkCompleted(ctx context.Context, tx *gorm.DB, orderID string, updatedBalance int64) error
}

type sessionStore interface {
	ActivateExclusive(ctx context.Context, session *model.GameSession) error
	GetBySessionID(ctx context.Context, sessionID string) (*model.GameSession, error)
}

type flowStore interface {
	Create(ctx context.Context, tx *gorm.DB, flow *model.CoinFlow) error
	ListByUID(ctx context.Context, uid string, page, pageSize int) ([]*model.CoinFlow, int64, error)
}

type outboxStore interface {
	Create(ctx context.Context, tx *gorm.DB, msg *model.OutboxMessage) error
}

// settleLock 按账户串行化余额变更的锁
type settleLock interface {
	Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error
	Unlock(ctx context.Context) error
}

// sessionGate 会话校验入口，扣款/加款前必须通过
type sessionGate interface {
	Validate(ctx context.Context, uid, sessionID string) (*model.GameSession, error)
}
