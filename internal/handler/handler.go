package handler

import (
	"context"

	"coingate/internal/config"
	"coingate/internal/model"
	"coingate/internal/service"
)

// 服务依赖契约，handler 只面向接口，便于单测替换

type LedgerService interface {
	CreateOrder(ctx context.Context, req *service.CreateOrderRequest) (*model.CoinOrder, error)
	SettleOrder(ctx context.Context, req *service.SettleRequest) (int64, error)
}

type WalletService interface {
	Balance(ctx context.Context, uid string) (int64, error)
	Debit(ctx context.Context, uid, sessionID string, amount int64) (int64, error)
	Credit(ctx context.Context, uid, sessionID string, amount int64) (int64, error)
	CreditExternal(ctx context.Context, uid, gameKey string, amount int64, remark string) (int64, error)
	Flows(ctx context.Context, uid string, page, pageSize int) ([]*model.CoinFlow, int64, error)
}

type SessionService interface {
	Create(ctx context.Context, uid, gameKey string) (*model.GameSession, error)
}

type UserService interface {
	Register(ctx context.Context, username, email, password string) (*model.Account, error)
	Login(ctx context.Context, email, password string) (string, *model.Account, error)
	GameLogin(ctx context.Context, email string) (string, error)
	Profile(ctx context.Context, uid string) (*model.Account, error)
	Users(ctx context.Context, uids []string) ([]service.ProviderUser, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	cfg      *config.Config
	ledger   LedgerService
	wallet   WalletService
	sessions SessionService
	users    UserService
}

// NewHandler 创建处理器实例
func NewHandler(cfg *config.Config, ledger LedgerService, wallet WalletService, sessions SessionService, users UserService) *Handler {
	return &Handler{
		cfg:      cfg,
		ledger:   ledger,
		wallet:   wallet,
		sessions: sessions,
		users:    users,
	}
}
