package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"coingate/internal/config"
	"coingate/internal/infrastructure/lock"
	"coingate/internal/model"
	"coingate/internal/repository"
	"coingate/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// WalletService 钱包直接变更路径
// 站内游戏流程用：不走两段式订单，校验会话后一步完成
// 余额变更 + 已完成流水记录
type WalletService struct {
	db          txRunner
	cfg         *config.Config
	accountRepo accountStore
	flowRepo    flowStore
	outboxRepo  outboxStore
	sessions    sessionGate
	newLock     func(uid, token string) settleLock
}

func NewWalletService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, sessions sessionGate) *WalletService {
	return &WalletService{
		db:          db,
		cfg:         cfg,
		accountRepo: repository.NewAccountRepository(db),
		flowRepo:    repository.NewFlowRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
		sessions:    sessions,
		newLock: func(uid, token string) settleLock {
			return lock.NewSettleLock(redisClient, uid, token)
		},
	}
}

// Balance 查询余额
func (s *WalletService) Balance(ctx context.Context, uid string) (int64, error) {
	account, err := s.accountRepo.GetByUID(ctx, uid)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// Debit 会话内扣币，要求会话 active
func (s *WalletService) Debit(ctx context.Context, uid, sessionID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	session, err := s.sessions.Validate(ctx, uid, sessionID)
	if err != nil {
		return 0, err
	}

	return s.mutate(ctx, uid, -amount, session.SessionID, session.GameKey, "会话扣币")
}

// Credit 会话内加币，要求会话 active
func (s *WalletService) Credit(ctx context.Context, uid, sessionID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	session, err := s.sessions.Validate(ctx, uid, sessionID)
	if err != nil {
		return 0, err
	}

	return s.mutate(ctx, uid, amount, session.SessionID, session.GameKey, "会话加币")
}

// CreditExternal 回调推送加币
// 回调靠整包 HMAC 认证，是独立于会话的信任边界，不要求 active 会话
func (s *WalletService) CreditExternal(ctx context.Context, uid, gameKey string, amount int64, remark string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return s.mutate(ctx, uid, amount, "", gameKey, remark)
}

// Flows 流水历史
func (s *WalletService) Flows(ctx context.Context, uid string, page, pageSize int) ([]*model.CoinFlow, int64, error) {
	return s.flowRepo.ListByUID(ctx, uid, page, pageSize)
}

// mutate 一步式余额变更：锁 -> 读 -> 检查 -> 条件写 -> 流水 -> 事件
// 和订单结算共用同一把按 uid 的锁，两条路径对同一账户也是串行的
func (s *WalletService) mutate(ctx context.Context, uid string, delta int64, sessionID, gameKey, remark string) (int64, error) {
	flowNo := idgen.GenerateFlowNo()

	walletLock := s.newLock(uid, flowNo)
	if err := walletLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return 0, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer walletLock.Unlock(ctx)

	account, err := s.accountRepo.GetByUID(ctx, uid)
	if err != nil {
		return 0, err
	}

	if delta < 0 && account.Balance < -delta {
		return 0, repository.ErrBalanceNotEnough
	}

	updatedBalance, err := account.ApplyDelta(delta)
	if err != nil {
		return 0, err
	}
	balanceBefore := updatedBalance - delta

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if delta < 0 {
			if err := s.accountRepo.Deduct(ctx, tx, uid, -delta, account.Version); err != nil {
				return err
			}
		} else {
			if err := s.accountRepo.Increase(ctx, tx, uid, delta); err != nil {
				return err
			}
		}

		flowType := model.FlowTypeCredit
		if delta < 0 {
			flowType = model.FlowTypeDebit
		}
		flow := &model.CoinFlow{
			FlowNo:        flowNo,
			UID:           uid,
			SessionID:     sessionID,
			GameKey:       gameKey,
			Type:          flowType,
			Amount:        delta,
			BalanceBefore: balanceBefore,
			BalanceAfter:  updatedBalance,
			Remark:        remark,
		}
		if err := s.flowRepo.Create(ctx, tx, flow); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		msgPayload := map[string]interface{}{
			"flow_no":         flowNo,
			"uid":             uid,
			"game_key":        gameKey,
			"type":            flowType,
			"amount":          delta,
			"updated_balance": updatedBalance,
			"changed_at":      time.Now().Format(time.RFC3339),
		}
		payloadBytes, _ := json.Marshal(msgPayload)

		outboxMsg := &model.OutboxMessage{
			MessageKey: flowNo,
			Topic:      s.cfg.Kafka.Topic.WalletChanged,
			Payload:    string(payloadBytes),
			Status:     model.OutboxStatusPending,
		}
		return s.outboxRepo.Create(ctx, tx, outboxMsg)
	})

	if err != nil {
		return 0, err
	}

	return updatedBalance, nil
}
