package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"coingate/internal/config"
	"coingate/internal/infrastructure/lock"
	"coingate/internal/model"
	"coingate/internal/repository"
	"coingate/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// LedgerService 订单账本
// 负责对接方协议里的两段式结算：
//
//	create：落 pending 订单，预检余额，不动账
//	settle：幂等结算，唯一会动余额的地方
type LedgerService struct {
	db          txRunner
	cfg         *config.Config
	accountRepo accountStore
	orderRepo   orderStore
	flowRepo    flowStore
	outboxRepo  outboxStore
	newLock     func(uid, token string) settleLock
}

func NewLedgerService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *LedgerService {
	return &LedgerService{
		db:          db,
		cfg:         cfg,
		accountRepo: repository.NewAccountRepository(db),
		orderRepo:   repository.NewOrderRepository(db),
		flowRepo:    repository.NewFlowRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
		newLock: func(uid, token string) settleLock {
			return lock.NewSettleLock(redisClient, uid, token)
		},
	}
}

// CreateOrderRequest 创建订单入参
type CreateOrderRequest struct {
	UID       string
	GameKey   string
	CoinKind  string
	OptType   string // sub / add
	Amount    int64
	OrderID   string // 对接方自带订单号时使用，否则服务端生成
	SessionID string // 可选，带会话的订单
}

// CreateOrder 创建 pending 订单
//
// 扣币订单在这里做预授权检查（余额够不够），但不动余额；
// 余额真正变化只发生在 SettleOrder
func (s *LedgerService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*model.CoinOrder, error) {
	if !model.ValidCreateOptType(req.OptType) {
		return nil, ErrInvalidOptType
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	account, err := s.accountRepo.GetByUID(ctx, req.UID)
	if err != nil {
		return nil, err
	}

	// 扣币预授权：创建时余额就必须足够
	if req.OptType == model.OptTypeSub && account.Balance < req.Amount {
		return nil, repository.ErrBalanceNotEnough
	}

	orderID := req.OrderID
	if orderID == "" {
		orderID = idgen.GenerateOrderID()
	}

	order := &model.CoinOrder{
		OrderID:   orderID,
		UID:       req.UID,
		SessionID: req.SessionID,
		GameKey:   req.GameKey,
		CoinKind:  req.CoinKind,
		OptType:   req.OptType,
		Amount:    req.Amount,
		Status:    model.OrderStatusPending,
	}

	// 唯一索引兜底：同 order_id 的第二次创建在这里失败，不会悄悄覆盖
	if err := s.orderRepo.Create(ctx, nil, order); err != nil {
		return nil, err
	}

	return order, nil
}

// SettleRequest 结算入参
type SettleRequest struct {
	UID     string
	OrderID string
	OptType string // sub / add / undoSub
	Amount  int64
}

// SettleOrder 结算订单，整个系统唯一动余额的地方
//
// 【关键点】
// 1. 幂等：订单已 completed 时原样返回当时的余额快照，不再动账，重放安全
// 2. 金额绑定：结算请求的 num 必须等于创建时落库的金额，不信任结算请求自带的金额
// 3. 并发：按 uid 加分布式锁 + 条件 UPDATE，读-检查-改-写不会交错
func (s *LedgerService) SettleOrder(ctx context.Context, req *SettleRequest) (int64, error) {
	if !model.ValidUpdateOptType(req.OptType) {
		return 0, ErrInvalidOptType
	}

	order, err := s.orderRepo.GetByOrderID(ctx, req.OrderID)
	if err != nil {
		return 0, err
	}
	// 订单归属不符按不存在处理，不向对接方泄露归属信息
	if order.UID != req.UID {
		return 0, repository.ErrOrderNotFound
	}

	// 幂等快路径：锁都不用拿
	if order.Completed() {
		return order.UpdatedBalance, nil
	}

	if err := validateSettle(order, req); err != nil {
		return 0, err
	}

	settleLock := s.newLock(req.UID, req.OrderID)
	if err := settleLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return 0, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer settleLock.Unlock(ctx)

	// 拿到锁后重查：可能在等锁期间已被同 order_id 的重放结算掉
	order, err = s.orderRepo.GetByOrderID(ctx, req.OrderID)
	if err != nil {
		return 0, err
	}
	if order.Completed() {
		return order.UpdatedBalance, nil
	}

	account, err := s.accountRepo.GetByUID(ctx, req.UID)
	if err != nil {
		return 0, err
	}

	delta := settleDelta(order, req.OptType)

	// 结算时重验余额：创建后余额可能已被别的订单扣走
	if delta < 0 && account.Balance < -delta {
		return 0, repository.ErrBalanceNotEnough
	}

	updatedBalance, err := account.ApplyDelta(delta)
	if err != nil {
		// 上面已拦截余额不足，走到这里属于逻辑错误
		return 0, err
	}

	balanceBefore := updatedBalance - delta

	err = s.db.Transaction(func(tx *gorm.DB) error {
		switch {
		case delta < 0:
			if err := s.accountRepo.Deduct(ctx, tx, req.UID, -delta, account.Version); err != nil {
				return err
			}
		case delta > 0:
			if err := s.accountRepo.Increase(ctx, tx, req.UID, delta); err != nil {
				return err
			}
		}

		if err := s.orderRepo.MarkCompleted(ctx, tx, req.OrderID, updatedBalance); err != nil {
			return fmt.Errorf("更新订单状态失败: %w", err)
		}

		if delta != 0 {
			flowType := model.FlowTypeCredit
			if delta < 0 {
				flowType = model.FlowTypeDebit
			}
			flow := &model.CoinFlow{
				FlowNo:        idgen.GenerateFlowNo(),
				UID:           req.UID,
				OrderID:       req.OrderID,
				SessionID:     order.SessionID,
				GameKey:       order.GameKey,
				Type:          flowType,
				Amount:        delta,
				BalanceBefore: balanceBefore,
				BalanceAfter:  updatedBalance,
				Remark:        fmt.Sprintf("结算-%s-%s", req.OptType, order.CoinKind),
			}
			if err := s.flowRepo.Create(ctx, tx, flow); err != nil {
				return fmt.Errorf("记录流水失败: %w", err)
			}
		}

		msgPayload := map[string]interface{}{
			"order_id":        req.OrderID,
			"uid":             req.UID,
			"game_key":        order.GameKey,
			"coin_kind":       order.CoinKind,
			"opt_type":        req.OptType,
			"amount":          order.Amount,
			"updated_balance": updatedBalance,
			"settled_at":      time.Now().Format(time.RFC3339),
		}
		payloadBytes, _ := json.Marshal(msgPayload)

		outboxMsg := &model.OutboxMessage{
			MessageKey: req.OrderID,
			Topic:      s.cfg.Kafka.Topic.OrderSettled,
			Payload:    string(payloadBytes),
			Status:     model.OutboxStatusPending,
		}
		if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
			return fmt.Errorf("写入消息失败: %w", err)
		}

		return nil
	})

	if err != nil {
		return 0, err
	}

	log.Printf("结算成功: orderID=%s, uid=%s, optType=%s, updatedBalance=%d",
		req.OrderID, req.UID, req.OptType, updatedBalance)

	return updatedBalance, nil
}

// GetOrder 查询订单
func (s *LedgerService) GetOrder(ctx context.Context, orderID string) (*model.CoinOrder, error) {
	return s.orderRepo.GetByOrderID(ctx, orderID)
}

// validateSettle 核对结算请求和订单创建时落库的内容
func validateSettle(order *model.CoinOrder, req *SettleRequest) error {
	if req.OptType == model.OptTypeUndoSub {
		// undoSub 只能撤销扣币订单
		if order.OptType != model.OptTypeSub {
			return ErrOptTypeMismatch
		}
		return nil
	}

	if req.OptType != order.OptType {
		return ErrOptTypeMismatch
	}
	if req.Amount != order.Amount {
		return ErrAmountMismatch
	}
	return nil
}

// settleDelta 订单结算对余额的有符号影响
// undoSub 把未入账的扣币订单原地作废：订单推进到 completed，余额不动
func settleDelta(order *model.CoinOrder, optType string) int64 {
	switch optType {
	case model.OptTypeSub:
		return -order.Amount
	case model.OptTypeAdd:
		return order.Amount
	default: // undoSub
		return 0
	}
}
