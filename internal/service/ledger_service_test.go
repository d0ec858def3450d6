package service

import (
	"context"
	"sync"
	"testing"

	"coingate/internal/config"
	"coingate/internal/model"
	"coingate/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{
				OrderSettled:  "test.order.settled",
				WalletChanged: "test.wallet.changed",
			},
		},
	}
}

func newTestLedger(accounts *stubAccounts, orders *stubOrders) (*LedgerService, *stubFlows, *stubOutbox) {
	flows := &stubFlows{}
	outbox := &stubOutbox{}
	svc := &LedgerService{
		db:          fakeTx{},
		cfg:         testConfig(),
		accountRepo: accounts,
		orderRepo:   orders,
		flowRepo:    flows,
		outboxRepo:  outbox,
		newLock:     noopLockFactory,
	}
	return svc, flows, outbox
}

func TestCreateOrderPendingDoesNotTouchBalance(t *testing.T) {
	accounts := newStubAccounts(&model.Account{UID: "u1", Balance: 100})
	svc, _, _ := newTestLedger(accounts, newStubOrders())

	order, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{
		UID:      "u1",
		GameKey:  "fruitspin",
		CoinKind: "gift_pass",
		OptType:  model.OptTypeSub,
		Amount:   30,
	})
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.NotEmpty(t, order.OrderID)
	assert.Equal(t, int64(100), accounts.balance("u1"), "创建订单不应动余额")
}

func TestCreateOrderValidation(t *testing.T) {
	accounts := newStubAccounts(&model.Account{UID: "u1", Balance: 100})
	svc, _, _ := newTestLedger(accounts, newStubOrders())
	ctx := context.Background()

	_, err := svc.CreateOrder(ctx, &CreateOrderRequest{UID: "u1", OptType: "undoSub", Amount: 10})
	assert.ErrorIs(t, err, ErrInvalidOptType, "undoSub 不允许出现在创建阶段")

	_, err = svc.CreateOrder(ctx, &CreateOrderRequest{UID: "u1", OptType: model.OptTypeSub, Amount: 0})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.CreateOrder(ctx, &CreateOrderRequest{UID: "u1", OptType: model.OptTypeSub, Amount: 101})
	assert.ErrorIs(t, err, repository.ErrBalanceNotEnough, "扣币订单创建时预检余额")

	_, err = svc.CreateOrder(ctx, &CreateOrderRequest{UID: "ghost", OptType: model.OptTypeAdd, Amount: 10})
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
}

func TestCreateOrderDuplicateOrderID(t *testing.T) {
	accounts := newStubAccounts(&model.Account{UID: "u1", Balance: 100})
	svc, _, _ := newTestLedger(accounts, newStubOrders())
	ctx := context.Background()

	req := &CreateOrderRequest{UID: "u1", OptType: model.OptTypeSub, Amount: 10, OrderID: "ORD-dup"}
	_, err := svc.CreateOrder(ctx, req)
	require.NoError(t, err)

	_, err = svc.CreateOrder(ctx, req)
	assert.ErrorIs(t, err, repository.ErrDuplicateOrder, "同 order_id 第二次创建必须失败，不能覆盖")
}

// 端到端：100 -> 创建扣币订单30（余额不变） -> 结算后70 -> 重放仍是70
func TestSettleOrderEndToEnd(t *testing.T) {
	accounts := newStubAccounts(&model.Account{UID: "u1", Balance: 100})
	orders := newStubOrders()
	svc, flows, outbox := newTestLedger(accounts, orders)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, &CreateOrderRequest{
		UID:      "u1",
		GameKey:  "fruitspin",
		CoinKind: "gift_pass",
		OptType:  model.OptTypeSub,
		Amount:   30,
	})
	require.NoError(t, err)
	require.Equal(t, int64(100), accounts.balance("u1"))

	balance, err := svc.SettleOrder(ctx, &SettleRequest{
		UID: "u1", OrderID: order.OrderID, OptType: model.OptTypeSub, Amount: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(70), balance)
	assert.Equal(t, int64(70), accounts.balance("u1"))

	settled, err := svc.GetOrder(ctx, order.OrderID)
	require.NoError(t, err)
	assert.True(t, settled.Completed())
	assert.Equal(t, int64(70), settled.UpdatedBalance)
	assert.Equal(t, 1, flows.count())
	assert.Equal(t, 1, outbox.count())

	// 幂等重放：返回同一份余额快照，不再动账、不再写流水
	balance, err = svc.SettleOrder(ctx, &SettleRequest{
		UID: "u1", OrderID: order.OrderID, OptType: model.OptTypeSub, Amount: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(70), balance)
	assert.Equal(t, int64(70), accounts.balance("u1"))
	assert.Equal(t, 1, flows.count())
	assert.Equal(t, 1, outbox.count())
}

func TestSettleOrderAddCredits(t *testing.T) {
	accounts := newStubAccounts(&model.Account{UID: "u1", Balance: 50})
	orders := newStubOrders(&model.CoinOrder{
		OrderID: "ORD-add", UID: "u1", OptType: model.OptTypeAdd, Amount: 25,
		Status: model.OrderStatusPending,
	})
	svc, _, _ := newTestLedger(accounts, orders)

	balance, err := svc.SettleOrder(context.Background(), &SettleRequest{
		UID: "u1", OrderID: "ORD-add", OptType: model.OptTypeAdd, Amount: 25,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(75), balance)
}

func TestSettleOrderValidation(t *testing.T) {
	accounts := newStubAccounts(&model.Account{UID: "u1", Balance: 100})
	orders := newStubOrders(&model.CoinOrder{
		OrderID: "ORD-1", UID: "u1", OptType: model.OptTypeSub, Amount: 30,
		Status: model.OrderStatusPending,
	})
	svc, _, _ := newTestLedger(accounts, orders)
	ctx := context.Background()

	_, err := svc.SettleOrder(ctx, &SettleRequest{UID: "u1", OrderID: "ORD-1", OptType: "refund", Amount: 30})
	assert.ErrorIs(t, err, ErrInvalidOptType)

	_, err = svc.SettleOrder(ctx, &SettleRequest{UID: "u1", OrderID: "missing", OptType: model.OptTypeSub, Amount: 30})
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)

	// 归属不符按订单不存在处理
	_, err = svc.SettleOrder(ctx, &SettleRequest{UID: "u2", OrderID: "ORD-1", OptType: model.OptTypeSub, Amount: 30})
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)

	// 结算金额必须等于创建时落库的金额
	_, err = svc.SettleOrder(ctx, &SettleRequest{UID: "u1", OrderID: "ORD-1", OptType: model.OptTypeSub, Amount: 31})
	assert.ErrorIs(t, err, ErrAmountMismatch)

	_, err = svc.SettleOrder(ctx, &SettleRequest{UID: "u1", OrderID: "ORD-1", OptType: model.OptTypeAdd, Amount: 30})
	assert.ErrorIs(t, err, ErrOptTypeMismatch)

	assert.Equal(t, int64(100), accounts.balance("u1"), "校验失败不应动余额")
}

func TestSettleOrderUndoSub(t *testing.T) {
	accounts := newStubAccounts(&model.Account{UID: "u1", Balance: 100})
	orders := newStubOrders(
		&model.CoinOrder{OrderID: "ORD-sub", UID: "u1", OptType: model.OptTypeSub, Amount: 30, Status: model.OrderStatusPending},
		&model.CoinOrder{OrderID: "ORD-add", UID: "u1", OptType: model.OptTypeAdd, Amount: 30, Status: model.OrderStatusPending},
	)
	svc, flows, _ := newTestLedger(accounts, orders)
	ctx := context.Background()

	// undoSub 把扣币订单原地作废：订单 completed，余额不动，没有流水
	balance, err := svc.SettleOrder(ctx, &SettleRequest{
		UID: "u1", OrderID: "ORD-sub", OptType: model.OptTypeUndoSub, Amount: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)
	assert.Equal(t, int64(100), accounts.balance("u1"))
	assert.Equal(t, 0, flows.count())

	undone, err := svc.GetOrder(ctx, "ORD-sub")
	require.NoError(t, err)
	assert.True(t, undone.Completed())

	// undoSub 不能撤销加币订单
	_, err = svc.SettleOrder(ctx, &SettleRequest{
		UID: "u1", OrderID: "ORD-add", OptType: model.OptTypeUndoSub, Amount: 30,
	})
	assert.ErrorIs(t, err, ErrOptTypeMismatch)
}

func TestSettleOrderRechecksBalance(t *testing.T) {
	// 创建后余额被别的路径扣走，结算时必须重验
	accounts := newStubAccounts(&model.Account{UID: "u1", Balance: 100})
	orders := newStubOrders(&model.CoinOrder{
		OrderID: "ORD-1", UID: "u1", OptType: model.OptTypeSub, Amount: 80,
		Status: model.OrderStatusPending,
	})
	svc, _, _ := newTestLedger(accounts, orders)
	ctx := context.Background()

	require.NoError(t, accounts.Deduct(ctx, nil, "u1", 50, 0))

	_, err := svc.SettleOrder(ctx, &SettleRequest{
		UID: "u1", OrderID: "ORD-1", OptType: model.OptTypeSub, Amount: 80,
	})
	assert.ErrorIs(t, err, repository.ErrBalanceNotEnough)
	assert.Equal(t, int64(50), accounts.balance("u1"))

	pending, err := svc.GetOrder(ctx, "ORD-1")
	require.NoError(t, err)
	assert.False(t, pending.Completed(), "结算失败订单保持 pending")
}

func TestSettleOrderConcurrentReplay(t *testing.T) {
	// 两个并发结算同一订单：锁串行化后恰好一次动账，两边拿到同一快照
	accounts := newStubAccounts(&model.Account{UID: "u1", Balance: 100})
	orders := newStubOrders(&model.CoinOrder{
		OrderID: "ORD-1", UID: "u1", OptType: model.OptTypeSub, Amount: 30,
		Status: model.OrderStatusPending,
	})
	svc, flows, _ := newTestLedger(accounts, orders)

	var mu sync.Mutex
	svc.newLock = func(uid, token string) settleLock { return mutexLock{mu: &mu} }

	var wg sync.WaitGroup
	results := make([]int64, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.SettleOrder(context.Background(), &SettleRequest{
				UID: "u1", OrderID: "ORD-1", OptType: model.OptTypeSub, Amount: 30,
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < 2; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, int64(70), results[i])
	}
	assert.Equal(t, int64(70), accounts.balance("u1"), "并发重放只能扣一次")
	assert.Equal(t, 1, flows.count())
}
