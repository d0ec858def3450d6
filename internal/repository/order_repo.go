package repository

import (
	"context"
	"errors"
	"time"

	"coingate/internal/model"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound      = errors.New("订单不存在")
	ErrOrderStatusInvalid = errors.New("订单状态不合法")
	ErrDuplicateOrder     = errors.New("订单号已存在")
)

// MySQL 唯一键冲突错误码
const mysqlErrDuplicateEntry = 1062

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create 创建 pending 订单
//
// 【关键点】order_id 的唯一性靠数据库唯一索引兜底，
// 先查后插在并发下有竞态，这里不做
func (r *OrderRepository) Create(ctx context.Context, tx *gorm.DB, order *model.CoinOrder) error {
	if tx == nil {
		tx = r.db
	}

	err := tx.WithContext(ctx).Create(order).Error
	if isDuplicateKeyErr(err) {
		return ErrDuplicateOrder
	}
	return err
}

func (r *OrderRepository) GetByOrderID(ctx context.Context, orderID string) (*model.CoinOrder, error) {
	var order model.CoinOrder
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// MarkCompleted 把 pending 订单推进到 completed 并记录余额快照
// WHERE 带上 status = pending，订单已被别的请求结算时影响行数为 0
func (r *OrderRepository) MarkCompleted(ctx context.Context, tx *gorm.DB, orderID string, updatedBalance int64) error {
	if tx == nil {
		tx = r.db
	}

	now := time.Now()
	result := tx.WithContext(ctx).
		Model(&model.CoinOrder{}).
		Where("order_id = ? AND status = ?", orderID, model.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":          model.OrderStatusCompleted,
			"updated_balance": updatedBalance,
			"completed_at":    &now,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrOrderStatusInvalid
	}

	return nil
}

// ListByUID 查询用户订单列表
func (r *OrderRepository) ListByUID(ctx context.Context, uid string, page, pageSize int) ([]*model.CoinOrder, int64, error) {
	var orders []*model.CoinOrder
	var total int64

	query := r.db.WithContext(ctx).Model(&model.CoinOrder{}).Where("uid = ?", uid)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error

	return orders, total, err
}

func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlErrDuplicateEntry
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
