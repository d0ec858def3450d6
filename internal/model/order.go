package model

import (
	"time"
)

// 订单状态机：pending -> completed（终态）
// 没有失败/取消态：订单一旦受理，只能靠同一 order_id 的结算请求推进到 completed，
// 半途失败的订单永远停在 pending，等待对接方重放（结算幂等，重放安全）
const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
)

// 操作类型（对接方协议 opt_type）
const (
	OptTypeSub     = "sub"     // 扣币
	OptTypeAdd     = "add"     // 加币
	OptTypeUndoSub = "undoSub" // 撤销扣币（仅结算阶段合法）
)

// ValidCreateOptType 创建订单允许的操作类型
func ValidCreateOptType(optType string) bool {
	return optType == OptTypeSub || optType == OptTypeAdd
}

// ValidUpdateOptType 结算订单允许的操作类型
func ValidUpdateOptType(optType string) bool {
	return optType == OptTypeSub || optType == OptTypeAdd || optType == OptTypeUndoSub
}

// CoinOrder 硬币订单表
// 每一笔改变余额的对接方请求都先落成 pending 订单，结算时才动余额
//
// 【重要】金额在创建时绑定进订单，结算请求自带的 num 只用于核对，
// 防止创建和结算两次请求金额不一致造成账目错乱
type CoinOrder struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID        string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_id"`
	UID            string     `gorm:"type:varchar(64);index;not null" json:"uid"`
	SessionID      string     `gorm:"type:varchar(64)" json:"session_id,omitempty"` // 可为空，订单可比会话活得久
	GameKey        string     `gorm:"type:varchar(64);not null" json:"game_key"`
	CoinKind       string     `gorm:"type:varchar(32);not null" json:"coin_kind"`
	OptType        string     `gorm:"type:varchar(16);not null" json:"opt_type"` // sub / add
	Amount         int64      `gorm:"not null" json:"amount"`
	Status         string     `gorm:"type:varchar(20);index;not null" json:"status"`
	UpdatedBalance int64      `gorm:"not null;default:0" json:"updated_balance"` // 结算后余额快照，仅 completed 有效
	CompletedAt    *time.Time `json:"completed_at"`
	CreatedAt      time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CoinOrder) TableName() string {
	return "coin_order"
}

// Completed 订单是否已结算
func (o *CoinOrder) Completed() bool {
	return o.Status == OrderStatusCompleted
}
