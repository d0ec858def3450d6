package model

import (
	"time"
)

// 流水类型
const (
	FlowTypeCredit = "credit" // 加币
	FlowTypeDebit  = "debit"  // 扣币
)

// CoinFlow 硬币流水表
// 记录账户的每一笔余额变动，是对账的核心依据
//
// 【重要】流水表设计原则：
// 1. 只追加，不修改，不删除 —— 保证审计可追溯
// 2. 记录交易前后余额 —— 便于校验余额一致性
// 3. 有订单的流水必须带 order_id —— 便于和对接方对账
type CoinFlow struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	FlowNo        string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"flow_no"`    // 流水号（全局唯一）
	UID           string    `gorm:"type:varchar(64);index;not null" json:"uid"`              // 用户ID
	OrderID       string    `gorm:"type:varchar(64);index" json:"order_id,omitempty"`        // 关联订单号，会话内直接扣款可为空
	SessionID     string    `gorm:"type:varchar(64)" json:"session_id,omitempty"`            // 关联会话
	GameKey       string    `gorm:"type:varchar(64)" json:"game_key"`                        // 游戏标识
	Type          string    `gorm:"type:varchar(16);not null" json:"type"`                   // credit / debit
	Amount        int64     `gorm:"not null" json:"amount"`                                  // 金额（正数入账，负数出账）
	BalanceBefore int64     `gorm:"not null" json:"balance_before"`                          // 变动前余额
	BalanceAfter  int64     `gorm:"not null" json:"balance_after"`                           // 变动后余额
	Remark        string    `gorm:"type:varchar(256)" json:"remark"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (CoinFlow) TableName() string {
	return "coin_flow"
}
