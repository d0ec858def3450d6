package model

import (
	"errors"
	"time"
)

// 性别常量（对接方协议：1=男 2=女）
const (
	GenderMale   = 1
	GenderFemale = 2
)

const DefaultPortrait = "/public/image/default_avatar.png"

// ErrNegativeBalance 余额变更后为负数，属于逻辑错误，正常流程不应出现
var ErrNegativeBalance = errors.New("余额不能为负数")

// Account 用户账户表
// 记录用户资料和硬币余额，余额是整个结算系统的核心数据
//
// 【重要】余额只能通过订单结算或会话内扣款/加款变更，
// 任何 handler 都不允许直接写 balance 字段
type Account struct {
	ID               int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UID              string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"uid"` // 对外用户ID，对接方协议中的 uid
	Username         string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	Email            string     `gorm:"type:varchar(128);uniqueIndex;not null" json:"email"`
	PasswordHash     string     `gorm:"type:varchar(128);not null" json:"-"`
	Nick             string     `gorm:"type:varchar(64)" json:"nick"`
	Gender           int        `gorm:"not null;default:1" json:"gender"`
	Portrait         string     `gorm:"type:varchar(256)" json:"portrait"`
	Balance          int64      `gorm:"not null;default:0" json:"balance"` // 可用余额（硬币数）
	Version          int        `gorm:"not null;default:0" json:"version"` // 乐观锁版本号
	ResetToken       string     `gorm:"type:varchar(128);index" json:"-"`  // 密码重置令牌
	ResetTokenExpire *time.Time `json:"-"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "account"
}

// ApplyDelta 对余额施加一笔有符号变更，返回变更后余额
// 所有余额算术都必须经过这里，负余额在此统一拦截
func (a *Account) ApplyDelta(delta int64) (int64, error) {
	newBalance := a.Balance + delta
	if newBalance < 0 {
		return 0, ErrNegativeBalance
	}
	a.Balance = newBalance
	return newBalance, nil
}
