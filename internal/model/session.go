package model

import (
	"time"
)

const (
	SessionStatusActive   = "active"
	SessionStatusInactive = "inactive"
)

// GameSession 游戏会话表
// 同一 (uid, game_key) 最多存在一条 active 会话：
// 新建会话前必须先把该组合下的旧会话全部置为 inactive
type GameSession struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"session_id"` // 会话令牌（UUID）
	UID       string    `gorm:"type:varchar(64);index:idx_session_uid_game;not null" json:"uid"`
	GameKey   string    `gorm:"type:varchar(64);index:idx_session_uid_game;not null" json:"game_key"`
	Status    string    `gorm:"type:varchar(20);not null;default:active" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (GameSession) TableName() string {
	return "game_session"
}

// Active 会话是否可用
func (s *GameSession) Active() bool {
	return s.Status == SessionStatusActive
}
