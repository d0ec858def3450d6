package repository

import (
	"context"
	"errors"

	"coingate/internal/model"

	"gorm.io/gorm"
)

var ErrSessionNotFound = errors.New("会话不存在")

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// ActivateExclusive 失效 (uid, game_key) 下全部旧会话并插入新的 active 会话
//
// 【关键点】失效和插入放在同一个事务里：
// 任何时刻外部都看不到同一 (uid, game_key) 有两条 active 会话
func (r *SessionRepository) ActivateExclusive(ctx context.Context, session *model.GameSession) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.GameSession{}).
			Where("uid = ? AND game_key = ? AND status = ?",
				session.UID, session.GameKey, model.SessionStatusActive).
			Update("status", model.SessionStatusInactive).Error
		if err != nil {
			return err
		}

		session.Status = model.SessionStatusActive
		return tx.Create(session).Error
	})
}

func (r *SessionRepository) GetBySessionID(ctx context.Context, sessionID string) (*model.GameSession, error) {
	var session model.GameSession
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}
