package service

import (
	"context"

	"coingate/internal/model"
	"coingate/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionService 游戏会话管理
// 同一 (uid, game_key) 只允许一条 active 会话，旧会话在新建时被挤掉
type SessionService struct {
	sessionRepo sessionStore
}

func NewSessionService(db *gorm.DB) *SessionService {
	return &SessionService{
		sessionRepo: repository.NewSessionRepository(db),
	}
}

// Create 新建会话，并失效同 (uid, game_key) 下的全部旧会话
func (s *SessionService) Create(ctx context.Context, uid, gameKey string) (*model.GameSession, error) {
	session := &model.GameSession{
		SessionID: uuid.NewString(),
		UID:       uid,
		GameKey:   gameKey,
	}

	if err := s.sessionRepo.ActivateExclusive(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Validate 会话门禁
// 依次检查：存在 -> active -> 归属当前账户，失败原因分别是
// 会话不存在 / 会话失效 / 会话归属不符
func (s *SessionService) Validate(ctx context.Context, uid, sessionID string) (*model.GameSession, error) {
	session, err := s.sessionRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !session.Active() {
		return nil, ErrSessionExpired
	}

	if session.UID != uid {
		return nil, ErrSessionMismatch
	}

	return session, nil
}
