package service

import (
	"context"
	"testing"

	"coingate/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionCreateEvictsOldSession(t *testing.T) {
	store := newStubSessions()
	svc := &SessionService{sessionRepo: store}
	ctx := context.Background()

	first, err := svc.Create(ctx, "u1", "fruitspin")
	require.NoError(t, err)
	require.NotEmpty(t, first.SessionID)

	_, err = svc.Validate(ctx, "u1", first.SessionID)
	require.NoError(t, err)

	// 同 (uid, game_key) 新建会话，旧会话被挤下线
	second, err := svc.Create(ctx, "u1", "fruitspin")
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, second.SessionID)

	_, err = svc.Validate(ctx, "u1", first.SessionID)
	assert.ErrorIs(t, err, ErrSessionExpired, "旧会话令牌必须立即失效")

	_, err = svc.Validate(ctx, "u1", second.SessionID)
	assert.NoError(t, err)
}

func TestSessionCreateDifferentGamesCoexist(t *testing.T) {
	store := newStubSessions()
	svc := &SessionService{sessionRepo: store}
	ctx := context.Background()

	spin, err := svc.Create(ctx, "u1", "fruitspin")
	require.NoError(t, err)
	dice, err := svc.Create(ctx, "u1", "luckydice")
	require.NoError(t, err)

	// 不同游戏的会话互不影响
	_, err = svc.Validate(ctx, "u1", spin.SessionID)
	assert.NoError(t, err)
	_, err = svc.Validate(ctx, "u1", dice.SessionID)
	assert.NoError(t, err)
}

func TestSessionValidate(t *testing.T) {
	store := newStubSessions()
	svc := &SessionService{sessionRepo: store}
	ctx := context.Background()

	sess, err := svc.Create(ctx, "u1", "fruitspin")
	require.NoError(t, err)

	_, err = svc.Validate(ctx, "u1", "no-such-session")
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)

	_, err = svc.Validate(ctx, "u2", sess.SessionID)
	assert.ErrorIs(t, err, ErrSessionMismatch)
}
