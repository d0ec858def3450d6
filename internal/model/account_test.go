package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDelta(t *testing.T) {
	a := &Account{Balance: 100}

	balance, err := a.ApplyDelta(-30)
	require.NoError(t, err)
	assert.Equal(t, int64(70), balance)
	assert.Equal(t, int64(70), a.Balance)

	balance, err = a.ApplyDelta(50)
	require.NoError(t, err)
	assert.Equal(t, int64(120), balance)

	// 扣成负数被拦截，余额保持原值
	_, err = a.ApplyDelta(-121)
	assert.ErrorIs(t, err, ErrNegativeBalance)
	assert.Equal(t, int64(120), a.Balance)

	// 扣到零可以
	balance, err = a.ApplyDelta(-120)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestOptTypeValidation(t *testing.T) {
	assert.True(t, ValidCreateOptType(OptTypeSub))
	assert.True(t, ValidCreateOptType(OptTypeAdd))
	assert.False(t, ValidCreateOptType(OptTypeUndoSub), "undoSub 只在结算阶段出现")
	assert.False(t, ValidCreateOptType("refund"))

	assert.True(t, ValidUpdateOptType(OptTypeSub))
	assert.True(t, ValidUpdateOptType(OptTypeAdd))
	assert.True(t, ValidUpdateOptType(OptTypeUndoSub))
	assert.False(t, ValidUpdateOptType(""))
}
