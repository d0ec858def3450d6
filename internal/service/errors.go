package service

import "errors"

var (
	ErrInvalidAmount      = errors.New("金额必须大于0")
	ErrInvalidOptType     = errors.New("不支持的操作类型")
	ErrOptTypeMismatch    = errors.New("操作类型与订单不一致")
	ErrAmountMismatch     = errors.New("金额与订单创建时不一致")
	ErrSessionExpired     = errors.New("会话已失效，请重新开始游戏")
	ErrSessionMismatch    = errors.New("会话不属于当前账户")
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrResetTokenInvalid  = errors.New("重置令牌无效或已过期")
)
