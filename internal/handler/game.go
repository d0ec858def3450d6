package handler

import (
	"errors"
	"log"
	"strconv"

	"coingate/internal/model"
	"coingate/internal/repository"
	"coingate/internal/service"
	"coingate/pkg/response"

	"github.com/gin-gonic/gin"
)

// ============================================================
// 站内游戏协议接口（令牌 + 会话认证）
// ============================================================

// GameLoginRequest 游戏登录请求
type GameLoginRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// GameLogin 游戏登录，签发短有效期令牌
// POST /api/game/login
func (h *Handler) GameLogin(c *gin.Context) {
	var req GameLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	token, err := h.users.GameLogin(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.ParamError(c, "用户不存在")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, "游戏登录成功", gin.H{"token": token})
}

// CreateSessionRequest 创建会话请求
type CreateSessionRequest struct {
	GameID string `json:"game_id" binding:"required"`
}

// CreateSession 创建游戏会话
// POST /api/game/create-session
//
// 同一 (账户, 游戏) 的旧会话会被挤下线，旧会话令牌随即不可用
func (h *Handler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "game_id 不能为空")
		return
	}

	session, err := h.sessions.Create(c.Request.Context(), currentUID(c), req.GameID)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Created(c, "会话创建成功", gin.H{
		"session_id": session.SessionID,
		"game_id":    session.GameKey,
	})
}

// GameBalance 查询余额
// POST /api/game/balance
func (h *Handler) GameBalance(c *gin.Context) {
	balance, err := h.wallet.Balance(c.Request.Context(), currentUID(c))
	if err != nil {
		h.gameError(c, err)
		return
	}

	response.Success(c, "余额查询成功", gin.H{"balance": balance})
}

// WalletMutateRequest 扣币/加币请求
type WalletMutateRequest struct {
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	SessionID string `json:"session_id" binding:"required"`
}

// GameDebit 会话内扣币
// POST /api/game/debit
func (h *Handler) GameDebit(c *gin.Context) {
	var req WalletMutateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	balance, err := h.wallet.Debit(c.Request.Context(), currentUID(c), req.SessionID, req.Amount)
	if err != nil {
		h.gameError(c, err)
		return
	}

	response.Success(c, "扣币成功", gin.H{"balance": balance})
}

// GameCredit 会话内加币
// POST /api/game/credit
func (h *Handler) GameCredit(c *gin.Context) {
	var req WalletMutateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	balance, err := h.wallet.Credit(c.Request.Context(), currentUID(c), req.SessionID, req.Amount)
	if err != nil {
		h.gameError(c, err)
		return
	}

	response.Success(c, "加币成功", gin.H{"balance": balance})
}

// GameTransactions 流水历史
// GET /api/game/transactions?page=1&page_size=20
func (h *Handler) GameTransactions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	flows, total, err := h.wallet.Flows(c.Request.Context(), currentUID(c), page, pageSize)
	if err != nil {
		h.gameError(c, err)
		return
	}

	response.Success(c, "流水查询成功", gin.H{
		"list":      flows,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// gameError 把内部错误映射到站内信封
func (h *Handler) gameError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		response.NotFound(c, "会话无效")
	case errors.Is(err, service.ErrSessionExpired),
		errors.Is(err, service.ErrSessionMismatch):
		response.Forbidden(c, "会话已失效，请重新开始游戏")
	case errors.Is(err, repository.ErrBalanceNotEnough):
		response.ParamError(c, "余额不足")
	case errors.Is(err, service.ErrInvalidAmount):
		response.ParamError(c, err.Error())
	case errors.Is(err, repository.ErrAccountNotFound):
		response.NotFound(c, "账户不存在")
	case errors.Is(err, model.ErrNegativeBalance):
		log.Printf("[Game] 余额不变量被打破: %v", err)
		response.ServerError(c, "服务器内部错误")
	default:
		response.ServerError(c, err.Error())
	}
}
