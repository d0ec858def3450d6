package handler

import (
	"errors"

	"coingate/internal/repository"
	"coingate/internal/service"
	"coingate/pkg/response"

	"github.com/gin-gonic/gin"
)

// ============================================================
// 账户接口（注册/登录/资料/找回密码）
// ============================================================

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// Register 注册
// POST /api/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	account, err := h.users.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrAccountExists) {
			response.ParamError(c, "用户名或邮箱已注册")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Created(c, "注册成功", gin.H{
		"uid":      account.UID,
		"username": account.Username,
		"email":    account.Email,
	})
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login 登录
// POST /api/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	token, account, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.ParamError(c, "邮箱或密码错误")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, "登录成功", gin.H{
		"token": token,
		"user": gin.H{
			"uid":      account.UID,
			"username": account.Username,
			"email":    account.Email,
		},
	})
}

// Profile 查询当前账户资料
// GET /api/auth/profile
func (h *Handler) Profile(c *gin.Context) {
	account, err := h.users.Profile(c.Request.Context(), currentUID(c))
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			response.NotFound(c, "账户不存在")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, "资料查询成功", gin.H{
		"uid":      account.UID,
		"username": account.Username,
		"email":    account.Email,
		"nick":     account.Nick,
		"gender":   account.Gender,
		"portrait": account.Portrait,
	})
}

// ForgotPasswordRequest 找回密码请求
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword 发送密码重置邮件
// POST /api/auth/forgot-password
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.users.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			response.NotFound(c, "用户不存在")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, "重置链接已发送到邮箱", nil)
}

// ResetPasswordRequest 重置密码请求
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

// ResetPassword 用重置令牌设置新密码
// POST /api/auth/reset-password
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.users.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		if errors.Is(err, service.ErrResetTokenInvalid) {
			response.ParamError(c, "重置令牌无效或已过期")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, "密码重置成功", nil)
}
