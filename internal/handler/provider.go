package handler

import (
	"errors"
	"log"
	"strconv"
	"strings"

	"coingate/internal/model"
	"coingate/internal/repository"
	"coingate/internal/service"
	"coingate/internal/signature"
	"coingate/pkg/response"

	"github.com/gin-gonic/gin"
)

// ============================================================
// 对接方签名协议接口
// ============================================================
//
// 这一组接口没有会话概念，完全靠 sign_v2 认证；
// 响应一律用 {dm_error, error_msg, data} 信封

// numString 兼容数字和字符串两种 JSON 写法的字段（ts / num）
// 保留发送方的原始写法，拼待签名串时必须用原样的字面量
type numString string

func (n *numString) UnmarshalJSON(b []byte) error {
	*n = numString(strings.Trim(string(b), `"`))
	return nil
}

func (n numString) String() string { return string(n) }

func (n numString) Int64() (int64, error) {
	return strconv.ParseInt(string(n), 10, 64)
}

// verifyProvider 对接方请求验签
// app_key 未知、game_key 不在白名单、签名不符：统一返回同一个验签错误，
// 不暴露是哪一步失败；密钥缺失属于配置事故，单独报服务错误
func (h *Handler) verifyProvider(fields map[string]string, op signature.OpType, signV2 string) error {
	appKey := fields["app_key"]
	gameKey := fields["game_key"]

	if !h.cfg.ValidGame(appKey, gameKey) {
		return signature.ErrSignatureInvalid
	}

	secret, ok := h.cfg.ProviderSecret(appKey)
	if !ok {
		return signature.ErrSecretMissing
	}

	return signature.Verify(secret, fields, op, signV2)
}

// ProviderBalance 余额查询
// GET /api/balance?uid=&coin_kinds=&app_key=&game_key=&ts=&sign_v2=
func (h *Handler) ProviderBalance(c *gin.Context) {
	fields := map[string]string{
		"app_key":    c.Query("app_key"),
		"game_key":   c.Query("game_key"),
		"uid":        c.Query("uid"),
		"coin_kinds": c.Query("coin_kinds"),
		"ts":         c.Query("ts"),
	}

	if err := h.verifyProvider(fields, signature.OpBalance, c.Query("sign_v2")); err != nil {
		h.providerError(c, err)
		return
	}

	balance, err := h.wallet.Balance(c.Request.Context(), fields["uid"])
	if err != nil {
		h.providerError(c, err)
		return
	}

	// 单币种钱包：请求的每个 coin_kind 都映射到同一份余额
	kinds := strings.Split(fields["coin_kinds"], ",")
	data := make([]gin.H, 0, len(kinds))
	for _, kind := range kinds {
		data = append(data, gin.H{"coin_kind": kind, "num": balance})
	}

	response.ProviderSuccess(c, data)
}

// providerExtra 可选扩展字段，只接受这几个已知子字段
type providerExtra struct {
	SessionID string `json:"session_id,omitempty"`
	OrderID   string `json:"order_id,omitempty"`
}

// ProviderOrderCreateRequest 创建订单请求
type ProviderOrderCreateRequest struct {
	AppKey   string         `json:"app_key"`
	GameKey  string         `json:"game_key"`
	UID      string         `json:"uid"`
	OptType  string         `json:"opt_type"`
	CoinKind string         `json:"coin_kind"`
	Ts       numString      `json:"ts"`
	SignV2   string         `json:"sign_v2"`
	Num      numString      `json:"num"`
	Extra    *providerExtra `json:"extra,omitempty"`
}

// ProviderOrderCreate 创建订单
// POST /api/order/create
func (h *Handler) ProviderOrderCreate(c *gin.Context) {
	var req ProviderOrderCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ProviderParamError(c, "参数错误: "+err.Error())
		return
	}

	fields := map[string]string{
		"app_key":   req.AppKey,
		"game_key":  req.GameKey,
		"uid":       req.UID,
		"opt_type":  req.OptType,
		"coin_kind": req.CoinKind,
		"ts":        req.Ts.String(),
	}

	if err := h.verifyProvider(fields, signature.OpOrderCreate, req.SignV2); err != nil {
		h.providerError(c, err)
		return
	}

	amount, err := req.Num.Int64()
	if err != nil || amount <= 0 {
		response.ProviderParamError(c, "num 参数错误")
		return
	}

	createReq := &service.CreateOrderRequest{
		UID:      req.UID,
		GameKey:  req.GameKey,
		CoinKind: req.CoinKind,
		OptType:  req.OptType,
		Amount:   amount,
	}
	if req.Extra != nil {
		createReq.SessionID = req.Extra.SessionID
		createReq.OrderID = req.Extra.OrderID
	}

	order, err := h.ledger.CreateOrder(c.Request.Context(), createReq)
	if err != nil {
		h.providerError(c, err)
		return
	}

	response.ProviderSuccess(c, gin.H{"order_id": order.OrderID})
}

// ProviderOrderUpdateRequest 结算订单请求
type ProviderOrderUpdateRequest struct {
	AppKey   string         `json:"app_key"`
	GameKey  string         `json:"game_key"`
	UID      string         `json:"uid"`
	OrderID  string         `json:"order_id"`
	OptType  string         `json:"opt_type"`
	CoinKind string         `json:"coin_kind"`
	Num      numString      `json:"num"`
	Ts       numString      `json:"ts"`
	SignV2   string         `json:"sign_v2"`
	Extra    *providerExtra `json:"extra,omitempty"`
}

// ProviderOrderUpdate 结算订单（幂等）
// POST /api/order/update
//
// 已 completed 的订单重放会拿到同一个 balance_num，不会再动账
func (h *Handler) ProviderOrderUpdate(c *gin.Context) {
	var req ProviderOrderUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ProviderParamError(c, "参数错误: "+err.Error())
		return
	}

	fields := map[string]string{
		"app_key":   req.AppKey,
		"game_key":  req.GameKey,
		"uid":       req.UID,
		"order_id":  req.OrderID,
		"opt_type":  req.OptType,
		"coin_kind": req.CoinKind,
		"num":       req.Num.String(),
		"ts":        req.Ts.String(),
	}

	if err := h.verifyProvider(fields, signature.OpUpdate, req.SignV2); err != nil {
		h.providerError(c, err)
		return
	}

	amount, err := req.Num.Int64()
	if err != nil || amount <= 0 {
		response.ProviderParamError(c, "num 参数错误")
		return
	}

	balance, err := h.ledger.SettleOrder(c.Request.Context(), &service.SettleRequest{
		UID:     req.UID,
		OrderID: req.OrderID,
		OptType: req.OptType,
		Amount:  amount,
	})
	if err != nil {
		h.providerError(c, err)
		return
	}

	response.ProviderSuccess(c, gin.H{"balance_num": balance})
}

// ProviderUsersRequest 批量资料查询请求
type ProviderUsersRequest struct {
	UID     []string `json:"uid"`
	AppKey  string   `json:"app_key"`
	GameKey string   `json:"game_key"`
}

// ProviderUsers 批量查询用户资料
// POST /api/users
func (h *Handler) ProviderUsers(c *gin.Context) {
	var req ProviderUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ProviderParamError(c, "参数错误: "+err.Error())
		return
	}

	if !h.cfg.ValidGame(req.AppKey, req.GameKey) {
		response.ProviderForbidden(c, "签名校验失败")
		return
	}

	if len(req.UID) == 0 {
		response.ProviderParamError(c, "uid 列表不能为空")
		return
	}

	users, err := h.users.Users(c.Request.Context(), req.UID)
	if err != nil {
		h.providerError(c, err)
		return
	}

	response.ProviderSuccess(c, users)
}

// providerError 把内部错误映射到对接方信封
// HTTP 状态码 400/403/404/500 分别对应 dm_error 499/403/404/500
func (h *Handler) providerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, signature.ErrSignatureInvalid):
		response.ProviderForbidden(c, "签名校验失败")
	case errors.Is(err, signature.ErrSecretMissing):
		log.Printf("[Provider] 对接方密钥未配置: %v", err)
		response.ProviderServerError(c, "服务配置错误")
	case errors.Is(err, repository.ErrAccountNotFound):
		response.ProviderNotFound(c, "账户不存在")
	case errors.Is(err, repository.ErrOrderNotFound):
		response.ProviderNotFound(c, "订单不存在")
	case errors.Is(err, repository.ErrBalanceNotEnough):
		response.ProviderParamError(c, "余额不足")
	case errors.Is(err, repository.ErrDuplicateOrder):
		response.ProviderParamError(c, "订单号已存在")
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidOptType),
		errors.Is(err, service.ErrOptTypeMismatch),
		errors.Is(err, service.ErrAmountMismatch):
		response.ProviderParamError(c, err.Error())
	case errors.Is(err, model.ErrNegativeBalance):
		// 不变量被打破，属于程序缺陷，记日志并拒绝
		log.Printf("[Provider] 余额不变量被打破: %v", err)
		response.ProviderServerError(c, "服务器内部错误")
	default:
		response.ProviderServerError(c, "服务器内部错误")
	}
}
