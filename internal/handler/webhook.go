package handler

import (
	"encoding/json"
	"log"

	"coingate/internal/signature"
	"coingate/pkg/response"

	"github.com/gin-gonic/gin"
)

// webhookPayload 回调推送的内容
// 签名可以放在 x-webhook-signature 头里，也可以放在 body 的 signature 字段
type webhookPayload struct {
	Signature string `json:"signature"`
	Event     string `json:"event"`
	UID       string `json:"uid"`
	GameKey   string `json:"game_key"`
	Num       int64  `json:"num"`
}

// WebhookCallback 异步回调推送
// POST /api/webhook/callback
//
// 整个原始请求体做 HMAC 校验，密钥和 sign_v2 的对接方密钥相互独立；
// 验签通过且事件是 win 时给账户加币
func (h *Handler) WebhookCallback(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		response.ParamError(c, "读取请求体失败")
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		response.ParamError(c, "请求体不是合法的 JSON")
		return
	}

	sig := c.GetHeader("x-webhook-signature")
	if sig == "" {
		sig = payload.Signature
	}
	if sig == "" {
		response.ParamError(c, "缺少签名")
		return
	}

	if err := signature.VerifyPayload(h.cfg.Webhook.Secret, body, sig); err != nil {
		response.Unauthorized(c, "签名无效")
		return
	}

	log.Printf("[Webhook] 回调已验签: event=%s, uid=%s, game_key=%s", payload.Event, payload.UID, payload.GameKey)

	if payload.Event == "win" && payload.UID != "" && payload.Num > 0 {
		balance, err := h.wallet.CreditExternal(c.Request.Context(), payload.UID, payload.GameKey, payload.Num, "回调加币-"+payload.Event)
		if err != nil {
			h.gameError(c, err)
			return
		}
		response.Success(c, "回调已受理", gin.H{"balance": balance})
		return
	}

	response.Success(c, "回调已受理", nil)
}
