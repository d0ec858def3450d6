package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ============================================================================
// sign_v2 签名
// ============================================================================
//
// 对接方请求不带会话，只靠共享密钥签名认证：
//
//   sign_v2 = hex(HMAC-SHA256(app_secret, 待签名串))
//
// 待签名串是按操作类型固定顺序拼接的 key=value 串，用 & 连接，
// 顺序不是字典序，必须和发送方拼接的顺序一字不差
//
// ============================================================================

var (
	// ErrSecretMissing 密钥未配置，属于运维配置错误，绝不能当作验签通过
	ErrSecretMissing = errors.New("签名密钥未配置")
	// ErrSignatureInvalid 验签失败统一返回这一个错误，不区分是哪个字段出的问题
	ErrSignatureInvalid = errors.New("签名校验失败")
)

// OpType 签名操作类型
type OpType string

const (
	OpBalance     OpType = "balance"
	OpOrderCreate OpType = "order_create"
	OpUpdate      OpType = "update"
)

// 各操作类型的待签名字段及其固定顺序，和对接方协议保持一致
var opFieldOrder = map[OpType][]string{
	OpBalance:     {"app_key", "game_key", "uid", "coin_kinds", "ts"},
	OpOrderCreate: {"app_key", "game_key", "uid", "opt_type", "coin_kind", "ts"},
	OpUpdate:      {"app_key", "game_key", "uid", "order_id", "opt_type", "coin_kind", "num", "ts"},
}

// CanonicalString 按操作类型拼出待签名串
// 缺失的字段按空值拼入，最终签名对不上自然会被拒绝
func CanonicalString(fields map[string]string, op OpType) (string, error) {
	order, ok := opFieldOrder[op]
	if !ok {
		return "", fmt.Errorf("未知的签名操作类型: %s", op)
	}

	parts := make([]string, 0, len(order))
	for _, key := range order {
		parts = append(parts, key+"="+fields[key])
	}
	return strings.Join(parts, "&"), nil
}

// Sign 计算 sign_v2（小写十六进制）
func Sign(secret string, fields map[string]string, op OpType) (string, error) {
	if secret == "" {
		return "", ErrSecretMissing
	}

	stringToSign, err := CanonicalString(fields, op)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(stringToSign))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify 服务端重算签名并与请求携带的 sign_v2 比对
// 比对使用恒定时间比较，避免时序侧信道
func Verify(secret string, fields map[string]string, op OpType, sign string) error {
	expected, err := Sign(secret, fields, op)
	if err != nil {
		if errors.Is(err, ErrSecretMissing) {
			return err
		}
		return ErrSignatureInvalid
	}

	if !constantTimeEqual(expected, strings.ToLower(sign)) {
		return ErrSignatureInvalid
	}
	return nil
}

// SignPayload 对整个原始请求体做 HMAC，用于异步回调推送
// 回调密钥和 sign_v2 的对接方密钥相互独立
func SignPayload(secret string, payload []byte) (string, error) {
	if secret == "" {
		return "", ErrSecretMissing
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifyPayload 校验回调推送的整包签名
func VerifyPayload(secret string, payload []byte, sign string) error {
	expected, err := SignPayload(secret, payload)
	if err != nil {
		return err
	}

	if !constantTimeEqual(expected, strings.ToLower(sign)) {
		return ErrSignatureInvalid
	}
	return nil
}

func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
