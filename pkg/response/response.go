package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ============================================================
// 站内协议响应（success/message/data）
// ============================================================
//
// 站内接口和对接方接口是两个独立的信任边界，
// 响应信封也各用各的，不允许混用

// Response 站内统一响应
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func Error(c *gin.Context, status int, message string) {
	c.JSON(status, Response{
		Success: false,
		Message: message,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

func ServerError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

// ============================================================
// 对接方协议响应（dm_error/error_msg/data）
// ============================================================

// 对接方应用层错误码，和 HTTP 状态码并行返回
const (
	DmSuccess     = 0
	DmParamError  = 499 // 参数错误（HTTP 400）
	DmForbidden   = 403 // 验签失败 / app_key 不合法（HTTP 403）
	DmNotFound    = 404 // 账户/订单不存在（HTTP 404）
	DmServerError = 500 // 服务内部错误（HTTP 500）
)

// ProviderResponse 对接方统一响应
type ProviderResponse struct {
	DmError  int         `json:"dm_error"`
	ErrorMsg string      `json:"error_msg"`
	Data     interface{} `json:"data,omitempty"`
}

func ProviderSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, ProviderResponse{
		DmError:  DmSuccess,
		ErrorMsg: "",
		Data:     data,
	})
}

func ProviderError(c *gin.Context, httpStatus, dmError int, msg string) {
	c.JSON(httpStatus, ProviderResponse{
		DmError:  dmError,
		ErrorMsg: msg,
	})
}

func ProviderParamError(c *gin.Context, msg string) {
	ProviderError(c, http.StatusBadRequest, DmParamError, msg)
}

func ProviderForbidden(c *gin.Context, msg string) {
	ProviderError(c, http.StatusForbidden, DmForbidden, msg)
}

func ProviderNotFound(c *gin.Context, msg string) {
	ProviderError(c, http.StatusNotFound, DmNotFound, msg)
}

func ProviderServerError(c *gin.Context, msg string) {
	ProviderError(c, http.StatusInternalServerError, DmServerError, msg)
}
