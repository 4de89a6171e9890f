package handler

import (
	"errors"
	"net/http"

	"DocTrack/internal/service"

	"github.com/gin-gonic/gin"
)

// Response 统一响应信封
type Response struct {
	Message string      `json:"message"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func OK(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{
		Message: message,
		Success: true,
		Data:    data,
	})
}

// Fail 业务错误 -> HTTP 状态码的唯一翻译点
// Service 层只抛哨兵错误，不关心 HTTP
func Fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
		message = err.Error()
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusUnauthorized
		message = err.Error()
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
		message = err.Error()
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, service.ErrEmbeddingsUnavailable):
		status = http.StatusServiceUnavailable
		message = err.Error()
	}

	c.JSON(status, Response{
		Message: message,
		Success: false,
	})
}

// BadRequest 参数绑定失败
func BadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, Response{
		Message: "Invalid request parameters",
		Success: false,
		Error:   err.Error(),
	})
}
