package service

import "errors"

// 错误分级：Handler 边界用 errors.Is 翻译成 HTTP 状态码
var (
	// ErrNotFound 引用的文档/用户/任务不存在
	ErrNotFound = errors.New("resource not found")

	// ErrForbidden 跨部门访问等授权失败
	//（刻意返回 403 而不是 404：内部工具接受暴露资源存在性）
	ErrForbidden = errors.New("access denied")

	// ErrUnauthorized 凭证错误 / 账号停用
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict 邮箱重复、部门管理员已存在
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput 进入任何存储操作之前的参数校验失败
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmbeddingsUnavailable 向量化依赖未配置/不可用
	// 必须与普通失败可区分——调用方据此降级到文本检索
	ErrEmbeddingsUnavailable = errors.New("embedding provider unavailable")
)
