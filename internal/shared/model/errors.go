package model

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized 令牌缺失/非法/过期，或用户名与密码不匹配
	// 不区分“用户不存在”与“密码错误”
	ErrUnauthorized = errors.New("could not validate credentials")

	// ErrInactiveUser 身份有效但账号已禁用
	ErrInactiveUser = errors.New("inactive user")

	// ErrNotImplemented 已声明但尚未实现的操作
	ErrNotImplemented = errors.New("not implemented")
)

// ValidationError 请求体不满足形状/长度/数量/类型分派规则
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// NewValidationError 创建校验错误
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// withFieldPrefix 给嵌套字段的校验错误加上前缀，其他错误原样返回
func withFieldPrefix(err error, prefix string) error {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	field := prefix
	if ve.Field != "" {
		field = prefix + "." + ve.Field
	}
	return &ValidationError{Field: field, Message: ve.Message}
}
