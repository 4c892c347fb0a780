// Package httperr 领域错误到 HTTP 响应的统一映射
//
// 所有 handler 通过 Write 输出错误，响应体为 {"error": "...", "detail": "..."}。
package httperr

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"reminder/internal/shared/model"
	"reminder/internal/shared/storage"
)

// 对外的错误信息，不包含内部细节
const (
	MsgUnauthorized   = "Could not validate credentials"
	MsgInactiveUser   = "Inactive user"
	MsgNotFound       = "Item not found"
	MsgDuplicate      = "Item already exists"
	MsgUnavailable    = "Service unavailable"
	MsgNotImplemented = "Not implemented"
	MsgInternal       = "internal error"
)

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
	Field  string `json:"field,omitempty"`
}

// Status 返回错误对应的 HTTP 状态码
func Status(err error) int {
	var ve *model.ValidationError
	switch {
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrInactiveUser):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, storage.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, model.ErrNotImplemented):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// Write 写出错误响应
func Write(w http.ResponseWriter, err error) {
	status := Status(err)
	body := errorBody{}

	switch status {
	case http.StatusUnauthorized:
		w.Header().Set("WWW-Authenticate", "Bearer")
		body.Error = MsgUnauthorized
	case http.StatusBadRequest:
		body.Error = MsgInactiveUser
	case http.StatusNotFound:
		body.Error = MsgNotFound
	case http.StatusUnprocessableEntity:
		var ve *model.ValidationError
		errors.As(err, &ve)
		body.Error = ve.Error()
		body.Field = ve.Field
	case http.StatusConflict:
		body.Error = MsgDuplicate
	case http.StatusServiceUnavailable:
		log.Printf("[http] store unavailable: %v", err)
		body.Error = MsgUnavailable
	case http.StatusNotImplemented:
		body.Error = MsgNotImplemented
	default:
		log.Printf("[http] internal error: %v", err)
		body.Error = MsgInternal
	}

	body.Detail = body.Error
	WriteJSON(w, status, body)
}

// WriteUnauthorized 写出带自定义信息的 401
func WriteUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	WriteError(w, http.StatusUnauthorized, message)
}

// WriteError 写出 {"error": message}
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, errorBody{Error: message, Detail: message})
}

// WriteJSON 写出 JSON 响应
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
