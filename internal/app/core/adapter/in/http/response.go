package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/pkg/resilience"
)

// Response 統一的回應格式
type Response[T any] struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    *T       `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func successResponse[T any](message string, data T) Response[T] {
	return Response[T]{Success: true, Message: message, Data: &data}
}

func errorResponse(message string, errs ...string) Response[struct{}] {
	return Response[struct{}]{Success: false, Message: message, Errors: errs}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError 依錯誤分類決定 HTTP 狀態碼
//
// 回傳:
//
//	int: 實際寫出的狀態碼
func writeError(w http.ResponseWriter, err error) int {
	status, message := statusFor(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, errorResponse(message, err.Error()))
	return status
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return http.StatusServiceUnavailable, "service temporarily unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	case errors.Is(err, context.Canceled):
		// nginx 慣例: client closed request
		return 499, "request canceled"
	case errors.Is(err, domain.ErrDuplicate):
		return http.StatusConflict, "already exists"
	}
	switch domain.Classify(err) {
	case "not_found":
		return http.StatusNotFound, "not found"
	case "invalid_operation":
		return http.StatusBadRequest, "invalid operation"
	case "invalid_amount":
		return http.StatusBadRequest, "invalid amount"
	case "insufficient_funds":
		return http.StatusUnprocessableEntity, "insufficient funds"
	case "transient":
		return http.StatusServiceUnavailable, "service temporarily unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
