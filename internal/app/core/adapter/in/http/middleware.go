package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-ledger/pkg/logging"
	"github.com/JoeShih716/go-bank-ledger/pkg/metrics"
)

// RequestIDHeader 請求/回應中的 request id 標頭
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestIDFrom 取出 middleware 放入的 request id
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestIDMiddleware 沿用呼叫端的 X-Request-ID，沒有時產生 UUID
func requestIDMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		})
	}
}

// observeMiddleware 記錄 access log 與 HTTP 指標
func observeMiddleware(logger *logging.Logger, collector metrics.Collector) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			srw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(srw, r)

			duration := time.Since(start)
			endpoint := endpointOf(r)
			collector.RecordHTTPRequest(r.Method, endpoint, srw.statusCode, duration)
			logger.Info("http request",
				zap.String("request_id", RequestIDFrom(r.Context())),
				zap.String("method", r.Method),
				zap.String("endpoint", endpoint),
				zap.Int("status", srw.statusCode),
				zap.Duration("duration", duration))
		})
	}
}

// statusResponseWriter 攔截狀態碼
type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// endpointOf 使用路由樣板 (/api/accounts/{id}) 避免指標 label 爆量
func endpointOf(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return "unmatched"
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return "unmatched"
	}
	return tpl
}
