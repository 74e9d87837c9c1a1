package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/JoeShih716/go-bank-ledger/pkg/logging"
	"github.com/JoeShih716/go-bank-ledger/pkg/metrics"
)

// NewRouter 註冊所有路由與 middleware
//
// 參數:
//
//	h: API handler
//	metricsHandler: /metrics 的 handler，nil 時不註冊
//	collector: HTTP 指標，nil 時不記錄
//	logger: access log
func NewRouter(h *Handler, metricsHandler http.Handler, collector metrics.Collector, logger *logging.Logger) *mux.Router {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}

	r := mux.NewRouter()
	r.Use(requestIDMiddleware(), observeMiddleware(logger.Named("http"), collector))

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/transactions/transfer", h.Transfer).Methods(http.MethodPost)
	api.HandleFunc("/transactions/withdraw", h.Withdraw).Methods(http.MethodPost)
	api.HandleFunc("/transactions/{id:[0-9]+}", h.GetTransaction).Methods(http.MethodGet)
	api.HandleFunc("/transactions", h.ListTransactions).Methods(http.MethodGet)

	api.HandleFunc("/clients", h.CreateClient).Methods(http.MethodPost)
	api.HandleFunc("/clients", h.ListClients).Methods(http.MethodGet)
	api.HandleFunc("/clients/{id:[0-9]+}", h.GetClient).Methods(http.MethodGet)
	api.HandleFunc("/branches", h.CreateBranch).Methods(http.MethodPost)
	api.HandleFunc("/branches", h.ListBranches).Methods(http.MethodGet)
	api.HandleFunc("/branches/{id:[0-9]+}", h.GetBranch).Methods(http.MethodGet)
	api.HandleFunc("/account-types", h.CreateAccountType).Methods(http.MethodPost)
	api.HandleFunc("/account-types", h.ListAccountTypes).Methods(http.MethodGet)
	api.HandleFunc("/account-types/{id:[0-9]+}", h.GetAccountType).Methods(http.MethodGet)
	api.HandleFunc("/transaction-types", h.CreateTransactionType).Methods(http.MethodPost)
	api.HandleFunc("/transaction-types", h.ListTransactionTypes).Methods(http.MethodGet)
	api.HandleFunc("/transaction-types/{id:[0-9]+}", h.GetTransactionType).Methods(http.MethodGet)

	api.HandleFunc("/accounts", h.OpenAccount).Methods(http.MethodPost)
	api.HandleFunc("/accounts", h.ListAccounts).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id:[0-9]+}", h.GetAccount).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id:[0-9]+}", h.CloseAccount).Methods(http.MethodDelete)

	api.HandleFunc("/report", h.Report).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse("route not found"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse("method not allowed"))
	})
	return r
}
