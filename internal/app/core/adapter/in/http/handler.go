package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/pkg/logging"
	"github.com/JoeShih716/go-bank-ledger/pkg/resilience"
)

const maxBodyBytes = 1 << 20

// Handler 將 HTTP 請求轉為 CoreUseCase 呼叫
type Handler struct {
	core     *usecase.CoreUseCase
	executor *resilience.Executor
	logger   *logging.Logger
}

// NewHandler 建立 Handler
//
// 參數:
//
//	core: 核心業務邏輯
//	executor: 斷路器 + 重試，nil 時直接呼叫
//	logger: nil 時不輸出
func NewHandler(core *usecase.CoreUseCase, executor *resilience.Executor, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Handler{core: core, executor: executor, logger: logger.Named("http")}
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !h.decode(w, r, &req) {
		return
	}
	tran, err := call(r.Context(), h.executor, "transfer", func(ctx context.Context) (*domain.Transaction, error) {
		return h.core.Transfer(ctx, domain.TransferRequest{
			SenderAccountID:   req.SenderAccountID,
			ReceiverAccountID: req.ReceiverAccountID,
			TransactionTypeID: req.TransactionTypeID,
			Amount:            string(req.Amount),
			Description:       req.Description,
		})
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, successResponse("transfer completed", toTransactionResponse(tran)))
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if !h.decode(w, r, &req) {
		return
	}
	tran, err := call(r.Context(), h.executor, "withdraw", func(ctx context.Context) (*domain.Transaction, error) {
		return h.core.Withdraw(ctx, domain.WithdrawRequest{
			SenderAccountID:   req.SenderAccountID,
			TransactionTypeID: req.TransactionTypeID,
			Amount:            string(req.Amount),
			Description:       req.Description,
		})
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, successResponse("withdrawal completed", toTransactionResponse(tran)))
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	tran, err := call(r.Context(), h.executor, "get_transaction", func(ctx context.Context) (*domain.Transaction, error) {
		return h.core.GetTransaction(ctx, id)
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse("ok", toTransactionResponse(tran)))
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	var filter domain.TransactionFilter
	var err error
	if filter.AccountID, err = queryInt(r, "account_id"); err != nil {
		h.badRequest(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	filter.Limit = int(limit)

	list, err := call(r.Context(), h.executor, "list_transactions", func(ctx context.Context) ([]domain.Transaction, error) {
		return h.core.ListTransactions(ctx, filter)
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]transactionResponse, 0, len(list))
	for i := range list {
		out = append(out, toTransactionResponse(&list[i]))
	}
	writeJSON(w, http.StatusOK, successResponse("ok", out))
}

func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if !h.decode(w, r, &req) {
		return
	}
	client := &domain.Client{FullName: req.FullName, Email: req.Email, Phone: req.Phone}
	if err := h.core.CreateClient(r.Context(), client); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, successResponse("client created", clientResponse(*client)))
}

func (h *Handler) CreateAccountType(w http.ResponseWriter, r *http.Request) {
	var req createAccountTypeRequest
	if !h.decode(w, r, &req) {
		return
	}
	accountType := &domain.AccountType{TypeName: req.TypeName, Description: req.Description}
	if err := h.core.CreateAccountType(r.Context(), accountType); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, successResponse("account type created", accountTypeResponse(*accountType)))
}

func (h *Handler) CreateBranch(w http.ResponseWriter, r *http.Request) {
	var req createBranchRequest
	if !h.decode(w, r, &req) {
		return
	}
	branch := &domain.Branch{BranchName: req.BranchName, City: req.City, Country: req.Country}
	if err := h.core.CreateBranch(r.Context(), branch); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, successResponse("branch created", branchResponse(*branch)))
}

func (h *Handler) CreateTransactionType(w http.ResponseWriter, r *http.Request) {
	var req createTransactionTypeRequest
	if !h.decode(w, r, &req) {
		return
	}
	transactionType := &domain.TransactionType{TypeName: req.TypeName}
	if err := h.core.CreateTransactionType(r.Context(), transactionType); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, successResponse("transaction type created", transactionTypeResponse(*transactionType)))
}

func (h *Handler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var req openAccountRequest
	if !h.decode(w, r, &req) {
		return
	}
	account, err := h.core.OpenAccount(r.Context(), domain.OpenAccountRequest{
		ClientID:       req.ClientID,
		AccountTypeID:  req.AccountTypeID,
		BranchID:       req.BranchID,
		OpeningBalance: string(req.Balance),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, successResponse("account opened", toAccountResponse(account)))
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	account, err := call(r.Context(), h.executor, "get_account", func(ctx context.Context) (*domain.Account, error) {
		return h.core.GetAccount(ctx, id)
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse("ok", toAccountResponse(account)))
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	clientID, err := queryInt(r, "client_id")
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	list, err := h.core.ListAccounts(r.Context(), domain.AccountFilter{ClientID: clientID})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]accountResponse, 0, len(list))
	for i := range list {
		out = append(out, toAccountResponse(&list[i]))
	}
	writeJSON(w, http.StatusOK, successResponse("ok", out))
}

func (h *Handler) CloseAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.core.CloseAccount(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse("account closed", map[string]int64{"id": id}))
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	summary, err := call(r.Context(), h.executor, "report", func(ctx context.Context) (*domain.Summary, error) {
		return h.core.Report(ctx)
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse("ok", toSummaryResponse(summary)))
}

// Health 回報服務與斷路器狀態
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	data := map[string]string{"status": "ok"}
	if h.executor != nil {
		data["circuit"] = h.executor.State().String()
	}
	writeJSON(w, http.StatusOK, successResponse("healthy", data))
}

// decode 解析 JSON body，失敗時直接回 400
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.badRequest(w, r, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(w, r, fmt.Errorf("invalid id %q", mux.Vars(r)["id"]))
		return 0, false
	}
	return id, true
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Info("bad request",
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	writeJSON(w, http.StatusBadRequest, errorResponse("validation failed", err.Error()))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := writeError(w, err)
	fields := []zap.Field{
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields...)
	} else {
		h.logger.Debug("request rejected", fields...)
	}
}

// queryInt 未提供時回傳 0
func queryInt(r *http.Request, key string) (int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return v, nil
}

func call[T any](ctx context.Context, executor *resilience.Executor, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	if executor == nil {
		return fn(ctx)
	}
	return resilience.Execute(ctx, executor, op, fn)
}
