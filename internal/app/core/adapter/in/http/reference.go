package httpapi

import (
	"context"
	"net/http"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// 客戶、帳戶類型、分行、交易類型的查詢

func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	getByID(h, w, r, "get_client", h.core.GetClient, func(c *domain.Client) clientResponse {
		return clientResponse(*c)
	})
}

func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	listAll(h, w, r, "list_clients", h.core.ListClients, func(c domain.Client) clientResponse {
		return clientResponse(c)
	})
}

func (h *Handler) GetAccountType(w http.ResponseWriter, r *http.Request) {
	getByID(h, w, r, "get_account_type", h.core.GetAccountType, func(t *domain.AccountType) accountTypeResponse {
		return accountTypeResponse(*t)
	})
}

func (h *Handler) ListAccountTypes(w http.ResponseWriter, r *http.Request) {
	listAll(h, w, r, "list_account_types", h.core.ListAccountTypes, func(t domain.AccountType) accountTypeResponse {
		return accountTypeResponse(t)
	})
}

func (h *Handler) GetBranch(w http.ResponseWriter, r *http.Request) {
	getByID(h, w, r, "get_branch", h.core.GetBranch, func(b *domain.Branch) branchResponse {
		return branchResponse(*b)
	})
}

func (h *Handler) ListBranches(w http.ResponseWriter, r *http.Request) {
	listAll(h, w, r, "list_branches", h.core.ListBranches, func(b domain.Branch) branchResponse {
		return branchResponse(b)
	})
}

func (h *Handler) GetTransactionType(w http.ResponseWriter, r *http.Request) {
	getByID(h, w, r, "get_transaction_type", h.core.GetTransactionType, func(t *domain.TransactionType) transactionTypeResponse {
		return transactionTypeResponse(*t)
	})
}

func (h *Handler) ListTransactionTypes(w http.ResponseWriter, r *http.Request) {
	listAll(h, w, r, "list_transaction_types", h.core.ListTransactionTypes, func(t domain.TransactionType) transactionTypeResponse {
		return transactionTypeResponse(t)
	})
}

// getByID 讀取路徑上的 id，經斷路器查詢後以 toResponse 轉成回應
func getByID[T, R any](h *Handler, w http.ResponseWriter, r *http.Request, op string,
	get func(ctx context.Context, id int64) (*T, error), toResponse func(*T) R,
) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	v, err := call(r.Context(), h.executor, op, func(ctx context.Context) (*T, error) {
		return get(ctx, id)
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse("ok", toResponse(v)))
}

func listAll[T, R any](h *Handler, w http.ResponseWriter, r *http.Request, op string,
	list func(ctx context.Context) ([]T, error), toResponse func(T) R,
) {
	items, err := call(r.Context(), h.executor, op, list)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]R, 0, len(items))
	for _, item := range items {
		out = append(out, toResponse(item))
	}
	writeJSON(w, http.StatusOK, successResponse("ok", out))
}
