package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/pkg/ledgerrpc"
	"github.com/JoeShih716/go-bank-ledger/pkg/logging"
	"github.com/JoeShih716/go-bank-ledger/pkg/resilience"
)

// GrpcServer 實作 ledger.v1.LedgerService
type GrpcServer struct {
	core     *usecase.CoreUseCase
	executor *resilience.Executor
	logger   *logging.Logger
}

// NewGrpcServer 建立 gRPC adapter
//
// 參數:
//
//	core: 核心業務邏輯
//	executor: 斷路器 + 重試，nil 時直接呼叫
//	logger: nil 時不輸出
func NewGrpcServer(core *usecase.CoreUseCase, executor *resilience.Executor, logger *logging.Logger) *GrpcServer {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &GrpcServer{core: core, executor: executor, logger: logger.Named("grpc")}
}

func (s *GrpcServer) Transfer(ctx context.Context, req *ledgerrpc.TransferRequest) (*ledgerrpc.PostResponse, error) {
	tran, err := call(ctx, s.executor, "transfer", func(ctx context.Context) (*domain.Transaction, error) {
		return s.core.Transfer(ctx, domain.TransferRequest{
			SenderAccountID:   req.SenderAccountID,
			ReceiverAccountID: req.ReceiverAccountID,
			TransactionTypeID: req.TransactionTypeID,
			Amount:            req.Amount,
			Description:       req.Description,
		})
	})
	return s.postResponse(ctx, tran, err)
}

func (s *GrpcServer) Withdraw(ctx context.Context, req *ledgerrpc.WithdrawRequest) (*ledgerrpc.PostResponse, error) {
	tran, err := call(ctx, s.executor, "withdraw", func(ctx context.Context) (*domain.Transaction, error) {
		return s.core.Withdraw(ctx, domain.WithdrawRequest{
			SenderAccountID:   req.SenderAccountID,
			TransactionTypeID: req.TransactionTypeID,
			Amount:            req.Amount,
			Description:       req.Description,
		})
	})
	return s.postResponse(ctx, tran, err)
}

// postResponse 業務拒絕回傳 Success=false (Soft Failure)，系統錯誤回傳 gRPC status
func (s *GrpcServer) postResponse(ctx context.Context, tran *domain.Transaction, err error) (*ledgerrpc.PostResponse, error) {
	if err != nil {
		if domain.IsRejection(err) {
			return &ledgerrpc.PostResponse{
				Success: false,
				Code:    domain.Classify(err),
				Message: err.Error(),
			}, nil
		}
		return nil, toStatus(err)
	}

	resp := &ledgerrpc.PostResponse{Success: true, Transaction: toTransaction(tran)}
	// 餘額為 best effort，讀取失敗不影響已提交的交易
	if balance, err := s.core.GetBalance(ctx, tran.SenderAccountID); err == nil {
		resp.SenderBalance = domain.FormatAmount(balance)
	} else {
		s.logger.Warn("failed to read balance after commit",
			zap.Int64("account_id", tran.SenderAccountID), zap.Error(err))
	}
	return resp, nil
}

func (s *GrpcServer) GetBalance(ctx context.Context, req *ledgerrpc.GetBalanceRequest) (*ledgerrpc.GetBalanceResponse, error) {
	balance, err := call(ctx, s.executor, "get_balance", func(ctx context.Context) (decimal.Decimal, error) {
		return s.core.GetBalance(ctx, req.AccountID)
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &ledgerrpc.GetBalanceResponse{AccountID: req.AccountID, Balance: domain.FormatAmount(balance)}, nil
}

func (s *GrpcServer) GetTransaction(ctx context.Context, req *ledgerrpc.GetTransactionRequest) (*ledgerrpc.GetTransactionResponse, error) {
	tran, err := call(ctx, s.executor, "get_transaction", func(ctx context.Context) (*domain.Transaction, error) {
		return s.core.GetTransaction(ctx, req.TransactionID)
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &ledgerrpc.GetTransactionResponse{Transaction: toTransaction(tran)}, nil
}

func call[T any](ctx context.Context, executor *resilience.Executor, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	if executor == nil {
		return fn(ctx)
	}
	return resilience.Execute(ctx, executor, op, fn)
}

// toStatus 將 domain 錯誤轉為 gRPC status
func toStatus(err error) error {
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, domain.ErrDuplicate):
		return status.Error(codes.AlreadyExists, err.Error())
	}
	switch domain.Classify(err) {
	case "not_found":
		return status.Error(codes.NotFound, err.Error())
	case "invalid_operation", "invalid_amount":
		return status.Error(codes.InvalidArgument, err.Error())
	case "insufficient_funds":
		return status.Error(codes.FailedPrecondition, err.Error())
	case "transient":
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func toTransaction(t *domain.Transaction) *ledgerrpc.Transaction {
	return &ledgerrpc.Transaction{
		ID:                t.ID,
		Reference:         t.Reference.String(),
		SenderAccountID:   t.SenderAccountID,
		ReceiverAccountID: t.ReceiverAccountID,
		TransactionTypeID: t.TransactionTypeID,
		Amount:            domain.FormatAmount(t.Amount),
		Timestamp:         t.Timestamp.UTC().Format(time.RFC3339Nano),
		Description:       t.Description,
	}
}

var _ ledgerrpc.LedgerServiceServer = (*GrpcServer)(nil)
