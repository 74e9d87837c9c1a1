package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/pkg/ledgerrpc"
	"github.com/JoeShih716/go-bank-ledger/pkg/logging"
	"github.com/JoeShih716/go-bank-ledger/pkg/resilience"
)

type fixture struct {
	client     *ledgerrpc.LedgerServiceClient
	core       *usecase.CoreUseCase
	accountA   int64
	accountB   int64
	transferID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := memory.NewStore(memory.WithLockTimeout(time.Second))
	if err != nil {
		t.Fatalf("memory.NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	core := usecase.NewCoreUseCase(store)

	client := &domain.Client{FullName: "Client One", Email: "client1@bank.com"}
	accountType := &domain.AccountType{TypeName: "Checking"}
	branch := &domain.Branch{BranchName: "Chicago Branch 1"}
	transfer := &domain.TransactionType{TypeName: "Transfer"}
	for _, err := range []error{
		core.CreateClient(ctx, client),
		core.CreateAccountType(ctx, accountType),
		core.CreateBranch(ctx, branch),
		core.CreateTransactionType(ctx, transfer),
	} {
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	open := func(balance string) int64 {
		a, err := core.OpenAccount(ctx, domain.OpenAccountRequest{
			ClientID: client.ID, AccountTypeID: accountType.ID, BranchID: branch.ID, OpeningBalance: balance,
		})
		if err != nil {
			t.Fatalf("OpenAccount: %v", err)
		}
		return a.ID
	}

	cfg := resilience.DefaultConfig()
	cfg.Retryable = domain.IsTransient
	executor := resilience.NewExecutor("test", cfg, nil, nil)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(logging.NewNoOpLogger())))
	ledgerrpc.RegisterLedgerServiceServer(srv, NewGrpcServer(core, executor, nil))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return &fixture{
		client:     ledgerrpc.NewLedgerServiceClient(conn),
		core:       core,
		accountA:   open("3000.00"),
		accountB:   open("1000.00"),
		transferID: transfer.ID,
	}
}

func TestTransfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.client.Transfer(ctx, &ledgerrpc.TransferRequest{
		SenderAccountID:   f.accountA,
		ReceiverAccountID: f.accountB,
		TransactionTypeID: f.transferID,
		Amount:            "500.00",
		Description:       "rent",
	})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if !resp.Success || resp.SenderBalance != "2500.00" {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Transaction == nil || resp.Transaction.ID == 0 || resp.Transaction.Amount != "500.00" {
		t.Fatalf("transaction = %+v", resp.Transaction)
	}

	got, err := f.client.GetTransaction(ctx, &ledgerrpc.GetTransactionRequest{TransactionID: resp.Transaction.ID})
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if got.Transaction.Reference != resp.Transaction.Reference || *got.Transaction.ReceiverAccountID != f.accountB {
		t.Fatalf("GetTransaction = %+v", got.Transaction)
	}

	bal, err := f.client.GetBalance(ctx, &ledgerrpc.GetBalanceRequest{AccountID: f.accountB})
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if bal.Balance != "1500.00" {
		t.Fatalf("receiver balance = %s", bal.Balance)
	}
}

func TestTransferRejectionIsSoftFailure(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		req  *ledgerrpc.TransferRequest
		code string
	}{
		{"insufficient funds", &ledgerrpc.TransferRequest{SenderAccountID: f.accountB, ReceiverAccountID: f.accountA, TransactionTypeID: f.transferID, Amount: "5000.00"}, "insufficient_funds"},
		{"self transfer", &ledgerrpc.TransferRequest{SenderAccountID: f.accountA, ReceiverAccountID: f.accountA, TransactionTypeID: f.transferID, Amount: "1.00"}, "invalid_operation"},
		{"bad amount", &ledgerrpc.TransferRequest{SenderAccountID: f.accountA, ReceiverAccountID: f.accountB, TransactionTypeID: f.transferID, Amount: "1.001"}, "invalid_amount"},
		{"unknown receiver", &ledgerrpc.TransferRequest{SenderAccountID: f.accountA, ReceiverAccountID: 999, TransactionTypeID: f.transferID, Amount: "1.00"}, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := f.client.Transfer(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("Transfer returned status error: %v", err)
			}
			if resp.Success || resp.Code != tt.code || resp.Message == "" {
				t.Fatalf("resp = %+v", resp)
			}
		})
	}

	bal, _ := f.core.GetBalance(context.Background(), f.accountA)
	if domain.FormatAmount(bal) != "3000.00" {
		t.Fatalf("balance changed after rejections: %s", bal)
	}
}

func TestWithdraw(t *testing.T) {
	f := newFixture(t)
	resp, err := f.client.Withdraw(context.Background(), &ledgerrpc.WithdrawRequest{
		SenderAccountID:   f.accountB,
		TransactionTypeID: f.transferID,
		Amount:            "250.50",
	})
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if !resp.Success || resp.SenderBalance != "749.50" || resp.Transaction.ReceiverAccountID != nil {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestGetBalanceNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.client.GetBalance(context.Background(), &ledgerrpc.GetBalanceRequest{AccountID: 404})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("code = %v, err = %v", status.Code(err), err)
	}
}

func TestRequestIDHeader(t *testing.T) {
	f := newFixture(t)

	var header metadata.MD
	ctx := metadata.AppendToOutgoingContext(context.Background(), RequestIDKey, "req-123")
	if _, err := f.client.GetBalance(ctx, &ledgerrpc.GetBalanceRequest{AccountID: f.accountA}, grpc.Header(&header)); err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if got := header.Get(RequestIDKey); len(got) != 1 || got[0] != "req-123" {
		t.Fatalf("request id header = %v", got)
	}

	header = nil
	if _, err := f.client.GetBalance(context.Background(), &ledgerrpc.GetBalanceRequest{AccountID: f.accountA}, grpc.Header(&header)); err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if got := header.Get(RequestIDKey); len(got) != 1 || len(got[0]) != 36 {
		t.Fatalf("generated request id = %v", got)
	}
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{domain.ErrAccountNotFound, codes.NotFound},
		{domain.ErrSelfTransfer, codes.InvalidArgument},
		{fmt.Errorf("insert: %w", domain.ErrDuplicate), codes.AlreadyExists},
		{domain.ErrInvalidAmount, codes.InvalidArgument},
		{domain.ErrInsufficientFunds, codes.FailedPrecondition},
		{domain.ErrLockTimeout, codes.Unavailable},
		{resilience.ErrCircuitOpen, codes.Unavailable},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{context.Canceled, codes.Canceled},
		{errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		if got := status.Code(toStatus(tt.err)); got != tt.want {
			t.Errorf("toStatus(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
