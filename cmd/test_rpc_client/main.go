package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	grpcpool "github.com/JoeShih716/go-bank-ledger/pkg/grpc"
	"github.com/JoeShih716/go-bank-ledger/pkg/ledgerrpc"
)

// 對兩個帳戶做大量反向並發轉帳，驗證不會死鎖且總額不變
func main() {
	target := flag.String("target", "localhost:50051", "grpc server address")
	accountA := flag.Int64("a", 1, "first account id")
	accountB := flag.Int64("b", 2, "second account id")
	transactionType := flag.Int64("type", 1, "transaction type id")
	total := flag.Int("n", 10000, "number of transfers")
	concurrency := flag.Int("c", 100, "concurrent requests")
	amount := flag.String("amount", "1.00", "amount per transfer")
	flag.Parse()

	pool := grpcpool.NewPool(grpcpool.WithInterceptor(grpcpool.RequestIDInterceptor()))
	defer pool.Close()
	client, err := pool.LedgerClient(*target)
	if err != nil {
		log.Fatalf("did not connect: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	before, err := sum(ctx, client, *accountA, *accountB)
	if err != nil {
		log.Fatalf("read balances: %v", err)
	}

	var ok, rejected, unavailable, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*concurrency)
	start := time.Now()
	for i := 0; i < *total; i++ {
		from, to := *accountA, *accountB
		if i%2 == 1 {
			from, to = to, from
		}
		g.Go(func() error {
			resp, err := client.Transfer(gctx, &ledgerrpc.TransferRequest{
				SenderAccountID:   from,
				ReceiverAccountID: to,
				TransactionTypeID: *transactionType,
				Amount:            *amount,
				Description:       fmt.Sprintf("load test %d", i),
			})
			switch {
			case err == nil && resp.Success:
				ok.Add(1)
			case err == nil:
				rejected.Add(1)
			case status.Code(err) == codes.Unavailable:
				unavailable.Add(1)
			default:
				if failed.Add(1) <= 10 {
					log.Printf("transfer %d failed: %v", i, err)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	elapsed := time.Since(start)

	after, err := sum(ctx, client, *accountA, *accountB)
	if err != nil {
		log.Fatalf("read balances: %v", err)
	}

	fmt.Printf("Completed %d requests in %v\n", *total, elapsed)
	fmt.Printf("TPS: %.2f\n", float64(*total)/elapsed.Seconds())
	fmt.Printf("ok=%d rejected=%d unavailable=%d failed=%d\n", ok.Load(), rejected.Load(), unavailable.Load(), failed.Load())
	fmt.Printf("total balance before=%s after=%s\n", before, after)
	if !before.Equal(after) {
		log.Fatalf("total balance changed")
	}
}

func sum(ctx context.Context, client *ledgerrpc.LedgerServiceClient, ids ...int64) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, id := range ids {
		resp, err := client.GetBalance(ctx, &ledgerrpc.GetBalanceRequest{AccountID: id})
		if err != nil {
			return total, err
		}
		balance, err := decimal.NewFromString(resp.Balance)
		if err != nil {
			return total, fmt.Errorf("parse balance %q: %w", resp.Balance, err)
		}
		total = total.Add(balance)
	}
	return total, nil
}
