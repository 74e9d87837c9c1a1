package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/pkg/logging"
)

var (
	accountTypes = []struct{ name, description string }{
		{"Checking", "Standard checking account"},
		{"Savings", "High-interest savings account"},
		{"Business", "Business checking account"},
		{"Premium", "Premium account with benefits"},
		{"Student", "Student account with low fees"},
		{"Investment", "Investment account"},
		{"Retirement", "Retirement savings account"},
	}
	transactionTypes = []string{"Transfer", "Deposit", "Withdrawal", "Payment", "Fee", "Refund", "Interest", "Cashback"}

	cities = []string{
		"New York", "Los Angeles", "Chicago", "Houston", "Phoenix",
		"Philadelphia", "San Antonio", "San Diego", "Dallas", "San Jose",
		"Austin", "Jacksonville", "Fort Worth", "Columbus", "San Francisco",
		"Charlotte", "Indianapolis", "Seattle", "Denver", "Washington",
		"Boston", "Nashville", "El Paso", "Detroit", "Memphis",
	}
	firstNames = []string{
		"John", "Jane", "Mike", "Emily", "David", "Sarah", "Chris", "Anna",
		"Tom", "Lisa", "Alex", "Maria", "Peter", "Laura", "James", "Emma",
	}
	lastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller",
		"Davis", "Rodriguez", "Martinez", "Wilson", "Anderson", "Taylor", "Moore",
	}
)

// Options 產生資料的數量
type Options struct {
	Clients      int
	Accounts     int
	Branches     int
	Transactions int
	// Concurrency 同時送出的交易數
	Concurrency int
	// Seed 亂數種子，相同種子產生相同的資料
	Seed uint64
}

// DefaultOptions 對應原本 populate 指令的預設值
func DefaultOptions() Options {
	return Options{
		Clients:      10000,
		Accounts:     10000,
		Branches:     100,
		Transactions: 10000,
		Concurrency:  32,
		Seed:         1,
	}
}

// Result 產生結果
type Result struct {
	Clients      int
	Accounts     int
	// OpeningTotal 所有帳戶期初餘額合計
	OpeningTotal decimal.Decimal
	Posted       int64
	Rejected     int64
}

// Populate 透過 CoreUseCase 建立參考資料、帳戶與交易
//
// 交易走正常的轉帳/扣款流程，餘額不足等業務拒絕只計數不中斷
//
// 參數:
//
//	ctx: 取消時停止
//	core: 核心業務邏輯
//	opts: 數量設定
//	logger: 進度輸出
//
// 回傳:
//
//	Result: 實際建立的數量
//	error: 非業務拒絕的錯誤
func Populate(ctx context.Context, core *usecase.CoreUseCase, opts Options, logger *logging.Logger) (Result, error) {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	logger = logger.Named("seed")
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	var res Result

	accountTypeIDs := make([]int64, 0, len(accountTypes))
	for _, t := range accountTypes {
		at := &domain.AccountType{TypeName: t.name, Description: t.description}
		if err := core.CreateAccountType(ctx, at); err != nil {
			return res, fmt.Errorf("create account type %s: %w", t.name, err)
		}
		accountTypeIDs = append(accountTypeIDs, at.ID)
	}
	transactionTypeIDs := make([]int64, 0, len(transactionTypes))
	for _, name := range transactionTypes {
		tt := &domain.TransactionType{TypeName: name}
		if err := core.CreateTransactionType(ctx, tt); err != nil {
			return res, fmt.Errorf("create transaction type %s: %w", name, err)
		}
		transactionTypeIDs = append(transactionTypeIDs, tt.ID)
	}

	branchIDs := make([]int64, 0, opts.Branches)
	for i := 1; i <= opts.Branches; i++ {
		city := pick(rng, cities)
		b := &domain.Branch{BranchName: fmt.Sprintf("%s Branch %d", city, i), City: city, Country: "USA"}
		if err := core.CreateBranch(ctx, b); err != nil {
			return res, fmt.Errorf("create branch: %w", err)
		}
		branchIDs = append(branchIDs, b.ID)
	}
	logger.Info("reference data created",
		zap.Int("account_types", len(accountTypeIDs)),
		zap.Int("transaction_types", len(transactionTypeIDs)),
		zap.Int("branches", len(branchIDs)))

	clientIDs := make([]int64, 0, opts.Clients)
	for i := 1; i <= opts.Clients; i++ {
		c := &domain.Client{
			FullName: fmt.Sprintf("%s %s %d", pick(rng, firstNames), pick(rng, lastNames), i),
			Email:    fmt.Sprintf("client%d@bank.com", i),
			Phone:    fmt.Sprintf("+1%d", 2000000000+rng.Int64N(8000000000)),
		}
		if err := core.CreateClient(ctx, c); err != nil {
			return res, fmt.Errorf("create client %d: %w", i, err)
		}
		clientIDs = append(clientIDs, c.ID)
	}
	res.Clients = len(clientIDs)
	logger.Info("clients created", zap.Int("count", res.Clients))

	if len(clientIDs) == 0 || len(branchIDs) == 0 {
		return res, nil
	}
	accountIDs := make([]int64, 0, opts.Accounts)
	res.OpeningTotal = decimal.Zero
	for i := 0; i < opts.Accounts; i++ {
		a, err := core.OpenAccount(ctx, domain.OpenAccountRequest{
			ClientID:       pick(rng, clientIDs),
			AccountTypeID:  pick(rng, accountTypeIDs),
			BranchID:       pick(rng, branchIDs),
			OpeningBalance: cents(rng, 10000, 5000000),
		})
		if err != nil {
			return res, fmt.Errorf("open account: %w", err)
		}
		accountIDs = append(accountIDs, a.ID)
		res.OpeningTotal = res.OpeningTotal.Add(a.Balance)
	}
	res.Accounts = len(accountIDs)
	logger.Info("accounts created", zap.Int("count", res.Accounts))

	if len(accountIDs) == 0 {
		return res, nil
	}
	// 先依序產生計畫，讓相同種子得到相同的交易內容
	plans := make([]plan, 0, opts.Transactions)
	for i := 0; i < opts.Transactions; i++ {
		p := plan{
			sender:      pick(rng, accountIDs),
			typeID:      pick(rng, transactionTypeIDs),
			amount:      cents(rng, 1000, 500000),
			description: fmt.Sprintf("Transaction %d", i+1),
		}
		// 約 20% 為單邊扣款
		if rng.Float64() > 0.2 {
			p.receiver = pick(rng, accountIDs)
		}
		plans = append(plans, p)
	}

	var posted, rejected atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Concurrency, 1))
	for _, p := range plans {
		g.Go(func() error {
			err := p.post(gctx, core)
			switch {
			case err == nil:
				posted.Add(1)
			case domain.IsRejection(err):
				rejected.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	err := g.Wait()
	res.Posted, res.Rejected = posted.Load(), rejected.Load()
	logger.Info("transactions posted", zap.Int64("posted", res.Posted), zap.Int64("rejected", res.Rejected))
	return res, err
}

type plan struct {
	sender      int64
	receiver    int64
	typeID      int64
	amount      string
	description string
}

// post receiver 為 0 或與 sender 相同時改為單邊扣款
func (p plan) post(ctx context.Context, core *usecase.CoreUseCase) error {
	if p.receiver == 0 || p.receiver == p.sender {
		_, err := core.Withdraw(ctx, domain.WithdrawRequest{
			SenderAccountID:   p.sender,
			TransactionTypeID: p.typeID,
			Amount:            p.amount,
			Description:       p.description,
		})
		return err
	}
	_, err := core.Transfer(ctx, domain.TransferRequest{
		SenderAccountID:   p.sender,
		ReceiverAccountID: p.receiver,
		TransactionTypeID: p.typeID,
		Amount:            p.amount,
		Description:       p.description,
	})
	return err
}

func pick[T any](rng *rand.Rand, items []T) T {
	return items[rng.IntN(len(items))]
}

// cents 產生 [lo, hi] 分之間的金額字串
func cents(rng *rand.Rand, lo, hi int64) string {
	return domain.FormatAmount(decimal.New(lo+rng.Int64N(hi-lo+1), -2))
}
