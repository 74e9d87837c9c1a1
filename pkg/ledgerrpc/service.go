package ledgerrpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName 完整服務名稱
const ServiceName = "ledger.v1.LedgerService"

const (
	methodTransfer       = "/" + ServiceName + "/Transfer"
	methodWithdraw       = "/" + ServiceName + "/Withdraw"
	methodGetBalance     = "/" + ServiceName + "/GetBalance"
	methodGetTransaction = "/" + ServiceName + "/GetTransaction"
)

// LedgerServiceServer 伺服端需實作的介面
type LedgerServiceServer interface {
	Transfer(ctx context.Context, req *TransferRequest) (*PostResponse, error)
	Withdraw(ctx context.Context, req *WithdrawRequest) (*PostResponse, error)
	GetBalance(ctx context.Context, req *GetBalanceRequest) (*GetBalanceResponse, error)
	GetTransaction(ctx context.Context, req *GetTransactionRequest) (*GetTransactionResponse, error)
}

// RegisterLedgerServiceServer 將實作註冊到 gRPC server
func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc ledger.v1.LedgerService 的描述
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Transfer", Handler: transferHandler},
		{MethodName: "Withdraw", Handler: withdrawHandler},
		{MethodName: "GetBalance", Handler: getBalanceHandler},
		{MethodName: "GetTransaction", Handler: getTransactionHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ledger/v1/ledger.json",
}

// unary 處理解碼與攔截器串接
func unary[Req any, Resp any](
	method string,
	call func(srv LedgerServiceServer, ctx context.Context, req *Req) (*Resp, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LedgerServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(LedgerServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var (
	transferHandler = unary(methodTransfer, func(s LedgerServiceServer, ctx context.Context, req *TransferRequest) (*PostResponse, error) {
		return s.Transfer(ctx, req)
	})
	withdrawHandler = unary(methodWithdraw, func(s LedgerServiceServer, ctx context.Context, req *WithdrawRequest) (*PostResponse, error) {
		return s.Withdraw(ctx, req)
	})
	getBalanceHandler = unary(methodGetBalance, func(s LedgerServiceServer, ctx context.Context, req *GetBalanceRequest) (*GetBalanceResponse, error) {
		return s.GetBalance(ctx, req)
	})
	getTransactionHandler = unary(methodGetTransaction, func(s LedgerServiceServer, ctx context.Context, req *GetTransactionRequest) (*GetTransactionResponse, error) {
		return s.GetTransaction(ctx, req)
	})
)

// LedgerServiceClient 客戶端
type LedgerServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewLedgerServiceClient 建立客戶端，每次呼叫都帶上 JSON content-subtype
func NewLedgerServiceClient(cc grpc.ClientConnInterface) *LedgerServiceClient {
	return &LedgerServiceClient{cc: cc}
}

func (c *LedgerServiceClient) Transfer(ctx context.Context, in *TransferRequest, opts ...grpc.CallOption) (*PostResponse, error) {
	out := new(PostResponse)
	if err := c.invoke(ctx, methodTransfer, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerServiceClient) Withdraw(ctx context.Context, in *WithdrawRequest, opts ...grpc.CallOption) (*PostResponse, error) {
	out := new(PostResponse)
	if err := c.invoke(ctx, methodWithdraw, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerServiceClient) GetBalance(ctx context.Context, in *GetBalanceRequest, opts ...grpc.CallOption) (*GetBalanceResponse, error) {
	out := new(GetBalanceResponse)
	if err := c.invoke(ctx, methodGetBalance, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerServiceClient) GetTransaction(ctx context.Context, in *GetTransactionRequest, opts ...grpc.CallOption) (*GetTransactionResponse, error) {
	out := new(GetTransactionResponse)
	if err := c.invoke(ctx, methodGetTransaction, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerServiceClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}
