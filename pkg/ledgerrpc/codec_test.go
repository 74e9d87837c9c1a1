package ledgerrpc

import (
	"testing"

	"google.golang.org/grpc/encoding"
)

func TestCodecRegistered(t *testing.T) {
	codec := encoding.GetCodec(CodecName)
	if codec == nil {
		t.Fatal("json codec not registered")
	}
	data, err := codec.Marshal(&TransferRequest{SenderAccountID: 1, ReceiverAccountID: 2, TransactionTypeID: 3, Amount: "500.00"})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"sender_account_id":1,"receiver_account_id":2,"transaction_type_id":3,"amount":"500.00"}`
	if string(data) != want {
		t.Fatalf("got %s", data)
	}

	var out TransferRequest
	if err := codec.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Amount != "500.00" || out.ReceiverAccountID != 2 {
		t.Fatalf("decoded %+v", out)
	}
}
