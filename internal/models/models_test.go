package models

import (
	"encoding/json"
	"testing"
)

func TestAmountJSON(t *testing.T) {
	cases := []struct {
		in   Amount
		want string
	}{
		{Units(100), "100"},
		{Amount(10150), "101.5"},
		{Amount(5), "0.05"},
		{0, "0"},
	}
	for _, c := range cases {
		b, err := json.Marshal(c.in)
		if err != nil {
			t.Fatal(err)
		}
		if string(b) != c.want {
			t.Fatalf("Marshal(%d)=%s want %s", c.in, b, c.want)
		}
	}

	var a Amount
	if err := json.Unmarshal([]byte("101.5"), &a); err != nil || a != 10150 {
		t.Fatalf("Unmarshal=%d err=%v", a, err)
	}
	if err := json.Unmarshal([]byte("1.005"), &a); err == nil {
		t.Fatal("expected error for sub-minor precision")
	}
	for _, in := range []string{"1e30", "92233720368547758.08", "-92233720368547758.09"} {
		a = 7
		if err := json.Unmarshal([]byte(in), &a); err == nil || a != 7 {
			t.Fatalf("Unmarshal(%s)=%d err=%v, want range error", in, a, err)
		}
	}
	if err := json.Unmarshal([]byte("92233720368547758.07"), &a); err != nil || a != Amount(9223372036854775807) {
		t.Fatalf("max amount=%d err=%v", a, err)
	}
}

func TestAccountValidate(t *testing.T) {
	a := Account{Name: " Rahim ", Phone: "01700000001", Email: " R@Example.com "}
	if err := a.Validate(); err != nil {
		t.Fatal(err)
	}
	if a.Role != RoleUser || a.Status != StatusActive || a.Email != "r@example.com" || a.Name != "Rahim" {
		t.Fatalf("normalized=%+v", a)
	}

	bad := []Account{
		{Name: "R", Phone: "01700000001", Email: "r@x.io"},
		{Name: "Rahim", Phone: "abc", Email: "r@x.io"},
		{Name: "Rahim", Phone: "01700000001", Email: "nope"},
		{Name: "Rahim", Phone: "01700000001", Email: "r@x.io", Balance: -1},
		{Name: "Rahim", Phone: "01700000001", Email: "r@x.io", Status: "frozen"},
	}
	for i, b := range bad {
		if err := b.Validate(); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestPostings(t *testing.T) {
	s := Party{ID: "s"}
	r := Party{ID: "r"}

	send := Transaction{Type: TxnSend, Status: TxnSuccessful, Debited: 10500, Credited: 10000, Sender: s, Receiver: r}
	p := send.Postings()
	if len(p) != 2 || p[0] != (Posting{"s", -10500}) || p[1] != (Posting{"r", 10000}) {
		t.Fatalf("send postings=%v", p)
	}

	cashIn := Transaction{Type: TxnCashIn, Status: TxnSuccessful, Debited: 5000, Credited: 5000, Sender: s, Receiver: r}
	p = cashIn.Postings()
	if p[0] != (Posting{"r", -5000}) || p[1] != (Posting{"s", 5000}) {
		t.Fatalf("cash-in postings=%v", p)
	}

	pending := Transaction{Type: TxnCashIn, Status: TxnPending, Debited: 5000, Credited: 5000, Sender: s, Receiver: r}
	if len(pending.Postings()) != 0 {
		t.Fatal("pending record must not move money")
	}
}
