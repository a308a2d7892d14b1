package auth

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Hash("s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Verify("s3cret", hash); err != nil {
		t.Fatalf("Verify(correct)=%v", err)
	}
	if err := h.Verify("wrong", hash); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("Verify(wrong)=%v", err)
	}
	if err := h.Verify("s3cret", "not-a-hash"); err == nil || errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("Verify(bad hash)=%v", err)
	}
	if NewHasher(0).Cost != bcrypt.DefaultCost {
		t.Fatal("cost below minimum should fall back to default")
	}
}

func TestTokenPairRoundTrip(t *testing.T) {
	tm := NewTokenManager("acc", "ref", "tpay", time.Minute, time.Hour)
	pair, err := tm.GeneratePair("u-1", "agent")
	if err != nil {
		t.Fatal(err)
	}

	c, err := tm.ParseAccess(pair.AccessToken)
	if err != nil || c.UserID != "u-1" || c.Role != "agent" {
		t.Fatalf("ParseAccess=%+v err=%v", c, err)
	}
	if _, err := tm.ParseAccess(pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh token accepted as access: %v", err)
	}
	c, isRefresh, err := tm.ParseAny(pair.RefreshToken)
	if err != nil || !isRefresh || c.UserID != "u-1" {
		t.Fatalf("ParseAny(refresh)=%+v %v %v", c, isRefresh, err)
	}
}

func TestTokenRejects(t *testing.T) {
	tm := NewTokenManager("acc", "ref", "tpay", time.Minute, time.Hour)
	other := NewTokenManager("other", "ref", "tpay", time.Minute, time.Hour)
	wrongIssuer := NewTokenManager("acc", "ref", "someone-else", time.Minute, time.Hour)
	expired := NewTokenManager("acc", "ref", "tpay", -time.Minute, time.Hour)

	for name, src := range map[string]*TokenManager{"secret": other, "issuer": wrongIssuer, "expired": expired} {
		pair, err := src.GeneratePair("u-1", "user")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := tm.ParseAccess(pair.AccessToken); err == nil {
			t.Fatalf("%s: token accepted", name)
		}
	}
	if _, _, err := tm.ParseAny("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage: %v", err)
	}
}
