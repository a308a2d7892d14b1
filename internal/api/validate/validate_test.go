package validate

import (
	"errors"
	"testing"
)

type sample struct {
	Phone  string `json:"phone" validate:"required,phone"`
	Email  string `json:"email" validate:"required,email"`
	Amount int64  `json:"amount" validate:"gt=0"`
	Role   string `json:"role,omitempty" validate:"omitempty,oneof=user agent"`
}

func TestStruct(t *testing.T) {
	if err := Struct(sample{Phone: "01712345678", Email: "a@x.io", Amount: 5, Role: "agent"}); err != nil {
		t.Fatalf("valid sample: %v", err)
	}

	err := Struct(sample{Phone: "abc", Amount: 0, Role: "admin"})
	var errs Errs
	if !errors.As(err, &errs) {
		t.Fatalf("want Errs, got %T %v", err, err)
	}
	got := map[string]string{}
	for _, e := range errs {
		got[e.Field] = e.Msg
	}
	want := map[string]string{
		"phone":  "invalid phone number",
		"email":  "required",
		"amount": "must be > 0",
		"role":   "must be one of: user agent",
	}
	for f, msg := range want {
		if got[f] != msg {
			t.Errorf("%s: got %q want %q", f, got[f], msg)
		}
	}
	if errs.Error() == "" {
		t.Fatal("empty error text")
	}
}
