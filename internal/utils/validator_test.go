package utils

import (
	"strings"
	"testing"
)

type signup struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

func TestRequestValidator(t *testing.T) {
	v := NewRequestValidator()
	if err := v.Validate(&signup{Email: "a@b.co", Password: "secret1"}); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}
	err := v.Validate(&signup{Email: "nope", Password: "123"})
	if err == nil {
		t.Fatal("invalid input accepted")
	}
	msg := err.Error()
	if !strings.Contains(msg, "Email failed email") || !strings.Contains(msg, "Password failed min=6") {
		t.Fatalf("message = %q", msg)
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := NewLogger("production", "warn"); err != nil {
		t.Fatal(err)
	}
	if _, err := NewLogger("development", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := NewLogger("development", "loud"); err == nil {
		t.Fatal("unknown level accepted")
	}
}
