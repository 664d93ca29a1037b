package validation

import (
	"errors"
	"strings"
	"testing"
	"time"
)

type loginBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func TestStruct(t *testing.T) {
	if err := Struct(loginBody{Email: "a@b.io", Password: "secret1"}); err != nil {
		t.Errorf("Struct() error = %v", err)
	}
	if err := Struct(loginBody{Email: "nope"}); err == nil {
		t.Error("Struct() expected error for invalid body")
	}
}

func TestTranslateErrors_UsesJSONNames(t *testing.T) {
	err := Struct(loginBody{Email: "nope", Password: "123"})
	fields := TranslateErrors(err)

	if _, ok := fields["email"]; !ok {
		t.Errorf("TranslateErrors() = %v; want email key", fields)
	}
	if msg := fields["password"]; !strings.Contains(msg, "6") {
		t.Errorf("password message = %q; want min length mentioned", msg)
	}
}

func TestTranslateErrors_NonValidationError(t *testing.T) {
	fields := TranslateErrors(errors.New("unexpected EOF"))
	if fields["detail"] != "unexpected EOF" {
		t.Errorf("TranslateErrors() = %v", fields)
	}
}

func TestMessage(t *testing.T) {
	msg := Message(Struct(loginBody{}))
	if !strings.HasPrefix(msg, "email") || !strings.Contains(msg, "; password") {
		t.Errorf("Message() = %q; want email then password", msg)
	}
}

type timedBody struct {
	Duration time.Duration `json:"duration" validate:"mindur=1s"`
}

func TestMinDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want bool
	}{
		{0, false},
		{999 * time.Millisecond, false},
		{time.Second, true},
		{3 * time.Hour, true},
	}
	for _, tt := range tests {
		err := Struct(timedBody{Duration: tt.d})
		if (err == nil) != tt.want {
			t.Errorf("Struct(%v) error = %v; want valid %t", tt.d, err, tt.want)
		}
	}

	msg := Message(Struct(timedBody{}))
	if msg != "duration must be at least 1s" {
		t.Errorf("Message() = %q; want duration must be at least 1s", msg)
	}
}
