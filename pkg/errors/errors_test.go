package errors

import (
	"errors"
	"testing"
)

func TestNewAndError(t *testing.T) {
	err := New(CommonNotFound, "thing not found", nil)
	if err.Error() != "thing not found" {
		t.Errorf("unexpected message: %q", err.Error())
	}

	cause := errors.New("underlying")
	wrapped := Wrap(CommonInternal, cause, "operation failed")
	if wrapped.Unwrap() != cause {
		t.Errorf("expected Unwrap to return the cause")
	}
	if wrapped.Error() != "operation failed: underlying" {
		t.Errorf("unexpected message: %q", wrapped.Error())
	}
}

func TestAddContext(t *testing.T) {
	err := New(CommonValidation, "bad value", nil).
		AddContext("field", "email").
		AddContext("value", "not-an-email")

	if !err.HasContext("field") {
		t.Fatal("expected field context to be set")
	}
	if err.GetContext("field") != "email" {
		t.Errorf("expected field=email, got %v", err.GetContext("field"))
	}
	if len(err.GetContextKeys()) != 2 {
		t.Errorf("expected 2 context keys, got %d", len(err.GetContextKeys()))
	}
}

func TestWithCause(t *testing.T) {
	cause := errors.New("boom")
	err := New(CommonTimeout, "all attempts exhausted", nil).WithCause(cause)
	if err.Cause != cause {
		t.Error("expected WithCause to set Cause")
	}
}

func TestIsAndGetCode(t *testing.T) {
	err := New(CommonConflict, "conflict", nil)
	if !Is(err) {
		t.Error("expected Is to report true for an *Error")
	}
	if Is(errors.New("plain")) {
		t.Error("expected Is to report false for a plain error")
	}
	if GetCode(err) != "common.conflict" {
		t.Errorf("unexpected code: %q", GetCode(err))
	}
	if GetCode(errors.New("plain")) != "" {
		t.Error("expected empty code for a plain error")
	}
}

func TestFormatForLog(t *testing.T) {
	err := New(CommonNotFound, "table missing", errors.New("fs error")).
		AddContext("table", "orders")
	formatted := FormatForLog(err)

	if formatted == "" {
		t.Fatal("expected non-empty formatted string")
	}
	// Must not panic and must not be called with a literal nil interface
	// anywhere in this repo; that is a separate contract this test does not
	// exercise since FormatForLog(nil) panics (it calls Error on a nil
	// interface).
}

func TestMustNewCodeValidatesFormat(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected MustNewCode to panic on an invalid code")
		}
	}()
	MustNewCode("NotLowercase")
}

func TestCodePackageAndName(t *testing.T) {
	code := MustNewCode("syncengine.cancelled")
	if code.Package() != "syncengine" {
		t.Errorf("expected package 'syncengine', got %q", code.Package())
	}
	if code.Name() != "cancelled" {
		t.Errorf("expected name 'cancelled', got %q", code.Name())
	}
}

func TestRetryableCodeClassification(t *testing.T) {
	plain := MustNewCode("syncengine.delta_too_large")
	if plain.Retryable() {
		t.Error("expected a code built with MustNewCode to default to non-retryable")
	}

	retryable := MustNewRetryableCode("syncengine.source_query_failed")
	if !retryable.Retryable() {
		t.Error("expected a code built with MustNewRetryableCode to be retryable")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(errors.New("plain, unclassified error")) {
		t.Error("expected a plain error to default to retryable")
	}
	if IsRetryable(New(CommonValidation, "bad input", nil)) {
		t.Error("expected a non-retryable code to report not retryable")
	}
	if !IsRetryable(New(CommonTimeout, "deadline exceeded", nil)) {
		t.Error("expected CommonTimeout to report retryable")
	}
}
