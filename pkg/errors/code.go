package errors

import (
	"fmt"
	"regexp"
	"strings"
)

// Code represents a validated error code with package prefix, plus whether
// the condition it names is worth retrying. A sync cycle's retry loop
// (syncengine.RetryWithBackoff) burns through its configured attempts on
// every failure unless the code it's looking at says otherwise; a delta too
// large for the configured limit or a column with no Iceberg type mapping
// will fail identically on the second attempt as the first, so those codes
// are marked non-retryable and the loop gives up on the spot instead of
// waiting out the full backoff schedule for nothing.
type Code struct {
	value     string
	retryable bool
}

// Common error codes that can be used across packages
var (
	CommonInternal      = MustNewCode("common.internal")
	CommonNotFound      = MustNewCode("common.not_found")
	CommonValidation    = MustNewCode("common.validation")
	CommonTimeout       = MustNewRetryableCode("common.timeout")
	CommonUnauthorized  = MustNewCode("common.unauthorized")
	CommonForbidden     = MustNewCode("common.forbidden")
	CommonConflict      = MustNewCode("common.conflict")
	CommonUnsupported   = MustNewCode("common.unsupported")
	CommonInvalidInput  = MustNewCode("common.invalid_input")
	CommonAlreadyExists = MustNewCode("common.already_exists")
)

// Validation regex: package.name format
var codeRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*\.[a-z][a-z0-9_]*$`)

// NewCode creates a new validated Code
func NewCode(s string) (Code, error) {
	if !codeRegex.MatchString(s) {
		return Code{}, fmt.Errorf("invalid code format '%s': must be 'package.name' (lowercase, underscores, dots only)", s)
	}

	// Check for common patterns that might indicate typos
	if strings.Contains(s, "error") || strings.Contains(s, "err") {
		return Code{}, fmt.Errorf("invalid code '%s': should not contain 'error' or 'err'", s)
	}

	return Code{value: s}, nil
}

// MustNewCode creates a new Code or panics if invalid
func MustNewCode(s string) Code {
	code, err := NewCode(s)
	if err != nil {
		panic(err)
	}
	return code
}

// NewRetryableCode creates a validated Code marked retryable: a transient
// condition (a dropped connection, a lock timeout) where a later attempt of
// the same operation might succeed.
func NewRetryableCode(s string) (Code, error) {
	c, err := NewCode(s)
	if err != nil {
		return Code{}, err
	}
	c.retryable = true
	return c, nil
}

// MustNewRetryableCode creates a new retryable Code or panics if invalid.
func MustNewRetryableCode(s string) Code {
	code, err := NewRetryableCode(s)
	if err != nil {
		panic(err)
	}
	return code
}

// String returns the string representation of the Code
func (c Code) String() string {
	return c.value
}

// Package returns the package prefix from the code
func (c Code) Package() string {
	if idx := strings.Index(c.value, "."); idx != -1 {
		return c.value[:idx]
	}
	return ""
}

// Name returns the name part from the code
func (c Code) Name() string {
	if idx := strings.Index(c.value, "."); idx != -1 {
		return c.value[idx+1:]
	}
	return c.value
}

// IsValid returns true if the code is properly formatted
func (c Code) IsValid() bool {
	return codeRegex.MatchString(c.value)
}

// Equals checks if two codes are equal
func (c Code) Equals(other Code) bool {
	return c.value == other.value
}

// Retryable reports whether the condition this code names is worth retrying.
func (c Code) Retryable() bool {
	return c.retryable
}
