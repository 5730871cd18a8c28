package errors

import (
	"fmt"
	"strings"
)

// Common error constructors for quick use. Each wraps New with a common code
// and no cause; callers that have an underlying error should use New or Wrap
// directly so the cause is preserved.

func Internal(message string) *Error {
	return New(CommonInternal, message, nil)
}

func NotFound(message string) *Error {
	return New(CommonNotFound, message, nil)
}

func Validation(message string) *Error {
	return New(CommonValidation, message, nil)
}

func Timeout(message string) *Error {
	return New(CommonTimeout, message, nil)
}

func Unauthorized(message string) *Error {
	return New(CommonUnauthorized, message, nil)
}

func Forbidden(message string) *Error {
	return New(CommonForbidden, message, nil)
}

func Conflict(message string) *Error {
	return New(CommonConflict, message, nil)
}

func Unsupported(message string) *Error {
	return New(CommonUnsupported, message, nil)
}

func InvalidInput(message string) *Error {
	return New(CommonInvalidInput, message, nil)
}

func AlreadyExists(message string) *Error {
	return New(CommonAlreadyExists, message, nil)
}

// Is reports whether err is our Error type.
func Is(err error) bool {
	_, ok := err.(*Error)
	return ok
}

// GetContext extracts the full context map from err, or nil if err isn't
// our Error type or carries no context.
func GetContext(err error) map[string]any {
	e, ok := err.(*Error)
	if !ok {
		return nil
	}
	keys := e.GetContextKeys()
	if len(keys) == 0 {
		return nil
	}
	ctx := make(map[string]any, len(keys))
	for _, k := range keys {
		ctx[k] = e.GetContext(k)
	}
	return ctx
}

// GetCode returns err's code string, or "" if err isn't our Error type.
func GetCode(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Code.String()
	}
	return ""
}

// IsRetryable reports whether a retry loop should attempt err's operation
// again. An err that isn't our Error type carries no classification, so it
// defaults to retryable rather than risk giving up on a transient failure a
// caller never got the chance to tag.
func IsRetryable(err error) bool {
	e, ok := err.(*Error)
	if !ok {
		return true
	}
	return e.Retryable()
}

// FormatForLog renders err as a single-line, field-ordered string suitable
// for a log sink that doesn't understand structured errors.
func FormatForLog(err error) string {
	e, ok := err.(*Error)
	if !ok {
		return err.Error()
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	parts = append(parts, fmt.Sprintf("message=%s", e.Message))

	if keys := e.GetContextKeys(); len(keys) > 0 {
		var contextParts []string
		for _, k := range keys {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, e.GetContext(k)))
		}
		parts = append(parts, fmt.Sprintf("context=[%s]", strings.Join(contextParts, " ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}

	return strings.Join(parts, " ")
}
