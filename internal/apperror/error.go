package apperror

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"
)

// AppError is a coded error carrying optional context and cause.
type AppError struct {
	Code      Code      `json:"code"`
	Message   string    `json:"message"`
	Context   string    `json:"context,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	cause     error
	stack     []uintptr
}

// Error implements the error interface
func (e *AppError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Code))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Context != "" {
		sb.WriteString(" (")
		sb.WriteString(e.Context)
		sb.WriteString(")")
	}
	if e.cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.cause.Error())
	}
	return sb.String()
}

// Unwrap implements the errors.Unwrap interface
func (e *AppError) Unwrap() error {
	return e.cause
}

// Is implements errors.Is interface for error comparison.
// Two AppErrors match when their codes match.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Temporary reports whether the failure is upstream and may clear on retry
// or on another endpoint.
func (e *AppError) Temporary() bool {
	c := string(e.Code)
	return strings.HasPrefix(c, "ENDPOINT_") ||
		strings.HasPrefix(c, "RPC_") ||
		strings.Contains(c, "TIMEOUT") ||
		strings.Contains(c, "UNAVAILABLE") ||
		e.Code == CodeCircuitOpen ||
		e.Code == CodeRateLimitExceeded
}

// LogValue renders the error as a slog group.
func (e *AppError) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("code", string(e.Code)),
		slog.String("message", e.Message),
	}
	if e.Context != "" {
		attrs = append(attrs, slog.String("context", e.Context))
	}
	if e.cause != nil {
		attrs = append(attrs, slog.String("cause", e.cause.Error()))
	}
	if e.Code == CodeInternalError && len(e.stack) > 0 {
		attrs = append(attrs, slog.String("stack", e.formatStack()))
	}
	return slog.GroupValue(attrs...)
}

func (e *AppError) formatStack() string {
	var sb strings.Builder
	frames := runtime.CallersFrames(e.stack)
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			sb.WriteString(fmt.Sprintf("\n\t%s:%d %s", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}
	return sb.String()
}

func captureStack() []uintptr {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	return pcs[:n]
}

// New creates a new AppError with the given code and options
func New(code Code, opts ...Option) *AppError {
	err := &AppError{
		Code:      code,
		Message:   messages[code],
		Timestamp: time.Now(),
		stack:     captureStack(),
	}

	for _, opt := range opts {
		opt(err)
	}

	if err.Message == "" {
		err.Message = string(code)
	}

	return err
}

// Option is a functional option for AppError
type Option func(*AppError)

// WithMessage sets a custom message
func WithMessage(message string) Option {
	return func(e *AppError) {
		e.Message = message
	}
}

// WithContext adds context information
func WithContext(context string) Option {
	return func(e *AppError) {
		e.Context = context
	}
}

// WithCause wraps an underlying error
func WithCause(cause error) Option {
	return func(e *AppError) {
		e.cause = cause
	}
}

// Wrap converts err into an AppError. An existing AppError in the chain is
// returned as is, gaining context when it had none.
func Wrap(err error, code Code, context string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		if context != "" && appErr.Context == "" {
			appErr.Context = context
		}
		return appErr
	}

	return New(code, WithContext(context), WithCause(err))
}

// HasCode reports whether err carries code anywhere in its chain.
func HasCode(err error, code Code) bool {
	return errors.Is(err, &AppError{Code: code})
}

// GetCode extracts the error code from an error
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknownError
}

// IsTemporary reports whether err carries a temporary AppError.
func IsTemporary(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Temporary()
}
