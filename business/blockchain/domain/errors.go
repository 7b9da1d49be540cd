package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/fd1az/dex-spread-monitor/internal/apperror"
	"github.com/fd1az/dex-spread-monitor/internal/circuitbreaker"
)

// TimeoutError is returned when a single upstream call exceeds its bound.
type TimeoutError struct {
	Op       string
	Endpoint string
	After    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s on %s timed out after %s", e.Op, e.Endpoint, e.After)
}

// Timeout satisfies net.Error style checks.
func (e *TimeoutError) Timeout() bool { return true }

// transportHints are substrings of errors raised below the JSON-RPC layer.
var transportHints = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"i/o timeout",
	"eof",
	"too many requests",
	"rate limit",
	"bad gateway",
	"service unavailable",
	"gateway timeout",
}

// IsTransport reports whether err is a transport-class failure, one that
// another endpoint might not exhibit. Contract reverts and decoding errors
// are venue errors and return false.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}

	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || circuitbreaker.IsOpen(err) || apperror.IsTemporary(err) {
		return true
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == 429 || httpErr.StatusCode >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		// -32005 limit exceeded, -32603 internal error on overloaded nodes
		return rpcErr.ErrorCode() == -32005 || rpcErr.ErrorCode() == -32603
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "execution reverted") {
		return false
	}
	for _, hint := range transportHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
