package domain_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sony/gobreaker/v2"

	"github.com/fd1az/dex-spread-monitor/business/blockchain/domain"
)

type codedErr struct{ code int }

func (e codedErr) Error() string  { return fmt.Sprintf("rpc error %d", e.code) }
func (e codedErr) ErrorCode() int { return e.code }

func TestIsTransport(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"typed timeout", &domain.TimeoutError{Op: "eth_call", Endpoint: "a", After: time.Second}, true},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), true},
		{"caller cancelled", context.Canceled, false},
		{"breaker open", gobreaker.ErrOpenState, true},
		{"http 429", rpc.HTTPError{StatusCode: 429, Status: "429 Too Many Requests"}, true},
		{"http 503", rpc.HTTPError{StatusCode: 503}, true},
		{"http 400", rpc.HTTPError{StatusCode: 400}, false},
		{"limit exceeded code", codedErr{-32005}, true},
		{"invalid params code", codedErr{-32602}, false},
		{"refused", errors.New("dial tcp 1.2.3.4:443: connect: connection refused"), true},
		{"revert", errors.New("execution reverted"), false},
		{"abi decode", errors.New("abi: attempting to unmarshall an empty string"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := domain.IsTransport(tt.err); got != tt.want {
				t.Errorf("IsTransport(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestGasPriceFromGwei(t *testing.T) {
	g := domain.GasPriceFromGwei(30.5)
	if g.Wei.String() != "30500000000" {
		t.Errorf("wei = %s, want 30500000000", g.Wei)
	}
	if g.GweiFloat() != 30.5 {
		t.Errorf("gwei = %v, want 30.5", g.GweiFloat())
	}
}
