package ethereum

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"

	"github.com/fd1az/dex-spread-monitor/business/blockchain/app"
	"github.com/fd1az/dex-spread-monitor/business/blockchain/domain"
)

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any)       {}
func (nopLogger) Info(context.Context, string, ...any)        {}
func (nopLogger) Warn(context.Context, string, ...any)        {}
func (nopLogger) Error(context.Context, string, ...any)       {}
func (nopLogger) Debugc(context.Context, int, string, ...any) {}
func (nopLogger) Infoc(context.Context, int, string, ...any)  {}
func (nopLogger) Warnc(context.Context, int, string, ...any)  {}
func (nopLogger) Errorc(context.Context, int, string, ...any) {}

type gasNode struct {
	wei   *big.Int
	err   error
	calls atomic.Int32
}

func (n *gasNode) ChainID(context.Context) (*big.Int, error)  { return big.NewInt(137), nil }
func (n *gasNode) BlockNumber(context.Context) (uint64, error) { return 1, nil }
func (n *gasNode) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return nil, nil
}
func (n *gasNode) Close() {}

func (n *gasNode) SuggestGasPrice(context.Context) (*big.Int, error) {
	n.calls.Add(1)
	if n.err != nil {
		return nil, n.err
	}
	return new(big.Int).Set(n.wei), nil
}

type gasDialer struct{ node *gasNode }

func (d gasDialer) Dial(context.Context, string) (app.Client, error) { return d.node, nil }

func newTestOracle(t *testing.T, node *gasNode, cfg GasOracleConfig) *GasOracle {
	t.Helper()

	pcfg := app.DefaultPoolConfig(137)
	pcfg.ProbeTimeout = time.Second
	pcfg.CallTimeout = time.Second
	pcfg.InitialBackoff = time.Millisecond
	pcfg.MaxBackoff = time.Millisecond
	pcfg.RequestsPerSecond = 0

	pool, err := app.NewPool(pcfg, gasDialer{node: node}, nopLogger{})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	if err := pool.Initialize(context.Background(), []string{"https://node.example"}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	oracle, err := NewGasOracle(cfg, pool, nopLogger{})
	if err != nil {
		t.Fatalf("NewGasOracle: %v", err)
	}
	t.Cleanup(func() {
		oracle.Close()
		pool.Close()
	})
	return oracle
}

func TestGasOracle_CachesPrice(t *testing.T) {
	node := &gasNode{wei: domain.GasPriceFromGwei(30).Wei}
	oracle := newTestOracle(t, node, DefaultGasOracleConfig())

	for i := 0; i < 3; i++ {
		price, err := oracle.GasPrice(context.Background())
		if err != nil {
			t.Fatalf("GasPrice: %v", err)
		}
		if price.GweiFloat() != 30 {
			t.Errorf("gwei = %v, want 30", price.GweiFloat())
		}
	}
	if got := node.calls.Load(); got != 1 {
		t.Errorf("node called %d times, want 1", got)
	}
}

func TestGasOracle_CapsAtMax(t *testing.T) {
	node := &gasNode{wei: domain.GasPriceFromGwei(5000).Wei}
	cfg := DefaultGasOracleConfig()
	cfg.MaxGasPrice = domain.GasPriceFromGwei(500).Wei
	oracle := newTestOracle(t, node, cfg)

	price, err := oracle.GasPrice(context.Background())
	if err != nil {
		t.Fatalf("GasPrice: %v", err)
	}
	if price.GweiFloat() != 500 {
		t.Errorf("gwei = %v, want capped 500", price.GweiFloat())
	}
}

func TestGasOracle_ErrorIsNotCached(t *testing.T) {
	node := &gasNode{err: errors.New("execution reverted")}
	oracle := newTestOracle(t, node, DefaultGasOracleConfig())

	if _, err := oracle.GasPrice(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	node.err = nil
	node.wei = domain.GasPriceFromGwei(42).Wei
	price, err := oracle.GasPrice(context.Background())
	if err != nil {
		t.Fatalf("GasPrice after recovery: %v", err)
	}
	if price.GweiFloat() != 42 {
		t.Errorf("gwei = %v, want 42", price.GweiFloat())
	}
}
