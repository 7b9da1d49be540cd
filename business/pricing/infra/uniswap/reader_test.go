package uniswap

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	chain "github.com/fd1az/dex-spread-monitor/business/blockchain/app"
	"github.com/fd1az/dex-spread-monitor/internal/apperror"
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

// contractNode answers eth_call from canned method outputs.
type contractNode struct {
	abis    []abi.ABI
	outputs map[string][]any // "address/method" -> values
}

func (n *contractNode) ChainID(context.Context) (*big.Int, error)      { return big.NewInt(137), nil }
func (n *contractNode) BlockNumber(context.Context) (uint64, error)     { return 1, nil }
func (n *contractNode) SuggestGasPrice(context.Context) (*big.Int, error) { return big.NewInt(1), nil }
func (n *contractNode) Close()                                          {}

func (n *contractNode) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	for _, a := range n.abis {
		m, err := a.MethodById(msg.Data[:4])
		if err != nil {
			continue
		}
		vals, ok := n.outputs[msg.To.Hex()+"/"+m.Name]
		if !ok {
			return nil, errors.New("execution reverted")
		}
		return m.Outputs.Pack(vals...)
	}
	return nil, fmt.Errorf("unknown selector %x", msg.Data[:4])
}

type nodeDialer struct{ node *contractNode }

func (d nodeDialer) Dial(context.Context, string) (chain.Client, error) { return d.node, nil }

func mustABI(t *testing.T, s string) abi.ABI {
	t.Helper()
	a, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	return a
}

var (
	factoryAddr = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	pairAddr    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	poolAddr    = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	routerAddr  = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	tokenA      = common.HexToAddress("0x000000000000000000000000000000000000000a")
	tokenB      = common.HexToAddress("0x000000000000000000000000000000000000000b")
)

func newTestReader(t *testing.T, outputs map[string][]any) *Reader {
	t.Helper()

	node := &contractNode{
		abis: []abi.ABI{
			mustABI(t, FactoryV2ABI), mustABI(t, PairV2ABI), mustABI(t, RouterV2ABI),
			mustABI(t, FactoryV3ABI), mustABI(t, PoolV3ABI), mustABI(t, QuoterV2ABI),
		},
		outputs: outputs,
	}

	cfg := chain.DefaultPoolConfig(137)
	cfg.ProbeTimeout = time.Second
	cfg.RequestsPerSecond = 0
	pool, err := chain.NewPool(cfg, nodeDialer{node: node}, nopLogger{})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	if err := pool.Initialize(context.Background(), []string{"https://node.example"}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	r, err := NewReader(pool, nopLogger{})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	return r
}

func TestReader_ConstantProduct(t *testing.T) {
	r := newTestReader(t, map[string][]any{
		factoryAddr.Hex() + "/getPair":     {pairAddr},
		pairAddr.Hex() + "/getReserves":    {big.NewInt(1000), big.NewInt(2000), uint32(7)},
		pairAddr.Hex() + "/token0":         {tokenA},
		routerAddr.Hex() + "/getAmountsOut": {[]*big.Int{big.NewInt(10), big.NewInt(19)}},
	})
	ctx := context.Background()

	pair, err := r.PairFor(ctx, factoryAddr, tokenA, tokenB)
	if err != nil {
		t.Fatalf("PairFor: %v", err)
	}
	if pair != pairAddr {
		t.Fatalf("pair = %s, want %s", pair.Hex(), pairAddr.Hex())
	}

	res, err := r.Reserves(ctx, pair)
	if err != nil {
		t.Fatalf("Reserves: %v", err)
	}
	if res.Token0 != tokenA || res.Reserve0.Int64() != 1000 || res.Reserve1.Int64() != 2000 {
		t.Errorf("reserves = %+v", res)
	}

	amounts, err := r.AmountsOut(ctx, routerAddr, big.NewInt(10), []common.Address{tokenA, tokenB})
	if err != nil {
		t.Fatalf("AmountsOut: %v", err)
	}
	if len(amounts) != 2 || amounts[1].Int64() != 19 {
		t.Errorf("amounts = %v", amounts)
	}
}

func TestReader_Concentrated(t *testing.T) {
	sqrtPrice := new(big.Int).Lsh(big.NewInt(1), 96)
	r := newTestReader(t, map[string][]any{
		factoryAddr.Hex() + "/getPool": {poolAddr},
		poolAddr.Hex() + "/slot0": {
			sqrtPrice, big.NewInt(0), uint16(0), uint16(1), uint16(1), uint8(0), true,
		},
		poolAddr.Hex() + "/liquidity": {big.NewInt(5_000_000)},
		poolAddr.Hex() + "/token0":    {tokenB},
	})
	ctx := context.Background()

	pool, err := r.PoolFor(ctx, factoryAddr, tokenA, tokenB, FeeTier030)
	if err != nil {
		t.Fatalf("PoolFor: %v", err)
	}

	st, err := r.PoolState(ctx, pool)
	if err != nil {
		t.Fatalf("PoolState: %v", err)
	}
	if st.Token0 != tokenB {
		t.Errorf("token0 = %s, want %s", st.Token0.Hex(), tokenB.Hex())
	}
	if st.SqrtPriceX96.Cmp(sqrtPrice) != 0 {
		t.Errorf("sqrtPriceX96 = %s, want %s", st.SqrtPriceX96, sqrtPrice)
	}
	if st.Liquidity.Int64() != 5_000_000 {
		t.Errorf("liquidity = %s, want 5000000", st.Liquidity)
	}
}

func TestReader_RevertIsContractError(t *testing.T) {
	r := newTestReader(t, map[string][]any{})

	_, err := r.Reserves(context.Background(), pairAddr)
	if !apperror.HasCode(err, apperror.CodeContractCallFailed) {
		t.Fatalf("err = %v, want %s", err, apperror.CodeContractCallFailed)
	}
	if apperror.HasCode(err, apperror.CodeEndpointPoolExhausted) {
		t.Error("a revert must not exhaust the pool")
	}
}
