package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	chain "github.com/fd1az/dex-spread-monitor/business/blockchain/app"
	"github.com/fd1az/dex-spread-monitor/business/pricing/app"
	"github.com/fd1az/dex-spread-monitor/business/pricing/domain"
	"github.com/fd1az/dex-spread-monitor/internal/apperror"
	"github.com/fd1az/dex-spread-monitor/internal/logger"
)

const (
	tracerName = "github.com/fd1az/dex-spread-monitor/business/pricing/infra/uniswap"
	meterName  = "github.com/fd1az/dex-spread-monitor/business/pricing/infra/uniswap"
)

// Ensure Reader implements ChainReader.
var _ app.ChainReader = (*Reader)(nil)

type readerMetrics struct {
	reads   metric.Int64Counter
	latency metric.Float64Histogram
}

// Reader implements ChainReader with eth_call through the endpoint pool.
type Reader struct {
	pool   *chain.Pool
	logger logger.LoggerInterface

	factoryV2 abi.ABI
	pairV2    abi.ABI
	routerV2  abi.ABI
	factoryV3 abi.ABI
	poolV3    abi.ABI
	quoterV2  abi.ABI

	tracer  trace.Tracer
	metrics *readerMetrics
}

// NewReader parses the contract ABIs and returns a Reader.
func NewReader(pool *chain.Pool, log logger.LoggerInterface) (*Reader, error) {
	r := &Reader{
		pool:   pool,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}

	parsed := []struct {
		dst  *abi.ABI
		name string
		json string
	}{
		{&r.factoryV2, "factoryV2", FactoryV2ABI},
		{&r.pairV2, "pairV2", PairV2ABI},
		{&r.routerV2, "routerV2", RouterV2ABI},
		{&r.factoryV3, "factoryV3", FactoryV3ABI},
		{&r.poolV3, "poolV3", PoolV3ABI},
		{&r.quoterV2, "quoterV2", QuoterV2ABI},
	}
	for _, p := range parsed {
		a, err := abi.JSON(strings.NewReader(p.json))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s ABI: %w", p.name, err)
		}
		*p.dst = a
	}

	if err := r.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return r, nil
}

func (r *Reader) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	r.metrics = &readerMetrics{}

	r.metrics.reads, err = meter.Int64Counter(
		"contract_reads_total",
		metric.WithDescription("Contract reads by method and outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	r.metrics.latency, err = meter.Float64Histogram(
		"contract_read_latency_ms",
		metric.WithDescription("Contract read latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	return err
}

// call packs, executes and unpacks one view method.
func (r *Reader) call(ctx context.Context, parsed abi.ABI, to common.Address, method string, args ...any) ([]any, error) {
	ctx, span := r.tracer.Start(ctx, "contract."+method,
		trace.WithAttributes(attribute.String("to", to.Hex())),
	)
	defer span.End()

	start := time.Now()
	outcome := "ok"
	defer func() {
		attrs := metric.WithAttributes(attribute.String("method", method), attribute.String("outcome", outcome))
		r.metrics.reads.Add(ctx, 1, attrs)
		r.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	}()

	data, err := parsed.Pack(method, args...)
	if err != nil {
		outcome = "encode"
		return nil, fmt.Errorf("failed to encode %s: %w", method, err)
	}

	raw, err := chain.Call(ctx, r.pool, "eth_call", func(ctx context.Context, c chain.Client) ([]byte, error) {
		return c.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	})
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, "call failed")
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s on %s", method, to.Hex())))
	}
	if len(raw) == 0 {
		outcome = "empty"
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext(fmt.Sprintf("%s on %s returned no data", method, to.Hex())))
	}

	out, err := parsed.Unpack(method, raw)
	if err != nil {
		outcome = "decode"
		return nil, fmt.Errorf("failed to decode %s: %w", method, err)
	}

	span.SetStatus(codes.Ok, "")
	return out, nil
}

func asAddress(v any) (common.Address, error) {
	a, ok := v.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected type %T, want address", v)
	}
	return a, nil
}

func asBig(v any) (*big.Int, error) {
	b, ok := v.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected type %T, want *big.Int", v)
	}
	return b, nil
}

func (r *Reader) singleAddress(ctx context.Context, parsed abi.ABI, to common.Address, method string, args ...any) (common.Address, error) {
	out, err := r.call(ctx, parsed, to, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	if len(out) != 1 {
		return common.Address{}, fmt.Errorf("%s: unexpected output length %d", method, len(out))
	}
	return asAddress(out[0])
}

// PairFor returns the pair address or the zero address when none exists.
func (r *Reader) PairFor(ctx context.Context, factory, a, b common.Address) (common.Address, error) {
	return r.singleAddress(ctx, r.factoryV2, factory, "getPair", a, b)
}

// Reserves reads getReserves and token0 of a pair.
func (r *Reader) Reserves(ctx context.Context, pair common.Address) (domain.PairReserves, error) {
	out, err := r.call(ctx, r.pairV2, pair, "getReserves")
	if err != nil {
		return domain.PairReserves{}, err
	}
	if len(out) < 2 {
		return domain.PairReserves{}, fmt.Errorf("getReserves: unexpected output length %d", len(out))
	}

	r0, err := asBig(out[0])
	if err != nil {
		return domain.PairReserves{}, err
	}
	r1, err := asBig(out[1])
	if err != nil {
		return domain.PairReserves{}, err
	}

	token0, err := r.singleAddress(ctx, r.pairV2, pair, "token0")
	if err != nil {
		return domain.PairReserves{}, err
	}

	return domain.PairReserves{Token0: token0, Reserve0: r0, Reserve1: r1}, nil
}

// PoolFor returns the pool address or the zero address when none exists.
func (r *Reader) PoolFor(ctx context.Context, factory, a, b common.Address, fee uint32) (common.Address, error) {
	return r.singleAddress(ctx, r.factoryV3, factory, "getPool", a, b, new(big.Int).SetUint64(uint64(fee)))
}

// PoolState reads slot0, liquidity and token0 of a pool.
func (r *Reader) PoolState(ctx context.Context, pool common.Address) (domain.PoolState, error) {
	slot0, err := r.call(ctx, r.poolV3, pool, "slot0")
	if err != nil {
		return domain.PoolState{}, err
	}
	if len(slot0) < 1 {
		return domain.PoolState{}, fmt.Errorf("slot0: empty output")
	}
	sqrtPrice, err := asBig(slot0[0])
	if err != nil {
		return domain.PoolState{}, err
	}

	liq, err := r.call(ctx, r.poolV3, pool, "liquidity")
	if err != nil {
		return domain.PoolState{}, err
	}
	if len(liq) != 1 {
		return domain.PoolState{}, fmt.Errorf("liquidity: unexpected output length %d", len(liq))
	}
	liquidity, err := asBig(liq[0])
	if err != nil {
		return domain.PoolState{}, err
	}

	token0, err := r.singleAddress(ctx, r.poolV3, pool, "token0")
	if err != nil {
		return domain.PoolState{}, err
	}

	return domain.PoolState{Token0: token0, SqrtPriceX96: sqrtPrice, Liquidity: liquidity}, nil
}

// QuoteExactInputSingle simulates a single-pool swap on QuoterV2.
func (r *Reader) QuoteExactInputSingle(ctx context.Context, quoter, tokenIn, tokenOut common.Address, amountIn *big.Int, fee uint32) (*big.Int, error) {
	out, err := r.call(ctx, r.quoterV2, quoter, "quoteExactInputSingle", QuoteExactInputSingleParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		AmountIn:          amountIn,
		Fee:               new(big.Int).SetUint64(uint64(fee)),
		SqrtPriceLimitX96: big.NewInt(0), // No price limit
	})
	if err != nil {
		return nil, err
	}
	if len(out) < 1 {
		return nil, fmt.Errorf("quoteExactInputSingle: empty output")
	}
	return asBig(out[0])
}

// AmountsOut simulates a swap along path on a router.
func (r *Reader) AmountsOut(ctx context.Context, router common.Address, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	out, err := r.call(ctx, r.routerV2, router, "getAmountsOut", amountIn, path)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("getAmountsOut: unexpected output length %d", len(out))
	}
	amounts, ok := out[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("getAmountsOut: unexpected type %T", out[0])
	}
	return amounts, nil
}
