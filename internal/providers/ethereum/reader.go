package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/credit-markets/subgraphs/internal/adapter"
	"github.com/credit-markets/subgraphs/internal/domain"
)

// ChainReader reads contract state needed to populate entity snapshots.
// Every method is a single eth_call; a revert or transport failure surfaces
// as an error and the caller degrades to its documented fallback value.
type ChainReader interface {
	// ERC20Name reads the token name
	ERC20Name(ctx context.Context, token string) (string, error)
	// ERC20Symbol reads the token symbol
	ERC20Symbol(ctx context.Context, token string) (string, error)
	// ERC20Decimals reads the token decimal precision
	ERC20Decimals(ctx context.Context, token string) (uint8, error)

	// LatestRoundData reads the current answer and update time from a price feed
	LatestRoundData(ctx context.Context, feed string) (*big.Int, int64, error)

	// PoolAsset reads the pool's underlying asset token address
	PoolAsset(ctx context.Context, pool string) (string, error)
	// PoolName reads the pool share token name
	PoolName(ctx context.Context, pool string) (string, error)
	// PoolSymbol reads the pool share token symbol
	PoolSymbol(ctx context.Context, pool string) (string, error)
	// PoolStartTime reads the investment window opening time
	PoolStartTime(ctx context.Context, pool string) (int64, error)
	// PoolEndTime reads the investment window closing time
	PoolEndTime(ctx context.Context, pool string) (int64, error)
	// PoolThreshold reads the minimum raise amount
	PoolThreshold(ctx context.Context, pool string) (*big.Int, error)
	// PoolAmountToRaise reads the target raise amount
	PoolAmountToRaise(ctx context.Context, pool string) (*big.Int, error)
	// PoolFeeBasisPoints reads the pool fee
	PoolFeeBasisPoints(ctx context.Context, pool string) (int64, error)
	// PoolEstimatedReturnBasisPoints reads the projected return
	PoolEstimatedReturnBasisPoints(ctx context.Context, pool string) (int64, error)
	// PoolCreditFacilitator reads the linked facilitator address
	PoolCreditFacilitator(ctx context.Context, pool string) (string, error)
	// PoolKYCLevel reads the required attestation level
	PoolKYCLevel(ctx context.Context, pool string) (uint8, error)
	// PoolTerm reads the loan term duration in seconds
	PoolTerm(ctx context.Context, pool string) (int64, error)

	// CreditFacilitatorRole reads the registry's facilitator role identifier
	CreditFacilitatorRole(ctx context.Context, registry string) (string, error)
}

const erc20ABI = `[
	{"name":"name","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"string"}]},
	{"name":"symbol","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"string"}]},
	{"name":"decimals","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint8"}]}
]`

const poolABI = `[
	{"name":"asset","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"address"}]},
	{"name":"name","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"string"}]},
	{"name":"symbol","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"string"}]},
	{"name":"startTime","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
	{"name":"endTime","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
	{"name":"threshold","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
	{"name":"amountToRaise","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
	{"name":"feeBasisPoints","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
	{"name":"estimatedReturnBasisPoints","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
	{"name":"creditFacilitator","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"address"}]},
	{"name":"kycLevel","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
	{"name":"term","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]}
]`

const aggregatorABI = `[
	{"name":"latestRoundData","type":"function","stateMutability":"view","inputs":[],"outputs":[
		{"name":"roundId","type":"uint80"},
		{"name":"answer","type":"int256"},
		{"name":"startedAt","type":"uint256"},
		{"name":"updatedAt","type":"uint256"},
		{"name":"answeredInRound","type":"uint80"}
	]}
]`

const registryABI = `[
	{"name":"CREDIT_FACILITATOR_ROLE","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"bytes32"}]}
]`

type chainReader struct {
	client     adapter.EthClient
	erc20      abi.ABI
	pool       abi.ABI
	aggregator abi.ABI
	registry   abi.ABI
}

// NewChainReader creates a ChainReader backed by an Ethereum RPC client
func NewChainReader(client adapter.EthClient) (ChainReader, error) {
	erc20, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 abi: %w", err)
	}
	pool, err := abi.JSON(strings.NewReader(poolABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool abi: %w", err)
	}
	aggregator, err := abi.JSON(strings.NewReader(aggregatorABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse aggregator abi: %w", err)
	}
	registry, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse registry abi: %w", err)
	}

	return &chainReader{
		client:     client,
		erc20:      erc20,
		pool:       pool,
		aggregator: aggregator,
		registry:   registry,
	}, nil
}

// call packs a zero-argument method, executes it and unpacks the outputs
func (r *chainReader) call(ctx context.Context, contractABI abi.ABI, address string, method string) ([]interface{}, error) {
	data, err := contractABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	to := common.HexToAddress(address)
	result, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s on %s: %w", method, address, err)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("empty result calling %s on %s", method, address)
	}

	values, err := contractABI.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	return values, nil
}

func (r *chainReader) callString(ctx context.Context, contractABI abi.ABI, address, method string) (string, error) {
	values, err := r.call(ctx, contractABI, address, method)
	if err != nil {
		return "", err
	}
	s, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected %s result type %T", method, values[0])
	}
	return s, nil
}

func (r *chainReader) callAddress(ctx context.Context, contractABI abi.ABI, address, method string) (string, error) {
	values, err := r.call(ctx, contractABI, address, method)
	if err != nil {
		return "", err
	}
	a, ok := values[0].(common.Address)
	if !ok {
		return "", fmt.Errorf("unexpected %s result type %T", method, values[0])
	}
	return domain.NormalizeAddress(a.Hex()), nil
}

func (r *chainReader) callBig(ctx context.Context, contractABI abi.ABI, address, method string) (*big.Int, error) {
	values, err := r.call(ctx, contractABI, address, method)
	if err != nil {
		return nil, err
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s result type %T", method, values[0])
	}
	return v, nil
}

func (r *chainReader) callInt64(ctx context.Context, contractABI abi.ABI, address, method string) (int64, error) {
	v, err := r.callBig(ctx, contractABI, address, method)
	if err != nil {
		return 0, err
	}
	return v.Int64(), nil
}

func (r *chainReader) ERC20Name(ctx context.Context, token string) (string, error) {
	return r.callString(ctx, r.erc20, token, "name")
}

func (r *chainReader) ERC20Symbol(ctx context.Context, token string) (string, error) {
	return r.callString(ctx, r.erc20, token, "symbol")
}

func (r *chainReader) ERC20Decimals(ctx context.Context, token string) (uint8, error) {
	values, err := r.call(ctx, r.erc20, token, "decimals")
	if err != nil {
		return 0, err
	}
	d, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals result type %T", values[0])
	}
	return d, nil
}

func (r *chainReader) LatestRoundData(ctx context.Context, feed string) (*big.Int, int64, error) {
	values, err := r.call(ctx, r.aggregator, feed, "latestRoundData")
	if err != nil {
		return nil, 0, err
	}
	answer, ok := values[1].(*big.Int)
	if !ok {
		return nil, 0, fmt.Errorf("unexpected answer result type %T", values[1])
	}
	updatedAt, ok := values[3].(*big.Int)
	if !ok {
		return nil, 0, fmt.Errorf("unexpected updatedAt result type %T", values[3])
	}
	return answer, updatedAt.Int64(), nil
}

func (r *chainReader) PoolAsset(ctx context.Context, pool string) (string, error) {
	return r.callAddress(ctx, r.pool, pool, "asset")
}

func (r *chainReader) PoolName(ctx context.Context, pool string) (string, error) {
	return r.callString(ctx, r.pool, pool, "name")
}

func (r *chainReader) PoolSymbol(ctx context.Context, pool string) (string, error) {
	return r.callString(ctx, r.pool, pool, "symbol")
}

func (r *chainReader) PoolStartTime(ctx context.Context, pool string) (int64, error) {
	return r.callInt64(ctx, r.pool, pool, "startTime")
}

func (r *chainReader) PoolEndTime(ctx context.Context, pool string) (int64, error) {
	return r.callInt64(ctx, r.pool, pool, "endTime")
}

func (r *chainReader) PoolThreshold(ctx context.Context, pool string) (*big.Int, error) {
	return r.callBig(ctx, r.pool, pool, "threshold")
}

func (r *chainReader) PoolAmountToRaise(ctx context.Context, pool string) (*big.Int, error) {
	return r.callBig(ctx, r.pool, pool, "amountToRaise")
}

func (r *chainReader) PoolFeeBasisPoints(ctx context.Context, pool string) (int64, error) {
	return r.callInt64(ctx, r.pool, pool, "feeBasisPoints")
}

func (r *chainReader) PoolEstimatedReturnBasisPoints(ctx context.Context, pool string) (int64, error) {
	return r.callInt64(ctx, r.pool, pool, "estimatedReturnBasisPoints")
}

func (r *chainReader) PoolCreditFacilitator(ctx context.Context, pool string) (string, error) {
	return r.callAddress(ctx, r.pool, pool, "creditFacilitator")
}

func (r *chainReader) PoolKYCLevel(ctx context.Context, pool string) (uint8, error) {
	v, err := r.callBig(ctx, r.pool, pool, "kycLevel")
	if err != nil {
		return 0, err
	}
	return uint8(v.Uint64()), nil
}

func (r *chainReader) PoolTerm(ctx context.Context, pool string) (int64, error) {
	return r.callInt64(ctx, r.pool, pool, "term")
}

func (r *chainReader) CreditFacilitatorRole(ctx context.Context, registry string) (string, error) {
	values, err := r.call(ctx, r.registry, registry, "CREDIT_FACILITATOR_ROLE")
	if err != nil {
		return "", err
	}
	role, ok := values[0].([32]byte)
	if !ok {
		return "", fmt.Errorf("unexpected role result type %T", values[0])
	}
	return "0x" + common.Bytes2Hex(role[:]), nil
}
