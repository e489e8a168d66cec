package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/credit-markets/subgraphs/internal/adapter"
	"github.com/credit-markets/subgraphs/internal/domain"
	"github.com/credit-markets/subgraphs/internal/emitter"
	"github.com/credit-markets/subgraphs/internal/logger"
	"github.com/credit-markets/subgraphs/internal/store"
)

// Config holds the configuration for Ethereum log subscription
type Config struct {
	WebSocketURL    string       // WebSocket URL (e.g., wss://mainnet.infura.io/ws/v3/YOUR_PROJECT_ID)
	ChainID         domain.Chain // e.g., "eip155:1" for Ethereum mainnet
	RegistryAddress string       // protocol registry contract
}

// ethSource streams decoded protocol events from an Ethereum node. The log
// filter matches on topics only; address relevance is decided per log against
// the watched address set, so listeners registered mid-stream take effect
// without resubscribing.
type ethSource struct {
	client   adapter.EthClient
	store    store.Store
	decoder  *Decoder
	chainID  domain.Chain
	registry string

	// single-entry header cache, logs of one block arrive adjacently
	cachedBlock uint64
	cachedTime  int64
}

// NewSource creates an Ethereum chain source
func NewSource(cfg Config, client adapter.EthClient, s store.Store) (emitter.ChainSource, error) {
	decoder, err := NewDecoder()
	if err != nil {
		return nil, err
	}

	return &ethSource{
		client:   client,
		store:    s,
		decoder:  decoder,
		chainID:  cfg.ChainID,
		registry: domain.NormalizeAddress(cfg.RegistryAddress),
	}, nil
}

// SubscribeEvents streams decoded events starting at fromBlock. The node
// delivers the backlog and the live tail over the same filter subscription.
func (s *ethSource) SubscribeEvents(ctx context.Context, fromBlock uint64, handler emitter.EventHandler) error {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		Topics:    [][]common.Hash{s.decoder.Topics()},
	}

	logs := make(chan types.Log)
	sub, err := s.client.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return fmt.Errorf("failed to subscribe to filter logs: %w", err)
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return fmt.Errorf("subscription error: %w", err)
		case vLog := <-logs:
			event, err := s.parseLog(ctx, vLog)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.ErrorCtx(ctx, fmt.Errorf("failed to parse log: %w", err), zap.String("tx", vLog.TxHash.Hex()))
				continue
			}
			if event == nil {
				continue
			}

			if err := handler(event); err != nil {
				return fmt.Errorf("failed to handle event %s: %w", event.TxHash, err)
			}
		}
	}
}

// parseLog resolves the emitting address to a watch kind and decodes.
// Logs from addresses that are neither the registry nor watched are skipped.
func (s *ethSource) parseLog(ctx context.Context, vLog types.Log) (*domain.Event, error) {
	address := domain.NormalizeAddress(vLog.Address.Hex())

	var kind domain.WatchKind
	if address != s.registry {
		watched, err := s.store.GetWatchedAddress(ctx, s.chainID, address)
		if err != nil {
			return nil, fmt.Errorf("failed to look up watched address: %w", err)
		}
		if watched == nil || !watched.Watching {
			return nil, nil
		}
		kind = watched.Kind
	}

	blockTime, err := s.blockTime(ctx, vLog.BlockNumber)
	if err != nil {
		return nil, err
	}

	return s.decoder.Decode(s.chainID, kind, vLog, blockTime)
}

func (s *ethSource) blockTime(ctx context.Context, blockNumber uint64) (int64, error) {
	if blockNumber == s.cachedBlock && s.cachedTime != 0 {
		return s.cachedTime, nil
	}

	header, err := s.client.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return 0, fmt.Errorf("failed to get block header %d: %w", blockNumber, err)
	}

	s.cachedBlock = blockNumber
	s.cachedTime = int64(header.Time)
	return s.cachedTime, nil
}

// GetLatestBlock returns the latest block number
func (s *ethSource) GetLatestBlock(ctx context.Context) (uint64, error) {
	header, err := s.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	return header.Number.Uint64(), nil
}

// Close closes the connection
func (s *ethSource) Close() {
	if s.client == nil {
		return
	}
	s.client.Close()
}
