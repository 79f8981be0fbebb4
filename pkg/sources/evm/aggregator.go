package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/StrathCole/oracle-validator/pkg/logging"
	"github.com/StrathCole/oracle-validator/pkg/sources"
)

// AggregatorV3 read interface (decimals and latestRoundData only).
const aggregatorABIJSON = `[
	{
		"inputs": [],
		"name": "decimals",
		"outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "latestRoundData",
		"outputs": [
			{"internalType": "uint80", "name": "roundId", "type": "uint80"},
			{"internalType": "int256", "name": "answer", "type": "int256"},
			{"internalType": "uint256", "name": "startedAt", "type": "uint256"},
			{"internalType": "uint256", "name": "updatedAt", "type": "uint256"},
			{"internalType": "uint80", "name": "answeredInRound", "type": "uint80"}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

// AggregatorSource reads primary answers from aggregator contracts. The asset
// address is the aggregator address.
type AggregatorSource struct {
	caller Caller
	abi    abi.ABI
	logger *logging.Logger

	mu       sync.RWMutex
	decimals map[common.Address]uint8
}

var _ sources.PrimarySource = (*AggregatorSource)(nil)

// NewAggregatorSource creates a primary source that calls through caller.
func NewAggregatorSource(caller Caller, logger *logging.Logger) (*AggregatorSource, error) {
	parsed, err := abi.JSON(strings.NewReader(aggregatorABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse aggregator ABI: %w", err)
	}
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &AggregatorSource{
		caller:   caller,
		abi:      parsed,
		logger:   logger,
		decimals: make(map[common.Address]uint8),
	}, nil
}

// LatestPrice implements sources.PrimarySource.
func (s *AggregatorSource) LatestPrice(ctx context.Context, asset common.Address) (*big.Int, uint8, error) {
	decimals, err := s.feedDecimals(ctx, asset)
	if err != nil {
		return nil, 0, err
	}

	out, err := call(ctx, s.caller, &s.abi, asset, "latestRoundData")
	if err != nil {
		return nil, 0, err
	}
	if len(out) != 5 {
		return nil, 0, fmt.Errorf("%w: latestRoundData returned %d values", ErrUnexpectedOutput, len(out))
	}
	answer, ok := out[1].(*big.Int)
	if !ok {
		return nil, 0, fmt.Errorf("%w: answer is %T", ErrUnexpectedOutput, out[1])
	}

	s.logger.Debug("Fetched aggregator answer",
		"asset", asset.Hex(),
		"answer", answer.String(),
		"decimals", decimals,
		"round", out[0])

	return answer, decimals, nil
}

// feedDecimals caches decimals per aggregator; the value is immutable on-chain.
func (s *AggregatorSource) feedDecimals(ctx context.Context, asset common.Address) (uint8, error) {
	s.mu.RLock()
	d, ok := s.decimals[asset]
	s.mu.RUnlock()
	if ok {
		return d, nil
	}

	out, err := call(ctx, s.caller, &s.abi, asset, "decimals")
	if err != nil {
		return 0, err
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("%w: decimals returned %d values", ErrUnexpectedOutput, len(out))
	}
	d, ok = out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("%w: decimals is %T", ErrUnexpectedOutput, out[0])
	}

	s.mu.Lock()
	s.decimals[asset] = d
	s.mu.Unlock()
	return d, nil
}

func newAggregatorFromConfig(ctx context.Context, config map[string]interface{}) (sources.PrimarySource, error) {
	client, err := dial(ctx, config)
	if err != nil {
		return nil, err
	}
	return NewAggregatorSource(client, sources.GetLoggerFromConfig(config))
}
