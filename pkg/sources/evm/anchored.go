package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/StrathCole/oracle-validator/pkg/logging"
	"github.com/StrathCole/oracle-validator/pkg/sources"
)

// Anchored price view: price(string symbol) returns (uint256).
const anchoredViewABIJSON = `[{
	"inputs": [{"internalType": "string", "name": "symbol", "type": "string"}],
	"name": "price",
	"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
	"stateMutability": "view",
	"type": "function"
}]`

// AnchoredViewSource reads reference prices from an anchored price view contract.
type AnchoredViewSource struct {
	caller  Caller
	address common.Address
	abi     abi.ABI
	logger  *logging.Logger
}

var _ sources.ReferenceSource = (*AnchoredViewSource)(nil)

// NewAnchoredViewSource creates a reference source for the view at address.
func NewAnchoredViewSource(caller Caller, address common.Address, logger *logging.Logger) (*AnchoredViewSource, error) {
	parsed, err := abi.JSON(strings.NewReader(anchoredViewABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse anchored view ABI: %w", err)
	}
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &AnchoredViewSource{caller: caller, address: address, abi: parsed, logger: logger}, nil
}

// Price implements sources.ReferenceSource.
func (s *AnchoredViewSource) Price(ctx context.Context, symbol string) (*big.Int, error) {
	out, err := call(ctx, s.caller, &s.abi, s.address, "price", symbol)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%w: price returned %d values", ErrUnexpectedOutput, len(out))
	}
	price, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: price is %T", ErrUnexpectedOutput, out[0])
	}
	s.logger.Debug("Fetched reference price", "symbol", symbol, "price", price.String())
	return price, nil
}

func newAnchoredViewFromConfig(ctx context.Context, config map[string]interface{}) (sources.ReferenceSource, error) {
	addr := sources.GetString(config, "address", "")
	if !common.IsHexAddress(addr) {
		return nil, fmt.Errorf("%w: %q", ErrAddressRequired, addr)
	}
	client, err := dial(ctx, config)
	if err != nil {
		return nil, err
	}
	return NewAnchoredViewSource(client, common.HexToAddress(addr), sources.GetLoggerFromConfig(config))
}
