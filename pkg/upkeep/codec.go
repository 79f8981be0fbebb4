package upkeep

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Codec converts asset lists to and from the ABI encoding of address[].
type Codec struct {
	args abi.Arguments
}

// NewCodec creates a Codec.
func NewCodec() (*Codec, error) {
	addressArray, err := abi.NewType("address[]", "", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build address[] type: %w", err)
	}
	return &Codec{args: abi.Arguments{{Type: addressArray}}}, nil
}

// Encode packs assets. A nil slice encodes as an empty array.
func (c *Codec) Encode(assets []common.Address) ([]byte, error) {
	if assets == nil {
		assets = []common.Address{}
	}
	data, err := c.args.Pack(assets)
	if err != nil {
		return nil, fmt.Errorf("failed to encode assets: %w", err)
	}
	return data, nil
}

// Decode unpacks an address[] payload.
func (c *Codec) Decode(data []byte) ([]common.Address, error) {
	values, err := c.args.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%w: expected one value, got %d", ErrInvalidPayload, len(values))
	}
	assets, ok := values[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("%w: decoded %T", ErrInvalidPayload, values[0])
	}
	return assets, nil
}
