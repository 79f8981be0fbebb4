package evm

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCaller answers calls by method selector.
type fakeCaller struct {
	abi       abi.ABI
	responses map[string][]byte
	err       error
	calls     map[string]*int32
	lastTo    common.Address
	lastInput []byte
}

func newFakeCaller(t *testing.T, abiJSON string) *fakeCaller {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	require.NoError(t, err)
	return &fakeCaller{abi: parsed, responses: map[string][]byte{}, calls: map[string]*int32{}}
}

func (f *fakeCaller) respond(t *testing.T, method string, values ...interface{}) {
	t.Helper()
	out, err := f.abi.Methods[method].Outputs.Pack(values...)
	require.NoError(t, err)
	f.responses[method] = out
	var n int32
	f.calls[method] = &n
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastTo = *msg.To
	f.lastInput = msg.Data
	for name, m := range f.abi.Methods {
		if bytes.HasPrefix(msg.Data, m.ID) {
			atomic.AddInt32(f.calls[name], 1)
			return f.responses[name], nil
		}
	}
	return nil, errors.New("unknown selector")
}

func TestAggregatorSourceLatestPrice(t *testing.T) {
	feed := common.HexToAddress("0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419")
	caller := newFakeCaller(t, aggregatorABIJSON)
	caller.respond(t, "decimals", uint8(8))
	caller.respond(t, "latestRoundData",
		big.NewInt(42), big.NewInt(10000000000), big.NewInt(1), big.NewInt(2), big.NewInt(42))

	src, err := NewAggregatorSource(caller, nil)
	require.NoError(t, err)

	answer, decimals, err := src.LatestPrice(context.Background(), feed)
	require.NoError(t, err)
	assert.Equal(t, "10000000000", answer.String())
	assert.Equal(t, uint8(8), decimals)
	assert.Equal(t, feed, caller.lastTo)

	_, _, err = src.LatestPrice(context.Background(), feed)
	require.NoError(t, err)
	assert.Equal(t, int32(1), *caller.calls["decimals"], "decimals should be cached")
	assert.Equal(t, int32(2), *caller.calls["latestRoundData"])
}

func TestAggregatorSourceNegativeAnswer(t *testing.T) {
	caller := newFakeCaller(t, aggregatorABIJSON)
	caller.respond(t, "decimals", uint8(8))
	caller.respond(t, "latestRoundData",
		big.NewInt(1), big.NewInt(-1), big.NewInt(0), big.NewInt(0), big.NewInt(1))

	src, err := NewAggregatorSource(caller, nil)
	require.NoError(t, err)

	answer, _, err := src.LatestPrice(context.Background(), common.Address{1})
	require.NoError(t, err)
	assert.Equal(t, -1, answer.Sign())
}

func TestAggregatorSourceCallError(t *testing.T) {
	caller := newFakeCaller(t, aggregatorABIJSON)
	caller.err = errors.New("connection refused")

	src, err := NewAggregatorSource(caller, nil)
	require.NoError(t, err)

	_, _, err = src.LatestPrice(context.Background(), common.Address{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAnchoredViewSourcePrice(t *testing.T) {
	view := common.HexToAddress("0x50ce56A3239671Ab62f185704Caedf626352741e")
	caller := newFakeCaller(t, anchoredViewABIJSON)
	caller.respond(t, "price", big.NewInt(9500000))

	src, err := NewAnchoredViewSource(caller, view, nil)
	require.NoError(t, err)

	price, err := src.Price(context.Background(), "ETH")
	require.NoError(t, err)
	assert.Equal(t, int64(9500000), price.Int64())
	assert.Equal(t, view, caller.lastTo)

	args, err := src.abi.Methods["price"].Inputs.Unpack(caller.lastInput[4:])
	require.NoError(t, err)
	assert.Equal(t, "ETH", args[0])
}

func TestFactoriesRequireConfig(t *testing.T) {
	_, err := newAggregatorFromConfig(context.Background(), map[string]interface{}{})
	assert.ErrorIs(t, err, ErrRPCURLRequired)

	_, err = newAnchoredViewFromConfig(context.Background(), map[string]interface{}{"rpc_url": "http://localhost:8545"})
	assert.ErrorIs(t, err, ErrAddressRequired)
}
