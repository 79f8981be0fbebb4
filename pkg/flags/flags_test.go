package flags

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	assetA = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	assetB = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	in := []common.Address{assetA, assetB}
	require.NoError(t, r.Raise(context.Background(), in))
	in[0] = common.Address{}

	batches := r.Batches()
	require.Len(t, batches, 1)
	assert.Equal(t, []common.Address{assetA, assetB}, batches[0])

	r.Err = errors.New("boom")
	assert.Error(t, r.Raise(context.Background(), in))
	assert.Len(t, r.Batches(), 1)
}

func TestWebhookSink(t *testing.T) {
	var got WebhookPayload
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, "secret", time.Second)
	require.NoError(t, sink.Raise(context.Background(), []common.Address{assetA}))
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, []string{assetA.Hex()}, got.Assets)
}

func TestWebhookSinkStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewWebhookSink(srv.URL, "", time.Second).Raise(context.Background(), []common.Address{assetA})
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestFactory(t *testing.T) {
	ctx := context.Background()

	s, err := New(ctx, "log", nil)
	require.NoError(t, err)
	assert.NoError(t, s.Raise(ctx, []common.Address{assetA}))

	s, err = New(ctx, "memory", nil)
	require.NoError(t, err)
	assert.IsType(t, &Recorder{}, s)

	_, err = New(ctx, "pager", nil)
	assert.ErrorIs(t, err, ErrUnknownSinkType)

	_, err = New(ctx, "webhook", map[string]interface{}{})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(ctx, "evm", map[string]interface{}{"rpc_url": "http://localhost:8545", "address": "nope"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	assert.Equal(t, []string{"evm", "log", "memory", "webhook"}, Types())
}

func TestLoadKey(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	t.Setenv("FLAGS_TEST_KEY", "0x"+common.Bytes2Hex(crypto.FromECDSA(key)))

	loaded, err := loadKey("FLAGS_TEST_KEY")
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), crypto.PubkeyToAddress(loaded.PublicKey))

	_, err = loadKey("FLAGS_TEST_UNSET_KEY")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	t.Setenv("FLAGS_TEST_KEY", "zz")
	_, err = loadKey("FLAGS_TEST_KEY")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRaiseFlagsCalldata(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(flagsABIJSON))
	require.NoError(t, err)

	data, err := parsed.Pack("raiseFlags", []common.Address{assetA, assetB})
	require.NoError(t, err)
	assert.Equal(t, crypto.Keccak256([]byte("raiseFlags(address[])"))[:4], data[:4])

	args, err := parsed.Methods["raiseFlags"].Inputs.Unpack(data[4:])
	require.NoError(t, err)
	assert.Equal(t, []common.Address{assetA, assetB}, args[0])
}

func TestDeriveKey(t *testing.T) {
	// Well-known development mnemonic; account 0 is public knowledge.
	const mnemonic = "test test test test test test test test test test test junk"

	key, err := DeriveKey(mnemonic, "")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), crypto.PubkeyToAddress(key.PublicKey))

	second, err := DeriveKey("  "+mnemonic+"\n", "m/44'/60'/0'/0/1")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"), crypto.PubkeyToAddress(second.PublicKey))

	_, err = DeriveKey("not a mnemonic", "")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSignerFromConfig(t *testing.T) {
	t.Setenv("FLAGS_TEST_MNEMONIC", "test test test test test test test test test test test junk")
	key, err := signerFromConfig(map[string]interface{}{"mnemonic_env": "FLAGS_TEST_MNEMONIC"})
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), crypto.PubkeyToAddress(key.PublicKey))

	_, err = signerFromConfig(map[string]interface{}{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
