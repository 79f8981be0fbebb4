package flags

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/StrathCole/oracle-validator/pkg/logging"
)

// Flags contract write interface (raiseFlags only).
const flagsABIJSON = `[{
	"inputs": [{"internalType": "address[]", "name": "subjects", "type": "address[]"}],
	"name": "raiseFlags",
	"outputs": [],
	"stateMutability": "nonpayable",
	"type": "function"
}]`

// Backend is what the EVM sink needs from a node connection.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// EVMSink raises flags by sending raiseFlags transactions to a Flags contract.
type EVMSink struct {
	contract  *bind.BoundContract
	backend   Backend
	key       *ecdsa.PrivateKey
	chainID   *big.Int
	waitMined bool
	logger    *logging.Logger
}

// NewEVMSink binds the Flags contract at address. Transactions are signed with key.
func NewEVMSink(backend Backend, address common.Address, key *ecdsa.PrivateKey, chainID *big.Int, waitMined bool, logger *logging.Logger) (*EVMSink, error) {
	parsed, err := abi.JSON(strings.NewReader(flagsABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse flags ABI: %w", err)
	}
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &EVMSink{
		contract:  bind.NewBoundContract(address, parsed, backend, backend, backend),
		backend:   backend,
		key:       key,
		chainID:   chainID,
		waitMined: waitMined,
		logger:    logger,
	}, nil
}

// Raise implements Sink.
func (s *EVMSink) Raise(ctx context.Context, assets []common.Address) error {
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return fmt.Errorf("failed to create transactor: %w", err)
	}
	opts.Context = ctx

	tx, err := s.contract.Transact(opts, "raiseFlags", assets)
	if err != nil {
		return fmt.Errorf("failed to send raiseFlags: %w", err)
	}
	s.logger.Info("Sent raiseFlags transaction", "tx", tx.Hash().Hex(), "count", len(assets))

	if !s.waitMined {
		return nil
	}
	receipt, err := bind.WaitMined(ctx, s.backend, tx)
	if err != nil {
		return fmt.Errorf("failed waiting for raiseFlags: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: tx %s", ErrTransactionFailed, tx.Hash().Hex())
	}
	return nil
}

func newEVMFromConfig(ctx context.Context, config map[string]interface{}) (Sink, error) {
	rpcURL, _ := config["rpc_url"].(string)
	if rpcURL == "" {
		return nil, fmt.Errorf("%w: rpc_url is required", ErrInvalidConfig)
	}
	addr, _ := config["address"].(string)
	if !common.IsHexAddress(addr) {
		return nil, fmt.Errorf("%w: address %q", ErrInvalidConfig, addr)
	}
	key, err := signerFromConfig(config)
	if err != nil {
		return nil, err
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	var chainID *big.Int
	if id, ok := config["chain_id"].(int); ok && id > 0 {
		chainID = big.NewInt(int64(id))
	} else {
		chainID, err = client.ChainID(ctx)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to fetch chain id: %w", err)
		}
	}

	waitMined, _ := config["wait_mined"].(bool)
	return NewEVMSink(client, common.HexToAddress(addr), key, chainID, waitMined, loggerFromConfig(config))
}

func init() {
	Register("evm", newEVMFromConfig)
}
