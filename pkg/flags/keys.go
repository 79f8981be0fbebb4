package flags

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/cosmos/cosmos-sdk/crypto/hd"
	"github.com/cosmos/go-bip39"
	"github.com/ethereum/go-ethereum/crypto"
)

// DefaultHDPath is the first account of the standard Ethereum derivation.
const DefaultHDPath = "m/44'/60'/0'/0/0"

// DeriveKey derives a secp256k1 signing key from a BIP39 mnemonic along hdPath.
// An empty hdPath uses DefaultHDPath.
func DeriveKey(mnemonic, hdPath string) (*ecdsa.PrivateKey, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("%w: invalid mnemonic", ErrInvalidConfig)
	}
	if hdPath == "" {
		hdPath = DefaultHDPath
	}

	seed := bip39.NewSeed(mnemonic, "")
	master, ch := hd.ComputeMastersFromSeed(seed)

	priv, err := hd.DerivePrivateKeyForPath(master, ch, hdPath)
	if err != nil {
		return nil, fmt.Errorf("%w: hd path %s: %w", ErrInvalidConfig, hdPath, err)
	}
	return crypto.ToECDSA(priv)
}

// loadKey reads a hex private key from the named environment variable.
func loadKey(env string) (*ecdsa.PrivateKey, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(os.Getenv(env)), "0x")
	if raw == "" {
		return nil, fmt.Errorf("%w: %s is not set", ErrInvalidConfig, env)
	}
	key, err := crypto.HexToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, env, err)
	}
	return key, nil
}

// signerFromConfig loads the key named by private_key_env, or derives it from
// the mnemonic in mnemonic_env along hd_path.
func signerFromConfig(config map[string]interface{}) (*ecdsa.PrivateKey, error) {
	if env, _ := config["private_key_env"].(string); env != "" {
		return loadKey(env)
	}
	if env, _ := config["mnemonic_env"].(string); env != "" {
		mnemonic := os.Getenv(env)
		if mnemonic == "" {
			return nil, fmt.Errorf("%w: %s is not set", ErrInvalidConfig, env)
		}
		hdPath, _ := config["hd_path"].(string)
		return DeriveKey(mnemonic, hdPath)
	}
	return nil, fmt.Errorf("%w: private_key_env or mnemonic_env is required", ErrInvalidConfig)
}
