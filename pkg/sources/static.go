package sources

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Answer is a signed primary answer with its decimals.
type Answer struct {
	Value    *big.Int
	Decimals uint8
}

// StaticPrimary serves primary answers from memory.
type StaticPrimary struct {
	mu      sync.RWMutex
	answers map[common.Address]Answer
}

var _ PrimarySource = (*StaticPrimary)(nil)

// NewStaticPrimary creates an empty static primary source.
func NewStaticPrimary() *StaticPrimary {
	return &StaticPrimary{answers: make(map[common.Address]Answer)}
}

// Set stores the answer for asset.
func (s *StaticPrimary) Set(asset common.Address, value *big.Int, decimals uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[asset] = Answer{Value: new(big.Int).Set(value), Decimals: decimals}
}

// LatestPrice implements PrimarySource.
func (s *StaticPrimary) LatestPrice(_ context.Context, asset common.Address) (*big.Int, uint8, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.answers[asset]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrNoPrice, asset.Hex())
	}
	return new(big.Int).Set(a.Value), a.Decimals, nil
}

// StaticReference serves reference prices from memory. Unknown symbols report zero.
type StaticReference struct {
	mu     sync.RWMutex
	prices map[string]*big.Int
}

var _ ReferenceSource = (*StaticReference)(nil)

// NewStaticReference creates an empty static reference source.
func NewStaticReference() *StaticReference {
	return &StaticReference{prices: make(map[string]*big.Int)}
}

// Set stores the price for symbol.
func (s *StaticReference) Set(symbol string, price *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[symbol] = new(big.Int).Set(price)
}

// Price implements ReferenceSource.
func (s *StaticReference) Price(_ context.Context, symbol string) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prices[symbol]
	if !ok {
		return new(big.Int), nil
	}
	return new(big.Int).Set(p), nil
}

// newStaticPrimaryFromConfig expects
//
//	answers:
//	  "0xFeed...": { answer: "10000000000", decimals: 8 }
func newStaticPrimaryFromConfig(_ context.Context, config map[string]interface{}) (PrimarySource, error) {
	src := NewStaticPrimary()
	raw, ok := config["answers"].(map[string]interface{})
	if !ok {
		return src, nil
	}
	for addr, v := range raw {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("%w: %q is not an address", ErrInvalidConfig, addr)
		}
		entry, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: answer for %s must be a map", ErrInvalidConfig, addr)
		}
		value, err := ParseBigInt(entry["answer"])
		if err != nil {
			return nil, fmt.Errorf("%w: answer for %s: %w", ErrInvalidConfig, addr, err)
		}
		decimals := GetInt(entry, "decimals", 0)
		if decimals < 0 || decimals > 255 {
			return nil, fmt.Errorf("%w: decimals for %s out of range", ErrInvalidConfig, addr)
		}
		src.Set(common.HexToAddress(addr), value, uint8(decimals))
	}
	return src, nil
}

// newStaticReferenceFromConfig expects
//
//	prices:
//	  ETH: "9500000"
func newStaticReferenceFromConfig(_ context.Context, config map[string]interface{}) (ReferenceSource, error) {
	src := NewStaticReference()
	raw, ok := config["prices"].(map[string]interface{})
	if !ok {
		return src, nil
	}
	for symbol, v := range raw {
		value, err := ParseBigInt(v)
		if err != nil {
			return nil, fmt.Errorf("%w: price for %s: %w", ErrInvalidConfig, symbol, err)
		}
		if value.Sign() < 0 {
			return nil, fmt.Errorf("%w: price for %s is negative", ErrInvalidConfig, symbol)
		}
		src.Set(symbol, value)
	}
	return src, nil
}

func init() {
	RegisterPrimary("static", newStaticPrimaryFromConfig)
	RegisterReference("static", newStaticReferenceFromConfig)
}
