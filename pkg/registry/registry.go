package registry

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/StrathCole/oracle-validator/pkg/logging"
	"github.com/StrathCole/oracle-validator/pkg/metrics"
	"github.com/StrathCole/oracle-validator/pkg/notify"
)

// FeedBinding ties a primary feed to its symbol in the reference source.
// The allowed deviation is 1/Denominator of the primary price.
type FeedBinding struct {
	Symbol      string `json:"symbol"`
	Decimals    uint8  `json:"decimals"`
	Denominator uint32 `json:"denominator"`
}

// Registered reports whether the binding is live. A zero denominator means absent.
func (b FeedBinding) Registered() bool {
	return b.Denominator != 0
}

// Entry is a binding together with the asset it belongs to.
type Entry struct {
	Asset   common.Address `json:"asset"`
	Binding FeedBinding    `json:"binding"`
}

// Store persists bindings. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, asset common.Address) (FeedBinding, bool, error)
	Put(ctx context.Context, asset common.Address, binding FeedBinding) error
	List(ctx context.Context) ([]Entry, error)
}

// ReferencePricer is the part of the reference source the registry needs for its
// registration sanity check.
type ReferencePricer interface {
	Price(ctx context.Context, symbol string) (*big.Int, error)
}

// Registry is the owner-mutated binding store. It performs no caching: every
// lookup goes to the Store.
type Registry struct {
	store    Store
	notifier notify.Notifier
	logger   *logging.Logger
	now      func() time.Time
}

// New creates a registry over the given store.
func New(store Store, notifier notify.Notifier, logger *logging.Logger) *Registry {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &Registry{
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// SetBinding validates and stores a binding, overwriting any previous one.
// Rejected registrations leave the store untouched.
func (r *Registry) SetBinding(ctx context.Context, ref ReferencePricer, asset common.Address, binding FeedBinding) error {
	binding.Symbol = strings.TrimSpace(binding.Symbol)

	if binding.Denominator == 0 {
		metrics.RecordRegistryWrite("invalid_tolerance")
		return fmt.Errorf("%w: asset %s", ErrInvalidTolerance, asset.Hex())
	}
	if binding.Symbol == "" {
		metrics.RecordRegistryWrite("empty_symbol")
		return fmt.Errorf("%w: asset %s", ErrEmptySymbol, asset.Hex())
	}

	price, err := ref.Price(ctx, binding.Symbol)
	if err != nil {
		metrics.RecordRegistryWrite("reference_error")
		return fmt.Errorf("%w: symbol %s: %w", ErrReferenceUnavailable, binding.Symbol, err)
	}
	if price == nil || price.Sign() == 0 {
		metrics.RecordRegistryWrite("invalid_reference_price")
		return fmt.Errorf("%w: symbol %s", ErrInvalidReferencePrice, binding.Symbol)
	}

	if err := r.store.Put(ctx, asset, binding); err != nil {
		metrics.RecordRegistryWrite("store_error")
		return fmt.Errorf("%w: storing binding for %s: %w", ErrStoreFailure, asset.Hex(), err)
	}
	metrics.RecordRegistryWrite("ok")

	r.logger.Debug("Binding stored",
		"asset", asset.Hex(),
		"symbol", binding.Symbol,
		"decimals", binding.Decimals,
		"denominator", binding.Denominator)

	a := asset
	r.notifier.Notify(ctx, notify.Event{
		Kind:        notify.KindBindingSet,
		Asset:       &a,
		Symbol:      binding.Symbol,
		Decimals:    binding.Decimals,
		Denominator: binding.Denominator,
		Time:        r.now(),
	})

	return nil
}

// GetBinding returns the binding for asset. A stored binding with a zero
// denominator is reported as absent.
func (r *Registry) GetBinding(ctx context.Context, asset common.Address) (FeedBinding, bool, error) {
	binding, ok, err := r.store.Get(ctx, asset)
	if err != nil {
		return FeedBinding{}, false, fmt.Errorf("%w: loading binding for %s: %w", ErrStoreFailure, asset.Hex(), err)
	}
	if !ok || !binding.Registered() {
		return FeedBinding{}, false, nil
	}
	return binding, true, nil
}

// List returns every registered binding ordered by asset.
func (r *Registry) List(ctx context.Context) ([]Entry, error) {
	entries, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing bindings: %w", ErrStoreFailure, err)
	}
	result := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Binding.Registered() {
			result = append(result, e)
		}
	}
	return result, nil
}

// Assets returns the asset of every registered binding ordered by asset.
func (r *Registry) Assets(ctx context.Context) ([]common.Address, error) {
	entries, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	assets := make([]common.Address, len(entries))
	for i, e := range entries {
		assets[i] = e.Asset
	}
	return assets, nil
}
