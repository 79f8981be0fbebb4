package validator

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/StrathCole/oracle-validator/pkg/deviation"
	"github.com/StrathCole/oracle-validator/pkg/fixedpoint"
	"github.com/StrathCole/oracle-validator/pkg/logging"
	"github.com/StrathCole/oracle-validator/pkg/metrics"
	"github.com/StrathCole/oracle-validator/pkg/registry"
	"github.com/StrathCole/oracle-validator/pkg/sources"
)

// BindingLookup resolves the binding of an asset.
type BindingLookup interface {
	GetBinding(ctx context.Context, asset common.Address) (registry.FeedBinding, bool, error)
}

// Engine evaluates batches of assets. It holds no state between calls.
type Engine struct {
	bindings    BindingLookup
	primary     sources.PrimarySource
	concurrency int
	logger      *logging.Logger
}

// NewEngine creates an engine. A concurrency below 2 evaluates assets one by one.
func NewEngine(bindings BindingLookup, primary sources.PrimarySource, concurrency int, logger *logging.Logger) *Engine {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &Engine{
		bindings:    bindings,
		primary:     primary,
		concurrency: concurrency,
		logger:      logger,
	}
}

// ValidateBatch returns the assets whose primary price deviates from the
// reference by at least the bound tolerance, in input order. Duplicates are
// evaluated and reported once per occurrence. Any failure aborts the batch.
func (e *Engine) ValidateBatch(ctx context.Context, ref sources.ReferenceSource, assets []common.Address) ([]common.Address, error) {
	start := time.Now()

	invalid, err := e.evaluateAll(ctx, ref, assets)
	if err != nil {
		metrics.RecordBatch("error", time.Since(start))
		e.logger.Warn("Batch validation aborted", "assets", len(assets), "error", err)
		return nil, err
	}

	result := make([]common.Address, 0, len(assets))
	for i, asset := range assets {
		if invalid[i] {
			result = append(result, asset)
		}
	}

	metrics.RecordBatch("ok", time.Since(start))
	e.logger.Debug("Batch validated",
		"assets", len(assets),
		"invalid", len(result),
		"duration", time.Since(start).String())

	return result, nil
}

func (e *Engine) evaluateAll(ctx context.Context, ref sources.ReferenceSource, assets []common.Address) ([]bool, error) {
	invalid := make([]bool, len(assets))

	if e.concurrency == 1 || len(assets) < 2 {
		for i, asset := range assets {
			bad, err := e.evaluate(ctx, ref, asset)
			if err != nil {
				return nil, err
			}
			invalid[i] = bad
		}
		return invalid, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, asset := range assets {
		g.Go(func() error {
			bad, err := e.evaluate(gctx, ref, asset)
			if err != nil {
				return err
			}
			invalid[i] = bad
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return invalid, nil
}

// evaluate runs lookup, reference fetch, primary fetch, alignment and policy
// for one asset, in that order.
func (e *Engine) evaluate(ctx context.Context, ref sources.ReferenceSource, asset common.Address) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	binding, ok, err := e.bindings.GetBinding(ctx, asset)
	if err != nil {
		metrics.RecordCollaboratorError("registry")
		return false, fmt.Errorf("%w: registry: %w", ErrCollaboratorFailure, err)
	}
	if !ok {
		metrics.RecordAssetValidation("unregistered")
		return false, nil
	}

	refAnswer, err := ref.Price(ctx, binding.Symbol)
	if err != nil {
		metrics.RecordCollaboratorError("reference")
		return false, fmt.Errorf("%w: reference price for %s: %w", ErrCollaboratorFailure, binding.Symbol, err)
	}
	if refAnswer == nil {
		refAnswer = new(big.Int)
	}

	answer, decimals, err := e.primary.LatestPrice(ctx, asset)
	if err != nil {
		metrics.RecordCollaboratorError("primary")
		return false, fmt.Errorf("%w: primary answer for %s: %w", ErrCollaboratorFailure, asset.Hex(), err)
	}
	if answer == nil {
		metrics.RecordCollaboratorError("primary")
		return false, fmt.Errorf("%w: primary answer for %s is empty", ErrCollaboratorFailure, asset.Hex())
	}

	primary, err := fixedpoint.FromSigned(answer, decimals)
	if err != nil {
		return false, fmt.Errorf("primary answer for %s: %w", asset.Hex(), err)
	}
	reference, err := fixedpoint.FromSigned(refAnswer, binding.Decimals)
	if err != nil {
		return false, fmt.Errorf("reference price for %s: %w", binding.Symbol, err)
	}

	alignedPrimary, alignedReference, err := fixedpoint.Align(primary, reference)
	if err != nil {
		return false, fmt.Errorf("aligning %s: %w", asset.Hex(), err)
	}

	exceeds, err := deviation.ExceedsThreshold(alignedPrimary, alignedReference, binding.Denominator)
	if err != nil {
		return false, fmt.Errorf("evaluating %s: %w", asset.Hex(), err)
	}

	ratio, _ := deviation.Ratio(alignedPrimary, alignedReference).Float64()
	metrics.RecordDeviation(asset.Hex(), binding.Symbol, ratio)

	if exceeds {
		metrics.RecordAssetValidation("invalid")
		e.logger.Info("Price deviation exceeds tolerance",
			"asset", asset.Hex(),
			"symbol", binding.Symbol,
			"primary", primary.String(),
			"reference", reference.String(),
			"tolerance", deviation.Tolerance(binding.Denominator).String())
	} else {
		metrics.RecordAssetValidation("valid")
	}
	return exceeds, nil
}
