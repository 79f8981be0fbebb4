package upkeep

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/StrathCole/oracle-validator/pkg/logging"
	"github.com/StrathCole/oracle-validator/pkg/metrics"
)

// Validator is the part of the validator the adapter drives.
type Validator interface {
	Check(ctx context.Context, assets []common.Address) ([]common.Address, error)
	Update(ctx context.Context, assets []common.Address) ([]common.Address, error)
}

// Adapter exposes a Validator through checkUpkeep/performUpkeep semantics.
type Adapter struct {
	validator Validator
	codec     *Codec
	logger    *logging.Logger
}

// NewAdapter creates an adapter over v.
func NewAdapter(v Validator, logger *logging.Logger) (*Adapter, error) {
	codec, err := NewCodec()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &Adapter{validator: v, codec: codec, logger: logger}, nil
}

// Codec returns the payload codec.
func (a *Adapter) Codec() *Codec {
	return a.codec
}

// CheckUpkeep decodes the asset list in payload and reports whether any of them
// is invalid, along with the encoded invalid subset. It has no side effects.
func (a *Adapter) CheckUpkeep(ctx context.Context, payload []byte) (bool, []byte, error) {
	assets, err := a.codec.Decode(payload)
	if err != nil {
		metrics.RecordUpkeep("check", "invalid_payload")
		return false, nil, err
	}

	invalid, err := a.validator.Check(ctx, assets)
	if err != nil {
		metrics.RecordUpkeep("check", "error")
		return false, nil, err
	}

	performData, err := a.codec.Encode(invalid)
	if err != nil {
		metrics.RecordUpkeep("check", "error")
		return false, nil, err
	}

	metrics.RecordUpkeep("check", "ok")
	return len(invalid) > 0, performData, nil
}

// PerformUpkeep decodes performData and runs a full update over it. Validity is
// recomputed; the check result is not trusted.
func (a *Adapter) PerformUpkeep(ctx context.Context, performData []byte) error {
	assets, err := a.codec.Decode(performData)
	if err != nil {
		metrics.RecordUpkeep("perform", "invalid_payload")
		return err
	}

	invalid, err := a.validator.Update(ctx, assets)
	if err != nil {
		metrics.RecordUpkeep("perform", "error")
		return err
	}

	metrics.RecordUpkeep("perform", "ok")
	a.logger.Debug("Upkeep performed", "assets", len(assets), "flagged", len(invalid))
	return nil
}
