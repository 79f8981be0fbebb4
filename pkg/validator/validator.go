package validator

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/StrathCole/oracle-validator/pkg/flags"
	"github.com/StrathCole/oracle-validator/pkg/logging"
	"github.com/StrathCole/oracle-validator/pkg/metrics"
	"github.com/StrathCole/oracle-validator/pkg/notify"
	"github.com/StrathCole/oracle-validator/pkg/registry"
	"github.com/StrathCole/oracle-validator/pkg/sources"
)

// Options configures a Validator.
type Options struct {
	// Owner is the credential administrative callers must present. An empty
	// owner rejects every administrative call.
	Owner string

	References map[string]sources.ReferenceSource
	Sinks      map[string]flags.Sink

	// Reference and Sink name the initially active collaborators.
	Reference string
	Sink      string

	Notifier notify.Notifier
	Logger   *logging.Logger
}

// Handles reports the active collaborators and the configured alternatives.
type Handles struct {
	Reference  string   `json:"reference"`
	Sink       string   `json:"sink"`
	References []string `json:"references"`
	Sinks      []string `json:"sinks"`
}

// Validator exposes the query, action and administrative operations.
type Validator struct {
	engine   *Engine
	registry *registry.Registry
	owner    []byte

	references map[string]sources.ReferenceSource
	sinks      map[string]flags.Sink

	mu         sync.RWMutex
	activeRef  string
	activeSink string

	notifier notify.Notifier
	logger   *logging.Logger
	now      func() time.Time
}

// New creates a Validator. The active handles must name configured collaborators.
func New(engine *Engine, reg *registry.Registry, opts Options) (*Validator, error) {
	if _, ok := opts.References[opts.Reference]; !ok {
		return nil, fmt.Errorf("%w: reference %q", ErrUnknownHandle, opts.Reference)
	}
	if _, ok := opts.Sinks[opts.Sink]; !ok {
		return nil, fmt.Errorf("%w: sink %q", ErrUnknownHandle, opts.Sink)
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNoopLogger()
	}
	return &Validator{
		engine:     engine,
		registry:   reg,
		owner:      []byte(opts.Owner),
		references: opts.References,
		sinks:      opts.Sinks,
		activeRef:  opts.Reference,
		activeSink: opts.Sink,
		notifier:   opts.Notifier,
		logger:     opts.Logger,
		now:        time.Now,
	}, nil
}

// Check returns the invalid subset of assets. It changes nothing.
func (v *Validator) Check(ctx context.Context, assets []common.Address) ([]common.Address, error) {
	v.mu.RLock()
	ref := v.references[v.activeRef]
	v.mu.RUnlock()

	return v.engine.ValidateBatch(ctx, ref, assets)
}

// Update validates assets and raises flags for the invalid ones on the active
// sink. The sink is not called when nothing is invalid.
func (v *Validator) Update(ctx context.Context, assets []common.Address) ([]common.Address, error) {
	v.mu.RLock()
	ref := v.references[v.activeRef]
	sinkName := v.activeSink
	sink := v.sinks[sinkName]
	v.mu.RUnlock()

	invalid, err := v.engine.ValidateBatch(ctx, ref, assets)
	if err != nil {
		return nil, err
	}
	if len(invalid) == 0 {
		return invalid, nil
	}

	if err := sink.Raise(ctx, invalid); err != nil {
		metrics.RecordCollaboratorError("sink")
		return nil, fmt.Errorf("%w: flag sink %s: %w", ErrCollaboratorFailure, sinkName, err)
	}
	metrics.RecordFlagsRaised(sinkName, len(invalid))

	v.logger.Info("Flags raised", "sink", sinkName, "count", len(invalid))
	v.notifier.Notify(ctx, notify.Event{
		Kind:    notify.KindFlagsRaised,
		Assets:  invalid,
		Current: sinkName,
		Time:    v.now(),
	})

	return invalid, nil
}

// SetBinding registers or overwrites the binding of asset after checking the
// active reference source has a price for the symbol.
func (v *Validator) SetBinding(ctx context.Context, caller string, asset common.Address, binding registry.FeedBinding) error {
	if err := v.authorize(caller); err != nil {
		return err
	}

	v.mu.RLock()
	ref := v.references[v.activeRef]
	v.mu.RUnlock()

	err := v.registry.SetBinding(ctx, ref, asset, binding)
	if errors.Is(err, registry.ErrReferenceUnavailable) {
		metrics.RecordCollaboratorError("reference")
		return fmt.Errorf("%w: %w", ErrCollaboratorFailure, err)
	}
	return storeFailure(err)
}

// Binding returns the binding of asset.
func (v *Validator) Binding(ctx context.Context, caller string, asset common.Address) (registry.FeedBinding, bool, error) {
	if err := v.authorize(caller); err != nil {
		return registry.FeedBinding{}, false, err
	}
	binding, ok, err := v.registry.GetBinding(ctx, asset)
	return binding, ok, storeFailure(err)
}

// Bindings returns every registered binding ordered by asset.
func (v *Validator) Bindings(ctx context.Context, caller string) ([]registry.Entry, error) {
	if err := v.authorize(caller); err != nil {
		return nil, err
	}
	entries, err := v.registry.List(ctx)
	return entries, storeFailure(err)
}

// SetReferenceSource switches the active reference source. Selecting the
// current one is a no-op.
func (v *Validator) SetReferenceSource(ctx context.Context, caller, handle string) error {
	if err := v.authorize(caller); err != nil {
		return err
	}
	if _, ok := v.references[handle]; !ok {
		return fmt.Errorf("%w: reference %q", ErrUnknownHandle, handle)
	}

	v.mu.Lock()
	previous := v.activeRef
	v.activeRef = handle
	v.mu.Unlock()

	if previous == handle {
		return nil
	}
	v.logger.Info("Reference source changed", "previous", previous, "current", handle)
	v.notifier.Notify(ctx, notify.Event{
		Kind:     notify.KindReferenceSourceSet,
		Previous: previous,
		Current:  handle,
		Time:     v.now(),
	})
	return nil
}

// SetFlagSink switches the active flag sink. Selecting the current one is a no-op.
func (v *Validator) SetFlagSink(ctx context.Context, caller, handle string) error {
	if err := v.authorize(caller); err != nil {
		return err
	}
	if _, ok := v.sinks[handle]; !ok {
		return fmt.Errorf("%w: sink %q", ErrUnknownHandle, handle)
	}

	v.mu.Lock()
	previous := v.activeSink
	v.activeSink = handle
	v.mu.Unlock()

	if previous == handle {
		return nil
	}
	v.logger.Info("Flag sink changed", "previous", previous, "current", handle)
	v.notifier.Notify(ctx, notify.Event{
		Kind:     notify.KindFlagSinkSet,
		Previous: previous,
		Current:  handle,
		Time:     v.now(),
	})
	return nil
}

// Handles returns the active and available collaborator handles.
func (v *Validator) Handles(_ context.Context, caller string) (Handles, error) {
	if err := v.authorize(caller); err != nil {
		return Handles{}, err
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return Handles{
		Reference:  v.activeRef,
		Sink:       v.activeSink,
		References: keys(v.references),
		Sinks:      keys(v.sinks),
	}, nil
}

// Authorize reports ErrUnauthorized unless caller presents the owner credential.
func (v *Validator) Authorize(caller string) error {
	return v.authorize(caller)
}

func (v *Validator) authorize(caller string) error {
	if len(v.owner) == 0 || subtle.ConstantTimeCompare(v.owner, []byte(caller)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// storeFailure reports binding store errors as collaborator failures.
func storeFailure(err error) error {
	if errors.Is(err, registry.ErrStoreFailure) {
		metrics.RecordCollaboratorError("registry")
		return fmt.Errorf("%w: %w", ErrCollaboratorFailure, err)
	}
	return err
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
