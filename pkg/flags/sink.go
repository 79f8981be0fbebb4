package flags

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/StrathCole/oracle-validator/pkg/logging"
)

// Sink receives the invalid assets found by an update run.
type Sink interface {
	Raise(ctx context.Context, assets []common.Address) error
}

// Factory creates a sink from its config block.
type Factory func(ctx context.Context, config map[string]interface{}) (Sink, error)

var (
	factories = make(map[string]Factory)
	mu        sync.RWMutex
)

// Register adds a sink factory under a type name.
func Register(sinkType string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[sinkType] = factory
}

// New creates a sink of the given type.
func New(ctx context.Context, sinkType string, config map[string]interface{}) (Sink, error) {
	mu.RLock()
	factory, ok := factories[sinkType]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSinkType, sinkType)
	}
	if config == nil {
		config = make(map[string]interface{})
	}
	return factory(ctx, config)
}

// Types returns the registered sink types.
func Types() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Recorder keeps every raised batch in memory.
type Recorder struct {
	mu      sync.Mutex
	batches [][]common.Address
	Err     error
}

// Raise implements Sink. When Err is set it is returned and nothing is recorded.
func (r *Recorder) Raise(_ context.Context, assets []common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.batches = append(r.batches, append([]common.Address(nil), assets...))
	return nil
}

// Batches returns a copy of the recorded batches.
func (r *Recorder) Batches() [][]common.Address {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]common.Address, len(r.batches))
	copy(out, r.batches)
	return out
}

// LogSink only logs the assets it would flag.
type LogSink struct {
	logger *logging.Logger
}

// NewLogSink creates a dry-run sink.
func NewLogSink(logger *logging.Logger) *LogSink {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &LogSink{logger: logger}
}

// Raise implements Sink.
func (s *LogSink) Raise(_ context.Context, assets []common.Address) error {
	s.logger.Warn("Raising flags (dry run)", "count", len(assets), "assets", hexes(assets))
	return nil
}

func hexes(assets []common.Address) []string {
	out := make([]string, len(assets))
	for i, a := range assets {
		out[i] = a.Hex()
	}
	return out
}

func loggerFromConfig(config map[string]interface{}) *logging.Logger {
	if l, ok := config["logger"].(*logging.Logger); ok {
		return l
	}
	return logging.NewNoopLogger()
}

func init() {
	Register("log", func(_ context.Context, config map[string]interface{}) (Sink, error) {
		return NewLogSink(loggerFromConfig(config)), nil
	})
	Register("memory", func(context.Context, map[string]interface{}) (Sink, error) {
		return &Recorder{}, nil
	})
}
