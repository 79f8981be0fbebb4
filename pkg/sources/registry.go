package sources

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// PrimaryFactory creates a primary source from its config block.
type PrimaryFactory func(ctx context.Context, config map[string]interface{}) (PrimarySource, error)

// ReferenceFactory creates a reference source from its config block.
type ReferenceFactory func(ctx context.Context, config map[string]interface{}) (ReferenceSource, error)

var (
	primaries  = make(map[string]PrimaryFactory)
	references = make(map[string]ReferenceFactory)
	mu         sync.RWMutex
)

// RegisterPrimary adds a primary source factory under a type name.
func RegisterPrimary(sourceType string, factory PrimaryFactory) {
	mu.Lock()
	defer mu.Unlock()
	primaries[sourceType] = factory
}

// RegisterReference adds a reference source factory under a type name.
func RegisterReference(sourceType string, factory ReferenceFactory) {
	mu.Lock()
	defer mu.Unlock()
	references[sourceType] = factory
}

// NewPrimary creates a primary source of the given type.
func NewPrimary(ctx context.Context, sourceType string, config map[string]interface{}) (PrimarySource, error) {
	mu.RLock()
	factory, ok := primaries[sourceType]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: primary %q", ErrUnknownSourceType, sourceType)
	}
	return factory(ctx, orEmpty(config))
}

// NewReference creates a reference source of the given type.
func NewReference(ctx context.Context, sourceType string, config map[string]interface{}) (ReferenceSource, error) {
	mu.RLock()
	factory, ok := references[sourceType]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: reference %q", ErrUnknownSourceType, sourceType)
	}
	return factory(ctx, orEmpty(config))
}

// PrimaryTypes returns the registered primary source types.
func PrimaryTypes() []string {
	mu.RLock()
	defer mu.RUnlock()
	return sortedKeys(primaries)
}

// ReferenceTypes returns the registered reference source types.
func ReferenceTypes() []string {
	mu.RLock()
	defer mu.RUnlock()
	return sortedKeys(references)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func orEmpty(config map[string]interface{}) map[string]interface{} {
	if config == nil {
		return make(map[string]interface{})
	}
	return config
}
