// Package notify carries change notifications raised by administrative and flagging operations.
package notify

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/StrathCole/oracle-validator/pkg/logging"
)

// Kind names the change being reported.
type Kind string

const (
	KindBindingSet         Kind = "binding_set"
	KindReferenceSourceSet Kind = "reference_source_set"
	KindFlagSinkSet        Kind = "flag_sink_set"
	KindFlagsRaised        Kind = "flags_raised"
)

// Kinds lists every notification kind.
func Kinds() []Kind {
	return []Kind{KindBindingSet, KindReferenceSourceSet, KindFlagSinkSet, KindFlagsRaised}
}

// Event is a single change notification.
type Event struct {
	Kind        Kind             `json:"kind"`
	Asset       *common.Address  `json:"asset,omitempty"`
	Assets      []common.Address `json:"assets,omitempty"`
	Symbol      string           `json:"symbol,omitempty"`
	Decimals    uint8            `json:"decimals,omitempty"`
	Denominator uint32           `json:"denominator,omitempty"`
	Previous    string           `json:"previous,omitempty"`
	Current     string           `json:"current,omitempty"`
	Time        time.Time        `json:"time"`
}

// Notifier receives change notifications. Implementations must not block for long;
// notifications are not load-bearing for validation.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Nop discards every event.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Event) {}

// Multi fans an event out to several notifiers.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, event Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, event)
		}
	}
}

// LogNotifier writes events to a logger.
type LogNotifier struct {
	logger *logging.Logger
}

// NewLogNotifier creates a notifier backed by the given logger.
func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, event Event) {
	fields := []interface{}{"kind", string(event.Kind)}
	if event.Asset != nil {
		fields = append(fields, "asset", event.Asset.Hex())
	}
	if len(event.Assets) > 0 {
		fields = append(fields, "assets", event.Assets)
	}
	if event.Symbol != "" {
		fields = append(fields, "symbol", event.Symbol, "decimals", event.Decimals, "denominator", event.Denominator)
	}
	if event.Current != "" || event.Previous != "" {
		fields = append(fields, "previous", event.Previous, "current", event.Current)
	}
	n.logger.Info("Change notification", fields...)
}

// Recorder keeps events in memory.
type Recorder struct {
	Events []Event
}

// Notify implements Notifier.
func (r *Recorder) Notify(_ context.Context, event Event) {
	r.Events = append(r.Events, event)
}
