package aggregate

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/StrathCole/oracle-validator/pkg/logging"
	"github.com/StrathCole/oracle-validator/pkg/metrics"
	"github.com/StrathCole/oracle-validator/pkg/sources"
)

// DefaultOutlierThreshold is the relative distance from the initial median beyond
// which a member price is discarded.
var DefaultOutlierThreshold = decimal.NewFromFloat(0.10)

// Member is a weighted reference taking part in the median.
type Member struct {
	Name   string
	Source sources.ReferenceSource
	Weight float64
}

// MedianReference returns the weighted median of its members' prices after
// rejecting outliers. Members reporting zero or failing are left out; fewer than
// quorum remaining prices is an error.
type MedianReference struct {
	members   []Member
	threshold decimal.Decimal
	quorum    int
	logger    *logging.Logger
}

var _ sources.ReferenceSource = (*MedianReference)(nil)

// NewMedianReference creates a median reference over members.
func NewMedianReference(members []Member, threshold decimal.Decimal, quorum int, logger *logging.Logger) (*MedianReference, error) {
	if len(members) == 0 {
		return nil, ErrNoMembers
	}
	if quorum < 1 {
		quorum = 1
	}
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	for i := range members {
		if members[i].Weight <= 0 {
			members[i].Weight = 1
		}
	}
	return &MedianReference{members: members, threshold: threshold, quorum: quorum, logger: logger}, nil
}

type memberPrice struct {
	name   string
	price  *big.Int
	weight float64
}

// Price implements sources.ReferenceSource.
func (m *MedianReference) Price(ctx context.Context, symbol string) (*big.Int, error) {
	var (
		mu       sync.Mutex
		prices   = make([]memberPrice, 0, len(m.members))
		failures []error
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, member := range m.members {
		g.Go(func() error {
			p, err := member.Source.Price(gctx, symbol)
			if err != nil {
				metrics.RecordCollaboratorError("reference_member")
				m.logger.Warn("Member reference failed", "member", member.Name, "symbol", symbol, "error", err)
				mu.Lock()
				failures = append(failures, fmt.Errorf("%s: %w", member.Name, err))
				mu.Unlock()
				return nil
			}
			if p == nil || p.Sign() <= 0 {
				return nil
			}
			mu.Lock()
			prices = append(prices, memberPrice{name: member.Name, price: p, weight: member.Weight})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// A zero is only reported when every member answered and none had a price.
	if len(prices) == 0 && len(failures) > 0 {
		return nil, fmt.Errorf("%w: %s: %w", ErrMembersFailed, symbol, errors.Join(failures...))
	}
	if len(prices) == 0 && m.quorum <= 1 {
		return new(big.Int), nil
	}
	if len(prices) < m.quorum {
		return nil, fmt.Errorf("%w: %s has %d of %d", ErrQuorumNotMet, symbol, len(prices), m.quorum)
	}

	sort.Slice(prices, func(i, j int) bool {
		return prices[i].price.Cmp(prices[j].price) < 0
	})

	initial := weightedMedian(prices)
	filtered := m.rejectOutliers(symbol, prices, initial)
	if len(filtered) < m.quorum {
		m.logger.Warn("Too many outliers, using all member prices", "symbol", symbol, "count", len(prices))
		filtered = prices
	}

	return weightedMedian(filtered), nil
}

func (m *MedianReference) rejectOutliers(symbol string, prices []memberPrice, median *big.Int) []memberPrice {
	if len(prices) < 3 || median.Sign() == 0 {
		return prices
	}
	mid := decimal.NewFromBigInt(median, 0)
	filtered := make([]memberPrice, 0, len(prices))
	for _, p := range prices {
		deviation := decimal.NewFromBigInt(p.price, 0).Sub(mid).Abs().Div(mid)
		if deviation.GreaterThan(m.threshold) {
			m.logger.Debug("Rejecting outlier",
				"symbol", symbol,
				"member", p.name,
				"price", p.price.String(),
				"median", median.String(),
				"deviation_pct", deviation.Mul(decimal.NewFromInt(100)).String())
			metrics.RecordOutlierRejection(symbol)
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}

// weightedMedian returns the price where the cumulative weight reaches half of
// the total. An exact half between two prices yields their floor average.
func weightedMedian(sorted []memberPrice) *big.Int {
	total := 0.0
	for _, p := range sorted {
		total += p.weight
	}
	target := total / 2
	cumulative := 0.0
	for i, p := range sorted {
		cumulative += p.weight
		if cumulative >= target {
			if cumulative == target && i+1 < len(sorted) {
				sum := new(big.Int).Add(p.price, sorted[i+1].price)
				return sum.Rsh(sum, 1)
			}
			return new(big.Int).Set(p.price)
		}
	}
	return new(big.Int).Set(sorted[len(sorted)/2].price)
}

// newMedianFromConfig expects the already built references under "references"
// (injected by the caller) and
//
//	members: [anchored, prices]            # or [{name: prices, weight: 2}]
//	outlier_threshold: 0.1
//	quorum: 2
func newMedianFromConfig(_ context.Context, config map[string]interface{}) (sources.ReferenceSource, error) {
	available, _ := config["references"].(map[string]sources.ReferenceSource)
	raw, _ := config["members"].([]interface{})
	if len(raw) == 0 {
		return nil, ErrNoMembers
	}

	members := make([]Member, 0, len(raw))
	for _, entry := range raw {
		var name string
		weight := 1.0
		switch v := entry.(type) {
		case string:
			name = v
		case map[string]interface{}:
			name = sources.GetString(v, "name", "")
			switch w := v["weight"].(type) {
			case float64:
				weight = w
			case int:
				weight = float64(w)
			}
		}
		src, ok := available[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMember, name)
		}
		members = append(members, Member{Name: name, Source: src, Weight: weight})
	}

	threshold := DefaultOutlierThreshold
	switch t := config["outlier_threshold"].(type) {
	case float64:
		threshold = decimal.NewFromFloat(t)
	case string:
		d, err := decimal.NewFromString(t)
		if err != nil {
			return nil, fmt.Errorf("%w: outlier_threshold: %w", sources.ErrInvalidConfig, err)
		}
		threshold = d
	}

	return NewMedianReference(members, threshold, sources.GetInt(config, "quorum", 1), sources.GetLoggerFromConfig(config))
}

// Type is the reference type name of the median aggregate.
const Type = "median"

func init() {
	sources.RegisterReference(Type, newMedianFromConfig)
}
