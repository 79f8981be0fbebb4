package priceserver

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/StrathCole/oracle-validator/pkg/logging"
	"github.com/StrathCole/oracle-validator/pkg/sources"
)

const (
	defaultDecimals = 6
	defaultQuote    = "USD"
	defaultTimeout  = 5 * time.Second
)

// Reference quantizes price server quotes to a fixed number of decimals.
// A symbol without a quote currency is looked up as SYMBOL/<quote>.
type Reference struct {
	client   Client
	decimals int32
	quote    string
	maxAge   time.Duration
	now      func() time.Time
	logger   *logging.Logger
}

var _ sources.ReferenceSource = (*Reference)(nil)

// NewReference creates a reference source over client.
func NewReference(client Client, decimals uint8, quote string, logger *logging.Logger) *Reference {
	if quote == "" {
		quote = defaultQuote
	}
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &Reference{
		client:   client,
		decimals: int32(decimals),
		quote:    strings.ToUpper(quote),
		now:      time.Now,
		logger:   logger,
	}
}

// WithMaxAge makes quotes older than maxAge count as missing. Quotes without a
// timestamp are always accepted.
func (r *Reference) WithMaxAge(maxAge time.Duration) *Reference {
	r.maxAge = maxAge
	return r
}

// Price implements sources.ReferenceSource. Missing and stale symbols report zero.
func (r *Reference) Price(ctx context.Context, symbol string) (*big.Int, error) {
	quotes, err := r.client.Quotes(ctx)
	if err != nil {
		return nil, err
	}

	want := r.pair(symbol)
	for _, q := range quotes {
		if NormalizeSymbol(q.Symbol) != want {
			continue
		}
		if q.Price.IsNegative() {
			return nil, fmt.Errorf("%w: %s=%s", ErrNegativePrice, q.Symbol, q.Price.String())
		}
		if r.maxAge > 0 && !q.Timestamp.IsZero() && r.now().Sub(q.Timestamp) > r.maxAge {
			r.logger.Warn("Stale price server quote", "pair", want, "timestamp", q.Timestamp)
			return new(big.Int), nil
		}
		return quantize(q.Price, r.decimals), nil
	}

	r.logger.Debug("Symbol not served by price server", "symbol", symbol, "pair", want)
	return new(big.Int), nil
}

func (r *Reference) pair(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if !strings.Contains(s, "/") {
		s = s + "/" + r.quote
	}
	return NormalizeSymbol(s)
}

// quantize truncates toward zero at the given scale.
func quantize(price decimal.Decimal, decimals int32) *big.Int {
	return price.Shift(decimals).Truncate(0).BigInt()
}

// NormalizeSymbol folds stablecoin quotes onto USD so "ETH/USDT" and "ETH/USD" match.
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	base, quote, ok := strings.Cut(s, "/")
	if !ok {
		return s
	}
	switch quote {
	case "USDT", "USDC", "BUSD", "DAI":
		quote = "USD"
	}
	return base + "/" + quote
}

func newReferenceFromConfig(_ context.Context, config map[string]interface{}) (sources.ReferenceSource, error) {
	url := sources.GetString(config, "url", "")
	if url == "" {
		return nil, fmt.Errorf("%w", ErrURLRequired)
	}
	decimals := sources.GetInt(config, "decimals", defaultDecimals)
	if decimals < 0 || decimals > 77 {
		return nil, fmt.Errorf("%w: decimals %d out of range", sources.ErrInvalidConfig, decimals)
	}
	timeout := defaultTimeout
	if ms := sources.GetInt(config, "timeout_ms", 0); ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}
	client := NewHTTPClient(url, timeout)
	if ms := sources.GetInt(config, "cache_ms", 0); ms > 0 {
		client.WithCacheTTL(time.Duration(ms) * time.Millisecond)
	}
	ref := NewReference(client, uint8(decimals), sources.GetString(config, "quote", defaultQuote), sources.GetLoggerFromConfig(config))
	if ms := sources.GetInt(config, "max_age_ms", 0); ms > 0 {
		ref.WithMaxAge(time.Duration(ms) * time.Millisecond)
	}
	return ref, nil
}

func init() {
	sources.RegisterReference("http", newReferenceFromConfig)
}
