package priceserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StrathCole/oracle-validator/pkg/sources"
)

func newServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/prices", r.URL.Path)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestReferencePrice(t *testing.T) {
	srv := newServer(t, http.StatusOK, `[
		{"symbol": "ETH/USDT", "price": "9.5", "source": "binance"},
		{"symbol": "BTC/USD", "price": 64000.123456789},
		{"symbol": "BAD/USD", "price": "-1"}
	]`)
	ref := NewReference(NewHTTPClient(srv.URL, time.Second), 6, "", nil)
	ctx := context.Background()

	tests := []struct {
		symbol string
		want   string
	}{
		{"ETH", "9500000"},
		{"eth/usd", "9500000"},
		{"BTC", "64000123456"},
		{"LUNC", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			p, err := ref.Price(ctx, tt.symbol)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.String())
		})
	}

	_, err := ref.Price(ctx, "BAD")
	assert.ErrorIs(t, err, ErrNegativePrice)
}

func TestReferenceServerError(t *testing.T) {
	srv := newServer(t, http.StatusServiceUnavailable, "down")
	ref := NewReference(NewHTTPClient(srv.URL, time.Second), 6, "USD", nil)

	_, err := ref.Price(context.Background(), "ETH")
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "ETH/USD", NormalizeSymbol(" eth/usdc "))
	assert.Equal(t, "ETH/EUR", NormalizeSymbol("ETH/EUR"))
	assert.Equal(t, "ETH", NormalizeSymbol("eth"))
}

func TestFactory(t *testing.T) {
	ctx := context.Background()
	_, err := sources.NewReference(ctx, "http", map[string]interface{}{})
	assert.ErrorIs(t, err, ErrURLRequired)

	srv := newServer(t, http.StatusOK, `[{"symbol":"ETH/USD","price":"9.5"}]`)
	ref, err := sources.NewReference(ctx, "http", map[string]interface{}{"url": srv.URL, "decimals": 2})
	require.NoError(t, err)
	p, err := ref.Price(ctx, "ETH")
	require.NoError(t, err)
	assert.Equal(t, "950", p.String())
}

func TestClientCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Contains(t, r.Header.Get("User-Agent"), "oracle-validator/")
		_, _ = w.Write([]byte(`[{"symbol":"ETH/USD","price":"9.5"}]`))
	}))
	t.Cleanup(srv.Close)

	now := time.Unix(1_700_000_000, 0)
	client := NewHTTPClient(srv.URL, time.Second).WithCacheTTL(time.Minute)
	client.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		quotes, err := client.Quotes(ctx)
		require.NoError(t, err)
		require.Len(t, quotes, 1)
	}
	assert.EqualValues(t, 1, hits.Load())

	now = now.Add(2 * time.Minute)
	_, err := client.Quotes(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, hits.Load())
}

func TestReferenceMaxAge(t *testing.T) {
	srv := newServer(t, http.StatusOK, `[
		{"symbol":"ETH/USD","price":"9.5","timestamp":"2024-01-01T00:00:00Z"},
		{"symbol":"BTC/USD","price":"64000","timestamp":"2024-01-01T00:09:30Z"},
		{"symbol":"SOL/USD","price":"150"}
	]`)
	ref := NewReference(NewHTTPClient(srv.URL, time.Second), 0, "USD", nil).WithMaxAge(time.Minute)
	ref.now = func() time.Time { return time.Date(2024, 1, 1, 0, 10, 0, 0, time.UTC) }
	ctx := context.Background()

	p, err := ref.Price(ctx, "ETH")
	require.NoError(t, err)
	assert.Equal(t, "0", p.String())

	p, err = ref.Price(ctx, "BTC")
	require.NoError(t, err)
	assert.Equal(t, "64000", p.String())

	p, err = ref.Price(ctx, "SOL")
	require.NoError(t, err)
	assert.Equal(t, "150", p.String())
}
