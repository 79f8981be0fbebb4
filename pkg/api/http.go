// Package api provides the HTTP and WebSocket endpoints of the validator.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/time/rate"

	"github.com/StrathCole/oracle-validator/pkg/logging"
	"github.com/StrathCole/oracle-validator/pkg/metrics"
	"github.com/StrathCole/oracle-validator/pkg/registry"
	"github.com/StrathCole/oracle-validator/pkg/validator"
	"github.com/StrathCole/oracle-validator/pkg/version"
)

const maxBodyBytes = 1 << 20

// Validator is the validator surface served over HTTP.
type Validator interface {
	Check(ctx context.Context, assets []common.Address) ([]common.Address, error)
	Update(ctx context.Context, assets []common.Address) ([]common.Address, error)
	SetBinding(ctx context.Context, caller string, asset common.Address, binding registry.FeedBinding) error
	Binding(ctx context.Context, caller string, asset common.Address) (registry.FeedBinding, bool, error)
	Bindings(ctx context.Context, caller string) ([]registry.Entry, error)
	SetReferenceSource(ctx context.Context, caller, handle string) error
	SetFlagSink(ctx context.Context, caller, handle string) error
	Handles(ctx context.Context, caller string) (validator.Handles, error)
	Authorize(caller string) error
}

// Upkeep is the check/perform surface served over HTTP.
type Upkeep interface {
	CheckUpkeep(ctx context.Context, payload []byte) (bool, []byte, error)
	PerformUpkeep(ctx context.Context, performData []byte) error
}

// Options configures a Server.
type Options struct {
	Addr string
	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert        string
	TLSKey         string
	RequestTimeout time.Duration
	// RateLimit is the sustained requests per second allowed per client IP. Zero disables limiting.
	RateLimit float64
	RateBurst int
	Events    *EventHub
	Logger    *logging.Logger
}

// Server represents the HTTP API server.
type Server struct {
	addr      string
	tlsCert   string
	tlsKey    string
	validator Validator
	upkeep    Upkeep
	events    *EventHub
	timeout   time.Duration
	limiter   *clientLimiter
	server    *http.Server
	logger    *logging.Logger
}

// NewServer creates a new HTTP API server.
func NewServer(v Validator, u Upkeep, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logging.NewNoopLogger()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	s := &Server{
		addr:      opts.Addr,
		tlsCert:   opts.TLSCert,
		tlsKey:    opts.TLSKey,
		validator: v,
		upkeep:    u,
		events:    opts.Events,
		timeout:   opts.RequestTimeout,
		logger:    opts.Logger,
	}
	if opts.RateLimit > 0 {
		s.limiter = newClientLimiter(rate.Limit(opts.RateLimit), opts.RateBurst)
		go s.limiter.run()
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.route(mux, "GET /health", s.handleHealth)
	s.route(mux, "POST /v1/check", s.handleCheck)
	s.route(mux, "POST /v1/update", s.handleUpdate)
	s.route(mux, "POST /v1/upkeep/check", s.handleUpkeepCheck)
	s.route(mux, "POST /v1/upkeep/perform", s.handleUpkeepPerform)
	s.route(mux, "GET /v1/bindings", s.handleBindings)
	s.route(mux, "GET /v1/bindings/{asset}", s.handleGetBinding)
	s.route(mux, "PUT /v1/bindings/{asset}", s.handleSetBinding)
	s.route(mux, "GET /v1/handles", s.handleHandles)
	s.route(mux, "PUT /v1/handles/reference", s.handleSetReference)
	s.route(mux, "PUT /v1/handles/sink", s.handleSetSink)
	if s.events != nil {
		mux.HandleFunc("GET /v1/events", s.handleEvents)
	}
	return mux
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.timeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	var err error
	if s.tlsCert != "" && s.tlsKey != "" {
		s.logger.Info("Starting HTTPS server", "addr", s.addr)
		err = s.server.ListenAndServeTLS(s.tlsCert, s.tlsKey)
	} else {
		s.logger.Info("Starting HTTP server", "addr", s.addr)
		err = s.server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server and the limiter sweep.
func (s *Server) Stop(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.stop()
	}
	if s.server != nil {
		s.logger.Info("Stopping HTTP server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

// route registers handler behind rate limiting, a request timeout and metrics.
func (s *Server) route(mux *http.ServeMux, pattern string, handler http.HandlerFunc) {
	endpoint := pattern[strings.Index(pattern, " ")+1:]
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			metrics.RecordHTTPRequest(endpoint, strconv.Itoa(rec.status), time.Since(start))
		}()

		if s.limiter != nil && !s.limiter.allow(clientIP(r)) {
			s.sendError(rec, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		handler(rec, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// handleHealth handles /health endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version.Version})
}

type assetsRequest struct {
	Assets []string `json:"assets"`
}

type invalidResponse struct {
	Invalid []common.Address `json:"invalid"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	assets, err := decodeAssets(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	invalid, err := s.validator.Check(r.Context(), assets)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, invalidResponse{Invalid: invalid})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	assets, err := decodeAssets(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	invalid, err := s.validator.Update(r.Context(), assets)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, invalidResponse{Invalid: invalid})
}

type upkeepCheckRequest struct {
	Payload string `json:"payload"`
}

type upkeepCheckResponse struct {
	NeedsAction bool          `json:"needs_action"`
	PerformData hexutil.Bytes `json:"perform_data"`
}

type upkeepPerformRequest struct {
	PerformData string `json:"perform_data"`
}

func (s *Server) handleUpkeepCheck(w http.ResponseWriter, r *http.Request) {
	var req upkeepCheckRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	payload, err := decodeHex(req.Payload)
	if err != nil {
		s.fail(w, err)
		return
	}
	needed, performData, err := s.upkeep.CheckUpkeep(r.Context(), payload)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, upkeepCheckResponse{NeedsAction: needed, PerformData: performData})
}

func (s *Server) handleUpkeepPerform(w http.ResponseWriter, r *http.Request) {
	var req upkeepPerformRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	performData, err := decodeHex(req.PerformData)
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := s.upkeep.PerformUpkeep(r.Context(), performData); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bindingBody struct {
	Asset       *common.Address `json:"asset,omitempty"`
	Symbol      string          `json:"symbol"`
	Decimals    uint8           `json:"decimals"`
	Denominator uint32          `json:"denominator"`
}

func toBody(asset common.Address, b registry.FeedBinding) bindingBody {
	return bindingBody{Asset: &asset, Symbol: b.Symbol, Decimals: b.Decimals, Denominator: b.Denominator}
}

func (s *Server) handleBindings(w http.ResponseWriter, r *http.Request) {
	entries, err := s.validator.Bindings(r.Context(), bearer(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	out := make([]bindingBody, len(entries))
	for i, e := range entries {
		out[i] = toBody(e.Asset, e.Binding)
	}
	s.sendJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetBinding(w http.ResponseWriter, r *http.Request) {
	asset, err := parseAsset(r.PathValue("asset"))
	if err != nil {
		s.fail(w, err)
		return
	}
	binding, ok, err := s.validator.Binding(r.Context(), bearer(r), asset)
	if err != nil {
		s.fail(w, err)
		return
	}
	if !ok {
		s.fail(w, fmt.Errorf("%w: binding for %s", ErrNotFound, asset.Hex()))
		return
	}
	s.sendJSON(w, http.StatusOK, toBody(asset, binding))
}

func (s *Server) handleSetBinding(w http.ResponseWriter, r *http.Request) {
	asset, err := parseAsset(r.PathValue("asset"))
	if err != nil {
		s.fail(w, err)
		return
	}
	var req bindingBody
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	binding := registry.FeedBinding{Symbol: req.Symbol, Decimals: req.Decimals, Denominator: req.Denominator}
	if err := s.validator.SetBinding(r.Context(), bearer(r), asset, binding); err != nil {
		s.fail(w, err)
		return
	}
	binding.Symbol = strings.TrimSpace(binding.Symbol)
	s.sendJSON(w, http.StatusOK, toBody(asset, binding))
}

type handleRequest struct {
	Handle string `json:"handle"`
}

func (s *Server) handleHandles(w http.ResponseWriter, r *http.Request) {
	handles, err := s.validator.Handles(r.Context(), bearer(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, handles)
}

func (s *Server) handleSetReference(w http.ResponseWriter, r *http.Request) {
	s.setHandle(w, r, s.validator.SetReferenceSource)
}

func (s *Server) handleSetSink(w http.ResponseWriter, r *http.Request) {
	s.setHandle(w, r, s.validator.SetFlagSink)
}

func (s *Server) setHandle(w http.ResponseWriter, r *http.Request, set func(ctx context.Context, caller, handle string) error) {
	var req handleRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	if err := set(r.Context(), bearer(r), req.Handle); err != nil {
		s.fail(w, err)
		return
	}
	s.handleHandles(w, r)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if err := s.validator.Authorize(bearer(r)); err != nil {
		s.fail(w, err)
		return
	}
	s.events.ServeHTTP(w, r)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

func decodeAssets(r *http.Request) ([]common.Address, error) {
	var req assetsRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	assets := make([]common.Address, len(req.Assets))
	for i, a := range req.Assets {
		asset, err := parseAsset(a)
		if err != nil {
			return nil, err
		}
		assets[i] = asset
	}
	return assets, nil
}

func parseAsset(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAsset, s)
	}
	return common.HexToAddress(s), nil
}

func decodeHex(s string) ([]byte, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return b, nil
}

// bearer extracts the caller credential from the Authorization header.
func bearer(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "status", status, "error", err)
	} else {
		s.logger.Debug("Request rejected", "status", status, "error", err)
	}
	s.sendError(w, status, err)
}

func (s *Server) sendError(w http.ResponseWriter, status int, err error) {
	s.sendJSON(w, status, map[string]string{"error": err.Error()})
}

// sendJSON sends a JSON response.
func (s *Server) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}

const (
	// staleLimiterTTL is how long a client's limiter may stay idle before it is dropped.
	staleLimiterTTL = 10 * time.Minute
	limiterSweep    = time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter keeps one token bucket per client IP and sweeps idle ones.
type clientLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*limiterEntry
	now      func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

func newClientLimiter(limit rate.Limit, burst int) *clientLimiter {
	if burst < 1 {
		burst = 1
	}
	return &clientLimiter{
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*limiterEntry),
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

func (c *clientLimiter) allow(client string) bool {
	c.mu.Lock()
	e, ok := c.limiters[client]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.limiters[client] = e
	}
	e.lastSeen = c.now()
	c.mu.Unlock()
	return e.limiter.Allow()
}

// run sweeps idle limiters until stop is called.
func (c *clientLimiter) run() {
	ticker := time.NewTicker(limiterSweep)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.evictStale()
		}
	}
}

func (c *clientLimiter) evictStale() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for client, e := range c.limiters {
		if now.Sub(e.lastSeen) > staleLimiterTTL {
			delete(c.limiters, client)
		}
	}
}

func (c *clientLimiter) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.limiters)
}

func (c *clientLimiter) stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
