package llm

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alt-coder/docflow/llm/cache"
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultPricing is the cost per 1k tokens used when no table is supplied.
var DefaultPricing = map[string]float64{
	"gpt-4o":        0.005,
	"gpt-4o-mini":   0.0015,
	"gpt-3.5-turbo": 0.001,
}

// Option configures a Pool.
type Option func(*Pool)

// WithCache replaces the in-memory cache with store. The pool does not close it.
func WithCache(store cache.Store) Option {
	return func(p *Pool) {
		p.cache = store
		p.ownsCache = false
	}
}

// WithLogger sets the logger for retries, rate waits and cache problems.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pool) {
		p.log = logger
	}
}

// WithClock sets the time source of the rate window, the default cache and
// response timing.
func WithClock(now func() time.Time) Option {
	return func(p *Pool) {
		if now != nil {
			p.now = now
		}
	}
}

// WithSleep replaces the context-aware sleep used for rate waits and retry backoff.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(p *Pool) {
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// WithPricing sets the cost per 1k tokens by model.
func WithPricing(pricing map[string]float64) Option {
	return func(p *Pool) {
		p.pricing = pricing
	}
}

// WithMeterProvider records pool metrics on provider instead of the global one.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(p *Pool) {
		p.meterProvider = provider
	}
}

// Pool bounds calls to a Generator. Every call goes through the response
// cache, then the rate window, then the connection gate, then retries.
type Pool struct {
	gen     Generator
	cfg     PoolConfig
	log     zerolog.Logger
	now     func() time.Time
	sleep   func(context.Context, time.Duration) error
	pricing map[string]float64

	cache     cache.Store
	ownsCache bool
	limiter   *rateWindow
	gate      *semaphore.Weighted

	meterProvider metric.MeterProvider
	metrics       *poolMetrics
	stats         stats
	closed        atomic.Bool
}

// NewPool creates a pool over gen. Unless WithCache is given, responses are
// cached in memory according to cfg.CacheSize and cfg.CacheTTL.
func NewPool(gen Generator, cfg PoolConfig, opts ...Option) (*Pool, error) {
	if gen == nil {
		return nil, ErrNoGenerator
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pool config: %w", err)
	}

	p := &Pool{
		gen:     gen,
		cfg:     cfg,
		log:     zerolog.Nop(),
		now:     time.Now,
		sleep:   sleepContext,
		pricing: DefaultPricing,
		gate:    semaphore.NewWeighted(int64(cfg.MaxConnections)),
	}
	for _, opt := range opts {
		opt(p)
	}
	// Built after options so it sees an injected clock.
	if p.cache == nil && cfg.CacheSize > 0 {
		p.cache = cache.NewMemoryStore(cache.Options{
			Capacity: cfg.CacheSize,
			TTL:      cfg.CacheTTL,
			Clock:    p.now,
		})
		p.ownsCache = true
	}
	if cfg.RateLimit > 0 {
		p.limiter = newRateWindow(cfg.RateLimit, cfg.RateWindow, p.now, p.sleep)
	}

	provider := p.meterProvider
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	metrics, err := newPoolMetrics(provider, gen.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to create pool metrics: %w", err)
	}
	p.metrics = metrics

	return p, nil
}

// Config returns the configuration the pool was built with.
func (p *Pool) Config() PoolConfig {
	return p.cfg
}

// Generate runs req through the pool. A cached answer younger than the TTL is
// returned flagged FromCache without touching the rate window or the generator.
func (p *Pool) Generate(ctx context.Context, req Request) (*Response, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}
	if req.Prompt == "" {
		return nil, ErrEmptyPrompt
	}
	req = p.withDefaults(req)
	start := p.now()

	key := p.cacheKey(req)
	if resp, ok := p.lookup(ctx, key); ok {
		p.stats.recordHit()
		p.metrics.recordOutcome(ctx, req.Model, outcomeCacheHit)
		p.log.Debug().
			Str("model", req.Model).
			Str("fingerprint", key).
			Msg("cache hit")
		return resp, nil
	}

	waited, err := p.limiter.wait(ctx)
	if err != nil {
		return nil, p.fail(ctx, req.Model, 0, fmt.Errorf("waiting for rate window: %w", err))
	}
	if waited > 0 {
		p.metrics.recordRateWait(ctx, req.Model, waited)
		p.log.Info().
			Str("model", req.Model).
			Dur("waited", waited).
			Msg("rate limit reached, call delayed")
	}

	if err := p.gate.Acquire(ctx, 1); err != nil {
		return nil, p.fail(ctx, req.Model, 0, fmt.Errorf("waiting for connection slot: %w", err))
	}
	p.metrics.inFlight.Add(ctx, 1)
	completion, attempts, err := p.callWithRetry(ctx, req)
	p.metrics.inFlight.Add(ctx, -1)
	p.gate.Release(1)
	if err != nil {
		return nil, p.fail(ctx, req.Model, attempts, err)
	}

	resp := &Response{
		Content:      completion.Content,
		Model:        req.Model,
		TokensUsed:   completion.TokensUsed,
		ResponseTime: p.now().Sub(start),
		CostEstimate: p.cost(req.Model, completion.TokensUsed),
	}
	p.store(ctx, key, resp)
	p.stats.recordSuccess(resp)
	p.metrics.recordOutcome(ctx, req.Model, outcomeSuccess)
	p.metrics.recordGenerated(ctx, req.Model, resp.TokensUsed, resp.ResponseTime)

	p.log.Debug().
		Str("model", resp.Model).
		Int("tokens", resp.TokensUsed).
		Float64("cost", resp.CostEstimate).
		Dur("elapsed", resp.ResponseTime).
		Int("attempts", attempts).
		Msg("llm call succeeded")
	return resp, nil
}

// callWithRetry makes up to MaxRetries attempts, waiting 2^attempt retry units
// between them. It returns the number of attempts made.
func (p *Pool) callWithRetry(ctx context.Context, req Request) (Completion, int, error) {
	attempts := p.cfg.MaxRetries
	if req.MaxRetries > 0 {
		attempts = req.MaxRetries
	}

	var lastErr error
	made := 0
	for attempt := 0; attempt < attempts; attempt++ {
		made = attempt + 1
		completion, err := p.attempt(ctx, req)
		if err == nil {
			return completion, made, nil
		}
		lastErr = err

		if ctx.Err() != nil || attempt == attempts-1 {
			break
		}

		wait := time.Duration(1<<attempt) * p.cfg.RetryUnit
		p.log.Warn().
			Err(err).
			Str("model", req.Model).
			Int("attempt", made).
			Int("max_attempts", attempts).
			Dur("backoff", wait).
			Msg("llm call failed, retrying")
		p.metrics.recordRetry(ctx, req.Model)
		if err := p.sleep(ctx, wait); err != nil {
			lastErr = errors.Join(lastErr, err)
			break
		}
	}
	return Completion{}, made, lastErr
}

func (p *Pool) attempt(ctx context.Context, req Request) (Completion, error) {
	if p.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.RequestTimeout)
		defer cancel()
	}
	return p.gen.Generate(ctx, req)
}

func (p *Pool) fail(ctx context.Context, model string, attempts int, err error) error {
	p.stats.recordFailure()
	p.metrics.recordOutcome(ctx, model, outcomeFailure)
	p.log.Error().
		Err(err).
		Str("model", model).
		Int("attempts", attempts).
		Msg("llm call failed")
	return &CallError{Model: model, Attempts: attempts, Err: err}
}

func (p *Pool) withDefaults(req Request) Request {
	if req.Model == "" {
		req.Model = p.cfg.DefaultModel
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = p.cfg.DefaultMaxTokens
	}
	return req
}

func (p *Pool) cost(model string, tokens int) float64 {
	perThousand, ok := p.pricing[model]
	if !ok {
		return 0
	}
	return float64(tokens) / 1000 * perThousand
}

// cacheKey returns "" when the request cannot be fingerprinted; such calls bypass the cache.
func (p *Pool) cacheKey(req Request) string {
	if p.cache == nil {
		return ""
	}
	key, err := Fingerprint(req)
	if err != nil {
		p.log.Warn().Err(err).Msg("cannot fingerprint request, skipping cache")
		return ""
	}
	return key
}

// lookup treats every cache failure as a miss.
func (p *Pool) lookup(ctx context.Context, key string) (*Response, bool) {
	if key == "" {
		return nil, false
	}
	data, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		p.log.Warn().Err(err).Str("fingerprint", key).Msg("cache lookup failed, treating as miss")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var resp Response
	if err := sonic.Unmarshal(data, &resp); err != nil {
		p.log.Warn().Err(err).Str("fingerprint", key).Msg("corrupt cache entry, treating as miss")
		return nil, false
	}
	resp.FromCache = true
	return &resp, true
}

func (p *Pool) store(ctx context.Context, key string, resp *Response) {
	if key == "" {
		return
	}
	data, err := sonic.Marshal(resp)
	if err != nil {
		p.log.Warn().Err(err).Msg("cannot encode response for cache")
		return
	}
	if err := p.cache.Set(ctx, key, data); err != nil {
		p.log.Warn().Err(err).Str("fingerprint", key).Msg("cache store failed")
	}
}

// GenerateBatch runs reqs with at most maxConcurrent in flight (<= 0 uses
// MaxConnections). Responses keep input order. Failed items are nil and
// their errors are joined, each tagged with its index.
//
// A non-nil error does not mean every response is missing: the slice is
// always len(reqs) long and callers must nil-check each element before use.
func (p *Pool) GenerateBatch(ctx context.Context, reqs []Request, maxConcurrent int) ([]*Response, error) {
	responses := make([]*Response, len(reqs))
	if len(reqs) == 0 {
		return responses, nil
	}
	if maxConcurrent <= 0 {
		maxConcurrent = p.cfg.MaxConnections
	}

	p.log.Info().
		Int("requests", len(reqs)).
		Int("concurrency", maxConcurrent).
		Msg("batch started")
	start := p.now()

	errs := make([]error, len(reqs))
	var g errgroup.Group
	g.SetLimit(maxConcurrent)
	for i, req := range reqs {
		g.Go(func() error {
			resp, err := p.Generate(ctx, req)
			if err != nil {
				errs[i] = fmt.Errorf("request %d: %w", i, err)
				return nil
			}
			responses[i] = resp
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	p.log.Info().
		Int("succeeded", len(reqs)-failed).
		Int("requests", len(reqs)).
		Dur("elapsed", p.now().Sub(start)).
		Msg("batch finished")

	return responses, errors.Join(errs...)
}

// Stats returns a snapshot of the counters. CachedItems is 0 when the cache
// is disabled or cannot be counted.
func (p *Pool) Stats(ctx context.Context) StatsSnapshot {
	snap := p.stats.snapshot()
	if p.cache != nil && !p.closed.Load() {
		n, err := p.cache.Len(ctx)
		if err != nil {
			p.log.Warn().Err(err).Msg("cannot count cached items")
		} else {
			snap.CachedItems = n
		}
	}
	return snap
}

// ClearCache drops every cached response.
func (p *Pool) ClearCache(ctx context.Context) error {
	if p.cache == nil {
		return nil
	}
	if err := p.cache.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	p.log.Info().Msg("llm cache cleared")
	return nil
}

// Close stops accepting calls. Calls already in flight finish normally.
func (p *Pool) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	if p.ownsCache && p.cache != nil {
		return p.cache.Close()
	}
	return nil
}
