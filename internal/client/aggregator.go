package client

import (
	"context"
	"log/slog"
	"sync"

	"subtrack/internal/core"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Backend is the remote side of the aggregator. *API satisfies it.
type Backend interface {
	List(ctx context.Context) ([]core.Subscription, error)
	Create(ctx context.Context, in Input) (core.Subscription, error)
	Update(ctx context.Context, id string, in Input) (core.Subscription, error)
	Delete(ctx context.Context, id string) error
}

// Aggregator holds the client's copy of the subscription list together with
// loading and error state. It is safe for concurrent use.
type Aggregator struct {
	backend      Backend
	exchangeRate float64
	logger       *slog.Logger

	loads singleflight.Group

	mu       sync.RWMutex
	subs     []core.Subscription
	inflight int
	lastErr  string
}

// NewAggregator starts empty; call Start or Load to fetch. A non-positive
// exchangeRate falls back to core.DefaultExchangeRate.
func NewAggregator(backend Backend, exchangeRate float64, logger *slog.Logger) *Aggregator {
	if exchangeRate <= 0 {
		exchangeRate = core.DefaultExchangeRate
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		backend:      backend,
		exchangeRate: exchangeRate,
		logger:       logger,
		subs:         []core.Subscription{},
	}
}

// Start kicks off the initial load in the background. The returned channel
// is closed once it finishes.
func (a *Aggregator) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = a.Load(ctx)
	}()
	return done
}

// Load replaces the cached list with the server's. Concurrent calls share
// one request. A failure keeps the previous list and is recorded in Err.
func (a *Aggregator) Load(ctx context.Context) error {
	_, err, _ := a.loads.Do("list", func() (any, error) {
		a.begin()
		defer a.end()

		subs, err := a.backend.List(ctx)
		if err != nil {
			a.fail("load", err)
			return nil, err
		}

		a.mu.Lock()
		a.subs = subs
		a.mu.Unlock()
		return nil, nil
	})
	return err
}

// Add creates a subscription and appends the stored record to the cache.
func (a *Aggregator) Add(ctx context.Context, in Input) (core.Subscription, error) {
	a.begin()
	defer a.end()

	created, err := a.backend.Create(ctx, in)
	if err != nil {
		a.fail("add", err)
		return core.Subscription{}, err
	}

	a.mu.Lock()
	a.subs = append(a.subs, created)
	a.mu.Unlock()
	return created, nil
}

// Update replaces the subscription with id, patching the cached entry if
// present.
func (a *Aggregator) Update(ctx context.Context, id string, in Input) (core.Subscription, error) {
	a.begin()
	defer a.end()

	updated, err := a.backend.Update(ctx, id, in)
	if err != nil {
		a.fail("update", err)
		return core.Subscription{}, err
	}

	a.mu.Lock()
	for i := range a.subs {
		if a.subs[i].ID == id {
			a.subs[i] = updated
			break
		}
	}
	a.mu.Unlock()
	return updated, nil
}

// Delete removes the subscription with id and drops it from the cache.
func (a *Aggregator) Delete(ctx context.Context, id string) error {
	a.begin()
	defer a.end()

	if err := a.backend.Delete(ctx, id); err != nil {
		a.fail("delete", err)
		return err
	}

	a.mu.Lock()
	kept := make([]core.Subscription, 0, len(a.subs))
	for _, s := range a.subs {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	a.subs = kept
	a.mu.Unlock()
	return nil
}

// MonthlyTotal is the cached list normalized to HNL per month.
func (a *Aggregator) MonthlyTotal() decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return core.MonthlyTotal(a.subs, a.exchangeRate)
}

// ExchangeRate is the USD to HNL rate used by MonthlyTotal.
func (a *Aggregator) ExchangeRate() float64 {
	return a.exchangeRate
}

// Subscriptions returns a copy of the cached list.
func (a *Aggregator) Subscriptions() []core.Subscription {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]core.Subscription, len(a.subs))
	copy(out, a.subs)
	return out
}

// Loading reports whether an operation is in flight.
func (a *Aggregator) Loading() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.inflight > 0
}

// Err is the message of the last failed operation, or "" after a success
// started since.
func (a *Aggregator) Err() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastErr
}

func (a *Aggregator) begin() {
	a.mu.Lock()
	a.inflight++
	a.lastErr = ""
	a.mu.Unlock()
}

func (a *Aggregator) end() {
	a.mu.Lock()
	a.inflight--
	a.mu.Unlock()
}

func (a *Aggregator) fail(op string, err error) {
	a.mu.Lock()
	a.lastErr = err.Error()
	a.mu.Unlock()
	a.logger.Error("Subscription "+op+" failed", "error", err)
}
