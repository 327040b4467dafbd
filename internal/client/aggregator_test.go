package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"subtrack/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu        sync.Mutex
	subs      []core.Subscription
	err       error
	listCalls atomic.Int32
	release   chan struct{}
	nextID    int
}

func (f *fakeBackend) List(ctx context.Context) ([]core.Subscription, error) {
	f.listCalls.Add(1)
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]core.Subscription, len(f.subs))
	copy(out, f.subs)
	return out, nil
}

func (f *fakeBackend) Create(ctx context.Context, in Input) (core.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return core.Subscription{}, f.err
	}
	f.nextID++
	sub := core.Subscription{
		ID:          string(rune('a' + f.nextID - 1)),
		Name:        in.Name,
		Price:       in.Price,
		Currency:    in.Currency,
		Frequency:   in.Frequency,
		PaymentDate: in.PaymentDate,
	}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeBackend) Update(ctx context.Context, id string, in Input) (core.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return core.Subscription{}, f.err
	}
	return core.Subscription{
		ID:          id,
		Name:        in.Name,
		Price:       in.Price,
		Currency:    in.Currency,
		Frequency:   in.Frequency,
		PaymentDate: in.PaymentDate,
	}, nil
}

func (f *fakeBackend) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sub(id, name string, price float64, c core.Currency, f core.Frequency) core.Subscription {
	return core.Subscription{ID: id, Name: name, Price: price, Currency: c, Frequency: f, PaymentDate: "2025-01-01"}
}

func TestAggregatorStartLoads(t *testing.T) {
	backend := &fakeBackend{subs: []core.Subscription{
		sub("1", "Domain", 12, core.HNL, core.Annual),
		sub("2", "Netflix", 10, core.USD, core.Monthly),
		sub("3", "Cloud", 120, core.USD, core.Annual),
	}}
	agg := NewAggregator(backend, 0, quietLogger())

	assert.Empty(t, agg.Subscriptions())
	assert.True(t, agg.MonthlyTotal().IsZero())

	select {
	case <-agg.Start(context.Background()):
	case <-time.After(2 * time.Second):
		t.Fatal("initial load did not finish")
	}

	assert.Len(t, agg.Subscriptions(), 3)
	assert.False(t, agg.Loading())
	assert.Empty(t, agg.Err())
	assert.True(t, agg.MonthlyTotal().Equal(decimal.NewFromInt(521)), agg.MonthlyTotal().String())
}

func TestAggregatorLoadFailureKeepsList(t *testing.T) {
	backend := &fakeBackend{subs: []core.Subscription{sub("1", "Netflix", 10, core.USD, core.Monthly)}}
	agg := NewAggregator(backend, 26, quietLogger())
	require.NoError(t, agg.Load(context.Background()))

	backend.err = errors.New(msgLoadFailed)
	err := agg.Load(context.Background())

	require.Error(t, err)
	assert.Equal(t, msgLoadFailed, agg.Err())
	assert.Len(t, agg.Subscriptions(), 1)
	assert.False(t, agg.Loading())
}

func TestAggregatorConcurrentLoadsShareRequest(t *testing.T) {
	backend := &fakeBackend{release: make(chan struct{})}
	agg := NewAggregator(backend, 26, quietLogger())

	var (
		wg      sync.WaitGroup
		started atomic.Int32
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started.Add(1)
			_ = agg.Load(context.Background())
		}()
	}

	require.Eventually(t, func() bool { return started.Load() == 5 && agg.Loading() }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(backend.release)
	wg.Wait()

	assert.Equal(t, int32(1), backend.listCalls.Load())
	assert.False(t, agg.Loading())
}

func TestAggregatorMutationsPatchCache(t *testing.T) {
	backend := &fakeBackend{}
	agg := NewAggregator(backend, 26, quietLogger())
	ctx := context.Background()

	created, err := agg.Add(ctx, Input{Name: "Netflix", Price: 10, Currency: core.USD, Frequency: core.Monthly, PaymentDate: "d"})
	require.NoError(t, err)
	require.Len(t, agg.Subscriptions(), 1)
	assert.True(t, agg.MonthlyTotal().Equal(decimal.NewFromInt(260)))

	_, err = agg.Update(ctx, created.ID, Input{Name: "Netflix", Price: 120, Currency: core.USD, Frequency: core.Annual, PaymentDate: "d"})
	require.NoError(t, err)
	assert.Equal(t, core.Annual, agg.Subscriptions()[0].Frequency)
	assert.True(t, agg.MonthlyTotal().Equal(decimal.NewFromInt(260)))

	_, err = agg.Update(ctx, "unknown", Input{Name: "Ghost", Price: 1, Currency: core.HNL, Frequency: core.Monthly, PaymentDate: "d"})
	require.NoError(t, err)
	assert.Len(t, agg.Subscriptions(), 1, "update of an uncached id leaves the cache alone")

	require.NoError(t, agg.Delete(ctx, created.ID))
	assert.Empty(t, agg.Subscriptions())
	assert.True(t, agg.MonthlyTotal().IsZero())
}

func TestAggregatorMutationFailure(t *testing.T) {
	backend := &fakeBackend{}
	agg := NewAggregator(backend, 26, quietLogger())
	ctx := context.Background()

	_, err := agg.Add(ctx, Input{Name: "Netflix", Price: 10, Currency: core.USD, Frequency: core.Monthly, PaymentDate: "d"})
	require.NoError(t, err)

	backend.err = &APIError{StatusCode: 404, Message: "subscription not found"}
	err = agg.Delete(ctx, "a")

	require.Error(t, err)
	assert.Equal(t, "subscription not found", agg.Err())
	assert.Len(t, agg.Subscriptions(), 1)
	assert.False(t, agg.Loading())

	backend.err = nil
	_, err = agg.Add(ctx, Input{Name: "HBO", Price: 5, Currency: core.USD, Frequency: core.Monthly, PaymentDate: "d"})
	require.NoError(t, err)
	assert.Empty(t, agg.Err(), "a new operation clears the previous error")
}

func TestAggregatorSubscriptionsIsCopy(t *testing.T) {
	backend := &fakeBackend{subs: []core.Subscription{sub("1", "Netflix", 10, core.USD, core.Monthly)}}
	agg := NewAggregator(backend, 26, quietLogger())
	require.NoError(t, agg.Load(context.Background()))

	got := agg.Subscriptions()
	got[0].Name = "mutated"

	assert.Equal(t, "Netflix", agg.Subscriptions()[0].Name)
}
