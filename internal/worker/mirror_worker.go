package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"subtrack/internal/amqp"
	"subtrack/internal/core"
	"subtrack/internal/log"
	"subtrack/internal/sheets"
)

// SubscriptionLister is the read side of the store the worker needs.
type SubscriptionLister interface {
	ListSubscriptions(ctx context.Context) ([]core.Subscription, error)
}

// MirrorWorker copies the full subscription list, with its monthly total,
// to a sheets.Mirror. Syncs never overlap.
type MirrorWorker struct {
	store        SubscriptionLister
	mirror       sheets.Mirror
	exchangeRate float64
	now          func() time.Time

	mu       sync.Mutex
	lastSync time.Time
}

func NewMirrorWorker(store SubscriptionLister, mirror sheets.Mirror, exchangeRate float64) *MirrorWorker {
	if exchangeRate <= 0 {
		exchangeRate = core.DefaultExchangeRate
	}
	return &MirrorWorker{
		store:        store,
		mirror:       mirror,
		exchangeRate: exchangeRate,
		now:          time.Now,
	}
}

// Sync reads the current list and writes it to the mirror.
func (w *MirrorWorker) Sync(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	subs, err := w.store.ListSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("read subscriptions: %w", err)
	}

	snap := sheets.NewSnapshot(subs, w.exchangeRate, w.now())
	if err := w.mirror.WriteSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	w.lastSync = snap.GeneratedAt
	slog.InfoContext(ctx, "Subscriptions mirrored",
		log.FieldOperation, log.OpSync,
		"count", len(subs),
		"monthly_total", snap.MonthlyTotal.StringFixed(2),
		"currency", snap.Currency)
	return nil
}

// HandleEvent re-mirrors after any change. The event only says that
// something changed; the store is the source of truth.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.SubscriptionEvent) error {
	slog.InfoContext(ctx, "Processing subscription event",
		"type", ev.Type,
		"id", ev.ID,
		"timestamp", ev.Timestamp)

	if err := w.Sync(ctx); err != nil {
		slog.ErrorContext(ctx, "Failed to mirror after event",
			"type", ev.Type,
			"id", ev.ID,
			"error", err)
		return err
	}
	return nil
}

// RunPeriodic syncs every interval until ctx is cancelled. Failures are
// logged and retried on the next tick.
func (w *MirrorWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.Sync(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic mirror failed",
					log.FieldOperation, log.OpSync,
					log.FieldError, err)
			}
		}
	}
}

// LastSync is the generation time of the last successful snapshot.
func (w *MirrorWorker) LastSync() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSync
}
