package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"subtrack/internal/core"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// ErrNotFound is returned when no subscription matches the given id.
var ErrNotFound = errors.New("subscription not found")

const (
	listSubscriptionsQuery = `
		SELECT id, name, price, currency, frequency, paymentDate
		FROM subscriptions
		ORDER BY name`

	getSubscriptionQuery = `
		SELECT id, name, price, currency, frequency, paymentDate
		FROM subscriptions
		WHERE id = ?`

	insertSubscriptionQuery = `
		INSERT INTO subscriptions (id, name, price, currency, frequency, paymentDate)
		VALUES (:id, :name, :price, :currency, :frequency, :paymentDate)`

	updateSubscriptionQuery = `
		UPDATE subscriptions
		SET name = :name, price = :price, currency = :currency, frequency = :frequency, paymentDate = :paymentDate
		WHERE id = :id`

	deleteSubscriptionQuery = `DELETE FROM subscriptions WHERE id = ?`
)

// SQLiteRepository owns the subscriptions database file.
type SQLiteRepository struct {
	db *sqlx.DB
}

// NewSQLiteRepository opens (or creates) the database at dbPath and makes
// sure the schema exists. Parent directories are created as needed.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sqlx.Open(driverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection: SQLite serializes writers anyway and this keeps
	// request handling on a single session.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListSubscriptions returns every subscription ordered by name.
func (r *SQLiteRepository) ListSubscriptions(ctx context.Context) ([]core.Subscription, error) {
	subs := []core.Subscription{}
	if err := r.db.SelectContext(ctx, &subs, listSubscriptionsQuery); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subs, nil
}

// GetSubscription returns the subscription with the given id or ErrNotFound.
func (r *SQLiteRepository) GetSubscription(ctx context.Context, id string) (core.Subscription, error) {
	var sub core.Subscription
	err := r.db.GetContext(ctx, &sub, getSubscriptionQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Subscription{}, ErrNotFound
	}
	if err != nil {
		return core.Subscription{}, fmt.Errorf("get subscription by id: %w", err)
	}
	return sub, nil
}

// CreateSubscription inserts sub. The caller assigns the id.
func (r *SQLiteRepository) CreateSubscription(ctx context.Context, sub core.Subscription) error {
	if sub.ID == "" {
		return errors.New("create subscription: empty id")
	}
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}

	if _, err := r.db.NamedExecContext(ctx, insertSubscriptionQuery, sub); err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}

	slog.DebugContext(ctx, "Subscription saved to SQLite",
		"id", sub.ID,
		"name", sub.Name,
		"currency", sub.Currency,
		"frequency", sub.Frequency)
	return nil
}

// UpdateSubscription replaces every column of the row with sub.ID.
func (r *SQLiteRepository) UpdateSubscription(ctx context.Context, sub core.Subscription) error {
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}

	res, err := r.db.NamedExecContext(ctx, updateSubscriptionQuery, sub)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}

	slog.DebugContext(ctx, "Subscription updated in SQLite", "id", sub.ID)
	return nil
}

// DeleteSubscription removes the row permanently.
func (r *SQLiteRepository) DeleteSubscription(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, deleteSubscriptionQuery, id)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}

	slog.DebugContext(ctx, "Subscription deleted from SQLite", "id", id)
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
