package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"subtrack/internal/amqp"
	"subtrack/internal/core"
	"subtrack/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedEvent struct {
	eventType amqp.EventType
	id        string
}

type fakePublisher struct {
	events []publishedEvent
	err    error
}

func (p *fakePublisher) PublishSubscriptionEvent(ctx context.Context, eventType amqp.EventType, id string) error {
	p.events = append(p.events, publishedEvent{eventType: eventType, id: id})
	return p.err
}

func newTestService(t *testing.T, publisher EventPublisher) *SubscriptionService {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "subscriptions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return NewSubscriptionService(repo, publisher)
}

func price(v float64) *float64 { return &v }

func validInput() SubscriptionInput {
	return SubscriptionInput{
		Name:        "Netflix",
		Price:       price(15.49),
		Currency:    core.USD,
		Frequency:   core.Monthly,
		PaymentDate: "2025-03-14",
	}
}

func TestCreateThenGet(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(t, pub)
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Netflix", created.Name)
	assert.Equal(t, 15.49, created.Price)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	require.Len(t, pub.events, 1)
	assert.Equal(t, publishedEvent{amqp.EventCreated, created.ID}, pub.events[0])
}

func TestCreateAssignsDistinctIDs(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	a, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	b, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)

	subs, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, subs, 2)
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SubscriptionInput)
		wantMsg string
	}{
		{"missing name", func(in *SubscriptionInput) { in.Name = "" }, msgMissingFields},
		{"missing price", func(in *SubscriptionInput) { in.Price = nil }, msgMissingFields},
		{"missing payment date", func(in *SubscriptionInput) { in.PaymentDate = "" }, msgMissingFields},
		{"missing currency", func(in *SubscriptionInput) { in.Currency = "" }, msgMissingFields},
		{"invalid currency", func(in *SubscriptionInput) { in.Currency = "EUR" }, msgInvalidCurrency},
		{"invalid frequency", func(in *SubscriptionInput) { in.Frequency = "weekly" }, msgInvalidFrequency},
		{
			"missing fields reported before currency",
			func(in *SubscriptionInput) {
				in.Name = ""
				in.Currency = "EUR"
			},
			msgMissingFields,
		},
		{
			"currency reported before frequency",
			func(in *SubscriptionInput) {
				in.Currency = "EUR"
				in.Frequency = "weekly"
			},
			msgInvalidCurrency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{}
			svc := newTestService(t, pub)

			in := validInput()
			tt.mutate(&in)

			_, err := svc.Create(context.Background(), in)
			require.Error(t, err)
			assert.True(t, IsValidation(err))
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.Empty(t, pub.events)
		})
	}
}

func TestCreateAllowsZeroPrice(t *testing.T) {
	svc := newTestService(t, nil)

	in := validInput()
	in.Price = price(0)

	created, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Zero(t, created.Price)
}

func TestUpdateMissingIsNotFoundForAnyPayload(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Update(ctx, "does-not-exist", validInput())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Update(ctx, "does-not-exist", SubscriptionInput{Currency: "EUR"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, IsValidation(err))
}

func TestUpdateReplacesEveryField(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(t, pub)
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, SubscriptionInput{
		Name:        "Netflix Premium",
		Price:       price(3000),
		Currency:    core.HNL,
		Frequency:   core.Annual,
		PaymentDate: "2026-01-01",
	})
	require.NoError(t, err)
	assert.Equal(t, core.Subscription{
		ID:          created.ID,
		Name:        "Netflix Premium",
		Price:       3000,
		Currency:    core.HNL,
		Frequency:   core.Annual,
		PaymentDate: "2026-01-01",
	}, updated)

	require.Len(t, pub.events, 2)
	assert.Equal(t, amqp.EventUpdated, pub.events[1].eventType)
}

func TestUpdateRequiresFullPayload(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.ID, SubscriptionInput{Name: "Only name"})
	require.Error(t, err)
	assert.Equal(t, msgMissingFields, err.Error())

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got, "rejected update must not touch the record")
}

func TestDeleteTwiceIsNotFound(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(t, pub)
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.ErrorIs(t, svc.Delete(ctx, created.ID), ErrNotFound)

	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.Len(t, pub.events, 2)
	assert.Equal(t, amqp.EventDeleted, pub.events[1].eventType)
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := newTestService(t, pub)

	created, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Len(t, pub.events, 1)
}

func TestListEmptyIsNotNil(t *testing.T) {
	svc := newTestService(t, nil)

	subs, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, subs)
	assert.Empty(t, subs)
}

func TestStorageErrorsAreNotWrappedTwice(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "subscriptions.db"))
	require.NoError(t, err)
	svc := NewSubscriptionService(repo, nil)
	require.NoError(t, repo.Close())
	ctx := context.Background()

	_, err = svc.List(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, strings.Count(err.Error(), "list subscriptions"), err.Error())

	_, err = svc.Get(ctx, "a1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, strings.Count(err.Error(), "get subscription"), err.Error())

	err = svc.Delete(ctx, "a1")
	require.Error(t, err)
	assert.Equal(t, 1, strings.Count(err.Error(), "delete subscription"), err.Error())
}
