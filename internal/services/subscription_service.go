package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"subtrack/internal/amqp"
	"subtrack/internal/core"

	"github.com/google/uuid"
)

// Repository is the persistence the service needs.
type Repository interface {
	ListSubscriptions(ctx context.Context) ([]core.Subscription, error)
	GetSubscription(ctx context.Context, id string) (core.Subscription, error)
	CreateSubscription(ctx context.Context, sub core.Subscription) error
	UpdateSubscription(ctx context.Context, sub core.Subscription) error
	DeleteSubscription(ctx context.Context, id string) error
}

// EventPublisher announces subscription changes to other processes.
type EventPublisher interface {
	PublishSubscriptionEvent(ctx context.Context, eventType amqp.EventType, id string) error
}

// SubscriptionService validates input, assigns ids and keeps the store and
// the change feed in step. It holds no cached state.
type SubscriptionService struct {
	repo      Repository
	publisher EventPublisher
	newID     func() string
}

// NewSubscriptionService wires the service. publisher may be nil.
func NewSubscriptionService(repo Repository, publisher EventPublisher) *SubscriptionService {
	return &SubscriptionService{
		repo:      repo,
		publisher: publisher,
		newID:     uuid.NewString,
	}
}

// List returns all subscriptions ordered by name. Repository errors already
// name the failed operation and are returned as is.
func (s *SubscriptionService) List(ctx context.Context) ([]core.Subscription, error) {
	return s.repo.ListSubscriptions(ctx)
}

// Get returns one subscription or ErrNotFound.
func (s *SubscriptionService) Get(ctx context.Context, id string) (core.Subscription, error) {
	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return core.Subscription{}, ErrNotFound
		}
		return core.Subscription{}, err
	}
	return sub, nil
}

// Create validates in, stores it under a fresh id and returns the stored record.
func (s *SubscriptionService) Create(ctx context.Context, in SubscriptionInput) (core.Subscription, error) {
	if err := in.Validate(); err != nil {
		return core.Subscription{}, err
	}

	id := s.newID()
	if err := s.repo.CreateSubscription(ctx, in.toSubscription(id)); err != nil {
		return core.Subscription{}, err
	}

	created, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("reload subscription: %w", err)
	}

	slog.DebugContext(ctx, "Subscription created",
		"id", created.ID,
		"name", created.Name,
		"currency", created.Currency,
		"frequency", created.Frequency)

	s.publish(ctx, amqp.EventCreated, id)
	return created, nil
}

// Update replaces every field of the subscription with id. A missing id is
// reported before the input is looked at.
func (s *SubscriptionService) Update(ctx context.Context, id string, in SubscriptionInput) (core.Subscription, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return core.Subscription{}, err
	}
	if err := in.Validate(); err != nil {
		return core.Subscription{}, err
	}

	if err := s.repo.UpdateSubscription(ctx, in.toSubscription(id)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return core.Subscription{}, ErrNotFound
		}
		return core.Subscription{}, err
	}

	updated, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("reload subscription: %w", err)
	}

	slog.DebugContext(ctx, "Subscription updated", "id", id, "name", updated.Name)

	s.publish(ctx, amqp.EventUpdated, id)
	return updated, nil
}

// Delete removes the subscription permanently.
func (s *SubscriptionService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteSubscription(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	slog.DebugContext(ctx, "Subscription deleted", "id", id)

	s.publish(ctx, amqp.EventDeleted, id)
	return nil
}

// publish never fails the caller: the change is already stored.
func (s *SubscriptionService) publish(ctx context.Context, eventType amqp.EventType, id string) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping event", "type", eventType, "id", id)
		return
	}
	if err := s.publisher.PublishSubscriptionEvent(ctx, eventType, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish subscription event",
			"type", eventType,
			"id", id,
			"error", err)
	}
}
