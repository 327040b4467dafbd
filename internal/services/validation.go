package services

import (
	"errors"

	"subtrack/internal/core"

	"github.com/go-playground/validator/v10"
)

// SubscriptionInput is the caller-supplied part of a subscription. Every
// field is mandatory on both create and update.
type SubscriptionInput struct {
	Name        string         `json:"name" validate:"required"`
	Price       *float64       `json:"price" validate:"required"`
	Currency    core.Currency  `json:"currency" validate:"required,oneof=USD HNL"`
	Frequency   core.Frequency `json:"frequency" validate:"required,oneof=monthly annual"`
	PaymentDate string         `json:"paymentDate" validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks presence first, then the currency, then the frequency,
// and returns the first problem found as a *ValidationError.
func (in SubscriptionInput) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Message: err.Error()}
	}

	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			return &ValidationError{Message: msgMissingFields}
		}
	}
	for _, fe := range fieldErrs {
		if fe.Field() == "Currency" {
			return &ValidationError{Message: msgInvalidCurrency}
		}
	}
	for _, fe := range fieldErrs {
		if fe.Field() == "Frequency" {
			return &ValidationError{Message: msgInvalidFrequency}
		}
	}
	return &ValidationError{Message: fieldErrs.Error()}
}

// toSubscription builds the stored record. The input must be valid.
func (in SubscriptionInput) toSubscription(id string) core.Subscription {
	return core.Subscription{
		ID:          id,
		Name:        in.Name,
		Price:       *in.Price,
		Currency:    in.Currency,
		Frequency:   in.Frequency,
		PaymentDate: in.PaymentDate,
	}
}
