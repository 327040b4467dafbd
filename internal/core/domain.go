package core

import "errors"

const (
	USD Currency = "USD"
	HNL Currency = "HNL"

	Monthly Frequency = "monthly"
	Annual  Frequency = "annual"
)

type (
	// Currency is the ISO code a subscription is billed in.
	Currency string

	// Frequency is how often a subscription is billed.
	Frequency string

	Subscription struct {
		ID          string    `json:"id" db:"id"`
		Name        string    `json:"name" db:"name"`
		Price       float64   `json:"price" db:"price"`
		Currency    Currency  `json:"currency" db:"currency"`
		Frequency   Frequency `json:"frequency" db:"frequency"`
		PaymentDate string    `json:"paymentDate" db:"paymentDate"` // YYYY-MM-DD, stored as given
	}
)

var (
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyPaymentDate = errors.New("empty payment date")
	ErrInvalidCurrency  = errors.New("invalid currency")
	ErrInvalidFrequency = errors.New("invalid frequency")
)

// Currencies lists the accepted currencies in declaration order.
func Currencies() []Currency { return []Currency{USD, HNL} }

// Frequencies lists the accepted billing frequencies in declaration order.
func Frequencies() []Frequency { return []Frequency{Monthly, Annual} }

func (c Currency) Valid() bool {
	switch c {
	case USD, HNL:
		return true
	default:
		return false
	}
}

func (f Frequency) Valid() bool {
	switch f {
	case Monthly, Annual:
		return true
	default:
		return false
	}
}

// Validate checks a stored record. Price is not range checked.
func (s Subscription) Validate() error {
	if s.Name == "" {
		return ErrEmptyName
	}
	if !s.Currency.Valid() {
		return ErrInvalidCurrency
	}
	if !s.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if s.PaymentDate == "" {
		return ErrEmptyPaymentDate
	}
	return nil
}
