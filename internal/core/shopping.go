package core

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrTripActive    = errors.New("a shopping trip is already active")
	ErrTripNotActive = errors.New("shopping trip is not active")
	ErrEmptyTrip     = errors.New("shopping trip has no items")
	ErrEmptyItemName = errors.New("empty item name")
)

type TripStatus string

const (
	TripActive TripStatus = "active"
	// TripCompleting marks a trip whose expense is being recorded.
	TripCompleting TripStatus = "completing"
	TripCompleted  TripStatus = "completed"
)

// DefaultShoppingCategory is used when a trip does not name a category.
const DefaultShoppingCategory = "Shopping"

type ShoppingItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price Money  `json:"price"`
}

func (i ShoppingItem) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyItemName
	}
	return i.Price.Validate()
}

// ShoppingTrip groups priced items that become a single expense when the
// trip is completed.
type ShoppingTrip struct {
	Meta
	Name          string         `json:"name"`
	Status        TripStatus     `json:"status"`
	Category      string         `json:"category,omitempty"`
	Icon          string         `json:"icon,omitempty"`
	PaymentMethod string         `json:"paymentMethod,omitempty"`
	Items         []ShoppingItem `json:"items"`
	TransactionID string         `json:"transactionId,omitempty"`
	CompletedAt   *time.Time     `json:"completedAt,omitempty"`
}

// Total is the sum of item prices.
func (t ShoppingTrip) Total() Money {
	var sum Money
	for _, it := range t.Items {
		sum = sum.Add(it.Price)
	}
	return sum
}

func (t ShoppingTrip) IsActive() bool { return t.Status == TripActive }
