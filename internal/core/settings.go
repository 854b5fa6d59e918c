package core

import (
	"errors"
	"strings"
)

var (
	ErrInvalidCurrency    = errors.New("currency code must be three letters")
	ErrEmptyPaymentMethod = errors.New("empty payment method")
)

// Currency only affects how amounts are displayed.
type Currency struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

var DefaultCurrency = Currency{Code: "USD", Symbol: "$", Name: "US Dollar"}

var DefaultPaymentMethods = []string{"Cash", "Debit Card", "Credit Card"}

func (c Currency) Validate() error {
	if len(c.Code) != 3 {
		return ErrInvalidCurrency
	}
	for _, r := range c.Code {
		if r < 'A' || r > 'Z' {
			return ErrInvalidCurrency
		}
	}
	return nil
}

// Format renders m with the currency symbol, e.g. "-$12.50".
func (c Currency) Format(m Money) string {
	symbol := c.Symbol
	if symbol == "" {
		symbol = c.Code + " "
	}
	if m.Cents < 0 {
		return "-" + symbol + m.Abs().String()
	}
	return symbol + m.String()
}

// NormalizePaymentMethods trims labels and drops blanks and case-insensitive
// duplicates, keeping first-seen order.
func NormalizePaymentMethods(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		key := strings.ToLower(l)
		if l == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}
	return out
}

// AddPaymentMethod appends label unless an equal label is already present.
func AddPaymentMethod(labels []string, label string) ([]string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return labels, ErrEmptyPaymentMethod
	}
	return NormalizePaymentMethods(append(append([]string(nil), labels...), label)), nil
}

// RemovePaymentMethod drops label, compared case-insensitively.
func RemovePaymentMethod(labels []string, label string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if !strings.EqualFold(l, strings.TrimSpace(label)) {
			out = append(out, l)
		}
	}
	return out
}
