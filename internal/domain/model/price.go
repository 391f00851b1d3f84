package model

import "strings"

const DefaultCurrency = "USD"

// Price is an amount in minor currency units. A zero amount is free; there is
// no separate "unset" state.
type Price struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

func NewPrice(amountCents int64, currency string) Price {
	return Price{AmountCents: amountCents, Currency: NormalizeCurrency(currency)}
}

func (p Price) IsFree() bool {
	return p.AmountCents <= 0
}

func NormalizeCurrency(raw string) string {
	currency := strings.ToUpper(strings.TrimSpace(raw))
	if currency == "" {
		return DefaultCurrency
	}
	return currency
}
