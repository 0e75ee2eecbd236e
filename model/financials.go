package model

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Validation errors surfaced to the operator before any collaborator call is
// made. A failed validation never results in a partial mutation.
var (
	ErrAmountNotPositive     = errors.New("amount must be greater than zero")
	ErrCommissionNotPositive = errors.New("commission percent must be greater than zero")
	ErrUFValueRequired       = errors.New("UF reference value is required when currency is UF")
	ErrUnknownCurrency       = errors.New("currency must be CLP or UF")
)

// Financials is the editable money portion of a contract.
type Financials struct {
	Amount            float64 `json:"amount"`
	Currency          string  `json:"currency"`
	UFValue           float64 `json:"uf_value,omitempty"`
	CommissionPercent float64 `json:"commission_percent"`
}

// Validate checks the financial fields ahead of persistence.
func (f Financials) Validate() error {
	if f.Amount <= 0 {
		return ErrAmountNotPositive
	}
	if f.CommissionPercent <= 0 {
		return ErrCommissionNotPositive
	}
	switch f.Currency {
	case CurrencyCLP:
	case CurrencyUF:
		if f.UFValue <= 0 {
			return ErrUFValueRequired
		}
	default:
		return ErrUnknownCurrency
	}
	return nil
}

// CommissionAmount derives the agency commission from amount and percent.
// Decimal arithmetic keeps reported money free of float drift; the result is
// rounded to two places for CLP-denominated reporting.
func (f Financials) CommissionAmount() float64 {
	amount := decimal.NewFromFloat(f.Amount)
	percent := decimal.NewFromFloat(f.CommissionPercent)
	commission := amount.Mul(percent).Div(decimal.NewFromInt(100))
	out, _ := commission.Round(2).Float64()
	return out
}
