package model

import (
	"time"
)

// Payment statuses
const (
	PaymentPending             = "PENDING"
	PaymentPendingVerification = "PENDING_VERIFICATION"
	PaymentPaid                = "PAID"
	PaymentCancelled           = "CANCELLED"
)

// Payment types
const (
	PaymentTypeRent        = "RENT_PAYMENT"
	PaymentTypeSale        = "SALE_PAYMENT"
	PaymentTypeDeposit     = "DEPOSIT"
	PaymentTypeMaintenance = "MAINTENANCE"
	PaymentTypeUtilities   = "UTILITIES"
	PaymentTypeCommission  = "COMMISSION"
	PaymentTypeOther       = "OTHER"
)

// Payment is one entry of a contract's payment ledger. A payment without a
// server ID is a client-local draft awaiting persistence; LocalToken gives it
// a stable identity in the meantime and is never serialized.
type Payment struct {
	ID         string `json:"id,omitempty"`
	LocalToken string `json:"-"`

	Amount          float64    `json:"amount"`
	Date            string     `json:"date"`
	Type            string     `json:"type"`
	Description     string     `json:"description,omitempty"`
	IsAgencyRevenue bool       `json:"is_agency_revenue"`
	Status          string     `json:"status"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
}

// Key returns the payment's stable identity: the server ID when assigned,
// otherwise the local draft token.
func (p Payment) Key() string {
	if p.ID != "" {
		return p.ID
	}
	return p.LocalToken
}
