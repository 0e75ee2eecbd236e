package model

import (
	"time"
)

// Contract statuses
const (
	StatusInProcess = "IN_PROCESS"
	StatusOnHold    = "ON_HOLD"
	StatusClosed    = "CLOSED"
	StatusFailed    = "FAILED"
)

// Currencies
const (
	CurrencyCLP = "CLP"
	CurrencyUF  = "UF"
)

// Contract is the aggregate consumed by every back-office surface.
// Payments, Documents, People and ChangeHistory keep their insertion order;
// ChangeHistory is append-only.
type Contract struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Agency string `json:"agency"`
	Status string `json:"status"`

	Amount            float64 `json:"amount"`
	Currency          string  `json:"currency"` // CLP or UF
	UFValue           float64 `json:"uf_value,omitempty"`
	CommissionPercent float64 `json:"commission_percent"`
	CommissionAmount  float64 `json:"commission_amount"`

	AgentID        string `json:"agent_id,omitempty"`
	AgentFirstName string `json:"agent_first_name,omitempty"`
	AgentLastName  string `json:"agent_last_name,omitempty"`
	AgentRole      string `json:"agent_role,omitempty"`
	AgentName      string `json:"agent_name,omitempty"` // derived display name

	Payments      []Payment     `json:"payments"`
	Documents     []Document    `json:"documents"`
	People        []Participant `json:"people"`
	ChangeHistory []ChangeEntry `json:"change_history"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Participant links a person to a contract under a role (owner, buyer,
// tenant, guarantor).
type Participant struct {
	PersonID  string `json:"person_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}
