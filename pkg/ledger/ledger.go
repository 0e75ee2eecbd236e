// Package ledger normalizes a contract's raw payment list into the form the
// back office works with: every payment gets a status and a stable identity,
// even before the backing store has persisted it.
package ledger

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/vistaprop/backoffice/model"
)

// Normalize prepares raw payments for display and mutation. Missing statuses
// default to PENDING. A payment the server has not identified yet receives a
// local-only token derived from its type, date and position plus a random
// component; a payment that already carries a server id or a token is passed
// through unchanged, so repeated normalization is stable. Normalize never
// fails: malformed amounts and dates flow through untouched for downstream
// formatting to deal with.
func Normalize(raw []model.Payment) []model.Payment {
	out := make([]model.Payment, len(raw))
	for i, p := range raw {
		if p.Status == "" {
			p.Status = model.PaymentPending
		}
		if p.ID == "" && p.LocalToken == "" {
			p.LocalToken = newLocalToken(p, i)
		}
		out[i] = p
	}
	return out
}

// SanitizeForPersist strips client-only fields before a payment collection is
// sent back to the backing store. The local token must never leak over the
// wire.
func SanitizeForPersist(payments []model.Payment) []model.Payment {
	out := make([]model.Payment, len(payments))
	for i, p := range payments {
		p.LocalToken = ""
		out[i] = p
	}
	return out
}

func newLocalToken(p model.Payment, index int) string {
	return fmt.Sprintf("local-%s-%s-%d-%s", p.Type, p.Date, index, uuid.NewString())
}
