// Package aggregate composes the reconciled document view and the normalized
// payment ledger into the single in-memory contract representation every
// presentation surface consumes.
package aggregate

import (
	"strings"

	"github.com/vistaprop/backoffice/model"
	"github.com/vistaprop/backoffice/pkg/ledger"
	"github.com/vistaprop/backoffice/pkg/reconcile"
)

// Map assembles the final contract aggregate from the raw contract, the
// document-service result and any fallback documents. Returns nil when the
// raw contract itself is absent.
func Map(raw *model.Contract, serviceDocs, fallbackDocs []reconcile.RawDocument) *model.Contract {
	if raw == nil {
		return nil
	}

	contract := *raw
	contract.AgentName = agentDisplayName(raw)
	contract.Payments = ledger.Normalize(raw.Payments)

	embedded := make([]reconcile.RawDocument, len(raw.Documents))
	for i, doc := range raw.Documents {
		embedded[i] = reconcile.ToRaw(doc)
	}
	contract.Documents = reconcile.Merge(embedded, serviceDocs, fallbackDocs)

	return &contract
}

// agentDisplayName concatenates whatever name parts are present plus the
// role label.
func agentDisplayName(c *model.Contract) string {
	parts := make([]string, 0, 3)
	if name := strings.TrimSpace(c.AgentFirstName); name != "" {
		parts = append(parts, name)
	}
	if name := strings.TrimSpace(c.AgentLastName); name != "" {
		parts = append(parts, name)
	}
	name := strings.Join(parts, " ")
	if role := strings.TrimSpace(c.AgentRole); role != "" {
		if name != "" {
			return name + " (" + role + ")"
		}
		return role
	}
	return name
}
