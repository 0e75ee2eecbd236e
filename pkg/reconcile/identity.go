package reconcile

import (
	"strings"

	"github.com/vistaprop/backoffice/model"
)

// ResolveID computes the best-available stable identifier for a document.
// Contract-embedded entries label the real identifier `documentId` while
// document-service entries label it `id`, so neither field can be assumed:
// documentId wins when present, then id, then no identity at all (empty
// string).
func ResolveID(doc model.Document) string {
	if id := strings.TrimSpace(doc.DocumentID); id != "" {
		return id
	}
	if id := strings.TrimSpace(doc.ID); id != "" {
		return id
	}
	return ""
}
