// Package reconcile merges a contract's embedded document list with the
// document service's authoritative list into one deduplicated, field-complete
// collection. The two sources describe the same logical documents with
// different identifier fields and different levels of completeness; the
// merge favors the service's fields, never drops a document that has a file
// attached, and is idempotent when re-run on its own output.
package reconcile

import (
	"github.com/google/uuid"

	"github.com/vistaprop/backoffice/model"
)

// serviceIndex is the lookup structure built over the service-side records.
// A record consumed as a match is marked used so one real document never fans
// out into duplicates.
type serviceIndex struct {
	records      []record
	byID         map[string]int
	byDocumentID map[string]int
	byTypeID     map[string][]int
	used         []bool
}

func indexService(records []record) *serviceIndex {
	idx := &serviceIndex{
		records:      records,
		byID:         make(map[string]int),
		byDocumentID: make(map[string]int),
		byTypeID:     make(map[string][]int),
		used:         make([]bool, len(records)),
	}
	for i, r := range records {
		if r.doc.ID != "" {
			if _, ok := idx.byID[r.doc.ID]; !ok {
				idx.byID[r.doc.ID] = i
			}
		}
		if r.doc.DocumentID != "" {
			if _, ok := idx.byDocumentID[r.doc.DocumentID]; !ok {
				idx.byDocumentID[r.doc.DocumentID] = i
			}
		}
		if r.doc.DocumentTypeID != "" {
			idx.byTypeID[r.doc.DocumentTypeID] = append(idx.byTypeID[r.doc.DocumentTypeID], i)
		}
	}
	return idx
}

// matcher is one step of the ranked matching chain: it proposes a service
// record position for a base record, or -1. Keeping the chain declarative
// keeps the precedence order testable on its own.
type matcher func(idx *serviceIndex, base record) int

var matchers = []matcher{
	func(idx *serviceIndex, base record) int { return idx.lookup(idx.byDocumentID, base.doc.DocumentID) },
	func(idx *serviceIndex, base record) int { return idx.lookup(idx.byID, base.doc.ID) },
	func(idx *serviceIndex, base record) int { return idx.firstUnusedOfType(base.doc.DocumentTypeID) },
	func(idx *serviceIndex, base record) int { return idx.lookup(idx.byID, base.doc.DocumentID) },
}

func (idx *serviceIndex) lookup(m map[string]int, key string) int {
	if key == "" {
		return -1
	}
	if i, ok := m[key]; ok && !idx.used[i] {
		return i
	}
	return -1
}

func (idx *serviceIndex) firstUnusedOfType(typeID string) int {
	if typeID == "" {
		return -1
	}
	for _, i := range idx.byTypeID[typeID] {
		if !idx.used[i] {
			return i
		}
	}
	return -1
}

// claim finds the best unused service record for base, marks it used and
// returns it.
func (idx *serviceIndex) claim(base record) (record, bool) {
	for _, match := range matchers {
		if i := match(idx, base); i >= 0 {
			idx.used[i] = true
			return idx.records[i], true
		}
	}
	return record{}, false
}

// leftovers returns the service records never claimed by a base record, in
// their original order.
func (idx *serviceIndex) leftovers() []record {
	var out []record
	for i, r := range idx.records {
		if !idx.used[i] {
			out = append(out, r)
		}
	}
	return out
}

// Merge reconciles the contract-embedded document list with the document
// service's list, then appends any explicitly supplied fallback documents.
// Non-list inputs degrade to empty: Merge never fails on malformed upstream
// data.
func Merge(contractDocs, serviceDocs, fallbackDocs []RawDocument) []model.Document {
	base := normalizeAll(contractDocs)
	service := normalizeAll(serviceDocs)
	fallback := normalizeAll(fallbackDocs)

	var merged []record
	if len(service) == 0 {
		// Nothing authoritative arrived; the embedded list stands as-is.
		merged = base
	} else {
		idx := indexService(service)
		merged = make([]record, 0, len(base)+len(service))
		for _, b := range base {
			if svc, ok := idx.claim(b); ok {
				merged = append(merged, mergePair(b, svc))
			} else {
				merged = append(merged, b)
			}
		}
		// Requirements tracked only by the service, not yet reflected in
		// the contract's own list.
		merged = append(merged, idx.leftovers()...)
	}

	merged = append(merged, fallback...)

	return dedupe(merged)
}

// mergePair merges one matched pair field by field. The service record wins
// wherever it has a value; the base record is the fallback. Status and the
// uploaded flag are recomputed from file presence afterwards.
func mergePair(base, svc record) record {
	out := base

	if svc.doc.ID != "" {
		out.doc.ID = svc.doc.ID
	}
	if svc.doc.DocumentID != "" {
		out.doc.DocumentID = svc.doc.DocumentID
	}
	if svc.doc.MultimediaID != "" {
		out.doc.MultimediaID = svc.doc.MultimediaID
	}
	if svc.doc.FileURL != "" {
		out.doc.FileURL = svc.doc.FileURL
	}
	if svc.doc.FileName != "" {
		out.doc.FileName = svc.doc.FileName
	}
	if svc.doc.UploadedByName != "" {
		out.doc.UploadedByName = svc.doc.UploadedByName
	}
	if svc.doc.Title != "" {
		out.doc.Title = svc.doc.Title
	}
	if svc.doc.Notes != "" {
		out.doc.Notes = svc.doc.Notes
	}
	if svc.doc.PersonID != "" {
		out.doc.PersonID = svc.doc.PersonID
	}
	if svc.doc.PersonName != "" {
		out.doc.PersonName = svc.doc.PersonName
	}
	if svc.doc.DocumentTypeID != "" {
		out.doc.DocumentTypeID = svc.doc.DocumentTypeID
	}
	if svc.doc.DocumentTypeName != "" {
		out.doc.DocumentTypeName = svc.doc.DocumentTypeName
	}
	if svc.requiredSet {
		out.doc.Required = svc.doc.Required
		out.requiredSet = true
	}
	if svc.statusSet {
		out.doc.Status = svc.doc.Status
		out.statusSet = true
	}
	if !svc.doc.CreatedAt.IsZero() {
		out.doc.CreatedAt = svc.doc.CreatedAt
	}
	if !svc.doc.UpdatedAt.IsZero() {
		out.doc.UpdatedAt = svc.doc.UpdatedAt
	}

	applyFileInvariant(&out.doc)
	return out
}

// dedupe drops records whose identity was already seen. Each record exposes
// keys in priority order (id, documentId, attachment id, and only when all
// of those are absent, the document-type id); a record with no usable key at
// all gets a unique synthetic key so unrelated keyless documents are never
// merged together.
func dedupe(records []record) []model.Document {
	seen := make(map[string]bool)
	out := make([]model.Document, 0, len(records))

	for _, r := range records {
		keys := identityKeys(r.doc)
		duplicate := false
		for _, k := range keys {
			if seen[k] {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		for _, k := range keys {
			seen[k] = true
		}
		out = append(out, r.doc)
	}
	return out
}

func identityKeys(doc model.Document) []string {
	var keys []string
	if doc.ID != "" {
		keys = append(keys, "id:"+doc.ID)
	}
	if doc.DocumentID != "" {
		keys = append(keys, "doc:"+doc.DocumentID)
	}
	if doc.MultimediaID != "" {
		keys = append(keys, "file:"+doc.MultimediaID)
	}
	if len(keys) == 0 && doc.DocumentTypeID != "" {
		keys = append(keys, "type:"+doc.DocumentTypeID)
	}
	if len(keys) == 0 {
		keys = append(keys, "anon:"+uuid.NewString())
	}
	return keys
}

func normalizeAll(raw []RawDocument) []record {
	if len(raw) == 0 {
		return nil
	}
	out := make([]record, len(raw))
	for i, r := range raw {
		out[i] = normalize(r)
	}
	return out
}
