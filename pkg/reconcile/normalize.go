package reconcile

import (
	"strings"
	"time"

	"github.com/vistaprop/backoffice/model"
)

// RawDocument is the loose shape document records arrive in, from either the
// contract's embedded list or the document service. The two sources flatten
// or nest reference fields differently and disagree on the type of
// `required`, so every field here is optional and weakly typed.
type RawDocument struct {
	ID         string `json:"id,omitempty"`
	DocumentID string `json:"documentId,omitempty"`

	DocumentTypeID   string        `json:"documentTypeId,omitempty"`
	DocumentTypeName string        `json:"documentTypeName,omitempty"`
	DocumentType     *RawReference `json:"documentType,omitempty"`

	PersonID   string        `json:"personId,omitempty"`
	PersonName string        `json:"personName,omitempty"`
	Person     *RawReference `json:"person,omitempty"`

	Title    string `json:"title,omitempty"`
	Notes    string `json:"notes,omitempty"`
	Required any    `json:"required,omitempty"` // bool, "true"/"false" or 0/1
	Status   string `json:"status,omitempty"`
	Uploaded bool   `json:"uploaded,omitempty"`

	MultimediaID   string        `json:"multimediaId,omitempty"`
	FileURL        string        `json:"fileUrl,omitempty"`
	FileName       string        `json:"fileName,omitempty"`
	UploadedBy     *RawReference `json:"uploadedBy,omitempty"`
	UploadedByName string        `json:"uploadedByName,omitempty"`

	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// RawReference is a nested upstream reference (document type, person,
// uploader).
type RawReference struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// record pairs a canonical document with presence flags for fields whose
// zero value is meaningful during the merge.
type record struct {
	doc         model.Document
	requiredSet bool
	statusSet   bool
}

// Normalize converts one raw record into the canonical document shape.
// Nested references are flattened, `required` is coerced to a strict bool
// (false on ambiguity) and a missing status is defaulted from the uploaded
// flag. Normalize never fails.
func Normalize(raw RawDocument) model.Document {
	return normalize(raw).doc
}

func normalize(raw RawDocument) record {
	doc := model.Document{
		ID:               strings.TrimSpace(raw.ID),
		DocumentID:       strings.TrimSpace(raw.DocumentID),
		DocumentTypeID:   strings.TrimSpace(raw.DocumentTypeID),
		DocumentTypeName: raw.DocumentTypeName,
		PersonID:         strings.TrimSpace(raw.PersonID),
		PersonName:       raw.PersonName,
		Title:            raw.Title,
		Notes:            raw.Notes,
		Status:           strings.TrimSpace(raw.Status),
		MultimediaID:     strings.TrimSpace(raw.MultimediaID),
		FileURL:          strings.TrimSpace(raw.FileURL),
		FileName:         raw.FileName,
		UploadedByName:   raw.UploadedByName,
		CreatedAt:        parseTime(raw.CreatedAt),
		UpdatedAt:        parseTime(raw.UpdatedAt),
	}

	if raw.DocumentType != nil {
		if doc.DocumentTypeID == "" {
			doc.DocumentTypeID = strings.TrimSpace(raw.DocumentType.ID)
		}
		if doc.DocumentTypeName == "" {
			doc.DocumentTypeName = raw.DocumentType.Name
		}
	}
	if raw.Person != nil {
		if doc.PersonID == "" {
			doc.PersonID = strings.TrimSpace(raw.Person.ID)
		}
		if doc.PersonName == "" {
			doc.PersonName = raw.Person.Name
		}
	}
	if raw.UploadedBy != nil && doc.UploadedByName == "" {
		doc.UploadedByName = raw.UploadedBy.Name
		if doc.UploadedByName == "" {
			doc.UploadedByName = raw.UploadedBy.Email
		}
	}

	doc.Required = coerceRequired(raw.Required)

	statusSet := doc.Status != ""
	if !statusSet {
		if raw.Uploaded {
			doc.Status = model.DocumentUploaded
		} else {
			doc.Status = model.DocumentPending
		}
	}

	applyFileInvariant(&doc)

	return record{
		doc:         doc,
		requiredSet: raw.Required != nil,
		statusSet:   statusSet,
	}
}

// coerceRequired turns the upstream required field into a strict bool.
// Accepted spellings: native bool, "true"/"false" (any case), numeric 1/0.
// Anything ambiguous is false.
func coerceRequired(v any) bool {
	switch value := v.(type) {
	case bool:
		return value
	case string:
		return strings.EqualFold(strings.TrimSpace(value), "true") || strings.TrimSpace(value) == "1"
	case float64:
		return value == 1
	case int:
		return value == 1
	}
	return false
}

// applyFileInvariant reconciles status with file presence: a file implies at
// least UPLOADED, but an explicit REJECTED or RECIBIDO stands even when a
// file is attached.
func applyFileInvariant(doc *model.Document) {
	if doc.HasFile() {
		doc.Uploaded = true
		if doc.Status == "" || doc.Status == model.DocumentPending {
			doc.Status = model.DocumentUploaded
		}
		return
	}
	doc.Uploaded = false
	if doc.Status == "" {
		doc.Status = model.DocumentPending
	}
}

// ToRaw converts a canonical document back to the raw wire shape, for
// re-feeding a merged collection through Merge or for pushing a document to
// the service.
func ToRaw(doc model.Document) RawDocument {
	raw := RawDocument{
		ID:               doc.ID,
		DocumentID:       doc.DocumentID,
		DocumentTypeID:   doc.DocumentTypeID,
		DocumentTypeName: doc.DocumentTypeName,
		PersonID:         doc.PersonID,
		PersonName:       doc.PersonName,
		Title:            doc.Title,
		Notes:            doc.Notes,
		Required:         doc.Required,
		Status:           doc.Status,
		Uploaded:         doc.Uploaded,
		MultimediaID:     doc.MultimediaID,
		FileURL:          doc.FileURL,
		FileName:         doc.FileName,
		UploadedByName:   doc.UploadedByName,
	}
	if !doc.CreatedAt.IsZero() {
		raw.CreatedAt = doc.CreatedAt.Format(time.RFC3339)
	}
	if !doc.UpdatedAt.IsZero() {
		raw.UpdatedAt = doc.UpdatedAt.Format(time.RFC3339)
	}
	return raw
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	return time.Time{}
}
