package model

import (
	"strings"
	"time"
)

// Document statuses
const (
	DocumentPending  = "PENDING"
	DocumentUploaded = "UPLOADED"
	DocumentReceived = "RECIBIDO"
	DocumentRejected = "REJECTED"
)

// Document is a tracked requirement that some file will be provided for a
// contract, independent of whether a file has been attached yet. The same
// logical document can arrive from the contract's embedded list and from the
// document service with different field spellings; the reconcile package
// merges the two.
type Document struct {
	ID         string `json:"id,omitempty"`
	DocumentID string `json:"document_id,omitempty"`

	DocumentTypeID   string `json:"document_type_id,omitempty"`
	DocumentTypeName string `json:"document_type_name,omitempty"`
	PersonID         string `json:"person_id,omitempty"`
	PersonName       string `json:"person_name,omitempty"`

	Title    string `json:"title,omitempty"`
	Notes    string `json:"notes,omitempty"`
	Required bool   `json:"required"`
	Status   string `json:"status"`
	Uploaded bool   `json:"uploaded"`

	MultimediaID   string `json:"multimedia_id,omitempty"`
	FileURL        string `json:"file_url,omitempty"`
	FileName       string `json:"file_name,omitempty"`
	UploadedByName string `json:"uploaded_by_name,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// HasFile reports whether the document carries an attachment, by file id or
// resolvable URL, regardless of what its status field claims.
func (d Document) HasFile() bool {
	return strings.TrimSpace(d.MultimediaID) != "" || strings.TrimSpace(d.FileURL) != ""
}

// AttachFile records an uploaded attachment. File presence promotes a
// pending document to UPLOADED but leaves an explicit REJECTED or RECIBIDO
// status standing.
func (d *Document) AttachFile(fileID, url, name string) {
	d.MultimediaID = fileID
	d.FileURL = url
	d.FileName = name
	d.Uploaded = true
	if d.Status == "" || d.Status == DocumentPending {
		d.Status = DocumentUploaded
	}
	d.UpdatedAt = time.Now()
}
