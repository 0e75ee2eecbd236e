package model

import (
	"time"
)

// Change-history action tags
const (
	ActionStatusChanged    = "STATUS_CHANGED"
	ActionFinancialsEdited = "FINANCIALS_EDITED"
	ActionPaymentAdded     = "PAYMENT_ADDED"
	ActionPaymentUpdated   = "PAYMENT_UPDATED"
	ActionDocumentCreated  = "DOCUMENT_CREATED"
	ActionDocumentUploaded = "DOCUMENT_UPLOADED"
	ActionDocumentDeleted  = "DOCUMENT_DELETED"
	ActionRequiredToggled  = "REQUIRED_TOGGLED"
)

// FieldChange records one field's previous and new value.
type FieldChange struct {
	Field    string `json:"field"`
	Previous string `json:"previous"`
	New      string `json:"new"`
}

// ChangeEntry is one append-only audit record. A nil ActorID means the
// change was made by the system rather than a logged-in user.
type ChangeEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	ActorID   *string        `json:"actor_id"`
	Action    string         `json:"action"`
	Changes   []FieldChange  `json:"changes,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewChangeEntry builds an audit entry stamped now. An empty actor id is
// recorded as nil (system).
func NewChangeEntry(actorID, action string, changes ...FieldChange) ChangeEntry {
	entry := ChangeEntry{
		Timestamp: time.Now(),
		Action:    action,
		Changes:   changes,
	}
	if actorID != "" {
		entry.ActorID = &actorID
	}
	return entry
}
