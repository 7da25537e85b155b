package model

import "time"

// History records a single field change on a document. ChangedFrom/ChangedTo are
// display strings, not foreign keys, so history stays legible after the referenced
// product or category is renamed or removed. Rows are append-only and are deleted
// only together with their document.
type History struct {
	ID          int64     `json:"id"`
	DocumentID  int64     `json:"document_id"`
	Element     string    `json:"element"`
	ChangedFrom string    `json:"changed_from"`
	ChangedTo   string    `json:"changed_to"`
	ChangedBy   *int64    `json:"changed_by,omitempty"`
	ChangedAt   time.Time `json:"changed_at"`

	ChangedByName string `json:"changed_by_name,omitempty"`
}
