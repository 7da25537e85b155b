package repository

import (
	"context"

	"archowum/internal/model"
)

// HistoryRepository defines data access for document change history.
// History is append-only: rows are only ever inserted, and disappear together
// with their document via the cascade.
type HistoryRepository interface {
	Create(ctx context.Context, h *model.History) (*model.History, error)

	// ListByDocument returns the document's history, newest first.
	ListByDocument(ctx context.Context, documentID int64) ([]model.History, error)
}
