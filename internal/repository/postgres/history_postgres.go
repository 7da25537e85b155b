package postgres

import (
	"context"
	"database/sql"

	"archowum/internal/model"
	"archowum/internal/repository"
)

// HistoryPostgres is a PostgreSQL implementation of repository.HistoryRepository.
type HistoryPostgres struct {
	db *sql.DB
}

func NewHistoryPostgres(db *sql.DB) *HistoryPostgres {
	return &HistoryPostgres{db: db}
}

var _ repository.HistoryRepository = (*HistoryPostgres)(nil)

func (r *HistoryPostgres) Create(ctx context.Context, h *model.History) (*model.History, error) {
	const q = `
		INSERT INTO history (document_id, element, changed_from, changed_to, changed_by, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	var changedBy sql.NullInt64
	if h.ChangedBy != nil {
		changedBy = sql.NullInt64{Int64: *h.ChangedBy, Valid: true}
	}
	out := *h
	err := r.db.QueryRowContext(ctx, q,
		h.DocumentID,
		h.Element,
		h.ChangedFrom,
		h.ChangedTo,
		changedBy,
		h.ChangedAt,
	).Scan(&out.ID)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListByDocument returns the document's change history, newest first.
func (r *HistoryPostgres) ListByDocument(ctx context.Context, documentID int64) ([]model.History, error) {
	const q = `
		SELECT h.id, h.document_id, h.element, h.changed_from, h.changed_to,
		       h.changed_by, h.changed_at, COALESCE(u.username, '')
		FROM history h
		LEFT JOIN users u ON u.id = h.changed_by
		WHERE h.document_id = $1
		ORDER BY h.changed_at DESC, h.id DESC
	`
	rows, err := r.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.History, 0)
	for rows.Next() {
		var h model.History
		var changedBy sql.NullInt64
		if err := rows.Scan(
			&h.ID,
			&h.DocumentID,
			&h.Element,
			&h.ChangedFrom,
			&h.ChangedTo,
			&changedBy,
			&h.ChangedAt,
			&h.ChangedByName,
		); err != nil {
			return nil, err
		}
		if changedBy.Valid {
			h.ChangedBy = &changedBy.Int64
		}
		items = append(items, h)
	}
	return items, rows.Err()
}
