package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"archowum/internal/model"
	"archowum/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

// documentColumns is the join-hydrated column list shared by all read queries.
const documentColumns = `
	d.id, d.product_id, d.category_id, d.validity_start, d.file, d.created_by, d.created_at,
	p.name, p.model, c.name, COALESCE(u.username, '')`

const documentJoins = `
	FROM documents d
	JOIN products p ON p.id = d.product_id
	JOIN categories c ON c.id = d.category_id
	LEFT JOIN users u ON u.id = d.created_by`

func scanDocument(row interface{ Scan(...any) error }) (*model.Document, error) {
	var d model.Document
	var createdBy sql.NullInt64
	if err := row.Scan(
		&d.ID,
		&d.ProductID,
		&d.CategoryID,
		&d.ValidityStart,
		&d.File,
		&createdBy,
		&d.CreatedAt,
		&d.ProductName,
		&d.ProductModel,
		&d.CategoryName,
		&d.CreatedByName,
	); err != nil {
		return nil, err
	}
	if createdBy.Valid {
		d.CreatedBy = &createdBy.Int64
	}
	return &d, nil
}

func collectDocuments(rows *sql.Rows) ([]model.Document, error) {
	defer rows.Close()
	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Create inserts a new document row. A triple-uniqueness violation surfaces as
// repository.ErrDuplicate.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (product_id, category_id, validity_start, file, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	var createdBy sql.NullInt64
	if doc.CreatedBy != nil {
		createdBy = sql.NullInt64{Int64: *doc.CreatedBy, Valid: true}
	}
	row := r.db.QueryRowContext(ctx, q,
		doc.ProductID,
		doc.CategoryID,
		doc.ValidityStart,
		doc.File,
		createdBy,
	)
	out := *doc
	if err := row.Scan(&out.ID, &out.CreatedAt); err != nil {
		return nil, mapConstraintError(err)
	}
	return &out, nil
}

// FindByID fetches a single document with hydrated display names.
func (r *DocumentPostgres) FindByID(ctx context.Context, id int64) (*model.Document, error) {
	q := `SELECT` + documentColumns + documentJoins + ` WHERE d.id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// FindByTriple fetches the document holding the exact uniqueness triple.
func (r *DocumentPostgres) FindByTriple(ctx context.Context, productID, categoryID int64, validityStart time.Time) (*model.Document, error) {
	q := `SELECT` + documentColumns + documentJoins + `
	WHERE d.product_id = $1 AND d.category_id = $2 AND d.validity_start = $3`
	return scanDocument(r.db.QueryRowContext(ctx, q, productID, categoryID, validityStart))
}

// FindByFile fetches a document by its stored file key.
func (r *DocumentPostgres) FindByFile(ctx context.Context, file string) (*model.Document, error) {
	q := `SELECT` + documentColumns + documentJoins + ` WHERE d.file = $1 ORDER BY d.id LIMIT 1`
	return scanDocument(r.db.QueryRowContext(ctx, q, file))
}

// Latest returns up to limit documents, newest first.
func (r *DocumentPostgres) Latest(ctx context.Context, limit int) ([]model.Document, error) {
	q := `SELECT` + documentColumns + documentJoins + ` ORDER BY d.id DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	return collectDocuments(rows)
}

// likeEscaper neutralizes LIKE metacharacters in user phrases so they match
// literally; a phrase of "100%" must not match every document containing "100".
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search unions case-insensitive substring matches over the eight searchable
// fields, deduplicates, and orders newest-identity first.
func (r *DocumentPostgres) Search(ctx context.Context, phrase string) ([]model.Document, error) {
	q := `SELECT DISTINCT` + documentColumns + documentJoins + `
	WHERE d.id::text ILIKE $1
	   OR p.name ILIKE $1
	   OR p.model ILIKE $1
	   OR c.name ILIKE $1
	   OR to_char(d.validity_start, 'YYYY-MM-DD') ILIKE $1
	   OR d.file ILIKE $1
	   OR u.username ILIKE $1
	   OR d.created_at::text ILIKE $1
	ORDER BY d.id DESC`
	rows, err := r.db.QueryContext(ctx, q, "%"+likeEscaper.Replace(phrase)+"%")
	if err != nil {
		return nil, err
	}
	return collectDocuments(rows)
}

// Update overwrites the four mutable fields together. A triple-uniqueness
// violation surfaces as repository.ErrDuplicate.
func (r *DocumentPostgres) Update(ctx context.Context, doc *model.Document) error {
	const q = `
		UPDATE documents
		SET product_id = $1, category_id = $2, validity_start = $3, file = $4
		WHERE id = $5
	`
	res, err := r.db.ExecContext(ctx, q,
		doc.ProductID,
		doc.CategoryID,
		doc.ValidityStart,
		doc.File,
		doc.ID,
	)
	if err != nil {
		return mapConstraintError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a document by ID. It does not return an error if the row does not exist.
func (r *DocumentPostgres) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM documents WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// FileKeysByProduct returns the stored file keys of the product's documents.
func (r *DocumentPostgres) FileKeysByProduct(ctx context.Context, productID int64) ([]string, error) {
	const q = `SELECT file FROM documents WHERE product_id = $1`
	return r.fileKeys(ctx, q, productID)
}

// FileKeysByCategory returns the stored file keys of the category's documents.
func (r *DocumentPostgres) FileKeysByCategory(ctx context.Context, categoryID int64) ([]string, error) {
	const q = `SELECT file FROM documents WHERE category_id = $1`
	return r.fileKeys(ctx, q, categoryID)
}

func (r *DocumentPostgres) fileKeys(ctx context.Context, q string, id int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
