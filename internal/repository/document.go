package repository

import (
	"context"
	"time"

	"archowum/internal/model"
)

// DocumentRepository defines data access for documents using SQL queries only.
// No business logic here — strictly persistence operations. Read methods hydrate
// the denormalized display fields (product/category/creator names) via joins.
type DocumentRepository interface {
	// Create inserts a new document row, filling in the generated ID and creation
	// timestamp. Violating the (product, category, validity_start) uniqueness
	// constraint returns ErrDuplicate.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID.
	FindByID(ctx context.Context, id int64) (*model.Document, error)

	// FindByTriple returns the document with the exact (product, category,
	// validity start) combination, or sql.ErrNoRows.
	FindByTriple(ctx context.Context, productID, categoryID int64, validityStart time.Time) (*model.Document, error)

	// FindByFile returns a document whose stored file key equals file, or
	// sql.ErrNoRows. Used for the best-effort filename collision notice.
	FindByFile(ctx context.Context, file string) (*model.Document, error)

	// Latest returns up to limit documents, newest first.
	Latest(ctx context.Context, limit int) ([]model.Document, error)

	// Search returns every document where phrase matches, case-insensitively, any
	// of: stringified id, product name, product model, category name, validity
	// start (YYYY-MM-DD), stored file key, creator username, stringified creation
	// timestamp. Results are deduplicated and ordered by descending id.
	Search(ctx context.Context, phrase string) ([]model.Document, error)

	// Update overwrites the four mutable fields (product, category, validity
	// start, file) of the row identified by doc.ID. Returns ErrDuplicate on a
	// uniqueness violation.
	Update(ctx context.Context, doc *model.Document) error

	// Delete removes a document by ID. It returns nil if the row did not exist.
	Delete(ctx context.Context, id int64) error

	// FileKeysByProduct returns the stored file keys of all documents referencing
	// the product, for storage cleanup before a cascading delete.
	FileKeysByProduct(ctx context.Context, productID int64) ([]string, error)

	// FileKeysByCategory is FileKeysByProduct for categories.
	FileKeysByCategory(ctx context.Context, categoryID int64) ([]string, error)
}
