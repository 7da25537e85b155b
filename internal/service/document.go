package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"archowum/internal/model"
	"archowum/internal/repository"
	"archowum/internal/storage"
)

var (
	ErrNotFound          = errors.New("document not found")
	ErrDuplicateDocument = errors.New("a document with the same product, category and validity start already exists")
	ErrFileRequired      = errors.New("file is required")
)

// History element labels. The archive's UI language is Polish; labels are stored
// verbatim in history rows, so they must stay stable.
const (
	elementProduct       = "produkt"
	elementCategory      = "kategoria dokumentu"
	elementValidityStart = "ważny od"
	elementFile          = "plik"
)

// presignExpiry bounds how long a generated download link stays valid.
const presignExpiry = 15 * time.Minute

// CanonicalFilename is the submitted filename with spaces replaced by
// underscores — the preferred storage key before collision resolution.
func CanonicalFilename(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}

// FileUpload carries an uploaded file through the service layer.
type FileUpload struct {
	Reader      io.Reader
	Filename    string
	Size        int64
	ContentType string
}

// DocumentInput holds the submitted values for a document create or edit.
// File is required on create and optional on edit (nil keeps the current file).
type DocumentInput struct {
	ProductID     int64
	CategoryID    int64
	ValidityStart time.Time
	File          *FileUpload
}

// DocumentService is the document lifecycle manager: it orchestrates create,
// edit and delete against storage and the database, records field-level change
// history on edits, and reports filename collisions as informational messages.
type DocumentService interface {
	// Create stores the uploaded file and inserts the document row. The returned
	// message is non-empty when the stored filename differs from the submitted
	// one (spaces normalized and/or collision-renamed).
	Create(ctx context.Context, in DocumentInput, actor *model.User) (*model.Document, string, error)

	// Edit overwrites the four trackable fields, swapping the stored file when a
	// replacement was uploaded, and writes one history row per field whose value
	// actually changed. Same message semantics as Create.
	Edit(ctx context.Context, id int64, in DocumentInput, actor *model.User) (*model.Document, string, error)

	// Delete removes the document row and its stored file. A file already
	// missing from storage is not an error.
	Delete(ctx context.Context, id int64) error

	// Get returns a single document by ID.
	Get(ctx context.Context, id int64) (*model.Document, error)

	// History returns the document's change history, newest first.
	History(ctx context.Context, id int64) ([]model.History, error)

	// Latest returns up to limit documents, newest first.
	Latest(ctx context.Context, limit int) ([]model.Document, error)

	// Search returns documents matching the phrase in any searchable field,
	// deduplicated, newest first.
	Search(ctx context.Context, phrase string) ([]model.Document, error)

	// Download streams the document's stored file.
	Download(ctx context.Context, id int64) (io.ReadCloser, storage.ObjectInfo, error)

	// DownloadURL returns a presigned download URL, or
	// storage.ErrPresignUnsupported when the backend cannot produce one.
	DownloadURL(ctx context.Context, id int64) (string, error)
}

type documentService struct {
	store      storage.Storage
	docs       repository.DocumentRepository
	products   repository.ProductRepository
	categories repository.CategoryRepository
	history    repository.HistoryRepository
	now        func() time.Time
}

// NewDocumentService constructs the document lifecycle manager.
func NewDocumentService(
	store storage.Storage,
	docs repository.DocumentRepository,
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	history repository.HistoryRepository,
) DocumentService {
	return &documentService{
		store:      store,
		docs:       docs,
		products:   products,
		categories: categories,
		history:    history,
		now:        time.Now,
	}
}

func (s *documentService) Create(ctx context.Context, in DocumentInput, actor *model.User) (*model.Document, string, error) {
	if in.File == nil || in.File.Reader == nil {
		return nil, "", ErrFileRequired
	}
	if err := s.checkReferences(ctx, in); err != nil {
		return nil, "", err
	}

	// Fast-path duplicate check. The database constraint is the authoritative
	// guard under concurrent submissions; this only gives an early error.
	if _, err := s.docs.FindByTriple(ctx, in.ProductID, in.CategoryID, in.ValidityStart); err == nil {
		return nil, "", ErrDuplicateDocument
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, "", err
	}

	info, err := s.store.Put(ctx, CanonicalFilename(in.File.Filename), in.File.Reader, storage.PutObjectOptions{
		Size:        in.File.Size,
		ContentType: in.File.ContentType,
		Metadata: map[string]string{
			"original-filename": in.File.Filename,
		},
	})
	if err != nil {
		return nil, "", fmt.Errorf("upload to storage: %w", err)
	}

	doc := &model.Document{
		ProductID:     in.ProductID,
		CategoryID:    in.CategoryID,
		ValidityStart: in.ValidityStart,
		File:          info.Key,
		CreatedBy:     userID(actor),
	}
	stored, err := s.docs.Create(ctx, doc)
	if err != nil {
		// Rollback: remove the object that was just written.
		if delErr := s.store.Delete(ctx, info.Key); delErr != nil {
			return nil, "", fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", ErrDuplicateDocument
		}
		return nil, "", fmt.Errorf("db save failed: %w", err)
	}

	if full, err := s.docs.FindByID(ctx, stored.ID); err == nil {
		stored = full
	}
	return stored, s.filenameMessage(ctx, stored, in.File.Filename), nil
}

func (s *documentService) Edit(ctx context.Context, id int64, in DocumentInput, actor *model.User) (*model.Document, string, error) {
	old, err := s.docs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	if err := s.checkReferences(ctx, in); err != nil {
		return nil, "", err
	}

	// Enforce the uniqueness invariant on edits too, before touching storage.
	tripleChanged := in.ProductID != old.ProductID ||
		in.CategoryID != old.CategoryID ||
		!in.ValidityStart.Equal(old.ValidityStart)
	if tripleChanged {
		if dup, err := s.docs.FindByTriple(ctx, in.ProductID, in.CategoryID, in.ValidityStart); err == nil && dup.ID != id {
			return nil, "", ErrDuplicateDocument
		} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, "", err
		}
	}

	file := old.File
	sentFilename := ""
	uploadedKey := ""
	if in.File != nil && in.File.Reader != nil {
		sentFilename = in.File.Filename
		// Remove the old object first, so re-uploading under the old name
		// resolves to the identical key and produces no file history row.
		if err := s.store.Delete(ctx, old.File); err != nil {
			return nil, "", fmt.Errorf("delete old file: %w", err)
		}
		info, err := s.store.Put(ctx, CanonicalFilename(sentFilename), in.File.Reader, storage.PutObjectOptions{
			Size:        in.File.Size,
			ContentType: in.File.ContentType,
			Metadata: map[string]string{
				"original-filename": sentFilename,
			},
		})
		if err != nil {
			return nil, "", fmt.Errorf("upload to storage: %w", err)
		}
		file = info.Key
		uploadedKey = info.Key
	}

	updated := &model.Document{
		ID:            id,
		ProductID:     in.ProductID,
		CategoryID:    in.CategoryID,
		ValidityStart: in.ValidityStart,
		File:          file,
	}
	if err := s.docs.Update(ctx, updated); err != nil {
		// Rollback: the replacement object must not outlive the failed row
		// update. The old object is already gone and cannot be restored.
		if uploadedKey != "" {
			if delErr := s.store.Delete(ctx, uploadedKey); delErr != nil {
				return nil, "", fmt.Errorf("db update failed: %v; rollback delete failed: %v", err, delErr)
			}
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", ErrDuplicateDocument
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("db update failed: %w", err)
	}

	fresh, err := s.docs.FindByID(ctx, id)
	if err != nil {
		return nil, "", err
	}

	now := s.now().UTC()
	for _, ch := range diffDocuments(old, fresh) {
		h := &model.History{
			DocumentID:  id,
			Element:     ch.element,
			ChangedFrom: ch.from,
			ChangedTo:   ch.to,
			ChangedBy:   userID(actor),
			ChangedAt:   now,
		}
		if _, err := s.history.Create(ctx, h); err != nil {
			return nil, "", fmt.Errorf("save history: %w", err)
		}
	}

	msg := ""
	if sentFilename != "" {
		msg = s.filenameMessage(ctx, fresh, sentFilename)
	}
	return fresh, msg, nil
}

// Delete removes the row first, then the stored object; a missing object is fine.
func (s *documentService) Delete(ctx context.Context, id int64) error {
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if err := s.docs.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, doc.File); err != nil {
		return fmt.Errorf("delete storage: %w", err)
	}
	return nil
}

func (s *documentService) Get(ctx context.Context, id int64) (*model.Document, error) {
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentService) History(ctx context.Context, id int64) ([]model.History, error) {
	return s.history.ListByDocument(ctx, id)
}

func (s *documentService) Latest(ctx context.Context, limit int) ([]model.Document, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.docs.Latest(ctx, limit)
}

func (s *documentService) Search(ctx context.Context, phrase string) ([]model.Document, error) {
	return s.docs.Search(ctx, phrase)
}

func (s *documentService) Download(ctx context.Context, id int64) (io.ReadCloser, storage.ObjectInfo, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, storage.ObjectInfo{}, err
	}
	rc, info, err := s.store.Get(ctx, doc.File)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, storage.ObjectInfo{}, ErrNotFound
		}
		return nil, storage.ObjectInfo{}, err
	}
	return rc, info, nil
}

func (s *documentService) DownloadURL(ctx context.Context, id int64) (string, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.store.PresignGet(ctx, doc.File, presignExpiry)
}

func (s *documentService) checkReferences(ctx context.Context, in DocumentInput) error {
	if _, err := s.products.FindByID(ctx, in.ProductID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if _, err := s.categories.FindByID(ctx, in.CategoryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// filenameMessage composes the informational message shown when the stored
// filename differs from the submitted one. Best-effort: the lookup of the
// document already owning the colliding name may come up empty.
func (s *documentService) filenameMessage(ctx context.Context, doc *model.Document, sentFilename string) string {
	if doc.File == sentFilename {
		return ""
	}
	text := fmt.Sprintf("Przesłany plik zapisano jako %s.", doc.File)

	cleaned := CanonicalFilename(sentFilename)
	if other, err := s.docs.FindByFile(ctx, cleaned); err == nil && other.ID != doc.ID {
		text += fmt.Sprintf(" Plik o nazwie %s jest już związany z dokumentem #%d.", cleaned, other.ID)
	}
	if strings.Contains(sentFilename, " ") {
		text += " Spacje zmieniono na podkreślenia."
	}
	return text
}

type fieldChange struct {
	element string
	from    string
	to      string
}

// diffDocuments compares the four trackable fields in a fixed order (product,
// category, validity start, file) so history output is deterministic. Display
// strings are recorded, not foreign keys.
func diffDocuments(prev, curr *model.Document) []fieldChange {
	var changes []fieldChange
	if prev.ProductID != curr.ProductID {
		changes = append(changes, fieldChange{elementProduct, prev.ProductString(), curr.ProductString()})
	}
	if prev.CategoryID != curr.CategoryID {
		changes = append(changes, fieldChange{elementCategory, prev.CategoryName, curr.CategoryName})
	}
	if !prev.ValidityStart.Equal(curr.ValidityStart) {
		changes = append(changes, fieldChange{elementValidityStart, prev.ValidityStartString(), curr.ValidityStartString()})
	}
	if prev.File != curr.File {
		changes = append(changes, fieldChange{elementFile, prev.File, curr.File})
	}
	return changes
}

func userID(u *model.User) *int64 {
	if u == nil {
		return nil
	}
	id := u.ID
	return &id
}
