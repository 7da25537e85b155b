package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"archowum/internal/model"
	"archowum/internal/repository"
	repoMocks "archowum/internal/repository/mocks"
	"archowum/internal/storage"
	storeMocks "archowum/internal/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type documentMocks struct {
	store      *storeMocks.MockStorage
	docs       *repoMocks.MockDocumentRepository
	products   *repoMocks.MockProductRepository
	categories *repoMocks.MockCategoryRepository
	history    *repoMocks.MockHistoryRepository
}

func newDocumentMocks() documentMocks {
	return documentMocks{
		store:      new(storeMocks.MockStorage),
		docs:       new(repoMocks.MockDocumentRepository),
		products:   new(repoMocks.MockProductRepository),
		categories: new(repoMocks.MockCategoryRepository),
		history:    new(repoMocks.MockHistoryRepository),
	}
}

func (m documentMocks) service(now time.Time) *documentService {
	svc := NewDocumentService(m.store, m.docs, m.products, m.categories, m.history).(*documentService)
	svc.now = func() time.Time { return now }
	return svc
}

func (m documentMocks) assertExpectations(t *testing.T) {
	m.store.AssertExpectations(t)
	m.docs.AssertExpectations(t)
	m.products.AssertExpectations(t)
	m.categories.AssertExpectations(t)
	m.history.AssertExpectations(t)
}

func (m documentMocks) expectReferencesOK(ctx context.Context, productID, categoryID int64) {
	m.products.On("FindByID", ctx, productID).Return(&model.Product{ID: productID}, nil)
	m.categories.On("FindByID", ctx, categoryID).Return(&model.Category{ID: categoryID}, nil)
}

func upload(filename, content string) *FileUpload {
	return &FileUpload{
		Reader:      strings.NewReader(content),
		Filename:    filename,
		Size:        int64(len(content)),
		ContentType: "application/pdf",
	}
}

func TestCanonicalFilename(t *testing.T) {
	assert.Equal(t, "report.pdf", CanonicalFilename("report.pdf"))
	assert.Equal(t, "annual_report_2026.pdf", CanonicalFilename("annual report 2026.pdf"))
}

func TestDocumentService_Create(t *testing.T) {
	ctx := context.Background()
	validity := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	actor := &model.User{ID: 9, Username: "manager", Role: model.RoleManager}

	tests := []struct {
		name        string
		in          DocumentInput
		setupMocks  func(m documentMocks)
		wantErr     error
		wantErrMsg  string
		wantMessage string
	}{
		{
			name: "happy path - filename kept",
			in: DocumentInput{
				ProductID: 1, CategoryID: 2, ValidityStart: validity,
				File: upload("report.pdf", "content"),
			},
			setupMocks: func(m documentMocks) {
				m.expectReferencesOK(ctx, 1, 2)
				m.docs.On("FindByTriple", ctx, int64(1), int64(2), validity).Return(nil, sql.ErrNoRows)
				m.store.On("Put", ctx, "report.pdf", mock.Anything, storage.PutObjectOptions{
					Size:        7,
					ContentType: "application/pdf",
					Metadata:    map[string]string{"original-filename": "report.pdf"},
				}).Return(storage.ObjectInfo{Key: "report.pdf", Size: 7}, nil)
				m.docs.On("Create", ctx, mock.MatchedBy(func(d *model.Document) bool {
					return d.File == "report.pdf" && d.CreatedBy != nil && *d.CreatedBy == 9
				})).Return(&model.Document{ID: 11, File: "report.pdf"}, nil)
				m.docs.On("FindByID", ctx, int64(11)).
					Return(&model.Document{ID: 11, ProductID: 1, CategoryID: 2, File: "report.pdf"}, nil)
			},
			wantMessage: "",
		},
		{
			name: "missing file",
			in:   DocumentInput{ProductID: 1, CategoryID: 2, ValidityStart: validity},
			setupMocks: func(m documentMocks) {
			},
			wantErr: ErrFileRequired,
		},
		{
			name: "unknown product",
			in: DocumentInput{
				ProductID: 99, CategoryID: 2, ValidityStart: validity,
				File: upload("report.pdf", "content"),
			},
			setupMocks: func(m documentMocks) {
				m.products.On("FindByID", ctx, int64(99)).Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "duplicate triple rejected before upload",
			in: DocumentInput{
				ProductID: 1, CategoryID: 2, ValidityStart: validity,
				File: upload("report.pdf", "content"),
			},
			setupMocks: func(m documentMocks) {
				m.expectReferencesOK(ctx, 1, 2)
				m.docs.On("FindByTriple", ctx, int64(1), int64(2), validity).
					Return(&model.Document{ID: 3}, nil)
			},
			wantErr: ErrDuplicateDocument,
		},
		{
			name: "spaces normalized message",
			in: DocumentInput{
				ProductID: 1, CategoryID: 2, ValidityStart: validity,
				File: upload("annual report.pdf", "content"),
			},
			setupMocks: func(m documentMocks) {
				m.expectReferencesOK(ctx, 1, 2)
				m.docs.On("FindByTriple", ctx, int64(1), int64(2), validity).Return(nil, sql.ErrNoRows)
				m.store.On("Put", ctx, "annual_report.pdf", mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{Key: "annual_report.pdf"}, nil)
				m.docs.On("Create", ctx, mock.Anything).
					Return(&model.Document{ID: 12, File: "annual_report.pdf"}, nil)
				m.docs.On("FindByID", ctx, int64(12)).
					Return(&model.Document{ID: 12, File: "annual_report.pdf"}, nil)
				m.docs.On("FindByFile", ctx, "annual_report.pdf").
					Return(&model.Document{ID: 12, File: "annual_report.pdf"}, nil)
			},
			wantMessage: "Przesłany plik zapisano jako annual_report.pdf. Spacje zmieniono na podkreślenia.",
		},
		{
			name: "collision rename message",
			in: DocumentInput{
				ProductID: 1, CategoryID: 2, ValidityStart: validity,
				File: upload("report.pdf", "content"),
			},
			setupMocks: func(m documentMocks) {
				m.expectReferencesOK(ctx, 1, 2)
				m.docs.On("FindByTriple", ctx, int64(1), int64(2), validity).Return(nil, sql.ErrNoRows)
				m.store.On("Put", ctx, "report.pdf", mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{Key: "report_ab12cd3.pdf"}, nil)
				m.docs.On("Create", ctx, mock.Anything).
					Return(&model.Document{ID: 13, File: "report_ab12cd3.pdf"}, nil)
				m.docs.On("FindByID", ctx, int64(13)).
					Return(&model.Document{ID: 13, File: "report_ab12cd3.pdf"}, nil)
				m.docs.On("FindByFile", ctx, "report.pdf").
					Return(&model.Document{ID: 7, File: "report.pdf"}, nil)
			},
			wantMessage: "Przesłany plik zapisano jako report_ab12cd3.pdf." +
				" Plik o nazwie report.pdf jest już związany z dokumentem #7.",
		},
		{
			name: "db failure rolls back stored object",
			in: DocumentInput{
				ProductID: 1, CategoryID: 2, ValidityStart: validity,
				File: upload("report.pdf", "content"),
			},
			setupMocks: func(m documentMocks) {
				m.expectReferencesOK(ctx, 1, 2)
				m.docs.On("FindByTriple", ctx, int64(1), int64(2), validity).Return(nil, sql.ErrNoRows)
				m.store.On("Put", ctx, "report.pdf", mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{Key: "report.pdf"}, nil)
				m.docs.On("Create", ctx, mock.Anything).Return(nil, errors.New("db fail"))
				m.store.On("Delete", ctx, "report.pdf").Return(nil)
			},
			wantErrMsg: "db save failed: db fail",
		},
		{
			name: "constraint violation after upload maps to duplicate",
			in: DocumentInput{
				ProductID: 1, CategoryID: 2, ValidityStart: validity,
				File: upload("report.pdf", "content"),
			},
			setupMocks: func(m documentMocks) {
				m.expectReferencesOK(ctx, 1, 2)
				m.docs.On("FindByTriple", ctx, int64(1), int64(2), validity).Return(nil, sql.ErrNoRows)
				m.store.On("Put", ctx, "report.pdf", mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{Key: "report.pdf"}, nil)
				m.docs.On("Create", ctx, mock.Anything).Return(nil, repository.ErrDuplicate)
				m.store.On("Delete", ctx, "report.pdf").Return(nil)
			},
			wantErr: ErrDuplicateDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newDocumentMocks()
			svc := m.service(time.Now())

			tt.setupMocks(m)

			doc, msg, err := svc.Create(ctx, tt.in, actor)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, doc)
			case tt.wantErrMsg != "":
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
			default:
				assert.NoError(t, err)
				assert.NotNil(t, doc)
				assert.Equal(t, tt.wantMessage, msg)
			}
			m.assertExpectations(t)
		})
	}
}

func TestDocumentService_Edit(t *testing.T) {
	ctx := context.Background()
	d1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	actor := &model.User{ID: 9, Username: "manager", Role: model.RoleManager}

	oldDoc := func() *model.Document {
		return &model.Document{
			ID: 5, ProductID: 1, CategoryID: 2, ValidityStart: d1, File: "a.pdf",
			ProductName: "OC komunikacyjne", ProductModel: "OC-STD",
			CategoryName: "Ogólne warunki ubezpieczenia",
		}
	}

	t.Run("unchanged submission writes no history", func(t *testing.T) {
		m := newDocumentMocks()
		svc := m.service(now)

		m.docs.On("FindByID", ctx, int64(5)).Return(oldDoc(), nil)
		m.expectReferencesOK(ctx, 1, 2)
		m.docs.On("Update", ctx, mock.MatchedBy(func(d *model.Document) bool {
			return d.ID == 5 && d.File == "a.pdf"
		})).Return(nil)

		doc, msg, err := svc.Edit(ctx, 5, DocumentInput{ProductID: 1, CategoryID: 2, ValidityStart: d1}, actor)

		assert.NoError(t, err)
		assert.Equal(t, "", msg)
		assert.Equal(t, int64(5), doc.ID)
		m.history.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		m.assertExpectations(t)
	})

	t.Run("one history row per changed field", func(t *testing.T) {
		m := newDocumentMocks()
		svc := m.service(now)

		fresh := &model.Document{
			ID: 5, ProductID: 3, CategoryID: 4, ValidityStart: d2, File: "b.pdf",
			ProductName: "AC komunikacyjne", ProductModel: "AC-PLUS",
			CategoryName: "Taryfa składek",
		}

		// FindByID is called twice: the pre-image load and the refetch after update.
		m.docs.On("FindByID", ctx, int64(5)).Return(oldDoc(), nil).Once()
		m.expectReferencesOK(ctx, 3, 4)
		m.docs.On("FindByTriple", ctx, int64(3), int64(4), d2).Return(nil, sql.ErrNoRows)
		m.store.On("Delete", ctx, "a.pdf").Return(nil)
		m.store.On("Put", ctx, "b.pdf", mock.Anything, mock.Anything).
			Return(storage.ObjectInfo{Key: "b.pdf"}, nil)
		m.docs.On("Update", ctx, mock.Anything).Return(nil)
		m.docs.On("FindByID", ctx, int64(5)).Return(fresh, nil).Once()

		var recorded []model.History
		m.history.On("Create", ctx, mock.AnythingOfType("*model.History")).
			Run(func(args mock.Arguments) {
				recorded = append(recorded, *args.Get(1).(*model.History))
			}).
			Return(&model.History{}, nil).Times(4)

		_, msg, err := svc.Edit(ctx, 5, DocumentInput{
			ProductID: 3, CategoryID: 4, ValidityStart: d2,
			File: upload("b.pdf", "new content"),
		}, actor)

		assert.NoError(t, err)
		assert.Equal(t, "", msg)
		if assert.Len(t, recorded, 4) {
			assert.Equal(t, "produkt", recorded[0].Element)
			assert.Equal(t, "OC komunikacyjne (OC-STD)", recorded[0].ChangedFrom)
			assert.Equal(t, "AC komunikacyjne (AC-PLUS)", recorded[0].ChangedTo)

			assert.Equal(t, "kategoria dokumentu", recorded[1].Element)
			assert.Equal(t, "Ogólne warunki ubezpieczenia", recorded[1].ChangedFrom)
			assert.Equal(t, "Taryfa składek", recorded[1].ChangedTo)

			assert.Equal(t, "ważny od", recorded[2].Element)
			assert.Equal(t, "2026-01-01", recorded[2].ChangedFrom)
			assert.Equal(t, "2026-06-01", recorded[2].ChangedTo)

			assert.Equal(t, "plik", recorded[3].Element)
			assert.Equal(t, "a.pdf", recorded[3].ChangedFrom)
			assert.Equal(t, "b.pdf", recorded[3].ChangedTo)

			for _, h := range recorded {
				assert.Equal(t, int64(5), h.DocumentID)
				assert.Equal(t, now, h.ChangedAt)
				if assert.NotNil(t, h.ChangedBy) {
					assert.Equal(t, int64(9), *h.ChangedBy)
				}
			}
		}
		m.assertExpectations(t)
	})

	t.Run("same-name re-upload writes no file history row", func(t *testing.T) {
		m := newDocumentMocks()
		svc := m.service(now)

		m.docs.On("FindByID", ctx, int64(5)).Return(oldDoc(), nil)
		m.expectReferencesOK(ctx, 1, 2)
		m.store.On("Delete", ctx, "a.pdf").Return(nil)
		m.store.On("Put", ctx, "a.pdf", mock.Anything, mock.Anything).
			Return(storage.ObjectInfo{Key: "a.pdf"}, nil)
		m.docs.On("Update", ctx, mock.Anything).Return(nil)

		_, msg, err := svc.Edit(ctx, 5, DocumentInput{
			ProductID: 1, CategoryID: 2, ValidityStart: d1,
			File: upload("a.pdf", "fresh content"),
		}, actor)

		assert.NoError(t, err)
		assert.Equal(t, "", msg)
		m.history.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		m.assertExpectations(t)
	})

	t.Run("missing document", func(t *testing.T) {
		m := newDocumentMocks()
		svc := m.service(now)

		m.docs.On("FindByID", ctx, int64(404)).Return(nil, sql.ErrNoRows)

		_, _, err := svc.Edit(ctx, 404, DocumentInput{ProductID: 1, CategoryID: 2, ValidityStart: d1}, actor)

		assert.ErrorIs(t, err, ErrNotFound)
		m.assertExpectations(t)
	})

	t.Run("duplicate triple owned by another document", func(t *testing.T) {
		m := newDocumentMocks()
		svc := m.service(now)

		m.docs.On("FindByID", ctx, int64(5)).Return(oldDoc(), nil)
		m.expectReferencesOK(ctx, 1, 2)
		m.docs.On("FindByTriple", ctx, int64(1), int64(2), d2).
			Return(&model.Document{ID: 8}, nil)

		_, _, err := svc.Edit(ctx, 5, DocumentInput{ProductID: 1, CategoryID: 2, ValidityStart: d2}, actor)

		assert.ErrorIs(t, err, ErrDuplicateDocument)
		m.assertExpectations(t)
	})

	t.Run("write-time duplicate deletes the replacement file", func(t *testing.T) {
		m := newDocumentMocks()
		svc := m.service(now)

		// The triple is unchanged here, so the duplicate only surfaces from the
		// row update, after the old object is gone and the new one is written.
		m.docs.On("FindByID", ctx, int64(5)).Return(oldDoc(), nil)
		m.expectReferencesOK(ctx, 1, 2)
		m.store.On("Delete", ctx, "a.pdf").Return(nil).Once()
		m.store.On("Put", ctx, "c.pdf", mock.Anything, mock.Anything).
			Return(storage.ObjectInfo{Key: "c.pdf"}, nil)
		m.docs.On("Update", ctx, mock.Anything).Return(repository.ErrDuplicate)
		m.store.On("Delete", ctx, "c.pdf").Return(nil).Once()

		_, _, err := svc.Edit(ctx, 5, DocumentInput{
			ProductID: 1, CategoryID: 2, ValidityStart: d1,
			File: upload("c.pdf", "replacement"),
		}, actor)

		assert.ErrorIs(t, err, ErrDuplicateDocument)
		m.store.AssertCalled(t, "Delete", ctx, "c.pdf")
		m.history.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		m.assertExpectations(t)
	})

	t.Run("rollback delete failure is reported alongside the update error", func(t *testing.T) {
		m := newDocumentMocks()
		svc := m.service(now)

		m.docs.On("FindByID", ctx, int64(5)).Return(oldDoc(), nil)
		m.expectReferencesOK(ctx, 1, 2)
		m.store.On("Delete", ctx, "a.pdf").Return(nil).Once()
		m.store.On("Put", ctx, "c.pdf", mock.Anything, mock.Anything).
			Return(storage.ObjectInfo{Key: "c.pdf"}, nil)
		m.docs.On("Update", ctx, mock.Anything).Return(errors.New("db fail"))
		m.store.On("Delete", ctx, "c.pdf").Return(errors.New("storage fail")).Once()

		_, _, err := svc.Edit(ctx, 5, DocumentInput{
			ProductID: 1, CategoryID: 2, ValidityStart: d1,
			File: upload("c.pdf", "replacement"),
		}, actor)

		assert.EqualError(t, err, "db update failed: db fail; rollback delete failed: storage fail")
		m.assertExpectations(t)
	})
}

func TestDocumentService_Delete(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		id         int64
		setupMocks func(m documentMocks)
		wantErr    error
		wantErrMsg string
	}{
		{
			name: "happy path",
			id:   5,
			setupMocks: func(m documentMocks) {
				m.docs.On("FindByID", ctx, int64(5)).
					Return(&model.Document{ID: 5, File: "a.pdf"}, nil)
				m.docs.On("Delete", ctx, int64(5)).Return(nil)
				m.store.On("Delete", ctx, "a.pdf").Return(nil)
			},
		},
		{
			name: "not found",
			id:   404,
			setupMocks: func(m documentMocks) {
				m.docs.On("FindByID", ctx, int64(404)).Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "storage delete error",
			id:   5,
			setupMocks: func(m documentMocks) {
				m.docs.On("FindByID", ctx, int64(5)).
					Return(&model.Document{ID: 5, File: "a.pdf"}, nil)
				m.docs.On("Delete", ctx, int64(5)).Return(nil)
				m.store.On("Delete", ctx, "a.pdf").Return(errors.New("storage fail"))
			},
			wantErrMsg: "delete storage: storage fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newDocumentMocks()
			svc := m.service(time.Now())

			tt.setupMocks(m)

			err := svc.Delete(ctx, tt.id)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrMsg != "":
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
			default:
				assert.NoError(t, err)
			}
			m.assertExpectations(t)
		})
	}
}

func TestDocumentService_Latest(t *testing.T) {
	ctx := context.Background()
	m := newDocumentMocks()
	svc := m.service(time.Now())

	// Non-positive limits fall back to the default page size.
	m.docs.On("Latest", ctx, 10).Return([]model.Document{{ID: 1}}, nil)

	items, err := svc.Latest(ctx, 0)
	assert.NoError(t, err)
	assert.Len(t, items, 1)
	m.assertExpectations(t)
}

func TestDocumentService_DownloadURL(t *testing.T) {
	ctx := context.Background()

	t.Run("presigned url", func(t *testing.T) {
		m := newDocumentMocks()
		svc := m.service(time.Now())

		m.docs.On("FindByID", ctx, int64(5)).
			Return(&model.Document{ID: 5, File: "a.pdf"}, nil)
		m.store.On("PresignGet", ctx, "a.pdf", presignExpiry).
			Return("https://minio.local/a.pdf?signed", nil)

		url, err := svc.DownloadURL(ctx, 5)
		assert.NoError(t, err)
		assert.Equal(t, "https://minio.local/a.pdf?signed", url)
		m.assertExpectations(t)
	})

	t.Run("backend without presign support", func(t *testing.T) {
		m := newDocumentMocks()
		svc := m.service(time.Now())

		m.docs.On("FindByID", ctx, int64(5)).
			Return(&model.Document{ID: 5, File: "a.pdf"}, nil)
		m.store.On("PresignGet", ctx, "a.pdf", presignExpiry).
			Return("", storage.ErrPresignUnsupported)

		_, err := svc.DownloadURL(ctx, 5)
		assert.ErrorIs(t, err, storage.ErrPresignUnsupported)
		m.assertExpectations(t)
	})
}

func TestDocumentService_Download(t *testing.T) {
	ctx := context.Background()
	m := newDocumentMocks()
	svc := m.service(time.Now())

	m.docs.On("FindByID", ctx, int64(5)).
		Return(&model.Document{ID: 5, File: "gone.pdf"}, nil)
	m.store.On("Get", ctx, "gone.pdf").
		Return(nil, storage.ObjectInfo{}, storage.ErrNotFound)

	_, _, err := svc.Download(ctx, 5)
	assert.ErrorIs(t, err, ErrNotFound)
	m.assertExpectations(t)
}
