package handler

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"archowum/internal/http/middleware"
	"archowum/internal/model"
	"archowum/internal/service"
	"archowum/internal/storage"
)

// MainPage lists documents: the latest ten by default, or the results of a
// multi-field search when a phrase query parameter is present.
func MainPage(docs service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		phrase := c.Query("phrase")

		var (
			items []model.Document
			err   error
		)
		if phrase == "" {
			items, err = docs.Latest(c.UserContext(), 10)
		} else {
			items, err = docs.Search(c.UserContext(), phrase)
		}
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"documents": items, "phrase": phrase})
	}
}

// DocumentDetail returns a document together with its change history, newest first.
func DocumentDetail(docs service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c)
		if !ok {
			return invalidID(c)
		}
		doc, err := docs.Get(c.UserContext(), id)
		if err != nil {
			return documentError(c, err)
		}
		hist, err := docs.History(c.UserContext(), id)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"document": doc, "history": hist})
	}
}

// DocumentFormData returns the reference data the document form needs: the
// product and category choice lists, plus the current document when editing.
func DocumentFormData(docs service.DocumentService, catalog service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		products, err := catalog.ListProducts(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		categories, err := catalog.ListCategories(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		res := fiber.Map{"products": products, "categories": categories}

		if c.Params("id") != "" {
			id, ok := paramID(c)
			if !ok {
				return invalidID(c)
			}
			doc, err := docs.Get(c.UserContext(), id)
			if err != nil {
				return documentError(c, err)
			}
			res["document"] = doc
		}
		return c.JSON(res)
	}
}

// AddDocument creates a document from a multipart form (product, category,
// validity_start fields and a file part).
func AddDocument(docs service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in, verr := documentInput(c, true)
		if verr != nil {
			return writeValidationError(c, verr)
		}

		doc, msg, err := docs.Create(c.UserContext(), *in, middleware.UserFromCtx(c))
		if err != nil {
			return documentError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"document": doc, "message": msg})
	}
}

// EditDocument overwrites a document's trackable fields; the file part is
// optional and, when present, replaces the stored file.
func EditDocument(docs service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c)
		if !ok {
			return invalidID(c)
		}
		in, verr := documentInput(c, false)
		if verr != nil {
			return writeValidationError(c, verr)
		}

		doc, msg, err := docs.Edit(c.UserContext(), id, *in, middleware.UserFromCtx(c))
		if err != nil {
			return documentError(c, err)
		}
		return c.JSON(fiber.Map{"document": doc, "message": msg})
	}
}

// DeleteDocument removes a document and its stored file.
func DeleteDocument(docs service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c)
		if !ok {
			return invalidID(c)
		}
		if err := docs.Delete(c.UserContext(), id); err != nil {
			return documentError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// DownloadDocument serves the stored file: a redirect to a presigned URL when
// the storage backend supports it, an inline stream otherwise.
func DownloadDocument(docs service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c)
		if !ok {
			return invalidID(c)
		}

		url, err := docs.DownloadURL(c.UserContext(), id)
		if err == nil {
			return c.Redirect(url, fiber.StatusFound)
		}
		if !errors.Is(err, storage.ErrPresignUnsupported) {
			return documentError(c, err)
		}

		rc, info, err := docs.Download(c.UserContext(), id)
		if err != nil {
			return documentError(c, err)
		}

		ct := info.ContentType
		if ct == "" {
			ct = mime.TypeByExtension(filepath.Ext(info.Key))
		}
		if ct == "" {
			ct = "application/octet-stream"
		}
		c.Set(fiber.HeaderContentType, ct)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", info.Key))
		if info.Size > 0 {
			return c.SendStream(rc, int(info.Size))
		}
		return c.SendStream(rc)
	}
}

// documentInput parses and validates the multipart document form. A non-nil
// field-error map means the submission was rejected.
func documentInput(c *fiber.Ctx, fileRequired bool) (*service.DocumentInput, map[string]any) {
	form := documentForm{
		Product:       c.FormValue("product"),
		Category:      c.FormValue("category"),
		ValidityStart: c.FormValue("validity_start"),
	}
	if err := form.Validate(); err != nil {
		return nil, validationFields(err)
	}

	// is.Digit admits digit strings that overflow int64; a failed parse must
	// surface as a field error, not as a lookup of id zero.
	productID, perr := strconv.ParseInt(form.Product, 10, 64)
	categoryID, cerr := strconv.ParseInt(form.Category, 10, 64)
	validityStart, derr := time.Parse(model.DateLayout, form.ValidityStart)
	if perr != nil || cerr != nil || derr != nil {
		fields := map[string]any{}
		if perr != nil {
			fields["product"] = "must be a valid identifier"
		}
		if cerr != nil {
			fields["category"] = "must be a valid identifier"
		}
		if derr != nil {
			fields["validity_start"] = "must be a valid date"
		}
		return nil, fields
	}

	in := &service.DocumentInput{
		ProductID:     productID,
		CategoryID:    categoryID,
		ValidityStart: validityStart,
	}

	fh, err := c.FormFile("file")
	if err != nil {
		if fileRequired {
			return nil, map[string]any{"file": "plik jest wymagany"}
		}
		return in, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, map[string]any{"file": "cannot open uploaded file"}
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	in.File = &service.FileUpload{
		Reader:      f,
		Filename:    fh.Filename,
		Size:        fh.Size,
		ContentType: ct,
	}
	return in, nil
}

// documentError translates service errors into the standard envelope.
func documentError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
	case errors.Is(err, service.ErrDuplicateDocument):
		return writeError(c, fiber.StatusConflict, "DUPLICATE_DOCUMENT",
			"dokument dla tego produktu, kategorii i daty ważności już istnieje")
	case errors.Is(err, service.ErrFileRequired):
		return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

func paramID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func invalidID(c *fiber.Ctx) error {
	return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
}
