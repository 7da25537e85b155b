package model

import (
	"fmt"
	"time"
)

// DateLayout is the storage format for validity dates (ISO calendar date).
const DateLayout = "2006-01-02"

// Document is a catalogued insurance-product document. It references exactly one
// product and one category; the triple (product, category, validity start) is
// unique across the table. File holds the key under which the uploaded file was
// actually stored, which may differ from the filename the client submitted.
//
// The *Name fields are denormalized display values hydrated by repository joins
// so listings and search results need no extra queries. They are never written.
type Document struct {
	ID            int64     `json:"id"`
	ProductID     int64     `json:"product_id"`
	CategoryID    int64     `json:"category_id"`
	ValidityStart time.Time `json:"validity_start"`
	File          string    `json:"file"`
	CreatedBy     *int64    `json:"created_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`

	ProductName   string `json:"product_name,omitempty"`
	ProductModel  string `json:"product_model,omitempty"`
	CategoryName  string `json:"category_name,omitempty"`
	CreatedByName string `json:"created_by_name,omitempty"`
}

// ValidityStartString renders the validity date the way it is stored and searched.
func (d *Document) ValidityStartString() string {
	return d.ValidityStart.Format(DateLayout)
}

// ProductString renders the referenced product the way history rows display it.
func (d *Document) ProductString() string {
	return fmt.Sprintf("%s (%s)", d.ProductName, d.ProductModel)
}
