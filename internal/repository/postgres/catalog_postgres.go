package postgres

import (
	"context"
	"database/sql"

	"archowum/internal/model"
	"archowum/internal/repository"
)

// ProductPostgres is a PostgreSQL implementation of repository.ProductRepository.
type ProductPostgres struct {
	db *sql.DB
}

func NewProductPostgres(db *sql.DB) *ProductPostgres {
	return &ProductPostgres{db: db}
}

var _ repository.ProductRepository = (*ProductPostgres)(nil)

func (r *ProductPostgres) Create(ctx context.Context, p *model.Product) (*model.Product, error) {
	const q = `
		INSERT INTO products (name, model, description)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	out := *p
	if err := r.db.QueryRowContext(ctx, q, p.Name, p.Model, p.Description).Scan(&out.ID); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ProductPostgres) FindByID(ctx context.Context, id int64) (*model.Product, error) {
	const q = `SELECT id, name, model, description FROM products WHERE id = $1`
	var p model.Product
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.Name, &p.Model, &p.Description); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductPostgres) List(ctx context.Context) ([]model.Product, error) {
	const q = `SELECT id, name, model, description FROM products ORDER BY name, id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Product, 0)
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Model, &p.Description); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *ProductPostgres) Update(ctx context.Context, p *model.Product) error {
	const q = `UPDATE products SET name = $1, model = $2, description = $3 WHERE id = $4`
	res, err := r.db.ExecContext(ctx, q, p.Name, p.Model, p.Description, p.ID)
	if err != nil {
		return err
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

// Delete removes the product; dependent documents and their history go with it
// via the foreign-key cascade.
func (r *ProductPostgres) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM products WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// CategoryPostgres is a PostgreSQL implementation of repository.CategoryRepository.
type CategoryPostgres struct {
	db *sql.DB
}

func NewCategoryPostgres(db *sql.DB) *CategoryPostgres {
	return &CategoryPostgres{db: db}
}

var _ repository.CategoryRepository = (*CategoryPostgres)(nil)

func (r *CategoryPostgres) Create(ctx context.Context, c *model.Category) (*model.Category, error) {
	const q = `INSERT INTO categories (name) VALUES ($1) RETURNING id`
	out := *c
	if err := r.db.QueryRowContext(ctx, q, c.Name).Scan(&out.ID); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *CategoryPostgres) FindByID(ctx context.Context, id int64) (*model.Category, error) {
	const q = `SELECT id, name FROM categories WHERE id = $1`
	var c model.Category
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.Name); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CategoryPostgres) List(ctx context.Context) ([]model.Category, error) {
	const q = `SELECT id, name FROM categories ORDER BY name, id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Category, 0)
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *CategoryPostgres) Update(ctx context.Context, c *model.Category) error {
	const q = `UPDATE categories SET name = $1 WHERE id = $2`
	res, err := r.db.ExecContext(ctx, q, c.Name, c.ID)
	if err != nil {
		return err
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

// Delete removes the category; dependent documents and their history cascade.
func (r *CategoryPostgres) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM categories WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
