package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/services-marketplace/internal/model"
)

// ErrCategoryNotFound is returned when a category cannot be found.
var ErrCategoryNotFound = errors.New("category not found")

// CategoryFilter narrows category listings. A nil Active means both.
type CategoryFilter struct {
	Active *bool
	Query  string
}

// CategoryRepo encapsulates queries on service_categories.
type CategoryRepo struct {
	db *sql.DB
}

func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{db: db} }

// Create inserts a category. Duplicate names yield ErrConflict.
func (r *CategoryRepo) Create(ctx context.Context, c *model.ServiceCategory) error {
	c.Name = strings.TrimSpace(c.Name)
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO service_categories (name, active) VALUES (?, ?)", c.Name, c.Active)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// GetByID fetches one category.
func (r *CategoryRepo) GetByID(ctx context.Context, id uint64) (model.ServiceCategory, error) {
	var c model.ServiceCategory
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, active FROM service_categories WHERE id = ?", id).Scan(&c.ID, &c.Name, &c.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ServiceCategory{}, ErrCategoryNotFound
	}
	return c, err
}

// List returns categories ordered by name.
func (r *CategoryRepo) List(ctx context.Context, f CategoryFilter) ([]model.ServiceCategory, error) {
	q := "SELECT id, name, active FROM service_categories WHERE 1=1"
	var args []any
	if f.Active != nil {
		q += " AND active = ?"
		args = append(args, *f.Active)
	}
	if strings.TrimSpace(f.Query) != "" {
		q += " AND LOWER(name) LIKE ?"
		args = append(args, likeArg(f.Query))
	}
	q += " ORDER BY name"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ServiceCategory{}
	for rows.Next() {
		var c model.ServiceCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Active); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update rewrites name and active flag.
func (r *CategoryRepo) Update(ctx context.Context, c model.ServiceCategory) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE service_categories SET name = ?, active = ? WHERE id = ?",
		strings.TrimSpace(c.Name), c.Active, c.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// Delete removes a category nobody references. A category still used by
// a listing yields ErrConflict and is left untouched.
func (r *CategoryRepo) Delete(ctx context.Context, id uint64) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	var refs int
	if err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM service_listings WHERE category_id = ?", id).Scan(&refs); err != nil {
		return err
	}
	if refs > 0 {
		return ErrConflict
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM service_categories WHERE id = ?", id)
	if err != nil {
		if isForeignKey(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCategoryNotFound
	}
	return nil
}
