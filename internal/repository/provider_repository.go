package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/services-marketplace/internal/model"
)

// ErrProviderNotFound is returned when no provider profile exists.
var ErrProviderNotFound = errors.New("provider not found")

// ProviderRepo reads and writes provider profiles joined with their
// user accounts.
type ProviderRepo struct {
	db *sql.DB
}

func NewProviderRepo(db *sql.DB) *ProviderRepo { return &ProviderRepo{db: db} }

const providerSelect = `SELECT p.id, p.user_id, p.company_name, p.address, p.phone, p.photo,
	u.username, u.first_name, u.last_name
	FROM providers p JOIN users u ON u.id = p.user_id`

func scanProvider(s rowScanner) (model.Provider, error) {
	var (
		p     model.Provider
		photo sql.NullString
	)
	if err := s.Scan(&p.ID, &p.UserID, &p.CompanyName, &p.Address, &p.Phone, &photo,
		&p.Username, &p.FirstName, &p.LastName); err != nil {
		return model.Provider{}, err
	}
	if photo.Valid {
		p.Photo = &photo.String
	}
	return p, nil
}

// GetByUserID loads the profile attached to an account.
func (r *ProviderRepo) GetByUserID(ctx context.Context, userID uint64) (model.Provider, error) {
	p, err := scanProvider(r.db.QueryRowContext(ctx, providerSelect+" WHERE p.user_id = ?", userID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Provider{}, ErrProviderNotFound
	}
	return p, err
}

// GetByID loads a profile by its own id.
func (r *ProviderRepo) GetByID(ctx context.Context, id uint64) (model.Provider, error) {
	p, err := scanProvider(r.db.QueryRowContext(ctx, providerSelect+" WHERE p.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Provider{}, ErrProviderNotFound
	}
	return p, err
}

// Save creates the profile of p.UserID or updates the existing one. On
// return p.ID is set. A nil Photo keeps the stored photo.
func (r *ProviderRepo) Save(ctx context.Context, p *model.Provider) (err error) {
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

	var id uint64
	err = tx.QueryRowContext(ctx, "SELECT id FROM providers WHERE user_id = ?", p.UserID).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		var res sql.Result
		res, err = tx.ExecContext(ctx,
			"INSERT INTO providers (user_id, company_name, address, phone, photo) VALUES (?,?,?,?,?)",
			p.UserID, p.CompanyName, p.Address, p.Phone, p.Photo)
		if err != nil {
			return err
		}
		var last int64
		if last, err = res.LastInsertId(); err != nil {
			return err
		}
		p.ID = uint64(last)
		return nil
	case err != nil:
		return err
	}

	p.ID = id
	_, err = tx.ExecContext(ctx,
		`UPDATE providers SET company_name = ?, address = ?, phone = ?, photo = COALESCE(?, photo)
		 WHERE id = ?`,
		p.CompanyName, p.Address, p.Phone, p.Photo, id)
	return err
}

// List returns profiles matching query on company, address or account
// names, ordered by last name then company.
func (r *ProviderRepo) List(ctx context.Context, query string) ([]model.Provider, error) {
	q := providerSelect
	var args []any
	if strings.TrimSpace(query) != "" {
		q += ` WHERE LOWER(p.company_name) LIKE ? OR LOWER(p.address) LIKE ?
			OR LOWER(u.first_name) LIKE ? OR LOWER(u.last_name) LIKE ? OR LOWER(u.username) LIKE ?`
		like := likeArg(query)
		args = append(args, like, like, like, like, like)
	}
	q += " ORDER BY u.last_name, p.company_name, p.id"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Provider{}
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
