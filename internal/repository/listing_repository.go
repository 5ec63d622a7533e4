package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/services-marketplace/internal/model"
)

// ErrListingNotFound is returned when a listing does not exist, is not
// published (public lookups) or is not owned by the caller.
var ErrListingNotFound = errors.New("listing not found")

// ListingSearch holds the public catalogue filters. Query matches the
// listing name, its category name or its description; Location matches
// the address.
type ListingSearch struct {
	Query    string
	Location string
}

// ListingFilter narrows the staff listing table.
type ListingFilter struct {
	Published  *bool
	CategoryID uint64
	ProviderID uint64
	Query      string
}

// ListingRepo encapsulates queries on service_listings.
type ListingRepo struct {
	db *sql.DB
}

func NewListingRepo(db *sql.DB) *ListingRepo { return &ListingRepo{db: db} }

const listingSelect = `SELECT l.id, l.provider_id, l.category_id, l.name, l.description, l.price,
	l.published, l.address, l.image, c.name,
	p.id, p.user_id, p.company_name, p.address, p.phone, p.photo,
	u.username, u.first_name, u.last_name
	FROM service_listings l
	JOIN providers p ON p.id = l.provider_id
	JOIN users u ON u.id = p.user_id
	LEFT JOIN service_categories c ON c.id = l.category_id`

// catalogueOrder keeps listings of a category together and makes the
// first one of each group deterministic.
const catalogueOrder = " ORDER BY c.name, l.name, l.id"

func scanListing(s rowScanner) (model.Listing, error) {
	var (
		l       model.Listing
		p       model.Provider
		catID   sql.NullInt64
		image   sql.NullString
		catName sql.NullString
		photo   sql.NullString
	)
	if err := s.Scan(&l.ID, &l.ProviderID, &catID, &l.Name, &l.Description, &l.Price,
		&l.Published, &l.Address, &image, &catName,
		&p.ID, &p.UserID, &p.CompanyName, &p.Address, &p.Phone, &photo,
		&p.Username, &p.FirstName, &p.LastName); err != nil {
		return model.Listing{}, err
	}
	if catID.Valid {
		id := uint64(catID.Int64)
		l.CategoryID = &id
	}
	if image.Valid {
		l.Image = &image.String
	}
	if catName.Valid {
		l.CategoryName = &catName.String
	}
	if photo.Valid {
		p.Photo = &photo.String
	}
	l.Provider = &p
	return l, nil
}

func (r *ListingRepo) query(ctx context.Context, q string, args ...any) ([]model.Listing, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *ListingRepo) one(ctx context.Context, q string, args ...any) (model.Listing, error) {
	l, err := scanListing(r.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Listing{}, ErrListingNotFound
	}
	return l, err
}

// ListPublished returns published listings matching s, in catalogue
// order.
func (r *ListingRepo) ListPublished(ctx context.Context, s ListingSearch) ([]model.Listing, error) {
	where := []string{"l.published = ?"}
	args := []any{true}
	if strings.TrimSpace(s.Query) != "" {
		like := likeArg(s.Query)
		where = append(where,
			"(LOWER(l.name) LIKE ? OR LOWER(COALESCE(c.name, '')) LIKE ? OR LOWER(l.description) LIKE ?)")
		args = append(args, like, like, like)
	}
	if strings.TrimSpace(s.Location) != "" {
		where = append(where, "LOWER(l.address) LIKE ?")
		args = append(args, likeArg(s.Location))
	}
	return r.query(ctx, listingSelect+" WHERE "+strings.Join(where, " AND ")+catalogueOrder, args...)
}

// GetPublished fetches a published listing by id.
func (r *ListingRepo) GetPublished(ctx context.Context, id uint64) (model.Listing, error) {
	return r.one(ctx, listingSelect+" WHERE l.id = ? AND l.published = ?", id, true)
}

// GetByID fetches any listing by id.
func (r *ListingRepo) GetByID(ctx context.Context, id uint64) (model.Listing, error) {
	return r.one(ctx, listingSelect+" WHERE l.id = ?", id)
}

// GetForProvider fetches a listing only if providerID owns it.
func (r *ListingRepo) GetForProvider(ctx context.Context, id, providerID uint64) (model.Listing, error) {
	return r.one(ctx, listingSelect+" WHERE l.id = ? AND l.provider_id = ?", id, providerID)
}

// ListByProvider returns a provider's listings, newest first.
func (r *ListingRepo) ListByProvider(ctx context.Context, providerID uint64) ([]model.Listing, error) {
	return r.query(ctx, listingSelect+" WHERE l.provider_id = ? ORDER BY l.id DESC", providerID)
}

// ListSimilar returns up to limit other published listings of the same
// category, or with the same name when l has no category.
func (r *ListingRepo) ListSimilar(ctx context.Context, l model.Listing, limit int) ([]model.Listing, error) {
	q := listingSelect + " WHERE l.published = ? AND l.id <> ?"
	args := []any{true, l.ID}
	if l.CategoryID != nil {
		q += " AND l.category_id = ?"
		args = append(args, *l.CategoryID)
	} else {
		q += " AND l.name = ?"
		args = append(args, l.Name)
	}
	q += catalogueOrder + " LIMIT ?"
	args = append(args, limit)
	return r.query(ctx, q, args...)
}

// ListWithReservations returns listings that received at least one
// reservation, ordered by category name then listing name.
func (r *ListingRepo) ListWithReservations(ctx context.Context) ([]model.Listing, error) {
	return r.query(ctx, listingSelect+
		" WHERE EXISTS (SELECT 1 FROM reservations r WHERE r.listing_id = l.id)"+catalogueOrder)
}

// List returns listings for the staff back-office.
func (r *ListingRepo) List(ctx context.Context, f ListingFilter) ([]model.Listing, error) {
	where := []string{"1=1"}
	var args []any
	if f.Published != nil {
		where = append(where, "l.published = ?")
		args = append(args, *f.Published)
	}
	if f.CategoryID != 0 {
		where = append(where, "l.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.ProviderID != 0 {
		where = append(where, "l.provider_id = ?")
		args = append(args, f.ProviderID)
	}
	if strings.TrimSpace(f.Query) != "" {
		like := likeArg(f.Query)
		where = append(where,
			"(LOWER(l.name) LIKE ? OR LOWER(COALESCE(c.name, '')) LIKE ? OR LOWER(l.description) LIKE ?)")
		args = append(args, like, like, like)
	}
	return r.query(ctx, listingSelect+" WHERE "+strings.Join(where, " AND ")+catalogueOrder, args...)
}

// Exists reports whether a listing with id exists, optionally restricted
// to a provider (providerID 0 means any).
func (r *ListingRepo) Exists(ctx context.Context, id, providerID uint64) (bool, error) {
	q := "SELECT COUNT(*) FROM service_listings WHERE id = ?"
	args := []any{id}
	if providerID != 0 {
		q += " AND provider_id = ?"
		args = append(args, providerID)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountByProvider returns how many listings a provider has and how many
// of them are published.
func (r *ListingRepo) CountByProvider(ctx context.Context, providerID uint64) (total, published int, err error) {
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN published THEN 1 ELSE 0 END), 0)
		 FROM service_listings WHERE provider_id = ?`, providerID).Scan(&total, &published)
	return total, published, err
}

// Create inserts l. Callers attach the category first so Name mirrors it.
func (r *ListingRepo) Create(ctx context.Context, l *model.Listing) error {
	l.NormalizePrice()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO service_listings (provider_id, category_id, name, description, price, published, address, image)
		 VALUES (?,?,?,?,?,?,?,?)`,
		l.ProviderID, l.CategoryID, l.Name, l.Description, l.Price, l.Published, l.Address, l.Image)
	if err != nil {
		if isForeignKey(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

// Update rewrites the editable fields of l. A nil Image keeps the stored
// image.
func (r *ListingRepo) Update(ctx context.Context, l *model.Listing) error {
	l.NormalizePrice()
	res, err := r.db.ExecContext(ctx,
		`UPDATE service_listings
		 SET provider_id = ?, category_id = ?, name = ?, description = ?, price = ?, published = ?,
		     address = ?, image = COALESCE(?, image)
		 WHERE id = ?`,
		l.ProviderID, l.CategoryID, l.Name, l.Description, l.Price, l.Published, l.Address, l.Image, l.ID)
	if err != nil {
		if isForeignKey(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrListingNotFound
	}
	return nil
}

// SetPublished toggles the published flag.
func (r *ListingRepo) SetPublished(ctx context.Context, id uint64, published bool) error {
	res, err := r.db.ExecContext(ctx, "UPDATE service_listings SET published = ? WHERE id = ?", published, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrListingNotFound
	}
	return nil
}

// DeleteForProvider removes a listing owned by providerID together with
// its reservations and reviews.
func (r *ListingRepo) DeleteForProvider(ctx context.Context, id, providerID uint64) (err error) {
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

	var owner uint64
	if err = tx.QueryRowContext(ctx, "SELECT provider_id FROM service_listings WHERE id = ?", id).Scan(&owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrListingNotFound
		}
		return err
	}
	if owner != providerID {
		return ErrForbidden
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM reservations WHERE listing_id = ?", id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM reviews WHERE listing_id = ?", id); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, "DELETE FROM service_listings WHERE id = ?", id)
	return err
}
