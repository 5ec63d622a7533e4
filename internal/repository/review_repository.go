package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/services-marketplace/internal/model"
)

// ErrReviewNotFound is returned when a review does not exist.
var ErrReviewNotFound = errors.New("review not found")

// ReviewFilter narrows the staff review table.
type ReviewFilter struct {
	Visible    *bool
	Rating     uint8
	CategoryID uint64
	Query      string
}

// ReviewRow is a review with the listing it belongs to.
type ReviewRow struct {
	model.Review
	ListingName  string
	CategoryName *string
}

// ReviewStats summarises the visible reviews of a listing.
type ReviewStats struct {
	Average *float64
	Count   int
}

// ReviewRepo encapsulates queries on reviews.
type ReviewRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewReviewRepo(db *sql.DB) *ReviewRepo {
	return &ReviewRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create validates and stores rv, setting its id and creation time.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	if err := rv.Validate(); err != nil {
		return err
	}
	rv.CreatedAt = r.now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO reviews (listing_id, customer_name, rating, comment, visible, created_at)
		 VALUES (?,?,?,?,?,?)`,
		rv.ListingID, rv.CustomerName, rv.Rating, rv.Comment, rv.Visible, rv.CreatedAt)
	if err != nil {
		if isForeignKey(err) {
			return ErrListingNotFound
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rv.ID = uint64(id)
	return nil
}

// ListVisible returns up to limit visible reviews of a listing, newest
// first.
func (r *ReviewRepo) ListVisible(ctx context.Context, listingID uint64, limit int) ([]model.Review, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, listing_id, customer_name, rating, comment, visible, created_at
		 FROM reviews WHERE listing_id = ? AND visible = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`, listingID, true, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Review{}
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(&rv.ID, &rv.ListingID, &rv.CustomerName, &rv.Rating, &rv.Comment,
			&rv.Visible, &rv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

// Stats returns the average rating and count of visible reviews. Average
// is nil when there are none.
func (r *ReviewRepo) Stats(ctx context.Context, listingID uint64) (ReviewStats, error) {
	var (
		avg sql.NullFloat64
		st  ReviewStats
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT AVG(rating), COUNT(*) FROM reviews WHERE listing_id = ? AND visible = ?",
		listingID, true).Scan(&avg, &st.Count)
	if err != nil {
		return ReviewStats{}, err
	}
	if avg.Valid {
		v := avg.Float64
		st.Average = &v
	}
	return st, nil
}

// List returns reviews for the staff back-office, newest first.
func (r *ReviewRepo) List(ctx context.Context, f ReviewFilter) ([]ReviewRow, error) {
	where := []string{"1=1"}
	var args []any
	if f.Visible != nil {
		where = append(where, "rv.visible = ?")
		args = append(args, *f.Visible)
	}
	if f.Rating != 0 {
		where = append(where, "rv.rating = ?")
		args = append(args, f.Rating)
	}
	if f.CategoryID != 0 {
		where = append(where, "l.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if strings.TrimSpace(f.Query) != "" {
		like := likeArg(f.Query)
		where = append(where, "(LOWER(rv.customer_name) LIKE ? OR LOWER(rv.comment) LIKE ? OR LOWER(l.name) LIKE ?)")
		args = append(args, like, like, like)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT rv.id, rv.listing_id, rv.customer_name, rv.rating, rv.comment, rv.visible, rv.created_at,
		        l.name, c.name
		 FROM reviews rv
		 JOIN service_listings l ON l.id = rv.listing_id
		 LEFT JOIN service_categories c ON c.id = l.category_id
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY rv.created_at DESC, rv.id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ReviewRow{}
	for rows.Next() {
		var (
			row     ReviewRow
			catName sql.NullString
		)
		if err := rows.Scan(&row.ID, &row.ListingID, &row.CustomerName, &row.Rating, &row.Comment,
			&row.Visible, &row.CreatedAt, &row.ListingName, &catName); err != nil {
			return nil, err
		}
		if catName.Valid {
			row.CategoryName = &catName.String
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// SetVisible shows or hides a review.
func (r *ReviewRepo) SetVisible(ctx context.Context, id uint64, visible bool) error {
	res, err := r.db.ExecContext(ctx, "UPDATE reviews SET visible = ? WHERE id = ?", visible, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrReviewNotFound
	}
	return nil
}
