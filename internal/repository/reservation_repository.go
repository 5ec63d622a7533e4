package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/services-marketplace/internal/model"
	"github.com/iliyamo/services-marketplace/internal/status"
)

// ErrReservationNotFound is returned when a reservation does not exist or
// belongs to another provider's listing.
var ErrReservationNotFound = errors.New("reservation not found")

// ReservationRow is a reservation joined with its listing, category and
// owning provider.
type ReservationRow struct {
	model.Reservation
	ListingName  string
	CategoryID   *uint64
	CategoryName *string
	ProviderID   uint64
}

// DisplayName is the category name when the listing has one, else the
// listing name.
func (r ReservationRow) DisplayName() string {
	if r.CategoryID != nil && r.CategoryName != nil {
		return *r.CategoryName
	}
	return r.ListingName
}

// ReservationFilter narrows a reservation query. Zero values mean no
// restriction. Status applies a canonical-label predicate (an empty
// predicate matches nothing); RawStatus compares the stored text
// exactly.
type ReservationFilter struct {
	ProviderID uint64
	ListingID  uint64
	Status     *status.Predicate
	RawStatus  string
	CategoryID uint64
	Query      string
}

// ReservationRepo encapsulates queries on reservations.
type ReservationRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo {
	return &ReservationRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const reservationFrom = ` FROM reservations r
	JOIN service_listings l ON l.id = r.listing_id
	LEFT JOIN service_categories c ON c.id = l.category_id`

func (f ReservationFilter) where() (string, []any) {
	where := []string{"1=1"}
	var args []any
	if f.ProviderID != 0 {
		where = append(where, "l.provider_id = ?")
		args = append(args, f.ProviderID)
	}
	if f.ListingID != 0 {
		where = append(where, "r.listing_id = ?")
		args = append(args, f.ListingID)
	}
	if f.Status != nil {
		frag, a := f.Status.SQL("r.status")
		where = append(where, frag)
		args = append(args, a...)
	}
	if f.RawStatus != "" {
		where = append(where, "r.status = ?")
		args = append(args, f.RawStatus)
	}
	if f.CategoryID != 0 {
		where = append(where, "l.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if strings.TrimSpace(f.Query) != "" {
		like := likeArg(f.Query)
		where = append(where,
			"(LOWER(r.customer_name) LIKE ? OR LOWER(r.customer_phone) LIKE ? OR LOWER(r.description) LIKE ? OR LOWER(l.name) LIKE ?)")
		args = append(args, like, like, like, like)
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// List returns matching reservations, newest first.
func (r *ReservationRepo) List(ctx context.Context, f ReservationFilter) ([]ReservationRow, error) {
	where, args := f.where()
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id, r.listing_id, r.customer_name, r.customer_phone, r.description, r.status, r.created_at,
		        l.name, l.category_id, c.name, l.provider_id`+reservationFrom+where+" ORDER BY r.id DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ReservationRow{}
	for rows.Next() {
		var (
			row     ReservationRow
			catID   sql.NullInt64
			catName sql.NullString
		)
		if err := rows.Scan(&row.ID, &row.ListingID, &row.CustomerName, &row.CustomerPhone,
			&row.Description, &row.Status, &row.CreatedAt,
			&row.ListingName, &catID, &catName, &row.ProviderID); err != nil {
			return nil, err
		}
		if catID.Valid {
			id := uint64(catID.Int64)
			row.CategoryID = &id
		}
		if catName.Valid {
			row.CategoryName = &catName.String
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Count returns how many reservations match f.
func (r *ReservationRepo) Count(ctx context.Context, f ReservationFilter) (int, error) {
	where, args := f.where()
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*)"+reservationFrom+where, args...).Scan(&n)
	return n, err
}

// Create stores a new request with the default status.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	if strings.TrimSpace(res.Status) == "" {
		res.Status = model.DefaultReservationStatus
	}
	res.CreatedAt = r.now()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO reservations (listing_id, customer_name, customer_phone, description, status, created_at)
		 VALUES (?,?,?,?,?,?)`,
		res.ListingID, res.CustomerName, res.CustomerPhone, res.Description, res.Status, res.CreatedAt)
	if err != nil {
		if isForeignKey(err) {
			return ErrListingNotFound
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// Get loads one reservation with its listing context.
func (r *ReservationRepo) Get(ctx context.Context, id uint64) (ReservationRow, error) {
	return r.one(ctx, ReservationFilter{}, id)
}

// GetForProvider loads a reservation only if it targets one of
// providerID's listings.
func (r *ReservationRepo) GetForProvider(ctx context.Context, id, providerID uint64) (ReservationRow, error) {
	return r.one(ctx, ReservationFilter{ProviderID: providerID}, id)
}

func (r *ReservationRepo) one(ctx context.Context, f ReservationFilter, id uint64) (ReservationRow, error) {
	where, args := f.where()
	var (
		row     ReservationRow
		catID   sql.NullInt64
		catName sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT r.id, r.listing_id, r.customer_name, r.customer_phone, r.description, r.status, r.created_at,
		        l.name, l.category_id, c.name, l.provider_id`+reservationFrom+where+" AND r.id = ?",
		append(args, id)...).Scan(&row.ID, &row.ListingID, &row.CustomerName, &row.CustomerPhone,
		&row.Description, &row.Status, &row.CreatedAt,
		&row.ListingName, &catID, &catName, &row.ProviderID)
	if errors.Is(err, sql.ErrNoRows) {
		return ReservationRow{}, ErrReservationNotFound
	}
	if err != nil {
		return ReservationRow{}, err
	}
	if catID.Valid {
		cid := uint64(catID.Int64)
		row.CategoryID = &cid
	}
	if catName.Valid {
		row.CategoryName = &catName.String
	}
	return row, nil
}

// UpdateStatus stores value as the reservation's status.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id uint64, value string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE reservations SET status = ? WHERE id = ?", value, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrReservationNotFound
	}
	return nil
}

// UpdateStatusForProvider stores value only when the reservation targets
// one of providerID's listings.
func (r *ReservationRepo) UpdateStatusForProvider(ctx context.Context, id, providerID uint64, value string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET status = ?
		 WHERE id = ? AND listing_id IN (SELECT id FROM service_listings WHERE provider_id = ?)`,
		value, id, providerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrReservationNotFound
	}
	return nil
}
