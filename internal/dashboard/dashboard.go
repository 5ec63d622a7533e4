// Package dashboard builds the reservation tables shown to staff and to
// providers: optional listing and status filters, per-status summary
// counts over the unfiltered set, and annotated rows.
package dashboard

import (
	"context"
	"strconv"
	"strings"

	"github.com/iliyamo/services-marketplace/internal/model"
	"github.com/iliyamo/services-marketplace/internal/repository"
	"github.com/iliyamo/services-marketplace/internal/status"
)

// Query carries the raw `service` and `status` query-string values.
type Query struct {
	Service string
	Status  string
}

// Row is one reservation annotated for display. Priority is only set on
// the staff dashboard.
type Row struct {
	Reservation   repository.ReservationRow
	Status        string
	StatusClass   string
	Priority      status.Priority
	PriorityClass string
}

// Result is what both dashboards share. SelectedService is 0 when no
// listing filter was applied; SelectedStatus is "" when no status filter
// was applied.
type Result struct {
	Rows            []Row
	Counts          map[string]int
	Total           int
	SelectedService uint64
	SelectedStatus  string
}

// StaffResult adds the listings offered in the staff listing filter.
type StaffResult struct {
	Result
	ServiceOptions []model.Listing
}

// ProviderResult adds the provider's own listings and their totals.
type ProviderResult struct {
	Result
	Listings          []model.Listing
	ListingsTotal     int
	ListingsPublished int
}

// ReservationStore is the subset of the reservation repository the
// dashboards read from.
type ReservationStore interface {
	List(ctx context.Context, f repository.ReservationFilter) ([]repository.ReservationRow, error)
	Count(ctx context.Context, f repository.ReservationFilter) (int, error)
}

// ListingStore is the subset of the listing repository the dashboards
// read from.
type ListingStore interface {
	Exists(ctx context.Context, id, providerID uint64) (bool, error)
	ListWithReservations(ctx context.Context) ([]model.Listing, error)
	ListByProvider(ctx context.Context, providerID uint64) ([]model.Listing, error)
	CountByProvider(ctx context.Context, providerID uint64) (total, published int, err error)
}

// Service computes dashboards. It holds no state besides its stores.
type Service struct {
	reservations ReservationStore
	listings     ListingStore
}

func NewService(reservations ReservationStore, listings ListingStore) *Service {
	return &Service{reservations: reservations, listings: listings}
}

// Staff builds the marketplace-wide dashboard. Statuses are read with the
// extended table, which also knows the English spellings.
func (s *Service) Staff(ctx context.Context, q Query) (StaffResult, error) {
	res, err := s.build(ctx, scope{table: status.Extended, priority: true}, q)
	if err != nil {
		return StaffResult{}, err
	}
	options, err := s.listings.ListWithReservations(ctx)
	if err != nil {
		return StaffResult{}, err
	}
	return StaffResult{Result: res, ServiceOptions: options}, nil
}

// Provider builds the dashboard of one provider. Only that provider's
// listings can be selected; any other id is ignored.
func (s *Service) Provider(ctx context.Context, providerID uint64, q Query) (ProviderResult, error) {
	res, err := s.build(ctx, scope{table: status.Default, providerID: providerID}, q)
	if err != nil {
		return ProviderResult{}, err
	}
	listings, err := s.listings.ListByProvider(ctx, providerID)
	if err != nil {
		return ProviderResult{}, err
	}
	total, published, err := s.listings.CountByProvider(ctx, providerID)
	if err != nil {
		return ProviderResult{}, err
	}
	return ProviderResult{
		Result:            res,
		Listings:          listings,
		ListingsTotal:     total,
		ListingsPublished: published,
	}, nil
}

type scope struct {
	table      *status.Table
	providerID uint64 // 0 for the staff view
	priority   bool
}

func (s *Service) build(ctx context.Context, sc scope, q Query) (Result, error) {
	base := repository.ReservationFilter{ProviderID: sc.providerID}

	res := Result{Counts: make(map[string]int, len(status.Labels))}
	total, err := s.reservations.Count(ctx, base)
	if err != nil {
		return Result{}, err
	}
	res.Total = total
	for _, label := range status.Labels {
		p := sc.table.Predicate(label)
		n, err := s.reservations.Count(ctx, repository.ReservationFilter{ProviderID: sc.providerID, Status: &p})
		if err != nil {
			return Result{}, err
		}
		res.Counts[label] = n
	}

	filtered := base
	if id, ok := parseID(q.Service); ok {
		exists, err := s.listings.Exists(ctx, id, sc.providerID)
		if err != nil {
			return Result{}, err
		}
		if exists {
			filtered.ListingID = id
			res.SelectedService = id
		}
	}
	if label := sc.table.Canonical(q.Status); label != "" {
		p := sc.table.Predicate(label)
		filtered.Status = &p
		res.SelectedStatus = label
	}

	rows, err := s.reservations.List(ctx, filtered)
	if err != nil {
		return Result{}, err
	}
	res.Rows = make([]Row, 0, len(rows))
	for _, r := range rows {
		label := sc.table.CanonicalOr(r.Status, status.Waiting)
		row := Row{Reservation: r, Status: label, StatusClass: status.Class(label)}
		if sc.priority {
			row.Priority = status.InferPriority(r.Description, r.Status)
			row.PriorityClass = row.Priority.Class()
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

// parseID accepts only a plain run of ASCII digits.
func parseID(raw string) (uint64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
