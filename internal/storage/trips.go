package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"trip-expenses/internal/models"
)

func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func fromNullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// CreateTrip inserts a trip and sets its ID. Dates are stored as given; no
// ordering between start and end is enforced.
func (db *DB) CreateTrip(ctx context.Context, t *models.Trip) error {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return errors.New("trip title is required")
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	err := db.conn.QueryRowContext(ctx,
		"INSERT INTO trips (title, start_date, end_date, created_by, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		t.Title, nullDate(t.StartDate), nullDate(t.EndDate), t.CreatedBy, t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}
	return nil
}

// GetTrip retrieves a single trip by ID.
func (db *DB) GetTrip(ctx context.Context, id int64) (*models.Trip, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, title, start_date, end_date, created_by, created_at FROM trips WHERE id = $1",
		id,
	)
	var t models.Trip
	var start, end sql.NullTime
	if err := row.Scan(&t.ID, &t.Title, &start, &end, &t.CreatedBy, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t.StartDate = fromNullTime(start)
	t.EndDate = fromNullTime(end)
	return &t, nil
}

// ListTrips returns every trip, newest first, for selection lists.
func (db *DB) ListTrips(ctx context.Context) ([]models.Trip, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, title, start_date, end_date, created_by, created_at FROM trips ORDER BY created_at DESC, id DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []models.Trip
	for rows.Next() {
		var t models.Trip
		var start, end sql.NullTime
		if err := rows.Scan(&t.ID, &t.Title, &start, &end, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.StartDate = fromNullTime(start)
		t.EndDate = fromNullTime(end)
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

// ListTripSummaries returns every trip with the total and count of its
// non-rejected expenses. A non-zero scopeUserID restricts the aggregates to that
// user's expenses; zero aggregates over all users.
func (db *DB) ListTripSummaries(ctx context.Context, scopeUserID int64) ([]models.TripSummary, error) {
	scope := ""
	var args []any
	if scopeUserID != 0 {
		scope = " AND e.user_id = $1"
		args = append(args, scopeUserID)
	}
	query := `
		SELECT t.id, t.title, t.start_date, t.end_date, t.created_by, t.created_at,
			COALESCE(u.name, ''),
			COALESCE(SUM(CASE WHEN e.status <> 'rejeitado' THEN e.amount END), 0),
			COUNT(CASE WHEN e.status <> 'rejeitado' THEN e.id END)
		FROM trips t
		LEFT JOIN users u ON u.id = t.created_by
		LEFT JOIN expenses e ON e.trip_id = t.id` + scope + `
		GROUP BY t.id, t.title, t.start_date, t.end_date, t.created_by, t.created_at, u.name
		ORDER BY t.created_at DESC, t.id DESC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TripSummary
	for rows.Next() {
		var s models.TripSummary
		var start, end sql.NullTime
		if err := rows.Scan(&s.ID, &s.Title, &start, &end, &s.CreatedBy, &s.CreatedAt,
			&s.CreatorName, &s.Total, &s.Count); err != nil {
			return nil, err
		}
		s.StartDate = fromNullTime(start)
		s.EndDate = fromNullTime(end)
		s.Total = s.Total.Round(2)
		out = append(out, s)
	}
	return out, rows.Err()
}

// TripTotal sums the non-rejected expenses of a trip, optionally scoped to one user.
func (db *DB) TripTotal(ctx context.Context, tripID, scopeUserID int64) (decimal.Decimal, error) {
	query := "SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE trip_id = $1 AND status <> 'rejeitado'"
	args := []any{tripID}
	if scopeUserID != 0 {
		query += " AND user_id = $2"
		args = append(args, scopeUserID)
	}
	var total decimal.Decimal
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total.Round(2), nil
}

// UserTotals breaks a trip's non-rejected total down by submitter.
func (db *DB) UserTotals(ctx context.Context, tripID int64) ([]models.UserTotal, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT u.id, u.name, COALESCE(SUM(e.amount), 0), COUNT(e.id)
		FROM expenses e
		JOIN users u ON u.id = e.user_id
		WHERE e.trip_id = $1 AND e.status <> 'rejeitado'
		GROUP BY u.id, u.name
		ORDER BY u.name`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.UserTotal
	for rows.Next() {
		var ut models.UserTotal
		if err := rows.Scan(&ut.UserID, &ut.UserName, &ut.Total, &ut.Count); err != nil {
			return nil, err
		}
		ut.Total = ut.Total.Round(2)
		out = append(out, ut)
	}
	return out, rows.Err()
}
