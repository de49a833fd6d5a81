package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"trip-expenses/internal/models"
	"trip-expenses/internal/money"
)

// CreateExpense inserts a new expense in pendente status and sets its ID.
// The amount is rounded to cents first; amounts that are then not strictly
// positive or exceed money.MaxAmount are refused with ErrInvalidAmount.
func (db *DB) CreateExpense(ctx context.Context, e *models.Expense) error {
	e.Amount = money.Cents(e.Amount)
	if !money.Valid(e.Amount) {
		return ErrInvalidAmount
	}
	e.Status = models.StatusPending
	e.Description = strings.TrimSpace(e.Description)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	var receipt any
	if e.ReceiptURL != "" {
		receipt = e.ReceiptURL
	}
	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO expenses (trip_id, user_id, description, amount, status, receipt_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		e.TripID, e.UserID, e.Description, e.Amount, string(e.Status), receipt, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

const expenseSelect = `
	SELECT e.id, e.trip_id, e.user_id, COALESCE(u.name, ''), e.description, e.amount,
		e.status, e.receipt_url, e.created_at
	FROM expenses e
	LEFT JOIN users u ON u.id = e.user_id`

func scanExpense(row interface{ Scan(...any) error }) (*models.Expense, error) {
	var e models.Expense
	var status string
	var receipt sql.NullString
	if err := row.Scan(&e.ID, &e.TripID, &e.UserID, &e.UserName, &e.Description, &e.Amount,
		&status, &receipt, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Status = models.ExpenseStatus(status)
	e.ReceiptURL = receipt.String
	e.Amount = e.Amount.Round(2)
	return &e, nil
}

// GetExpense retrieves a single expense by ID.
func (db *DB) GetExpense(ctx context.Context, id int64) (*models.Expense, error) {
	e, err := scanExpense(db.conn.QueryRowContext(ctx, expenseSelect+" WHERE e.id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// ListTripExpenses returns a trip's expenses, newest first. A non-zero
// scopeUserID restricts the list to that submitter.
func (db *DB) ListTripExpenses(ctx context.Context, tripID, scopeUserID int64) ([]models.Expense, error) {
	query := expenseSelect + " WHERE e.trip_id = $1"
	args := []any{tripID}
	if scopeUserID != 0 {
		query += " AND e.user_id = $2"
		args = append(args, scopeUserID)
	}
	query += " ORDER BY e.created_at DESC, e.id DESC"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

// UpdateExpenseStatus records an admin review decision.
func (db *DB) UpdateExpenseStatus(ctx context.Context, id int64, status models.ExpenseStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	res, err := db.conn.ExecContext(ctx, "UPDATE expenses SET status = $1 WHERE id = $2", string(status), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
