package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"trip-expenses/internal/models"
)

// NormalizeEmail trims and lower-cases an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

const userColumns = "id, name, email, role, password_hash, created_at"

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var role string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Role = models.ParseRole(role)
	return &u, nil
}

// CreateUser inserts a user. The email is normalized first; an existing email
// yields ErrDuplicateEmail and no row is written.
func (db *DB) CreateUser(ctx context.Context, name, email string, role models.Role, passwordHash string) (*models.User, error) {
	email = NormalizeEmail(email)

	if _, err := db.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	var id int64
	err := db.conn.QueryRowContext(ctx,
		"INSERT INTO users (name, email, role, password_hash, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		strings.TrimSpace(name), email, string(role), passwordHash, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return db.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by normalized email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", NormalizeEmail(email))
	return scanUser(row)
}

// EnsureAdmin creates an admin account with the given email unless one
// already exists. hash is only called when a row has to be written. A
// concurrent bootstrap that wins the insert is treated as success.
func (db *DB) EnsureAdmin(ctx context.Context, name, email string, hash func() (string, error)) (bool, error) {
	if _, err := db.GetUserByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	passwordHash, err := hash()
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}
	if _, err := db.CreateUser(ctx, name, email, models.RoleAdmin, passwordHash); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// UserCount returns the number of users in the database.
func (db *DB) UserCount(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}
