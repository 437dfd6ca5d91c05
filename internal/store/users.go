package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// ErrDuplicateUser indicates a username or email is already taken.
var ErrDuplicateUser = errors.New("user already exists")

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user. Password must already be hashed by the caller.
func (r *UserRepository) Create(ctx context.Context, u *User) error {
	var exists int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE username = ? OR email = ?",
		u.Username, u.Email).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check user uniqueness: %w", err)
	}
	if exists > 0 {
		return ErrDuplicateUser
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (username, password, address, email, role)
		VALUES (?, ?, ?, ?, ?)`,
		u.Username, u.Password, u.Address, u.Email, u.Role)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrDuplicateUser
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	return err
}

// FindByUsername returns a user or nil when absent. The password hash is
// included for login verification.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := r.db.QueryRowContext(ctx,
		"SELECT id, username, password, address, email, role FROM users WHERE username = ?",
		username).Scan(&u.ID, &u.Username, &u.Password, &u.Address, &u.Email, &u.Role)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user %q: %w", username, err)
	}
	return &u, nil
}

// FindByID returns a user or nil when absent.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	var u User
	err := r.db.QueryRowContext(ctx,
		"SELECT id, username, password, address, email, role FROM users WHERE id = ?",
		id).Scan(&u.ID, &u.Username, &u.Password, &u.Address, &u.Email, &u.Role)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user %d: %w", id, err)
	}
	return &u, nil
}

// UpdateAddress stores a new shipping address for the user.
func (r *UserRepository) UpdateAddress(ctx context.Context, id int64, address string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE users SET address = ? WHERE id = ?", address, id)
	if err != nil {
		return fmt.Errorf("update user %d address: %w", id, err)
	}
	return nil
}
