// Package testutil provides shared helpers for package tests: temp-file
// SQLite databases and seed fixtures.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/velikanov/teleshop/internal/store"
)

// OpenTestDB opens a fresh SQLite database in a per-test temp directory.
// In-memory SQLite is unsuitable here: database/sql pools connections and
// each pooled connection would see its own empty :memory: database.
func OpenTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// SeedUser inserts a user row with a fixed id.
func SeedUser(t *testing.T, db *sql.DB, id int64, username, address, role string) {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO users (id, username, password, address, email, role) VALUES (?, ?, 'x', ?, ?, ?)",
		id, username, address, username+"@example.com", role,
	)
	if err != nil {
		t.Fatalf("seed user %d: %v", id, err)
	}
}

// SeedType inserts a product type row with a fixed id.
func SeedType(t *testing.T, db *sql.DB, id int64, name string) {
	t.Helper()
	if _, err := db.Exec("INSERT INTO product_types (id, name) VALUES (?, ?)", id, name); err != nil {
		t.Fatalf("seed product type %d: %v", id, err)
	}
}

// SeedProduct inserts a product row with a fixed id and no type.
func SeedProduct(t *testing.T, db *sql.DB, id int64, name string, price float64) {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO products (id, name, description, price) VALUES (?, ?, '', ?)",
		id, name, price,
	)
	if err != nil {
		t.Fatalf("seed product %d: %v", id, err)
	}
}
