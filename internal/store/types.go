package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type TypeFilter struct {
	Search    string
	HasSearch bool
	Page      int
	Limit     int // 0 means unpaginated, the storefront menu wants all types
}

type TypeRepository struct {
	db *sql.DB
}

func NewTypeRepository(db *sql.DB) *TypeRepository {
	return &TypeRepository{db: db}
}

// List returns product types matching the filter. Without a limit the whole
// table is returned.
func (r *TypeRepository) List(ctx context.Context, f TypeFilter) (*TypePage, error) {
	where := "1=1"
	args := []any{}
	if f.HasSearch && f.Search != "" {
		where += " AND lower(name) LIKE ?"
		args = append(args, "%"+strings.ToLower(f.Search)+"%")
	}

	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM product_types WHERE "+where, args...).Scan(&count); err != nil {
		return nil, fmt.Errorf("count types: %w", err)
	}

	query := "SELECT id, name FROM product_types WHERE " + where + " ORDER BY id"
	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, (page-1)*f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query types: %w", err)
	}
	defer rows.Close()

	result := &TypePage{Count: count, Rows: []ProductType{}}
	for rows.Next() {
		var t ProductType
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan type: %w", err)
		}
		result.Rows = append(result.Rows, t)
	}
	return result, rows.Err()
}

func (r *TypeRepository) Create(ctx context.Context, t *ProductType) error {
	res, err := r.db.ExecContext(ctx, "INSERT INTO product_types (name) VALUES (?)", t.Name)
	if err != nil {
		return fmt.Errorf("insert type: %w", err)
	}
	t.ID, err = res.LastInsertId()
	return err
}

// Update renames a type. Returns sql.ErrNoRows when absent.
func (r *TypeRepository) Update(ctx context.Context, t *ProductType) error {
	res, err := r.db.ExecContext(ctx, "UPDATE product_types SET name = ? WHERE id = ?", t.Name, t.ID)
	if err != nil {
		return fmt.Errorf("update type %d: %w", t.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a type. Returns sql.ErrNoRows when absent.
func (r *TypeRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM product_types WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete type %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
