package store_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/velikanov/teleshop/internal/store"
	"github.com/velikanov/teleshop/internal/testutil"
)

func seedCatalog(t *testing.T, db *sql.DB) {
	t.Helper()
	testutil.SeedType(t, db, 1, "Beverages")
	testutil.SeedType(t, db, 2, "Snacks")
	if _, err := db.Exec(`
		INSERT INTO products (id, name, description, price, product_type_id, created_at) VALUES
		(1, 'Green Tea', 'fresh leaves', 10, 1, '2024-01-01 10:00:00'),
		(2, 'Coffee', 'dark roast', 15, 1, '2024-01-02 10:00:00'),
		(3, 'Crackers', 'salty tea companion', 5, 2, '2024-01-03 10:00:00')
	`); err != nil {
		t.Fatal(err)
	}
}

func TestProductList_FilterAndSort(t *testing.T) {
	db := testutil.OpenTestDB(t)
	seedCatalog(t, db)
	repo := store.NewProductRepository(db)
	ctx := context.Background()

	tests := []struct {
		name      string
		filter    store.ProductFilter
		wantCount int
		wantFirst string
	}{
		{
			name:      "default is newest first",
			filter:    store.ProductFilter{},
			wantCount: 3,
			wantFirst: "Crackers",
		},
		{
			name:      "price ascending",
			filter:    store.ProductFilter{SortOrder: "asc"},
			wantCount: 3,
			wantFirst: "Crackers",
		},
		{
			name:      "price descending",
			filter:    store.ProductFilter{SortOrder: "desc"},
			wantCount: 3,
			wantFirst: "Coffee",
		},
		{
			name:      "filter by type",
			filter:    store.ProductFilter{ProductTypeID: ptrInt64(2)},
			wantCount: 1,
			wantFirst: "Crackers",
		},
		{
			name:      "search matches name case-insensitively",
			filter:    store.ProductFilter{Search: "TEA", HasSearch: true},
			wantCount: 2,
			wantFirst: "Crackers", // matched via description, newest first
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.filter.Normalize()
			page, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if page.Count != tt.wantCount {
				t.Errorf("count = %d, want %d", page.Count, tt.wantCount)
			}
			if len(page.Rows) == 0 || page.Rows[0].Name != tt.wantFirst {
				t.Errorf("first row = %v, want %s", page.Rows, tt.wantFirst)
			}
		})
	}
}

func TestProductList_Pagination(t *testing.T) {
	db := testutil.OpenTestDB(t)
	seedCatalog(t, db)
	repo := store.NewProductRepository(db)
	ctx := context.Background()

	page1, err := repo.List(ctx, store.ProductFilter{Page: 1, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	page2, err := repo.List(ctx, store.ProductFilter{Page: 2, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}

	if page1.Count != 3 || page2.Count != 3 {
		t.Errorf("counts = %d, %d, want 3 on every page", page1.Count, page2.Count)
	}
	if len(page1.Rows) != 2 || len(page2.Rows) != 1 {
		t.Errorf("rows = %d, %d, want 2 and 1", len(page1.Rows), len(page2.Rows))
	}
}

func TestProductGetByID(t *testing.T) {
	db := testutil.OpenTestDB(t)
	seedCatalog(t, db)
	repo := store.NewProductRepository(db)
	ctx := context.Background()

	product, err := repo.GetByID(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if product == nil || product.Name != "Green Tea" {
		t.Fatalf("product = %+v", product)
	}
	if product.ProductType == nil || product.ProductType.Name != "Beverages" {
		t.Errorf("productType = %+v, want joined Beverages", product.ProductType)
	}

	missing, err := repo.GetByID(ctx, 999)
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown id, got %+v", missing)
	}
}

func TestProductCreateUpdateDelete(t *testing.T) {
	db := testutil.OpenTestDB(t)
	testutil.SeedType(t, db, 1, "Beverages")
	repo := store.NewProductRepository(db)
	ctx := context.Background()

	p := &store.Product{Name: "Mate", Description: "southern", Price: 12, InStock: true, ProductTypeID: 1}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatal(err)
	}
	if p.ID == 0 {
		t.Fatal("Create should backfill the id")
	}

	p.Price = 13
	if err := repo.Update(ctx, p); err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Price != 13 {
		t.Errorf("price = %v, want 13", got.Price)
	}

	if err := repo.Delete(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete(ctx, p.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("second delete = %v, want sql.ErrNoRows", err)
	}
}

func ptrInt64(v int64) *int64 { return &v }
