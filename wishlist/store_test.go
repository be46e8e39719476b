package wishlist

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

const selectProductByName = "SELECT id, name, description, price, stock, created_at, updated_at FROM products WHERE name = \\$1"

var productCols = []string{"id", "name", "description", "price", "stock", "created_at", "updated_at"}

func setupWishlistTest(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func expectProduct(mock sqlmock.Sqlmock, name string) {
	mock.ExpectQuery(selectProductByName).
		WithArgs(name).
		WillReturnRows(sqlmock.NewRows(productCols).
			AddRow("p-1", name, "", "25.50", 4, time.Now(), time.Now()))
}

func TestAdd_ReturnsExistingEntry(t *testing.T) {
	store, mock := setupWishlistTest(t)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		expectProduct(mock, "Mate")
		mock.ExpectQuery("INSERT INTO wish_items (.+) ON CONFLICT \\(user_id, product_id\\) DO UPDATE").
			WithArgs(sqlmock.AnyArg(), "u-1", "p-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "product_id", "created_at"}).
				AddRow("w-1", "u-1", "p-1", created))
	}

	first, err := store.Add(context.Background(), "u-1", "Mate")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	second, err := store.Add(context.Background(), "u-1", "Mate")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("Expected the same entry, got %s and %s", first.ID, second.ID)
	}
	if second.Product == nil || second.Product.Name != "Mate" {
		t.Errorf("Expected product to be attached, got %+v", second.Product)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestAdd_UnknownProduct(t *testing.T) {
	store, mock := setupWishlistTest(t)

	mock.ExpectQuery(selectProductByName).WithArgs("Ghost").WillReturnError(sql.ErrNoRows)

	if _, err := store.Add(context.Background(), "u-1", "Ghost"); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}
}

func TestList(t *testing.T) {
	store, mock := setupWishlistTest(t)

	mock.ExpectQuery("SELECT (.+) FROM wish_items w JOIN products p").
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "product_id", "created_at",
			"name", "description", "price", "stock", "p_created_at", "p_updated_at"}).
			AddRow("w-1", "u-1", "p-1", time.Now(), "Mate", "gourd", "25.50", 4, time.Now(), time.Now()))

	items, err := store.List(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(items) != 1 || items[0].Product.ID != "p-1" {
		t.Errorf("Expected one item for p-1, got %+v", items)
	}
}

func TestContains(t *testing.T) {
	store, mock := setupWishlistTest(t)

	expectProduct(mock, "Mate")
	mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM wish_items WHERE user_id = \\$1 AND product_id = \\$2\\)").
		WithArgs("u-1", "p-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := store.Contains(context.Background(), "u-1", "Mate")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !ok {
		t.Error("Expected product to be in the wishlist")
	}
}

func TestRemove_NotInWishlist(t *testing.T) {
	store, mock := setupWishlistTest(t)

	expectProduct(mock, "Mate")
	mock.ExpectExec("DELETE FROM wish_items WHERE user_id = \\$1 AND product_id = \\$2").
		WithArgs("u-1", "p-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Remove(context.Background(), "u-1", "Mate"); !errors.Is(err, ErrItemNotInWishlist) {
		t.Errorf("Expected ErrItemNotInWishlist, got %v", err)
	}
}

func TestClear_ReturnsCount(t *testing.T) {
	store, mock := setupWishlistTest(t)

	mock.ExpectExec("DELETE FROM wish_items WHERE user_id = \\$1").
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.Clear(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 removed, got %d", n)
	}
}
