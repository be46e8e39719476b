package catalog

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"storefront-svc/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
)

var productCols = []string{"id", "name", "description", "price", "stock", "created_at", "updated_at"}

func setupCatalogTest(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func TestFindProductsByIDs_PartialResult(t *testing.T) {
	repo, mock := setupCatalogTest(t)

	rows := sqlmock.NewRows(productCols).
		AddRow("p1", "Mate", "gourd", "100", 10, time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM products WHERE id = ANY\\(\\$1\\)").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	products, err := repo.FindProductsByIDs(context.Background(), []string{"p1", "ghost"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(products) != 1 || products[0].ID != "p1" {
		t.Fatalf("Expected only p1, got %+v", products)
	}
	if !products[0].Price.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected price 100, got %s", products[0].Price)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestFindProductsByIDs_EmptySkipsQuery(t *testing.T) {
	repo, mock := setupCatalogTest(t)

	products, err := repo.FindProductsByIDs(context.Background(), nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(products) != 0 {
		t.Errorf("Expected no products, got %d", len(products))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Expected no database calls: %v", err)
	}
}

func TestFindProductByName_NotFound(t *testing.T) {
	repo, mock := setupCatalogTest(t)

	mock.ExpectQuery("SELECT (.+) FROM products WHERE name = \\$1").
		WithArgs("Unknown").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindProductByName(context.Background(), "Unknown")
	if !errors.Is(err, ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}
}

func TestUpdate_OnlyProvidedFields(t *testing.T) {
	repo, mock := setupCatalogTest(t)

	stock := 0
	mock.ExpectQuery("UPDATE products SET updated_at = CURRENT_TIMESTAMP, stock = \\$1 WHERE id = \\$2").
		WithArgs(0, "p1").
		WillReturnRows(sqlmock.NewRows(productCols).
			AddRow("p1", "Mate", "gourd", "100", 0, time.Now(), time.Now()))

	p, err := repo.Update(context.Background(), "p1", models.UpdateProductRequest{Stock: &stock})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if p.Stock != 0 {
		t.Errorf("Expected stock 0, got %d", p.Stock)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestCreate_RejectsNegativePrice(t *testing.T) {
	repo, _ := setupCatalogTest(t)

	_, err := repo.Create(context.Background(), models.CreateProductRequest{
		Name:  "Broken",
		Price: decimal.NewFromInt(-5),
	})
	if !errors.Is(err, ErrInvalidProduct) {
		t.Errorf("Expected ErrInvalidProduct, got %v", err)
	}
}

func TestFindByPriceRange(t *testing.T) {
	repo, mock := setupCatalogTest(t)

	rows := sqlmock.NewRows(productCols).
		AddRow("p2", "Bombilla", "straw", "12.50", 3, time.Now(), time.Now()).
		AddRow("p1", "Mate", "gourd", "40", 10, time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM products WHERE price >= \\$1 AND price <= \\$2 ORDER BY price").
		WithArgs("10", "50").
		WillReturnRows(rows)

	products, err := repo.FindByPriceRange(context.Background(), decimal.NewFromInt(10), decimal.NewFromInt(50))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(products) != 2 || products[0].ID != "p2" {
		t.Errorf("Expected p2 then p1, got %+v", products)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestFindByPriceRange_InvalidBounds(t *testing.T) {
	repo, mock := setupCatalogTest(t)

	tests := []struct {
		name     string
		min, max decimal.Decimal
	}{
		{"min above max", decimal.NewFromInt(50), decimal.NewFromInt(10)},
		{"negative min", decimal.NewFromInt(-1), decimal.NewFromInt(10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.FindByPriceRange(context.Background(), tt.min, tt.max)
			if !errors.Is(err, ErrInvalidPriceRange) {
				t.Errorf("Expected ErrInvalidPriceRange, got %v", err)
			}
		})
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Expected no queries, got %v", err)
	}
}
