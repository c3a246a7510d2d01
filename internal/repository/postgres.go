// Package repository provides persistence implementations for the catalog,
// orders and admin configuration, backed by MongoDB or by PostgreSQL JSONB
// documents.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/atinyakov/fasogadget/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// persistErr marks err as a models.ErrPersistence and keeps the driver error
// in the chain.
func persistErr(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%w: %s: %s: %w", models.ErrPersistence, op, pqErr.Code.Name(), err)
	}
	return fmt.Errorf("%w: %s: %w", models.ErrPersistence, op, err)
}

// productDoc is the JSONB body of a products row. The id lives in its own
// column.
type productDoc struct {
	Name     string          `json:"name"`
	Category models.Category `json:"category"`
	Price    int64           `json:"price"`
	Image    string          `json:"image"`
	Badge    string          `json:"badge"`
}

func (d productDoc) product(id string) models.Product {
	return models.Product{ID: id, Name: d.Name, Category: d.Category, Price: d.Price, Image: d.Image, Badge: d.Badge}
}

// PostgresProductRepository stores products as JSONB documents.
type PostgresProductRepository struct {
	// DB is the database handle for executing queries.
	DB    *sql.DB
	newID func() string
}

// NewPostgresProductRepository creates a repository over db.
func NewPostgresProductRepository(db *sql.DB) *PostgresProductRepository {
	return &PostgresProductRepository{DB: db, newID: uuid.NewString}
}

// List returns every product in insertion order.
func (r *PostgresProductRepository) List(ctx context.Context) ([]models.Product, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, doc FROM products ORDER BY created_at, id`)
	if err != nil {
		return nil, persistErr("list products", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var (
			id  string
			raw []byte
			doc productDoc
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, persistErr("scan product", err)
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, persistErr("decode product "+id, err)
		}
		products = append(products, doc.product(id))
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list products", err)
	}
	return products, nil
}

// Get returns the product id or models.ErrNotFound.
func (r *PostgresProductRepository) Get(ctx context.Context, id string) (*models.Product, error) {
	var raw []byte
	err := r.DB.QueryRowContext(ctx, `SELECT doc FROM products WHERE id = $1`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, persistErr("get product", err)
	}
	var doc productDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, persistErr("decode product "+id, err)
	}
	p := doc.product(id)
	return &p, nil
}

// Insert stores p under a new id.
func (r *PostgresProductRepository) Insert(ctx context.Context, p models.Product) (string, error) {
	raw, err := json.Marshal(productDoc{Name: p.Name, Category: p.Category, Price: p.Price, Image: p.Image, Badge: p.Badge})
	if err != nil {
		return "", fmt.Errorf("encode product: %w", err)
	}
	id := r.newID()
	if _, err := r.DB.ExecContext(ctx, `INSERT INTO products (id, doc) VALUES ($1, $2)`, id, raw); err != nil {
		return "", persistErr("insert product", err)
	}
	return id, nil
}

// Update merges the fields set in patch into the stored document.
func (r *PostgresProductRepository) Update(ctx context.Context, id string, patch models.ProductPatch) error {
	raw, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}
	res, err := r.DB.ExecContext(ctx, `UPDATE products SET doc = doc || $2::jsonb WHERE id = $1`, id, raw)
	if err != nil {
		return persistErr("update product", err)
	}
	return expectOne(res, "product "+id)
}

// Delete removes the product id.
func (r *PostgresProductRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return persistErr("delete product", err)
	}
	return expectOne(res, "product "+id)
}

// Count returns the number of products.
func (r *PostgresProductRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, persistErr("count products", err)
	}
	return n, nil
}

func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr("rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	return nil
}

// PostgresOrderRepository stores orders as JSONB documents.
type PostgresOrderRepository struct {
	// DB is the database handle for executing queries.
	DB    *sql.DB
	newID func() string
}

// NewPostgresOrderRepository creates a repository over db.
func NewPostgresOrderRepository(db *sql.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{DB: db, newID: uuid.NewString}
}

// Insert stores order under a new id.
func (r *PostgresOrderRepository) Insert(ctx context.Context, order models.Order) (string, error) {
	order.ID = ""
	raw, err := json.Marshal(order)
	if err != nil {
		return "", fmt.Errorf("encode order: %w", err)
	}
	id := r.newID()
	if _, err := r.DB.ExecContext(ctx, `INSERT INTO orders (id, doc) VALUES ($1, $2)`, id, raw); err != nil {
		return "", persistErr("insert order", err)
	}
	return id, nil
}

// List returns every order, most recently stored first.
func (r *PostgresOrderRepository) List(ctx context.Context) ([]models.Order, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, doc FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, persistErr("list orders", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var (
			id  string
			raw []byte
			o   models.Order
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, persistErr("scan order", err)
		}
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, persistErr("decode order "+id, err)
		}
		o.ID = id
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list orders", err)
	}
	return orders, nil
}

// PostgresConfigRepository stores the AdminConfig singleton.
type PostgresConfigRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresConfigRepository creates a repository over db.
func NewPostgresConfigRepository(db *sql.DB) *PostgresConfigRepository {
	return &PostgresConfigRepository{DB: db}
}

// GetAdminConfig returns the stored credentials or models.ErrNotFound.
func (r *PostgresConfigRepository) GetAdminConfig(ctx context.Context) (*models.AdminConfig, error) {
	var raw []byte
	err := r.DB.QueryRowContext(ctx, `SELECT doc FROM config WHERE id = $1`, models.AdminConfigID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("admin config: %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, persistErr("get admin config", err)
	}
	var cfg models.AdminConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, persistErr("decode admin config", err)
	}
	return &cfg, nil
}

// SaveAdminConfig inserts or replaces the singleton.
func (r *PostgresConfigRepository) SaveAdminConfig(ctx context.Context, cfg models.AdminConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode admin config: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO config (id, doc) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc
	`, models.AdminConfigID, raw)
	if err != nil {
		return persistErr("save admin config", err)
	}
	return nil
}
