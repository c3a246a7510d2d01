package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/atinyakov/fasogadget/internal/models"
	"github.com/lib/pq"
)

func setupMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

func TestProductList_Empty(t *testing.T) {
	db, mock := setupMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, doc FROM products ORDER BY created_at, id`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "doc"}))

	got, err := NewPostgresProductRepository(db).List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("List = %#v; want empty slice", got)
	}
}

func TestProductList_Success(t *testing.T) {
	db, mock := setupMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, doc FROM products`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "doc"}).
			AddRow("p1", []byte(`{"name":"JBL Flip 6","category":"audio","price":85000,"image":"","badge":""}`)).
			AddRow("p2", []byte(`{"name":"Xiaomi 14 Pro","category":"smartphone","price":450000,"image":"/uploads/x.png","badge":"Promo"}`)))

	got, err := NewPostgresProductRepository(db).List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []models.Product{
		{ID: "p1", Name: "JBL Flip 6", Category: models.Audio, Price: 85000},
		{ID: "p2", Name: "Xiaomi 14 Pro", Category: models.Smartphone, Price: 450000, Image: "/uploads/x.png", Badge: "Promo"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d products; want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("product %d = %+v; want %+v", i, got[i], want[i])
		}
	}
}

func TestProductList_QueryError(t *testing.T) {
	db, mock := setupMock(t)
	mock.ExpectQuery(`SELECT id, doc FROM products`).WillReturnError(&pq.Error{Code: "42P01"})

	_, err := NewPostgresProductRepository(db).List(context.Background())
	if !errors.Is(err, models.ErrPersistence) {
		t.Fatalf("error = %v; want ErrPersistence", err)
	}
	if !regexp.MustCompile(`undefined_table`).MatchString(err.Error()) {
		t.Errorf("error %q should name the postgres condition", err)
	}
}

func TestProductGet(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewPostgresProductRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT doc FROM products WHERE id = $1`)).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow([]byte(`{"name":"x","category":"audio","price":1}`)))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT doc FROM products WHERE id = $1`)).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	p, err := repo.Get(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.ID != "p1" || p.Name != "x" {
		t.Errorf("product = %+v", p)
	}
	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("error = %v; want ErrNotFound", err)
	}
}

func TestProductInsert(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewPostgresProductRepository(db)
	repo.newID = func() string { return "fixed-id" }

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO products (id, doc) VALUES ($1, $2)`)).
		WithArgs("fixed-id", []byte(`{"name":"Test Phone","category":"smartphone","price":100000,"image":"","badge":""}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := repo.Insert(context.Background(), models.Product{Name: "Test Phone", Category: models.Smartphone, Price: 100000})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id != "fixed-id" {
		t.Errorf("id = %q", id)
	}
}

func TestProductUpdate_MergesPatch(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewPostgresProductRepository(db)
	badge := ""

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE products SET doc = doc || $2::jsonb WHERE id = $1`)).
		WithArgs("p1", []byte(`{"badge":""}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE products SET doc = doc || $2::jsonb WHERE id = $1`)).
		WithArgs("gone", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Update(context.Background(), "p1", models.ProductPatch{Badge: &badge}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := repo.Update(context.Background(), "gone", models.ProductPatch{Badge: &badge}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("error = %v; want ErrNotFound", err)
	}
}

func TestProductDeleteAndCount(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewPostgresProductRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM products WHERE id = $1`)).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM products WHERE id = $1`)).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM products`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(12)))

	if err := repo.Delete(context.Background(), "p1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(context.Background(), "p1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("second Delete error = %v; want ErrNotFound", err)
	}
	n, err := repo.Count(context.Background())
	if err != nil || n != 12 {
		t.Errorf("Count = %d, %v; want 12", n, err)
	}
}

func TestOrderInsertAndList(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewPostgresOrderRepository(db)
	repo.newID = func() string { return "o1" }

	order := models.Order{
		Client: models.Customer{LastName: "Sawadogo", FirstName: "Ali", Phone: "76000000", Locality: "Koudougou"},
		Items:  []models.OrderItem{{Name: "Power Bank", UnitPrice: 35000, Quantity: 1, Subtotal: 35000}},
		Total:  35000,
		Date:   "2024-06-01T12:00:00.000Z",
		Number: "FG-1",
	}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO orders (id, doc) VALUES ($1, $2)`)).
		WithArgs("o1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, doc FROM orders ORDER BY created_at DESC`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "doc"}).
			AddRow("o1", []byte(`{"client":{"nom":"Sawadogo","prenom":"Ali","telephone":"76000000","localite":"Koudougou"},"produits":[{"nom":"Power Bank","prix":35000,"quantite":1,"sousTotal":35000}],"total":35000,"date":"2024-06-01T12:00:00.000Z","numeroCommande":"FG-1"}`)))

	id, err := repo.Insert(context.Background(), order)
	if err != nil || id != "o1" {
		t.Fatalf("Insert = %q, %v", id, err)
	}
	got, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].ID != "o1" || got[0].Total != 35000 || got[0].Client.Locality != "Koudougou" || got[0].Items[0].Subtotal != 35000 {
		t.Errorf("orders = %+v", got)
	}
}

func TestOrderInsert_Error(t *testing.T) {
	db, mock := setupMock(t)
	mock.ExpectExec(`INSERT INTO orders`).WillReturnError(errors.New("connection reset"))

	_, err := NewPostgresOrderRepository(db).Insert(context.Background(), models.Order{})
	if !errors.Is(err, models.ErrPersistence) {
		t.Errorf("error = %v; want ErrPersistence", err)
	}
}

func TestAdminConfig(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewPostgresConfigRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT doc FROM config WHERE id = $1`)).
		WithArgs("admin").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO config (id, doc) VALUES ($1, $2)`)).
		WithArgs("admin", []byte(`{"username":"admin","passwordHash":"$2a$hash"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT doc FROM config WHERE id = $1`)).
		WithArgs("admin").
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow([]byte(`{"username":"admin","password":"admin"}`)))

	if _, err := repo.GetAdminConfig(context.Background()); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("error = %v; want ErrNotFound", err)
	}
	if err := repo.SaveAdminConfig(context.Background(), models.AdminConfig{Username: "admin", PasswordHash: "$2a$hash"}); err != nil {
		t.Fatalf("SaveAdminConfig: %v", err)
	}
	cfg, err := repo.GetAdminConfig(context.Background())
	if err != nil {
		t.Fatalf("GetAdminConfig: %v", err)
	}
	if cfg.Username != "admin" || cfg.LegacyPassword != "admin" || cfg.PasswordHash != "" {
		t.Errorf("config = %+v", cfg)
	}
}
