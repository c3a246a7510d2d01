package service

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/atinyakov/fasogadget/internal/models"
)

type memProductRepo struct {
	products map[string]models.Product
	order    []string
	listErr  error
}

func newMemProductRepo() *memProductRepo {
	return &memProductRepo{products: map[string]models.Product{}}
}

func (m *memProductRepo) List(ctx context.Context) ([]models.Product, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.Product
	for _, id := range m.order {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProductRepo) Get(ctx context.Context, id string) (*models.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &p, nil
}

func (m *memProductRepo) Insert(ctx context.Context, p models.Product) (string, error) {
	id := strconv.Itoa(len(m.order) + 1)
	p.ID = id
	m.products[id] = p
	m.order = append(m.order, id)
	return id, nil
}

func (m *memProductRepo) Update(ctx context.Context, id string, patch models.ProductPatch) error {
	p, ok := m.products[id]
	if !ok {
		return models.ErrNotFound
	}
	m.products[id] = patch.Apply(p)
	return nil
}

func (m *memProductRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.products[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *memProductRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(m.products)), nil
}

func TestCatalogList_EmptyIsNotNil(t *testing.T) {
	svc := NewCatalogService(newMemProductRepo(), nil)
	got, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("List = %#v; want empty non-nil slice", got)
	}
}

func TestCatalogList_Error(t *testing.T) {
	repo := newMemProductRepo()
	repo.listErr = models.ErrPersistence
	if _, err := NewCatalogService(repo, nil).List(context.Background()); !errors.Is(err, models.ErrPersistence) {
		t.Errorf("error = %v; want ErrPersistence", err)
	}
}

func TestCatalogAdd(t *testing.T) {
	repo := newMemProductRepo()
	svc := NewCatalogService(repo, nil)

	p, err := svc.Add(context.Background(), ProductInput{Name: "Test Phone", Category: models.Smartphone, Price: 100000})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if p.ID == "" || p.Image != "" || p.Price != 100000 {
		t.Errorf("unexpected product %+v", p)
	}
	if _, ok := repo.products[p.ID]; !ok {
		t.Error("product not stored")
	}
}

func TestCatalogAdd_Invalid(t *testing.T) {
	svc := NewCatalogService(newMemProductRepo(), nil)
	cases := map[string]ProductInput{
		"no name":        {Category: models.Audio, Price: 1},
		"bad category":   {Name: "x", Category: "tablette", Price: 1},
		"no category":    {Name: "x", Price: 1},
		"negative price": {Name: "x", Category: models.Audio, Price: -1},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Add(context.Background(), in); !errors.Is(err, models.ErrMalformedRequest) {
				t.Errorf("error = %v; want ErrMalformedRequest", err)
			}
		})
	}
}

func TestCatalogEdit_OnlyBadge(t *testing.T) {
	repo := newMemProductRepo()
	svc := NewCatalogService(repo, nil)
	ctx := context.Background()
	p, _ := svc.Add(ctx, ProductInput{Name: "JBL Flip 6", Category: models.Audio, Price: 85000, Image: "/uploads/jbl.png"})

	badge := "Promo"
	if err := svc.Edit(ctx, p.ID, models.ProductPatch{Badge: &badge}); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	got, _ := svc.Get(ctx, p.ID)
	want := *p
	want.Badge = "Promo"
	if *got != want {
		t.Errorf("product = %+v; want %+v", *got, want)
	}
}

func TestCatalogEdit_Errors(t *testing.T) {
	repo := newMemProductRepo()
	svc := NewCatalogService(repo, nil)
	ctx := context.Background()
	p, _ := svc.Add(ctx, ProductInput{Name: "x", Category: models.Audio, Price: 1})

	bad := models.Category("tablette")
	neg := int64(-5)
	empty := ""
	cases := []struct {
		name  string
		id    string
		patch models.ProductPatch
		want  error
	}{
		{"unknown id", "999", models.ProductPatch{Badge: &empty}, models.ErrNotFound},
		{"unknown id empty patch", "999", models.ProductPatch{}, models.ErrNotFound},
		{"missing id", "", models.ProductPatch{}, models.ErrMalformedRequest},
		{"bad category", p.ID, models.ProductPatch{Category: &bad}, models.ErrMalformedRequest},
		{"negative price", p.ID, models.ProductPatch{Price: &neg}, models.ErrMalformedRequest},
		{"empty name", p.ID, models.ProductPatch{Name: &empty}, models.ErrMalformedRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.Edit(ctx, tc.id, tc.patch); !errors.Is(err, tc.want) {
				t.Errorf("error = %v; want %v", err, tc.want)
			}
		})
	}
}

func TestCatalogDelete(t *testing.T) {
	repo := newMemProductRepo()
	svc := NewCatalogService(repo, nil)
	ctx := context.Background()
	p, _ := svc.Add(ctx, ProductInput{Name: "x", Category: models.Audio, Price: 1})

	if err := svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, p.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("second Delete error = %v; want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, ""); !errors.Is(err, models.ErrMalformedRequest) {
		t.Errorf("empty id error = %v; want ErrMalformedRequest", err)
	}
}

func TestSeedDefaults(t *testing.T) {
	repo := newMemProductRepo()
	svc := NewCatalogService(repo, nil)
	ctx := context.Background()

	n, err := svc.SeedDefaults(ctx)
	if err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}
	if n != 12 || len(repo.products) != 12 {
		t.Fatalf("seeded %d products, stored %d; want 12", n, len(repo.products))
	}
	n, _ = svc.SeedDefaults(ctx)
	if n != 0 || len(repo.products) != 12 {
		t.Errorf("second seed created %d products", n)
	}
	for _, p := range DefaultProducts {
		if !p.Category.Valid() || p.Price < 0 {
			t.Errorf("invalid default product %+v", p)
		}
	}
}
