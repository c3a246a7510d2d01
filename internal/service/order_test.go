package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/atinyakov/fasogadget/internal/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type mockOrderRepo struct {
	InsertFunc func(ctx context.Context, o models.Order) (string, error)
	ListFunc   func(ctx context.Context) ([]models.Order, error)
}

func (m *mockOrderRepo) Insert(ctx context.Context, o models.Order) (string, error) {
	return m.InsertFunc(ctx, o)
}

func (m *mockOrderRepo) List(ctx context.Context) ([]models.Order, error) {
	return m.ListFunc(ctx)
}

type mockSpool struct {
	orders []models.Order
	err    error
}

func (m *mockSpool) Append(o models.Order) error {
	if m.err != nil {
		return m.err
	}
	m.orders = append(m.orders, o)
	return nil
}

func sampleOrder() models.Order {
	return models.Order{
		Client: models.Customer{LastName: "Kaboré", FirstName: "Issa", Phone: "70112233", Locality: "Bobo-Dioulasso"},
		Items: []models.OrderItem{
			{Name: "Coque", UnitPrice: 1000, Quantity: 2},
			{Name: "Câble", UnitPrice: 500, Quantity: 1},
		},
		Total: 2500,
	}
}

func fixedNow() time.Time { return time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC) }

func TestSubmit_StoresTotal(t *testing.T) {
	var stored models.Order
	repo := &mockOrderRepo{InsertFunc: func(ctx context.Context, o models.Order) (string, error) {
		stored = o
		return "abc", nil
	}}
	svc := NewOrderService(repo, nil, nil, nil)
	svc.now = fixedNow

	got, err := svc.Submit(context.Background(), sampleOrder())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if stored.Total != 2500 {
		t.Errorf("stored total = %d; want 2500", stored.Total)
	}
	if stored.Items[0].Subtotal != 2000 || stored.Items[1].Subtotal != 500 {
		t.Errorf("subtotals = %d, %d", stored.Items[0].Subtotal, stored.Items[1].Subtotal)
	}
	if stored.Number != "FG-1717245000000" {
		t.Errorf("number = %q", stored.Number)
	}
	if stored.Date != "2024-06-01T12:30:00.000Z" {
		t.Errorf("date = %q", stored.Date)
	}
	if got.ID != "abc" {
		t.Errorf("id = %q; want abc", got.ID)
	}
}

func TestSubmit_KeepsClientNumberAndDate(t *testing.T) {
	var stored models.Order
	repo := &mockOrderRepo{InsertFunc: func(ctx context.Context, o models.Order) (string, error) {
		stored = o
		return "1", nil
	}}
	o := sampleOrder()
	o.Number = "FG-42"
	o.Date = "2024-01-01T00:00:00.000Z"

	if _, err := NewOrderService(repo, nil, nil, nil).Submit(context.Background(), o); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if stored.Number != "FG-42" || stored.Date != "2024-01-01T00:00:00.000Z" {
		t.Errorf("stored %q %q", stored.Number, stored.Date)
	}
}

func TestSubmit_TotalMismatchRecomputed(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	var stored models.Order
	repo := &mockOrderRepo{InsertFunc: func(ctx context.Context, o models.Order) (string, error) {
		stored = o
		return "1", nil
	}}
	o := sampleOrder()
	o.Total = 1

	if _, err := NewOrderService(repo, nil, zap.New(core), nil).Submit(context.Background(), o); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if stored.Total != 2500 {
		t.Errorf("stored total = %d; want 2500", stored.Total)
	}
	if logs.FilterMessage("order total mismatch, using computed total").Len() != 1 {
		t.Error("expected mismatch warning")
	}
}

func TestSubmit_StoreFailureSpools(t *testing.T) {
	repo := &mockOrderRepo{InsertFunc: func(ctx context.Context, o models.Order) (string, error) {
		return "", models.ErrPersistence
	}}
	sp := &mockSpool{}
	got, err := NewOrderService(repo, sp, nil, nil).Submit(context.Background(), sampleOrder())
	if err != nil {
		t.Fatalf("Submit should absorb store failures: %v", err)
	}
	if len(sp.orders) != 1 || sp.orders[0].Number != got.Number {
		t.Fatalf("spooled = %+v", sp.orders)
	}
	if sp.orders[0].Total != 2500 {
		t.Errorf("spooled total = %d", sp.orders[0].Total)
	}
}

func TestSubmit_SpoolFailureStillSucceeds(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	repo := &mockOrderRepo{InsertFunc: func(ctx context.Context, o models.Order) (string, error) {
		return "", models.ErrPersistence
	}}
	sp := &mockSpool{err: errors.New("disk full")}
	if _, err := NewOrderService(repo, sp, zap.New(core), nil).Submit(context.Background(), sampleOrder()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if logs.FilterMessage("failed to spool order").Len() != 1 {
		t.Error("expected spool failure log")
	}
}

func TestSubmit_Invalid(t *testing.T) {
	repo := &mockOrderRepo{InsertFunc: func(ctx context.Context, o models.Order) (string, error) {
		t.Fatal("invalid order reached the repository")
		return "", nil
	}}
	svc := NewOrderService(repo, nil, nil, nil)

	empty := sampleOrder()
	empty.Items = nil
	zeroQty := sampleOrder()
	zeroQty.Items[0].Quantity = 0
	negPrice := sampleOrder()
	negPrice.Items[1].UnitPrice = -1

	for name, o := range map[string]models.Order{"no items": empty, "zero quantity": zeroQty, "negative price": negPrice} {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Submit(context.Background(), o); !errors.Is(err, models.ErrMalformedRequest) {
				t.Errorf("error = %v; want ErrMalformedRequest", err)
			}
		})
	}
}

func TestSubmit_AmountOverflow(t *testing.T) {
	repo := &mockOrderRepo{InsertFunc: func(ctx context.Context, o models.Order) (string, error) {
		t.Fatalf("overflowing order stored with total %d", o.Total)
		return "", nil
	}}
	svc := NewOrderService(repo, nil, nil, nil)

	subtotal := sampleOrder()
	subtotal.Items = []models.OrderItem{{Name: "Coque", UnitPrice: math.MaxInt64 / 2, Quantity: 3}}
	total := sampleOrder()
	total.Items = []models.OrderItem{
		{Name: "Coque", UnitPrice: math.MaxInt64 - 10, Quantity: 1},
		{Name: "Câble", UnitPrice: 11, Quantity: 1},
	}

	for name, o := range map[string]models.Order{"subtotal": subtotal, "total": total} {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Submit(context.Background(), o); !errors.Is(err, models.ErrMalformedRequest) {
				t.Errorf("error = %v; want ErrMalformedRequest", err)
			}
		})
	}
}

func TestSubmit_LargestTotalAccepted(t *testing.T) {
	var stored models.Order
	repo := &mockOrderRepo{InsertFunc: func(ctx context.Context, o models.Order) (string, error) {
		stored = o
		return "1", nil
	}}
	o := sampleOrder()
	o.Items = []models.OrderItem{
		{Name: "Coque", UnitPrice: math.MaxInt64 - 10, Quantity: 1},
		{Name: "Câble", UnitPrice: 5, Quantity: 2},
	}
	if _, err := NewOrderService(repo, nil, nil, nil).Submit(context.Background(), o); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if stored.Total != math.MaxInt64 {
		t.Errorf("stored total = %d; want %d", stored.Total, int64(math.MaxInt64))
	}
}

func TestOrderList_NewestFirst(t *testing.T) {
	repo := &mockOrderRepo{ListFunc: func(ctx context.Context) ([]models.Order, error) {
		return []models.Order{
			{Number: "a", Date: "2024-01-01T00:00:00.000Z", Total: 100},
			{Number: "c", Date: "2024-03-01T00:00:00.000Z", Total: 300},
			{Number: "b", Date: "2024-02-01T00:00:00.000Z", Total: 200},
		}, nil
	}}
	got, err := NewOrderService(repo, nil, nil, nil).List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got[0].Number != "c" || got[1].Number != "b" || got[2].Number != "a" {
		t.Errorf("order = %s %s %s", got[0].Number, got[1].Number, got[2].Number)
	}
	if Revenue(got) != 600 {
		t.Errorf("Revenue = %d; want 600", Revenue(got))
	}
}

func TestOrderList_Empty(t *testing.T) {
	repo := &mockOrderRepo{ListFunc: func(ctx context.Context) ([]models.Order, error) { return nil, nil }}
	got, err := NewOrderService(repo, nil, nil, nil).List(context.Background())
	if err != nil || got == nil {
		t.Errorf("List = %v, %v; want empty slice", got, err)
	}
}
