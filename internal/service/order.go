package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/atinyakov/fasogadget/internal/metrics"
	"github.com/atinyakov/fasogadget/internal/models"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// isoMillis matches the timestamps produced by browsers for order dates.
const isoMillis = "2006-01-02T15:04:05.000Z"

// OrderRepository defines the persistence operations on the orders
// collection.
type OrderRepository interface {
	// Insert stores order and returns its store-assigned id.
	Insert(ctx context.Context, order models.Order) (string, error)
	// List returns every stored order.
	List(ctx context.Context) ([]models.Order, error)
}

// OrderSpool keeps orders the repository refused.
type OrderSpool interface {
	Append(order models.Order) error
}

// OrderService records storefront checkouts.
type OrderService struct {
	repo     OrderRepository
	spool    OrderSpool
	validate *validator.Validate
	log      *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewOrderService constructs an OrderService. spool, log and m may be nil.
func NewOrderService(repo OrderRepository, spool OrderSpool, log *zap.Logger, m *metrics.Metrics) *OrderService {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderService{
		repo:     repo,
		spool:    spool,
		validate: newValidator(),
		log:      log,
		metrics:  m,
		now:      time.Now,
	}
}

// Submit validates and stores order. Subtotals and the total are recomputed
// from the line items. When the repository fails the order is spooled and
// Submit still succeeds, so a checkout is never refused for storage reasons.
// Only invalid orders yield an error.
func (s *OrderService) Submit(ctx context.Context, order models.Order) (*models.Order, error) {
	if err := s.validate.Struct(order); err != nil {
		return nil, invalid(err)
	}

	if err := s.price(&order); err != nil {
		return nil, err
	}
	if order.Number == "" {
		order.Number = "FG-" + strconv.FormatInt(s.now().UnixMilli(), 10)
	}
	if order.Date == "" {
		order.Date = s.now().UTC().Format(isoMillis)
	}

	id, err := s.repo.Insert(ctx, order)
	if err != nil {
		s.log.Error("failed to store order", zap.String("number", order.Number), zap.Error(err))
		s.keep(order)
	} else {
		order.ID = id
	}

	s.metrics.OrderSubmitted()
	s.log.Info("new order",
		zap.String("number", order.Number),
		zap.String("customer", order.Client.FirstName+" "+order.Client.LastName),
		zap.String("phone", order.Client.Phone),
		zap.String("locality", order.Client.Locality),
		zap.Int("items", len(order.Items)),
		zap.String("total", models.FormatPrice(order.Total)),
	)
	return &order, nil
}

// price recomputes every subtotal and the total. Amounts that do not fit
// in an int64 are rejected.
func (s *OrderService) price(order *models.Order) error {
	var total int64
	for i := range order.Items {
		it := &order.Items[i]
		if it.UnitPrice > math.MaxInt64/it.Quantity {
			return fmt.Errorf("%w: subtotal of item %d overflows", models.ErrMalformedRequest, i)
		}
		it.Subtotal = it.UnitPrice * it.Quantity
		if total > math.MaxInt64-it.Subtotal {
			return fmt.Errorf("%w: order total overflows", models.ErrMalformedRequest)
		}
		total += it.Subtotal
	}
	if order.Total != total {
		s.log.Warn("order total mismatch, using computed total",
			zap.String("number", order.Number),
			zap.Int64("submitted", order.Total),
			zap.Int64("computed", total))
	}
	order.Total = total
	return nil
}

func (s *OrderService) keep(order models.Order) {
	if s.spool == nil {
		s.log.Error("order lost, no spool configured", zap.String("number", order.Number))
		return
	}
	if err := s.spool.Append(order); err != nil {
		s.log.Error("failed to spool order", zap.String("number", order.Number), zap.Error(err))
		return
	}
	s.metrics.OrderSpooled()
	s.log.Warn("order spooled for replay", zap.String("number", order.Number))
}

// List returns every order, newest first.
func (s *OrderService) List(ctx context.Context) ([]models.Order, error) {
	orders, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].Date > orders[j].Date
	})
	return orders, nil
}

// Revenue sums the totals of orders.
func Revenue(orders []models.Order) int64 {
	var sum int64
	for _, o := range orders {
		sum += o.Total
	}
	return sum
}
