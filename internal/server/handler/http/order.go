package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/atinyakov/fasogadget/internal/models"
	"go.uber.org/zap"
)

// OrderService defines the order operations required by the handlers.
type OrderService interface {
	Submit(ctx context.Context, order models.Order) (*models.Order, error)
	List(ctx context.Context) ([]models.Order, error)
}

// OrderHandler accepts storefront checkouts.
type OrderHandler struct {
	Orders OrderService
	Log    *zap.Logger
}

// Submit handles POST /api/commandes. Storage failures are absorbed by the
// service, so the caller always gets {"success": true} unless the order is
// invalid.
func (h *OrderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var order models.Order
	// an undecodable body is treated as an empty order and rejected below
	_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBytes)).Decode(&order)

	saved, err := h.Orders.Submit(r.Context(), order)
	if err != nil {
		failJSON(w, nopLogger(h.Log), "failed to submit order", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"numeroCommande": saved.Number,
	})
}
