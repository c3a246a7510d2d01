package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/atinyakov/fasogadget/internal/metrics"
	"github.com/atinyakov/fasogadget/internal/models"
	"github.com/atinyakov/fasogadget/internal/multipart"
	"github.com/atinyakov/fasogadget/internal/service"
	"go.uber.org/zap"
)

// CatalogService defines the product operations required by the handlers.
type CatalogService interface {
	List(ctx context.Context) ([]models.Product, error)
	Add(ctx context.Context, in service.ProductInput) (*models.Product, error)
	Edit(ctx context.Context, id string, patch models.ProductPatch) error
	Delete(ctx context.Context, id string) error
}

// FormDecoder decodes multipart bodies and stores their files.
type FormDecoder interface {
	Decode(ctx context.Context, r io.Reader, contentType string) (*multipart.Form, error)
}

// CatalogHandler serves the public product listing and the admin product
// forms.
type CatalogHandler struct {
	Catalog CatalogService
	Forms   FormDecoder
	Metrics *metrics.Metrics
	Log     *zap.Logger
}

// List handles GET /api/produits. An empty catalog yields [].
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.Catalog.List(r.Context())
	if err != nil {
		failJSON(w, nopLogger(h.Log), "failed to list products", err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// Add handles POST /admin/products/add with a multipart body carrying name,
// category, price, badge and an optional image file.
func (h *CatalogHandler) Add(w http.ResponseWriter, r *http.Request) {
	log := nopLogger(h.Log)
	form, ok := h.decode(w, r)
	if !ok {
		return
	}

	in := service.ProductInput{
		Name:     form.Fields["name"],
		Category: models.Category(form.Fields["category"]),
		Price:    parsePrice(form.Fields["price"]),
		Badge:    form.Fields["badge"],
	}
	if form.File != nil {
		in.Image = form.File.Path
	}
	if _, err := h.Catalog.Add(r.Context(), in); err != nil {
		fail(w, log, "failed to add product", err)
		return
	}
	http.Redirect(w, r, "/admin", http.StatusFound)
}

// Edit handles POST /admin/products/edit. Text fields left empty keep their
// current value, except badge which is cleared. The image is replaced only
// when a new file is uploaded.
func (h *CatalogHandler) Edit(w http.ResponseWriter, r *http.Request) {
	log := nopLogger(h.Log)
	form, ok := h.decode(w, r)
	if !ok {
		return
	}

	var patch models.ProductPatch
	if v := form.Fields["name"]; v != "" {
		patch.Name = &v
	}
	if v := form.Fields["category"]; v != "" {
		c := models.Category(v)
		patch.Category = &c
	}
	if v := form.Fields["price"]; v != "" {
		p := parsePrice(v)
		patch.Price = &p
	}
	if form.Has("badge") {
		b := form.Fields["badge"]
		patch.Badge = &b
	}
	if form.File != nil {
		img := form.File.Path
		patch.Image = &img
	}

	if err := h.Catalog.Edit(r.Context(), form.Fields["id"], patch); err != nil {
		fail(w, log, "failed to edit product", err)
		return
	}
	http.Redirect(w, r, "/admin", http.StatusFound)
}

// Delete handles POST /admin/products/delete with a JSON body {"id": "..."}.
func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	// an undecodable body is treated as an empty one
	_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBytes)).Decode(&req)

	if err := h.Catalog.Delete(r.Context(), req.ID); err != nil {
		failJSON(w, nopLogger(h.Log), "failed to delete product", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *CatalogHandler) decode(w http.ResponseWriter, r *http.Request) (*multipart.Form, bool) {
	form, err := h.Forms.Decode(r.Context(), r.Body, r.Header.Get("Content-Type"))
	if err != nil {
		fail(w, nopLogger(h.Log), "failed to decode product form", err)
		return nil, false
	}
	if form.File != nil {
		h.Metrics.UploadStored()
	}
	return form, true
}

// parsePrice reads the leading integer of s. Values without any digit yield
// zero.
func parsePrice(s string) int64 {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
