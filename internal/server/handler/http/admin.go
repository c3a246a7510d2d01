package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/atinyakov/fasogadget/internal/middleware"
	"github.com/atinyakov/fasogadget/internal/models"
	"github.com/atinyakov/fasogadget/internal/service"
	"github.com/atinyakov/fasogadget/internal/session"
	"github.com/atinyakov/fasogadget/internal/view"
	"go.uber.org/zap"
)

// Admin paths.
const (
	LoginPath  = "/admin/login"
	LogoutPath = "/admin/logout"
	AdminPath  = "/admin"
)

// AuthService defines the credential and session operations required by the
// back-office handlers.
type AuthService interface {
	Authenticate(ctx context.Context, username, password string) (*session.Session, error)
	IsAuthenticated(ctx context.Context, token string) (*session.Session, bool)
	Logout(ctx context.Context, token string) error
	Username(ctx context.Context) (string, error)
	UpdateCredentials(ctx context.Context, username, password string) error
}

// Renderer renders HTML pages.
type Renderer interface {
	Render(w io.Writer, name string, data any) error
}

// AdminHandler serves the login flow, the dashboard and the settings form.
type AdminHandler struct {
	Auth         AuthService
	Catalog      CatalogService
	Orders       OrderService
	View         Renderer
	CookieName   string
	CookieSecure bool
	Log          *zap.Logger
}

func (h *AdminHandler) cookieName() string {
	if h.CookieName == "" {
		return "session"
	}
	return h.CookieName
}

// LoginPage handles GET /admin/login.
func (h *AdminHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, view.LoginPage, view.LoginData{})
}

// Login handles POST /admin/login. On success the session cookie is set and
// the browser is sent to the dashboard; otherwise the form is shown again
// with a generic error.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	// an undecodable body leaves both fields empty
	_ = r.ParseForm()

	sess, err := h.Auth.Authenticate(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if errors.Is(err, models.ErrAuthFailure) {
		h.render(w, http.StatusOK, view.LoginPage, view.LoginData{Error: view.LoginError})
		return
	}
	if err != nil {
		fail(w, nopLogger(h.Log), "failed to authenticate", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName(),
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, AdminPath, http.StatusFound)
}

// Logout handles GET /admin/logout. It succeeds with or without a live
// session and always clears the cookie.
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.cookieName()); err == nil {
		if err := h.Auth.Logout(r.Context(), c.Value); err != nil {
			nopLogger(h.Log).Warn("failed to destroy session", zap.Error(err))
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, LoginPath, http.StatusFound)
}

// Dashboard handles GET /admin.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := nopLogger(h.Log)

	orders, err := h.Orders.List(ctx)
	if err != nil {
		fail(w, log, "failed to list orders", err)
		return
	}
	products, err := h.Catalog.List(ctx)
	if err != nil {
		fail(w, log, "failed to list products", err)
		return
	}
	username, err := h.Auth.Username(ctx)
	if err != nil {
		fail(w, log, "failed to load admin config", err)
		return
	}

	h.render(w, http.StatusOK, view.DashboardPage, view.DashboardData{
		User:       middleware.GetUserFromContext(ctx),
		Username:   username,
		Orders:     orders,
		Products:   products,
		Revenue:    service.Revenue(orders),
		Categories: models.Categories,
	})
}

// Settings handles POST /admin/settings. Empty values leave the stored
// credential unchanged.
func (h *AdminHandler) Settings(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	_ = r.ParseForm()

	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	if err := h.Auth.UpdateCredentials(r.Context(), username, password); err != nil {
		fail(w, nopLogger(h.Log), "failed to update credentials", err)
		return
	}
	http.Redirect(w, r, AdminPath, http.StatusFound)
}

func (h *AdminHandler) render(w http.ResponseWriter, status int, page string, data any) {
	var buf bytes.Buffer
	if err := h.View.Render(&buf, page, data); err != nil {
		nopLogger(h.Log).Error("failed to render page", zap.String("page", page), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
