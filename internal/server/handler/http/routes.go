package http

import (
	"net/http"

	"github.com/atinyakov/fasogadget/internal/metrics"
	"github.com/atinyakov/fasogadget/internal/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RouterConfig gathers the handlers and options mounted by NewRouter.
type RouterConfig struct {
	Catalog *CatalogHandler
	Orders  *OrderHandler
	Admin   *AdminHandler
	// StaticDir is served for every path no route matched.
	StaticDir string
	// UploadDir, when set, is served under /uploads. Leave it empty when
	// uploads live inside StaticDir or in object storage.
	UploadDir string
	// Metrics, when non-nil, instruments every request and is exposed at
	// /metrics.
	Metrics *metrics.Metrics
	Log     *zap.Logger
}

// NewRouter constructs the HTTP handler of the storefront.
//
// Routes:
//
//	GET  /api/produits          → Catalog.List
//	POST /api/commandes         → Orders.Submit
//	GET  /admin/login           → Admin.LoginPage
//	POST /admin/login           → Admin.Login
//	GET  /admin/logout          → Admin.Logout
//	GET  /admin                 → Admin.Dashboard (session)
//	POST /admin/settings        → Admin.Settings (session)
//	POST /admin/products/add    → Catalog.Add (session)
//	POST /admin/products/edit   → Catalog.Edit (session)
//	POST /admin/products/delete → Catalog.Delete (session)
//	*                           → static files
//
// Middleware chain (applied in order): request id, panic recovery, request
// logging, metrics, security headers, CORS.
func NewRouter(cfg RouterConfig) http.Handler {
	log := nopLogger(cfg.Log)
	static := Static(cfg.StaticDir)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(log))
	r.Use(cfg.Metrics.Instrument)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/produits", cfg.Catalog.List)
		r.Post("/commandes", cfg.Orders.Submit)
	})

	r.Get(LoginPath, cfg.Admin.LoginPage)
	r.Post(LoginPath, cfg.Admin.Login)
	r.Get(LogoutPath, cfg.Admin.Logout)

	// Protected group: requires a live session cookie
	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionAuth(cfg.Admin.Auth, cfg.Admin.cookieName(), LoginPath))
		r.Get(AdminPath, cfg.Admin.Dashboard)
		for _, m := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
			r.Method(m, AdminPath, static)
		}
		r.Post(AdminPath+"/settings", cfg.Admin.Settings)
		r.Post(AdminPath+"/products/add", cfg.Catalog.Add)
		r.Post(AdminPath+"/products/edit", cfg.Catalog.Edit)
		r.Post(AdminPath+"/products/delete", cfg.Catalog.Delete)
		r.Handle(AdminPath+"/*", static)
	})

	if cfg.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads", Static(cfg.UploadDir)))
	}
	r.NotFound(static.ServeHTTP)
	r.MethodNotAllowed(static.ServeHTTP)

	return r
}
