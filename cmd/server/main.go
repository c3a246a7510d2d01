// Package main initializes and starts the FASO GADGET storefront server,
// setting up configuration, logging, the document store, sessions, uploads,
// services, handlers, and optional TLS.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/fasogadget/internal/config"
	"github.com/atinyakov/fasogadget/internal/logger"
	"github.com/atinyakov/fasogadget/internal/metrics"
	"github.com/atinyakov/fasogadget/internal/multipart"
	"github.com/atinyakov/fasogadget/internal/server/handler/http"
	"github.com/atinyakov/fasogadget/internal/service"
	"github.com/atinyakov/fasogadget/internal/spool"
	"github.com/atinyakov/fasogadget/internal/view"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Parse command-line, config file and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New(logger.WithFormat(options.LogFormat), logger.WithOutput(options.LogOutput))
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if options.MetricsEnabled {
		m = metrics.New()
	}

	pages, err := view.New()
	if err != nil {
		zapLogger.Fatal("failed to parse templates", zap.Error(err))
	}

	files, uploadDir, err := newFileStore(ctx, options, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to init upload store", zap.Error(err))
	}

	sessions, err := newSessionStore(ctx, options, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to init session store", zap.Error(err))
	}
	defer func() {
		if err := sessions.Close(); err != nil {
			zapLogger.Warn("failed to close session store", zap.Error(err))
		}
	}()

	// Serve the start-up page until the store is reachable.
	sw := http.NewSwitch(http.Unavailable(pages, zapLogger))
	orderSpool := spool.New(options.SpoolPath, spool.WithLogger(zapLogger))

	storeReady := make(chan *store, 1)
	go func() {
		st := connectWithRetry(ctx, options, zapLogger)
		if st == nil {
			return
		}
		storeReady <- st

		authService := service.NewAuthService(st.config, sessions, zapLogger, m)
		catalogService := service.NewCatalogService(st.products, zapLogger)
		orderService := service.NewOrderService(st.orders, orderSpool, zapLogger, m)

		if err := authService.EnsureAdmin(ctx, options.AdminUsername, options.AdminPassword); err != nil {
			zapLogger.Error("failed to create default admin", zap.Error(err))
		}
		if _, err := catalogService.SeedDefaults(ctx); err != nil {
			zapLogger.Error("failed to seed default products", zap.Error(err))
		}
		spool.StartReplayer(ctx, orderSpool, st.orders, options.ReplayInterval, zapLogger, m.OrdersReplayed)

		sw.Set(http.NewRouter(http.RouterConfig{
			Catalog: &http.CatalogHandler{
				Catalog: catalogService,
				Forms:   multipart.NewDecoder(files, options.MaxUploadBytes),
				Metrics: m,
				Log:     zapLogger,
			},
			Orders: &http.OrderHandler{Orders: orderService, Log: zapLogger},
			Admin: &http.AdminHandler{
				Auth:         authService,
				Catalog:      catalogService,
				Orders:       orderService,
				View:         pages,
				CookieName:   options.CookieName,
				CookieSecure: options.CookieSecure,
				Log:          zapLogger,
			},
			StaticDir: options.StaticDir,
			UploadDir: uploadDir,
			Metrics:   m,
			Log:       zapLogger,
		}))
		zapLogger.Info("store connected, serving requests", zap.String("driver", options.StoreDriver))
	}()

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           otelhttp.NewHandler(sw, "fasogadget"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if options.TLSCert != "" && options.TLSKey != "" {
			zapLogger.Info("starting HTTPS server", zap.String("addr", options.Port))
			serveErr <- server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
			return
		}
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Port))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			zapLogger.Error("server stopped", zap.Error(err))
		}
	case <-ctx.Done():
		zapLogger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("failed to shut down server", zap.Error(err))
	}
	stop()

	select {
	case st := <-storeReady:
		if err := st.close(shutdownCtx); err != nil {
			zapLogger.Warn("failed to close store", zap.Error(err))
		}
	default:
	}
}
