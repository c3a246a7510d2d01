package http

import (
	"bytes"
	"net/http"
	"sync/atomic"

	"github.com/atinyakov/fasogadget/internal/view"
	"go.uber.org/zap"
)

// Switch serves a fallback handler until the real one is installed with Set.
// It lets the server listen before the store is reachable.
type Switch struct {
	current  atomic.Pointer[http.Handler]
	fallback http.Handler
}

// NewSwitch returns a Switch answering with fallback.
func NewSwitch(fallback http.Handler) *Switch {
	return &Switch{fallback: fallback}
}

// Set installs h. Requests already in flight finish on the previous handler.
func (s *Switch) Set(h http.Handler) {
	s.current.Store(&h)
}

// Ready reports whether a handler was installed.
func (s *Switch) Ready() bool {
	return s.current.Load() != nil
}

func (s *Switch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h := s.current.Load(); h != nil {
		(*h).ServeHTTP(w, r)
		return
	}
	s.fallback.ServeHTTP(w, r)
}

// Unavailable answers every request with 503 and the start-up page.
func Unavailable(v Renderer, log *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := v.Render(&buf, view.UnavailablePage, nil); err != nil {
			nopLogger(log).Error("failed to render page", zap.Error(err))
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = buf.WriteTo(w)
	})
}
