package http

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// NotFoundBody is the response body of unknown static paths.
const NotFoundBody = "404 - Page non trouvée"

// Static serves files from dir. "/" maps to index.html, directories and
// missing files yield 404.
func Static(dir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			notFound(w)
			return
		}
		name := path.Clean("/" + r.URL.Path)
		if name == "/" {
			name = "/index.html"
		}
		if strings.Contains(name, "\x00") {
			notFound(w)
			return
		}

		f, err := os.Open(filepath.Join(dir, filepath.FromSlash(name)))
		if err != nil {
			notFound(w)
			return
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil || info.IsDir() {
			notFound(w)
			return
		}
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	})
}

func notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(NotFoundBody))
}
