// Package view renders the back-office HTML pages.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/atinyakov/fasogadget/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.html
var files embed.FS

// Page names.
const (
	LoginPage       = "login.html"
	DashboardPage   = "admin.html"
	UnavailablePage = "unavailable.html"
)

// LoginError is the only message shown on a failed login.
const LoginError = "Identifiants incorrects"

// LoginData feeds the login page.
type LoginData struct {
	Error string
}

// DashboardData feeds the admin dashboard.
type DashboardData struct {
	User       string
	Username   string
	Orders     []models.Order
	Products   []models.Product
	Revenue    int64
	Categories []models.Category
}

// Renderer holds the parsed page templates.
type Renderer struct {
	pages map[string]*template.Template
}

// Funcs returns the helpers available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"price": models.FormatPrice,
		"title": title,
		"date":  formatDate,
	}
}

// title upper-cases the first letter of each word. A Caser keeps state, so a
// new one is built per call.
func title(s string) string {
	return cases.Title(language.French).String(s)
}

// formatDate renders an ISO timestamp the way fr-FR browsers do. Values that
// do not parse are returned unchanged, empty ones as "N/A".
func formatDate(iso string) string {
	if iso == "" {
		return "N/A"
	}
	t, err := time.Parse(time.RFC3339Nano, iso)
	if err != nil {
		return iso
	}
	return t.Format("02/01/2006 15:04:05")
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range []string{LoginPage, DashboardPage, UnavailablePage} {
		tmpl, err := template.New(name).Funcs(Funcs()).ParseFS(files, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// Render executes page name with data into w. Nothing is written when the
// template fails.
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := io.Copy(w, &buf)
	return err
}
