package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/sakif/foodgram-web/internal/model"
	"github.com/sakif/foodgram-web/internal/session"
)

// pages lists every page template. Each is parsed together with base.html and
// partials.html into its own template set, so pages can define the same blocks.
var pages = []string{
	"recipes", "recipe", "editor", "subscriptions",
	"signin", "signup", "change_password", "change_avatar", "reset_password",
	"about", "technologies", "error",
}

// Renderer executes the HTML page templates.
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// NewRenderer parses the templates under dir.
//
// TEMPLATE LAYOUT:
// base.html defines "base", the page skeleton, which calls {{template "content" .}}
// and the optional "scripts" block. Every page file defines "content".
// partials.html holds the pieces shared by several pages (recipe card,
// pagination, tag filter).
func NewRenderer(dir string, logger *slog.Logger) (*Renderer, error) {
	rn := &Renderer{pages: make(map[string]*template.Template, len(pages)), logger: logger}
	for _, name := range pages {
		tmpl, err := template.New(name).Funcs(funcs).ParseFiles(
			filepath.Join(dir, "base.html"),
			filepath.Join(dir, "partials.html"),
			filepath.Join(dir, name+".html"),
		)
		if err != nil {
			return nil, fmt.Errorf("handler: parsing template %s: %w", name, err)
		}
		rn.pages[name] = tmpl
	}
	return rn, nil
}

// View is the data every page template receives.
type View struct {
	Title   string
	Section string // highlighted nav entry
	Session *session.State
	Flash   *Flash
	// Return is the canonical URL of the page, posted back by toggle forms.
	Return string
	Data   any
}

// User returns the signed-in user, or nil.
func (v View) User() *model.User {
	if !v.Session.SignedIn() {
		return nil
	}
	return v.Session.User
}

// Render writes page name with status. The page is rendered into a buffer first
// so a template error still produces a clean 500.
func (rn *Renderer) Render(w http.ResponseWriter, status int, name string, v View) {
	tmpl, ok := rn.pages[name]
	if !ok {
		rn.logger.Error("unknown template", slog.String("template", name))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", v); err != nil {
		rn.logger.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

var funcs = template.FuncMap{
	"add":  func(a, b int) int { return a + b },
	"join": strings.Join,
	// dict builds a map from alternating keys and values, for passing several
	// values to a partial template.
	"dict": func(kv ...any) (map[string]any, error) {
		if len(kv)%2 != 0 {
			return nil, fmt.Errorf("dict: odd number of arguments")
		}
		m := make(map[string]any, len(kv)/2)
		for i := 0; i < len(kv); i += 2 {
			k, ok := kv[i].(string)
			if !ok {
				return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
			}
			m[k] = kv[i+1]
		}
		return m, nil
	},
	"sub": func(a, b int) int { return a - b },
	"avatar": func(u any) string {
		var url string
		switch u := u.(type) {
		case *model.User:
			if u != nil {
				url = u.Avatar
			}
		case model.User:
			url = u.Avatar
		}
		if url == "" {
			return "/static/img/userpic.svg"
		}
		return url
	},
	"plural": func(n int, one, many string) string {
		if n == 1 {
			return one
		}
		return many
	},
}
