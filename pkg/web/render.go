package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/korjavin/loversspace/pkg/account"
	"github.com/korjavin/loversspace/pkg/models"
	"github.com/pkg/errors"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pages = []string{
	"login.html",
	"register.html",
	"index.html",
	"recipe_new.html",
	"recipe_detail.html",
	"what_can_i_make.html",
	"partner.html",
	"calendar.html",
	"memories.html",
	"wishlist.html",
	"question.html",
	"question_history.html",
	"telegram_link.html",
	"error.html",
}

var funcs = template.FuncMap{
	"ago": humanize.Time,
	"datetime": func(t time.Time) string {
		return t.Format("2006-01-02 15:04")
	},
	"bytes": func(n int64) string {
		return humanize.IBytes(uint64(n))
	},
	"join": strings.Join,
	"imageURL": imageURL,
}

func imageURL(name string) string {
	if name == "" || name == models.DefaultImage {
		return "/static/default.svg"
	}
	return "/uploads/" + name
}

func parseTemplates() (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse template %s", page)
		}
		templates[page] = t
	}
	return templates, nil
}

// page is what every template receives
type page struct {
	Title     string
	Principal *account.Principal
	Flashes   []Flash
	Data      interface{}
}

// render executes a page template. Pending flash messages are consumed and
// shown together with extra.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data interface{}, extra ...Flash) {
	t, ok := s.templates[name]
	if !ok {
		s.serverError(w, r, errors.Errorf("unknown template %s", name))
		return
	}

	p := page{Title: title, Data: data}
	if pr, ok := account.PrincipalFrom(r.Context()); ok {
		p.Principal = &pr
	}
	p.Flashes = append(popFlashes(w, r), extra...)

	var buf bytes.Buffer
	if err := t.Execute(&buf, p); err != nil {
		s.logger.Error("[%s] Failed to render %s: %v", RequestIDFromContext(r.Context()), name, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type errorPage struct {
	Status  int
	Message string
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("[%s] %s %s: %+v", RequestIDFromContext(r.Context()), r.Method, r.URL.Path, err)
	if isAPI(r) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	s.render(w, r, http.StatusInternalServerError, "error.html", "Oops",
		errorPage{Status: http.StatusInternalServerError, Message: "Something went wrong. Please try again."})
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	if isAPI(r) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	s.render(w, r, http.StatusNotFound, "error.html", "Not found",
		errorPage{Status: http.StatusNotFound, Message: "We could not find that page."})
}

func redirectWith(w http.ResponseWriter, r *http.Request, to, kind, message string) {
	setFlash(w, kind, message)
	http.Redirect(w, r, to, http.StatusSeeOther)
}
