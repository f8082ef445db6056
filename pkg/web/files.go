package web

import (
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"
	"github.com/korjavin/loversspace/pkg/account"
	"github.com/korjavin/loversspace/pkg/images"
)

// upload serves a stored image of the couple's recipes or memories
func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["file"]
	if name == "" || filepath.Base(name) != name || !images.Allowed(name) {
		s.notFound(w, r)
		return
	}

	owned, err := s.ownsImage(principal(r), name)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if !owned {
		s.notFound(w, r)
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=86400")
	http.ServeFile(w, r, filepath.Join(s.svc.Images.Dir(), name))
}

func (s *Server) ownsImage(p account.Principal, name string) (bool, error) {
	owned, err := s.svc.Recipes.OwnsImage(p, name)
	if err != nil || owned {
		return owned, err
	}
	return s.svc.Memories.OwnsImage(p, name)
}

// serviceWorker serves sw.js from the root so its scope covers the whole site
func (s *Server) serviceWorker(w http.ResponseWriter, r *http.Request) {
	b, err := staticFS.ReadFile("static/sw.js")
	if err != nil {
		s.notFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(b)
}
