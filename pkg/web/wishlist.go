package web

import (
	"net/http"

	"github.com/korjavin/loversspace/pkg/wishlist"
	"github.com/pkg/errors"
)

func (s *Server) wishlist(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Wishlist.List(principal(r))
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "wishlist.html", "Our wishlist", items)
}

func (s *Server) addWish(w http.ResponseWriter, r *http.Request) {
	_, err := s.svc.Wishlist.Add(principal(r), r.FormValue("title"), r.FormValue("note"))
	if errors.Is(err, wishlist.ErrTitleRequired) {
		redirectWith(w, r, "/wishlist", flashError, err.Error())
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	redirectWith(w, r, "/wishlist", flashSuccess, "Wish added!")
}

func (s *Server) toggleWish(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.notFound(w, r)
		return
	}

	_, err := s.svc.Wishlist.Toggle(principal(r), id)
	if errors.Is(err, wishlist.ErrNotFound) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, "/wishlist", http.StatusSeeOther)
}

func (s *Server) deleteWish(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.notFound(w, r)
		return
	}

	err := s.svc.Wishlist.Delete(principal(r), id)
	if errors.Is(err, wishlist.ErrNotFound) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	redirectWith(w, r, "/wishlist", flashSuccess, "Wish deleted.")
}
