package web

import (
	"net/http"
	"time"

	"github.com/korjavin/loversspace/pkg/account"
	"github.com/pkg/errors"
)

type partnerData struct {
	InviteCode      string
	InviteExpiresAt time.Time
}

func (s *Server) partner(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "partner.html", "Partner", partnerData{})
}

func (s *Server) createInvite(w http.ResponseWriter, r *http.Request) {
	code, expiresAt, err := s.svc.Accounts.CreateInvite(principal(r))
	if errors.Is(err, account.ErrAlreadyPaired) {
		redirectWith(w, r, "/partner", flashError, "You already have a partner.")
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "partner.html", "Partner", partnerData{InviteCode: code, InviteExpiresAt: expiresAt})
}

func (s *Server) bindPartner(w http.ResponseWriter, r *http.Request) {
	bound, err := s.svc.Accounts.BindPartner(principal(r), r.FormValue("code"))
	switch {
	case errors.Is(err, account.ErrInvalidInvite),
		errors.Is(err, account.ErrSelfInvite),
		errors.Is(err, account.ErrAlreadyPaired):
		redirectWith(w, r, "/partner", flashError, err.Error())
		return
	case err != nil:
		s.serverError(w, r, err)
		return
	}

	redirectWith(w, r, "/", flashSuccess, "You are now sharing your space with "+bound.Partner.Name()+".")
}

func (s *Server) unbindPartner(w http.ResponseWriter, r *http.Request) {
	_, err := s.svc.Accounts.Unbind(principal(r))
	if errors.Is(err, account.ErrNotPaired) {
		redirectWith(w, r, "/partner", flashError, err.Error())
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	redirectWith(w, r, "/partner", flashSuccess, "Partner unbound.")
}
