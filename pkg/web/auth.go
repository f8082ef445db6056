package web

import (
	"net/http"

	"github.com/korjavin/loversspace/pkg/account"
	"github.com/pkg/errors"
)

type authForm struct {
	Username    string
	DisplayName string
}

func (s *Server) loginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := account.PrincipalFrom(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", "Log in", authForm{})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	form := authForm{Username: r.FormValue("username")}

	user, token, expiresAt, err := s.svc.Accounts.Login(form.Username, r.FormValue("password"))
	if errors.Is(err, account.ErrInvalidCredentials) {
		s.render(w, r, http.StatusUnauthorized, "login.html", "Log in", form, Flash{Kind: flashError, Message: err.Error()})
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.setSessionCookie(w, token, expiresAt)
	redirectWith(w, r, "/", flashSuccess, "Welcome back, "+user.Name()+"!")
}

func (s *Server) registerForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := account.PrincipalFrom(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "register.html", "Create account", authForm{})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	form := authForm{
		Username:    r.FormValue("username"),
		DisplayName: r.FormValue("display_name"),
	}
	password := r.FormValue("password")

	if password != r.FormValue("confirm") {
		s.render(w, r, http.StatusUnprocessableEntity, "register.html", "Create account", form,
			Flash{Kind: flashError, Message: "passwords do not match"})
		return
	}

	_, err := s.svc.Accounts.Register(form.Username, form.DisplayName, password)
	switch {
	case errors.Is(err, account.ErrInvalidUsername),
		errors.Is(err, account.ErrWeakPassword),
		errors.Is(err, account.ErrUsernameTaken):
		s.render(w, r, http.StatusUnprocessableEntity, "register.html", "Create account", form,
			Flash{Kind: flashError, Message: err.Error()})
		return
	case err != nil:
		s.serverError(w, r, err)
		return
	}

	user, token, expiresAt, err := s.svc.Accounts.Login(form.Username, password)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.setSessionCookie(w, token, expiresAt)
	redirectWith(w, r, "/partner", flashSuccess, "Welcome, "+user.Name()+"! Invite your partner to share your space.")
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		if err := s.svc.Accounts.Logout(token); err != nil {
			s.logger.Warn("Failed to delete session: %v", err)
		}
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
