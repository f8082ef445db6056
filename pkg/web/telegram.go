package web

import (
	"net/http"
	"time"
)

type telegramData struct {
	BotUsername string
	Linked      bool
	Code        string
	ExpiresAt   time.Time
}

func (s *Server) telegramLink(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	s.render(w, r, http.StatusOK, "telegram_link.html", "Telegram", telegramData{
		BotUsername: s.opts.BotUsername,
		Linked:      p.User.TelegramChatID != 0,
	})
}

func (s *Server) createTelegramLink(w http.ResponseWriter, r *http.Request) {
	p := principal(r)

	code, expiresAt, err := s.svc.Accounts.CreateTelegramLink(p)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "telegram_link.html", "Telegram", telegramData{
		BotUsername: s.opts.BotUsername,
		Linked:      p.User.TelegramChatID != 0,
		Code:        code,
		ExpiresAt:   expiresAt,
	})
}
