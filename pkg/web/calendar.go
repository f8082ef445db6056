package web

import (
	"net/http"
	"time"

	"github.com/korjavin/loversspace/pkg/journal"
	"github.com/pkg/errors"
)

const monthLayout = "2006-01"

type calendarData struct {
	Month time.Time
	Prev  string
	Next  string
	Today string
	Days  []journal.Day
}

// requestedMonth reads ?month=YYYY-MM, defaulting to the current month
func (s *Server) requestedMonth(r *http.Request) time.Time {
	now := s.opts.Now()
	if m, err := time.ParseInLocation(monthLayout, r.URL.Query().Get("month"), now.Location()); err == nil {
		return m
	}
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

func (s *Server) calendar(w http.ResponseWriter, r *http.Request) {
	month := s.requestedMonth(r)

	days, err := s.svc.Journal.Month(principal(r), month.Year(), month.Month())
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "calendar.html", month.Format("January 2006"), calendarData{
		Month: month,
		Prev:  month.AddDate(0, -1, 0).Format(monthLayout),
		Next:  month.AddDate(0, 1, 0).Format(monthLayout),
		Today: s.opts.Now().Format(journal.DateLayout),
		Days:  days,
	})
}

func (s *Server) addJournalEntry(w http.ResponseWriter, r *http.Request) {
	date := r.FormValue("date")

	entry, err := s.svc.Journal.Add(principal(r), date, r.FormValue("title"), r.FormValue("content"), r.FormValue("mood"))
	if errors.Is(err, journal.ErrInvalidDate) || errors.Is(err, journal.ErrTitleRequired) {
		back := "/calendar"
		if len(date) >= len(monthLayout) {
			if _, perr := time.Parse(monthLayout, date[:len(monthLayout)]); perr == nil {
				back += "?month=" + date[:len(monthLayout)]
			}
		}
		redirectWith(w, r, back, flashError, err.Error())
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	redirectWith(w, r, "/calendar?month="+entry.Date[:len(monthLayout)], flashSuccess, "Entry added!")
}

func (s *Server) deleteJournalEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.notFound(w, r)
		return
	}

	err := s.svc.Journal.Delete(principal(r), id)
	if errors.Is(err, journal.ErrNotFound) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	redirectWith(w, r, "/calendar?"+r.URL.RawQuery, flashSuccess, "Entry deleted.")
}
