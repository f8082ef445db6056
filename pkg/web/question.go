package web

import (
	"net/http"

	"github.com/korjavin/loversspace/pkg/question"
	"github.com/pkg/errors"
)

type historyData struct {
	Questions []question.View
}

func (s *Server) question(w http.ResponseWriter, r *http.Request) {
	p := principal(r)

	q, err := s.svc.Questions.Today(r.Context(), p, s.opts.Now())
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "question.html", "Question of the day", s.svc.Questions.View(p, *q))
}

func (s *Server) answerQuestion(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	now := s.opts.Now()

	// the question may not exist yet if the page was opened yesterday
	if _, err := s.svc.Questions.Today(r.Context(), p, now); err != nil {
		s.serverError(w, r, err)
		return
	}

	_, err := s.svc.Questions.Answer(p, now, r.FormValue("answer"))
	if errors.Is(err, question.ErrAnswerRequired) {
		redirectWith(w, r, "/question", flashError, err.Error())
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	redirectWith(w, r, "/question", flashSuccess, "Answer saved!")
}

func (s *Server) questionHistory(w http.ResponseWriter, r *http.Request) {
	p := principal(r)

	questions, err := s.svc.Questions.History(p, 30)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	data := historyData{Questions: make([]question.View, 0, len(questions))}
	for _, q := range questions {
		data.Questions = append(data.Questions, s.svc.Questions.View(p, q))
	}
	s.render(w, r, http.StatusOK, "question_history.html", "Past questions", data)
}
