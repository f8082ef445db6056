package web

import (
	"net/http"

	"github.com/korjavin/loversspace/pkg/images"
	"github.com/korjavin/loversspace/pkg/memory"
	"github.com/korjavin/loversspace/pkg/models"
	"github.com/pkg/errors"
)

type memoriesData struct {
	Memories  []models.Memory
	MaxUpload int64
}

func (s *Server) memories(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Memories.List(principal(r))
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "memories.html", "Our memories", memoriesData{Memories: list, MaxUpload: s.opts.MaxUploadBytes})
}

func (s *Server) addMemory(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r); err != nil {
		redirectWith(w, r, "/memories", flashError, err.Error())
		return
	}

	upload, closeUpload, err := formImage(r, "image")
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	defer closeUpload()

	_, err = s.svc.Memories.Add(principal(r), r.FormValue("title"), r.FormValue("description"), r.FormValue("date"), upload)
	switch {
	case errors.Is(err, memory.ErrTitleRequired),
		errors.Is(err, memory.ErrImageRequired),
		errors.Is(err, memory.ErrInvalidDate),
		errors.Is(err, images.ErrUnsupportedType),
		errors.Is(err, images.ErrInvalidImage),
		errors.Is(err, images.ErrTooManyPixels):
		redirectWith(w, r, "/memories", flashError, err.Error())
		return
	case err != nil:
		s.serverError(w, r, err)
		return
	}

	redirectWith(w, r, "/memories", flashSuccess, "Memory saved!")
}

func (s *Server) deleteMemory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.notFound(w, r)
		return
	}

	err := s.svc.Memories.Delete(principal(r), id)
	if errors.Is(err, memory.ErrNotFound) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	redirectWith(w, r, "/memories", flashSuccess, "Memory deleted.")
}
