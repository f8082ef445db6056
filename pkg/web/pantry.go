package web

import (
	"encoding/json"
	"net/http"

	"github.com/korjavin/loversspace/pkg/models"
	"github.com/korjavin/loversspace/pkg/pantry"
	"github.com/pkg/errors"
)

func (s *Server) whatCanIMakeForm(w http.ResponseWriter, r *http.Request) {
	last, err := s.svc.Pantry.LastInput(principal(r))
	if err != nil {
		s.logger.Warn("[%s] Failed to load last pantry: %v", RequestIDFromContext(r.Context()), err)
	}
	s.render(w, r, http.StatusOK, "what_can_i_make.html", "What can I make?", &pantry.Result{PantryInput: last})
}

func (s *Server) whatCanIMake(w http.ResponseWriter, r *http.Request) {
	input := r.FormValue("pantry")

	result, err := s.svc.Pantry.WhatCanIMake(principal(r), input)
	if errors.Is(err, pantry.ErrEmptyPantry) {
		s.render(w, r, http.StatusOK, "what_can_i_make.html", "What can I make?",
			&pantry.Result{PantryInput: input}, Flash{Kind: flashError, Message: err.Error()})
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "what_can_i_make.html", "What can I make?", result)
}

type apiPantryRequest struct {
	Pantry string `json:"pantry"`
}

type apiRecipe struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	ImageURL    string   `json:"image_url"`
	Ingredients []string `json:"ingredients"`
}

type apiPartial struct {
	Recipe  apiRecipe `json:"recipe"`
	Missing []string  `json:"missing"`
}

type apiPantryResponse struct {
	PerfectMatches []apiRecipe  `json:"perfect_matches"`
	PartialMatches []apiPartial `json:"partial_matches"`
	PantryInput    string       `json:"pantry_input"`
}

func toAPIRecipe(rec models.Recipe) apiRecipe {
	return apiRecipe{
		ID:          rec.ID,
		Name:        rec.Name,
		ImageURL:    imageURL(rec.ImageFile),
		Ingredients: pantry.Requirements(rec.Ingredients),
	}
}

func (s *Server) apiWhatCanIMake(w http.ResponseWriter, r *http.Request) {
	var req apiPantryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	result, err := s.svc.Pantry.WhatCanIMake(principal(r), req.Pantry)
	if errors.Is(err, pantry.ErrEmptyPantry) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	resp := apiPantryResponse{
		PerfectMatches: make([]apiRecipe, 0, len(result.PerfectMatches)),
		PartialMatches: make([]apiPartial, 0, len(result.PartialMatches)),
		PantryInput:    result.PantryInput,
	}
	for _, rec := range result.PerfectMatches {
		resp.PerfectMatches = append(resp.PerfectMatches, toAPIRecipe(rec))
	}
	for _, pm := range result.PartialMatches {
		resp.PartialMatches = append(resp.PartialMatches, apiPartial{Recipe: toAPIRecipe(pm.Recipe), Missing: pm.Missing})
	}
	writeJSON(w, http.StatusOK, resp)
}
