package pantry

import (
	"fmt"
	"time"

	"github.com/korjavin/loversspace/pkg/account"
	"github.com/korjavin/loversspace/pkg/logger"
	"github.com/korjavin/loversspace/pkg/models"
	"github.com/korjavin/loversspace/pkg/storage"
	"github.com/pkg/errors"
)

// ErrEmptyPantry is returned when the input holds no ingredient names
var ErrEmptyPantry = errors.New("please enter at least one ingredient")

// RecipeSource lists the recipes visible to a principal, ingredients loaded
type RecipeSource interface {
	List(p account.Principal) ([]models.Recipe, error)
}

// Result is the outcome of a "what can I make" search
type Result struct {
	PerfectMatches []models.Recipe `json:"perfect_matches"`
	PartialMatches []PartialMatch  `json:"partial_matches"`
	PantryInput    string          `json:"pantry_input"`
	HasSearched    bool            `json:"has_searched"`
}

// Service provides pantry matching functionality
type Service struct {
	store   *storage.Store
	recipes RecipeSource
	logger  *logger.Logger
}

// New creates a new pantry service
func New(store *storage.Store, recipes RecipeSource) *Service {
	return &Service{
		store:   store,
		recipes: recipes,
		logger:  logger.New("pantry"),
	}
}

func snapshotKey(userID int64) string {
	return fmt.Sprintf("pantry:%d", userID)
}

// WhatCanIMake matches the pantry text against the couple's recipes.
// Nothing is matched when the input has no ingredient names.
func (s *Service) WhatCanIMake(p account.Principal, input string) (*Result, error) {
	pantry := Normalize(input)
	if len(pantry) == 0 {
		return nil, ErrEmptyPantry
	}

	recipes, err := s.recipes.List(p)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load recipes")
	}

	matches := Match(pantry, recipes)

	snapshot := models.PantrySnapshot{
		UserID:    p.ID(),
		Input:     input,
		UpdatedAt: time.Now(),
	}
	if err := s.store.Set(snapshotKey(p.ID()), snapshot); err != nil {
		// the search itself succeeded
		s.logger.Warn("Failed to remember pantry of user %d: %v", p.ID(), err)
	}

	s.logger.Info("User %d searched with %d ingredients: %d perfect, %d partial of %d recipes",
		p.ID(), len(pantry), len(matches.Perfect), len(matches.Partial), len(recipes))

	return &Result{
		PerfectMatches: matches.Perfect,
		PartialMatches: matches.Partial,
		PantryInput:    input,
		HasSearched:    true,
	}, nil
}

// LastInput returns the pantry text of the user's previous search, or ""
func (s *Service) LastInput(p account.Principal) (string, error) {
	var snapshot models.PantrySnapshot
	if err := s.store.Get(snapshotKey(p.ID()), &snapshot); err != nil {
		if storage.IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return snapshot.Input, nil
}
