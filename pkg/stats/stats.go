package stats

import (
	"sort"
	"time"

	"github.com/korjavin/loversspace/pkg/account"
	"github.com/korjavin/loversspace/pkg/logger"
	"github.com/korjavin/loversspace/pkg/models"
	"github.com/pkg/errors"
)

// RecipeSource lists the couple's recipes with their cooking logs loaded
type RecipeSource interface {
	ListWithLogs(p account.Principal) ([]models.Recipe, error)
}

// RecipeCount is how often a recipe was cooked
type RecipeCount struct {
	Recipe models.Recipe
	Count  int
}

// CookCount is how often a partner logged cooking
type CookCount struct {
	UserID int64
	Name   string
	Count  int
}

// Cooking summarizes the couple's kitchen activity
type Cooking struct {
	RecipeCount  int
	LogCount     int
	MostCooked   []RecipeCount
	ByCook       []CookCount
	LastCooked   *models.Recipe
	LastCookedAt time.Time
}

// Service provides statistics functionality
type Service struct {
	recipes RecipeSource
	logger  *logger.Logger
}

// New creates a new statistics service
func New(recipes RecipeSource) *Service {
	return &Service{
		recipes: recipes,
		logger:  logger.New("stats"),
	}
}

// Cooking computes the statistics. MostCooked holds at most top recipes
// that were cooked at least once, by count descending then id.
func (s *Service) Cooking(p account.Principal, top int) (*Cooking, error) {
	recipes, err := s.recipes.ListWithLogs(p)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load recipes")
	}

	stats := &Cooking{RecipeCount: len(recipes)}
	byCook := make(map[int64]int)

	for i := range recipes {
		recipe := recipes[i]
		stats.LogCount += len(recipe.Logs)
		if len(recipe.Logs) > 0 {
			stats.MostCooked = append(stats.MostCooked, RecipeCount{Recipe: recipe, Count: len(recipe.Logs)})
		}
		for _, log := range recipe.Logs {
			byCook[log.AuthorID]++
			if log.CookedAt.After(stats.LastCookedAt) {
				stats.LastCookedAt = log.CookedAt
				stats.LastCooked = &recipes[i]
			}
		}
	}

	sort.SliceStable(stats.MostCooked, func(i, j int) bool {
		if stats.MostCooked[i].Count != stats.MostCooked[j].Count {
			return stats.MostCooked[i].Count > stats.MostCooked[j].Count
		}
		return stats.MostCooked[i].Recipe.ID < stats.MostCooked[j].Recipe.ID
	})
	if top > 0 && len(stats.MostCooked) > top {
		stats.MostCooked = stats.MostCooked[:top]
	}

	for userID, count := range byCook {
		stats.ByCook = append(stats.ByCook, CookCount{UserID: userID, Name: p.NameOf(userID), Count: count})
	}
	sort.Slice(stats.ByCook, func(i, j int) bool {
		if stats.ByCook[i].Count != stats.ByCook[j].Count {
			return stats.ByCook[i].Count > stats.ByCook[j].Count
		}
		return stats.ByCook[i].UserID < stats.ByCook[j].UserID
	})

	s.logger.Debug("Cooking stats for user %d: %d recipes, %d logs", p.ID(), stats.RecipeCount, stats.LogCount)
	return stats, nil
}
