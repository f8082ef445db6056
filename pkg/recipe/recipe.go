package recipe

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/korjavin/loversspace/pkg/account"
	"github.com/korjavin/loversspace/pkg/images"
	"github.com/korjavin/loversspace/pkg/logger"
	"github.com/korjavin/loversspace/pkg/models"
	"github.com/korjavin/loversspace/pkg/storage"
	"github.com/pkg/errors"
)

var (
	ErrNameRequired  = errors.New("recipe name must not be empty")
	ErrDuplicateName = errors.New("a recipe with this name already exists")
	ErrNotFound      = errors.New("recipe not found")
)

// LineItem is one ingredient or seasoning row of the recipe form
type LineItem struct {
	Name     string
	Quantity string
}

// Input is the data needed to create a recipe
type Input struct {
	Name         string
	Instructions string
	Ingredients  []LineItem
	Seasonings   []LineItem
	Image        *images.Upload
}

// Service provides recipe storage functionality
type Service struct {
	store  *storage.Store
	images *images.Service
	logger *logger.Logger
}

// New creates a new recipe service
func New(store *storage.Store, imageService *images.Service) *Service {
	return &Service{
		store:  store,
		images: imageService,
		logger: logger.New("recipe"),
	}
}

func recipeKey(id int64) string {
	return storage.Key("recipe", id)
}

func nameKey(ownerID int64, name string) string {
	return fmt.Sprintf("recipename:%d:%s", ownerID, name)
}

// Create stores a recipe with its ingredients and seasonings. Rows with a
// blank name are dropped. Names are unique across the couple's recipes.
func (s *Service) Create(p account.Principal, in Input) (*models.Recipe, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if in.Image != nil && !images.Allowed(in.Image.Filename) {
		return nil, images.ErrUnsupportedType
	}

	recipe := &models.Recipe{
		OwnerID:      p.ID(),
		Name:         name,
		Instructions: strings.TrimSpace(in.Instructions),
		ImageFile:    models.DefaultImage,
		CreatedAt:    time.Now(),
	}

	err := s.store.Update(func(tx *storage.Tx) error {
		for _, ownerID := range p.Owners() {
			taken, err := tx.Exists(nameKey(ownerID, name))
			if err != nil {
				return err
			}
			if taken {
				return ErrDuplicateName
			}
		}

		var err error
		recipe.ID, err = tx.NextID("recipe")
		if err != nil {
			return err
		}
		if err := tx.Set(recipeKey(recipe.ID), recipe); err != nil {
			return err
		}
		if err := tx.Set(nameKey(recipe.OwnerID, name), recipe.ID); err != nil {
			return err
		}

		recipe.Ingredients = nil
		for _, item := range in.Ingredients {
			itemName := strings.TrimSpace(item.Name)
			if itemName == "" {
				continue
			}
			ingredient := models.Ingredient{
				RecipeID: recipe.ID,
				Position: int64(len(recipe.Ingredients) + 1),
				Name:     itemName,
				Quantity: strings.TrimSpace(item.Quantity),
			}
			if err := tx.Set(storage.ChildKey("ingredient", recipe.ID, ingredient.Position), ingredient); err != nil {
				return err
			}
			recipe.Ingredients = append(recipe.Ingredients, ingredient)
		}

		recipe.Seasonings = nil
		for _, item := range in.Seasonings {
			itemName := strings.TrimSpace(item.Name)
			if itemName == "" {
				continue
			}
			seasoning := models.Seasoning{
				RecipeID: recipe.ID,
				Position: int64(len(recipe.Seasonings) + 1),
				Name:     itemName,
				Quantity: strings.TrimSpace(item.Quantity),
			}
			if err := tx.Set(storage.ChildKey("seasoning", recipe.ID, seasoning.Position), seasoning); err != nil {
				return err
			}
			recipe.Seasonings = append(recipe.Seasonings, seasoning)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if in.Image != nil {
		imageFile, err := s.images.Save(*in.Image, fmt.Sprintf("recipe_%d", recipe.ID))
		if err != nil {
			s.logger.Error("Failed to store image for recipe %d: %v", recipe.ID, err)
			if delErr := s.deleteRecords(recipe.ID); delErr != nil {
				s.logger.Error("Failed to roll back recipe %d: %v", recipe.ID, delErr)
			}
			return nil, err
		}
		recipe.ImageFile = imageFile
		if err := s.store.Set(recipeKey(recipe.ID), recipe); err != nil {
			return nil, errors.Wrap(err, "failed to save recipe image")
		}
	}

	s.logger.Info("User %d created recipe %d %q with %d ingredients and %d seasonings",
		p.ID(), recipe.ID, recipe.Name, len(recipe.Ingredients), len(recipe.Seasonings))
	return recipe, nil
}

// List returns the couple's recipes in id order with ingredients and
// seasonings loaded
func (s *Service) List(p account.Principal) ([]models.Recipe, error) {
	return s.list(p, false)
}

// ListWithLogs is List plus each recipe's cooking logs
func (s *Service) ListWithLogs(p account.Principal) ([]models.Recipe, error) {
	return s.list(p, true)
}

func (s *Service) list(p account.Principal, withLogs bool) ([]models.Recipe, error) {
	var recipes []models.Recipe
	err := s.store.View(func(tx *storage.Tx) error {
		keys, err := tx.List("recipe:")
		if err != nil {
			return err
		}

		for _, key := range keys {
			var recipe models.Recipe
			if err := tx.Get(key, &recipe); err != nil {
				s.logger.Error("Failed to get recipe %s: %v", key, err)
				continue
			}
			if !p.Owns(recipe.OwnerID) {
				continue
			}
			if err := loadChildren(tx, &recipe, withLogs); err != nil {
				return err
			}
			recipes = append(recipes, recipe)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list recipes")
	}
	return recipes, nil
}

// Get returns a recipe with ingredients, seasonings and logs (newest first)
func (s *Service) Get(p account.Principal, id int64) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.store.View(func(tx *storage.Tx) error {
		if err := getOwned(tx, p, id, &recipe); err != nil {
			return err
		}
		return loadChildren(tx, &recipe, true)
	})
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}

// OwnsImage reports whether name is the stored image of one of the couple's recipes
func (s *Service) OwnsImage(p account.Principal, name string) (bool, error) {
	rest, ok := strings.CutPrefix(name, "recipe_")
	if !ok {
		return false, nil
	}
	base, _, _ := strings.Cut(rest, ".")
	id, err := strconv.ParseInt(base, 10, 64)
	if err != nil {
		return false, nil
	}

	var recipe models.Recipe
	err = s.store.View(func(tx *storage.Tx) error {
		return getOwned(tx, p, id, &recipe)
	})
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return recipe.ImageFile == name, nil
}

func getOwned(tx *storage.Tx, p account.Principal, id int64, recipe *models.Recipe) error {
	if err := tx.Get(recipeKey(id), recipe); err != nil {
		if storage.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	if !p.Owns(recipe.OwnerID) {
		return ErrNotFound
	}
	return nil
}

func loadChildren(tx *storage.Tx, recipe *models.Recipe, withLogs bool) error {
	keys, err := tx.List(storage.ChildPrefix("ingredient", recipe.ID))
	if err != nil {
		return err
	}
	recipe.Ingredients = make([]models.Ingredient, 0, len(keys))
	for _, key := range keys {
		var ingredient models.Ingredient
		if err := tx.Get(key, &ingredient); err != nil {
			return err
		}
		recipe.Ingredients = append(recipe.Ingredients, ingredient)
	}

	keys, err = tx.List(storage.ChildPrefix("seasoning", recipe.ID))
	if err != nil {
		return err
	}
	recipe.Seasonings = make([]models.Seasoning, 0, len(keys))
	for _, key := range keys {
		var seasoning models.Seasoning
		if err := tx.Get(key, &seasoning); err != nil {
			return err
		}
		recipe.Seasonings = append(recipe.Seasonings, seasoning)
	}

	if !withLogs {
		return nil
	}

	keys, err = tx.List(storage.ChildPrefix("cooklog", recipe.ID))
	if err != nil {
		return err
	}
	recipe.Logs = make([]models.CookingLog, 0, len(keys))
	for _, key := range keys {
		var log models.CookingLog
		if err := tx.Get(key, &log); err != nil {
			return err
		}
		recipe.Logs = append(recipe.Logs, log)
	}
	sort.SliceStable(recipe.Logs, func(i, j int) bool {
		return recipe.Logs[i].CookedAt.After(recipe.Logs[j].CookedAt)
	})
	return nil
}

// Delete removes a recipe together with its ingredients, seasonings and
// cooking logs, then removes its image file
func (s *Service) Delete(p account.Principal, id int64) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.store.View(func(tx *storage.Tx) error {
		return getOwned(tx, p, id, &recipe)
	})
	if err != nil {
		return nil, err
	}

	if err := s.deleteRecords(id); err != nil {
		return nil, err
	}

	// the records are gone even if the file cannot be removed
	if err := s.images.Remove(recipe.ImageFile); err != nil {
		s.logger.Warn("Failed to remove image of recipe %d: %v", id, err)
	}

	s.logger.Info("User %d deleted recipe %d %q", p.ID(), recipe.ID, recipe.Name)
	return &recipe, nil
}

// deleteRecords is the cascade: recipe, name index and every child record
// go in one transaction
func (s *Service) deleteRecords(id int64) error {
	return s.store.Update(func(tx *storage.Tx) error {
		var recipe models.Recipe
		if err := tx.Get(recipeKey(id), &recipe); err != nil {
			if storage.IsNotFound(err) {
				return ErrNotFound
			}
			return err
		}

		for _, kind := range []string{"ingredient", "seasoning", "cooklog"} {
			if _, err := tx.DeletePrefix(storage.ChildPrefix(kind, id)); err != nil {
				return err
			}
		}
		if err := tx.Delete(nameKey(recipe.OwnerID, recipe.Name)); err != nil {
			return err
		}
		return tx.Delete(recipeKey(id))
	})
}

// AddLog records that the recipe was cooked
func (s *Service) AddLog(p account.Principal, recipeID int64, timeTaken, notes string) (*models.CookingLog, error) {
	log := &models.CookingLog{
		RecipeID:  recipeID,
		AuthorID:  p.ID(),
		CookedAt:  time.Now(),
		TimeTaken: strings.TrimSpace(timeTaken),
		Notes:     strings.TrimSpace(notes),
	}

	err := s.store.Update(func(tx *storage.Tx) error {
		var recipe models.Recipe
		if err := getOwned(tx, p, recipeID, &recipe); err != nil {
			return err
		}

		var err error
		log.ID, err = tx.NextID("cooklog")
		if err != nil {
			return err
		}
		return tx.Set(storage.ChildKey("cooklog", recipeID, log.ID), log)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("User %d logged cooking recipe %d", p.ID(), recipeID)
	return log, nil
}
