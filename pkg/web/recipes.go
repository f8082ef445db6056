package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"github.com/korjavin/loversspace/pkg/images"
	"github.com/korjavin/loversspace/pkg/models"
	"github.com/korjavin/loversspace/pkg/recipe"
	"github.com/korjavin/loversspace/pkg/stats"
	"github.com/pkg/errors"
)

type indexData struct {
	Recipes []models.Recipe
	Stats   *stats.Cooking
}

type recipeForm struct {
	Name         string
	Instructions string
	Ingredients  []recipe.LineItem
	Seasonings   []recipe.LineItem
	MaxUpload    int64
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	p := principal(r)

	recipes, err := s.svc.Recipes.List(p)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	cooking, err := s.svc.Stats.Cooking(p, 3)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "index.html", "Our recipes", indexData{Recipes: recipes, Stats: cooking})
}

func (s *Server) newRecipeForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "recipe_new.html", "New recipe", recipeForm{MaxUpload: s.opts.MaxUploadBytes})
}

// lineItems pairs names[i] with quantities[i] up to the shorter list
func lineItems(names, quantities []string) []recipe.LineItem {
	n := len(names)
	if len(quantities) < n {
		n = len(quantities)
	}
	items := make([]recipe.LineItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, recipe.LineItem{Name: names[i], Quantity: quantities[i]})
	}
	return items
}

// formImage returns the uploaded file of field, or nil when none was chosen.
// The returned closer must be called once the upload is consumed.
func formImage(r *http.Request, field string) (*images.Upload, func(), error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, err
	}
	if header.Filename == "" {
		file.Close()
		return nil, func() {}, nil
	}
	return &images.Upload{Filename: header.Filename, Reader: file}, func() { file.Close() }, nil
}

func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		return errors.Errorf("the upload is too large or malformed (limit %s)", humanize.IBytes(uint64(s.opts.MaxUploadBytes)))
	}
	return nil
}

func (s *Server) createRecipe(w http.ResponseWriter, r *http.Request) {
	form := recipeForm{MaxUpload: s.opts.MaxUploadBytes}

	if err := s.parseUpload(w, r); err != nil {
		s.render(w, r, http.StatusRequestEntityTooLarge, "recipe_new.html", "New recipe", form, Flash{Kind: flashError, Message: err.Error()})
		return
	}

	form.Name = r.FormValue("recipe_name")
	form.Instructions = r.FormValue("instructions")
	form.Ingredients = lineItems(r.Form["ingredient_name[]"], r.Form["ingredient_qty[]"])
	form.Seasonings = lineItems(r.Form["seasoning_name[]"], r.Form["seasoning_qty[]"])

	upload, closeUpload, err := formImage(r, "recipe_image")
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	defer closeUpload()

	_, err = s.svc.Recipes.Create(principal(r), recipe.Input{
		Name:         form.Name,
		Instructions: form.Instructions,
		Ingredients:  form.Ingredients,
		Seasonings:   form.Seasonings,
		Image:        upload,
	})
	switch {
	case errors.Is(err, recipe.ErrNameRequired),
		errors.Is(err, images.ErrUnsupportedType),
		errors.Is(err, images.ErrInvalidImage),
		errors.Is(err, images.ErrTooManyPixels):
		s.render(w, r, http.StatusUnprocessableEntity, "recipe_new.html", "New recipe", form, Flash{Kind: flashError, Message: err.Error()})
		return
	case errors.Is(err, recipe.ErrDuplicateName):
		s.render(w, r, http.StatusConflict, "recipe_new.html", "New recipe", form,
			Flash{Kind: flashError, Message: fmt.Sprintf("a recipe named %q already exists", form.Name)})
		return
	case err != nil:
		s.serverError(w, r, err)
		return
	}

	redirectWith(w, r, "/", flashSuccess, "Recipe added!")
}

func (s *Server) recipeDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.notFound(w, r)
		return
	}

	rec, err := s.svc.Recipes.Get(principal(r), id)
	if errors.Is(err, recipe.ErrNotFound) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "recipe_detail.html", rec.Name, rec)
}

func (s *Server) deleteRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.notFound(w, r)
		return
	}

	deleted, err := s.svc.Recipes.Delete(principal(r), id)
	if errors.Is(err, recipe.ErrNotFound) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		s.logger.Error("[%s] Failed to delete recipe %d: %v", RequestIDFromContext(r.Context()), id, err)
		redirectWith(w, r, fmt.Sprintf("/recipes/%d", id), flashError, "Could not delete the recipe, please try again.")
		return
	}

	redirectWith(w, r, "/", flashSuccess, fmt.Sprintf("Recipe %q deleted.", deleted.Name))
}

func (s *Server) addLog(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.notFound(w, r)
		return
	}

	_, err := s.svc.Recipes.AddLog(principal(r), id, r.FormValue("time_taken"), r.FormValue("notes"))
	if errors.Is(err, recipe.ErrNotFound) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	redirectWith(w, r, fmt.Sprintf("/recipes/%d", id), flashSuccess, "Cooking log added!")
}
