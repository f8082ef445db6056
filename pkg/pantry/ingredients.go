package pantry

import (
	"sort"
	"strings"
	"unicode"

	"github.com/korjavin/loversspace/pkg/models"
)

// Set is a set of ingredient names
type Set map[string]struct{}

// NewSet builds a set from names as given (no trimming)
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, name := range names {
		s[name] = struct{}{}
	}
	return s
}

// Has reports whether name is in the set
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the names in lexicographic order
func (s Set) Sorted() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Outcome is the classification of a single recipe against a pantry
type Outcome int

const (
	// Excluded means no required ingredient is in the pantry
	Excluded Outcome = iota
	// Partial means some, but not all, required ingredients are in the pantry
	Partial
	// Perfect means every required ingredient is in the pantry
	Perfect
)

func (o Outcome) String() string {
	switch o {
	case Perfect:
		return "perfect"
	case Partial:
		return "partial"
	default:
		return "excluded"
	}
}

// Normalize splits free-text pantry input on runs of commas and whitespace
// (newlines included) and returns the set of non-empty trimmed tokens.
// Names are not case-folded: "Tomato" and "tomato" are different ingredients.
func Normalize(input string) Set {
	tokens := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})

	set := make(Set, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		set[token] = struct{}{}
	}
	return set
}

// Requirements returns the trimmed ingredient names of a recipe in the order
// they were entered, with duplicates collapsed. An empty result means the
// recipe is not eligible for matching.
func Requirements(ingredients []models.Ingredient) []string {
	seen := make(map[string]bool, len(ingredients))
	required := make([]string, 0, len(ingredients))
	for _, ingredient := range ingredients {
		name := strings.TrimSpace(ingredient.Name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		required = append(required, name)
	}
	return required
}

// Classify compares a recipe's requirements with the pantry. For a partial
// match it also returns the missing names, in requirement order.
// required must be non-empty (see Requirements).
func Classify(pantry Set, required []string) (Outcome, []string) {
	var missing []string
	for _, name := range required {
		if !pantry.Has(name) {
			missing = append(missing, name)
		}
	}

	switch {
	case len(missing) == 0:
		return Perfect, nil
	case len(missing) < len(required):
		return Partial, missing
	default:
		return Excluded, nil
	}
}

// PartialMatch is a recipe that is missing some of its ingredients
type PartialMatch struct {
	Recipe  models.Recipe `json:"recipe"`
	Missing []string      `json:"missing"`
}

// Matches holds the two result lists of a pantry match
type Matches struct {
	Perfect []models.Recipe `json:"perfect_matches"`
	Partial []PartialMatch  `json:"partial_matches"`
}

// Match classifies every recipe against the pantry. Both lists keep the
// order of recipes; recipes without ingredients and recipes sharing nothing
// with the pantry appear in neither list. Seasonings are never considered.
func Match(pantry Set, recipes []models.Recipe) Matches {
	matches := Matches{
		Perfect: []models.Recipe{},
		Partial: []PartialMatch{},
	}

	for _, recipe := range recipes {
		required := Requirements(recipe.Ingredients)
		if len(required) == 0 {
			continue
		}

		outcome, missing := Classify(pantry, required)
		switch outcome {
		case Perfect:
			matches.Perfect = append(matches.Perfect, recipe)
		case Partial:
			matches.Partial = append(matches.Partial, PartialMatch{Recipe: recipe, Missing: missing})
		}
	}

	return matches
}
