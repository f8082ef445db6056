package pantry

import (
	"testing"

	"github.com/korjavin/loversspace/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recipe(id int64, name string, ingredients ...string) models.Recipe {
	r := models.Recipe{ID: id, Name: name}
	for i, ingredient := range ingredients {
		r.Ingredients = append(r.Ingredients, models.Ingredient{
			RecipeID: id,
			Position: int64(i + 1),
			Name:     ingredient,
		})
	}
	return r
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", []string{}},
		{"separators only", " ,\n, \t", []string{}},
		{"commas and spaces", "鸡蛋, 番茄 ,葱", []string{"番茄", "葱", "鸡蛋"}},
		{"newlines and runs", "egg\n\n  tomato,,,  onion", []string{"egg", "onion", "tomato"}},
		{"duplicates collapse", "egg egg, egg", []string{"egg"}},
		{"case is kept", "Egg egg", []string{"Egg", "egg"}},
		{"full-width comma is not a separator", "鸡蛋，番茄", []string{"鸡蛋，番茄"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input).Sorted())
		})
	}
}

func TestRequirements(t *testing.T) {
	r := recipe(1, "r", " 鸡蛋", "番茄", "", "鸡蛋 ", "  ")
	assert.Equal(t, []string{"鸡蛋", "番茄"}, Requirements(r.Ingredients))
	assert.Empty(t, Requirements(nil))
}

func TestClassify(t *testing.T) {
	pantry := NewSet("鸡蛋", "番茄")

	outcome, missing := Classify(pantry, []string{"鸡蛋", "番茄"})
	assert.Equal(t, Perfect, outcome)
	assert.Empty(t, missing)

	outcome, missing = Classify(pantry, []string{"葱", "鸡蛋", "米饭"})
	assert.Equal(t, Partial, outcome)
	assert.Equal(t, []string{"葱", "米饭"}, missing)

	outcome, missing = Classify(pantry, []string{"牛肉"})
	assert.Equal(t, Excluded, outcome)
	assert.Empty(t, missing)

	assert.Equal(t, "partial", Partial.String())
}

func TestMatchPerfectAndPartial(t *testing.T) {
	recipes := []models.Recipe{
		recipe(1, "番茄炒蛋", "鸡蛋", "番茄"),
		recipe(2, "蛋炒饭", "鸡蛋", "米饭", "葱"),
		recipe(3, "红烧牛肉", "牛肉", "土豆"),
	}

	got := Match(Normalize("鸡蛋, 番茄"), recipes)

	require.Len(t, got.Perfect, 1)
	assert.Equal(t, "番茄炒蛋", got.Perfect[0].Name)
	require.Len(t, got.Partial, 1)
	assert.Equal(t, "蛋炒饭", got.Partial[0].Recipe.Name)
	assert.Equal(t, []string{"米饭", "葱"}, got.Partial[0].Missing)
}

func TestMatchSkipsRecipesWithoutIngredients(t *testing.T) {
	recipes := []models.Recipe{
		recipe(1, "清水"),
		recipe(2, "煎蛋", "鸡蛋"),
	}
	recipes[0].Seasonings = []models.Seasoning{{Name: "鸡蛋"}}

	got := Match(Normalize("鸡蛋"), recipes)
	require.Len(t, got.Perfect, 1)
	assert.Equal(t, int64(2), got.Perfect[0].ID)
	assert.Empty(t, got.Partial)
}

func TestMatchIgnoresSeasonings(t *testing.T) {
	r := recipe(1, "白菜肉片", "白菜", "肉片")
	r.Seasonings = []models.Seasoning{{Name: "盐"}, {Name: "酱油"}}

	got := Match(Normalize("白菜 肉片"), []models.Recipe{r})
	require.Len(t, got.Perfect, 1)
	assert.Empty(t, got.Partial)
}

func TestMatchNothingInCommon(t *testing.T) {
	got := Match(Normalize("巧克力"), []models.Recipe{recipe(1, "番茄炒蛋", "鸡蛋", "番茄")})
	assert.NotNil(t, got.Perfect)
	assert.NotNil(t, got.Partial)
	assert.Empty(t, got.Perfect)
	assert.Empty(t, got.Partial)
}

func TestMatchProperties(t *testing.T) {
	recipes := []models.Recipe{
		recipe(1, "a", "x", "y"),
		recipe(2, "b", "y", "z"),
		recipe(3, "c", "x"),
		recipe(4, "d", "q", "x", "y"),
		recipe(5, "e", "w"),
	}
	pantry := Normalize("x y")
	got := Match(pantry, recipes)

	ids := func(rs []models.Recipe) []int64 {
		out := []int64{}
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}
	assert.Equal(t, []int64{1, 3}, ids(got.Perfect))

	var partialIDs []int64
	for _, pm := range got.Partial {
		partialIDs = append(partialIDs, pm.Recipe.ID)
		required := Requirements(pm.Recipe.Ingredients)
		assert.NotEmpty(t, pm.Missing)
		assert.Less(t, len(pm.Missing), len(required))
		for _, m := range pm.Missing {
			assert.False(t, pantry.Has(m))
		}
	}
	assert.Equal(t, []int64{2, 4}, partialIDs)
}
