package stats

import (
	"testing"
	"time"

	"github.com/korjavin/loversspace/pkg/account"
	"github.com/korjavin/loversspace/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecipes []models.Recipe

func (f fakeRecipes) ListWithLogs(p account.Principal) ([]models.Recipe, error) {
	return f, nil
}

func cooked(id int64, name string, authors ...int64) models.Recipe {
	r := models.Recipe{ID: id, Name: name}
	base := time.Date(2026, 10, 1, 18, 0, 0, 0, time.UTC)
	for i, author := range authors {
		r.Logs = append(r.Logs, models.CookingLog{
			ID:       int64(i + 1),
			RecipeID: id,
			AuthorID: author,
			CookedAt: base.Add(time.Duration(id*24+int64(i)) * time.Hour),
		})
	}
	return r
}

func TestCooking(t *testing.T) {
	bob := models.User{ID: 2, Username: "bob", DisplayName: "Bob"}
	p := account.Principal{User: models.User{ID: 1, Username: "alice", DisplayName: "Alice"}, Partner: &bob}

	s := New(fakeRecipes{
		cooked(1, "饺子", 1, 2),
		cooked(2, "蛋炒饭"),
		cooked(3, "面条", 2, 2),
		cooked(4, "番茄炒蛋", 1),
	})

	stats, err := s.Cooking(p, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.RecipeCount)
	assert.Equal(t, 5, stats.LogCount)

	require.Len(t, stats.MostCooked, 2)
	assert.Equal(t, "饺子", stats.MostCooked[0].Recipe.Name)
	assert.Equal(t, "面条", stats.MostCooked[1].Recipe.Name)
	assert.Equal(t, 2, stats.MostCooked[1].Count)

	require.NotNil(t, stats.LastCooked)
	assert.Equal(t, "番茄炒蛋", stats.LastCooked.Name)

	require.Len(t, stats.ByCook, 2)
	assert.Equal(t, CookCount{UserID: 2, Name: "Bob", Count: 3}, stats.ByCook[0])
	assert.Equal(t, "Alice", stats.ByCook[1].Name)
}

func TestCookingEmpty(t *testing.T) {
	stats, err := New(fakeRecipes{}).Cooking(account.Principal{User: models.User{ID: 1}}, 3)
	require.NoError(t, err)
	assert.Zero(t, stats.LogCount)
	assert.Nil(t, stats.LastCooked)
	assert.Empty(t, stats.MostCooked)
}
