package recipe

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/korjavin/loversspace/pkg/account"
	"github.com/korjavin/loversspace/pkg/images"
	"github.com/korjavin/loversspace/pkg/models"
	"github.com/korjavin/loversspace/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = account.Principal{User: models.User{ID: 1, Username: "alice"}}
	carol = account.Principal{User: models.User{ID: 3, Username: "carol"}}
)

func couple() (account.Principal, account.Principal) {
	a := models.User{ID: 1, Username: "alice"}
	b := models.User{ID: 2, Username: "bob"}
	return account.Principal{User: a, Partner: &b}, account.Principal{User: b, Partner: &a}
}

func newTestService(t *testing.T) (*Service, *storage.Store, *images.Service) {
	t.Helper()
	store, err := storage.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	imgs, err := images.New(t.TempDir())
	require.NoError(t, err)
	return New(store, imgs), store, imgs
}

func TestCreateDropsBlankRows(t *testing.T) {
	s, _, _ := newTestService(t)

	created, err := s.Create(alice, Input{
		Name:         "  番茄炒蛋 ",
		Instructions: "先炒蛋",
		Ingredients: []LineItem{
			{Name: "鸡蛋", Quantity: "2个"},
			{Name: "  ", Quantity: "ignored"},
			{Name: "番茄", Quantity: "1个"},
		},
		Seasonings: []LineItem{{Name: "盐", Quantity: "少许"}, {Name: ""}},
	})
	require.NoError(t, err)
	assert.Equal(t, "番茄炒蛋", created.Name)
	assert.Equal(t, models.DefaultImage, created.ImageFile)

	got, err := s.Get(alice, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Ingredients, 2)
	assert.Equal(t, "鸡蛋", got.Ingredients[0].Name)
	assert.Equal(t, "番茄", got.Ingredients[1].Name)
	require.Len(t, got.Seasonings, 1)
	assert.Equal(t, "盐", got.Seasonings[0].Name)
	assert.Empty(t, got.Logs)
}

func TestCreateValidation(t *testing.T) {
	s, _, _ := newTestService(t)

	_, err := s.Create(alice, Input{Name: "   "})
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = s.Create(alice, Input{Name: "饺子", Image: &images.Upload{Filename: "x.bmp", Reader: strings.NewReader("")}})
	assert.ErrorIs(t, err, images.ErrUnsupportedType)
}

func TestNamesAreUniqueWithinCouple(t *testing.T) {
	s, _, _ := newTestService(t)
	a, b := couple()

	_, err := s.Create(a, Input{Name: "麻婆豆腐"})
	require.NoError(t, err)

	_, err = s.Create(b, Input{Name: "麻婆豆腐"})
	assert.ErrorIs(t, err, ErrDuplicateName)

	// another household may reuse the name
	_, err = s.Create(carol, Input{Name: "麻婆豆腐"})
	assert.NoError(t, err)
}

func TestListIsScopedToCoupleInIDOrder(t *testing.T) {
	s, _, _ := newTestService(t)
	a, b := couple()

	first, err := s.Create(a, Input{Name: "A"})
	require.NoError(t, err)
	_, err = s.Create(carol, Input{Name: "C"})
	require.NoError(t, err)
	third, err := s.Create(b, Input{Name: "B", Ingredients: []LineItem{{Name: "白菜"}}})
	require.NoError(t, err)

	recipes, err := s.List(a)
	require.NoError(t, err)
	require.Len(t, recipes, 2)
	assert.Equal(t, first.ID, recipes[0].ID)
	assert.Equal(t, third.ID, recipes[1].ID)
	assert.Len(t, recipes[1].Ingredients, 1)

	_, err = s.Get(carol, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCascades(t *testing.T) {
	s, store, imgs := newTestService(t)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))

	created, err := s.Create(alice, Input{
		Name:        "白菜肉片",
		Ingredients: []LineItem{{Name: "白菜"}, {Name: "肉片"}},
		Seasonings:  []LineItem{{Name: "酱油"}},
		Image:       &images.Upload{Filename: "photo.png", Reader: &buf},
	})
	require.NoError(t, err)
	assert.Equal(t, "recipe_1.png", created.ImageFile)

	_, err = s.AddLog(alice, created.ID, "20分钟", "好吃")
	require.NoError(t, err)

	_, err = s.Delete(carol, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	deleted, err := s.Delete(alice, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "白菜肉片", deleted.Name)

	for _, prefix := range []string{"recipe:", "ingredient:", "seasoning:", "cooklog:", "recipename:"} {
		keys, err := store.List(prefix)
		require.NoError(t, err)
		assert.Empty(t, keys, prefix)
	}

	_, err = os.Stat(filepath.Join(imgs.Dir(), created.ImageFile))
	assert.True(t, os.IsNotExist(err))

	// the name is free again
	_, err = s.Create(alice, Input{Name: "白菜肉片"})
	assert.NoError(t, err)
}

func TestAddLogNewestFirst(t *testing.T) {
	s, _, _ := newTestService(t)
	a, b := couple()

	created, err := s.Create(a, Input{Name: "饺子"})
	require.NoError(t, err)

	_, err = s.AddLog(a, created.ID, "1小时", "first")
	require.NoError(t, err)
	_, err = s.AddLog(b, created.ID, "50分钟", "second")
	require.NoError(t, err)

	_, err = s.AddLog(carol, created.ID, "", "")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := s.Get(b, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Logs, 2)
	assert.Equal(t, "second", got.Logs[0].Notes)
	assert.Equal(t, b.ID(), got.Logs[0].AuthorID)

	withLogs, err := s.ListWithLogs(a)
	require.NoError(t, err)
	require.Len(t, withLogs, 1)
	assert.Len(t, withLogs[0].Logs, 2)
}

func TestOwnsImage(t *testing.T) {
	s, _, _ := newTestService(t)
	a, b := couple()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	created, err := s.Create(a, Input{
		Name:        "Omelette",
		Ingredients: []LineItem{{Name: "egg"}},
		Image:       &images.Upload{Filename: "omelette.png", Reader: &buf},
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		p    account.Principal
		file string
		want bool
	}{
		{"owner", a, created.ImageFile, true},
		{"partner", b, created.ImageFile, true},
		{"stranger", carol, created.ImageFile, false},
		{"other extension", a, "recipe_1.jpg", false},
		{"unknown recipe", a, "recipe_9.png", false},
		{"not a recipe image", a, "holiday.png", false},
		{"bad id", a, "recipe_x.png", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.OwnsImage(tt.p, tt.file)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
