package main

import (
	"context"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/korjavin/loversspace/pkg/account"
	"github.com/korjavin/loversspace/pkg/images"
	"github.com/korjavin/loversspace/pkg/logger"
	"github.com/korjavin/loversspace/pkg/messages"
	"github.com/korjavin/loversspace/pkg/openai"
	"github.com/korjavin/loversspace/pkg/pantry"
	"github.com/korjavin/loversspace/pkg/question"
	"github.com/korjavin/loversspace/pkg/recipe"
	"github.com/korjavin/loversspace/pkg/state"
	"github.com/korjavin/loversspace/pkg/stats"
	"github.com/korjavin/loversspace/pkg/storage"
	"github.com/korjavin/loversspace/pkg/wishlist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chatID int64 = 4242

type fakeSender struct {
	sent      []string
	keyboards []tgbotapi.InlineKeyboardMarkup
	edits     []string
	answers   []string
}

func (f *fakeSender) SendMessage(chatID int64, text string) (tgbotapi.Message, error) {
	f.sent = append(f.sent, text)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeSender) SendMessageWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	f.sent = append(f.sent, text)
	f.keyboards = append(f.keyboards, keyboard)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeSender) AnswerCallbackQuery(callbackID string, text string) error {
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeSender) EditMessageWithKeyboard(chatID int64, messageID int, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	f.edits = append(f.edits, text)
	f.keyboards = append(f.keyboards, keyboard)
	return tgbotapi.Message{MessageID: messageID}, nil
}

func (f *fakeSender) last() string {
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

type fakeIdeas struct {
	got []string
}

func (f *fakeIdeas) SuggestDishes(ctx context.Context, ingredients []string, count int) ([]openai.DishIdea, error) {
	f.got = ingredients
	return []openai.DishIdea{{Name: "Mapo Tofu", Description: "spicy", IngredientsMissing: []string{"chili"}}}, nil
}

type fixture struct {
	c        *companion
	sender   *fakeSender
	ideas    *fakeIdeas
	accounts *account.Service
	recipes  *recipe.Service
	wishlist *wishlist.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	imgs, err := images.New(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		sender:   &fakeSender{},
		ideas:    &fakeIdeas{},
		accounts: account.New(store, time.Hour),
		recipes:  recipe.New(store, imgs),
		wishlist: wishlist.New(store),
	}
	f.c = &companion{
		sender:    f.sender,
		accounts:  f.accounts,
		pantry:    pantry.New(store, f.recipes),
		questions: question.New(store, nil, time.Second),
		wishlist:  f.wishlist,
		stats:     stats.New(f.recipes),
		messages:  messages.New(nil, time.Second),
		ideas:     f.ideas,
		states:    state.New(state.DefaultTTL),
		timeout:   time.Second,
		now:       time.Now,
		logger:    logger.New("companion-test"),
	}
	return f
}

// linked registers alice and links her to chatID
func (f *fixture) linked(t *testing.T) account.Principal {
	t.Helper()
	user, err := f.accounts.Register("alice", "Alice", "secret123")
	require.NoError(t, err)
	p, err := f.accounts.PrincipalFor(user.ID)
	require.NoError(t, err)

	code, _, err := f.accounts.CreateTelegramLink(p)
	require.NoError(t, err)
	f.c.link(command("/link " + code))
	require.Contains(t, f.sender.last(), "Hi Alice")

	p, err = f.accounts.PrincipalForChat(chatID)
	require.NoError(t, err)
	return p
}

func command(text string) *tgbotapi.Message {
	name := strings.Fields(text)[0]
	return &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID, FirstName: "Alice"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}
}

func plain(text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{Text: text, Chat: &tgbotapi.Chat{ID: chatID}}}
}

func TestHandlersCoverCommands(t *testing.T) {
	f := newFixture(t)
	h := f.c.handlers()
	for _, name := range []string{"start", "help", "link", "cook", "question", "answer", "wishlist", "stats"} {
		assert.Contains(t, h.Commands, name)
	}
	assert.Contains(t, h.Callbacks, wishCallback)
	assert.NotNil(t, h.Default)
}

func TestStartAndUnlinkedChat(t *testing.T) {
	f := newFixture(t)

	f.c.start(command("/start"))
	assert.Contains(t, f.sender.last(), "Welcome to Lovers Space")
	assert.Contains(t, f.sender.last(), "/cook")

	f.c.cook(command("/cook egg"))
	assert.Equal(t, messages.NotLinked(), f.sender.last())

	f.c.link(command("/link nope"))
	assert.Contains(t, f.sender.last(), account.ErrInvalidLinkCode.Error())
}

func TestCookWithArguments(t *testing.T) {
	f := newFixture(t)
	p := f.linked(t)

	_, err := f.recipes.Create(p, recipe.Input{
		Name:        "Tomato Eggs",
		Ingredients: []recipe.LineItem{{Name: "egg"}, {Name: "tomato"}},
	})
	require.NoError(t, err)
	_, err = f.recipes.Create(p, recipe.Input{
		Name:        "Cabbage Pork",
		Ingredients: []recipe.LineItem{{Name: "cabbage"}, {Name: "pork"}},
	})
	require.NoError(t, err)

	f.c.cook(command("/cook egg, tomato cabbage"))
	reply := f.sender.last()
	assert.Contains(t, reply, "• Tomato Eggs")
	assert.Contains(t, reply, "• Cabbage Pork (missing: pork)")
	assert.Nil(t, f.ideas.got)

	f.c.cook(command("/cook tofu"))
	assert.Contains(t, f.sender.last(), "None of our recipes")
	assert.Contains(t, f.sender.last(), "Mapo Tofu")
	assert.Equal(t, []string{"tofu"}, f.ideas.got)
}

func TestCookAsksForPantry(t *testing.T) {
	f := newFixture(t)
	p := f.linked(t)
	_, err := f.recipes.Create(p, recipe.Input{Name: "Omelette", Ingredients: []recipe.LineItem{{Name: "egg"}}})
	require.NoError(t, err)

	f.c.cook(command("/cook"))
	assert.Equal(t, messages.AskPantry(), f.sender.last())
	assert.Equal(t, state.StateAwaitingPantry, f.c.states.GetState(chatID))

	f.c.text(plain("egg"))
	assert.Contains(t, f.sender.last(), "• Omelette")
	assert.Equal(t, state.StateNormal, f.c.states.GetState(chatID))

	f.c.text(plain("hello"))
	assert.Equal(t, messages.Help(), f.sender.last())
}

func TestQuestionAndAnswer(t *testing.T) {
	f := newFixture(t)
	f.linked(t)

	f.c.question(command("/question"))
	assert.Contains(t, f.sender.last(), "Question of the day")
	assert.Contains(t, f.sender.last(), "/answer")

	f.c.answer(command("/answer Pancakes"))
	assert.Contains(t, f.sender.last(), "You: Pancakes")

	f.c.answer(command("/answer"))
	assert.Equal(t, state.StateAwaitingAnswer, f.c.states.GetState(chatID))
	f.c.text(plain("Waffles"))
	assert.Contains(t, f.sender.last(), "You: Waffles")
}

func TestWishlistToggleEditsKeyboard(t *testing.T) {
	f := newFixture(t)
	p := f.linked(t)

	f.c.showWishlist(command("/wishlist"))
	assert.Contains(t, f.sender.last(), "empty")
	assert.Empty(t, f.sender.keyboards)

	item, err := f.wishlist.Add(p, "Visit Kyoto", "")
	require.NoError(t, err)

	f.c.showWishlist(command("/wishlist"))
	require.Len(t, f.sender.keyboards, 1)
	button := f.sender.keyboards[0].InlineKeyboard[0][0]
	require.NotNil(t, button.CallbackData)
	assert.Equal(t, "wish:1", *button.CallbackData)
	assert.Contains(t, button.Text, "Visit Kyoto")

	f.c.toggleWish(&tgbotapi.CallbackQuery{
		ID:      "cb1",
		Data:    *button.CallbackData,
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: chatID}},
	})
	require.Len(t, f.sender.edits, 1)
	assert.Contains(t, f.sender.edits[0], "✅ Visit Kyoto")
	assert.Equal(t, []string{"🎉 Visit Kyoto"}, f.sender.answers)

	items, err := f.wishlist.List(p)
	require.NoError(t, err)
	assert.Equal(t, item.ID, items[0].ID)
	assert.True(t, items[0].Done)

	f.c.toggleWish(&tgbotapi.CallbackQuery{
		ID:      "cb2",
		Data:    "wish:99",
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: chatID}},
	})
	assert.Equal(t, "This wish is gone", f.sender.answers[1])
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	p := f.linked(t)

	created, err := f.recipes.Create(p, recipe.Input{Name: "Omelette", Ingredients: []recipe.LineItem{{Name: "egg"}}})
	require.NoError(t, err)
	_, err = f.recipes.AddLog(p, created.ID, "10 min", "")
	require.NoError(t, err)

	f.c.showStats(command("/stats"))
	assert.Contains(t, f.sender.last(), "1 recipes, cooked 1 times")
	assert.Contains(t, f.sender.last(), "1st Omelette")
}
