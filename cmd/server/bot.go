package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/korjavin/loversspace/pkg/account"
	"github.com/korjavin/loversspace/pkg/logger"
	"github.com/korjavin/loversspace/pkg/messages"
	"github.com/korjavin/loversspace/pkg/models"
	"github.com/korjavin/loversspace/pkg/openai"
	"github.com/korjavin/loversspace/pkg/pantry"
	"github.com/korjavin/loversspace/pkg/question"
	"github.com/korjavin/loversspace/pkg/state"
	"github.com/korjavin/loversspace/pkg/stats"
	"github.com/korjavin/loversspace/pkg/telegram"
	"github.com/korjavin/loversspace/pkg/wishlist"
	"github.com/pkg/errors"
)

const wishCallback = "wish:"

// botSender is the part of telegram.Bot the companion talks through
type botSender interface {
	SendMessage(chatID int64, text string) (tgbotapi.Message, error)
	SendMessageWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	AnswerCallbackQuery(callbackID string, text string) error
	EditMessageWithKeyboard(chatID int64, messageID int, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
}

// dishSuggester proposes dishes when none of the couple's recipes match
type dishSuggester interface {
	SuggestDishes(ctx context.Context, ingredients []string, count int) ([]openai.DishIdea, error)
}

// companion wires bot commands to the shared services
type companion struct {
	sender    botSender
	accounts  *account.Service
	pantry    *pantry.Service
	questions *question.Service
	wishlist  *wishlist.Service
	stats     *stats.Service
	messages  *messages.Service
	ideas     dishSuggester // nil when AI is disabled
	states    *state.Manager
	timeout   time.Duration
	now       func() time.Time
	logger    *logger.Logger
}

func (c *companion) handlers() telegram.Handlers {
	return telegram.Handlers{
		Commands: map[string]telegram.CommandHandler{
			"start":    c.start,
			"help":     c.help,
			"link":     c.link,
			"cook":     c.cook,
			"question": c.question,
			"answer":   c.answer,
			"wishlist": c.showWishlist,
			"stats":    c.showStats,
		},
		Callbacks: map[string]telegram.CallbackHandler{
			wishCallback: c.toggleWish,
		},
		Default: c.text,
	}
}

func (c *companion) send(chatID int64, text string) {
	if _, err := c.sender.SendMessage(chatID, text); err != nil {
		c.logger.Error("Failed to send message to chat %d: %v", chatID, err)
	}
}

func (c *companion) fail(chatID int64, what string, err error) {
	c.logger.Error("Failed to %s for chat %d: %v", what, chatID, err)
	c.send(chatID, messages.Error())
}

// principal resolves the account of a chat, telling unlinked chats how to link
func (c *companion) principal(chatID int64) (account.Principal, bool) {
	p, err := c.accounts.PrincipalForChat(chatID)
	if errors.Is(err, account.ErrUserNotFound) {
		c.send(chatID, messages.NotLinked())
		return account.Principal{}, false
	}
	if err != nil {
		c.fail(chatID, "resolve account", err)
		return account.Principal{}, false
	}
	return p, true
}

func (c *companion) start(message *tgbotapi.Message) {
	ctx := context.Background()
	c.send(message.Chat.ID, c.messages.Welcome(ctx, message.Chat.FirstName))
}

func (c *companion) help(message *tgbotapi.Message) {
	c.send(message.Chat.ID, messages.Help())
}

func (c *companion) link(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	code := strings.TrimSpace(message.CommandArguments())
	if code == "" {
		c.send(chatID, messages.NotLinked())
		return
	}

	user, err := c.accounts.LinkTelegramChat(code, chatID)
	if errors.Is(err, account.ErrInvalidLinkCode) {
		c.send(chatID, "⛔ "+err.Error())
		return
	}
	if err != nil {
		c.fail(chatID, "link chat", err)
		return
	}
	c.send(chatID, messages.Linked(*user))
}

func (c *companion) cook(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	p, ok := c.principal(chatID)
	if !ok {
		return
	}

	input := strings.TrimSpace(message.CommandArguments())
	if input == "" {
		c.states.SetState(chatID, state.StateAwaitingPantry)
		c.send(chatID, messages.AskPantry())
		return
	}
	c.cookWith(chatID, p, input)
}

func (c *companion) cookWith(chatID int64, p account.Principal, input string) {
	result, err := c.pantry.WhatCanIMake(p, input)
	if errors.Is(err, pantry.ErrEmptyPantry) {
		c.send(chatID, "🧺 "+err.Error())
		return
	}
	if err != nil {
		c.fail(chatID, "match pantry", err)
		return
	}

	text := messages.CookResult(result)
	if len(result.PerfectMatches) == 0 && len(result.PartialMatches) == 0 && c.ideas != nil {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		ideas, err := c.ideas.SuggestDishes(ctx, pantry.Normalize(input).Sorted(), 3)
		if err != nil {
			c.logger.Warn("No dish ideas for chat %d: %v", chatID, err)
		} else if extra := messages.DishIdeas(ideas); extra != "" {
			text += "\n\n" + extra
		}
	}
	c.send(chatID, text)
}

func partnerName(p account.Principal) string {
	if p.Partner == nil {
		return ""
	}
	return p.Partner.Name()
}

func (c *companion) question(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	p, ok := c.principal(chatID)
	if !ok {
		return
	}

	q, err := c.questions.Today(context.Background(), p, c.now())
	if err != nil {
		c.fail(chatID, "get today's question", err)
		return
	}
	c.send(chatID, messages.Question(c.questions.View(p, *q), partnerName(p)))
}

func (c *companion) answer(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	p, ok := c.principal(chatID)
	if !ok {
		return
	}

	text := strings.TrimSpace(message.CommandArguments())
	if text == "" {
		c.states.SetState(chatID, state.StateAwaitingAnswer)
		c.send(chatID, "✍️ Send me your answer.")
		return
	}
	c.answerWith(chatID, p, text)
}

func (c *companion) answerWith(chatID int64, p account.Principal, text string) {
	now := c.now()
	if _, err := c.questions.Today(context.Background(), p, now); err != nil {
		c.fail(chatID, "get today's question", err)
		return
	}

	q, err := c.questions.Answer(p, now, text)
	if errors.Is(err, question.ErrAnswerRequired) {
		c.send(chatID, "✍️ "+err.Error())
		return
	}
	if err != nil {
		c.fail(chatID, "save answer", err)
		return
	}
	c.send(chatID, messages.Question(c.questions.View(p, *q), partnerName(p)))
}

func wishKeyboard(items []models.WishlistItem) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(items))
	for _, item := range items {
		mark := "⬜"
		if item.Done {
			mark = "✅"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(mark+" "+item.Title, fmt.Sprintf("%s%d", wishCallback, item.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (c *companion) showWishlist(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	p, ok := c.principal(chatID)
	if !ok {
		return
	}

	items, err := c.wishlist.List(p)
	if err != nil {
		c.fail(chatID, "list wishlist", err)
		return
	}
	if len(items) == 0 {
		c.send(chatID, messages.Wishlist(items))
		return
	}
	if _, err := c.sender.SendMessageWithKeyboard(chatID, messages.Wishlist(items), wishKeyboard(items)); err != nil {
		c.logger.Error("Failed to send wishlist to chat %d: %v", chatID, err)
	}
}

func (c *companion) toggleWish(callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}
	chatID := callback.Message.Chat.ID

	answer := func(text string) {
		if err := c.sender.AnswerCallbackQuery(callback.ID, text); err != nil {
			c.logger.Error("Failed to answer callback %s: %v", callback.ID, err)
		}
	}

	id, err := strconv.ParseInt(strings.TrimPrefix(callback.Data, wishCallback), 10, 64)
	if err != nil {
		answer("Unknown wish")
		return
	}
	p, ok := c.principal(chatID)
	if !ok {
		answer("")
		return
	}

	item, err := c.wishlist.Toggle(p, id)
	if errors.Is(err, wishlist.ErrNotFound) {
		answer("This wish is gone")
		return
	}
	if err != nil {
		c.logger.Error("Failed to toggle wish %d: %v", id, err)
		answer("Something went wrong")
		return
	}
	if item.Done {
		answer("🎉 " + item.Title)
	} else {
		answer("Back on the list")
	}

	items, err := c.wishlist.List(p)
	if err != nil {
		c.logger.Error("Failed to list wishlist: %v", err)
		return
	}
	if _, err := c.sender.EditMessageWithKeyboard(chatID, callback.Message.MessageID, messages.Wishlist(items), wishKeyboard(items)); err != nil {
		c.logger.Error("Failed to update wishlist message: %v", err)
	}
}

func (c *companion) showStats(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	p, ok := c.principal(chatID)
	if !ok {
		return
	}

	cooking, err := c.stats.Cooking(p, 3)
	if err != nil {
		c.fail(chatID, "compute stats", err)
		return
	}
	c.send(chatID, messages.Stats(cooking))
}

// text handles plain messages, continuing a /cook or /answer without arguments
func (c *companion) text(update tgbotapi.Update) {
	message := update.Message
	if message == nil || message.Text == "" || message.IsCommand() {
		return
	}
	chatID := message.Chat.ID

	switch c.states.GetState(chatID) {
	case state.StateAwaitingPantry:
		c.states.ClearState(chatID)
		if p, ok := c.principal(chatID); ok {
			c.cookWith(chatID, p, message.Text)
		}
	case state.StateAwaitingAnswer:
		c.states.ClearState(chatID)
		if p, ok := c.principal(chatID); ok {
			c.answerWith(chatID, p, message.Text)
		}
	default:
		c.send(chatID, messages.Help())
	}
}
