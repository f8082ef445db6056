package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/korjavin/loversspace/pkg/logger"
	"github.com/pkg/errors"
)

// Bot represents a Telegram bot instance
type Bot struct {
	api    *tgbotapi.BotAPI
	logger *logger.Logger
}

// HandlerFunc is a function that handles a Telegram update
type HandlerFunc func(update tgbotapi.Update)

// CommandHandler is a function that handles a Telegram command
type CommandHandler func(message *tgbotapi.Message)

// CallbackHandler is a function that handles a Telegram callback query
type CallbackHandler func(callback *tgbotapi.CallbackQuery)

// Handlers routes updates: commands by name, callbacks by data prefix,
// everything else to Default
type Handlers struct {
	Commands  map[string]CommandHandler
	Callbacks map[string]CallbackHandler
	Default   HandlerFunc
}

// New creates a new Telegram bot instance
func New(token string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Telegram bot")
	}

	bot := &Bot{
		api:    api,
		logger: logger.New("telegram"),
	}

	bot.logger.Info("Telegram bot created: @%s", api.Self.UserName)
	return bot, nil
}

// Username returns the bot's Telegram username
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// Start listens for updates until Stop is called
func (b *Bot) Start(h Handlers) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		b.dispatch(h, update)
	}
	b.logger.Info("Update loop stopped")
}

// Stop ends the update loop started by Start
func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
}

func (b *Bot) dispatch(h Handlers, update tgbotapi.Update) {
	log := b.logger
	if chat := update.FromChat(); chat != nil {
		log = b.logger.With(fmt.Sprintf("%d", chat.ID))
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("Handler panicked: %v", r)
		}
	}()

	if update.Message != nil && update.Message.IsCommand() {
		command := update.Message.Command()
		if handler, ok := h.Commands[command]; ok {
			log.Info("Handling command: %s", command)
			handler(update.Message)
			return
		}
	}

	if update.CallbackQuery != nil {
		data := update.CallbackQuery.Data
		for prefix, handler := range h.Callbacks {
			if strings.HasPrefix(data, prefix) {
				log.Info("Handling callback: %s", data)
				handler(update.CallbackQuery)
				return
			}
		}
		log.Warn("No handler for callback: %s", data)
		return
	}

	if h.Default != nil {
		h.Default(update)
	}
}

// SendMessage sends a text message to a chat
func (b *Bot) SendMessage(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	return b.api.Send(msg)
}

// SendMessageWithKeyboard sends a text message with an inline keyboard
func (b *Bot) SendMessageWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	return b.api.Send(msg)
}

// AnswerCallbackQuery answers a callback query
func (b *Bot) AnswerCallbackQuery(callbackID string, text string) error {
	callback := tgbotapi.NewCallback(callbackID, text)
	_, err := b.api.Request(callback)
	return err
}

// EditMessageWithKeyboard replaces the text and inline keyboard of a message
func (b *Bot) EditMessageWithKeyboard(chatID int64, messageID int, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, keyboard)
	return b.api.Send(edit)
}
