package scheduler

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/korjavin/loversspace/pkg/account"
	"github.com/korjavin/loversspace/pkg/logger"
	"github.com/korjavin/loversspace/pkg/messages"
	"github.com/korjavin/loversspace/pkg/models"
	"github.com/korjavin/loversspace/pkg/question"
	"github.com/korjavin/loversspace/pkg/storage"
)

// pushedTTL keeps the "already pushed" markers a little longer than a day
const pushedTTL = 48 * time.Hour

// Sender delivers a message to a Telegram chat
type Sender interface {
	SendMessage(chatID int64, text string) (tgbotapi.Message, error)
}

// Users lists the users with a linked chat and resolves their principals
type Users interface {
	LinkedUsers() ([]models.User, error)
	PrincipalFor(userID int64) (account.Principal, error)
}

// Service pushes the daily question
type Service struct {
	store     *storage.Store
	users     Users
	questions *question.Service
	sender    Sender
	hour      int
	logger    *logger.Logger
	stopChan  chan struct{}
}

// New creates a new scheduler service
func New(store *storage.Store, users Users, questions *question.Service, sender Sender, hour int) *Service {
	return &Service{
		store:     store,
		users:     users,
		questions: questions,
		sender:    sender,
		hour:      hour,
		logger:    logger.New("scheduler"),
		stopChan:  make(chan struct{}),
	}
}

// Start starts the scheduler
func (s *Service) Start() {
	s.logger.Info("Starting daily question scheduler at %02d:00", s.hour)
	go s.run()
}

// Stop stops the scheduler
func (s *Service) Stop() {
	s.logger.Info("Stopping daily question scheduler")
	close(s.stopChan)
}

func (s *Service) run() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			if now.Hour() != s.hour {
				continue
			}
			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				select {
				case <-s.stopChan:
					cancel()
				case <-ctx.Done():
				}
			}()
			s.RunOnce(ctx, now)
			cancel()
		case <-s.stopChan:
			return
		}
	}
}

func pushedKey(userID int64, date string) string {
	return fmt.Sprintf("pushed:%d:%s", userID, date)
}

// RunOnce pushes today's question to every linked chat that has not got it
// yet. It returns the number of messages sent.
func (s *Service) RunOnce(ctx context.Context, now time.Time) int {
	users, err := s.users.LinkedUsers()
	if err != nil {
		s.logger.Error("Failed to list linked users: %v", err)
		return 0
	}

	date := now.Format("2006-01-02")
	sent := 0
	for _, user := range users {
		if ctx.Err() != nil {
			break
		}

		key := pushedKey(user.ID, date)
		var pushed bool
		if err := s.store.Get(key, &pushed); err == nil && pushed {
			continue
		}

		p, err := s.users.PrincipalFor(user.ID)
		if err != nil {
			s.logger.Error("Failed to load user %d: %v", user.ID, err)
			continue
		}

		q, err := s.questions.Today(ctx, p, now)
		if err != nil {
			s.logger.Error("Failed to get today's question for user %d: %v", user.ID, err)
			continue
		}

		partnerName := ""
		if p.Partner != nil {
			partnerName = p.Partner.Name()
		}
		text := messages.Question(s.questions.View(p, *q), partnerName)
		if _, err := s.sender.SendMessage(user.TelegramChatID, text); err != nil {
			s.logger.Error("Failed to push question to user %d: %v", user.ID, err)
			continue
		}

		if err := s.store.SetWithTTL(key, true, pushedTTL); err != nil {
			s.logger.Warn("Failed to mark question pushed for user %d: %v", user.ID, err)
		}
		sent++
	}

	if sent > 0 {
		s.logger.Info("Pushed the question of %s to %d chats", date, sent)
	}
	return sent
}
