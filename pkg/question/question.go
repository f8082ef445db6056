package question

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/korjavin/loversspace/pkg/account"
	"github.com/korjavin/loversspace/pkg/logger"
	"github.com/korjavin/loversspace/pkg/models"
	"github.com/korjavin/loversspace/pkg/storage"
	"github.com/pkg/errors"
)

const (
	dateLayout = "2006-01-02"
	// recentCount is how many earlier questions the generator is asked not to repeat
	recentCount = 7
)

var (
	ErrAnswerRequired = errors.New("answer must not be empty")
	ErrNoQuestion     = errors.New("there is no question for today yet")
)

// Generator produces a new daily question
type Generator interface {
	GenerateDailyQuestion(ctx context.Context, recent []string) (string, error)
}

// View is a daily question as seen by one partner
type View struct {
	Question models.DailyQuestion
	Mine     *models.Answer
	// Partner is only set once the viewer has answered
	Partner         *models.Answer
	PartnerAnswered bool
	HasPartner      bool
}

// Service provides the daily question flow
type Service struct {
	store     *storage.Store
	generator Generator
	timeout   time.Duration
	pool      []string
	logger    *logger.Logger
}

// New creates a new question service. generator may be nil, in which case
// questions always come from the fallback pool.
func New(store *storage.Store, generator Generator, timeout time.Duration) *Service {
	return &Service{
		store:     store,
		generator: generator,
		timeout:   timeout,
		pool:      fallbackPool,
		logger:    logger.New("question"),
	}
}

func questionKey(coupleKey, date string) string {
	return fmt.Sprintf("question:%s:%s", coupleKey, date)
}

func questionPrefix(coupleKey string) string {
	return fmt.Sprintf("question:%s:", coupleKey)
}

// Today returns the couple's question for the local date of now, creating it
// on first access
func (s *Service) Today(ctx context.Context, p account.Principal, now time.Time) (*models.DailyQuestion, error) {
	date := now.Format(dateLayout)
	key := questionKey(p.CoupleKey(), date)

	var q models.DailyQuestion
	err := s.store.Get(key, &q)
	if err == nil {
		return &q, nil
	}
	if !storage.IsNotFound(err) {
		return nil, err
	}

	text, source := s.generate(ctx, p, date)
	created := models.DailyQuestion{
		CoupleKey: p.CoupleKey(),
		Date:      date,
		Text:      text,
		Source:    source,
		Answers:   make(map[string]models.Answer),
		CreatedAt: now,
	}

	err = s.store.Update(func(tx *storage.Tx) error {
		// the partner may have created it while we were generating
		if err := tx.Get(key, &q); err == nil {
			return nil
		} else if !storage.IsNotFound(err) {
			return err
		}
		q = created
		return tx.Set(key, q)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to save daily question")
	}

	s.logger.Info("Daily question for %s on %s from %s", q.CoupleKey, q.Date, q.Source)
	return &q, nil
}

// generate makes exactly one generator call bounded by the timeout and falls
// back to the pool on any failure
func (s *Service) generate(ctx context.Context, p account.Principal, date string) (string, string) {
	if s.generator == nil {
		return s.Fallback(date), models.SourceFallback
	}

	recent, err := s.recentTexts(p.CoupleKey(), recentCount)
	if err != nil {
		s.logger.Warn("Failed to load recent questions: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.generator.GenerateDailyQuestion(ctx, recent)
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		s.logger.Warn("AI question unavailable, using fallback: %v", err)
		return s.Fallback(date), models.SourceFallback
	}
	return text, models.SourceAI
}

// Fallback picks a question from the local pool. The same date always gives
// the same question.
func (s *Service) Fallback(date string) string {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return s.pool[0]
	}
	days := day.Unix() / int64(24*time.Hour/time.Second)
	idx := int(days % int64(len(s.pool)))
	if idx < 0 {
		idx += len(s.pool)
	}
	return s.pool[idx]
}

// Answer stores or replaces the user's answer to today's question
func (s *Service) Answer(p account.Principal, now time.Time, text string) (*models.DailyQuestion, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrAnswerRequired
	}

	key := questionKey(p.CoupleKey(), now.Format(dateLayout))
	var q models.DailyQuestion
	err := s.store.Update(func(tx *storage.Tx) error {
		if err := tx.Get(key, &q); err != nil {
			if storage.IsNotFound(err) {
				return ErrNoQuestion
			}
			return err
		}
		if q.Answers == nil {
			q.Answers = make(map[string]models.Answer)
		}
		q.Answers[userKey(p.ID())] = models.Answer{
			UserID:     p.ID(),
			Text:       text,
			AnsweredAt: now,
		}
		return tx.Set(key, q)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("User %d answered the question of %s", p.ID(), q.Date)
	return &q, nil
}

func userKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// View returns q as seen by p. The partner's answer stays hidden until p has answered.
func (s *Service) View(p account.Principal, q models.DailyQuestion) View {
	v := View{Question: q, HasPartner: p.Partner != nil}

	if a, ok := q.Answers[userKey(p.ID())]; ok {
		v.Mine = &a
	}
	if p.Partner != nil {
		if a, ok := q.Answers[userKey(p.Partner.ID)]; ok {
			v.PartnerAnswered = true
			if v.Mine != nil {
				v.Partner = &a
			}
		}
	}
	return v
}

// History returns the couple's questions, newest first
func (s *Service) History(p account.Principal, limit int) ([]models.DailyQuestion, error) {
	keys, err := s.store.List(questionPrefix(p.CoupleKey()))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list questions")
	}

	var questions []models.DailyQuestion
	for i := len(keys) - 1; i >= 0; i-- {
		if limit > 0 && len(questions) >= limit {
			break
		}
		var q models.DailyQuestion
		if err := s.store.Get(keys[i], &q); err != nil {
			s.logger.Error("Failed to get question %s: %v", keys[i], err)
			continue
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (s *Service) recentTexts(coupleKey string, n int) ([]string, error) {
	keys, err := s.store.List(questionPrefix(coupleKey))
	if err != nil {
		return nil, err
	}

	var texts []string
	for i := len(keys) - 1; i >= 0 && len(texts) < n; i-- {
		var q models.DailyQuestion
		if err := s.store.Get(keys[i], &q); err != nil {
			continue
		}
		texts = append(texts, q.Text)
	}
	return texts, nil
}
