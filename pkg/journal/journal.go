package journal

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/korjavin/loversspace/pkg/account"
	"github.com/korjavin/loversspace/pkg/logger"
	"github.com/korjavin/loversspace/pkg/models"
	"github.com/korjavin/loversspace/pkg/storage"
	"github.com/pkg/errors"
)

// DateLayout is the format of journal dates
const DateLayout = "2006-01-02"

var (
	ErrInvalidDate   = errors.New("date must look like 2006-01-02")
	ErrTitleRequired = errors.New("entry title must not be empty")
	ErrNotFound      = errors.New("journal entry not found")
)

// Day groups the entries of one calendar day
type Day struct {
	Date    string
	Entries []models.JournalEntry
}

// Service provides the shared calendar journal
type Service struct {
	store  *storage.Store
	logger *logger.Logger
}

// New creates a new journal service
func New(store *storage.Store) *Service {
	return &Service{
		store:  store,
		logger: logger.New("journal"),
	}
}

func entryKey(id int64) string {
	return storage.Key("journal", id)
}

// Add writes an entry for the given day
func (s *Service) Add(p account.Principal, date, title, content, mood string) (*models.JournalEntry, error) {
	day, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return nil, ErrInvalidDate
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	entry := &models.JournalEntry{
		OwnerID:   p.ID(),
		Date:      day.Format(DateLayout),
		Title:     title,
		Content:   strings.TrimSpace(content),
		Mood:      strings.TrimSpace(mood),
		CreatedAt: time.Now(),
	}

	err = s.store.Update(func(tx *storage.Tx) error {
		var err error
		entry.ID, err = tx.NextID("journal")
		if err != nil {
			return err
		}
		return tx.Set(entryKey(entry.ID), entry)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to save journal entry")
	}

	s.logger.Info("User %d added journal entry %d for %s", p.ID(), entry.ID, entry.Date)
	return entry, nil
}

// Month returns the couple's entries of a month grouped by day.
// Days are ascending and entries within a day keep id order.
func (s *Service) Month(p account.Principal, year int, month time.Month) ([]Day, error) {
	prefix := fmt.Sprintf("%04d-%02d-", year, int(month))

	keys, err := s.store.List("journal:")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list journal entries")
	}

	byDate := make(map[string][]models.JournalEntry)
	for _, key := range keys {
		var entry models.JournalEntry
		if err := s.store.Get(key, &entry); err != nil {
			s.logger.Error("Failed to get journal entry %s: %v", key, err)
			continue
		}
		if !p.Owns(entry.OwnerID) || !strings.HasPrefix(entry.Date, prefix) {
			continue
		}
		byDate[entry.Date] = append(byDate[entry.Date], entry)
	}

	days := make([]Day, 0, len(byDate))
	for date, entries := range byDate {
		days = append(days, Day{Date: date, Entries: entries})
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date < days[j].Date
	})
	return days, nil
}

// Delete removes an entry
func (s *Service) Delete(p account.Principal, id int64) error {
	return s.store.Update(func(tx *storage.Tx) error {
		var entry models.JournalEntry
		if err := tx.Get(entryKey(id), &entry); err != nil {
			if storage.IsNotFound(err) {
				return ErrNotFound
			}
			return err
		}
		if !p.Owns(entry.OwnerID) {
			return ErrNotFound
		}
		return tx.Delete(entryKey(id))
	})
}
