package wishlist

import (
	"sort"
	"strings"
	"time"

	"github.com/korjavin/loversspace/pkg/account"
	"github.com/korjavin/loversspace/pkg/logger"
	"github.com/korjavin/loversspace/pkg/models"
	"github.com/korjavin/loversspace/pkg/storage"
	"github.com/pkg/errors"
)

var (
	ErrTitleRequired = errors.New("wish title must not be empty")
	ErrNotFound      = errors.New("wish not found")
)

// Service provides functionality for managing the shared wishlist
type Service struct {
	store  *storage.Store
	logger *logger.Logger
}

// New creates a new wishlist service
func New(store *storage.Store) *Service {
	return &Service{
		store:  store,
		logger: logger.New("wishlist"),
	}
}

func itemKey(id int64) string {
	return storage.Key("wish", id)
}

// Add adds a new wish
func (s *Service) Add(p account.Principal, title, note string) (*models.WishlistItem, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	item := &models.WishlistItem{
		OwnerID:   p.ID(),
		Title:     title,
		Note:      strings.TrimSpace(note),
		CreatedAt: time.Now(),
	}

	err := s.store.Update(func(tx *storage.Tx) error {
		var err error
		item.ID, err = tx.NextID("wish")
		if err != nil {
			return err
		}
		return tx.Set(itemKey(item.ID), item)
	})
	if err != nil {
		s.logger.Error("Failed to save wish: %v", err)
		return nil, errors.Wrap(err, "failed to save wish")
	}

	s.logger.Info("User %d added wish %d %q", p.ID(), item.ID, item.Title)
	return item, nil
}

// List returns the couple's wishes: open ones first, then done ones, each in id order
func (s *Service) List(p account.Principal) ([]models.WishlistItem, error) {
	keys, err := s.store.List("wish:")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list wishes")
	}

	items := make([]models.WishlistItem, 0, len(keys))
	for _, key := range keys {
		var item models.WishlistItem
		if err := s.store.Get(key, &item); err != nil {
			s.logger.Error("Failed to get wish %s: %v", key, err)
			continue
		}
		if p.Owns(item.OwnerID) {
			items = append(items, item)
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return !items[i].Done && items[j].Done
	})
	return items, nil
}

// Toggle flips the done flag of a wish
func (s *Service) Toggle(p account.Principal, id int64) (*models.WishlistItem, error) {
	var item models.WishlistItem
	err := s.store.Update(func(tx *storage.Tx) error {
		if err := getOwned(tx, p, id, &item); err != nil {
			return err
		}
		item.Done = !item.Done
		if item.Done {
			item.DoneAt = time.Now()
		} else {
			item.DoneAt = time.Time{}
		}
		return tx.Set(itemKey(id), item)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("User %d marked wish %d done=%t", p.ID(), id, item.Done)
	return &item, nil
}

// Delete deletes a wish
func (s *Service) Delete(p account.Principal, id int64) error {
	return s.store.Update(func(tx *storage.Tx) error {
		var item models.WishlistItem
		if err := getOwned(tx, p, id, &item); err != nil {
			return err
		}
		return tx.Delete(itemKey(id))
	})
}

func getOwned(tx *storage.Tx, p account.Principal, id int64, item *models.WishlistItem) error {
	if err := tx.Get(itemKey(id), item); err != nil {
		if storage.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	if !p.Owns(item.OwnerID) {
		return ErrNotFound
	}
	return nil
}
