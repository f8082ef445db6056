package memory

import (
	"sort"
	"strings"
	"time"

	"github.com/korjavin/loversspace/pkg/account"
	"github.com/korjavin/loversspace/pkg/images"
	"github.com/korjavin/loversspace/pkg/logger"
	"github.com/korjavin/loversspace/pkg/models"
	"github.com/korjavin/loversspace/pkg/storage"
	"github.com/pkg/errors"
)

const dateLayout = "2006-01-02"

var (
	ErrTitleRequired = errors.New("memory title must not be empty")
	ErrImageRequired = errors.New("please choose a photo")
	ErrInvalidDate   = errors.New("date must look like 2006-01-02")
	ErrNotFound      = errors.New("memory not found")
)

// Service manages the shared photo album
type Service struct {
	store  *storage.Store
	images *images.Service
	logger *logger.Logger
}

// New creates a new memory service
func New(store *storage.Store, imageService *images.Service) *Service {
	return &Service{
		store:  store,
		images: imageService,
		logger: logger.New("memory"),
	}
}

func memoryKey(id int64) string {
	return storage.Key("memory", id)
}

// Add stores a photo with its title. An empty date means today.
func (s *Service) Add(p account.Principal, title, description, date string, image *images.Upload) (*models.Memory, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if image == nil {
		return nil, ErrImageRequired
	}

	date = strings.TrimSpace(date)
	if date == "" {
		date = time.Now().Format(dateLayout)
	} else if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, ErrInvalidDate
	}

	imageFile, err := s.images.Save(*image, "")
	if err != nil {
		return nil, err
	}

	memory := &models.Memory{
		OwnerID:     p.ID(),
		Title:       title,
		Description: strings.TrimSpace(description),
		Date:        date,
		ImageFile:   imageFile,
		CreatedAt:   time.Now(),
	}

	err = s.store.Update(func(tx *storage.Tx) error {
		var err error
		memory.ID, err = tx.NextID("memory")
		if err != nil {
			return err
		}
		return tx.Set(memoryKey(memory.ID), memory)
	})
	if err != nil {
		if rmErr := s.images.Remove(imageFile); rmErr != nil {
			s.logger.Warn("Failed to remove orphaned image %s: %v", imageFile, rmErr)
		}
		return nil, errors.Wrap(err, "failed to save memory")
	}

	s.logger.Info("User %d added memory %d %q", p.ID(), memory.ID, memory.Title)
	return memory, nil
}

// List returns the couple's memories, newest date first
func (s *Service) List(p account.Principal) ([]models.Memory, error) {
	keys, err := s.store.List("memory:")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list memories")
	}

	memories := make([]models.Memory, 0, len(keys))
	for _, key := range keys {
		var memory models.Memory
		if err := s.store.Get(key, &memory); err != nil {
			s.logger.Error("Failed to get memory %s: %v", key, err)
			continue
		}
		if p.Owns(memory.OwnerID) {
			memories = append(memories, memory)
		}
	}

	sort.SliceStable(memories, func(i, j int) bool {
		if memories[i].Date != memories[j].Date {
			return memories[i].Date > memories[j].Date
		}
		return memories[i].ID > memories[j].ID
	})
	return memories, nil
}

// OwnsImage reports whether name is the photo of one of the couple's memories
func (s *Service) OwnsImage(p account.Principal, name string) (bool, error) {
	memories, err := s.List(p)
	if err != nil {
		return false, err
	}
	for _, memory := range memories {
		if memory.ImageFile == name {
			return true, nil
		}
	}
	return false, nil
}

// Delete removes a memory and then its photo
func (s *Service) Delete(p account.Principal, id int64) error {
	var memory models.Memory
	err := s.store.Update(func(tx *storage.Tx) error {
		if err := tx.Get(memoryKey(id), &memory); err != nil {
			if storage.IsNotFound(err) {
				return ErrNotFound
			}
			return err
		}
		if !p.Owns(memory.OwnerID) {
			return ErrNotFound
		}
		return tx.Delete(memoryKey(id))
	})
	if err != nil {
		return err
	}

	if err := s.images.Remove(memory.ImageFile); err != nil {
		s.logger.Warn("Failed to remove image of memory %d: %v", id, err)
	}
	return nil
}
