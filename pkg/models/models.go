package models

import (
	"time"
)

// DefaultImage is the image file shown for recipes without an upload
const DefaultImage = "default.jpg"

// User represents an account. Two users may be bound as partners.
type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	DisplayName    string    `json:"display_name"`
	PasswordHash   string    `json:"password_hash"`
	PartnerID      *int64    `json:"partner_id,omitempty"`
	TelegramChatID int64     `json:"telegram_chat_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// HasPartner reports whether the user is bound to a partner
func (u User) HasPartner() bool {
	return u.PartnerID != nil
}

// Name returns the display name, falling back to the username
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// Session represents a logged-in browser session
type Session struct {
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Recipe represents a stored recipe. Ingredients, Seasonings and Logs are
// separate records and are only filled in when loaded together.
type Recipe struct {
	ID           int64        `json:"id"`
	OwnerID      int64        `json:"owner_id"`
	Name         string       `json:"name"`
	Instructions string       `json:"instructions"`
	ImageFile    string       `json:"image_file"`
	CreatedAt    time.Time    `json:"created_at"`
	Ingredients  []Ingredient `json:"-"`
	Seasonings   []Seasoning  `json:"-"`
	Logs         []CookingLog `json:"-"`
}

// Ingredient is a required ingredient of a recipe
type Ingredient struct {
	RecipeID int64  `json:"recipe_id"`
	Position int64  `json:"position"`
	Name     string `json:"name"`
	Quantity string `json:"quantity,omitempty"`
}

// Seasoning has the same shape as an ingredient but is never used for matching
type Seasoning struct {
	RecipeID int64  `json:"recipe_id"`
	Position int64  `json:"position"`
	Name     string `json:"name"`
	Quantity string `json:"quantity,omitempty"`
}

// CookingLog records one time a recipe was cooked
type CookingLog struct {
	ID        int64     `json:"id"`
	RecipeID  int64     `json:"recipe_id"`
	AuthorID  int64     `json:"author_id"`
	CookedAt  time.Time `json:"cooked_at"`
	TimeTaken string    `json:"time_taken,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

// JournalEntry is a shared calendar entry for a day
type JournalEntry struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	Mood      string    `json:"mood,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Memory is a photo in the shared album
type Memory struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Date        string    `json:"date"` // YYYY-MM-DD
	ImageFile   string    `json:"image_file"`
	CreatedAt   time.Time `json:"created_at"`
}

// WishlistItem is an entry on the shared wishlist
type WishlistItem struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Title     string    `json:"title"`
	Note      string    `json:"note,omitempty"`
	Done      bool      `json:"done"`
	DoneAt    time.Time `json:"done_at,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Question sources
const (
	SourceAI       = "ai"
	SourceFallback = "fallback"
)

// DailyQuestion is the question of the day for a couple
type DailyQuestion struct {
	CoupleKey string            `json:"couple_key"`
	Date      string            `json:"date"` // YYYY-MM-DD
	Text      string            `json:"text"`
	Source    string            `json:"source"`
	Answers   map[string]Answer `json:"answers"` // UserID -> Answer
	CreatedAt time.Time         `json:"created_at"`
}

// Answer is one partner's answer to a daily question
type Answer struct {
	UserID     int64     `json:"user_id"`
	Text       string    `json:"text"`
	AnsweredAt time.Time `json:"answered_at"`
}

// PantrySnapshot remembers the last pantry text a user searched with
type PantrySnapshot struct {
	UserID    int64     `json:"user_id"`
	Input     string    `json:"input"`
	UpdatedAt time.Time `json:"updated_at"`
}
