package messages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/korjavin/loversspace/pkg/logger"
	"github.com/korjavin/loversspace/pkg/models"
	"github.com/korjavin/loversspace/pkg/openai"
	"github.com/korjavin/loversspace/pkg/pantry"
	"github.com/korjavin/loversspace/pkg/question"
	"github.com/korjavin/loversspace/pkg/stats"
)

// Chatter writes free-form bot messages
type Chatter interface {
	GenerateChatMessage(ctx context.Context, intent string, contextData map[string]interface{}) (string, error)
}

// Service provides message generation functionality
type Service struct {
	chatter Chatter
	timeout time.Duration
	logger  *logger.Logger
}

// New creates a new message service. chatter may be nil, then every
// message uses its static text.
func New(chatter Chatter, timeout time.Duration) *Service {
	return &Service{
		chatter: chatter,
		timeout: timeout,
		logger:  logger.New("messages"),
	}
}

func (s *Service) generate(ctx context.Context, intent string, contextData map[string]interface{}, fallback string) string {
	if s.chatter == nil {
		return fallback
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	msg, err := s.chatter.GenerateChatMessage(ctx, intent, contextData)
	if err != nil || strings.TrimSpace(msg) == "" {
		s.logger.Error("Failed to generate %s message: %v", intent, err)
		return fallback
	}
	return msg
}

// Welcome greets a chat and explains how to link it
func (s *Service) Welcome(ctx context.Context, name string) string {
	msg := s.generate(ctx, "welcome", map[string]interface{}{
		"purpose": "Companion of a couple's shared home app: recipes, pantry matching, a daily question and a wishlist",
		"name":    name,
	}, "👋 Welcome to Lovers Space! I keep you company in your little shared home.")
	return msg + "\n\n" + Help()
}

// Help lists the bot commands
func Help() string {
	return strings.Join([]string{
		"/link CODE - connect this chat to your account (get the code on the website)",
		"/cook egg, tomato - what can we make with what we have?",
		"/question - today's question",
		"/answer TEXT - answer today's question",
		"/wishlist - our wishlist",
		"/stats - our kitchen in numbers",
	}, "\n")
}

// NotLinked tells an unknown chat how to link
func NotLinked() string {
	return "🔗 This chat is not linked yet. Open the website, go to Telegram link and send me /link CODE."
}

// Linked confirms a chat link
func Linked(user models.User) string {
	return fmt.Sprintf("💞 Hi %s, this chat is now linked to your account.", user.Name())
}

// Error is the generic failure reply
func Error() string {
	return "😢 Sorry, something went wrong. Please try again later."
}

// AskPantry asks for the pantry after a bare /cook
func AskPantry() string {
	return "🧺 What do we have? Send me the ingredients separated by commas or spaces."
}

// CookResult formats a pantry match
func CookResult(result *pantry.Result) string {
	if len(result.PerfectMatches) == 0 && len(result.PartialMatches) == 0 {
		return "🤷 None of our recipes uses these ingredients."
	}

	var b strings.Builder
	if len(result.PerfectMatches) > 0 {
		b.WriteString("✅ We can make:\n")
		for _, recipe := range result.PerfectMatches {
			fmt.Fprintf(&b, "• %s\n", recipe.Name)
		}
	}
	if len(result.PartialMatches) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("🛒 Almost there:\n")
		for _, match := range result.PartialMatches {
			fmt.Fprintf(&b, "• %s (missing: %s)\n", match.Recipe.Name, strings.Join(match.Missing, ", "))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// DishIdeas formats AI dish ideas shown when no recipe matches
func DishIdeas(ideas []openai.DishIdea) string {
	if len(ideas) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("💡 Some ideas to try:\n")
	for _, idea := range ideas {
		fmt.Fprintf(&b, "• %s", idea.Name)
		if idea.Description != "" {
			fmt.Fprintf(&b, " - %s", idea.Description)
		}
		if len(idea.IngredientsMissing) > 0 {
			fmt.Fprintf(&b, " (need: %s)", strings.Join(idea.IngredientsMissing, ", "))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Question formats a daily question for one partner
func Question(v question.View, partnerName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💌 Question of the day:\n%s\n", v.Question.Text)

	if v.Mine != nil {
		fmt.Fprintf(&b, "\nYou: %s", v.Mine.Text)
	} else {
		b.WriteString("\nAnswer with /answer TEXT")
	}

	if v.HasPartner {
		switch {
		case v.Partner != nil:
			fmt.Fprintf(&b, "\n%s: %s", partnerName, v.Partner.Text)
		case v.PartnerAnswered:
			fmt.Fprintf(&b, "\n%s has answered. Answer to see it 👀", partnerName)
		default:
			fmt.Fprintf(&b, "\n%s has not answered yet.", partnerName)
		}
	}
	return b.String()
}

// Wishlist formats the wishlist
func Wishlist(items []models.WishlistItem) string {
	if len(items) == 0 {
		return "🌠 Our wishlist is empty. Add wishes on the website."
	}

	var b strings.Builder
	b.WriteString("🌠 Our wishlist (tap to tick off):\n")
	for _, item := range items {
		mark := "⬜"
		if item.Done {
			mark = "✅"
		}
		fmt.Fprintf(&b, "%s %s", mark, item.Title)
		if item.Done && !item.DoneAt.IsZero() {
			fmt.Fprintf(&b, " (%s)", humanize.Time(item.DoneAt))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Stats formats the cooking statistics
func Stats(c *stats.Cooking) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 %s recipes, cooked %s times.", humanize.Comma(int64(c.RecipeCount)), humanize.Comma(int64(c.LogCount)))

	if c.LastCooked != nil {
		fmt.Fprintf(&b, "\nLast cooked: %s, %s.", c.LastCooked.Name, humanize.Time(c.LastCookedAt))
	}
	for i, rc := range c.MostCooked {
		if i == 0 {
			b.WriteString("\n\n🏆 Favourites:")
		}
		fmt.Fprintf(&b, "\n%s %s (%d×)", humanize.Ordinal(i+1), rc.Recipe.Name, rc.Count)
	}
	for i, cc := range c.ByCook {
		if i == 0 {
			b.WriteString("\n\n👩‍🍳 Cooks:")
		}
		fmt.Fprintf(&b, "\n%s: %d", cc.Name, cc.Count)
	}
	return b.String()
}
