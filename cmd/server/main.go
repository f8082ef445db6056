package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/korjavin/loversspace/pkg/account"
	"github.com/korjavin/loversspace/pkg/config"
	"github.com/korjavin/loversspace/pkg/images"
	"github.com/korjavin/loversspace/pkg/journal"
	"github.com/korjavin/loversspace/pkg/logger"
	"github.com/korjavin/loversspace/pkg/memory"
	"github.com/korjavin/loversspace/pkg/messages"
	"github.com/korjavin/loversspace/pkg/openai"
	"github.com/korjavin/loversspace/pkg/pantry"
	"github.com/korjavin/loversspace/pkg/question"
	"github.com/korjavin/loversspace/pkg/recipe"
	"github.com/korjavin/loversspace/pkg/scheduler"
	"github.com/korjavin/loversspace/pkg/state"
	"github.com/korjavin/loversspace/pkg/stats"
	"github.com/korjavin/loversspace/pkg/storage"
	"github.com/korjavin/loversspace/pkg/telegram"
	"github.com/korjavin/loversspace/pkg/web"
	"github.com/korjavin/loversspace/pkg/wishlist"
)

func main() {
	// Initialize logger
	log := logger.Global
	log.Info("Starting Lovers Space...")

	// Load configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	os.Exit(run(cfg))
}

// run serves until a signal or a server error and returns the exit code.
// Everything it opens is released by deferred calls before it returns.
func run(cfg *config.Config) int {
	log := logger.Global

	// Initialize storage
	store, err := storage.New(cfg.DataDir)
	if err != nil {
		log.Error("Failed to initialize storage: %v", err)
		return 1
	}
	defer store.Close()

	// Start BadgerDB garbage collection
	stopGC := make(chan struct{})
	store.StartGCRoutine(10*time.Minute, stopGC)
	defer close(stopGC)

	imageService, err := images.New(cfg.UploadDir)
	if err != nil {
		log.Error("Failed to initialize image storage: %v", err)
		return 1
	}

	// The AI is optional; without it questions come from the local pool
	var (
		aiClient  *openai.Client
		generator question.Generator
		chatter   messages.Chatter
	)
	if cfg.AIEnabled() {
		aiClient = openai.New(cfg.OpenAIAPIKey, cfg.OpenAIAPIBase, cfg.OpenAIModel)
		generator = aiClient
		chatter = aiClient
	} else {
		log.Warn("OPENAI_API_KEY is not set, daily questions use the fallback pool")
	}

	// Initialize services
	accountService := account.New(store, cfg.SessionTTL)
	recipeService := recipe.New(store, imageService)
	pantryService := pantry.New(store, recipeService)
	questionService := question.New(store, generator, cfg.AITimeout)
	wishlistService := wishlist.New(store)
	statsService := stats.New(recipeService)

	services := web.Services{
		Accounts:  accountService,
		Recipes:   recipeService,
		Pantry:    pantryService,
		Journal:   journal.New(store),
		Memories:  memory.New(store, imageService),
		Wishlist:  wishlistService,
		Questions: questionService,
		Stats:     statsService,
		Images:    imageService,
	}

	// Start the Telegram companion
	botUsername := ""
	if cfg.BotEnabled() {
		bot, err := telegram.New(cfg.BotToken)
		if err != nil {
			log.Error("Failed to initialize Telegram bot: %v", err)
			return 1
		}
		botUsername = bot.Username()

		c := &companion{
			sender:    bot,
			accounts:  accountService,
			pantry:    pantryService,
			questions: questionService,
			wishlist:  wishlistService,
			stats:     statsService,
			messages:  messages.New(chatter, cfg.AITimeout),
			states:    state.New(state.DefaultTTL),
			timeout:   cfg.AITimeout,
			now:       time.Now,
			logger:    logger.New("companion"),
		}
		if aiClient != nil {
			c.ideas = aiClient
		}
		go bot.Start(c.handlers())
		defer bot.Stop()

		sched := scheduler.New(store, accountService, questionService, bot, cfg.QuestionHour)
		sched.Start()
		defer sched.Stop()
	} else {
		log.Warn("BOT_TOKEN is not set, the Telegram companion is disabled")
	}

	server, err := web.New(services, web.Options{
		CookieSecure:   cfg.CookieSecure,
		MaxUploadBytes: cfg.MaxUploadBytes,
		BotUsername:    botUsername,
	})
	if err != nil {
		log.Error("Failed to initialize web server: %v", err)
		return 1
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	exitCode := 0
	select {
	case <-sigChan:
		log.Info("Shutting down...")
	case err := <-serverErr:
		log.Error("HTTP server failed: %v", err)
		exitCode = 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("Failed to shut down HTTP server: %v", err)
	}
	return exitCode
}
