package web

import (
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/korjavin/loversspace/pkg/account"
	"github.com/korjavin/loversspace/pkg/images"
	"github.com/korjavin/loversspace/pkg/journal"
	"github.com/korjavin/loversspace/pkg/logger"
	"github.com/korjavin/loversspace/pkg/memory"
	"github.com/korjavin/loversspace/pkg/pantry"
	"github.com/korjavin/loversspace/pkg/question"
	"github.com/korjavin/loversspace/pkg/recipe"
	"github.com/korjavin/loversspace/pkg/stats"
	"github.com/korjavin/loversspace/pkg/wishlist"
	"github.com/rs/cors"
)

// Services are the domain services the web layer talks to
type Services struct {
	Accounts  *account.Service
	Recipes   *recipe.Service
	Pantry    *pantry.Service
	Journal   *journal.Service
	Memories  *memory.Service
	Wishlist  *wishlist.Service
	Questions *question.Service
	Stats     *stats.Service
	Images    *images.Service
}

// Options tune the HTTP behaviour
type Options struct {
	CookieSecure   bool
	MaxUploadBytes int64
	// BotUsername is shown on the Telegram link page when the bot runs
	BotUsername string
	// Now is the clock, time.Now when nil
	Now func() time.Time
}

// Server serves the web application
type Server struct {
	svc       Services
	opts      Options
	templates map[string]*template.Template
	router    *mux.Router
	logger    *logger.Logger
}

// New builds the server and its routes
func New(svc Services, opts Options) (*Server, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 8 << 20
	}

	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		svc:       svc,
		opts:      opts,
		templates: templates,
		router:    mux.NewRouter(),
		logger:    logger.New("web"),
	}
	s.routes()
	return s, nil
}

// Handler returns the root handler with the middleware chain applied
func (s *Server) Handler() http.Handler {
	return Chain(s.router, WithRequestID, s.withRecover, s.withAccessLog, s.withSession)
}

func (s *Server) routes() {
	r := s.router
	r.NotFoundHandler = http.HandlerFunc(s.notFound)

	static, _ := fs.Sub(staticFS, "static")
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	r.HandleFunc("/sw.js", s.serviceWorker).Methods(http.MethodGet)
	r.HandleFunc("/uploads/{file}", s.requireAuth(s.upload)).Methods(http.MethodGet)

	r.HandleFunc("/register", s.registerForm).Methods(http.MethodGet)
	r.HandleFunc("/register", s.register).Methods(http.MethodPost)
	r.HandleFunc("/login", s.loginForm).Methods(http.MethodGet)
	r.HandleFunc("/login", s.login).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.logout).Methods(http.MethodPost)

	r.HandleFunc("/", s.requireAuth(s.index)).Methods(http.MethodGet)
	r.HandleFunc("/recipes/new", s.requireAuth(s.newRecipeForm)).Methods(http.MethodGet)
	r.HandleFunc("/recipes/new", s.requireAuth(s.createRecipe)).Methods(http.MethodPost)
	r.HandleFunc("/recipes/{id:[0-9]+}", s.requireAuth(s.recipeDetail)).Methods(http.MethodGet)
	r.HandleFunc("/recipes/{id:[0-9]+}/delete", s.requireAuth(s.deleteRecipe)).Methods(http.MethodPost)
	r.HandleFunc("/recipes/{id:[0-9]+}/logs", s.requireAuth(s.addLog)).Methods(http.MethodPost)
	r.HandleFunc("/what-can-i-make", s.requireAuth(s.whatCanIMakeForm)).Methods(http.MethodGet)
	r.HandleFunc("/what-can-i-make", s.requireAuth(s.whatCanIMake)).Methods(http.MethodPost)

	r.HandleFunc("/partner", s.requireAuth(s.partner)).Methods(http.MethodGet)
	r.HandleFunc("/partner/invite", s.requireAuth(s.createInvite)).Methods(http.MethodPost)
	r.HandleFunc("/partner/bind", s.requireAuth(s.bindPartner)).Methods(http.MethodPost)
	r.HandleFunc("/partner/unbind", s.requireAuth(s.unbindPartner)).Methods(http.MethodPost)

	r.HandleFunc("/calendar", s.requireAuth(s.calendar)).Methods(http.MethodGet)
	r.HandleFunc("/calendar", s.requireAuth(s.addJournalEntry)).Methods(http.MethodPost)
	r.HandleFunc("/calendar/{id:[0-9]+}/delete", s.requireAuth(s.deleteJournalEntry)).Methods(http.MethodPost)

	r.HandleFunc("/memories", s.requireAuth(s.memories)).Methods(http.MethodGet)
	r.HandleFunc("/memories", s.requireAuth(s.addMemory)).Methods(http.MethodPost)
	r.HandleFunc("/memories/{id:[0-9]+}/delete", s.requireAuth(s.deleteMemory)).Methods(http.MethodPost)

	r.HandleFunc("/wishlist", s.requireAuth(s.wishlist)).Methods(http.MethodGet)
	r.HandleFunc("/wishlist", s.requireAuth(s.addWish)).Methods(http.MethodPost)
	r.HandleFunc("/wishlist/{id:[0-9]+}/toggle", s.requireAuth(s.toggleWish)).Methods(http.MethodPost)
	r.HandleFunc("/wishlist/{id:[0-9]+}/delete", s.requireAuth(s.deleteWish)).Methods(http.MethodPost)

	r.HandleFunc("/question", s.requireAuth(s.question)).Methods(http.MethodGet)
	r.HandleFunc("/question", s.requireAuth(s.answerQuestion)).Methods(http.MethodPost)
	r.HandleFunc("/question/history", s.requireAuth(s.questionHistory)).Methods(http.MethodGet)

	r.HandleFunc("/telegram/link", s.requireAuth(s.telegramLink)).Methods(http.MethodGet)
	r.HandleFunc("/telegram/link", s.requireAuth(s.createTelegramLink)).Methods(http.MethodPost)

	api := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
	})
	r.Handle("/api/what-can-i-make", api.Handler(http.HandlerFunc(s.requireAuth(s.apiWhatCanIMake)))).
		Methods(http.MethodPost, http.MethodOptions)
}
