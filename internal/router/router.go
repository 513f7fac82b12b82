package router

import (
	"net/http"
	"strings"
	"time"

	"bookstore/internal/config"
	"bookstore/internal/handlers"
	"bookstore/internal/metrics"
	"bookstore/internal/middleware"
	"bookstore/internal/models"
	"bookstore/internal/services"
	"bookstore/internal/storage"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const slowRequest = time.Second

// Catalog groups what the catalog service routes need.
type Catalog struct {
	Books   *services.BookService
	Auth    *services.AuthService
	Store   storage.ArtifactStore
	Metrics *metrics.Metrics
}

type Accounts struct {
	Users   *services.UserService
	Auth    *services.AuthService
	Metrics *metrics.Metrics
}

func SetupCatalogRouter(cfg *config.Config, deps Catalog, logger zerolog.Logger) http.Handler {
	bookHandler := handlers.NewBookHandler(deps.Books, cfg.Storage.MaxUploadBytes, logger)

	r := newRouter(cfg, deps.Metrics, logger)
	r.HandleFunc("/", handlers.Health("Catalog")).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/books", bookHandler.GetBooks).Methods("GET")
	api.Handle("/books/buy", requireJSON(bookHandler.BuyBooks)).Methods("POST")

	// Guarded per route so method mismatches under /books stay 405.
	adminOnly := func(h http.Handler) http.Handler { return h }
	if cfg.Auth.RequireAdminToken {
		authenticate := middleware.Authentication(deps.Auth, logger)
		requireAdmin := middleware.RequireRole(string(models.RoleAdmin))
		adminOnly = func(h http.Handler) http.Handler { return authenticate(requireAdmin(h)) }
	}
	api.Handle("/books/add", adminOnly(http.HandlerFunc(bookHandler.AddBook))).Methods("POST")
	api.Handle("/books/remove", adminOnly(requireJSON(bookHandler.RemoveBook))).Methods("DELETE")

	prefix := "/" + strings.Trim(cfg.Storage.URLPrefix, "/")
	r.PathPrefix(prefix + "/").
		Handler(http.StripPrefix(prefix, deps.Store.Handler())).
		Methods("GET", "HEAD")

	return middleware.CORS(cfg.Origins)(r)
}

func SetupAccountsRouter(cfg *config.Config, deps Accounts, logger zerolog.Logger) http.Handler {
	userHandler := handlers.NewUserHandler(deps.Users, logger)
	authHandler := handlers.NewAuthHandler(deps.Users, deps.Auth, logger)

	r := newRouter(cfg, deps.Metrics, logger)
	r.HandleFunc("/", handlers.Health("User")).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/users", userHandler.GetUsers).Methods("GET")
	api.Handle("/register", requireJSON(userHandler.Register)).Methods("POST")
	api.Handle("/login", requireJSON(authHandler.Login)).Methods("POST")
	api.Handle("/admin/login", requireJSON(authHandler.AdminLogin)).Methods("POST")

	return middleware.CORS(cfg.Origins)(r)
}

// newRouter builds a router with the middleware chain and metrics endpoint
// both services share.
func newRouter(cfg *config.Config, m *metrics.Metrics, logger zerolog.Logger) *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(handlers.NotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(handlers.MethodNotAllowed)

	limit := rate.Limit(cfg.RateRPS)
	if cfg.RateRPS <= 0 {
		limit = rate.Inf
	}
	rateLimiter := middleware.NewRateLimiter(limit, cfg.Burst)

	r.Use(middleware.ErrorHandling(logger))
	r.Use(middleware.PerformanceMonitoring(slowRequest, logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.SecurityHeaders())
	if m != nil {
		r.Use(m.Middleware())
		r.Handle("/metrics", m.Handler()).Methods("GET")
	}
	r.Use(rateLimiter.Middleware())

	return r
}

func requireJSON(h http.HandlerFunc) http.Handler {
	return middleware.RequireJSON()(h)
}
