package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/baharkarakas/shop-backend/internal/api/handlers"
	"github.com/baharkarakas/shop-backend/internal/auth"
	"github.com/baharkarakas/shop-backend/internal/config"
	"github.com/baharkarakas/shop-backend/internal/metrics"
	"github.com/baharkarakas/shop-backend/internal/middleware"
	"github.com/baharkarakas/shop-backend/internal/models"
	"github.com/baharkarakas/shop-backend/internal/services"
	"github.com/baharkarakas/shop-backend/internal/telemetry"
)

type RouterDeps struct {
	Cfg      config.Config
	Tokens   *auth.TokenManager
	Auth     *services.AuthService
	Accounts *services.AccountService
	Catalog  *services.CatalogService
	Orders   *services.OrderService
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.Cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	authMW := middleware.NewAuthMiddleware(d.Tokens)
	ah := handlers.NewAuthHandler(d.Auth)
	uh := handlers.NewUserHandler(d.Accounts)
	ph := handlers.NewProductHandler(d.Catalog)
	oh := handlers.NewOrderHandler(d.Orders)

	// ---------- auth ----------
	r.Post("/auth/signup", ah.Signup)
	r.Post("/auth/signin", ah.Signin)
	r.With(authMW.Auth).Get("/auth/me", ah.Me)

	// ---------- users ----------
	r.Route("/users/{id}", func(r chi.Router) {
		r.Use(authMW.Auth)
		r.Get("/", uh.Get)
		r.Put("/", uh.Update)
		r.Put("/basket", uh.SaveBasket)
	})

	// ---------- products ----------
	r.Route("/products", func(r chi.Router) {
		r.Get("/", ph.List)
		r.Get("/featured", ph.Featured)
		r.Get("/recommended", ph.Recommended)
		r.Get("/search", ph.Search)
		r.Get("/{id}", ph.Get)

		r.Group(func(r chi.Router) {
			r.Use(authMW.Auth, middleware.RequireRole(models.RoleAdmin))
			r.Post("/", ph.Create)
			r.Put("/{id}", ph.Update)
			r.Delete("/{id}", ph.Delete)
		})
	})

	// ---------- orders ----------
	r.Route("/orders", func(r chi.Router) {
		r.Use(authMW.Auth)
		r.Post("/", oh.Create)
		r.Get("/", oh.List)
	})

	return telemetry.Handler(r, "shop-api")
}
