package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RequestLogger logs one line per request
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.String("ip", r.RemoteAddr),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Duration("latency", time.Since(start)),
			)
		})
	}
}

// NewRouter wires every route of the front-end and the JSON API
func NewRouter(h *Handler, corsOrigin string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)

	// Pages
	r.Get("/", h.Index)
	r.Post("/login", h.LoginPage)
	r.Post("/logout", h.LogoutPage)
	r.Group(func(r chi.Router) {
		r.Use(h.RequirePageSession)
		r.Get("/account", h.AccountPage)
		r.Post("/account", h.AccountPage)
		r.Get("/stocks", h.StocksPage)
		r.Post("/stocks", h.StocksPage)
		r.Get("/trade", h.TradePage)
		r.Post("/trade", h.TradePage)
		r.Get("/history", h.HistoryPage)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.JWTAuthMiddleware)
		r.Get("/ws/stocks", h.StocksSocket)
	})

	// JSON API
	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{corsOrigin},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: corsOrigin != "*",
			MaxAge:           300,
		}))
		r.Post("/login", h.Login)
		r.Group(func(r chi.Router) {
			r.Use(h.JWTAuthMiddleware)
			r.Post("/logout", h.Logout)
			r.Post("/transactions", h.Transact)
			r.Get("/history", h.History)
		})
	})

	return r
}

// OriginChecker allows websocket upgrades from corsOrigin, or from anywhere
// when it is "*". Same-origin requests are always allowed.
func OriginChecker(corsOrigin string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || corsOrigin == "*" || origin == corsOrigin {
			return true
		}
		return origin == "http://"+r.Host || origin == "https://"+r.Host
	}
}
