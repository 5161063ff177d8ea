package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xtrntr/sharktank/internal/auth"
	"github.com/xtrntr/sharktank/internal/desk"
	"github.com/xtrntr/sharktank/internal/models"
	"github.com/xtrntr/sharktank/internal/view"
	"github.com/xtrntr/sharktank/internal/webhook"
)

const SessionCookie = "sharktank_session"

type ctxKey int

const sessionKey ctxKey = iota

// Handler contains dependencies for HTTP handlers
type Handler struct {
	AuthService   *auth.AuthService
	Desk          *desk.Desk
	Pages         *Pages
	Feed          *StocksFeed
	Logger        *zap.Logger
	CookieSecure  bool
	StocksRefresh time.Duration
}

// NewHandler creates a new handler
func NewHandler(authService *auth.AuthService, d *desk.Desk, logger *zap.Logger) (*Handler, error) {
	pages, err := NewPages()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		AuthService:   authService,
		Desk:          d,
		Pages:         pages,
		Feed:          NewStocksFeed(nil),
		Logger:        logger,
		StocksRefresh: 10 * time.Second,
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// errorStatus maps a dispatch error to an HTTP status and a message fit for
// the player.
func errorStatus(err error) (int, string) {
	var verr *models.ValidationError
	var rerr *webhook.ResponseError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Message
	case errors.As(err, &rerr):
		if rerr.Status >= 200 && rerr.Status < 300 {
			return http.StatusUnprocessableEntity, rerr.Message
		}
		return http.StatusBadGateway, rerr.Message
	case errors.Is(err, webhook.ErrUnavailable):
		return http.StatusServiceUnavailable, webhook.ErrUnavailable.Error()
	case errors.Is(err, webhook.ErrInvalidResponse):
		return http.StatusBadGateway, webhook.ErrInvalidResponse.Error()
	}
	return http.StatusInternalServerError, "An unknown error occurred."
}

// Login handles player login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID int    `json:"player_id"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, sess, err := h.AuthService.Login(r.Context(), req.PlayerID, req.Password)
	if err != nil {
		status, msg := loginStatus(err)
		h.Logger.Info("login rejected", zap.Int("player_id", req.PlayerID), zap.Error(err))
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"player_id":  sess.PlayerID,
		"expires_at": sess.ExpiresAt.UTC(),
	})
}

// loginStatus treats any rejection by the service as bad credentials unless
// the service itself failed.
func loginStatus(err error) (int, string) {
	var rerr *webhook.ResponseError
	if errors.As(err, &rerr) && rerr.Status < 500 {
		return http.StatusUnauthorized, rerr.Message
	}
	return errorStatus(err)
}

// Logout ends the caller's session
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := tokenFromRequest(r); token != "" {
		h.AuthService.Logout(token)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func (h *Handler) sessionFromRequest(r *http.Request) (*auth.Session, bool) {
	token := tokenFromRequest(r)
	if token == "" {
		return nil, false
	}
	sess, err := h.AuthService.SessionFromToken(token)
	if err != nil {
		return nil, false
	}
	return sess, true
}

// JWTAuthMiddleware verifies the bearer token or session cookie
func (h *Handler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tokenFromRequest(r) == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}
		sess, ok := h.sessionFromRequest(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), sess)))
	})
}

func withSession(ctx context.Context, sess *auth.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// SessionFromContext returns the session stored by the auth middlewares
func SessionFromContext(ctx context.Context) (*auth.Session, bool) {
	sess, ok := ctx.Value(sessionKey).(*auth.Session)
	return sess, ok
}

// Transact dispatches one transaction for the session's player
func (h *Handler) Transact(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		TransactionType string `json:"transactionType"`
		Symbol          string `json:"symbol"`
		Quantity        int    `json:"quantity"`
		Simple          bool   `json:"simple"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	ttype, ok := models.ParseTransactionType(req.TransactionType)
	if !ok || ttype == models.TransactionLogin {
		writeError(w, http.StatusBadRequest, "transactionType must be one of buy, sell, displayAccount, getStocks")
		return
	}

	res, err := h.Desk.Execute(r.Context(), desk.Request{
		PlayerID: sess.PlayerID,
		Password: sess.Password,
		Type:     ttype,
		Symbol:   req.Symbol,
		Quantity: req.Quantity,
		Simple:   req.Simple,
	})
	if err != nil {
		status, msg := errorStatus(err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool      `json:"success"`
		Message string    `json:"message"`
		View    view.View `json:"view"`
		Data    any       `json:"data"`
	}{true, res.Response.Message, res.View, res.Response.Data})
}

// History lists the session player's recent transactions
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.Desk.History(r.Context(), sess.PlayerID, limit)
	if err != nil {
		h.Logger.Error("history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to retrieve history")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
