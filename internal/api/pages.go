package api

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xtrntr/sharktank/internal/auth"
	"github.com/xtrntr/sharktank/internal/desk"
	"github.com/xtrntr/sharktank/internal/models"
	"github.com/xtrntr/sharktank/internal/view"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	defaultSymbol   = "AAPL"
	defaultQuantity = "10"
)

// Pages holds one template set per page, each sharing the layout
type Pages struct {
	sets map[string]*template.Template
}

var funcs = template.FuncMap{
	"tradeURL": func(symbol string) string {
		return "/trade?symbol=" + url.QueryEscape(symbol)
	},
	"when": func(t time.Time) string {
		return t.Local().Format("2006-01-02 15:04:05")
	},
	"upper": strings.ToUpper,
}

func NewPages() (*Pages, error) {
	p := &Pages{sets: map[string]*template.Template{}}
	for _, name := range []string{"login", "account", "stocks", "trade", "history"} {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		p.sets[name] = t
	}
	return p, nil
}

// pageData is everything a page may show
type pageData struct {
	Title    string
	Tab      string
	LoggedIn bool
	PlayerID int

	Error  string
	Result *view.View

	// login form
	LoginPlayerID string

	// trade dialog
	Symbol       string
	SymbolLocked bool
	Quantity     string
	TradeType    models.TransactionType

	History []models.JournalEntry
}

// Render writes page name with status
func (p *Pages) Render(w http.ResponseWriter, status int, name string, data pageData) error {
	t, ok := p.sets[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data pageData) {
	if err := h.Pages.Render(w, status, name, data); err != nil {
		h.Logger.Error("render", zap.String("page", name), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// RequirePageSession redirects anonymous visitors to the login page
func (h *Handler) RequirePageSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := h.sessionFromRequest(r)
		if !ok {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), sess)))
	})
}

func (h *Handler) loggedIn(sess *auth.Session, tab string) pageData {
	return pageData{Tab: tab, LoggedIn: true, PlayerID: sess.PlayerID}
}

// Index shows the login form, or the account tab for a logged-in player
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessionFromRequest(r); ok {
		http.Redirect(w, r, "/account", http.StatusSeeOther)
		return
	}
	h.render(w, http.StatusOK, "login", pageData{Title: "Login"})
}

// LoginPage handles the login form
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusBadRequest, "login", pageData{Title: "Login", Error: "Invalid form submission."})
		return
	}
	rawID := r.PostFormValue("player_id")
	playerID := models.ParsePositiveInt(rawID)

	token, sess, err := h.AuthService.Login(r.Context(), playerID, r.PostFormValue("password"))
	if err != nil {
		status, msg := loginStatus(err)
		h.render(w, status, "login", pageData{Title: "Login", Error: msg, LoginPlayerID: rawID})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/account", http.StatusSeeOther)
}

// LogoutPage ends the session and returns to the login form
func (h *Handler) LogoutPage(w http.ResponseWriter, r *http.Request) {
	if token := tokenFromRequest(r); token != "" {
		h.AuthService.Logout(token)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// dispatchPage runs req and renders page with either the result or the error
func (h *Handler) dispatchPage(w http.ResponseWriter, r *http.Request, page string, data pageData, req desk.Request) {
	res, err := h.Desk.Execute(r.Context(), req)
	status := http.StatusOK
	if err != nil {
		status, data.Error = errorStatus(err)
	} else {
		data.Result = &res.View
	}
	h.render(w, status, page, data)
}

// AccountPage shows the account tab
func (h *Handler) AccountPage(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFromContext(r.Context())
	data := h.loggedIn(sess, "account")
	data.Title = "Account"
	if r.Method != http.MethodPost {
		h.render(w, http.StatusOK, "account", data)
		return
	}
	h.dispatchPage(w, r, "account", data, desk.Request{
		PlayerID: sess.PlayerID,
		Password: sess.Password,
		Type:     models.TransactionDisplayAccount,
	})
}

// StocksPage shows the stocks tab
func (h *Handler) StocksPage(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFromContext(r.Context())
	data := h.loggedIn(sess, "stocks")
	data.Title = "Stocks"
	if r.Method != http.MethodPost {
		h.render(w, http.StatusOK, "stocks", data)
		return
	}
	h.dispatchPage(w, r, "stocks", data, desk.Request{
		PlayerID: sess.PlayerID,
		Password: sess.Password,
		Type:     models.TransactionGetStocks,
	})
}

// TradePage is the order dialog. A symbol picked from the stocks table is
// locked; otherwise the player may type one.
func (h *Handler) TradePage(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFromContext(r.Context())
	data := h.loggedIn(sess, "stocks")
	data.Title = "Trade"
	data.Symbol = defaultSymbol
	data.Quantity = defaultQuantity
	data.TradeType = models.TransactionBuy

	if r.Method != http.MethodPost {
		if s := strings.TrimSpace(r.URL.Query().Get("symbol")); s != "" {
			data.Symbol = s
			data.SymbolLocked = true
		}
		h.render(w, http.StatusOK, "trade", data)
		return
	}

	if err := r.ParseForm(); err != nil {
		data.Error = "Invalid form submission."
		h.render(w, http.StatusBadRequest, "trade", data)
		return
	}
	data.Symbol = r.PostFormValue("symbol")
	data.SymbolLocked = r.PostFormValue("locked") == "1"
	data.Quantity = r.PostFormValue("quantity")
	if t, ok := models.ParseTransactionType(r.PostFormValue("transactionType")); ok && t.IsTrade() {
		data.TradeType = t
	}

	h.dispatchPage(w, r, "trade", data, desk.Request{
		PlayerID: sess.PlayerID,
		Password: sess.Password,
		Type:     data.TradeType,
		Symbol:   data.Symbol,
		Quantity: models.ParsePositiveInt(data.Quantity),
		Simple:   true,
	})
}

// HistoryPage lists recent transactions
func (h *Handler) HistoryPage(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFromContext(r.Context())
	data := h.loggedIn(sess, "history")
	data.Title = "History"

	entries, err := h.Desk.History(r.Context(), sess.PlayerID, 0)
	if err != nil {
		h.Logger.Error("history", zap.Error(err))
		data.Error = "Failed to retrieve history."
		h.render(w, http.StatusInternalServerError, "history", data)
		return
	}
	data.History = entries
	h.render(w, http.StatusOK, "history", data)
}
