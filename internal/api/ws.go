package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xtrntr/sharktank/internal/desk"
	"github.com/xtrntr/sharktank/internal/models"
	"github.com/xtrntr/sharktank/internal/view"
)

const writeWait = 10 * time.Second

// WSClient is one live stocks table
type WSClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *WSClient) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *WSClient) close(code int, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text),
		time.Now().Add(time.Second))
}

// StocksFeed tracks open websocket clients so they can be closed on shutdown
type StocksFeed struct {
	Upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*WSClient]bool
}

// NewStocksFeed accepts upgrades whose Origin passes checkOrigin. A nil check
// falls back to the same-origin rule.
func NewStocksFeed(checkOrigin func(r *http.Request) bool) *StocksFeed {
	return &StocksFeed{
		Upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
		clients:  make(map[*WSClient]bool),
	}
}

func (f *StocksFeed) add(c *WSClient) {
	f.mu.Lock()
	f.clients[c] = true
	f.mu.Unlock()
}

func (f *StocksFeed) remove(c *WSClient) {
	f.mu.Lock()
	delete(f.clients, c)
	f.mu.Unlock()
}

// Len returns the number of connected clients
func (f *StocksFeed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

// Close disconnects every client
func (f *StocksFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		c.close(websocket.CloseGoingAway, "server shutting down")
		c.conn.Close()
		delete(f.clients, c)
	}
}

type feedMessage struct {
	View  *view.View `json:"view,omitempty"`
	Error string     `json:"error,omitempty"`
	At    time.Time  `json:"at"`
}

// StocksSocket streams the session player's stocks table, refreshed every
// StocksRefresh until the client disconnects.
func (h *Handler) StocksSocket(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	conn, err := h.Feed.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn("failed to upgrade connection", zap.Error(err))
		return
	}
	client := &WSClient{conn: conn}
	h.Feed.add(client)
	defer func() {
		h.Feed.remove(client)
		conn.Close()
	}()

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	// Reads only detect disconnection
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// The session is resolved again before every refresh so that logout or
	// expiry ends the feed.
	push := func() bool {
		live, err := h.AuthService.Sessions.Get(sess.ID)
		if err != nil {
			h.Logger.Debug("stocks feed session ended", zap.Int("player_id", sess.PlayerID), zap.Error(err))
			client.close(websocket.ClosePolicyViolation, "session ended")
			return false
		}

		msg := feedMessage{At: time.Now().UTC()}
		res, err := h.Desk.Execute(ctx, desk.Request{
			PlayerID: live.PlayerID,
			Password: live.Password,
			Type:     models.TransactionGetStocks,
			Quiet:    true,
		})
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			_, msg.Error = errorStatus(err)
		} else {
			msg.View = &res.View
		}
		if err := client.send(msg); err != nil {
			h.Logger.Debug("stocks feed send failed", zap.Error(err))
			return false
		}
		return true
	}

	refresh := h.StocksRefresh
	if refresh <= 0 {
		refresh = 10 * time.Second
	}
	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	if !push() {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !push() {
				return
			}
		}
	}
}
