// Package gateway exposes the engine to the demo trading UI over HTTP and
// websocket: per-tick snapshot pushes out, trade and session commands in.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"equity_sim/internal/domain"
	"equity_sim/internal/engine"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// Command is an inbound message from a UI client.
type Command struct {
	Type    string `json:"type"` // "trade", "activate_session", "reset"
	Symbol  string `json:"symbol,omitempty"`
	Side    string `json:"side,omitempty"`
	Qty     int64  `json:"qty,omitempty"`
	Price   string `json:"price,omitempty"`
	Session string `json:"session,omitempty"`
}

// Message is an outbound frame to UI clients.
type Message struct {
	Type      string                      `json:"type"` // "snapshot", "trade_result", "error", "ack"
	Snapshots []domain.InstrumentSnapshot `json:"snapshots,omitempty"`
	NewPrice  *decimal.Decimal            `json:"new_price,omitempty"`
	Error     string                      `json:"error,omitempty"`
}

// Server is the websocket gateway. One instance serves all UI clients.
type Server struct {
	engine   *engine.Engine
	addr     string
	upgrader websocket.Upgrader
	httpSrv  *http.Server

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes; gorilla allows one concurrent writer
}

func (c *client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// New creates a gateway bound to the given address.
func New(eng *engine.Engine, addr string) *Server {
	return &Server{
		engine: eng,
		addr:   addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Demo tool: the UI is served from arbitrary local origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Start begins serving. Non-blocking; use Shutdown to stop.
func (s *Server) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/transactions", s.handleTransactions)

	s.httpSrv = &http.Server{Addr: s.addr, Handler: mux}

	go func() {
		slog.Info("gateway listening", slog.String("addr", s.addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("gateway server failed", slog.Any("error", err))
		}
	}()
}

// Shutdown stops the HTTP server and closes all client connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for c := range s.clients {
		c.conn.Close()
	}
	s.clients = make(map[*client]struct{})
	s.mu.Unlock()

	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Broadcast pushes post-tick snapshots to every connected client. Wire this
// as the engine's OnTick hook.
func (s *Server) Broadcast(snaps []domain.InstrumentSnapshot) {
	msg := Message{Type: "snapshot", Snapshots: snaps}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		if err := c.writeJSON(msg); err != nil {
			slog.Warn("dropping slow client", slog.Any("error", err))
			c.conn.Close()
			delete(s.clients, c)
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	c := &client{conn: conn}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	slog.Info("ui client connected", slog.String("remote", conn.RemoteAddr().String()))

	go s.readLoop(c)
}

func (s *Server) readLoop(c *client) {
	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		c.conn.Close()
	}()

	for {
		var cmd Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("ui client read error", slog.Any("error", err))
			}
			return
		}
		s.dispatch(c, cmd)
	}
}

func (s *Server) dispatch(c *client, cmd Command) {
	switch cmd.Type {
	case "trade":
		side, err := domain.ParseSide(cmd.Side)
		if err != nil {
			c.writeJSON(Message{Type: "error", Error: "invalid side: " + cmd.Side})
			return
		}
		price, err := decimal.NewFromString(cmd.Price)
		if err != nil {
			c.writeJSON(Message{Type: "error", Error: "invalid price: " + cmd.Price})
			return
		}
		newPrice, err := s.engine.ApplyTrade(cmd.Symbol, side, cmd.Qty, price)
		if err != nil {
			c.writeJSON(Message{Type: "error", Error: err.Error()})
			return
		}
		c.writeJSON(Message{Type: "trade_result", NewPrice: &newPrice})

	case "activate_session":
		if err := s.engine.ActivateSession(cmd.Session); err != nil {
			c.writeJSON(Message{Type: "error", Error: err.Error()})
			return
		}
		c.writeJSON(Message{Type: "ack"})

	case "reset":
		s.engine.Reset()
		c.writeJSON(Message{Type: "ack"})

	default:
		c.writeJSON(Message{Type: "error", Error: "unknown command: " + cmd.Type})
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.engine.Snapshots())
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.engine.ExportTransactions())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response encode failed", slog.Any("error", err))
	}
}

// ClientCount returns the number of connected UI clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
