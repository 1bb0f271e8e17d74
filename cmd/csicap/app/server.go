package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wlansense/csi-capture/internal/analysis"
	"github.com/wlansense/csi-capture/internal/csi"
)

const clientSendBuffer = 256

// client is a single live stream subscriber. Messages that cannot be
// queued are dropped; a slow subscriber never stalls collection.
type client struct {
	conn *websocket.Conn
	send chan any
}

// writePump pumps queued messages to the websocket connection.
func (c *client) writePump() {
	defer c.conn.Close()

	for {
		msg, ok := <-c.send
		if !ok {
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// frameMessage is the wire representation of a captured frame pushed to
// stream subscribers.
type frameMessage struct {
	Type       string    `json:"type"`
	Timestamp  uint32    `json:"timestamp"`
	SourceMAC  string    `json:"sourceMac"`
	RSSI       int8      `json:"rssi"`
	NoiseFloor int8      `json:"noiseFloor"`
	Channel    uint8     `json:"channel"`
	Amplitudes []float64 `json:"amplitudes"`
}

type statusResponse struct {
	Enabled   bool   `json:"enabled"`
	Available uint32 `json:"available"`
	Dropped   uint32 `json:"dropped"`
	Clients   int    `json:"clients"`
}

// Server streams captured frames to websocket subscribers and exposes
// the capture state over HTTP.
type Server struct {
	controller *csi.Controller
	logger     *slog.Logger
	httpServer *http.Server
	upgrader   websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewServer creates a new Server listening on addr.
func NewServer(addr string, controller *csi.Controller, logger *slog.Logger) *Server {
	s := Server{
		controller: controller,
		logger:     logger,
		clients:    make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 65536,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleStream)
	mux.HandleFunc("/api/status", s.handleStatus)

	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	return &s
}

// ListenAndServe serves until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("stream server listening", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown closes subscriber connections and stops the HTTP server.
func (s *Server) Shutdown() {
	s.mu.Lock()
	for c := range s.clients {
		close(c.send)
	}
	clear(s.clients)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error(err.Error())
	}
}

// Broadcast fans a captured frame out to all subscribers.
func (s *Server) Broadcast(frame *csi.Frame) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.clients) == 0 {
		return
	}

	msg := frameMessage{
		Type:       "frame",
		Timestamp:  frame.TimestampMicros,
		SourceMAC:  net.HardwareAddr(frame.MAC[:]).String(),
		RSSI:       frame.RSSI,
		NoiseFloor: frame.NoiseFloor,
		Channel:    frame.Channel,
		Amplitudes: analysis.Amplitudes(frame.Payload()),
	}

	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error(err.Error())
		return
	}

	c := &client{conn: conn, send: make(chan any, clientSendBuffer)}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	s.logger.Info("stream client connected", slog.String("remote", conn.RemoteAddr().String()))

	go c.writePump()

	// Read pump: the client sends nothing we act on, but reading is
	// what detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()

	s.logger.Info("stream client disconnected", slog.String("remote", conn.RemoteAddr().String()))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	clients := len(s.clients)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(statusResponse{
		Enabled:   s.controller.Enabled(),
		Available: s.controller.Available(),
		Dropped:   s.controller.Dropped(),
		Clients:   clients,
	}); err != nil {
		s.logger.Error(err.Error())
	}
}
