// Package server hosts drive sessions over WebSocket: one session per
// connection, JSON intents in, JSON snapshots out.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brensch/gridiron/drive"
	"github.com/brensch/gridiron/game"
	"github.com/brensch/gridiron/logging"
	"github.com/brensch/gridiron/rules"
	"github.com/brensch/gridiron/store"
	"github.com/gorilla/websocket"
)

// ErrUnknownIntent is reported to clients that send an intent name the rules do not know.
var ErrUnknownIntent = errors.New("unknown intent")

const (
	DefaultPingInterval = 25 * time.Second
	DefaultReadTimeout  = 60 * time.Second
	DefaultWriteTimeout = 10 * time.Second
	maxMessageBytes     = 1 << 16
)

type Config struct {
	Settings game.Settings
	// ArchiveDir, when set, receives the ticks and drive summaries of every
	// session as a parquet batch once its connection closes.
	ArchiveDir string
	Logger     *slog.Logger

	PingInterval time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ClientMessage is what a client sends: {"intent":"snap"}.
type ClientMessage struct {
	Intent string `json:"intent"`
}

// ServerMessage is either a state frame or an error frame.
type ServerMessage struct {
	Type     string          `json:"type"`
	Intent   string          `json:"intent,omitempty"`
	Accepted bool            `json:"accepted"`
	Events   []string        `json:"events,omitempty"`
	State    *drive.Snapshot `json:"state,omitempty"`
	Error    string          `json:"error,omitempty"`
}

const (
	TypeState = "state"
	TypeError = "error"
)

type Server struct {
	cfg      Config
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*client
	closing  bool
	seq      atomic.Int64
	// handlers counts upgraded connections until their session is archived.
	handlers sync.WaitGroup
}

func New(cfg Config) *Server {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	return &Server{
		cfg: cfg,
		log: logging.OrDiscard(cfg.Logger),
		upgrader: websocket.Upgrader{
			// Any origin may connect; put a proxy in front for anything public.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sessions: make(map[string]*client),
	}
}

type client struct {
	session *drive.Session
	conn    *websocket.Conn
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /api/sessions", s.handleSessions)
	return mux
}

// Sessions returns a snapshot of every connected session, ordered by id.
func (s *Server) Sessions() []drive.Snapshot {
	s.mu.Lock()
	list := make([]*drive.Session, 0, len(s.sessions))
	for _, c := range s.sessions {
		list = append(list, c.session)
	}
	s.mu.Unlock()

	out := make([]drive.Snapshot, 0, len(list))
	for _, sess := range list {
		out = append(out, sess.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Session < out[j].Session })
	return out
}

// Shutdown refuses new sessions and sends a going-away close frame to every
// connected client. Clients get WriteTimeout to answer before their read fails,
// then each session is archived as usual.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closing = true
	deadline := time.Now().Add(s.cfg.WriteTimeout)
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, c := range s.sessions {
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, deadline)
		_ = c.conn.SetReadDeadline(deadline)
	}
}

// Wait blocks until every session has disconnected and been archived.
// Call it after Shutdown.
func (s *Server) Wait() {
	s.handlers.Wait()
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Sessions()); err != nil {
		s.log.Warn("encode sessions", "err", err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade", "err", err, "remote", r.RemoteAddr)
		return
	}
	defer conn.Close()

	id := fmt.Sprintf("ws_%d_%d", time.Now().UnixNano(), s.seq.Add(1))
	log := s.log.With("session", id, "remote", r.RemoteAddr)
	sess := drive.NewSession(drive.Config{
		ID:       id,
		Settings: s.cfg.Settings,
		Logger:   s.log,
		Record:   s.cfg.ArchiveDir != "",
		Source:   "ws",
	})

	// Registration and the handler count move together under mu, so once
	// Shutdown has run no new handler can slip past Wait.
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.cfg.WriteTimeout))
		return
	}
	s.sessions[id] = &client{session: sess, conn: conn}
	s.handlers.Add(1)
	s.mu.Unlock()
	log.Info("session opened")

	defer func() {
		s.archive(sess, log)
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		log.Info("session closed")
		s.handlers.Done()
	}()

	conn.SetReadLimit(maxMessageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go s.pingLoop(conn, done)

	snap := sess.Snapshot()
	if err := s.write(conn, ServerMessage{Type: TypeState, Accepted: true, State: &snap}); err != nil {
		log.Warn("write initial state", "err", err)
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("read", "err", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))

		reply := s.handleMessage(sess, data)
		if reply.Type == TypeError {
			log.Debug("bad message", "err", reply.Error)
		}
		if err := s.write(conn, reply); err != nil {
			log.Warn("write", "err", err)
			return
		}
	}
}

func (s *Server) handleMessage(sess *drive.Session, data []byte) ServerMessage {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ServerMessage{Type: TypeError, Error: fmt.Sprintf("decode message: %v", err)}
	}
	in, err := rules.ParseIntent(msg.Intent)
	if err != nil {
		return ServerMessage{Type: TypeError, Intent: msg.Intent, Error: fmt.Errorf("%w: %q", ErrUnknownIntent, msg.Intent).Error()}
	}

	res := sess.Submit(in)
	snap := sess.Snapshot()
	events := make([]string, len(res.Events))
	for i, e := range res.Events {
		events[i] = string(e.Kind)
	}
	return ServerMessage{
		Type:     TypeState,
		Intent:   in.String(),
		Accepted: res.Accepted,
		Events:   events,
		State:    &snap,
	}
}

func (s *Server) write(conn *websocket.Conn, msg ServerMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	return conn.WriteJSON(msg)
}

// pingLoop keeps idle connections alive. WriteControl may run alongside WriteJSON.
func (s *Server) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteTimeout)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (s *Server) archive(sess *drive.Session, log *slog.Logger) {
	if s.cfg.ArchiveDir == "" {
		return
	}
	ticks, drives := sess.TakeRows()
	if len(ticks) == 0 && len(drives) == 0 {
		return
	}
	tickPath, drivePath, err := store.WriteBatchAtomic(s.cfg.ArchiveDir, ticks, drives)
	if err != nil {
		log.Error("archive session", "err", err, "ticks", len(ticks), "drives", len(drives))
		return
	}
	log.Info("archived session", "ticks_file", tickPath, "drives_file", drivePath, "ticks", len(ticks), "drives", len(drives))
}
