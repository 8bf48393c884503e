package sideband

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	rcron "github.com/robfig/cron/v3"
)

const (
	// DefaultMaxBodyBytes caps a hook request body. Lifecycle reports are
	// tiny; anything larger is malformed or hostile.
	DefaultMaxBodyBytes = 64 << 10

	// suppressWindow is how long a (terminal, type, tool) triple shadows
	// later duplicates of itself.
	suppressWindow = 2 * time.Second
)

type ServerConfig struct {
	Host         string
	Port         int
	MaxBodyBytes int64
}

// Server receives lifecycle reports from bootstrap scripts over HTTP and
// fans them out to subscribers, including websocket clients on /events.
type Server struct {
	cfg      ServerConfig
	bcast    *Broadcaster
	suppress *suppressor
	cron     *rcron.Cron
	server   *http.Server
	wsNextID atomic.Int64
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Server{
		cfg:      cfg,
		bcast:    NewBroadcaster(),
		suppress: newSuppressor(suppressWindow),
	}
}

func (s *Server) Broadcaster() *Broadcaster { return s.bcast }

// Handler builds the route table. Exposed separately from Start so tests
// can drive it through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/hook", s.handleHook)
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	return mux
}

func (s *Server) Start(ctx context.Context) error {
	s.cron = rcron.New()
	if _, err := s.cron.AddFunc("@every 30s", func() {
		if removed := s.suppress.Sweep(); removed > 0 {
			log.Printf("[sideband] swept %d stale suppression entries", removed)
		}
	}); err != nil {
		return fmt.Errorf("register sweep job: %w", err)
	}
	s.cron.Start()

	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	go func() {
		log.Printf("[sideband] listening on %s", addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[sideband] server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

func (s *Server) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			log.Printf("[sideband] shutdown error: %v", err)
		}
	}
	log.Printf("[sideband] stopped")
}

func (s *Server) handleHook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}

	// Cap before parse so an oversize body never reaches the decoder.
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{"error": "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "read body: " + err.Error()})
		return
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "malformed JSON body"})
		return
	}

	result := ValidateHookRequest(raw)
	if !result.Valid {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":         result.Reason,
			"missingFields": result.MissingFields,
		})
		return
	}

	if !s.suppress.Admit(result.Event) {
		log.Printf("[sideband] suppressed duplicate %s from terminal %s", result.Event.Type, result.Event.TerminalID)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "suppressed": true})
		return
	}

	s.bcast.Publish(*result.Event)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("[sideband] websocket accept error: %v", err)
		return
	}

	clientID := s.wsNextID.Add(1)
	log.Printf("[sideband] events client %d connected", clientID)

	events, cancel := s.bcast.Subscribe(64)
	defer func() {
		cancel()
		conn.CloseNow()
		log.Printf("[sideband] events client %d disconnected", clientID)
	}()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
