// Package gateway exposes the chat and notification polling endpoints over
// HTTP, plus a small operator API.
package gateway

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/KafClaw/commander/internal/dispatch"
	"github.com/KafClaw/commander/internal/intent"
	"github.com/KafClaw/commander/internal/notify"
	"github.com/KafClaw/commander/internal/timeline"
	"github.com/KafClaw/commander/internal/voice"
	webassets "github.com/KafClaw/commander/web"
)

// Chatter handles one raw utterance.
type Chatter interface {
	Handle(ctx context.Context, raw string) (dispatch.ChatResponse, intent.Intent, error)
}

// PendingCounter reports deferred tasks that have not fired yet.
type PendingCounter interface {
	Pending() int
}

// Timeline is the audit log the gateway writes chat turns to and serves
// from /api/v1/timeline.
type Timeline interface {
	AddEvent(evt *timeline.TimelineEvent) error
	GetEvents(filter timeline.FilterArgs) ([]timeline.TimelineEvent, error)
	CountScheduledTasks() (map[string]int, error)
}

// FireCapacity is optionally implemented by the PendingCounter to expose
// how many fire slots are free.
type FireCapacity interface {
	FireSlots() (free, total int)
}

// Outbound is the notification fan-out queue feeding external sinks.
type Outbound interface {
	Running() bool
	OutboundSize() int
}

// Options configures a Server.
type Options struct {
	AuthToken string // Bearer token for /api/*; empty disables the check.
	PublicURL string // URL encoded by /api/v1/qr.
	VoiceDir  string // Directory served under /static/voice/.
	Version   string
	Outbound  Outbound // Reported by /api/v1/status when set.
}

// Server wires the HTTP surface to the dispatcher and notification store.
type Server struct {
	opts    Options
	chat    Chatter
	store   *notify.Store
	pending PendingCounter
	tl      Timeline
	started time.Time
}

// New creates a Server. pending and tl may be nil.
func New(opts Options, chat Chatter, store *notify.Store, pending PendingCounter, tl Timeline) *Server {
	return &Server{
		opts:    opts,
		chat:    chat,
		store:   store,
		pending: pending,
		tl:      tl,
		started: time.Now(),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/chat", s.handleChat)
	for _, ch := range notify.Channels {
		mux.HandleFunc("/"+string(ch)+"s", s.handlePoll(ch))
	}
	if s.opts.VoiceDir != "" {
		files := http.StripPrefix(voice.URLPrefix, http.FileServer(http.Dir(s.opts.VoiceDir)))
		mux.HandleFunc(voice.URLPrefix, func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/") {
				http.NotFound(w, r)
				return
			}
			files.ServeHTTP(w, r)
		})
	}

	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/timeline", s.handleTimeline)
	mux.HandleFunc("/api/v1/qr", s.handleQR)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		serveAsset(w, "index.html")
	})

	return s.withAuth(mux)
}

// withAuth guards /api/* with the bearer token. The status endpoint stays
// open as a health check.
func (s *Server) withAuth(next http.Handler) http.Handler {
	token := s.opts.AuthToken
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/api/v1/status" || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		got := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	traceID := uuid.NewString()
	start := time.Now()
	resp, in, err := s.chat.Handle(r.Context(), req.Message)
	if err != nil {
		slog.Warn("Chat request abandoned", "trace", traceID, "error", err)
		writeJSON(w, dispatch.ChatResponse{})
		return
	}
	slog.Info("Chat handled", "trace", traceID, "intent", in.Kind(), "dur", time.Since(start).Truncate(time.Millisecond))
	s.recordTurn(traceID, req.Message, in, resp)
	writeJSON(w, resp)
}

// recordTurn writes the inbound utterance and the reply to the timeline,
// best-effort.
func (s *Server) recordTurn(traceID, message string, in intent.Intent, resp dispatch.ChatResponse) {
	if s.tl == nil {
		return
	}
	now := time.Now()
	kind := string(in.Kind())
	_ = s.tl.AddEvent(&timeline.TimelineEvent{
		EventID:     "CHAT_IN_" + traceID,
		TraceID:     traceID,
		Timestamp:   now,
		EventType:   timeline.EventChatIn,
		Intent:      kind,
		ContentText: message,
	})
	meta, _ := json.Marshal(map[string]string{"iframe": resp.IFrame, "new_tab": resp.NewTab})
	_ = s.tl.AddEvent(&timeline.TimelineEvent{
		EventID:     "CHAT_OUT_" + traceID,
		TraceID:     traceID,
		Timestamp:   now,
		EventType:   timeline.EventChatOut,
		Intent:      kind,
		ContentText: resp.Reply,
		VoicePath:   resp.Voice,
		Metadata:    string(meta),
	})
}

func (s *Server) handlePoll(ch notify.Channel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		evt, ok := s.store.DrainOne(ch)
		if !ok {
			writeJSON(w, map[string]any{})
			return
		}
		if s.tl != nil {
			_ = s.tl.AddEvent(&timeline.TimelineEvent{
				EventID:     "DELIVERED_" + evt.TaskID,
				TraceID:     evt.TaskID,
				EventType:   timeline.EventDelivered,
				Channel:     string(ch),
				ContentText: evt.Text,
				VoicePath:   evt.Voice,
			})
		}
		writeJSON(w, evt)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	queues := map[string]int{}
	dropped := map[string]int{}
	for _, ch := range notify.Channels {
		queues[string(ch)] = s.store.Len(ch)
		dropped[string(ch)] = s.store.Dropped(ch)
	}
	status := map[string]any{
		"version":        s.opts.Version,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
		"queues":         queues,
		"dropped":        dropped,
	}
	if s.pending != nil {
		status["pending_tasks"] = s.pending.Pending()
		if fc, ok := s.pending.(FireCapacity); ok {
			free, total := fc.FireSlots()
			status["fire_slots"] = map[string]int{"free": free, "total": total}
		}
	}
	if o := s.opts.Outbound; o != nil {
		status["sinks"] = map[string]any{"running": o.Running(), "backlog": o.OutboundSize()}
	}
	if s.tl != nil {
		if counts, err := s.tl.CountScheduledTasks(); err == nil {
			status["tasks"] = counts
		}
	}
	writeJSON(w, status)
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if s.tl == nil {
		http.Error(w, "timeline disabled", http.StatusNotFound)
		return
	}

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = 100
	}
	offset, _ := strconv.Atoi(q.Get("offset"))

	events, err := s.tl.GetEvents(timeline.FilterArgs{
		TraceID:   q.Get("trace_id"),
		EventType: q.Get("event_type"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []timeline.TimelineEvent{}
	}
	writeJSON(w, events)
}

func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	target := s.opts.PublicURL
	if target == "" {
		target = "http://" + r.Host + "/"
	}
	png, err := qrcode.Encode(target, qrcode.Medium, 256)
	if err != nil {
		http.Error(w, fmt.Sprintf("qr encode: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

func serveAsset(w http.ResponseWriter, name string) {
	b, err := webassets.Files.ReadFile(name)
	if err != nil {
		http.Error(w, "asset not found", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(b)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Response encode failed", "error", err)
	}
}
