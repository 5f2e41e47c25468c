// Package server is the HTTP front-end of the Rio voice bridge: the Twilio
// webhook endpoints, the media-stream websocket that feeds the relay, and the
// operational endpoints (health, readiness, metrics).
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yexis-labs/riobridge/internal/crm"
	"github.com/yexis-labs/riobridge/internal/health"
	"github.com/yexis-labs/riobridge/internal/observe"
	"github.com/yexis-labs/riobridge/internal/relay"
	"github.com/yexis-labs/riobridge/internal/telephony"
	"github.com/yexis-labs/riobridge/internal/tools"
	"github.com/yexis-labs/riobridge/pkg/live"
)

// Dialer is the outbound telephony surface the server needs. Satisfied by
// [telephony.Client].
type Dialer interface {
	MakeCall(ctx context.Context, to, callbackURL string) (string, error)
	SendSMS(ctx context.Context, to, body string) (string, error)
}

// Config carries the server's collaborators and settings.
type Config struct {
	// Domain is the public hostname used in generated TwiML and callback
	// URLs, without scheme.
	Domain string

	// Provider opens generative sessions for bridged calls. Required.
	Provider live.Provider

	// Tools is the tool dispatch table shared by all calls. Required.
	Tools *tools.Registry

	// Leads is the CRM collaborator. Optional; without it calls run without
	// caller context and SMS interactions are not recorded.
	Leads crm.Store

	// Phone places outbound calls and messages. Optional; without it the
	// /make-call and /send-sms endpoints report 503.
	Phone Dialer

	// Instructions and Voice configure each call's session.
	Instructions string
	Voice        string

	// Greeting is spoken by the TwiML response before the stream connects.
	Greeting string

	// DrainWindow is passed through to each relay.
	DrainWindow time.Duration

	// Checkers are evaluated by the /readyz endpoint.
	Checkers []health.Checker

	// Metrics receives instrumentation. Nil selects the package default.
	Metrics *observe.Metrics

	// Log is the server's logger. Nil selects slog.Default().
	Log *slog.Logger
}

// Server serves the bridge's HTTP surface. Create with [New]; mount
// [Server.Handler] on an http.Server.
type Server struct {
	cfg     Config
	metrics *observe.Metrics
	log     *slog.Logger
	health  *health.Handler
}

// New validates cfg and creates a server.
func New(cfg Config) (*Server, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("server: nil session provider")
	}
	if cfg.Tools == nil {
		return nil, fmt.Errorf("server: nil tool registry")
	}
	m := cfg.Metrics
	if m == nil {
		m = observe.DefaultMetrics()
	}
	l := cfg.Log
	if l == nil {
		l = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		metrics: m,
		log:     l,
		health:  health.New(cfg.Checkers...),
	}, nil
}

// Handler returns the full route table wrapped in the observability
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /make-call", s.handleMakeCall)
	mux.HandleFunc("POST /incoming-call", s.handleIncomingCall)
	mux.HandleFunc("POST /send-sms", s.handleSendSMS)
	mux.HandleFunc("POST /incoming-sms", s.handleIncomingSMS)
	mux.HandleFunc("GET /media-stream", s.handleMediaStream)
	mux.HandleFunc("GET /healthz", s.health.Healthz)
	mux.HandleFunc("GET /readyz", s.health.Readyz)
	mux.Handle("GET /metrics", promhttp.Handler())
	return observe.Middleware(s.metrics, "/media-stream")(mux)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<h1>Rio Voice Bridge</h1><p>Server is running.</p>")
}

// handleMakeCall initiates an outbound call. Twilio calls back to
// /incoming-call for instructions once the callee answers.
func (s *Server) handleMakeCall(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Phone == nil {
		writeError(w, http.StatusServiceUnavailable, "telephony is not configured")
		return
	}
	if s.cfg.Domain == "" {
		writeError(w, http.StatusInternalServerError, "server domain is not configured")
		return
	}
	to := r.FormValue("to")
	if to == "" {
		writeError(w, http.StatusBadRequest, "missing 'to' parameter")
		return
	}

	callbackURL := "https://" + s.cfg.Domain + "/incoming-call"
	sid, err := s.cfg.Phone.MakeCall(r.Context(), to, callbackURL)
	if err != nil {
		if errors.Is(err, telephony.ErrBlockedNumber) {
			writeError(w, http.StatusBadRequest, "emergency numbers are blocked for safety")
			return
		}
		s.log.Error("placing outbound call failed", "to", to, "err", err)
		writeError(w, http.StatusBadGateway, "placing the call failed")
		return
	}

	s.log.Info("outbound call initiated", "to", to, "call_sid", sid)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Call initiated", "call_sid": sid})
}

// handleIncomingCall answers Twilio's webhook with TwiML connecting the
// call's audio to the media-stream websocket. The dialled number rides along
// as a query parameter so the stream handler can resolve caller context.
func (s *Server) handleIncomingCall(w http.ResponseWriter, r *http.Request) {
	streamURL := "wss://" + s.cfg.Domain + "/media-stream"
	if to := r.FormValue("To"); to != "" {
		streamURL += "?caller=" + url.QueryEscape(to)
	}

	twiml, err := telephony.VoiceStreamTwiML(s.cfg.Greeting, streamURL)
	if err != nil {
		s.log.Error("rendering call instructions failed", "err", err)
		writeError(w, http.StatusInternalServerError, "rendering call instructions failed")
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	fmt.Fprint(w, twiml)
}

func (s *Server) handleSendSMS(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Phone == nil {
		writeError(w, http.StatusServiceUnavailable, "telephony is not configured")
		return
	}
	to := r.FormValue("to")
	message := r.FormValue("message")
	if to == "" || message == "" {
		writeError(w, http.StatusBadRequest, "missing 'to' or 'message' parameter")
		return
	}

	sid, err := s.cfg.Phone.SendSMS(r.Context(), to, message)
	if err != nil {
		if errors.Is(err, telephony.ErrBlockedNumber) {
			writeError(w, http.StatusBadRequest, "emergency numbers are blocked")
			return
		}
		s.log.Error("sending sms failed", "to", to, "err", err)
		writeError(w, http.StatusBadGateway, "sending the message failed")
		return
	}

	s.recordInteraction(r.Context(), to, "sms_out", message)
	writeJSON(w, http.StatusOK, map[string]string{"message": "SMS sent", "sid": sid})
}

// handleIncomingSMS acknowledges an inbound message with a TwiML auto-reply
// and records it against the sender's lead when one exists.
func (s *Server) handleIncomingSMS(w http.ResponseWriter, r *http.Request) {
	sender := r.FormValue("From")
	body := r.FormValue("Body")
	s.log.Info("sms received", "from", sender)

	s.recordInteraction(r.Context(), sender, "sms_in", body)

	reply := fmt.Sprintf("Thanks for your message: %q. Rio received it.", body)
	twiml, err := telephony.SMSReplyTwiML(reply)
	if err != nil {
		s.log.Error("rendering sms reply failed", "err", err)
		writeError(w, http.StatusInternalServerError, "rendering reply failed")
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	fmt.Fprint(w, twiml)
}

// handleMediaStream upgrades to a websocket and bridges the call. One relay
// per connection; the relay owns the full call lifecycle.
func (s *Server) handleMediaStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("media stream upgrade failed", "err", err)
		return
	}

	rel, err := relay.New(relay.Config{
		Provider:     s.cfg.Provider,
		Tools:        s.cfg.Tools,
		Leads:        s.cfg.Leads,
		Instructions: s.cfg.Instructions,
		Voice:        s.cfg.Voice,
		CallerPhone:  s.resolveCallerKey(r),
		DrainWindow:  s.cfg.DrainWindow,
		Metrics:      s.metrics,
		Log:          s.log,
	})
	if err != nil {
		s.log.Error("creating relay failed", "err", err)
		conn.Close(websocket.StatusInternalError, "relay setup failed")
		return
	}

	if err := rel.Run(r.Context(), relay.NewWSConn(conn)); err != nil {
		s.log.Error("call session failed", "err", err)
		conn.Close(websocket.StatusInternalError, "call session failed")
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

// resolveCallerKey returns the caller-context key for the connection: the
// phone from the stream URL, but only when a matching lead exists. An
// unknown number simply runs the call without caller context.
func (s *Server) resolveCallerKey(r *http.Request) string {
	caller := r.URL.Query().Get("caller")
	if caller == "" || s.cfg.Leads == nil {
		return ""
	}
	if _, err := s.cfg.Leads.FindByPhone(r.Context(), caller); err != nil {
		if !errors.Is(err, crm.ErrNotFound) {
			s.log.Warn("caller lookup failed", "caller", caller, "err", err)
		}
		return ""
	}
	return caller
}

// recordInteraction logs an SMS event against the lead matching phone, when
// one exists. Best effort.
func (s *Server) recordInteraction(ctx context.Context, phone, kind, content string) {
	if s.cfg.Leads == nil || phone == "" {
		return
	}
	lead, err := s.cfg.Leads.FindByPhone(ctx, phone)
	if err != nil {
		return
	}
	if err := s.cfg.Leads.RecordInteraction(ctx, lead.ID, kind, content); err != nil {
		s.log.Warn("recording interaction failed", "lead", lead.ID, "err", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
