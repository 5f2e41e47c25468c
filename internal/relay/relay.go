// Package relay bridges one telephony media stream to one generative voice
// session for the lifetime of a call.
//
// A [Relay] owns the call lifecycle: it resolves the optional caller context,
// opens the session, then runs the inbound leg (telephony frames in, model
// audio out) and the outbound leg (session events in, telephony frames out)
// concurrently until either side ends the call. The two legs are co-terminal:
// a stop or disconnect on the telephony side tears down the session after a
// bounded drain window, and a terminal session error tears down the telephony
// side. Each relay serves exactly one call and carries no state across calls.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/yexis-labs/riobridge/internal/crm"
	"github.com/yexis-labs/riobridge/internal/observe"
	"github.com/yexis-labs/riobridge/internal/tools"
	"github.com/yexis-labs/riobridge/pkg/audio"
	"github.com/yexis-labs/riobridge/pkg/live"
)

// defaultDrainWindow bounds how long in-flight model audio may keep flowing
// to the telephony side after a stop or disconnect.
const defaultDrainWindow = 2 * time.Second

// State is the lifecycle phase of one call session.
type State int32

const (
	StatePending State = iota
	StateActive
	StateClosing
	StateClosed
)

// String implements [fmt.Stringer].
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Config carries the collaborators and per-call parameters for one [Relay].
// All collaborators are injected; the relay holds no process-wide state.
type Config struct {
	// Provider opens the generative session. Required.
	Provider live.Provider

	// Tools dispatches agent-issued tool invocations. Required.
	Tools *tools.Registry

	// Leads resolves the caller context. Required when CallerPhone is set.
	Leads crm.Store

	// Instructions is the system instruction for the session.
	Instructions string

	// Voice selects the synthesis voice.
	Voice string

	// CallerPhone, when non-empty, is resolved against Leads before the
	// session is configured. An unresolvable caller fails setup before any
	// leg starts.
	CallerPhone string

	// DrainWindow bounds the outbound flush after stop/disconnect.
	// Zero selects the default.
	DrainWindow time.Duration

	// Metrics receives relay instrumentation. Nil selects the package
	// default.
	Metrics *observe.Metrics

	// Log is the relay's logger. Nil selects slog.Default().
	Log *slog.Logger
}

// Relay orchestrates one bridged call. Create with [New], drive with
// [Relay.Run] exactly once.
type Relay struct {
	cfg     Config
	metrics *observe.Metrics
	log     *slog.Logger

	mu    sync.Mutex
	state State
	ran   bool

	// streamSid is written once by the inbound leg when the start frame
	// arrives and published to the outbound leg through sidReady.
	streamSid string
	sidOnce   sync.Once
	sidReady  chan struct{}

	reasonOnce sync.Once
	reason     string
}

// New validates cfg and returns a relay in the pending state.
func New(cfg Config) (*Relay, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("relay: nil provider")
	}
	if cfg.Tools == nil {
		return nil, fmt.Errorf("relay: nil tool registry")
	}
	if cfg.CallerPhone != "" && cfg.Leads == nil {
		return nil, fmt.Errorf("relay: caller phone set without a lead store")
	}
	if cfg.DrainWindow <= 0 {
		cfg.DrainWindow = defaultDrainWindow
	}
	m := cfg.Metrics
	if m == nil {
		m = observe.DefaultMetrics()
	}
	l := cfg.Log
	if l == nil {
		l = slog.Default()
	}
	return &Relay{
		cfg:      cfg,
		metrics:  m,
		log:      l,
		state:    StatePending,
		sidReady: make(chan struct{}),
	}, nil
}

// State returns the current lifecycle phase.
func (r *Relay) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Relay) setState(s State) {
	r.mu.Lock()
	// closed is terminal.
	if r.state != StateClosed {
		r.state = s
	}
	r.mu.Unlock()
}

// noteReason records the first teardown cause observed.
func (r *Relay) noteReason(reason string) {
	r.reasonOnce.Do(func() { r.reason = reason })
}

// Run bridges conn to a freshly opened generative session and blocks until
// the call ends. It returns nil on an orderly stop or telephony disconnect
// and a non-nil error on setup failure or a terminal session error. Run may
// be called once per relay.
func (r *Relay) Run(ctx context.Context, conn Conn) error {
	r.mu.Lock()
	if r.ran {
		r.mu.Unlock()
		return fmt.Errorf("relay: Run called twice")
	}
	r.ran = true
	r.mu.Unlock()

	defer r.setState(StateClosed)

	ctx, span := observe.StartSpan(ctx, observe.SpanCallSession)
	defer span.End()

	session, err := r.setup(ctx)
	if err != nil {
		r.noteReason("setup_failed")
		span.SetAttributes(observe.Attr("teardown.reason", r.reason))
		r.metrics.RecordTeardown(ctx, r.reason)
		return err
	}

	r.setState(StateActive)
	r.metrics.ActiveCalls.Add(ctx, 1)
	defer r.metrics.ActiveCalls.Add(ctx, -1)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)

	// stopped is closed when the inbound leg ends (stop frame, telephony
	// disconnect, or cancellation); outboundDone when the outbound leg ends.
	stopped := make(chan struct{})
	outboundDone := make(chan struct{})
	var stopOnce sync.Once
	signalStop := func() { stopOnce.Do(func() { close(stopped) }) }

	g.Go(func() error {
		defer signalStop()
		return r.inboundLeg(gctx, conn, session)
	})
	g.Go(func() error {
		defer close(outboundDone)
		return r.outboundLeg(gctx, conn, session, stopped)
	})
	g.Go(func() error {
		// Teardown supervisor. On a telephony-side stop the outbound leg
		// keeps flushing in-flight audio for at most the drain window before
		// the session is closed; a session-side close needs no drain.
		select {
		case <-stopped:
			r.setState(StateClosing)
			timer := time.NewTimer(r.cfg.DrainWindow)
			defer timer.Stop()
			select {
			case <-outboundDone:
			case <-timer.C:
			case <-gctx.Done():
			}
		case <-outboundDone:
			r.setState(StateClosing)
		case <-gctx.Done():
			r.setState(StateClosing)
		}
		if err := session.Close(); err != nil {
			r.log.Warn("session close failed", "err", err)
		}
		cancel()
		return nil
	})

	err = g.Wait()
	r.noteReason("closed")
	if sid, ok := r.currentStreamSid(); ok {
		span.SetAttributes(observe.Attr("stream.sid", sid))
	}
	span.SetAttributes(observe.Attr("teardown.reason", r.reason))
	r.metrics.RecordTeardown(ctx, r.reason)
	r.log.Info("call session closed", "reason", r.reason)
	return err
}

// setup resolves the caller context and opens the session. Both run while
// the relay is still pending; any failure here aborts before a leg starts.
func (r *Relay) setup(ctx context.Context) (live.Session, error) {
	var caller *live.CallerContext
	if r.cfg.CallerPhone != "" {
		lead, err := r.cfg.Leads.FindByPhone(ctx, r.cfg.CallerPhone)
		if err != nil {
			return nil, fmt.Errorf("relay: resolve caller %q: %w", r.cfg.CallerPhone, err)
		}
		caller = &live.CallerContext{
			Name:   lead.Name,
			Phone:  lead.Phone,
			Status: lead.Status,
			Notes:  lead.Notes,
		}
		if err := r.cfg.Leads.RecordInteraction(ctx, lead.ID, "call", "bridged voice call"); err != nil {
			r.log.Warn("recording call interaction failed", "lead", lead.ID, "err", err)
		}
	}

	sessCfg := live.NewSessionConfig(r.cfg.Instructions, r.cfg.Voice, r.cfg.Tools.Definitions(), caller)
	session, err := r.cfg.Provider.Connect(ctx, sessCfg)
	if err != nil {
		return nil, fmt.Errorf("relay: connect session: %w", err)
	}
	return session, nil
}

// inboundLeg reads telephony frames, transcodes media chunks, and feeds them
// to the session. It returns nil on stop, disconnect, or cancellation;
// frame-level decode and transcode errors drop the single frame and continue.
func (r *Relay) inboundLeg(ctx context.Context, conn Conn, session live.Session) error {
	transcoder := audio.NewInboundTranscoder()

	for {
		raw, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.noteReason("disconnect")
			r.log.Info("telephony connection closed", "err", err)
			return nil
		}

		frame, err := decodeInbound(raw)
		if err != nil {
			r.log.Warn("skipping malformed telephony frame", "err", err)
			r.metrics.RecordFrameDropped(ctx, "inbound", "malformed_frame")
			continue
		}

		switch frame.Kind {
		case frameStart:
			r.publishStreamSid(frame.StreamSid)
			r.log.Info("media stream started", "stream_sid", frame.StreamSid)

		case frameMedia:
			begin := time.Now()
			pcm, err := transcoder.Transcode(frame.Audio)
			if err != nil {
				r.log.Warn("dropping inbound media frame", "err", err)
				r.metrics.RecordFrameDropped(ctx, "inbound", "transcode")
				continue
			}
			r.metrics.TranscodeDuration.Record(ctx, time.Since(begin).Seconds(),
				observeDirection("inbound"))
			if len(pcm) == 0 {
				continue
			}
			if err := session.SendAudio(pcm); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("relay: send audio to session: %w", err)
			}

		case frameStop:
			r.noteReason("stop")
			r.log.Info("media stream stopped")
			return nil

		case frameIgnored:
			// connected / mark / dtmf: nothing to do.
		}
	}
}

// outboundLeg drains the session's event stream: audio is transcoded and
// written back to the telephony connection, tool-call batches are dispatched
// synchronously, turn markers are logged. It returns the session's terminal
// error unless the teardown was initiated on the telephony side.
func (r *Relay) outboundLeg(ctx context.Context, conn Conn, session live.Session, stopped <-chan struct{}) error {
	transcoder := audio.NewOutboundTranscoder()

	for ev := range session.Events() {
		switch ev.Kind {
		case live.EventAudio:
			sid, ok := r.currentStreamSid()
			if !ok {
				// No start frame yet: the outbound frame cannot be addressed.
				r.log.Warn("dropping model audio before stream start")
				r.metrics.RecordFrameDropped(ctx, "outbound", "no_stream_sid")
				continue
			}
			begin := time.Now()
			mulaw, err := transcoder.Transcode(ev.Audio)
			if err != nil {
				r.log.Warn("dropping outbound audio chunk", "err", err)
				r.metrics.RecordFrameDropped(ctx, "outbound", "transcode")
				continue
			}
			r.metrics.TranscodeDuration.Record(ctx, time.Since(begin).Seconds(),
				observeDirection("outbound"))
			if len(mulaw) == 0 {
				continue
			}
			msg, err := encodeOutboundMedia(sid, mulaw)
			if err != nil {
				r.log.Warn("dropping outbound audio chunk", "err", err)
				continue
			}
			if err := conn.Write(ctx, msg); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				r.noteReason("disconnect")
				r.log.Info("telephony write failed, ending outbound leg", "err", err)
				return nil
			}

		case live.EventToolCall:
			r.dispatchTools(ctx, session, ev.ToolCalls)

		case live.EventTurnComplete:
			r.log.Debug("model turn complete")
		}
	}

	if err := session.Err(); err != nil {
		select {
		case <-stopped:
			// Teardown started on the telephony side; the session error is a
			// consequence of our own close.
			return nil
		default:
		}
		r.noteReason("session_error")
		r.metrics.SessionErrors.Add(ctx, 1)
		return fmt.Errorf("relay: session: %w", err)
	}
	r.noteReason("session_closed")
	return nil
}

// dispatchTools answers one tool-call batch. Dispatch-level errors (unknown
// tool names) are logged; every invocation still receives a result.
func (r *Relay) dispatchTools(ctx context.Context, session live.Session, calls []live.ToolCall) {
	ctx, span := observe.StartSpan(ctx, observe.SpanToolDispatch)
	defer span.End()

	begin := time.Now()
	results, err := r.cfg.Tools.Dispatch(ctx, calls)
	if err != nil {
		r.log.Warn("tool dispatch reported errors", "err", err)
	}
	elapsed := time.Since(begin).Seconds()

	for i, call := range calls {
		status := "ok"
		if _, failed := results[i].Response["error"]; failed {
			status = "error"
		}
		r.metrics.RecordToolCall(ctx, call.Name, status)
		r.metrics.ToolDuration.Record(ctx, elapsed, observeTool(call.Name))
	}

	if err := session.SendToolResults(results); err != nil {
		if ctx.Err() == nil && !errors.Is(err, context.Canceled) {
			r.log.Warn("sending tool results failed", "err", err)
		}
	}
}

func observeDirection(direction string) metric.RecordOption {
	return metric.WithAttributes(observe.Attr("direction", direction))
}

func observeTool(tool string) metric.RecordOption {
	return metric.WithAttributes(observe.Attr("tool", tool))
}

// publishStreamSid records the stream identifier exactly once. Later start
// frames are ignored; the identifier is immutable for the call.
func (r *Relay) publishStreamSid(sid string) {
	r.sidOnce.Do(func() {
		r.streamSid = sid
		close(r.sidReady)
	})
}

// currentStreamSid returns the published stream identifier, or ok=false when
// no start frame has arrived yet.
func (r *Relay) currentStreamSid() (string, bool) {
	select {
	case <-r.sidReady:
		return r.streamSid, true
	default:
		return "", false
	}
}
