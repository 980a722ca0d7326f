package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// DefaultBackendURL is the realtime websocket endpoint of the
	// conversational backend.
	DefaultBackendURL = "wss://api.openai.com/v1/realtime"

	// DefaultModel is the realtime model requested when none is
	// configured.
	DefaultModel = "gpt-4o-realtime-preview-2024-12-17"

	defaultConnectTimeout = 15 * time.Second
)

// ErrConnClosed is returned by Send when the channel is not open.
// Callers treat it as a reportable condition, not a failure of the
// session: the UI is expected to disable send affordances based on
// channel state.
var ErrConnClosed = errors.New("realtime: connection is closed")

// TransportError represents websocket transport-level failures (DNS,
// dial, handshake, mid-session read errors) while talking to the
// backend.
//
// Use errors.As(err, &TransportError{}) to distinguish transport
// failures from protocol decode errors.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Op != "" && e.URL != "":
		return fmt.Sprintf("transport error during %s %s: %v", e.Op, e.URL, e.Err)
	case e.Op != "":
		return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("transport error: %v", e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Track is a local media track whose capture must stop when the
// session ends. Stop must be safe to call more than once.
type Track interface {
	Stop()
}

// DialOptions configures a realtime connection attempt.
type DialOptions struct {
	// URL overrides DefaultBackendURL. http/https schemes are
	// rewritten to ws/wss.
	URL string

	// Model is appended as the model query parameter.
	Model string

	// Header carries extra handshake headers.
	Header http.Header
}

// Conn is one realtime bidirectional session. It owns the websocket
// and any attached media tracks, exposes a single decoded inbound
// event stream, and closes idempotently.
type Conn struct {
	ws *websocket.Conn

	events chan ServerEvent
	done   chan struct{}
	stop   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool

	trackMu sync.Mutex
	tracks  []Track

	errMu sync.Mutex
	err   error
}

// Dial opens a realtime session authenticated with the given
// ephemeral credential. It returns once the channel is open or the
// attempt fails.
func Dial(ctx context.Context, credential string, opts DialOptions) (*Conn, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, fmt.Errorf("realtime: credential must not be empty")
	}

	wsURL, err := buildBackendURL(opts)
	if err != nil {
		return nil, err
	}

	headers := make(http.Header)
	for key, values := range opts.Header {
		for _, value := range values {
			headers.Add(key, value)
		}
	}
	headers.Set("Authorization", "Bearer "+credential)
	headers.Set("OpenAI-Beta", "realtime=v1")

	dialer := websocket.DefaultDialer
	if dialer == nil {
		dialer = &websocket.Dialer{}
	}

	dialCtx := ctx
	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		dialCtx, cancel = context.WithTimeout(ctx, defaultConnectTimeout)
		defer cancel()
	}

	ws, resp, err := dialer.DialContext(dialCtx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, &TransportError{Op: "GET", URL: wsURL, Err: fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)}
		}
		return nil, &TransportError{Op: "GET", URL: wsURL, Err: err}
	}

	conn := &Conn{
		ws:     ws,
		events: make(chan ServerEvent, 256),
		done:   make(chan struct{}),
		stop:   make(chan struct{}),
	}
	go conn.readLoop()
	return conn, nil
}

func buildBackendURL(opts DialOptions) (string, error) {
	raw := strings.TrimSpace(opts.URL)
	if raw == "" {
		raw = DefaultBackendURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("realtime: invalid backend URL: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(u.Scheme)) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("realtime: backend URL must use http(s) or ws(s)")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	query := u.Query()
	query.Set("model", model)
	u.RawQuery = query.Encode()
	return u.String(), nil
}

// Events yields decoded inbound protocol events for the lifetime of
// the channel. The stream is lazy, non-restartable, and closes when
// the connection ends.
func (c *Conn) Events() <-chan ServerEvent {
	if c == nil {
		return nil
	}
	return c.events
}

// Open reports whether the channel is open for sending.
func (c *Conn) Open() bool {
	return c != nil && !c.closed.Load()
}

// Send marshals and writes one client event. It returns ErrConnClosed
// when the channel is not open and never panics into caller control
// flow.
func (c *Conn) Send(event any) error {
	if c == nil || c.closed.Load() {
		return ErrConnClosed
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("realtime: encode client event: %w", err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed.Load() {
		return ErrConnClosed
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		return &TransportError{Op: "WRITE", Err: err}
	}
	return nil
}

// AttachTrack registers a local media track to stop on Close.
func (c *Conn) AttachTrack(track Track) {
	if c == nil || track == nil {
		return
	}
	c.trackMu.Lock()
	c.tracks = append(c.tracks, track)
	c.trackMu.Unlock()
}

// Close stops attached media tracks and closes the channel. It is
// idempotent: closing an already-closed connection returns nil.
func (c *Conn) Close() error {
	if c == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.stop)

		c.trackMu.Lock()
		tracks := c.tracks
		c.tracks = nil
		c.trackMu.Unlock()
		for _, track := range tracks {
			track.Stop()
		}

		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
		c.writeMu.Unlock()
		_ = c.ws.Close()
	})
	<-c.done
	return nil
}

// Err returns the terminal connection error, if any. It blocks until
// the read loop has finished.
func (c *Conn) Err() error {
	if c == nil {
		return nil
	}
	<-c.done
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *Conn) setErr(err error) {
	if err == nil {
		return
	}
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

func (c *Conn) readLoop() {
	defer close(c.done)
	defer close(c.events)

	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || c.closed.Load() {
				return
			}
			c.setErr(&TransportError{Op: "READ", Err: err})
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		event, decodeErr := DecodeServerEvent(data)
		if decodeErr != nil {
			c.setErr(decodeErr)
			return
		}
		// Blocking emit preserves arrival order; c.stop unblocks a
		// stalled emit when the consumer is gone.
		select {
		case c.events <- event:
		case <-c.stop:
			return
		}
	}
}
