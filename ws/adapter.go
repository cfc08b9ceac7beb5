// Package ws is the client side of the game server's websocket channel.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/singleflight"
	"poker-table-client/clienterrors"
	"poker-table-client/wsutil"
)

// ConnectionState is the adapter's connection lifecycle.
type ConnectionState int

const (
	StateIdle ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateDisconnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// ConnectionEvent reports a lifecycle change. Reconnected is set on every
// Connected event after the first. Err carries the cause of a drop.
type ConnectionEvent struct {
	State       ConnectionState
	Reconnected bool
	Err         error
}

// Handler receives the raw JSON object of one inbound message.
type Handler func(raw json.RawMessage)

// JoinFunc builds the join message sent first on every new connection.
// ok == false means there is nothing to join yet.
type JoinFunc func() (msgType string, payload any, ok bool)

// Options configures an Adapter. Zero fields take defaults.
type Options struct {
	URL    string
	Header http.Header

	SendQueueSize    int
	MaxMessageSize   int64
	WriteWait        time.Duration
	PongWait         time.Duration
	HandshakeTimeout time.Duration

	ReconnectInitial time.Duration
	ReconnectMax     time.Duration
	// ReconnectWindow bounds how long a dropped connection is retried
	// before the adapter gives up and reports StateDisconnected.
	ReconnectWindow time.Duration
}

func (o Options) withDefaults() Options {
	if o.SendQueueSize <= 0 {
		o.SendQueueSize = 64
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 64 * 1024
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	if o.ReconnectInitial <= 0 {
		o.ReconnectInitial = 500 * time.Millisecond
	}
	if o.ReconnectMax <= 0 {
		o.ReconnectMax = 5 * time.Second
	}
	if o.ReconnectWindow <= 0 {
		o.ReconnectWindow = 30 * time.Second
	}
	return o
}

// pingPeriod must be less than PongWait.
func (o Options) pingPeriod() time.Duration {
	return (o.PongWait * 9) / 10
}

type event struct {
	msg  *InboundEnvelope
	conn *ConnectionEvent
}

// Adapter owns one logical connection to the game server. Inbound messages
// and connection events are delivered to handlers one at a time, in arrival
// order, from a single dispatch goroutine.
//
// Send fails fast with clienterrors.ErrNotConnected while no connection is
// live; nothing is buffered across connections.
type Adapter struct {
	opts   Options
	dialer *websocket.Dialer
	log    *slog.Logger

	connectGroup singleflight.Group

	mu            sync.Mutex
	state         ConnectionState
	conn          *websocket.Conn
	send          chan []byte
	handlers      map[string][]Handler
	connHandlers  []func(ConnectionEvent)
	join          JoinFunc
	everConnected bool
	closed        bool

	events       chan event
	life         context.Context
	stop         context.CancelFunc
	dispatchDone chan struct{}
	closeOnce    sync.Once
}

// NewAdapter creates an Adapter and starts its dispatch goroutine.
// Call Disconnect to release it.
func NewAdapter(opts Options, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.withDefaults()
	life, stop := context.WithCancel(context.Background())
	a := &Adapter{
		opts: opts,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HandshakeTimeout,
		},
		log:          logger.With("tag", "ws"),
		handlers:     make(map[string][]Handler),
		events:       make(chan event, 256),
		life:         life,
		stop:         stop,
		dispatchDone: make(chan struct{}),
	}
	go a.dispatch()
	return a
}

// State returns the current connection state.
func (a *Adapter) State() ConnectionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// OnMessage registers h for inbound messages of msgType.
func (a *Adapter) OnMessage(msgType string, h Handler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers[msgType] = append(a.handlers[msgType], h)
}

// OnConnectionChange registers h for lifecycle events.
func (a *Adapter) OnConnectionChange(h func(ConnectionEvent)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connHandlers = append(a.connHandlers, h)
}

// SetJoin installs the join builder used on every (re)connect.
func (a *Adapter) SetJoin(fn JoinFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.join = fn
}

// Connect dials the server. Concurrent and repeated calls share a single
// connection: while one dial is in flight others wait for its result, and
// once connected (or reconnecting) Connect returns nil without dialing.
func (a *Adapter) Connect(ctx context.Context) error {
	_, err, _ := a.connectGroup.Do("connect", func() (any, error) {
		a.mu.Lock()
		if a.closed {
			a.mu.Unlock()
			return nil, clienterrors.ErrClosed
		}
		if a.state == StateConnected || a.state == StateReconnecting {
			a.mu.Unlock()
			return nil, nil
		}
		prev := a.state
		a.state = StateConnecting
		a.mu.Unlock()

		conn, err := a.dial(ctx)
		if err != nil {
			a.mu.Lock()
			if a.state == StateConnecting {
				a.state = prev
			}
			a.mu.Unlock()
			return nil, err
		}
		return nil, a.attach(conn)
	})
	return err
}

// Send queues a message for the live connection.
func (a *Adapter) Send(msgType string, payload any) error {
	data, err := encode(msgType, payload)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateConnected || a.send == nil {
		return fmt.Errorf("send %s: %w", msgType, clienterrors.ErrNotConnected)
	}
	if !wsutil.TrySend(a.send, data) {
		return fmt.Errorf("send %s: %w", msgType, clienterrors.ErrSendQueueFull)
	}
	return nil
}

// Disconnect closes the connection for good and stops reconnecting. The
// final Disconnected event is delivered before Disconnect returns. It must
// not be called from a handler.
func (a *Adapter) Disconnect() {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		a.state = StateDisconnected
		a.conn = nil
		if a.send != nil {
			// writePump sends a close frame and closes the socket.
			close(a.send)
			a.send = nil
		}
		hs := append([]func(ConnectionEvent){}, a.connHandlers...)
		a.mu.Unlock()

		a.stop()
		<-a.dispatchDone
		for _, h := range hs {
			h(ConnectionEvent{State: StateDisconnected})
		}
		a.log.Info("disconnected")
	})
}

func (a *Adapter) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := a.dialer.DialContext(ctx, a.opts.URL, a.opts.Header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", a.opts.URL, err)
	}
	return conn, nil
}

// attach makes conn the live connection. The join message is queued before
// the state flips to connected, so it is always the first frame written.
func (a *Adapter) attach(conn *websocket.Conn) error {
	joinData := a.joinMessage()

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		conn.Close()
		return clienterrors.ErrClosed
	}
	send := make(chan []byte, a.opts.SendQueueSize)
	if joinData != nil {
		send <- joinData
	}
	a.conn = conn
	a.send = send
	a.state = StateConnected
	reconnected := a.everConnected
	a.everConnected = true
	a.mu.Unlock()

	a.log.Info("connected", "url", a.opts.URL, "reconnected", reconnected, "join", joinData != nil)
	a.emit(event{conn: &ConnectionEvent{State: StateConnected, Reconnected: reconnected}})

	go a.writePump(conn, send)
	go a.readPump(conn)
	return nil
}

func (a *Adapter) joinMessage() []byte {
	a.mu.Lock()
	join := a.join
	a.mu.Unlock()
	if join == nil {
		return nil
	}
	msgType, payload, ok := join()
	if !ok {
		return nil
	}
	data, err := encode(msgType, payload)
	if err != nil {
		a.log.Error("cannot encode join message", "err", err)
		return nil
	}
	return data
}

// dropped handles the loss of conn. Stale calls for a replaced connection are ignored.
func (a *Adapter) dropped(conn *websocket.Conn, cause error) {
	a.mu.Lock()
	if a.conn != conn || a.closed {
		a.mu.Unlock()
		return
	}
	a.conn = nil
	close(a.send)
	a.send = nil
	a.state = StateReconnecting
	a.mu.Unlock()

	a.log.Warn("connection lost, reconnecting", "err", cause)
	a.emit(event{conn: &ConnectionEvent{State: StateReconnecting, Err: cause}})
	go a.reconnect()
}

func (a *Adapter) reconnect() {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = a.opts.ReconnectInitial
	eb.MaxInterval = a.opts.ReconnectMax

	conn, err := backoff.Retry(a.life, func() (*websocket.Conn, error) {
		return a.dial(a.life)
	},
		backoff.WithBackOff(eb),
		backoff.WithMaxElapsedTime(a.opts.ReconnectWindow),
		backoff.WithNotify(func(err error, next time.Duration) {
			a.log.Debug("reconnect attempt failed", "err", err, "retry_in", next)
		}),
	)
	if err != nil {
		a.mu.Lock()
		closed := a.closed
		if !closed {
			a.state = StateDisconnected
		}
		a.mu.Unlock()
		if closed {
			return
		}
		a.log.Warn("gave up reconnecting", "window", a.opts.ReconnectWindow, "err", err)
		a.emit(event{conn: &ConnectionEvent{State: StateDisconnected, Err: err}})
		return
	}
	if err := a.attach(conn); err != nil {
		a.log.Debug("reconnected after close", "err", err)
	}
}

func (a *Adapter) emit(ev event) {
	select {
	case a.events <- ev:
	case <-a.life.Done():
	}
}

func (a *Adapter) dispatch() {
	defer close(a.dispatchDone)
	for {
		select {
		case <-a.life.Done():
			return
		case ev := <-a.events:
			a.deliver(ev)
		}
	}
}

func (a *Adapter) deliver(ev event) {
	a.mu.Lock()
	var (
		hs  []Handler
		chs []func(ConnectionEvent)
	)
	if ev.conn != nil {
		chs = append(chs, a.connHandlers...)
	} else {
		hs = append(hs, a.handlers[ev.msg.Type]...)
	}
	a.mu.Unlock()

	if ev.conn != nil {
		for _, h := range chs {
			h(*ev.conn)
		}
		return
	}
	if len(hs) == 0 {
		a.log.Debug("unhandled message", "type", ev.msg.Type)
		return
	}
	for _, h := range hs {
		h(ev.msg.Raw)
	}
}

// readPump pumps messages from the websocket connection to the dispatcher.
func (a *Adapter) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(a.opts.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(a.opts.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(a.opts.PongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				a.log.Debug("read error", "err", err)
			}
			a.dropped(conn, err)
			return
		}
		conn.SetReadDeadline(time.Now().Add(a.opts.PongWait))

		var env InboundEnvelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			a.log.Warn("ignoring malformed message", "bytes", len(data))
			continue
		}
		a.emit(event{msg: &env})
	}
}

// writePump pumps queued messages to the websocket connection and keeps it
// alive with pings. It owns closing the socket.
func (a *Adapter) writePump(conn *websocket.Conn, send <-chan []byte) {
	ticker := time.NewTicker(a.opts.pingPeriod())
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(a.opts.WriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				a.log.Debug("write error", "err", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(a.opts.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
