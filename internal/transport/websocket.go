package transport

import (
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/life-stream-dev/mqttbroker/internal/logger"
)

// ErrInvalidMessage indicates a websocket frame that was not binary; MQTT
// over WebSocket carries the protocol exclusively in binary messages
// [MQTT-6.0.0-1].
var ErrInvalidMessage = errors.New("transport: websocket message type not binary")

// Websocket accepts WebSocket upgrade requests and presents each upgraded
// connection as a net.Conn carrying the raw MQTT byte stream, so the broker
// loop treats it exactly like a TCP session.
type Websocket struct {
	id       string
	server   *http.Server
	upgrader *websocket.Upgrader
	pending  chan net.Conn
}

// NewWebsocket binds a WebSocket listener on address. The HTTP server
// serving the upgrades runs on its own goroutine; accepted connections are
// queued until the broker loop collects them via Accept.
func NewWebsocket(id, address string) (*Websocket, error) {
	l := &Websocket{
		id:      id,
		pending: make(chan net.Conn, 8),
		upgrader: &websocket.Upgrader{
			Subprotocols: []string{"mqtt"},
			CheckOrigin:  func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", l.handler)
	l.server = &http.Server{Addr: address, Handler: mux}

	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	logger.Info("websocket listener bound", "id", id, "address", ln.Addr().String())

	go func() {
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("websocket listener failed", "id", id, "err", err)
		}
	}()

	return l, nil
}

// ID returns the id of the listener.
func (l *Websocket) ID() string {
	return l.id
}

func (l *Websocket) handler(w http.ResponseWriter, r *http.Request) {
	c, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	l.pending <- newWSConn(c)
}

// Accept waits up to timeout for an upgraded connection, returning
// ErrNoConnection when none arrived.
func (l *Websocket) Accept(timeout time.Duration) (net.Conn, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case conn := <-l.pending:
		return conn, nil
	case <-t.C:
		return nil, ErrNoConnection
	}
}

// Close shuts the upgrade server down.
func (l *Websocket) Close() error {
	return l.server.Close()
}

// wsConn adapts a websocket connection to the net.Conn interface the
// broker's session reader expects, flattening binary messages into a
// contiguous byte stream. A pump goroutine drains messages into a channel
// so Read can honour the broker loop's short poll deadlines — timing out a
// read on the websocket connection itself would put the gorilla connection
// into a permanent failure state.
type wsConn struct {
	c *websocket.Conn

	incoming chan []byte
	buf      []byte

	mu       sync.Mutex
	deadline time.Time

	closed  chan struct{}
	closeFn sync.Once
}

func newWSConn(c *websocket.Conn) *wsConn {
	ws := &wsConn{
		c:        c,
		incoming: make(chan []byte, 8),
		closed:   make(chan struct{}),
	}
	go ws.pump()
	return ws
}

// pump relays binary messages from the websocket into the incoming queue
// until the peer or the broker closes the connection.
func (ws *wsConn) pump() {
	defer ws.shut()
	for {
		op, r, err := ws.c.NextReader()
		if err != nil {
			return
		}
		if op != websocket.BinaryMessage {
			return
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return
		}
		select {
		case ws.incoming <- data:
		case <-ws.closed:
			return
		}
	}
}

func (ws *wsConn) shut() {
	ws.closeFn.Do(func() { close(ws.closed) })
}

// timeoutError satisfies net.Error the way a timed-out socket read does, so
// the broker loop treats an empty poll on a websocket session the same as
// on a TCP one.
type timeoutError struct{}

func (timeoutError) Error() string   { return "transport: websocket read deadline exceeded" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// Read returns buffered stream bytes, waiting until the configured read
// deadline for the pump to surface the next message.
func (ws *wsConn) Read(p []byte) (int, error) {
	if len(ws.buf) > 0 {
		n := copy(p, ws.buf)
		ws.buf = ws.buf[n:]
		return n, nil
	}

	ws.mu.Lock()
	deadline := ws.deadline
	ws.mu.Unlock()

	var wait <-chan time.Time
	if !deadline.IsZero() {
		t := time.NewTimer(time.Until(deadline))
		defer t.Stop()
		wait = t.C
	}

	select {
	case data := <-ws.incoming:
		n := copy(p, data)
		ws.buf = data[n:]
		return n, nil
	case <-ws.closed:
		return 0, io.EOF
	case <-wait:
		return 0, timeoutError{}
	}
}

// Write writes p to the websocket connection as one binary message.
func (ws *wsConn) Write(p []byte) (int, error) {
	select {
	case <-ws.closed:
		return 0, net.ErrClosed
	default:
	}
	if err := ws.c.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close tears the websocket down.
func (ws *wsConn) Close() error {
	ws.shut()
	return ws.c.Close()
}

func (ws *wsConn) LocalAddr() net.Addr  { return ws.c.LocalAddr() }
func (ws *wsConn) RemoteAddr() net.Addr { return ws.c.RemoteAddr() }

// SetReadDeadline bounds the next Read. The deadline applies to the pump's
// queue, never to the underlying websocket read.
func (ws *wsConn) SetReadDeadline(t time.Time) error {
	ws.mu.Lock()
	ws.deadline = t
	ws.mu.Unlock()
	return nil
}

func (ws *wsConn) SetWriteDeadline(t time.Time) error {
	return ws.c.SetWriteDeadline(t)
}

func (ws *wsConn) SetDeadline(t time.Time) error {
	if err := ws.SetReadDeadline(t); err != nil {
		return err
	}
	return ws.SetWriteDeadline(t)
}
