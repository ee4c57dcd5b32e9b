package api

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"signalscore/internal/application/acquisition"
	"signalscore/internal/application/common/logging"
	"signalscore/internal/application/common/slogger"

	"github.com/gorilla/websocket"
)

// Websocket timing.
const (
	socketWriteWait  = 10 * time.Second
	socketPongWait   = 60 * time.Second
	socketPingPeriod = socketPongWait * 9 / 10
	socketReadLimit  = 4096
)

// Session socket message types.
const (
	CommandSubmit = "submit"
	CommandReset  = "reset"

	MessageSession = "session"
	MessageError   = "error"
)

// MachineFactory builds the acquisition machine backing one websocket connection.
// observer must be registered on the machine so the connection learns about changes.
type MachineFactory func(observer acquisition.Observer) (*acquisition.Machine, error)

// SessionCommand is sent by websocket clients.
type SessionCommand struct {
	Type  string `json:"type"`
	Query string `json:"query,omitempty"`
}

// SessionMessage is sent to websocket clients.
type SessionMessage struct {
	Type     string               `json:"type"`
	Session  *acquisition.Session `json:"session,omitempty"`
	Advisory string               `json:"advisory,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// SessionSocketHandler relays an acquisition session over a websocket. Each connection
// owns one machine; clients submit queries and receive every state change.
type SessionSocketHandler struct {
	upgrader   websocket.Upgrader
	newMachine MachineFactory
	logger     logging.ApplicationLogger
}

// NewSessionSocketHandler creates a handler. allowedOrigins restricts cross-origin
// upgrades; empty allows same-origin requests only and "*" allows everything.
func NewSessionSocketHandler(newMachine MachineFactory, allowedOrigins []string) *SessionSocketHandler {
	return &SessionSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		newMachine: newMachine,
		logger:     slogger.WithComponent("session-socket"),
	}
}

func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	if slices.Contains(allowedOrigins, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if slices.Contains(allowedOrigins, origin) {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// ServeHTTP handles GET /ws/sessions.
func (h *SessionSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "Websocket upgrade failed", logging.Fields{"error": err.Error()})
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The observer runs under the machine's lock, so it only signals; the writer
	// reads the latest snapshot itself. Bursts of changes coalesce into one message.
	changed := make(chan struct{}, 1)
	observer := func(acquisition.Session) {
		select {
		case changed <- struct{}{}:
		default:
		}
	}

	machine, err := h.newMachine(observer)
	if err != nil {
		h.logger.ErrorWithError(ctx, err, "Failed to create acquisition machine", nil)
		_ = conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
		_ = conn.WriteJSON(SessionMessage{Type: MessageError, Error: "session unavailable"})
		return
	}
	defer machine.Close()

	errs := make(chan string, 4)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		h.writeLoop(ctx, conn, machine, changed, errs)
	}()

	h.logger.Info(ctx, "Session socket connected", logging.Fields{"remote_addr": r.RemoteAddr})
	h.readLoop(ctx, conn, machine, errs, &wg)

	cancel()
	wg.Wait()
	h.logger.Info(ctx, "Session socket closed", logging.Fields{"remote_addr": r.RemoteAddr})
}

// readLoop applies client commands in the order they arrive until the connection fails.
// Job creation runs on its own goroutine so a reset is not held up behind a slow call.
func (h *SessionSocketHandler) readLoop(
	ctx context.Context,
	conn *websocket.Conn,
	machine *acquisition.Machine,
	errs chan<- string,
	wg *sync.WaitGroup,
) {
	conn.SetReadLimit(socketReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(socketPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(socketPongWait))
	})

	for {
		var cmd SessionCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn(ctx, "Session socket read failed", logging.Fields{"error": err.Error()})
			}
			return
		}

		switch cmd.Type {
		case CommandSubmit:
			// The session is installed before the next command is read; only the job
			// creation call runs in the background.
			if _, create := machine.Start(ctx, cmd.Query); create != nil {
				wg.Add(1)
				go func() {
					defer wg.Done()
					create()
				}()
			}
		case CommandReset:
			machine.Reset()
		default:
			select {
			case errs <- "unknown command type: " + cmd.Type:
			default:
			}
		}
	}
}

func (h *SessionSocketHandler) writeLoop(
	ctx context.Context,
	conn *websocket.Conn,
	machine *acquisition.Machine,
	changed <-chan struct{},
	errs <-chan string,
) {
	ticker := time.NewTicker(socketPingPeriod)
	defer ticker.Stop()

	write := func(msg SessionMessage) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
		if err := conn.WriteJSON(msg); err != nil {
			h.logger.Debug(ctx, "Session socket write failed", logging.Fields{"error": err.Error()})
			return false
		}
		return true
	}
	sendSnapshot := func() bool {
		session := machine.Snapshot()
		return write(SessionMessage{Type: MessageSession, Session: &session, Advisory: session.Advisory()})
	}

	if !sendSnapshot() {
		return
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(socketWriteWait))
			return
		case <-changed:
			if !sendSnapshot() {
				return
			}
		case msg := <-errs:
			if !write(SessionMessage{Type: MessageError, Error: msg}) {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(socketWriteWait)); err != nil {
				return
			}
		}
	}
}
