package signaling

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/orionhq/orion-signal/internal/auth"
)

// State is the lifecycle stage of a signaling session. Transitions are
// forward-only; Closed is terminal.
type State int

const (
	StateConnecting State = iota
	StateAuthenticating
	StateJoined
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

const closeWriteTimeout = 5 * time.Second

// errNotJoined reports a relay write to a session outside StateJoined.
var errNotJoined = errors.New("session not joined")

// session is one WebSocket connection moving through the admit-join-relay
// lifecycle. All writes to the connection go through writeMu; control frames
// use WriteControl, which gorilla permits concurrently with data writes.
type session struct {
	id     string
	claims auth.Claims
	conn   *websocket.Conn
	log    zerolog.Logger

	writeMu sync.Mutex

	mu    sync.Mutex
	state State

	closeOnce sync.Once
	// leave detaches the session from its room. Set exactly once, when the
	// session joins; nil until then.
	leave func()
}

func newSession(conn *websocket.Conn, log zerolog.Logger) *session {
	id := uuid.NewString()
	return &session{
		id:    id,
		conn:  conn,
		log:   log.With().Str("session_id", id).Logger(),
		state: StateConnecting,
	}
}

func (s *session) SessionID() string { return s.id }

// setLeave installs the room-detach hook. Must be called before the session
// advances to StateJoined.
func (s *session) setLeave(leave func()) {
	s.mu.Lock()
	s.leave = leave
	s.mu.Unlock()
}

func (s *session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// advance moves the session to next if that is a forward transition. It
// reports whether the transition happened; a session that already closed
// stays closed.
func (s *session) advance(next State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if next <= s.state {
		return false
	}
	s.state = next
	return true
}

// Write relays a raw frame to this session's client. Only joined sessions
// accept relayed traffic; anything else reports an error so the router can
// count the drop.
func (s *session) Write(data []byte) error {
	if s.State() != StateJoined {
		return errNotJoined
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Close ends the session: it sends a close frame with the given code and
// reason, closes the underlying connection, and leaves the room if the
// session had joined one. Safe to call from any goroutine, any number of
// times; only the first call has effect.
func (s *session) Close(code int, reason string) {
	s.closeOnce.Do(func() {
		wasJoined := false
		s.mu.Lock()
		if s.state == StateJoined {
			wasJoined = true
		}
		s.state = StateClosed
		leave := s.leave
		s.mu.Unlock()

		msg := websocket.FormatCloseMessage(code, reason)
		deadline := time.Now().Add(closeWriteTimeout)
		if err := s.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			s.log.Debug().Err(err).Msg("close frame write failed")
		}
		if err := s.conn.Close(); err != nil {
			s.log.Debug().Err(err).Msg("connection close failed")
		}

		if wasJoined && leave != nil {
			leave()
		}

		s.log.Info().
			Int("close_code", code).
			Str("reason", reason).
			Msg("session closed")
	})
}
