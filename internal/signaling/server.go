package signaling

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/orionhq/orion-signal/internal/auth"
	"github.com/orionhq/orion-signal/internal/metrics"
	"github.com/orionhq/orion-signal/internal/pairing"
	"github.com/orionhq/orion-signal/internal/ratelimit"
	"github.com/orionhq/orion-signal/internal/room"
)

// Close reasons sent to clients. Stable strings; client UIs key off them.
const (
	reasonNoToken         = "No token provided"
	reasonInvalidToken    = "Invalid token"
	reasonMissingClaims   = "Token missing required claims"
	reasonPairInvalid     = "Invalid or inactive pair"
	reasonPairUnowned     = "Unauthorized pair"
	reasonStoreError      = "Server error during validation"
	reasonRoomFull        = "Room is full"
	reasonIdleTimeout     = "Idle timeout"
	reasonRateLimited     = "Message rate limit exceeded"
	reasonServerShutdown  = "Server shutting down"
	reasonInternalFailure = "Internal error"
)

// Config carries the collaborators and tunables for the signaling endpoint.
type Config struct {
	Verifier   *auth.Verifier
	Authorizer *pairing.Authorizer
	Rooms      *room.Registry

	// IdleTimeout closes a session that produced no traffic (including pong
	// responses) for this long. PingInterval must be shorter so a healthy but
	// quiet client keeps refreshing the deadline.
	IdleTimeout  time.Duration
	PingInterval time.Duration

	// MaxMessageBytes caps a single inbound frame. Oversized frames fail the
	// read and end the session.
	MaxMessageBytes int64

	// MaxMessagesPerSecond bounds the sustained inbound message rate per
	// session. Zero disables the limit.
	MaxMessagesPerSecond int64

	Logger zerolog.Logger
}

// Server is the WebSocket signaling endpoint. One ServeHTTP call runs one
// session for the life of its connection.
type Server struct {
	cfg      Config
	upgrader websocket.Upgrader
}

func NewServer(cfg Config) *Server {
	return &Server{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browsers on arbitrary origins pair with this relay; the token
			// in the query string is the access control, not the Origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error to the client.
		s.cfg.Logger.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	metrics.ConnectionsTotal.Inc()

	sess := newSession(conn, s.cfg.Logger)
	defer sess.Close(websocket.CloseNormalClosure, "")

	sess.advance(StateAuthenticating)

	claims, ok := s.authenticate(sess, r)
	if !ok {
		return
	}
	sess.claims = claims

	if !s.authorize(sess, r) {
		return
	}
	if !s.join(sess) {
		return
	}

	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()

	sess.log.Info().
		Str("pair_id", claims.PairID).
		Str("device_id", claims.DeviceID).
		Msg("session joined")

	s.readLoop(sess)
}

// authenticate verifies the query token and loads its claims. On failure the
// session is closed with a policy-violation frame and false is returned.
func (s *Server) authenticate(sess *session, r *http.Request) (auth.Claims, bool) {
	token, err := auth.TokenFromQuery(r.URL.Query())
	if err != nil {
		s.reject(sess, websocket.ClosePolicyViolation, reasonNoToken, metrics.RejectMissingToken)
		return auth.Claims{}, false
	}

	claims, err := s.cfg.Verifier.Verify(token)
	switch {
	case errors.Is(err, auth.ErrMissingClaims):
		s.reject(sess, websocket.ClosePolicyViolation, reasonMissingClaims, metrics.RejectMissingClaims)
		return auth.Claims{}, false
	case err != nil:
		s.reject(sess, websocket.ClosePolicyViolation, reasonInvalidToken, metrics.RejectInvalidToken)
		return auth.Claims{}, false
	}
	return claims, true
}

// authorize confirms the claimed pairing against the pairing store. Exactly
// one lookup per connection attempt.
func (s *Server) authorize(sess *session, r *http.Request) bool {
	err := s.cfg.Authorizer.Authorize(r.Context(), sess.claims.PairID, sess.claims.UserID)
	switch {
	case err == nil:
		return true
	case errors.Is(err, pairing.ErrPairNotFound):
		s.reject(sess, websocket.ClosePolicyViolation, reasonPairInvalid, metrics.RejectPairNotFound)
	case errors.Is(err, pairing.ErrOwnershipMismatch):
		s.reject(sess, websocket.ClosePolicyViolation, reasonPairUnowned, metrics.RejectOwnershipMismatch)
	default:
		sess.log.Error().Err(err).Str("pair_id", sess.claims.PairID).Msg("pairing lookup failed")
		s.reject(sess, websocket.CloseInternalServerErr, reasonStoreError, metrics.RejectStoreUnavailable)
	}
	return false
}

// join admits the session to its pair's room, enforcing the two-party cap.
func (s *Server) join(sess *session) bool {
	pairID := sess.claims.PairID
	if err := s.cfg.Rooms.Add(pairID, sess); err != nil {
		s.reject(sess, websocket.ClosePolicyViolation, reasonRoomFull, metrics.RejectRoomFull)
		return false
	}

	sess.setLeave(func() {
		s.cfg.Rooms.Remove(pairID, sess)
		metrics.ActiveRooms.Set(float64(s.cfg.Rooms.Len()))
	})

	if !sess.advance(StateJoined) {
		// Closed between Add and here; undo the membership.
		s.cfg.Rooms.Remove(pairID, sess)
		return false
	}
	metrics.ActiveRooms.Set(float64(s.cfg.Rooms.Len()))
	return true
}

func (s *Server) reject(sess *session, code int, reason, metricReason string) {
	metrics.ConnectionsRejectedTotal.WithLabelValues(metricReason).Inc()
	sess.Close(code, reason)
}

// readLoop pumps inbound frames until the connection dies or idles out,
// routing each well-formed envelope to the room peer.
func (s *Server) readLoop(sess *session) {
	conn := sess.conn
	conn.SetReadLimit(s.cfg.MaxMessageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
	})

	stopPing := make(chan struct{})
	defer close(stopPing)
	go s.pingLoop(sess, stopPing)

	var limiter *ratelimit.TokenBucket
	if s.cfg.MaxMessagesPerSecond > 0 {
		limiter = ratelimit.NewTokenBucket(ratelimit.RealClock{},
			s.cfg.MaxMessagesPerSecond, s.cfg.MaxMessagesPerSecond)
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				sess.log.Info().Msg("session idle timeout")
				sess.Close(websocket.CloseNormalClosure, reasonIdleTimeout)
				return
			}
			sess.Close(websocket.CloseNormalClosure, "")
			return
		}
		// Any inbound traffic proves liveness.
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))

		if limiter != nil && !limiter.Allow(1) {
			metrics.MessagesDroppedTotal.WithLabelValues(metrics.DropRateLimited).Inc()
			sess.log.Warn().Msg("session exceeded message rate limit")
			sess.Close(websocket.ClosePolicyViolation, reasonRateLimited)
			return
		}
		if msgType != websocket.TextMessage {
			metrics.MessagesDroppedTotal.WithLabelValues(metrics.DropNotJSON).Inc()
			continue
		}
		s.route(sess, data)
	}
}

// route forwards a raw frame to the room peer if its envelope is well formed
// and names the session's own pair. Every failure is a silent drop; malformed
// input from an authenticated client never ends the connection.
func (s *Server) route(sess *session, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		metrics.MessagesDroppedTotal.WithLabelValues(metrics.DropNotJSON).Inc()
		return
	}
	if !validType(env.Type) {
		metrics.MessagesDroppedTotal.WithLabelValues(metrics.DropInvalidType).Inc()
		return
	}
	if env.PairID == "" {
		metrics.MessagesDroppedTotal.WithLabelValues(metrics.DropMissingPairID).Inc()
		return
	}
	if env.PairID != sess.claims.PairID {
		// Forged routing attempt; drop without acknowledgement.
		metrics.MessagesDroppedTotal.WithLabelValues(metrics.DropPairMismatch).Inc()
		sess.log.Warn().Str("claimed_pair_id", env.PairID).Msg("message for foreign pair dropped")
		return
	}

	peer := s.cfg.Rooms.Peer(env.PairID, sess)
	if peer == nil {
		metrics.MessagesDroppedTotal.WithLabelValues(metrics.DropNoPeer).Inc()
		return
	}
	target, ok := peer.(*session)
	if !ok {
		metrics.MessagesDroppedTotal.WithLabelValues(metrics.DropNoPeer).Inc()
		return
	}
	if err := target.Write(data); err != nil {
		metrics.MessagesDroppedTotal.WithLabelValues(metrics.DropPeerWrite).Inc()
		sess.log.Debug().Err(err).Msg("peer write failed")
		return
	}
	metrics.MessagesRelayedTotal.WithLabelValues(env.Type).Inc()
}

// pingLoop keeps the connection verifiably alive. WriteControl is safe to
// call concurrently with data writes, so this does not take writeMu.
func (s *Server) pingLoop(sess *session, stop <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			deadline := time.Now().Add(closeWriteTimeout)
			if err := sess.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				sess.log.Debug().Err(err).Msg("ping failed")
				sess.Close(websocket.CloseNormalClosure, "")
				return
			}
		}
	}
}
