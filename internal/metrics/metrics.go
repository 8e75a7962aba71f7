package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rejection reasons (connection closed during setup).
const (
	RejectMissingToken      = "missing_token"
	RejectInvalidToken      = "invalid_token"
	RejectMissingClaims     = "missing_claims"
	RejectPairNotFound      = "pair_not_found"
	RejectOwnershipMismatch = "ownership_mismatch"
	RejectStoreUnavailable  = "store_unavailable"
	RejectRoomFull          = "room_full"
)

// Drop reasons (message discarded, connection unaffected).
const (
	DropNotJSON       = "not_json"
	DropInvalidType   = "invalid_type"
	DropMissingPairID = "missing_pair_id"
	DropPairMismatch  = "pair_mismatch"
	DropNoPeer        = "no_peer"
	DropPeerWrite     = "peer_write_failed"
	DropRateLimited   = "rate_limited"
)

// Gauges
var (
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orion_signal_active_sessions",
		Help: "Number of sessions currently joined to a room",
	})
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orion_signal_active_rooms",
		Help: "Number of rooms with at least one joined session",
	})
)

// Counters
var (
	ConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orion_signal_connections_total",
		Help: "Total WebSocket connections accepted for the signaling endpoint",
	})
	ConnectionsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orion_signal_connections_rejected_total",
		Help: "Connections rejected during handshake/authorization by reason",
	}, []string{"reason"})
	MessagesRelayedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orion_signal_messages_relayed_total",
		Help: "Signaling messages relayed to the room peer by type",
	}, []string{"type"})
	MessagesDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orion_signal_messages_dropped_total",
		Help: "Inbound signaling messages dropped by reason",
	}, []string{"reason"})
)
