// Package signaling implements the WebSocket rendezvous endpoint that pairs
// two devices of the same user and relays their WebRTC negotiation messages.
//
// A connection is admitted only after its short-lived token verifies and the
// claimed pairing is confirmed active and owned by the claimed user. Admitted
// sessions join a two-party room keyed by pair id; each text frame that
// carries a well-formed envelope is forwarded byte-for-byte to the room peer.
// The relay never inspects, stores, or rewrites payloads beyond the envelope
// fields it needs for routing.
package signaling
