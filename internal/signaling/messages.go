package signaling

// envelope is the routing header of a signaling frame. Decoding ignores the
// rest of the payload; routed frames are forwarded verbatim, not re-encoded.
type envelope struct {
	Type   string `json:"t"`
	PairID string `json:"pairId"`
}

// Signaling message types clients may exchange. Anything else is dropped.
const (
	TypeOffer  = "offer"
	TypeAnswer = "answer"
	TypeICE    = "ice"
	TypeBye    = "bye"
)

func validType(t string) bool {
	switch t {
	case TypeOffer, TypeAnswer, TypeICE, TypeBye:
		return true
	}
	return false
}
