package mqttsn

import "github.com/golang-io/mqttsn/packet"

// eventKind is the sum type the run-loop switches over (spec.md §4.5,
// §9 Design Notes: "model as a match over an event sum type within a
// single loop task").
type eventKind uint8

const (
	eventRunTask eventKind = iota
	eventRx
	eventTimer
	eventPublish
	eventSubscribe
	eventDisconnect
)

// event is the single posted-event envelope; only the field matching
// kind is populated.
type event struct {
	kind  eventKind
	pkt   packet.Packet
	timer timerExpiry

	publish    *publishRequest
	subscribe  *subscribeRequest
	disconnect *disconnectRequest
}

// publishRequest carries a user Publish call into the run-loop along
// with a channel to report the synchronous accept/reject outcome
// (spec.md §4.5 publish policy).
type publishRequest struct {
	topic   string
	payload []byte
	retain  bool
	qos     int8
	result  chan error
}

// subscribeRequest carries a user Subscribe call into the run-loop.
type subscribeRequest struct {
	topic  string
	qos    int8
	result chan error
}

// disconnectRequest carries a user Disconnect call into the run-loop.
type disconnectRequest struct {
	duration uint16
	done     chan struct{}
}
