package mqttsn

import (
	"bytes"
	"testing"
	"time"

	"github.com/golang-io/mqttsn/packet"
	"github.com/golang-io/mqttsn/topic"
)

// recordingTransport decodes every packet it is asked to send instead of
// touching a real socket, so these tests can assert on the engine's
// outbound trace without any networking or real timers.
type recordingTransport struct {
	sent []packet.Packet
}

func (t *recordingTransport) Send(b []byte) error {
	pkt, err := packet.Decode(bytes.NewReader(b))
	if err != nil {
		return err
	}
	t.sent = append(t.sent, pkt)
	return nil
}

func (t *recordingTransport) Close() error { return nil }

func (t *recordingTransport) last() packet.Packet {
	if len(t.sent) == 0 {
		return nil
	}
	return t.sent[len(t.sent)-1]
}

func newTestEngine() (*engine, *recordingTransport, *[]string) {
	var delivered []string
	cfg := NewConfig(WithClientID("C"), WithKeepAlive(5*time.Second))
	e := newEngine(cfg, NewStat(), func(topicName string, payload []byte) {
		delivered = append(delivered, topicName+"="+string(payload))
	})
	tr := &recordingTransport{}
	e.transport = tr
	return e, tr, &delivered
}

// Scenario 1 (spec.md §8): happy connect + register for two pre-declared
// topics, no will.
func TestHappyConnectRegister(t *testing.T) {
	e, tr, _ := newTestEngine()
	if err := e.createSession([]string{"/a", "/b"}); err != nil {
		t.Fatalf("createSession: %v", err)
	}
	if len(tr.sent) != 1 {
		t.Fatalf("expected 1 outbound packet after createSession, got %d", len(tr.sent))
	}
	if _, ok := tr.sent[0].(*packet.CONNECTPacket); !ok {
		t.Fatalf("expected CONNECT first, got %T", tr.sent[0])
	}
	if e.Status() != WaitingConnack {
		t.Fatalf("expected WAITING_CONNACK, got %s", e.Status())
	}

	e.handleRx(&packet.CONNACKPacket{ReturnCode: packet.Accepted})
	if e.Status() != WaitingRegack {
		t.Fatalf("expected WAITING_REGACK after CONNACK, got %s", e.Status())
	}
	regA, ok := tr.last().(*packet.REGISTERPacket)
	if !ok || regA.TopicName != "/a" {
		t.Fatalf("expected REGISTER(/a), got %#v", tr.last())
	}

	e.handleRx(&packet.REGACKPacket{TopicID: 5, MsgID: regA.MsgID, ReturnCode: packet.Accepted})
	regB, ok := tr.last().(*packet.REGISTERPacket)
	if !ok || regB.TopicName != "/b" {
		t.Fatalf("expected REGISTER(/b), got %#v", tr.last())
	}

	e.handleRx(&packet.REGACKPacket{TopicID: 6, MsgID: regB.MsgID, ReturnCode: packet.Accepted})
	if e.Status() != TopicRegistered {
		t.Fatalf("expected TOPIC_REGISTERED, got %s", e.Status())
	}

	idxA, ok := e.registry.LookupByName("/a")
	if !ok {
		t.Fatal("/a not found in registry")
	}
	entryA, _ := e.registry.At(idxA)
	if entryA.ID != 5 {
		t.Errorf("expected /a bound to id 5, got %d", entryA.ID)
	}
	idxB, ok := e.registry.LookupByName("/b")
	if !ok {
		t.Fatal("/b not found in registry")
	}
	entryB, _ := e.registry.At(idxB)
	if entryB.ID != 6 {
		t.Errorf("expected /b bound to id 6, got %d", entryB.ID)
	}
}

// Scenario 2 (spec.md §8): CONNECT retransmitted cfg.Retry times, then a
// session reset kicks off a fresh CONNECT.
func TestConnectRetryThenSessionReset(t *testing.T) {
	e, tr, _ := newTestEngine()
	if err := e.createSession([]string{"/a", "/b"}); err != nil {
		t.Fatalf("createSession: %v", err)
	}
	if len(tr.sent) != 1 {
		t.Fatalf("expected 1 CONNECT, got %d", len(tr.sent))
	}

	for i := 0; i < e.cfg.Retry; i++ {
		e.handleTimerExpiry(timerConnect)
	}
	if len(tr.sent) != 1+e.cfg.Retry {
		t.Fatalf("expected %d CONNECTs after %d retries, got %d", 1+e.cfg.Retry, e.cfg.Retry, len(tr.sent))
	}
	for _, p := range tr.sent {
		if _, ok := p.(*packet.CONNECTPacket); !ok {
			t.Fatalf("expected every outbound packet to be CONNECT, got %T", p)
		}
	}
	if e.Status() != WaitingConnack {
		t.Fatalf("expected still WAITING_CONNACK mid-retry, got %s", e.Status())
	}

	// One more expiry exhausts retries: session resets and a brand new
	// CONNECT goes out as part of the replayed session.
	e.handleTimerExpiry(timerConnect)
	if len(tr.sent) != 1+e.cfg.Retry+1 {
		t.Fatalf("expected one extra CONNECT from reconnect, got %d total", len(tr.sent))
	}
	if e.Status() != WaitingConnack {
		t.Fatalf("expected reconnect to re-enter WAITING_CONNACK, got %s", e.Status())
	}
	if e.stat.Reconnects == nil {
		t.Fatal("Reconnects counter should exist")
	}
}

// Scenario 3 (spec.md §8): a publish attempted before TOPIC_REGISTERED is
// rejected without emitting a packet.
func TestPublishBeforeReadyRejected(t *testing.T) {
	e, tr, _ := newTestEngine()
	if err := e.createSession([]string{"/a"}); err != nil {
		t.Fatalf("createSession: %v", err)
	}
	e.setStatus(WaitingRegack)
	before := len(tr.sent)

	result := make(chan error, 1)
	e.handlePublish(&publishRequest{topic: "/a", payload: []byte("x"), result: result})
	if err := <-result; err != ErrNotReady {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if len(tr.sent) != before {
		t.Fatalf("expected no packet emitted for a rejected publish, sent count changed from %d to %d", before, len(tr.sent))
	}
}

// Scenario 4 (spec.md §8): inbound PUBLISH is delivered to the user
// callback by topic name, without touching session state.
func TestInboundPublishDelivery(t *testing.T) {
	e, _, delivered := newTestEngine()
	index, err := e.registry.Place("/a")
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if err := e.registry.Bind(index, 5); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	before := e.Status()

	e.onPublish(&packet.PUBLISHPacket{TopicID: 5, Data: []byte("hi")})

	if len(*delivered) != 1 || (*delivered)[0] != "/a=hi" {
		t.Fatalf("expected callback delivery of /a=hi, got %v", *delivered)
	}
	if e.Status() != before {
		t.Fatalf("onPublish must never change session state: was %s, now %s", before, e.Status())
	}
}

// Scenario 5 (spec.md §8): wildcard subscribe, SUBACK(TopicId=0), then a
// server-initiated REGISTER announcing a concrete id for a matched topic.
func TestWildcardSubscribeThenServerRegister(t *testing.T) {
	e, tr, _ := newTestEngine()
	e.setStatus(TopicRegistered)

	result := make(chan error, 1)
	e.handleSubscribe(&subscribeRequest{topic: "/a/#", qos: 0, result: result})
	if err := <-result; err != nil {
		t.Fatalf("handleSubscribe: %v", err)
	}
	sub, ok := tr.last().(*packet.SUBSCRIBEPacket)
	if !ok || sub.TopicName != "/a/#" || sub.Flags.TopicIDType != packet.TopicIDNormal {
		t.Fatalf("expected SUBSCRIBE(/a/#, normal), got %#v", tr.last())
	}
	if e.wildcardTopic != "/a/#" {
		t.Fatalf("expected wildcard slot to hold /a/#, got %q", e.wildcardTopic)
	}

	e.handleRx(&packet.SUBACKPacket{TopicID: 0, MsgID: sub.MsgID, ReturnCode: packet.Accepted})
	if e.Status() != TopicRegistered {
		t.Fatalf("expected TOPIC_REGISTERED after wildcard SUBACK, got %s", e.Status())
	}
	if e.wildcardTopic != "" {
		t.Fatalf("expected wildcard slot cleared after SUBACK, still %q", e.wildcardTopic)
	}

	e.handleRx(&packet.REGISTERPacket{TopicID: 9, MsgID: 7, TopicName: "/a/x"})
	ack, ok := tr.last().(*packet.REGACKPacket)
	if !ok || ack.TopicID != 9 || ack.MsgID != 7 || ack.ReturnCode != packet.Accepted {
		t.Fatalf("expected REGACK(9, 7, ACCEPTED), got %#v", tr.last())
	}

	index, ok := e.registry.LookupByName("/a/x")
	if !ok {
		t.Fatal("/a/x not placed in registry")
	}
	entry, _ := e.registry.At(index)
	if entry.ID != 9 {
		t.Errorf("expected /a/x bound to id 9, got %d", entry.ID)
	}
	if entry.SubState != topic.Subscribed {
		t.Errorf("expected /a/x SUBSCRIBED, got %s", entry.SubState)
	}
}

// Scenario 6 (spec.md §8): ping loss through RetryPing consecutive ticks
// disconnects the session and, with auto-reconnect on, restarts the
// outbound trace from CONNECT.
func TestPingLossTriggersReconnect(t *testing.T) {
	e, tr, _ := newTestEngine()
	if err := e.createSession([]string{"/a", "/b"}); err != nil {
		t.Fatalf("createSession: %v", err)
	}
	e.handleRx(&packet.CONNACKPacket{ReturnCode: packet.Accepted})
	regA := tr.last().(*packet.REGISTERPacket)
	e.handleRx(&packet.REGACKPacket{TopicID: 5, MsgID: regA.MsgID, ReturnCode: packet.Accepted})
	regB := tr.last().(*packet.REGISTERPacket)
	e.handleRx(&packet.REGACKPacket{TopicID: 6, MsgID: regB.MsgID, ReturnCode: packet.Accepted})
	if e.Status() != TopicRegistered {
		t.Fatalf("setup failed, expected TOPIC_REGISTERED, got %s", e.Status())
	}

	tr.sent = nil
	e.pingPending = true
	for i := 0; i < e.cfg.RetryPing; i++ {
		e.handleTimerExpiry(timerPing)
	}

	if e.Status() != WaitingConnack {
		t.Fatalf("expected reconnect to land in WAITING_CONNACK, got %s", e.Status())
	}
	if len(tr.sent) == 0 {
		t.Fatal("expected the reconnect trace to emit at least one packet")
	}
	if _, ok := tr.sent[0].(*packet.CONNECTPacket); !ok {
		t.Fatalf("expected the reconnect trace to restart with CONNECT, got %T", tr.sent[0])
	}

	e.handleRx(&packet.CONNACKPacket{ReturnCode: packet.Accepted})
	reg, ok := tr.last().(*packet.REGISTERPacket)
	if !ok || reg.TopicName != "/a" {
		t.Fatalf("expected REGISTER(/a) to replay after reconnect, got %#v", tr.last())
	}
}

// Invariant 1 (spec.md §8): the queue head and the WAITING_* status (which
// selects the retransmit timer) always correspond to the same operation.
func TestInvariantQueueHeadMatchesStatus(t *testing.T) {
	e, _, _ := newTestEngine()
	e.createSession([]string{"/a"})
	head, ok := e.queue.PeekHead()
	if !ok || head.Kind != TaskConnect {
		t.Fatalf("expected CONNECT at queue head, got %#v", head)
	}
	if e.Status() != WaitingConnack {
		t.Fatalf("expected WAITING_CONNACK while CONNECT is head, got %s", e.Status())
	}

	e.handleRx(&packet.CONNACKPacket{ReturnCode: packet.Accepted})
	head, ok = e.queue.PeekHead()
	if !ok || head.Kind != TaskRegister {
		t.Fatalf("expected REGISTER at queue head, got %#v", head)
	}
	if e.Status() != WaitingRegack {
		t.Fatalf("expected WAITING_REGACK while REGISTER is head, got %s", e.Status())
	}
}

// Invariant 4 (spec.md §8): the state after a session reset is identical
// to the state right after the first createSession.
func TestInvariantResetEqualsInit(t *testing.T) {
	e, _, _ := newTestEngine()
	e.createSession([]string{"/a", "/b"})
	initStatus := e.Status()
	initQueueLen := e.queue.Len()

	e.reconnect()

	if e.Status() != initStatus {
		t.Fatalf("expected reset status %s, got %s", initStatus, e.Status())
	}
	if e.queue.Len() != initQueueLen {
		t.Fatalf("expected reset queue length %d, got %d", initQueueLen, e.queue.Len())
	}
	if e.sendRetry != 0 || e.pingPending || e.pingRetry != 0 || e.wildcardTopic != "" {
		t.Fatalf("expected every per-session counter cleared after reset, got sendRetry=%d pingPending=%v pingRetry=%d wildcardTopic=%q",
			e.sendRetry, e.pingPending, e.pingRetry, e.wildcardTopic)
	}
}
