package mqttsn

import (
	"bytes"
	"log"
	"sync/atomic"

	"github.com/golang-io/mqttsn/packet"
	"github.com/golang-io/mqttsn/topic"
)

// engine is the single-threaded protocol core: every field below is read
// and written exclusively by the goroutine running loop() (events.go,
// client.go), except status, which Status also reads atomically from
// other goroutines. No other goroutine may touch them — the run-loop is the one
// "handler" spec.md §5 says never preempts itself (spec.md §5
// "Concurrency & Resource Model").
type engine struct {
	cfg       Config
	transport Transport
	registry  *topic.Registry
	queue     *Queue
	timers    *timers
	stat      *Stat
	onMessage func(topicName string, payload []byte)

	events chan event

	status atomic.Int32

	topics []string // pre-declared list, replayed verbatim on reconnect

	sendRetry   int
	pingPending bool
	pingRetry   int

	wildcardTopic string // "" when no SUB_WILDCARD is outstanding
}

func newEngine(cfg Config, stat *Stat, onMessage func(string, []byte)) *engine {
	events := make(chan event, 8)
	e := &engine{
		cfg:       cfg,
		registry:  topic.New(cfg.MaxTopicUsed),
		queue:     NewQueue(cfg.MaxQueue),
		stat:      stat,
		onMessage: onMessage,
		events:    events,
	}
	e.timers = newTimers(events)
	e.status.Store(int32(Disconnected))
	return e
}

// Status reports the current session state. Safe for concurrent use —
// it is the one piece of engine state read from outside the run-loop.
func (e *engine) Status() Status { return Status(e.status.Load()) }

func (e *engine) setStatus(s Status) { e.status.Store(int32(s)) }

// send encodes pkt and hands it to the transport, logging (never
// returning) errors — outbound failures are not part of the protocol
// state machine (spec.md §7 "Transport errors").
func (e *engine) send(pkt packet.Packet) {
	var buf bytes.Buffer
	if err := pkt.Pack(&buf); err != nil {
		log.Printf("[ENCODE_ERROR] kind=%s err=%v", pkt.Kind(), err)
		return
	}
	if e.transport == nil {
		log.Printf("[SEND_ERROR] kind=%s err=%s", pkt.Kind(), ErrNotConnected)
		return
	}
	if err := e.transport.Send(buf.Bytes()); err != nil {
		log.Printf("[SEND_ERROR] kind=%s err=%v", pkt.Kind(), err)
	}
}

// createSession implements spec.md §4.6: enqueue CONNECT (and, if a will
// is configured, WILLTOPIC/WILLMSG), pre-declare every name in topics
// into the registry and enqueue a REGISTER task referencing the slot it
// landed in, then run the queue head. Called once before the run-loop
// starts, and again (from inside the run-loop) by reconnect.
func (e *engine) createSession(topics []string) error {
	if len(e.cfg.ClientID) == 0 || len(e.cfg.ClientID) > MaxClientIDLength {
		return ErrClientIDTooLong
	}

	e.queue.Reset()
	e.registry.Reset()
	e.timers.stopAll()
	e.topics = topics
	e.sendRetry = 0
	e.pingPending = false
	e.pingRetry = 0
	e.wildcardTopic = ""
	e.setStatus(Disconnected)

	if _, err := e.queue.Push(Task{Kind: TaskConnect}); err != nil {
		return err
	}

	hasWill := e.cfg.WillTopic != "" && len(e.cfg.WillMessage) > 0
	if hasWill {
		if _, err := e.queue.Push(Task{Kind: TaskWillTopic}); err != nil {
			return err
		}
		if _, err := e.queue.Push(Task{Kind: TaskWillMsg}); err != nil {
			return err
		}
	}

	// Index accounting here is the registry slot Place just handed back,
	// not the g_task_id-2/g_task_id arithmetic the original reference
	// implementation used to reconstruct the same slot from the task
	// counter (spec.md §4.6 step 5, §9 open question 2) — Place already
	// returns the slot the REGISTER task must carry, so there is nothing
	// to reconstruct.
	for _, name := range topics {
		index, err := e.registry.Place(name)
		if err != nil {
			log.Printf("[SESSION] topic registry full, dropping remaining pre-declared topics: %v", err)
			break
		}
		if _, err := e.queue.Push(Task{Kind: TaskRegister, ShortTopic: uint8(index)}); err != nil {
			log.Printf("[SESSION] task queue full, dropping remaining pre-declared topics: %v", err)
			break
		}
	}

	e.runHead()
	return nil
}

// reconnect implements the ping_timeout auto-reconnect path (spec.md
// §4.5 "ping_timeout"): the UDP socket is reused as-is, only the
// registry/queue/timers and the original pre-declared topic list are
// replayed through createSession.
func (e *engine) reconnect() {
	if e.stat != nil {
		e.stat.Reconnects.Inc()
	}
	if err := e.createSession(e.topics); err != nil {
		log.Printf("[SESSION] reconnect failed: %v", err)
	}
}
