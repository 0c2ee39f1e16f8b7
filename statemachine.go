package mqttsn

import (
	"context"
	"log"
	"time"

	"github.com/golang-io/mqttsn/packet"
	"github.com/golang-io/mqttsn/topic"
)

// loop is the single-threaded event consumer spec.md §4.5/§5 describes:
// it drains e.events until ctx is cancelled, handling exactly one event
// at a time. Every other goroutine in this package (timers, the receive
// loop, the public Client methods) only ever constructs an event and
// posts it here; none of them touch engine state directly.
func (e *engine) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-e.events:
			e.handleEvent(ev)
		}
	}
}

func (e *engine) handleEvent(ev event) {
	switch ev.kind {
	case eventRunTask:
		e.runHead()
	case eventRx:
		e.handleRx(ev.pkt)
	case eventTimer:
		if e.timers.valid(ev.timer) {
			e.handleTimerExpiry(ev.timer.kind)
		}
	case eventPublish:
		e.handlePublish(ev.publish)
	case eventSubscribe:
		e.handleSubscribe(ev.subscribe)
	case eventDisconnect:
		e.handleDisconnect(ev.disconnect)
	}
}

// runHead executes whatever sits at the queue's head, per the run_task
// transitions of spec.md §4.5. An empty queue means every pending
// operation has reached its terminal outcome: the session is idle.
func (e *engine) runHead() {
	head, ok := e.queue.PeekHead()
	if !ok {
		e.setStatus(TopicRegistered)
		return
	}
	switch head.Kind {
	case TaskConnect:
		e.sendConnect()
	case TaskWillTopic, TaskWillMsg:
		// Nothing to transmit proactively; the gateway must first ask for
		// it via WILLTOPICREQ/WILLMSGREQ (spec.md §4.5).
	case TaskRegister:
		e.sendRegister(head)
	case TaskSubscribe:
		e.sendSubscribe(head)
	case TaskSubWildcard:
		e.sendSubscribeWildcard(head)
	case TaskPublish:
		// This engine's publish policy never queues a PUBLISH task
		// (spec.md §4.5 "Publish policy"); the kind exists only so Task
		// mirrors the original task-type union in full.
	}
}

func (e *engine) buildConnect() *packet.CONNECTPacket {
	hasWill := e.cfg.WillTopic != "" && len(e.cfg.WillMessage) > 0
	return &packet.CONNECTPacket{
		Flags:    packet.Flags{Will: hasWill, CleanSession: true},
		Duration: uint16(e.cfg.KeepAlive / time.Second),
		ClientID: e.cfg.ClientID,
	}
}

func (e *engine) sendConnect() {
	pkt := e.buildConnect()
	e.send(pkt)
	if pkt.Flags.Will {
		e.setStatus(WaitingWillTopicReq)
	} else {
		e.setStatus(WaitingConnack)
	}
	e.timers.arm(timerConnect, e.cfg.TimeoutConnect)
	e.sendRetry = 0
}

func (e *engine) sendRegister(head Task) {
	entry, ok := e.registry.At(int(head.ShortTopic))
	if !ok {
		log.Printf("[SESSION] REGISTER task references a vanished registry slot %d, dropping", head.ShortTopic)
		e.queue.PopHead()
		e.runHead()
		return
	}
	e.send(&packet.REGISTERPacket{TopicID: 0, MsgID: uint16(head.ShortTopic), TopicName: entry.Name})
	e.setStatus(WaitingRegack)
	e.timers.arm(timerRegister, e.cfg.Timeout)
	e.sendRetry = 0
}

// sendSubscribe always carries the predefined TopicIdType with the
// locally-assigned id in TopicId (spec.md §4.5, §9 open question 3 /
// REDESIGN note: real gateways that distinguish predefined from normal
// ids will reject this, but it is what the reference client does).
func (e *engine) sendSubscribe(head Task) {
	entry, ok := e.registry.At(int(head.ShortTopic))
	if !ok {
		log.Printf("[SESSION] SUBSCRIBE task references a vanished registry slot %d, dropping", head.ShortTopic)
		e.queue.PopHead()
		e.runHead()
		return
	}
	e.send(&packet.SUBSCRIBEPacket{
		Flags:   packet.Flags{QoS: head.QoS, TopicIDType: packet.TopicIDPredefined},
		MsgID:   uint16(head.ShortTopic),
		TopicID: uint16(entry.ID),
	})
	e.setStatus(WaitingSuback)
	e.timers.arm(timerSubscribe, 3*e.cfg.Timeout)
	e.sendRetry = 0
}

func (e *engine) sendSubscribeWildcard(head Task) {
	e.send(&packet.SUBSCRIBEPacket{
		Flags:     packet.Flags{QoS: head.QoS, TopicIDType: packet.TopicIDNormal},
		TopicName: head.WildcardTopic,
	})
	e.setStatus(WaitingSuback)
	e.timers.arm(timerSubscribe, 3*e.cfg.Timeout)
	e.sendRetry = 0
}

func (e *engine) handleRx(pkt packet.Packet) {
	switch p := pkt.(type) {
	case *packet.WILLTOPICREQPacket:
		e.onWillTopicReq()
	case *packet.WILLMSGREQPacket:
		e.onWillMsgReq()
	case *packet.CONNACKPacket:
		e.onConnack(p)
	case *packet.REGACKPacket:
		e.onRegack(p)
	case *packet.REGISTERPacket:
		e.onRegister(p)
	case *packet.SUBACKPacket:
		e.onSuback(p)
	case *packet.PUBLISHPacket:
		e.onPublish(p)
	case *packet.PINGREQPacket:
		e.onPingReq()
	case *packet.PINGRESPPacket:
		e.onPingResp()
	default:
		log.Printf("[SESSION] ignoring unexpected inbound %s in state %s", pkt.Kind(), e.Status())
	}
}

func (e *engine) onWillTopicReq() {
	if e.Status() != WaitingWillTopicReq {
		log.Printf("[SESSION] unexpected WILLTOPICREQ in state %s", e.Status())
		return
	}
	e.send(&packet.WILLTOPICPacket{Flags: packet.Flags{QoS: 0}, WillTopic: e.cfg.WillTopic})
	e.queue.PopHead()
	e.setStatus(WaitingWillMsgReq)
}

func (e *engine) onWillMsgReq() {
	if e.Status() != WaitingWillMsgReq {
		log.Printf("[SESSION] unexpected WILLMSGREQ in state %s", e.Status())
		return
	}
	e.queue.PopHead()
	e.send(&packet.WILLMSGPacket{WillMessage: e.cfg.WillMessage})
	e.setStatus(WaitingConnack)
}

func (e *engine) onConnack(p *packet.CONNACKPacket) {
	if e.Status() != WaitingConnack {
		log.Printf("[SESSION] unexpected CONNACK in state %s", e.Status())
		return
	}
	if !p.ReturnCode.Ok() {
		log.Printf("[SESSION] CONNECT rejected: %s", p.ReturnCode)
		return
	}
	e.timers.stop(timerConnect)
	e.queue.PopHead()
	e.timers.arm(timerPing, e.cfg.KeepAlive)
	e.pingPending = false
	e.pingRetry = 0
	if e.stat != nil {
		e.stat.ActiveSessions.Set(1)
	}
	e.setStatus(Connected)
	e.runHead()
}

func (e *engine) onRegack(p *packet.REGACKPacket) {
	head, ok := e.queue.PeekHead()
	if !ok || head.Kind != TaskRegister || e.Status() != WaitingRegack {
		log.Printf("[SESSION] unexpected REGACK in state %s", e.Status())
		return
	}
	if !p.ReturnCode.Ok() {
		log.Printf("[SESSION] REGISTER rejected for slot %d: %s", head.ShortTopic, p.ReturnCode)
	} else if err := e.registry.Bind(int(p.MsgID), uint8(p.TopicID)); err != nil {
		log.Printf("[SESSION] REGACK echoed unknown slot %d: %v", p.MsgID, err)
	}
	e.timers.stop(timerRegister)
	e.queue.PopHead()
	if e.queue.Empty() {
		e.setStatus(TopicRegistered)
		return
	}
	e.runHead()
}

// onRegister handles a gateway-initiated REGISTER: the wildcard-delivery
// path of spec.md §4.5, where the gateway announces a topic id for a
// message matching an outstanding wildcard subscription.
func (e *engine) onRegister(p *packet.REGISTERPacket) {
	index, err := e.registry.Place(p.TopicName)
	if err == topic.ErrNameInUse {
		index, _ = e.registry.LookupByName(p.TopicName)
	} else if err != nil {
		log.Printf("[SESSION] cannot accept server REGISTER for %q: %v", p.TopicName, err)
		return
	}
	if err := e.registry.Bind(index, uint8(p.TopicID)); err != nil {
		log.Printf("[SESSION] cannot bind server REGISTER slot %d: %v", index, err)
		return
	}
	e.registry.SetSubState(index, topic.Subscribed)
	e.send(&packet.REGACKPacket{TopicID: p.TopicID, MsgID: p.MsgID, ReturnCode: packet.Accepted})
}

func (e *engine) onSuback(p *packet.SUBACKPacket) {
	if p.TopicID == 0 {
		head, ok := e.queue.PeekHead()
		if ok && head.Kind == TaskSubWildcard {
			e.timers.stop(timerSubscribe)
			e.queue.PopHead()
			e.wildcardTopic = ""
		}
		e.setStatus(TopicRegistered)
		return
	}
	head, ok := e.queue.PeekHead()
	if !ok || head.Kind != TaskSubscribe || e.Status() != WaitingSuback {
		log.Printf("[SESSION] unexpected SUBACK in state %s", e.Status())
		return
	}
	if !p.ReturnCode.Ok() {
		log.Printf("[SESSION] SUBSCRIBE rejected for slot %d: %s", head.ShortTopic, p.ReturnCode)
	} else if index, ok := e.registry.LookupByID(uint8(p.TopicID)); ok {
		e.registry.SetSubState(index, topic.Subscribed)
	}
	e.timers.stop(timerSubscribe)
	e.queue.PopHead()
	if e.queue.Empty() {
		e.setStatus(TopicRegistered)
		return
	}
	e.runHead()
}

// onPublish delivers an inbound PUBLISH to the user callback; per
// spec.md §4.5 it never changes state, whatever state the session is in.
func (e *engine) onPublish(p *packet.PUBLISHPacket) {
	name, ok := e.registry.NameByID(uint8(p.TopicID))
	if !ok {
		log.Printf("[SESSION] PUBLISH for unknown topic id %d, dropping", p.TopicID)
		return
	}
	if e.onMessage != nil {
		e.onMessage(name, p.Data)
	}
}

// onPingReq answers a gateway-originated PINGREQ with another PINGREQ,
// not a PINGRESP — the reference implementation's own quirk (spec.md §9
// open question 4) rather than the letter of the MQTT-SN spec.
func (e *engine) onPingReq() {
	e.send(&packet.PINGREQPacket{})
}

func (e *engine) onPingResp() {
	e.pingPending = false
}

// handleTimerExpiry dispatches a validated timer fire. ping_timer is
// handled uniformly regardless of state (spec.md §4.5 ping_tick); the
// three retransmit timers only matter while their matching WAITING_*
// state is current.
func (e *engine) handleTimerExpiry(kind timerKind) {
	if kind == timerPing {
		e.onPingTick()
		return
	}
	switch e.Status() {
	case WaitingConnack, WaitingWillTopicReq:
		e.retryOrFail(e.retransmitConnect)
	case WaitingRegack:
		e.retryOrFail(e.retransmitRegister)
	case WaitingSuback:
		e.retryOrFail(e.retransmitSubscribe)
	default:
		log.Printf("[SESSION] stray %s in state %s, ignoring", kind, e.Status())
	}
}

func (e *engine) retryOrFail(retransmit func()) {
	if e.sendRetry < e.cfg.Retry {
		e.sendRetry++
		if e.stat != nil {
			e.stat.Retransmits.Inc()
		}
		retransmit()
		return
	}
	e.sendRetry = 0
	e.pingTimeout()
}

func (e *engine) retransmitConnect() {
	head, ok := e.queue.PeekHead()
	if !ok || head.Kind != TaskConnect {
		return
	}
	e.send(e.buildConnect())
	e.timers.arm(timerConnect, e.cfg.TimeoutConnect)
}

func (e *engine) retransmitRegister() {
	head, ok := e.queue.PeekHead()
	if !ok || head.Kind != TaskRegister {
		return
	}
	entry, ok := e.registry.At(int(head.ShortTopic))
	if !ok {
		return
	}
	e.send(&packet.REGISTERPacket{TopicID: 0, MsgID: uint16(head.ShortTopic), TopicName: entry.Name})
	e.timers.arm(timerRegister, e.cfg.Timeout)
}

func (e *engine) retransmitSubscribe() {
	head, ok := e.queue.PeekHead()
	if !ok {
		return
	}
	switch head.Kind {
	case TaskSubscribe:
		entry, ok := e.registry.At(int(head.ShortTopic))
		if !ok {
			return
		}
		e.send(&packet.SUBSCRIBEPacket{
			Flags:   packet.Flags{QoS: head.QoS, TopicIDType: packet.TopicIDPredefined},
			MsgID:   uint16(head.ShortTopic),
			TopicID: uint16(entry.ID),
		})
	case TaskSubWildcard:
		e.send(&packet.SUBSCRIBEPacket{
			Flags:     packet.Flags{QoS: head.QoS, TopicIDType: packet.TopicIDNormal},
			TopicName: head.WildcardTopic,
		})
	default:
		return
	}
	e.timers.arm(timerSubscribe, 3*e.cfg.Timeout)
}

// onPingTick runs every time ping_timer fires: spec.md §4.5's "ping_tick"
// transition. A fresh keep-alive cycle, with a new PINGREQ, is started
// whenever the previous one got a PINGRESP; otherwise the tick only
// counts a missed reply (nothing is resent), and once RetryPing
// consecutive ticks have missed the session is considered dead.
func (e *engine) onPingTick() {
	if e.pingPending {
		e.pingRetry++
		if e.pingRetry >= e.cfg.RetryPing {
			e.pingRetry = 0
			e.timers.stop(timerPing)
			e.pingTimeout()
			return
		}
	} else {
		e.pingPending = true
		e.pingRetry = 0
		e.send(&packet.PINGREQPacket{ClientID: e.cfg.ClientID})
	}
	e.timers.arm(timerPing, e.cfg.KeepAlive)
}

// pingTimeout is the session-fail signal of spec.md §4.5: reachable both
// from keep-alive exhaustion and from any WAITING_* retransmit ceiling.
func (e *engine) pingTimeout() {
	e.timers.stopAll()
	e.setStatus(Disconnected)
	if e.stat != nil {
		e.stat.ActiveSessions.Set(0)
	}
	if e.cfg.AutoReconnect {
		e.reconnect()
	}
}

func (e *engine) handlePublish(req *publishRequest) {
	if e.Status() != TopicRegistered {
		req.result <- ErrNotReady
		return
	}
	index, ok := e.registry.LookupByName(req.topic)
	if !ok {
		req.result <- ErrNotRegistered
		return
	}
	entry, _ := e.registry.At(index)
	e.send(&packet.PUBLISHPacket{
		Flags:   packet.Flags{Retain: req.retain, QoS: req.qos, TopicIDType: packet.TopicIDNormal},
		TopicID: uint16(entry.ID),
		Data:    req.payload,
	})
	req.result <- nil
}

func (e *engine) handleSubscribe(req *subscribeRequest) {
	if topic.IsWildcard(req.topic) {
		if e.wildcardTopic != "" {
			req.result <- ErrWildcardInFlight
			return
		}
		if _, err := e.queue.Push(Task{Kind: TaskSubWildcard, QoS: req.qos, WildcardTopic: req.topic}); err != nil {
			req.result <- err
			return
		}
		e.wildcardTopic = req.topic
		req.result <- nil
		if e.Status() == TopicRegistered {
			e.runHead()
		}
		return
	}

	index, ok := e.registry.LookupByName(req.topic)
	if !ok {
		req.result <- ErrNotRegistered
		return
	}
	entry, _ := e.registry.At(index)
	if entry.SubState != topic.None {
		req.result <- ErrAlreadySubscribed
		return
	}
	if _, err := e.queue.Push(Task{Kind: TaskSubscribe, ShortTopic: uint8(index), QoS: req.qos}); err != nil {
		req.result <- err
		return
	}
	if err := e.registry.SetSubState(index, topic.Pending); err != nil {
		req.result <- err
		return
	}
	req.result <- nil
	if e.Status() == TopicRegistered {
		e.runHead()
	}
}

func (e *engine) handleDisconnect(req *disconnectRequest) {
	e.timers.stopAll()
	e.send(&packet.DISCONNECTPacket{Duration: req.duration})
	e.setStatus(Disconnected)
	if e.stat != nil {
		e.stat.ActiveSessions.Set(0)
	}
	close(req.done)
}
