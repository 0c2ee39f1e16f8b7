// Package fakegateway is a minimal, scriptable MQTT-SN gateway used only
// by this module's own tests (spec.md §8). It speaks just enough of the
// protocol to drive a real Client through CONNECT/WILL/REGISTER/SUBSCRIBE,
// and lets a test inject arbitrary server-initiated packets (REGISTER,
// PUBLISH, SUBACK) or simulate packet loss — the UDP-server shape is
// grounded on the pack's own loopback UDP test servers, trimmed to a
// single goroutine since nothing here needs concurrent request handling.
package fakegateway

import (
	"bytes"
	"context"
	"math/rand"
	"net"
	"sync"

	"github.com/golang-io/mqttsn/packet"
)

// Config tunes the gateway's behaviour for a test.
type Config struct {
	// DropRate silently discards an inbound datagram instead of acting
	// on it, simulating lossy links (spec.md §8 scenario 6).
	DropRate float64
	// RequireWill makes the gateway walk the WILLTOPICREQ/WILLMSGREQ
	// handshake after a CONNECT that sets the Will flag, instead of
	// CONNACKing immediately.
	RequireWill bool
}

// Gateway is a loopback UDP endpoint that answers MQTT-SN requests like a
// real broker for the handful of exchanges this engine drives.
type Gateway struct {
	cfg  Config
	conn *net.UDPConn

	mu         sync.Mutex
	clientAddr *net.UDPAddr
	topics     map[string]uint8
	nextID     uint8

	// received records decoded inbound packets in arrival order, for
	// tests that want to assert on exactly what the client sent. It holds
	// up to 64 unread packets; while it is full, new ones are not recorded.
	received chan packet.Packet
}

// New binds a gateway to an ephemeral loopback UDP port.
func New(cfg Config) (*Gateway, error) {
	addr, err := net.ResolveUDPAddr("udp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}
	return &Gateway{
		cfg:      cfg,
		conn:     conn,
		topics:   make(map[string]uint8),
		nextID:   1,
		received: make(chan packet.Packet, 64),
	}, nil
}

// Addr is the host:port a Client should dial.
func (g *Gateway) Addr() string {
	return g.conn.LocalAddr().String()
}

// Close releases the listening socket.
func (g *Gateway) Close() error {
	return g.conn.Close()
}

// Received yields the packets decoded from the client, in order (see the
// received field for the 64-packet limit).
func (g *Gateway) Received() <-chan packet.Packet {
	return g.received
}

// Serve reads and answers datagrams until ctx is cancelled or the socket
// errors. It is single-threaded by design: this is a test double, not a
// broker under load, and ordering guarantees make assertions simpler.
func (g *Gateway) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		g.conn.Close()
	}()

	buf := make([]byte, packet.MaxPacketLength)
	for {
		n, addr, err := g.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return err
			}
		}
		if g.cfg.DropRate > 0 && rand.Float64() < g.cfg.DropRate {
			continue
		}

		g.mu.Lock()
		g.clientAddr = addr
		g.mu.Unlock()

		pkt, err := packet.Decode(bytes.NewReader(buf[:n]))
		if err != nil {
			continue
		}
		select {
		case g.received <- pkt:
		default:
		}
		g.handle(pkt)
	}
}

func (g *Gateway) handle(pkt packet.Packet) {
	switch p := pkt.(type) {
	case *packet.CONNECTPacket:
		if p.Flags.Will && g.cfg.RequireWill {
			g.reply(&packet.WILLTOPICREQPacket{})
			return
		}
		g.reply(&packet.CONNACKPacket{ReturnCode: packet.Accepted})
	case *packet.WILLTOPICPacket:
		g.reply(&packet.WILLMSGREQPacket{})
	case *packet.WILLMSGPacket:
		g.reply(&packet.CONNACKPacket{ReturnCode: packet.Accepted})
	case *packet.REGISTERPacket:
		g.mu.Lock()
		id, ok := g.topics[p.TopicName]
		if !ok {
			id = g.nextID
			g.nextID++
			g.topics[p.TopicName] = id
		}
		g.mu.Unlock()
		g.reply(&packet.REGACKPacket{TopicID: uint16(id), MsgID: p.MsgID, ReturnCode: packet.Accepted})
	case *packet.SUBSCRIBEPacket:
		if p.Flags.TopicIDType == packet.TopicIDNormal {
			// Wildcard filter carried as a name, not a predefined id.
			g.reply(&packet.SUBACKPacket{TopicID: 0, MsgID: p.MsgID, ReturnCode: packet.Accepted})
			return
		}
		g.reply(&packet.SUBACKPacket{TopicID: p.TopicID, MsgID: p.MsgID, ReturnCode: packet.Accepted})
	case *packet.PINGREQPacket:
		g.reply(&packet.PINGRESPPacket{})
	case *packet.DISCONNECTPacket:
		// No reply expected.
	}
}

func (g *Gateway) reply(pkt packet.Packet) {
	var buf bytes.Buffer
	if err := pkt.Pack(&buf); err != nil {
		return
	}
	g.mu.Lock()
	addr := g.clientAddr
	g.mu.Unlock()
	if addr == nil {
		return
	}
	g.conn.WriteToUDP(buf.Bytes(), addr)
}

// Inject sends an arbitrary packet to the last client that contacted
// this gateway, bypassing the request/response handler above. Used to
// simulate server-initiated REGISTER (wildcard delivery), PUBLISH
// delivery, and malformed or out-of-sequence acks.
func (g *Gateway) Inject(pkt packet.Packet) error {
	var buf bytes.Buffer
	if err := pkt.Pack(&buf); err != nil {
		return err
	}
	g.mu.Lock()
	addr := g.clientAddr
	g.mu.Unlock()
	if addr == nil {
		return net.ErrClosed
	}
	_, err := g.conn.WriteToUDP(buf.Bytes(), addr)
	return err
}

// TopicID reports the id the gateway assigned a registered topic name.
func (g *Gateway) TopicID(name string) (uint8, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.topics[name]
	return id, ok
}
