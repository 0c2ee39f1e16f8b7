package mqttsn

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net"
	"strings"

	"github.com/golang-io/mqttsn/packet"
)

// Transport is the boundary to the datagram network spec.md §6
// describes: a best-effort send primitive plus a receive loop that hands
// decoded packets to the session. Out of scope per spec.md §1; this is
// the thin concrete adapter over net.UDPConn the engine dials against.
type Transport interface {
	// Send transmits one already-framed MQTT-SN packet to the broker.
	Send(b []byte) error
	// Close releases the underlying socket.
	Close() error
}

// udpTransport is the default Transport: a UDP socket connected to a
// single broker endpoint (spec.md §6, IPv6 expected but not required —
// net.DialUDP accepts either family transparently).
type udpTransport struct {
	conn *net.UDPConn
	stat *Stat
}

// DialUDP resolves addr (host:port, default port spec.md §6 1884 when
// port is omitted) and connects a UDP socket to it.
func DialUDP(addr string, stat *Stat) (*udpTransport, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(strings.Trim(addr, "[]"), fmt.Sprint(DefaultPort))
	}
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("mqttsn: resolve broker address: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("mqttsn: dial broker: %w", err)
	}
	return &udpTransport{conn: conn, stat: stat}, nil
}

func (t *udpTransport) Send(b []byte) error {
	n, err := t.conn.Write(b)
	if err != nil {
		return err
	}
	if t.stat != nil {
		t.stat.PacketsSent.Inc()
		t.stat.BytesSent.Add(float64(n))
	}
	return nil
}

func (t *udpTransport) Close() error {
	return t.conn.Close()
}

// receiveLoop reads datagrams off t.conn until ctx is cancelled or the
// socket errors, decoding each one and posting an rx event. It is the
// only goroutine that reads the socket; the run-loop goroutine never
// touches it (spec.md §5).
func (t *udpTransport) receiveLoop(ctx context.Context, events chan<- event) error {
	buf := make([]byte, packet.MaxPacketLength)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n, err := t.conn.Read(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return err
			}
		}
		if t.stat != nil {
			t.stat.PacketsReceived.Inc()
			t.stat.BytesReceived.Add(float64(n))
		}
		pkt, err := packet.Decode(bytes.NewReader(buf[:n]))
		if err != nil {
			log.Printf("[DECODE_ERROR] dropping malformed datagram: %v", err)
			continue
		}
		select {
		case events <- event{kind: eventRx, pkt: pkt}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
