package packet

import (
	"bytes"
	"encoding/binary"
	"io"
)

// CONNECTPacket requests a session with the gateway.
//
// Outbound layout (after Length, MsgType): Flags(1), ProtocolId(1)=0x01,
// Duration(2), ClientId(N). ClientId is 1..23 ASCII bytes (spec.md §3).
type CONNECTPacket struct {
	Flags    Flags
	Duration uint16
	ClientID string
}

func (pkt *CONNECTPacket) Kind() MsgType { return CONNECT }

func (pkt *CONNECTPacket) Pack(w io.Writer) error {
	body := make([]byte, 0, 4+len(pkt.ClientID))
	body = append(body, pkt.Flags.encode(), 0x01)
	body = binary.BigEndian.AppendUint16(body, pkt.Duration)
	body = append(body, pkt.ClientID...)
	return packLen(w, CONNECT, body)
}

func (pkt *CONNECTPacket) Unpack(b *bytes.Buffer) error {
	if b.Len() < 4 {
		return ErrMalformedLength
	}
	flags, _ := b.ReadByte()
	pkt.Flags = decodeFlags(flags)
	b.Next(1) // ProtocolId, always 0x01
	pkt.Duration = binary.BigEndian.Uint16(b.Next(2))
	pkt.ClientID = b.String()
	return nil
}
