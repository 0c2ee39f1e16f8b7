package packet

import (
	"bytes"
	"encoding/binary"
	"io"
)

// PUBLISHPacket: Flags(1), TopicId(2), MsgId(2), Data(N).
//
// The engine encodes the caller's QoS in Flags but never processes
// acknowledgements for QoS>0 (spec.md §1 Non-goals). MsgId is always 0
// on outbound publishes and ignored on inbound delivery.
type PUBLISHPacket struct {
	Flags   Flags
	TopicID uint16
	MsgID   uint16
	Data    []byte
}

func (pkt *PUBLISHPacket) Kind() MsgType { return PUBLISH }

func (pkt *PUBLISHPacket) Pack(w io.Writer) error {
	body := make([]byte, 0, 5+len(pkt.Data))
	body = append(body, pkt.Flags.encode())
	body = binary.BigEndian.AppendUint16(body, pkt.TopicID)
	body = binary.BigEndian.AppendUint16(body, pkt.MsgID)
	body = append(body, pkt.Data...)
	return packLen(w, PUBLISH, body)
}

func (pkt *PUBLISHPacket) Unpack(b *bytes.Buffer) error {
	if b.Len() < 5 {
		return ErrMalformedLength
	}
	flags, _ := b.ReadByte()
	pkt.Flags = decodeFlags(flags)
	pkt.TopicID = binary.BigEndian.Uint16(b.Next(2))
	pkt.MsgID = binary.BigEndian.Uint16(b.Next(2))
	pkt.Data = append([]byte(nil), b.Bytes()...)
	return nil
}
