package packet

import (
	"bytes"
	"encoding/binary"
	"io"
)

// REGISTERPacket: TopicId(2), MsgId(2), TopicName(N).
//
// Client-initiated REGISTER always sends TopicId=0 (spec.md §4.1); the
// gateway can also send a REGISTER unsolicited, with a real TopicId, to
// announce an id for a wildcard-matched topic (spec.md §4.5).
type REGISTERPacket struct {
	TopicID   uint16
	MsgID     uint16
	TopicName string
}

func (pkt *REGISTERPacket) Kind() MsgType { return REGISTER }

func (pkt *REGISTERPacket) Pack(w io.Writer) error {
	if len(pkt.TopicName) > MaxTopicLength {
		return ErrTopicTooLong
	}
	body := make([]byte, 0, 4+len(pkt.TopicName))
	body = binary.BigEndian.AppendUint16(body, pkt.TopicID)
	body = binary.BigEndian.AppendUint16(body, pkt.MsgID)
	body = append(body, pkt.TopicName...)
	return packLen(w, REGISTER, body)
}

func (pkt *REGISTERPacket) Unpack(b *bytes.Buffer) error {
	if b.Len() < 4 {
		return ErrMalformedLength
	}
	pkt.TopicID = binary.BigEndian.Uint16(b.Next(2))
	pkt.MsgID = binary.BigEndian.Uint16(b.Next(2))
	pkt.TopicName = b.String()
	return nil
}
