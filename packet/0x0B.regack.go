package packet

import (
	"bytes"
	"encoding/binary"
	"io"
)

// REGACKPacket: TopicId(2), MsgId(2), ReturnCode(1).
type REGACKPacket struct {
	TopicID    uint16
	MsgID      uint16
	ReturnCode ReturnCode
}

func (pkt *REGACKPacket) Kind() MsgType { return REGACK }

func (pkt *REGACKPacket) Pack(w io.Writer) error {
	body := make([]byte, 0, 5)
	body = binary.BigEndian.AppendUint16(body, pkt.TopicID)
	body = binary.BigEndian.AppendUint16(body, pkt.MsgID)
	body = append(body, byte(pkt.ReturnCode))
	return packLen(w, REGACK, body)
}

func (pkt *REGACKPacket) Unpack(b *bytes.Buffer) error {
	if b.Len() < 5 {
		return ErrMalformedLength
	}
	pkt.TopicID = binary.BigEndian.Uint16(b.Next(2))
	pkt.MsgID = binary.BigEndian.Uint16(b.Next(2))
	rc, _ := b.ReadByte()
	pkt.ReturnCode = ReturnCode(rc)
	return nil
}
