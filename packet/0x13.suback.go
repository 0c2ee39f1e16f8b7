package packet

import (
	"bytes"
	"encoding/binary"
	"io"
)

// SUBACKPacket: Flags(1), TopicId(2), MsgId(2), ReturnCode(1).
//
// TopicId==0 with ReturnCode Accepted signals acknowledgement of a
// wildcard subscription rather than a specific registered topic
// (spec.md §4.5, §9 open question 5).
type SUBACKPacket struct {
	Flags      Flags
	TopicID    uint16
	MsgID      uint16
	ReturnCode ReturnCode
}

func (pkt *SUBACKPacket) Kind() MsgType { return SUBACK }

func (pkt *SUBACKPacket) Pack(w io.Writer) error {
	body := make([]byte, 0, 6)
	body = append(body, pkt.Flags.encode())
	body = binary.BigEndian.AppendUint16(body, pkt.TopicID)
	body = binary.BigEndian.AppendUint16(body, pkt.MsgID)
	body = append(body, byte(pkt.ReturnCode))
	return packLen(w, SUBACK, body)
}

func (pkt *SUBACKPacket) Unpack(b *bytes.Buffer) error {
	if b.Len() < 6 {
		return ErrMalformedLength
	}
	flags, _ := b.ReadByte()
	pkt.Flags = decodeFlags(flags)
	pkt.TopicID = binary.BigEndian.Uint16(b.Next(2))
	pkt.MsgID = binary.BigEndian.Uint16(b.Next(2))
	rc, _ := b.ReadByte()
	pkt.ReturnCode = ReturnCode(rc)
	return nil
}
