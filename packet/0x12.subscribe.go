package packet

import (
	"bytes"
	"encoding/binary"
	"io"
)

// SUBSCRIBEPacket: Flags(1), MsgId(2), then either TopicId(2) when
// Flags.TopicIDType is predefined/short-name, or TopicName(N) when it is
// normal (spec.md §4.1). This engine always sends predefined ids for
// registered topics and a plain topic name for wildcard subscriptions
// (spec.md §4.5, §9 open question 3).
type SUBSCRIBEPacket struct {
	Flags     Flags
	MsgID     uint16
	TopicID   uint16
	TopicName string
}

func (pkt *SUBSCRIBEPacket) Kind() MsgType { return SUBSCRIBE }

func (pkt *SUBSCRIBEPacket) Pack(w io.Writer) error {
	body := make([]byte, 0, 3+len(pkt.TopicName)+2)
	body = append(body, pkt.Flags.encode())
	body = binary.BigEndian.AppendUint16(body, pkt.MsgID)
	if pkt.Flags.TopicIDType == TopicIDNormal {
		if len(pkt.TopicName) > MaxTopicLength {
			return ErrTopicTooLong
		}
		body = append(body, pkt.TopicName...)
	} else {
		body = binary.BigEndian.AppendUint16(body, pkt.TopicID)
	}
	return packLen(w, SUBSCRIBE, body)
}

func (pkt *SUBSCRIBEPacket) Unpack(b *bytes.Buffer) error {
	if b.Len() < 3 {
		return ErrMalformedLength
	}
	flags, _ := b.ReadByte()
	pkt.Flags = decodeFlags(flags)
	pkt.MsgID = binary.BigEndian.Uint16(b.Next(2))
	if pkt.Flags.TopicIDType == TopicIDNormal {
		pkt.TopicName = b.String()
	} else if b.Len() >= 2 {
		pkt.TopicID = binary.BigEndian.Uint16(b.Next(2))
	}
	return nil
}
