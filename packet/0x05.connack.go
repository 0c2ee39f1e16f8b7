package packet

import (
	"bytes"
	"io"
)

// CONNACKPacket acknowledges a CONNECT. Inbound-only: ReturnCode(1).
type CONNACKPacket struct {
	ReturnCode ReturnCode
}

func (pkt *CONNACKPacket) Kind() MsgType { return CONNACK }

func (pkt *CONNACKPacket) Pack(w io.Writer) error {
	return packLen(w, CONNACK, []byte{byte(pkt.ReturnCode)})
}

func (pkt *CONNACKPacket) Unpack(b *bytes.Buffer) error {
	if b.Len() < 1 {
		return ErrMalformedLength
	}
	rc, _ := b.ReadByte()
	pkt.ReturnCode = ReturnCode(rc)
	return nil
}
