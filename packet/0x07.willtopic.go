package packet

import (
	"bytes"
	"io"
)

// WILLTOPICPacket: Flags(1), WillTopic(N).
type WILLTOPICPacket struct {
	Flags     Flags
	WillTopic string
}

func (pkt *WILLTOPICPacket) Kind() MsgType { return WILLTOPIC }

func (pkt *WILLTOPICPacket) Pack(w io.Writer) error {
	body := make([]byte, 0, 1+len(pkt.WillTopic))
	body = append(body, pkt.Flags.encode())
	body = append(body, pkt.WillTopic...)
	return packLen(w, WILLTOPIC, body)
}

func (pkt *WILLTOPICPacket) Unpack(b *bytes.Buffer) error {
	if b.Len() < 1 {
		return ErrMalformedLength
	}
	flags, _ := b.ReadByte()
	pkt.Flags = decodeFlags(flags)
	pkt.WillTopic = b.String()
	return nil
}
