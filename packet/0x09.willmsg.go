package packet

import (
	"bytes"
	"io"
)

// WILLMSGPacket: WillMessage(N).
type WILLMSGPacket struct {
	WillMessage []byte
}

func (pkt *WILLMSGPacket) Kind() MsgType { return WILLMSG }

func (pkt *WILLMSGPacket) Pack(w io.Writer) error {
	return packLen(w, WILLMSG, pkt.WillMessage)
}

func (pkt *WILLMSGPacket) Unpack(b *bytes.Buffer) error {
	pkt.WillMessage = append([]byte(nil), b.Bytes()...)
	return nil
}
