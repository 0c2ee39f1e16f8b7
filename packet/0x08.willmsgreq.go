package packet

import (
	"bytes"
	"io"
)

// WILLMSGREQPacket: inbound-only, no body.
type WILLMSGREQPacket struct{}

func (pkt *WILLMSGREQPacket) Kind() MsgType { return WILLMSGREQ }

func (pkt *WILLMSGREQPacket) Pack(w io.Writer) error {
	return packLen(w, WILLMSGREQ, nil)
}

func (pkt *WILLMSGREQPacket) Unpack(b *bytes.Buffer) error {
	return nil
}
