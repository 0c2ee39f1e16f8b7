package packet

import (
	"bytes"
	"io"
)

// PINGRESPPacket: inbound-only, no body.
type PINGRESPPacket struct{}

func (pkt *PINGRESPPacket) Kind() MsgType { return PINGRESP }

func (pkt *PINGRESPPacket) Pack(w io.Writer) error {
	return packLen(w, PINGRESP, nil)
}

func (pkt *PINGRESPPacket) Unpack(b *bytes.Buffer) error {
	return nil
}
