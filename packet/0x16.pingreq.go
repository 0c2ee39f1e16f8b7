package packet

import (
	"bytes"
	"io"
)

// PINGREQPacket: ClientId(N), optional. The client sends its ClientId on
// the keep-alive ping it originates; the auto-reply the engine sends
// when the gateway itself sends a PINGREQ (spec.md §4.5, §9 open
// question 4) carries no payload.
type PINGREQPacket struct {
	ClientID string
}

func (pkt *PINGREQPacket) Kind() MsgType { return PINGREQ }

func (pkt *PINGREQPacket) Pack(w io.Writer) error {
	return packLen(w, PINGREQ, []byte(pkt.ClientID))
}

func (pkt *PINGREQPacket) Unpack(b *bytes.Buffer) error {
	pkt.ClientID = b.String()
	return nil
}
