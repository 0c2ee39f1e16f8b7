package packet

import (
	"bytes"
	"io"
)

// WILLTOPICREQPacket: inbound-only, no body. The gateway asks the client
// for its will topic during the CONNECT handshake.
type WILLTOPICREQPacket struct{}

func (pkt *WILLTOPICREQPacket) Kind() MsgType { return WILLTOPICREQ }

func (pkt *WILLTOPICREQPacket) Pack(w io.Writer) error {
	return packLen(w, WILLTOPICREQ, nil)
}

func (pkt *WILLTOPICREQPacket) Unpack(b *bytes.Buffer) error {
	return nil
}
