package packet

import (
	"bytes"
	"encoding/binary"
	"io"
)

// DISCONNECTPacket: Duration(2), optional sleep duration. A zero
// Duration is still encoded explicitly, matching the reference
// implementation's mqtt_sn_send_disconnect (see SPEC_FULL.md).
type DISCONNECTPacket struct {
	Duration uint16
}

func (pkt *DISCONNECTPacket) Kind() MsgType { return DISCONNECT }

func (pkt *DISCONNECTPacket) Pack(w io.Writer) error {
	body := binary.BigEndian.AppendUint16(nil, pkt.Duration)
	return packLen(w, DISCONNECT, body)
}

func (pkt *DISCONNECTPacket) Unpack(b *bytes.Buffer) error {
	if b.Len() >= 2 {
		pkt.Duration = binary.BigEndian.Uint16(b.Next(2))
	}
	return nil
}
