package packet

import (
	"bytes"
	"testing"
)

func roundTrip(t *testing.T, pkt Packet) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := pkt.Pack(&buf); err != nil {
		t.Fatalf("Pack: %v", err)
	}
	encoded := append([]byte(nil), buf.Bytes()...)

	decoded, err := Decode(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	var again bytes.Buffer
	if err := decoded.Pack(&again); err != nil {
		t.Fatalf("re-Pack: %v", err)
	}
	if !bytes.Equal(encoded, again.Bytes()) {
		t.Fatalf("round trip mismatch: %x != %x", encoded, again.Bytes())
	}
	return encoded
}

func TestConnectRoundTrip(t *testing.T) {
	pkt := &CONNECTPacket{
		Flags:    Flags{CleanSession: true, Will: false},
		Duration: 5,
		ClientID: "C",
	}
	b := roundTrip(t, pkt)
	if b[0] != byte(len(b)) {
		t.Fatalf("Length byte %d != actual length %d", b[0], len(b))
	}
	if MsgType(b[1]) != CONNECT {
		t.Fatalf("MsgType = %v, want CONNECT", MsgType(b[1]))
	}
}

func TestRegisterRoundTrip(t *testing.T) {
	roundTrip(t, &REGISTERPacket{TopicID: 0, MsgID: 1, TopicName: "/a"})
	roundTrip(t, &REGISTERPacket{TopicID: 9, MsgID: 7, TopicName: "/a/x"})
}

func TestRegackRoundTrip(t *testing.T) {
	roundTrip(t, &REGACKPacket{TopicID: 5, MsgID: 1, ReturnCode: Accepted})
}

func TestPublishRoundTrip(t *testing.T) {
	roundTrip(t, &PUBLISHPacket{
		Flags:   Flags{QoS: 0},
		TopicID: 5,
		Data:    []byte("hi"),
	})
}

func TestSubscribeNormalRoundTrip(t *testing.T) {
	roundTrip(t, &SUBSCRIBEPacket{
		Flags:     Flags{TopicIDType: TopicIDNormal},
		MsgID:     3,
		TopicName: "/a/#",
	})
}

func TestSubscribePredefinedRoundTrip(t *testing.T) {
	roundTrip(t, &SUBSCRIBEPacket{
		Flags:   Flags{TopicIDType: TopicIDPredefined},
		MsgID:   3,
		TopicID: 5,
	})
}

func TestSubackRoundTrip(t *testing.T) {
	roundTrip(t, &SUBACKPacket{TopicID: 0, MsgID: 3, ReturnCode: Accepted})
}

func TestPingreqRoundTrip(t *testing.T) {
	roundTrip(t, &PINGREQPacket{ClientID: "C"})
	roundTrip(t, &PINGREQPacket{})
}

func TestDisconnectRoundTrip(t *testing.T) {
	roundTrip(t, &DISCONNECTPacket{Duration: 0})
	roundTrip(t, &DISCONNECTPacket{Duration: 120})
}

func TestDecodeRejectsBadLength(t *testing.T) {
	// Claims Length=10 but the packet is only 4 bytes long.
	buf := bytes.NewReader([]byte{10, byte(PINGRESP), 0, 0})
	if _, err := Decode(buf); err == nil {
		t.Fatal("expected error for truncated packet")
	}
}

func TestDecodeRejectsUnknownMsgType(t *testing.T) {
	buf := bytes.NewReader([]byte{2, 0x7F})
	if _, err := Decode(buf); err == nil {
		t.Fatal("expected error for unrecognised MsgType")
	}
}

func TestFlagsEncodeQosNegativeOne(t *testing.T) {
	f := Flags{QoS: -1}
	if got := decodeFlags(f.encode()).QoS; got != -1 {
		t.Fatalf("QoS round trip = %d, want -1", got)
	}
}
