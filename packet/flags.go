package packet

// TopicIDType occupies bits 1-0 of the Flags byte.
type TopicIDType uint8

const (
	TopicIDNormal     TopicIDType = 0
	TopicIDPredefined TopicIDType = 1
	TopicIDShortName  TopicIDType = 2
)

// Flags is the single-byte flags field shared by CONNECT, WILLTOPIC,
// PUBLISH, SUBSCRIBE and SUBACK. Bit layout, per spec.md §4.1:
//
//	bit 7   DUP
//	bits 6-5 QoS   (0/1/2, or 3 meaning QoS -1)
//	bit 4   RETAIN
//	bit 3   WILL
//	bit 2   CLEAN
//	bits 1-0 TopicIdType
type Flags struct {
	Dup          bool
	QoS          int8 // -1, 0, 1 or 2
	Retain       bool
	Will         bool
	CleanSession bool
	TopicIDType  TopicIDType
}

func (f Flags) encode() byte {
	var b byte
	if f.Dup {
		b |= 1 << 7
	}
	b |= qosBits(f.QoS) << 5
	if f.Retain {
		b |= 1 << 4
	}
	if f.Will {
		b |= 1 << 3
	}
	if f.CleanSession {
		b |= 1 << 2
	}
	b |= byte(f.TopicIDType) & 0x03
	return b
}

func decodeFlags(b byte) Flags {
	return Flags{
		Dup:          b&(1<<7) != 0,
		QoS:          qosFromBits((b >> 5) & 0x03),
		Retain:       b&(1<<4) != 0,
		Will:         b&(1<<3) != 0,
		CleanSession: b&(1<<2) != 0,
		TopicIDType:  TopicIDType(b & 0x03),
	}
}

// qosBits encodes QoS -1 as the reserved value 3, per spec.md §4.1.
func qosBits(qos int8) byte {
	if qos == -1 {
		return 3
	}
	return byte(qos) & 0x03
}

func qosFromBits(b byte) int8 {
	if b == 3 {
		return -1
	}
	return int8(b)
}
