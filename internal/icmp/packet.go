package icmp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/net/ipv4"
)

const (
	// HeaderLen is the length of an ICMP echo header.
	HeaderLen = 8

	// PayloadLen is the length of the echo payload: an 8-byte send
	// timestamp followed by filler.
	PayloadLen = 192

	// MessageLen is the length of an encoded echo request.
	MessageLen = HeaderLen + PayloadLen

	timestampLen = 8
	fillerByte   = 'Q'
)

var filler = bytes.Repeat([]byte{fillerByte}, PayloadLen-timestampLen)

// EchoReply holds the fields decoded from an inbound IPv4 ICMP datagram.
type EchoReply struct {
	Type     uint8
	Code     uint8
	Checksum uint16
	ID       uint16
	Seq      uint16

	// Timestamp is the send time embedded by EncodeEchoRequest, in seconds.
	// Only meaningful when HasTimestamp is set.
	Timestamp    float64
	HasTimestamp bool
}

// EncodeEchoRequest builds an ICMP echo request carrying sent as its
// payload timestamp. The returned slice is MessageLen bytes long.
func EncodeEchoRequest(id, seq uint16, sent float64) []byte {
	b := make([]byte, MessageLen)

	b[0] = byte(ipv4.ICMPTypeEcho)
	b[1] = 0
	// b[2:4] stays zero while the checksum is computed
	binary.BigEndian.PutUint16(b[4:6], id)
	binary.BigEndian.PutUint16(b[6:8], seq)

	binary.BigEndian.PutUint64(b[HeaderLen:HeaderLen+timestampLen], math.Float64bits(sent))
	copy(b[HeaderLen+timestampLen:], filler)

	binary.BigEndian.PutUint16(b[2:4], Checksum(b))
	return b
}

// DecodeEchoReply parses a datagram as read from a raw IPv4 socket, which
// starts with the IP header. The IP header length is taken from the IHL
// field when the datagram looks like IPv4, otherwise ipv4.HeaderLen is
// assumed.
func DecodeEchoReply(datagram []byte) (*EchoReply, error) {
	off := ipHeaderLen(datagram)
	if len(datagram) < off+HeaderLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncatedPacket, len(datagram))
	}

	h := datagram[off : off+HeaderLen]
	reply := &EchoReply{
		Type:     h[0],
		Code:     h[1],
		Checksum: binary.BigEndian.Uint16(h[2:4]),
		ID:       binary.BigEndian.Uint16(h[4:6]),
		Seq:      binary.BigEndian.Uint16(h[6:8]),
	}

	payload := datagram[off+HeaderLen:]
	if len(payload) >= timestampLen {
		reply.Timestamp = math.Float64frombits(binary.BigEndian.Uint64(payload[:timestampLen]))
		reply.HasTimestamp = true
	}

	return reply, nil
}

// Matches reports whether r is the echo reply to a request sent with id and
// seq. The sequence is only compared when checkSeq is set. Echo requests are
// never matched; on loopback the socket also sees its own outgoing packets.
func (r *EchoReply) Matches(id, seq uint16, checkSeq bool) bool {
	if r.Type != uint8(ipv4.ICMPTypeEchoReply) {
		return false
	}
	if r.ID != id {
		return false
	}
	return !checkSeq || r.Seq == seq
}

func ipHeaderLen(datagram []byte) int {
	if len(datagram) > 0 && datagram[0]>>4 == ipv4.Version {
		if ihl := int(datagram[0]&0x0f) << 2; ihl >= ipv4.HeaderLen {
			return ihl
		}
	}
	return ipv4.HeaderLen
}
