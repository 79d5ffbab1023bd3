package icmp

// Checksum computes the ICMP one's-complement checksum of b.
//
// Words are summed in host (little-endian) pair order and the folded,
// complemented result is byte swapped, so the returned value is meant to be
// written big-endian into the checksum field. An empty buffer yields 0xFFFF.
func Checksum(b []byte) uint16 {
	var sum uint32

	countTo := len(b) / 2 * 2
	for i := 0; i < countTo; i += 2 {
		sum += uint32(b[i+1])<<8 | uint32(b[i])
	}

	// Trailing odd byte
	if countTo < len(b) {
		sum += uint32(b[len(b)-1])
	}

	for sum>>16 != 0 {
		sum = (sum >> 16) + (sum & 0xffff)
	}

	answer := uint16(^sum & 0xffff)
	return answer>>8 | answer<<8
}

// VerifyChecksum reports whether b, a complete ICMP message with its
// checksum field filled in, carries a valid checksum.
func VerifyChecksum(b []byte) bool {
	return Checksum(b) == 0
}
