// Package icmp measures round-trip latency to an IPv4 host with ICMP echo.
//
// # Architecture
//
// A probe batch runs synchronously on one raw socket:
//
//  1. The destination is resolved to an IPv4 address (once per Run)
//  2. An echo request is encoded with the session identifier, a sequence
//     number and the send timestamp in its payload
//  3. The request is sent over the raw socket
//  4. Datagrams are read until a matching echo reply arrives or the
//     per-probe timeout is spent; anything else is discarded
//  5. The round-trip time is the receive time minus the embedded timestamp
//  6. The session sleeps for the interval and moves to the next probe
//
// # Raw Sockets
//
// Raw ICMP sockets need root or CAP_NET_RAW on Linux:
//
//	setcap cap_net_raw+ep ./picmp
//
// Without it NewSession fails with an error wrapping ErrPermission.
//
// # Sequence Numbers
//
// By default each probe carries its own sequence number, starting at 1,
// and a reply must match both identifier and sequence. Config.FixedSequence
// sends sequence 1 on every probe and matches on identifier alone.
//
// # Samples
//
// A probe without a reply yields a Sample with Replied unset, reported as
// NoReply (-1) by Sample.Milliseconds. Zero is a valid latency.
package icmp
