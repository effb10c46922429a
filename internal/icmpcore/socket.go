package icmpcore

import "net"

// Destination is an IPv4 address plus port zero. ICMP has no notion of a
// port, but the socket address family used for unprivileged ICMP datagram
// sockets requires one; it is always zero.
type Destination struct {
	IP net.IP
}

func (d Destination) udpAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: d.IP}
}

// SocketConfig configures NewSocket.
type SocketConfig struct {
	// TTL is the initial outgoing hop limit.
	TTL int

	// Broadcast permits sending to a broadcast address. If false and the
	// destination resolves to one of the host's interface broadcast
	// addresses, NewSocket fails with ErrBroadcastTarget.
	Broadcast bool

	// DontRoute sets SO_DONTROUTE, bypassing the routing table.
	DontRoute bool
}
