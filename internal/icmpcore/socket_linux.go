//go:build linux

package icmpcore

import (
	"context"
	"net"
	"syscall"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/sys/unix"
)

// Socket wraps an unprivileged ICMP datagram socket (AF_INET, SOCK_DGRAM,
// IPPROTO_ICMP — the "ping_group_range" socket type) with awaitable send,
// normal receive, and error-queue receive operations. Send and Recv may be
// called concurrently from different goroutines; both share the same
// underlying file descriptor, which is safe for datagram sockets.
type Socket struct {
	conn *icmp.PacketConn
	raw  syscall.RawConn
	fd   int
	dest Destination
}

// NewSocket opens the socket and applies cfg's options. It fails if dest
// equals one of the host's interface broadcast addresses and cfg.Broadcast
// is false.
func NewSocket(dest Destination, cfg SocketConfig) (*Socket, error) {
	if !cfg.Broadcast {
		if isBroadcastAddr(dest.IP) {
			return nil, ErrBroadcastTarget
		}
	}

	conn, err := icmp.ListenPacket("udp4", "0.0.0.0")
	if err != nil {
		return nil, err
	}

	raw, fd, err := rawConnAndFD(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_IP, unix.IP_RECVERR, 1); err != nil {
		conn.Close()
		return nil, err
	}
	broadcastOpt := 0
	if cfg.Broadcast {
		broadcastOpt = 1
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_BROADCAST, broadcastOpt); err != nil {
		conn.Close()
		return nil, err
	}
	if cfg.DontRoute {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_DONTROUTE, 1); err != nil {
			conn.Close()
			return nil, err
		}
	}

	s := &Socket{conn: conn, raw: raw, fd: fd, dest: dest}
	if cfg.TTL > 0 {
		if err := s.SetTTL(cfg.TTL); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return s, nil
}

// rawConnAndFD recovers the underlying syscall.RawConn and file descriptor
// from the icmp.PacketConn's IPv4 connection, so the caller can apply
// socket options and perform MSG_ERRQUEUE reads that the library does not
// expose directly.
func rawConnAndFD(conn *icmp.PacketConn) (syscall.RawConn, int, error) {
	pc := conn.IPv4PacketConn()
	sc, ok := pc.PacketConn.(interface {
		SyscallConn() (syscall.RawConn, error)
	})
	if !ok {
		return nil, 0, errNoSyscallConn
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return nil, 0, err
	}
	var fd int
	if ctrlErr := rc.Control(func(p uintptr) { fd = int(p) }); ctrlErr != nil {
		return nil, 0, ctrlErr
	}
	return rc, fd, nil
}

// Send hands the encoded Echo Request to the kernel. It blocks only until
// the datagram is accepted by the socket buffer, not until it is on the
// wire.
func (s *Socket) Send(ctx context.Context, pkt []byte) error {
	if dl, ok := ctx.Deadline(); ok {
		s.conn.SetWriteDeadline(dl)
	} else {
		s.conn.SetWriteDeadline(time.Time{})
	}
	_, err := s.conn.WriteTo(pkt, s.dest.udpAddr())
	return err
}

// Recv blocks until the next ICMP datagram arrives on the socket (a normal
// Echo Reply, Time Exceeded, or other ICMP message — not an error-queue
// notification, which RecvErr handles separately).
func (s *Socket) Recv(ctx context.Context, buf []byte) (int, net.Addr, error) {
	if dl, ok := ctx.Deadline(); ok {
		s.conn.SetReadDeadline(dl)
	} else {
		s.conn.SetReadDeadline(time.Time{})
	}
	return s.conn.ReadFrom(buf)
}

// SetTTL changes the outgoing hop limit for subsequent sends.
func (s *Socket) SetTTL(ttl int) error {
	return s.conn.IPv4PacketConn().SetTTL(ttl)
}

// Close releases the socket.
func (s *Socket) Close() error {
	return s.conn.Close()
}

// isBroadcastAddr reports whether ip equals the broadcast address of any of
// the host's configured IPv4 interfaces.
func isBroadcastAddr(ip net.IP) bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok || ipNet.IP.To4() == nil {
				continue
			}
			bcast := broadcastOf(ipNet)
			if bcast != nil && bcast.Equal(ip) {
				return true
			}
		}
	}
	return false
}

// broadcastOf computes the directed broadcast address of an IPv4 network.
func broadcastOf(n *net.IPNet) net.IP {
	ip4 := n.IP.To4()
	if ip4 == nil {
		return nil
	}
	mask := n.Mask
	bcast := make(net.IP, 4)
	for i := range ip4 {
		bcast[i] = ip4[i] | ^mask[i]
	}
	return bcast
}
