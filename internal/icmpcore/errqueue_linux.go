//go:build linux

package icmpcore

import (
	"encoding/binary"
	"net"

	"golang.org/x/sys/unix"
)

// extendedErr is the fixed-size prefix of Linux's struct sock_extended_err
// (include/uapi/linux/errqueue.h). The offender's struct sockaddr_in (for
// ICMP/ICMPv6 origins) immediately follows it in the same control message,
// recovered via SO_EE_OFFENDER in the reference implementation; here it is
// read directly off the trailing bytes instead of going through cgo.
type extendedErr struct {
	errno  uint32
	origin uint8
	typ    uint8
	code   uint8
	pad    uint8
	info   uint32
	data   uint32
}

const extendedErrSize = 16

// RecvErr drains one notification from the socket's error queue and
// classifies it. It blocks until a notification is available. The returned
// ProbeID is parsed directly from the echoed Echo Request header that the
// kernel attaches as the message's ordinary payload — for an ICMP datagram
// socket this is the bare 8-byte header with no IP prefix, unlike the
// IP-header-prefixed echo seen on raw/UDP traceroute sockets.
func (s *Socket) RecvErr() (*IcmpError, error) {
	buf := make([]byte, 512)
	oob := make([]byte, 512)

	var n, oobn int
	var recvErr error
	err := s.raw.Read(func(fd uintptr) bool {
		n, oobn, _, _, recvErr = unix.Recvmsg(int(fd), buf, oob, unix.MSG_ERRQUEUE)
		return true
	})
	if err != nil {
		return nil, err
	}
	if recvErr != nil {
		return nil, recvErr
	}

	scms, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return nil, err
	}

	var seq ProbeID
	if n >= 8 {
		seq = ProbeID(uint16(buf[6])<<8 | uint16(buf[7]))
	}

	for _, scm := range scms {
		if !isRecvErrCmsg(scm.Header) {
			continue
		}
		if len(scm.Data) < extendedErrSize {
			continue
		}
		ee := parseExtendedErr(scm.Data)
		return classifyExtendedErr(ee, scm.Data[extendedErrSize:], seq), nil
	}
	return nil, ErrShortPacket
}

func isRecvErrCmsg(h unix.Cmsghdr) bool {
	return (h.Level == unix.SOL_IP && h.Type == unix.IP_RECVERR) ||
		(h.Level == unix.SOL_IPV6 && h.Type == unix.IPV6_RECVERR)
}

func parseExtendedErr(data []byte) extendedErr {
	return extendedErr{
		errno:  binary.LittleEndian.Uint32(data[0:4]),
		origin: data[4],
		typ:    data[5],
		code:   data[6],
		pad:    data[7],
		info:   binary.LittleEndian.Uint32(data[8:12]),
		data:   binary.LittleEndian.Uint32(data[12:16]),
	}
}

// classifyExtendedErr maps the kernel's ee_origin/ee_type/ee_code triple
// onto an IcmpError, pulling the offending hop's address out of the
// trailing sockaddr_in when present.
func classifyExtendedErr(ee extendedErr, offenderRaw []byte, seq ProbeID) *IcmpError {
	hop := parseOffenderAddr(offenderRaw)

	if ee.origin != unix.SO_EE_ORIGIN_ICMP && ee.origin != unix.SO_EE_ORIGIN_ICMP6 {
		return &IcmpError{
			Kind:     KindUnknownOrigin,
			Hop:      hop,
			Seq:      seq,
			EEType:   ee.typ,
			EECode:   ee.code,
			EEOrigin: ErrorOrigin(ee.origin),
		}
	}

	switch ee.typ {
	case typeTimeExceeded:
		return &IcmpError{Kind: KindTimeExceeded, Hop: hop, Seq: seq}
	case typeUnreachable:
		switch ee.code {
		case codeNetUnreachable:
			return &IcmpError{Kind: KindNetworkUnreachable, Hop: hop, Seq: seq}
		case codeHostUnreachable:
			return &IcmpError{Kind: KindHostUnreachable, Hop: hop, Seq: seq}
		case codeProtoUnreachable:
			return &IcmpError{Kind: KindProtocolUnreachable, Hop: hop, Seq: seq}
		case codePortUnreachable:
			return &IcmpError{Kind: KindPortUnreachable, Hop: hop, Seq: seq}
		default:
			return &IcmpError{Kind: KindOtherUnreachable, Hop: hop, Seq: seq, Code: ee.code}
		}
	default:
		return &IcmpError{Kind: KindUnknown, Hop: hop, Seq: seq, EEType: ee.typ, EECode: ee.code}
	}
}

// parseOffenderAddr reads the IPv4 address out of a trailing struct
// sockaddr_in: 2 bytes family, 2 bytes port, 4 bytes address, then padding.
// Too-short input (offender unknown) yields a nil IP.
func parseOffenderAddr(raw []byte) net.IP {
	if len(raw) < 8 {
		return nil
	}
	family := binary.LittleEndian.Uint16(raw[0:2])
	if family != unix.AF_INET {
		return nil
	}
	return net.IPv4(raw[4], raw[5], raw[6], raw[7])
}
