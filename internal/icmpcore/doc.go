// Package icmpcore implements the concurrent ICMPv4 echo probing engine
// shared by ping and traceroute modes: packet encoding/decoding, an
// unprivileged ICMP datagram socket with kernel error-queue support,
// sequence-correlated outstanding-probe tracking, and the send/receive
// drivers for both operating modes.
package icmpcore
