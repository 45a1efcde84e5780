// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vbus

import "hash/fnv"

// IDHash is implemented by every value identifiable by a PacketID-equivalent
// tuple (channel, destination, source, protocol version, command).
//
// The mixing function is FNV-1a-64 applied to the little-endian byte
// encoding of the identity tuple. This project does not reproduce the
// SipHash-based hasher of the original Rust implementation: the contract
// this library must uphold is internal stability (identical hash across
// runs of this codebase, used for O(1) DataSet merge), not bit-for-bit
// agreement with a hasher seeded differently per process in the reference
// implementation anyway. See DESIGN.md for the full rationale.
func IDHash(channel uint8, destination, source uint16, protocolVersion uint8, command uint16) uint64 {
	var buf [8]byte
	buf[0] = channel
	buf[1] = byte(destination)
	buf[2] = byte(destination >> 8)
	buf[3] = byte(source)
	buf[4] = byte(source >> 8)
	buf[5] = protocolVersion
	buf[6] = byte(command)
	buf[7] = byte(command >> 8)

	h := fnv.New64a()
	_, _ = h.Write(buf[:])
	return h.Sum64()
}

// IDHash returns the identity hash of this PacketID. PacketID carries no
// protocol version, so the tuple is hashed with the Packet protocol version
// (0x10) and the full 16-bit command; the result equals the IDHash of a
// Packet record with the same tuple and ProtocolVersion 0x10.
func (id PacketID) IDHash() uint64 {
	return IDHash(id.Channel, id.DestinationAddress, id.SourceAddress, uint8(ProtocolPacket), id.Command)
}
