// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package vbus decodes, aggregates, and records telemetry carried on the
// RESOL VBus field bus. It implements the framing/resync layer, the three
// VBus frame families (Packet, Datagram, Telegram), a VBus Specification
// File (VSF) loader and lookup engine, a current-state DataSet aggregator,
// and a self-describing recording container format.
package vbus

import (
	"fmt"
	"time"
)

// Protocol identifies which VBus frame family a Header belongs to.
type Protocol uint8

// The three VBus frame families, distinguished by protocol_version.
const (
	ProtocolPacket   Protocol = 0x10
	ProtocolDatagram Protocol = 0x20
	ProtocolTelegram Protocol = 0x30
)

func (p Protocol) String() string {
	switch p {
	case ProtocolPacket:
		return "Packet"
	case ProtocolDatagram:
		return "Datagram"
	case ProtocolTelegram:
		return "Telegram"
	default:
		return fmt.Sprintf("Protocol(0x%02X)", uint8(p))
	}
}

// SyncByte is the VBus frame synchronization marker.
const SyncByte = 0xAA

// Header is the common prefix of every VBus frame family.
type Header struct {
	Timestamp         time.Time
	Channel           uint8
	DestinationAddress uint16
	SourceAddress      uint16
	ProtocolVersion    uint8
}

// IDString renders the channel/destination/source/protocol tuple the way
// RESOL tools conventionally print it: "CH_DEST_SRC_PROTO".
func (h Header) IDString() string {
	return fmt.Sprintf("%02X_%04X_%04X_%02X", h.Channel, h.DestinationAddress, h.SourceAddress, h.ProtocolVersion)
}

// PacketID is the join key between live packets and the specification:
// (channel, destination_address, source_address, command).
type PacketID struct {
	Channel            uint8
	DestinationAddress uint16
	SourceAddress      uint16
	Command            uint16
}

// String renders "CH_DEST_SRC_10_COMMAND": the embedded "10" is the literal
// Packet protocol version, not a stored field — PacketID only ever
// identifies Packets.
func (id PacketID) String() string {
	return fmt.Sprintf("%02X_%04X_%04X_10_%04X", id.Channel, id.DestinationAddress, id.SourceAddress, id.Command)
}

// PacketFieldID joins a PacketID with a stable field identifier string.
type PacketFieldID struct {
	PacketID PacketID
	FieldID  string
}

func (id PacketFieldID) String() string {
	return fmt.Sprintf("%s_%s", id.PacketID, id.FieldID)
}
