// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vbus

import (
	"fmt"
	"time"
)

// Packet is a VBus protocol 0x10 frame: command plus a variable number of
// 4-byte payload frames.
type Packet struct {
	Header     Header
	Command    uint16
	FrameCount uint8
	FrameData  []byte // len == FrameCount*4
}

// IDString renders the packet's identity the way RESOL tools print it.
func (p *Packet) IDString() string {
	return fmt.Sprintf("%s_%04X", p.Header.IDString(), p.Command)
}

// ID returns the PacketID join key for this packet.
func (p *Packet) ID() PacketID {
	return PacketID{
		Channel:            p.Header.Channel,
		DestinationAddress: p.Header.DestinationAddress,
		SourceAddress:      p.Header.SourceAddress,
		Command:            p.Command,
	}
}

// IDHash implements IDHash over the packet's identity tuple.
func (p *Packet) IDHash() uint64 {
	return IDHash(p.Header.Channel, p.Header.DestinationAddress, p.Header.SourceAddress, p.Header.ProtocolVersion, p.Command)
}

// Datagram is a VBus protocol 0x20 frame: a single-frame command with two
// scalar parameters.
type Datagram struct {
	Header  Header
	Command uint16
	Param16 int16
	Param32 int32
}

// IDString renders the datagram's identity the way RESOL tools print it.
// Command 0x0900 is the one documented exception that folds Param16 into
// the identity string (RESOL uses 0x0900 for addressed broadcast replies,
// where the reply target lives in Param16 rather than in the header).
func (d *Datagram) IDString() string {
	info := 0
	if d.Command == 0x0900 {
		info = int(d.Param16)
	}
	return fmt.Sprintf("%s_%04X_%04X", d.Header.IDString(), d.Command, uint16(info))
}

// ID returns the PacketID join key for this datagram.
func (d *Datagram) ID() PacketID {
	return PacketID{
		Channel:            d.Header.Channel,
		DestinationAddress: d.Header.DestinationAddress,
		SourceAddress:      d.Header.SourceAddress,
		Command:            d.Command,
	}
}

// IDHash implements IDHash over the datagram's identity tuple.
func (d *Datagram) IDHash() uint64 {
	return IDHash(d.Header.Channel, d.Header.DestinationAddress, d.Header.SourceAddress, d.Header.ProtocolVersion, d.Command)
}

// Telegram is a VBus protocol 0x30 frame: an 8-bit command and up to 21
// payload bytes (command>>5 frames of 7 bytes each).
type Telegram struct {
	Header    Header
	Command   uint8
	FrameData []byte // len == TelegramFrameCount(Command)*7
}

// TelegramFrameCount derives the number of 7-byte payload frames encoded
// in a Telegram from its command byte: the top 3 bits (command>>5).
//
// spec.md's distilled text describes this as "the low nibble... via a
// fixed table," but that description is itself flagged there as an open
// question; verified against the original decoder, the true rule is the
// command's top 3 bits. See DESIGN.md.
func TelegramFrameCount(command uint8) uint8 {
	return command >> 5
}

// IDString renders the telegram's identity the way RESOL tools print it.
func (t *Telegram) IDString() string {
	return fmt.Sprintf("%s_%02X", t.Header.IDString(), t.Command)
}

// ID returns the PacketID join key for this telegram. Telegram commands
// are 8-bit; they widen into the 16-bit PacketID.Command field unchanged.
func (t *Telegram) ID() PacketID {
	return PacketID{
		Channel:            t.Header.Channel,
		DestinationAddress: t.Header.DestinationAddress,
		SourceAddress:      t.Header.SourceAddress,
		Command:            uint16(t.Command),
	}
}

// IDHash implements IDHash over the telegram's identity tuple.
func (t *Telegram) IDHash() uint64 {
	return IDHash(t.Header.Channel, t.Header.DestinationAddress, t.Header.SourceAddress, t.Header.ProtocolVersion, uint16(t.Command))
}

// Data is the discriminated union flowing through the decoding pipeline:
// exactly one of Packet, Datagram, or Telegram is non-nil.
type Data struct {
	Packet   *Packet
	Datagram *Datagram
	Telegram *Telegram
}

// IsPacket reports whether this Data holds a Packet.
func (d Data) IsPacket() bool { return d.Packet != nil }

// IsDatagram reports whether this Data holds a Datagram.
func (d Data) IsDatagram() bool { return d.Datagram != nil }

// IsTelegram reports whether this Data holds a Telegram.
func (d Data) IsTelegram() bool { return d.Telegram != nil }

// Header returns the common Header of whichever variant is set.
func (d Data) Header() Header {
	switch {
	case d.Packet != nil:
		return d.Packet.Header
	case d.Datagram != nil:
		return d.Datagram.Header
	case d.Telegram != nil:
		return d.Telegram.Header
	default:
		return Header{}
	}
}

// IDString renders whichever variant is set.
func (d Data) IDString() string {
	switch {
	case d.Packet != nil:
		return d.Packet.IDString()
	case d.Datagram != nil:
		return d.Datagram.IDString()
	case d.Telegram != nil:
		return d.Telegram.IDString()
	default:
		return ""
	}
}

// ID returns the PacketID of whichever variant is set.
func (d Data) ID() PacketID {
	switch {
	case d.Packet != nil:
		return d.Packet.ID()
	case d.Datagram != nil:
		return d.Datagram.ID()
	case d.Telegram != nil:
		return d.Telegram.ID()
	default:
		return PacketID{}
	}
}

// IDHash returns the identity hash of whichever variant is set.
func (d Data) IDHash() uint64 {
	switch {
	case d.Packet != nil:
		return d.Packet.IDHash()
	case d.Datagram != nil:
		return d.Datagram.IDHash()
	case d.Telegram != nil:
		return d.Telegram.IDHash()
	default:
		return 0
	}
}

// Timestamp returns the wall-clock timestamp of whichever variant is set.
func (d Data) Timestamp() time.Time {
	return d.Header().Timestamp
}
