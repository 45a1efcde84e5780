// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vbus

import (
	"bytes"
	"testing"
	"time"
)

func TestPacketFramingRoundTrip(t *testing.T) {
	ts := time.Unix(1_700_000_000, 0).UTC()
	want := &Packet{
		Header: Header{
			Timestamp: ts, Channel: 1,
			DestinationAddress: 0x0010, SourceAddress: 0x7E11,
			ProtocolVersion: uint8(ProtocolPacket),
		},
		Command:    0x0100,
		FrameCount: 2,
		FrameData:  []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
	}

	wire := EncodePacket(want)

	status, length := PeekLength(wire)
	if status != Complete {
		t.Fatalf("status = %v, want Complete", status)
	}
	if length != len(wire) {
		t.Fatalf("length = %d, want %d", length, len(wire))
	}

	got := DataFromCheckedBytes(ts, 1, wire[:length])
	if !got.IsPacket() {
		t.Fatal("expected a decoded Packet")
	}
	if got.Packet.Command != want.Command {
		t.Fatalf("Command = 0x%04X, want 0x%04X", got.Packet.Command, want.Command)
	}
	if got.Packet.FrameCount != want.FrameCount {
		t.Fatalf("FrameCount = %d, want %d", got.Packet.FrameCount, want.FrameCount)
	}
	if !bytes.Equal(got.Packet.FrameData, want.FrameData) {
		t.Fatalf("FrameData = %v, want %v", got.Packet.FrameData, want.FrameData)
	}
	if got.Packet.Header.DestinationAddress != want.Header.DestinationAddress {
		t.Fatalf("DestinationAddress = 0x%04X, want 0x%04X", got.Packet.Header.DestinationAddress, want.Header.DestinationAddress)
	}
}

func TestDatagramFramingRoundTrip(t *testing.T) {
	ts := time.Unix(1_700_000_000, 0).UTC()
	want := &Datagram{
		Header: Header{
			Timestamp: ts, Channel: 0,
			DestinationAddress: 0x0015, SourceAddress: 0x7E11,
			ProtocolVersion: uint8(ProtocolDatagram),
		},
		Command: 0x0200,
		Param16: -1234,
		Param32: 987654321,
	}

	wire := EncodeDatagram(want)
	status, length := PeekLength(wire)
	if status != Complete || length != 16 {
		t.Fatalf("status = %v, length = %d", status, length)
	}

	got := DataFromCheckedBytes(ts, 0, wire)
	if !got.IsDatagram() {
		t.Fatal("expected a decoded Datagram")
	}
	if got.Datagram.Param16 != want.Param16 {
		t.Fatalf("Param16 = %d, want %d", got.Datagram.Param16, want.Param16)
	}
	if got.Datagram.Param32 != want.Param32 {
		t.Fatalf("Param32 = %d, want %d", got.Datagram.Param32, want.Param32)
	}
}

func TestDatagramIDStringFoldsParam16ForBroadcastReply(t *testing.T) {
	d := &Datagram{
		Header:  Header{Channel: 0, DestinationAddress: 0x0010, SourceAddress: 0x7E11, ProtocolVersion: uint8(ProtocolDatagram)},
		Command: 0x0900,
		Param16: 0x1234,
	}
	got := d.IDString()
	want := "00_0010_7E11_20_0900_1234"
	if got != want {
		t.Fatalf("IDString() = %q, want %q", got, want)
	}
}

func TestTelegramFramingRoundTrip(t *testing.T) {
	ts := time.Unix(1_700_000_000, 0).UTC()
	command := uint8(0x20) // frame count = command >> 5 = 1
	want := &Telegram{
		Header: Header{
			Timestamp: ts, Channel: 0,
			DestinationAddress: 0x0010, SourceAddress: 0x7E11,
			ProtocolVersion: uint8(ProtocolTelegram),
		},
		Command:   command,
		FrameData: []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07},
	}

	wire := EncodeTelegram(want)
	status, length := PeekLength(wire)
	if status != Complete || length != 8+9 {
		t.Fatalf("status = %v, length = %d", status, length)
	}

	got := DataFromCheckedBytes(ts, 0, wire)
	if !got.IsTelegram() {
		t.Fatal("expected a decoded Telegram")
	}
	if !bytes.Equal(got.Telegram.FrameData, want.FrameData) {
		t.Fatalf("FrameData = %v, want %v", got.Telegram.FrameData, want.FrameData)
	}
}

func TestTelegramFrameCount(t *testing.T) {
	cases := []struct {
		command uint8
		want    uint8
	}{
		{0x00, 0},
		{0x20, 1},
		{0x40, 2},
		{0xE0, 7},
	}
	for _, c := range cases {
		if got := TelegramFrameCount(c.command); got != c.want {
			t.Errorf("TelegramFrameCount(0x%02X) = %d, want %d", c.command, got, c.want)
		}
	}
}

func TestDataIDHashStableAcrossVariants(t *testing.T) {
	p := &Packet{Header: Header{Channel: 1, DestinationAddress: 0x10, SourceAddress: 0x20, ProtocolVersion: uint8(ProtocolPacket)}, Command: 0x100}
	a := Data{Packet: p}
	b := Data{Packet: p}
	if a.IDHash() != b.IDHash() {
		t.Fatal("expected identical identity tuples to hash identically")
	}

	other := &Packet{Header: Header{Channel: 1, DestinationAddress: 0x10, SourceAddress: 0x20, ProtocolVersion: uint8(ProtocolPacket)}, Command: 0x101}
	c := Data{Packet: other}
	if a.IDHash() == c.IDHash() {
		t.Fatal("expected different commands to hash differently")
	}
}
