// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vbus

import (
	"testing"
	"time"
)

func packetData(command uint16, channel uint8, ts time.Time) Data {
	return Data{Packet: &Packet{
		Header: Header{
			Timestamp: ts, Channel: channel,
			DestinationAddress: 0x0010, SourceAddress: 0x7E11,
			ProtocolVersion: uint8(ProtocolPacket),
		},
		Command: command,
	}}
}

func TestDataSetAddDataReplacesInPlace(t *testing.T) {
	ds := NewDataSet()
	t1 := time.Unix(1000, 0).UTC()
	t2 := time.Unix(2000, 0).UTC()

	ds.AddData(packetData(0x0100, 0, t1))
	ds.AddData(packetData(0x0200, 0, t1))
	ds.AddData(packetData(0x0100, 0, t2)) // replaces the first entry, same slot

	if ds.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", ds.Len())
	}
	entries := ds.Iter()
	if entries[0].Packet.Command != 0x0100 || !entries[0].Timestamp().Equal(t2) {
		t.Fatalf("entries[0] = %+v", entries[0])
	}
	if !ds.Timestamp.Equal(t2) {
		t.Fatalf("DataSet.Timestamp = %v, want %v", ds.Timestamp, t2)
	}
}

func TestDataSetClearPacketsOlderThanIsPacketOnly(t *testing.T) {
	ds := NewDataSet()
	old := time.Unix(1000, 0).UTC()
	fresh := time.Unix(5000, 0).UTC()
	cutoff := time.Unix(3000, 0).UTC()

	ds.AddData(packetData(0x0100, 0, old))
	ds.AddData(packetData(0x0200, 0, fresh))
	ds.AddData(Data{Datagram: &Datagram{
		Header:  Header{Timestamp: old, ProtocolVersion: uint8(ProtocolDatagram), DestinationAddress: 0x10, SourceAddress: 0x20},
		Command: 1,
	}})

	ds.ClearPacketsOlderThan(cutoff)

	if ds.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (old packet evicted, datagram and fresh packet survive)", ds.Len())
	}
	for _, d := range ds.Iter() {
		if d.IsPacket() && d.Packet.Command == 0x0100 {
			t.Fatal("expected the old packet to be evicted")
		}
	}
}

func TestDataSetClearAllPackets(t *testing.T) {
	ds := NewDataSet()
	ts := time.Unix(1000, 0).UTC()
	ds.AddData(packetData(0x0100, 0, ts))
	ds.AddData(Data{Datagram: &Datagram{Header: Header{Timestamp: ts, ProtocolVersion: uint8(ProtocolDatagram)}, Command: 1}})

	ds.ClearAllPackets()

	if ds.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", ds.Len())
	}
	if ds.Iter()[0].IsPacket() {
		t.Fatal("expected only the datagram to survive")
	}
}

func TestDataSetRemoveAllData(t *testing.T) {
	ds := NewDataSet()
	ds.AddData(packetData(0x0100, 0, time.Unix(1000, 0).UTC()))
	ds.RemoveAllData()
	if ds.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", ds.Len())
	}
	if _, ok := ds.Get(packetData(0x0100, 0, time.Time{}).IDHash()); ok {
		t.Fatal("expected lookup miss after RemoveAllData")
	}
}

func TestDataSetMerge(t *testing.T) {
	a := NewDataSet()
	ts1 := time.Unix(1000, 0).UTC()
	a.AddData(packetData(0x0100, 0, ts1))

	b := NewDataSet()
	ts2 := time.Unix(2000, 0).UTC()
	b.AddData(packetData(0x0200, 0, ts2))

	a.Merge(b)

	if a.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", a.Len())
	}
	if !a.Timestamp.Equal(ts2) {
		t.Fatalf("Timestamp = %v, want %v", a.Timestamp, ts2)
	}
}

func TestDataSetSortByIDSlice(t *testing.T) {
	ds := NewDataSet()
	ts := time.Unix(1000, 0).UTC()
	ds.AddData(packetData(0x0300, 0, ts))
	ds.AddData(packetData(0x0100, 0, ts))
	ds.AddData(packetData(0x0200, 0, ts))

	order := []PacketID{
		{Channel: 0, DestinationAddress: 0x0010, SourceAddress: 0x7E11, Command: 0x0100},
		{Channel: 0, DestinationAddress: 0x0010, SourceAddress: 0x7E11, Command: 0x0200},
	}
	ds.SortByIDSlice(order)

	entries := ds.Iter()
	if entries[0].Packet.Command != 0x0100 || entries[1].Packet.Command != 0x0200 {
		t.Fatalf("sorted commands = [0x%04X, 0x%04X, 0x%04X]",
			entries[0].Packet.Command, entries[1].Packet.Command, entries[2].Packet.Command)
	}
	if entries[2].Packet.Command != 0x0300 {
		t.Fatalf("expected the unranked entry last, got 0x%04X", entries[2].Packet.Command)
	}
}

func TestDataSetGetByHash(t *testing.T) {
	ds := NewDataSet()
	ts := time.Unix(1000, 0).UTC()
	d := packetData(0x0100, 0, ts)
	ds.AddData(d)

	got, ok := ds.Get(d.IDHash())
	if !ok {
		t.Fatal("expected lookup hit")
	}
	if got.Packet.Command != 0x0100 {
		t.Fatalf("Command = 0x%04X, want 0x0100", got.Packet.Command)
	}
}
