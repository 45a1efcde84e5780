// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package recording

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/danielwippermann/resol-vbus.rs/vbus"
)

func TestRecordingRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewRecordingWriter(&buf)

	t1 := time.UnixMilli(1_700_000_000_000).UTC()
	t2 := time.UnixMilli(1_700_000_005_000).UTC()

	if err := w.WriteRecord(TypeLiveData, t1, []byte{0x01, 0x02, 0x03}); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	if err := w.WriteRecord(TypeDataSetSnapshot, t2, []byte{0xAA, 0xBB}); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	r := NewRecordingReader(&buf)

	rec1, err := r.ReadRecord()
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if rec1.Type != TypeLiveData || !rec1.Timestamp.Equal(t1) || !bytes.Equal(rec1.Body, []byte{0x01, 0x02, 0x03}) {
		t.Fatalf("rec1 = %+v", rec1)
	}

	rec2, err := r.ReadRecord()
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if rec2.Type != TypeDataSetSnapshot || !rec2.Timestamp.Equal(t2) || !bytes.Equal(rec2.Body, []byte{0xAA, 0xBB}) {
		t.Fatalf("rec2 = %+v", rec2)
	}

	if _, err := r.ReadRecord(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestRecordingReaderTimestampFilter(t *testing.T) {
	var buf bytes.Buffer
	w := NewRecordingWriter(&buf)

	early := time.UnixMilli(1_000).UTC()
	inWindow := time.UnixMilli(2_000).UTC()
	late := time.UnixMilli(3_000).UTC()

	for _, ts := range []time.Time{early, inWindow, late} {
		if err := w.WriteRecord(TypeLiveData, ts, []byte{0x01}); err != nil {
			t.Fatalf("WriteRecord: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	r := NewRecordingReader(&buf)
	r.SetMinTimestamp(time.UnixMilli(1_500).UTC())
	r.SetMaxTimestamp(time.UnixMilli(2_500).UTC())

	rec, err := r.ReadRecord()
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if !rec.Timestamp.Equal(inWindow) {
		t.Fatalf("Timestamp = %v, want %v", rec.Timestamp, inWindow)
	}

	if _, err := r.ReadRecord(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after the single in-window record, got %v", err)
	}
}

func TestReadToStats(t *testing.T) {
	var buf bytes.Buffer
	w := NewRecordingWriter(&buf)
	_ = w.WriteRecord(TypeLiveData, time.UnixMilli(1000).UTC(), []byte{0x01})
	_ = w.WriteRecord(TypeLiveData, time.UnixMilli(3000).UTC(), []byte{0x02})
	_ = w.WriteRecord(TypeDataSetSnapshot, time.UnixMilli(2000).UTC(), []byte{0x03})
	_ = w.Flush()

	r := NewRecordingReader(&buf)
	stats, err := r.ReadToStats()
	if err != nil {
		t.Fatalf("ReadToStats: %v", err)
	}
	if stats.CountByType[TypeLiveData] != 2 || stats.CountByType[TypeDataSetSnapshot] != 1 {
		t.Fatalf("CountByType = %v", stats.CountByType)
	}
	if !stats.MinTimestamp.Equal(time.UnixMilli(1000).UTC()) {
		t.Fatalf("MinTimestamp = %v", stats.MinTimestamp)
	}
	if !stats.MaxTimestamp.Equal(time.UnixMilli(3000).UTC()) {
		t.Fatalf("MaxTimestamp = %v", stats.MaxTimestamp)
	}
}

func TestLiveDataRecordingRoundTrip(t *testing.T) {
	timestamp := time.UnixMilli(1_700_000_000_000).UTC()

	packet := &vbus.Packet{
		Header: vbus.Header{
			Timestamp: timestamp, Channel: 7,
			DestinationAddress: 0x0010, SourceAddress: 0x7E11,
			ProtocolVersion: uint8(vbus.ProtocolPacket),
		},
		Command:    0x0100,
		FrameCount: 1,
		FrameData:  []byte{0x01, 0x02, 0x03, 0x04},
	}
	frameBytes := vbus.EncodePacket(packet)

	var buf bytes.Buffer
	w := NewLiveDataRecordingWriter(&buf)
	if err := w.WriteData(7, timestamp, frameBytes); err != nil {
		t.Fatalf("WriteData: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	r := NewLiveDataRecordingReader(&buf)
	d, err := r.ReadData()
	if err != nil {
		t.Fatalf("ReadData: %v", err)
	}
	if !d.IsPacket() {
		t.Fatal("expected a decoded Packet")
	}
	if d.Packet.Header.Channel != 7 {
		t.Fatalf("Channel = %d, want 7", d.Packet.Header.Channel)
	}
	if !d.Timestamp().Equal(timestamp) {
		t.Fatalf("Timestamp = %v, want %v", d.Timestamp(), timestamp)
	}
	if d.Packet.Command != 0x0100 {
		t.Fatalf("Command = 0x%04X, want 0x0100", d.Packet.Command)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ds := vbus.NewDataSet()
	packetTimestamp := time.UnixMilli(1_700_000_000_000).UTC()
	ds.AddData(vbus.Data{Packet: &vbus.Packet{
		Header: vbus.Header{
			Timestamp: packetTimestamp, Channel: 1,
			DestinationAddress: 0x0010, SourceAddress: 0x7E11,
			ProtocolVersion: uint8(vbus.ProtocolPacket),
		},
		Command:    0x0100,
		FrameCount: 1,
		FrameData:  []byte{0x0A, 0x0B, 0x0C, 0x0D},
	}})
	ds.AddData(vbus.Data{Datagram: &vbus.Datagram{
		Header: vbus.Header{
			Timestamp: packetTimestamp, Channel: 1,
			DestinationAddress: 0x0015, SourceAddress: 0x7E11,
			ProtocolVersion: uint8(vbus.ProtocolDatagram),
		},
		Command: 0x0200,
		Param16: -5,
		Param32: 12345,
	}})

	var buf bytes.Buffer
	w := NewRecordingWriter(&buf)
	if err := w.WriteSnapshot(ds.Timestamp, ds); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	r := NewRecordingReader(&buf)
	got, err := r.ReadSnapshot()
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}

	if got.Len() != ds.Len() {
		t.Fatalf("Len() = %d, want %d", got.Len(), ds.Len())
	}
	for i, want := range ds.Iter() {
		g := got.Iter()[i]
		if g.IDHash() != want.IDHash() {
			t.Fatalf("entry %d: IDHash mismatch", i)
		}
		if !g.Timestamp().Equal(want.Timestamp()) {
			t.Fatalf("entry %d: Timestamp = %v, want %v", i, g.Timestamp(), want.Timestamp())
		}
	}
}
