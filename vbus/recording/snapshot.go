// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package recording

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/danielwippermann/resol-vbus.rs/vbus"
)

// discriminant values for cborRecord.Kind.
const (
	kindPacket   = "packet"
	kindDatagram = "datagram"
	kindTelegram = "telegram"
)

// cborRecord is the wire shape of one DataSet entry within a
// TypeDataSetSnapshot body: a flat map whose populated fields depend on
// Kind.
type cborRecord struct {
	Kind            string `cbor:"kind"`
	Channel         uint8  `cbor:"channel"`
	Destination     uint16 `cbor:"destination"`
	Source          uint16 `cbor:"source"`
	ProtocolVersion uint8  `cbor:"protocol_version"`
	Command         uint16 `cbor:"command"`
	TimestampMs     int64  `cbor:"timestamp_ms"`

	FrameCount uint8  `cbor:"frame_count,omitempty"`
	FrameData  []byte `cbor:"frame_data,omitempty"`

	Param16 int16 `cbor:"param16,omitempty"`
	Param32 int32 `cbor:"param32,omitempty"`
}

// cborSnapshot is the wire shape of a TypeDataSetSnapshot body.
type cborSnapshot struct {
	TimestampMs int64        `cbor:"timestamp_ms"`
	Records     []cborRecord `cbor:"records"`
}

func toCborRecord(d vbus.Data) (cborRecord, error) {
	h := d.Header()
	base := cborRecord{
		Channel:         h.Channel,
		Destination:     h.DestinationAddress,
		Source:          h.SourceAddress,
		ProtocolVersion: h.ProtocolVersion,
		TimestampMs:     h.Timestamp.UnixMilli(),
	}

	switch {
	case d.Packet != nil:
		base.Kind = kindPacket
		base.Command = d.Packet.Command
		base.FrameCount = d.Packet.FrameCount
		base.FrameData = d.Packet.FrameData
	case d.Datagram != nil:
		base.Kind = kindDatagram
		base.Command = d.Datagram.Command
		base.Param16 = d.Datagram.Param16
		base.Param32 = d.Datagram.Param32
	case d.Telegram != nil:
		base.Kind = kindTelegram
		base.Command = uint16(d.Telegram.Command)
		base.FrameData = d.Telegram.FrameData
	default:
		return cborRecord{}, fmt.Errorf("recording: empty Data has no wire representation")
	}
	return base, nil
}

func fromCborRecord(r cborRecord) (vbus.Data, error) {
	header := vbus.Header{
		Timestamp:          time.UnixMilli(r.TimestampMs).UTC(),
		Channel:            r.Channel,
		DestinationAddress: r.Destination,
		SourceAddress:      r.Source,
		ProtocolVersion:    r.ProtocolVersion,
	}

	switch r.Kind {
	case kindPacket:
		return vbus.Data{Packet: &vbus.Packet{
			Header:     header,
			Command:    r.Command,
			FrameCount: r.FrameCount,
			FrameData:  r.FrameData,
		}}, nil
	case kindDatagram:
		return vbus.Data{Datagram: &vbus.Datagram{
			Header:  header,
			Command: r.Command,
			Param16: r.Param16,
			Param32: r.Param32,
		}}, nil
	case kindTelegram:
		return vbus.Data{Telegram: &vbus.Telegram{
			Header:    header,
			Command:   uint8(r.Command),
			FrameData: r.FrameData,
		}}, nil
	default:
		return vbus.Data{}, fmt.Errorf("recording: %w: unknown snapshot record kind %q", ErrCorrupt, r.Kind)
	}
}

// EncodeSnapshot renders ds as a CBOR-encoded TypeDataSetSnapshot body.
func EncodeSnapshot(ds *vbus.DataSet) ([]byte, error) {
	entries := ds.Iter()
	snapshot := cborSnapshot{
		TimestampMs: ds.Timestamp.UnixMilli(),
		Records:     make([]cborRecord, 0, len(entries)),
	}

	for _, d := range entries {
		rec, err := toCborRecord(d)
		if err != nil {
			return nil, err
		}
		snapshot.Records = append(snapshot.Records, rec)
	}

	return cbor.Marshal(snapshot)
}

// DecodeSnapshot parses a CBOR-encoded TypeDataSetSnapshot body back into a
// DataSet, preserving the original record order.
func DecodeSnapshot(body []byte) (*vbus.DataSet, error) {
	var snapshot cborSnapshot
	if err := cbor.Unmarshal(body, &snapshot); err != nil {
		return nil, fmt.Errorf("recording: %w: %v", ErrCorrupt, err)
	}

	ds := vbus.NewDataSet()
	for _, rec := range snapshot.Records {
		d, err := fromCborRecord(rec)
		if err != nil {
			return nil, err
		}
		ds.AddData(d)
	}
	ds.Timestamp = time.UnixMilli(snapshot.TimestampMs).UTC()

	return ds, nil
}

// WriteSnapshot appends a TypeDataSetSnapshot record encoding ds.
func (rw *RecordingWriter) WriteSnapshot(timestamp time.Time, ds *vbus.DataSet) error {
	body, err := EncodeSnapshot(ds)
	if err != nil {
		return err
	}
	return rw.WriteRecord(TypeDataSetSnapshot, timestamp, body)
}

// ReadSnapshot reads the next TypeDataSetSnapshot record in the stream,
// decoding its body. Intervening records of other types are skipped.
func (rr *RecordingReader) ReadSnapshot() (*vbus.DataSet, error) {
	for {
		rec, err := rr.ReadRecord()
		if err != nil {
			return nil, err
		}
		if rec.Type != TypeDataSetSnapshot {
			continue
		}
		return DecodeSnapshot(rec.Body)
	}
}
