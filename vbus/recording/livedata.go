// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package recording

import (
	"fmt"
	"io"
	"time"

	"github.com/danielwippermann/resol-vbus.rs/vbus"
)

// LiveDataRecordingWriter appends TypeLiveData records: a channel byte
// followed by one raw, still-septeted wire frame.
type LiveDataRecordingWriter struct {
	rw *RecordingWriter
}

// NewLiveDataRecordingWriter wraps w for LiveData record output.
func NewLiveDataRecordingWriter(w io.Writer) *LiveDataRecordingWriter {
	return &LiveDataRecordingWriter{rw: NewRecordingWriter(w)}
}

// WriteData appends one LiveData record carrying frameBytes (as produced by
// vbus.Encode) tagged with channel and timestamp.
func (lw *LiveDataRecordingWriter) WriteData(channel uint8, timestamp time.Time, frameBytes []byte) error {
	body := make([]byte, 1+len(frameBytes))
	body[0] = channel
	copy(body[1:], frameBytes)
	return lw.rw.WriteRecord(TypeLiveData, timestamp, body)
}

// Flush forces any buffered bytes to the underlying sink.
func (lw *LiveDataRecordingWriter) Flush() error {
	return lw.rw.Flush()
}

// LiveDataRecordingReader layers over a RecordingReader, extracting
// TypeLiveData records, decoding their payload through the live-data
// decoder, and tagging the result with the record's channel and timestamp.
// Non-LiveData records are skipped.
type LiveDataRecordingReader struct {
	rr *RecordingReader
}

// NewLiveDataRecordingReader wraps r for LiveData record input.
func NewLiveDataRecordingReader(r io.Reader) *LiveDataRecordingReader {
	return &LiveDataRecordingReader{rr: NewRecordingReader(r)}
}

// SetMinTimestamp restricts ReadData to records with Timestamp >= t.
func (lr *LiveDataRecordingReader) SetMinTimestamp(t time.Time) { lr.rr.SetMinTimestamp(t) }

// SetMaxTimestamp restricts ReadData to records with Timestamp <= t.
func (lr *LiveDataRecordingReader) SetMaxTimestamp(t time.Time) { lr.rr.SetMaxTimestamp(t) }

// ReadData returns the next decoded Data, or io.EOF once the stream is
// exhausted.
func (lr *LiveDataRecordingReader) ReadData() (vbus.Data, error) {
	for {
		rec, err := lr.rr.ReadRecord()
		if err != nil {
			return vbus.Data{}, err
		}
		if rec.Type != TypeLiveData {
			continue
		}
		if len(rec.Body) < 1 {
			return vbus.Data{}, fmt.Errorf("recording: %w: empty LiveData body", ErrCorrupt)
		}

		channel := rec.Body[0]
		frameBytes := rec.Body[1:]

		status, length := vbus.PeekLength(frameBytes)
		if status != vbus.Complete || length != len(frameBytes) {
			return vbus.Data{}, fmt.Errorf("recording: %w: malformed LiveData frame", ErrCorrupt)
		}

		return vbus.DataFromCheckedBytes(rec.Timestamp, channel, frameBytes), nil
	}
}
