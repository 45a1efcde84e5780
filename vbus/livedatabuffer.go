// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vbus

import "time"

// LiveDataBuffer wraps a BlobBuffer with VBus resynchronisation: it scans
// forward for the sync byte, classifies the frame that follows, and
// recovers from any per-byte rule violation by discarding one byte and
// retrying. This is the sole mechanism by which framing errors are
// recovered (spec.md §4.1).
type LiveDataBuffer struct {
	channel        uint8
	buf            *BlobBuffer
	previousLength int
}

// NewLiveDataBuffer constructs a LiveDataBuffer tagged with channel, used
// to stamp every Data record it decodes (the wire format itself carries no
// channel byte).
func NewLiveDataBuffer(channel uint8) *LiveDataBuffer {
	return &LiveDataBuffer{channel: channel, buf: NewBlobBuffer()}
}

// ExtendFromSlice appends bytes read from the transport.
func (l *LiveDataBuffer) ExtendFromSlice(bytes []byte) {
	l.buf.ExtendFromSlice(bytes)
}

// PeekLength tries to determine the length of the next valid frame in the
// buffer without consuming it. It returns (length, true) once a complete
// frame is found, or (0, false) when more bytes are needed.
func (l *LiveDataBuffer) PeekLength() (int, bool) {
	if l.previousLength > 0 {
		l.buf.Consume(l.previousLength)
		l.previousLength = 0
	}

	for {
		status, length := PeekLength(l.buf.Bytes())
		switch status {
		case Complete:
			return length, true
		case Partial:
			return 0, false
		case Malformed:
			l.buf.Consume(1)
		}
	}
}

// ReadBytes returns the raw wire bytes of the next valid frame, or nil if
// more bytes are needed. The returned slice is only valid until the next
// mutating call.
func (l *LiveDataBuffer) ReadBytes() []byte {
	length, ok := l.PeekLength()
	if !ok {
		return nil
	}
	l.previousLength = length
	return l.buf.Bytes()[:length]
}

// ReadData decodes the next valid frame into a Data record, stamped with
// the current wall-clock time and this buffer's channel. Returns the zero
// Data and false if more bytes are needed.
func (l *LiveDataBuffer) ReadData() (Data, bool) {
	bytes := l.ReadBytes()
	if bytes == nil {
		return Data{}, false
	}
	return DataFromCheckedBytes(time.Now(), l.channel, bytes), true
}

// Offset returns the number of bytes already consumed from the underlying
// stream, including the frame most recently returned by ReadBytes or
// ReadData.
func (l *LiveDataBuffer) Offset() int {
	return l.buf.Offset() + l.previousLength
}
