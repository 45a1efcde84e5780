// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vbus

import (
	"encoding/binary"
	"time"
)

// BlobStatus is the outcome of trying to classify the bytes at the head of
// a buffer as a complete, valid VBus frame.
type BlobStatus int

const (
	// Partial means the buffer does not yet hold enough bytes to decide;
	// the caller should append more and retry.
	Partial BlobStatus = iota
	// Malformed means the leading sync byte does not begin a valid frame;
	// the caller must discard exactly one byte and retry.
	Malformed
	// Complete means a full, checksum-valid frame, whose length PeekLength
	// returns alongside this status, begins at offset 0.
	Complete
)

// PeekLength classifies the frame (if any) beginning at buf[0]. It never
// consumes bytes; it is the caller's job to discard or consume based on
// the returned status.
func PeekLength(buf []byte) (status BlobStatus, length int) {
	if len(buf) < 1 {
		return Partial, 0
	}
	if buf[0] != SyncByte {
		return Malformed, 0
	}
	if len(buf) < 6 {
		return Partial, 0
	}

	proto := buf[5]

	switch proto & 0xF0 {
	case uint8(ProtocolPacket):
		if len(buf) < 10 {
			return Partial, 0
		}
		if HasMSBSet(buf[1:10]) {
			return Malformed, 0
		}
		if !VerifyChecksumV0(buf[1:10]) {
			return Malformed, 0
		}
		frameCount := buf[8]
		expected := 10 + int(frameCount)*6
		if len(buf) < expected {
			return Partial, 0
		}
		for i := 0; i < int(frameCount); i++ {
			group := buf[10+i*6 : 10+i*6+6]
			if HasMSBSet(group[:5]) {
				return Malformed, 0
			}
			if !VerifyChecksumV0(group) {
				return Malformed, 0
			}
		}
		return Complete, expected

	case uint8(ProtocolDatagram):
		const expected = 16
		if len(buf) < expected {
			return Partial, 0
		}
		if HasMSBSet(buf[1:15]) {
			return Malformed, 0
		}
		if !VerifyChecksumV0(buf[1:16]) {
			return Malformed, 0
		}
		return Complete, expected

	case uint8(ProtocolTelegram):
		if len(buf) < 8 {
			return Partial, 0
		}
		if HasMSBSet(buf[1:8]) {
			return Malformed, 0
		}
		if !VerifyChecksumV0(buf[1:8]) {
			return Malformed, 0
		}
		frameCount := TelegramFrameCount(buf[6])
		expected := 8 + int(frameCount)*9
		if len(buf) < expected {
			return Partial, 0
		}
		for i := 0; i < int(frameCount); i++ {
			group := buf[8+i*9 : 8+i*9+9]
			if HasMSBSet(group[:8]) {
				return Malformed, 0
			}
			if !VerifyChecksumV0(group) {
				return Malformed, 0
			}
		}
		return Complete, expected

	default:
		return Malformed, 0
	}
}

// DataFromCheckedBytes decodes a Data record from a byte slice that
// PeekLength has already classified as Complete. channel and timestamp are
// supplied by the caller (the wire format carries neither).
func DataFromCheckedBytes(timestamp time.Time, channel uint8, buf []byte) Data {
	destination := binary.LittleEndian.Uint16(buf[1:3])
	source := binary.LittleEndian.Uint16(buf[3:5])
	proto := buf[5]

	header := Header{
		Timestamp:          timestamp,
		Channel:            channel,
		DestinationAddress: destination,
		SourceAddress:      source,
		ProtocolVersion:    proto,
	}

	switch proto & 0xF0 {
	case uint8(ProtocolPacket):
		command := binary.LittleEndian.Uint16(buf[6:8])
		frameCount := buf[8]
		frameData := make([]byte, int(frameCount)*4)
		for i := 0; i < int(frameCount); i++ {
			group := buf[10+i*6 : 10+i*6+6]
			InjectSeptet(frameData[i*4:i*4+4], group[:5])
		}
		return Data{Packet: &Packet{
			Header:     header,
			Command:    command,
			FrameCount: frameCount,
			FrameData:  frameData,
		}}

	case uint8(ProtocolDatagram):
		command := binary.LittleEndian.Uint16(buf[6:8])
		var payload [6]byte
		InjectSeptet(payload[:], buf[8:15])
		param16 := int16(binary.LittleEndian.Uint16(payload[0:2]))
		param32 := int32(binary.LittleEndian.Uint32(payload[2:6]))
		return Data{Datagram: &Datagram{
			Header:  header,
			Command: command,
			Param16: param16,
			Param32: param32,
		}}

	case uint8(ProtocolTelegram):
		command := buf[6]
		frameCount := TelegramFrameCount(command)
		frameData := make([]byte, int(frameCount)*7)
		for i := 0; i < int(frameCount); i++ {
			group := buf[8+i*9 : 8+i*9+9]
			InjectSeptet(frameData[i*7:i*7+7], group[:8])
		}
		return Data{Telegram: &Telegram{
			Header:    header,
			Command:   command,
			FrameData: frameData,
		}}

	default:
		return Data{}
	}
}
