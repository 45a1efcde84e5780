// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vbus

import "encoding/binary"

func encodeHeaderPrefix(buf []byte, h Header) {
	buf[0] = SyncByte
	binary.LittleEndian.PutUint16(buf[1:3], h.DestinationAddress)
	binary.LittleEndian.PutUint16(buf[3:5], h.SourceAddress)
	buf[5] = h.ProtocolVersion
}

// EncodePacket renders p back into its wire bytes, including septet
// packing and checksums. The result satisfies the framing round-trip
// property: decoding it with DataFromCheckedBytes yields an equal Packet.
func EncodePacket(p *Packet) []byte {
	buf := make([]byte, 10+int(p.FrameCount)*6)
	encodeHeaderPrefix(buf, p.Header)
	binary.LittleEndian.PutUint16(buf[6:8], p.Command)
	buf[8] = p.FrameCount
	SetChecksumV0(buf[1:10])

	for i := 0; i < int(p.FrameCount); i++ {
		group := buf[10+i*6 : 10+i*6+6]
		ExtractSeptet(group[:5], p.FrameData[i*4:i*4+4])
		SetChecksumV0(group)
	}
	return buf
}

// EncodeDatagram renders d back into its wire bytes.
func EncodeDatagram(d *Datagram) []byte {
	buf := make([]byte, 16)
	encodeHeaderPrefix(buf, d.Header)
	binary.LittleEndian.PutUint16(buf[6:8], d.Command)

	var payload [6]byte
	binary.LittleEndian.PutUint16(payload[0:2], uint16(d.Param16))
	binary.LittleEndian.PutUint32(payload[2:6], uint32(d.Param32))
	ExtractSeptet(buf[8:15], payload[:])
	SetChecksumV0(buf[1:16])
	return buf
}

// EncodeTelegram renders t back into its wire bytes.
func EncodeTelegram(t *Telegram) []byte {
	frameCount := TelegramFrameCount(t.Command)
	buf := make([]byte, 8+int(frameCount)*9)
	encodeHeaderPrefix(buf, t.Header)
	buf[6] = t.Command
	SetChecksumV0(buf[1:8])

	for i := 0; i < int(frameCount); i++ {
		group := buf[8+i*9 : 8+i*9+9]
		ExtractSeptet(group[:8], t.FrameData[i*7:i*7+7])
		SetChecksumV0(group)
	}
	return buf
}

// Encode renders whichever variant of d is set back into its wire bytes.
func Encode(d Data) []byte {
	switch {
	case d.Packet != nil:
		return EncodePacket(d.Packet)
	case d.Datagram != nil:
		return EncodeDatagram(d.Datagram)
	case d.Telegram != nil:
		return EncodeTelegram(d.Telegram)
	default:
		return nil
	}
}
