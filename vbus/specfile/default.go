// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package specfile

import (
	"encoding/binary"

	"github.com/danielwippermann/resol-vbus.rs/vbus"
)

// Default builds a minimal, valid, in-memory VSF1 image and parses it back
// through FromBytes. No real RESOL specification catalog ships with this
// source tree (see SPEC_FULL.md §4.3.2); this is a deliberately small,
// self-consistent placeholder catalog sufficient for the library's own
// lookups and tests, not a claim about RESOL's actual shipped data.
func Default() (*File, error) {
	return FromBytes(buildDefaultImage())
}

// buildDefaultImage constructs the raw VSF1 byte image used by Default. It
// is split out so tests can corrupt individual bytes of a known-valid image
// without depending on FromBytes having already validated it.
func buildDefaultImage() []byte {
	texts := []string{
		"000_2_0",         // 0: field id string
		"Pump speed relay 1", // 1: field name (en)
		"Drehzahl Pumpe 1",   // 2: field name (de)
		"Vitesse pompe 1",    // 3: field name (fr)
		"%",                  // 4: unit code
		"Percent",            // 5: unit text
		"DeltaSol device",    // 6: device name (en)
		"DeltaSol-Gerät",     // 7: device name (de)
		"Appareil DeltaSol",  // 8: device name (fr)
	}
	localizedTexts := [][3]int32{
		{1, 2, 3}, // 0: field name
		{6, 7, 8}, // 1: device name
	}
	type unitRow struct {
		familyID      int32
		codeTextIdx   int32
		textTextIdx   int32
	}
	units := []unitRow{
		{familyID: -1, codeTextIdx: 4, textTextIdx: 5}, // unit_id 0
	}
	type deviceRow struct {
		selfAddress, selfMask, peerAddress, peerMask uint16
		nameLocalizedIdx                              int32
	}
	deviceTemplates := []deviceRow{
		{selfAddress: 0x0010, selfMask: 0xFFFF, peerAddress: 0x7E11, peerMask: 0xFFFF, nameLocalizedIdx: 1},
	}
	type partRow struct {
		offset   int32
		bitPos   uint8
		mask     uint8
		isSigned uint8
		factor   int64
	}
	parts := []partRow{
		{offset: 0, bitPos: 0, mask: 0xFF, isSigned: 0, factor: 1},
	}
	type fieldRow struct {
		idTextIdx, nameLocalizedIdx, unitID, precision, typeID int32
		partStart, partCount                                  int
	}
	fields := []fieldRow{
		{idTextIdx: 0, nameLocalizedIdx: 0, unitID: 0, precision: 1, typeID: int32(TypeNumber), partStart: 0, partCount: 1},
	}
	type packetRow struct {
		destinationAddress, destinationMask, sourceAddress, sourceMask, command uint16
		fieldStart, fieldCount                                                  int
	}
	packets := []packetRow{
		{destinationAddress: 0x0010, destinationMask: 0xFFFF, sourceAddress: 0x7E11, sourceMask: 0xFFFF, command: 0x0100, fieldStart: 0, fieldCount: 1},
	}

	const headerLen = 0x10
	const specLen = 0x2C
	specOffset := headerLen
	textTableOffset := specOffset + specLen
	textTableLen := len(texts) * 0x04
	localizedTextTableOffset := textTableOffset + textTableLen
	localizedTextTableLen := len(localizedTexts) * 0x0C
	unitTableOffset := localizedTextTableOffset + localizedTextTableLen
	unitTableLen := len(units) * 0x10
	deviceTemplateTableOffset := unitTableOffset + unitTableLen
	deviceTemplateTableLen := len(deviceTemplates) * 0x0C
	packetTemplateTableOffset := deviceTemplateTableOffset + deviceTemplateTableLen
	packetTemplateTableLen := len(packets) * 0x14
	fieldTableOffset := packetTemplateTableOffset + packetTemplateTableLen
	fieldTableLen := len(fields) * 0x1C
	partTableOffset := fieldTableOffset + fieldTableLen
	partTableLen := len(parts) * 0x10
	stringPoolOffset := partTableOffset + partTableLen

	stringOffsets := make([]int, len(texts))
	var pool []byte
	for i, s := range texts {
		stringOffsets[i] = stringPoolOffset + len(pool)
		pool = append(pool, s...)
		pool = append(pool, 0)
	}

	totalLength := stringPoolOffset + len(pool)
	buf := make([]byte, totalLength)

	putI32 := func(off int, v int32) { binary.LittleEndian.PutUint32(buf[off:off+4], uint32(v)) }
	putU16 := func(off int, v uint16) { binary.LittleEndian.PutUint16(buf[off:off+2], v) }
	putI64 := func(off int, v int64) { binary.LittleEndian.PutUint64(buf[off:off+8], uint64(v)) }

	// SPECIFICATION block
	putI32(specOffset+0x00, 20240101)
	putI32(specOffset+0x04, int32(len(texts)))
	putI32(specOffset+0x08, int32(textTableOffset))
	putI32(specOffset+0x0C, int32(len(localizedTexts)))
	putI32(specOffset+0x10, int32(localizedTextTableOffset))
	putI32(specOffset+0x14, int32(len(units)))
	putI32(specOffset+0x18, int32(unitTableOffset))
	putI32(specOffset+0x1C, int32(len(deviceTemplates)))
	putI32(specOffset+0x20, int32(deviceTemplateTableOffset))
	putI32(specOffset+0x24, int32(len(packets)))
	putI32(specOffset+0x28, int32(packetTemplateTableOffset))

	// TEXT table
	for i := range texts {
		putI32(textTableOffset+i*0x04, int32(stringOffsets[i]))
	}

	// LOCALIZEDTEXT table
	for i, lt := range localizedTexts {
		base := localizedTextTableOffset + i*0x0C
		putI32(base+0x00, lt[0])
		putI32(base+0x04, lt[1])
		putI32(base+0x08, lt[2])
	}

	// UNIT table
	for i, u := range units {
		base := unitTableOffset + i*0x10
		putI32(base+0x00, int32(i))
		putI32(base+0x04, u.familyID)
		putI32(base+0x08, u.codeTextIdx)
		putI32(base+0x0C, u.textTextIdx)
	}

	// DEVICETEMPLATE table
	for i, d := range deviceTemplates {
		base := deviceTemplateTableOffset + i*0x0C
		putU16(base+0x00, d.selfAddress)
		putU16(base+0x02, d.selfMask)
		putU16(base+0x04, d.peerAddress)
		putU16(base+0x06, d.peerMask)
		putI32(base+0x08, d.nameLocalizedIdx)
	}

	// PACKETTEMPLATEFIELDPART table
	for i, p := range parts {
		base := partTableOffset + i*0x10
		putI32(base+0x00, p.offset)
		buf[base+0x04] = p.bitPos
		buf[base+0x05] = p.mask
		buf[base+0x06] = p.isSigned
		putI64(base+0x08, p.factor)
	}

	// PACKETTEMPLATEFIELD table
	for i, fld := range fields {
		base := fieldTableOffset + i*0x1C
		putI32(base+0x00, fld.idTextIdx)
		putI32(base+0x04, fld.nameLocalizedIdx)
		putI32(base+0x08, fld.unitID)
		putI32(base+0x0C, fld.precision)
		putI32(base+0x10, fld.typeID)
		putI32(base+0x14, int32(fld.partCount))
		putI32(base+0x18, int32(partTableOffset+fld.partStart*0x10))
	}

	// PACKETTEMPLATE table
	for i, pkt := range packets {
		base := packetTemplateTableOffset + i*0x14
		putU16(base+0x00, pkt.destinationAddress)
		putU16(base+0x02, pkt.destinationMask)
		putU16(base+0x04, pkt.sourceAddress)
		putU16(base+0x06, pkt.sourceMask)
		putU16(base+0x08, pkt.command)
		putI32(base+0x0C, int32(pkt.fieldCount))
		putI32(base+0x10, int32(fieldTableOffset+pkt.fieldStart*0x1C))
	}

	copy(buf[stringPoolOffset:], pool)

	// FILEHEADER
	putI32(0x04, int32(totalLength))
	putI32(0x08, 1)
	putI32(0x0C, int32(specOffset))
	checksum := vbus.CRC16(buf[0x04:totalLength])
	putU16(0x00, checksum)
	putU16(0x02, checksum)

	return buf
}
