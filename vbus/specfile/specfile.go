// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package specfile parses the VBus Specification File (VSF1) binary
// format: a length-prefixed, table-oriented container mapping PacketIDs to
// typed, scaled, localized field descriptions.
package specfile

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/danielwippermann/resol-vbus.rs/vbus"
)

// ErrorKind discriminates why a VSF1 file failed to load.
type ErrorKind int

const (
	ErrTruncatedHeader ErrorKind = iota
	ErrBadTotalLength
	ErrChecksumMismatch
	ErrUnsupportedDataVersion
	ErrBadSpecificationOffset
	ErrInvalidTextTable
	ErrInvalidLocalizedTextTable
	ErrInvalidUnitTable
	ErrInvalidDeviceTemplateTable
	ErrInvalidPacketTemplateTable
	ErrInvalidPacketTemplateFieldTable
	ErrInvalidPacketTemplateFieldPartTable
	ErrInvalidTextStringOffset
	ErrInvalidTextContent
	ErrInvalidLocalizedTextIndex
	ErrInvalidUnitFamilyID
	ErrInvalidUnitTextIndex
	ErrInvalidDeviceTemplateTextIndex
	ErrInvalidPacketTemplateFieldTextIndex
	ErrInvalidPacketTemplateFieldUnitID
	ErrInvalidPacketTemplateFieldTypeID
)

func (k ErrorKind) String() string {
	names := [...]string{
		"TruncatedHeader", "BadTotalLength", "ChecksumMismatch", "UnsupportedDataVersion",
		"BadSpecificationOffset", "InvalidTextTable", "InvalidLocalizedTextTable", "InvalidUnitTable",
		"InvalidDeviceTemplateTable", "InvalidPacketTemplateTable", "InvalidPacketTemplateFieldTable",
		"InvalidPacketTemplateFieldPartTable", "InvalidTextStringOffset", "InvalidTextContent",
		"InvalidLocalizedTextIndex", "InvalidUnitFamilyID", "InvalidUnitTextIndex",
		"InvalidDeviceTemplateTextIndex", "InvalidPacketTemplateFieldTextIndex",
		"InvalidPacketTemplateFieldUnitID", "InvalidPacketTemplateFieldTypeID",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// Error is a fatal VSF load failure carrying the byte offset at which the
// structural rule was violated, per spec.md §7's TruncatedSpec/CorruptSpec
// model.
type Error struct {
	Kind   ErrorKind
	Offset int
}

func (e *Error) Error() string {
	return fmt.Sprintf("specfile: %s at offset 0x%X", e.Kind, e.Offset)
}

func errAt(kind ErrorKind, offset int) error {
	return &Error{Kind: kind, Offset: offset}
}

// Language selects one of the three fixed locale slots carried by every
// LocalizedText row.
type Language int

const (
	LanguageEn Language = iota
	LanguageDe
	LanguageFr
)

// TextIndex references a row in File.Texts.
type TextIndex int32

// LocalizedText carries one TextIndex per fixed language slot.
type LocalizedText struct {
	TextIndexEn TextIndex
	TextIndexDe TextIndex
	TextIndexFr TextIndex
}

// Slot returns the TextIndex for the given language.
func (l LocalizedText) Slot(lang Language) TextIndex {
	switch lang {
	case LanguageDe:
		return l.TextIndexDe
	case LanguageFr:
		return l.TextIndexFr
	default:
		return l.TextIndexEn
	}
}

// UnitFamilyID references a fixed unit family (-1..=6).
type UnitFamilyID int32

// UnitFamily enumerates the fixed set of unit families a Unit can belong
// to.
type UnitFamily int32

const (
	UnitFamilyNone        UnitFamily = -1
	UnitFamilyTemperature UnitFamily = 0
	UnitFamilyEnergy      UnitFamily = 1
	UnitFamilyVolumeFlow  UnitFamily = 2
	UnitFamilyPressure    UnitFamily = 3
	UnitFamilyVolume      UnitFamily = 4
	UnitFamilyTime        UnitFamily = 5
	UnitFamilyPower       UnitFamily = 6
)

// UnitID references a row in File.Units.
type UnitID int32

// Unit describes one physical unit: its family, and text indices for its
// short code ("°C") and long text ("Degrees Celsius").
type Unit struct {
	UnitID            UnitID
	UnitFamilyID      UnitFamilyID
	UnitCodeTextIndex TextIndex
	UnitTextTextIndex TextIndex
}

// LocalizedTextIndex references a row in File.LocalizedTexts.
type LocalizedTextIndex int32

// DeviceTemplate matches a (self, peer) address pair by mask and names the
// resulting device.
type DeviceTemplate struct {
	SelfAddress            uint16
	SelfMask               uint16
	PeerAddress            uint16
	PeerMask               uint16
	NameLocalizedTextIndex LocalizedTextIndex
}

// Matches reports whether (selfAddress, peerAddress) satisfies this
// template's masked-XOR match rule (see DESIGN.md Open Question 2).
func (d DeviceTemplate) Matches(selfAddress, peerAddress uint16) bool {
	selfOK := ((d.SelfAddress ^ selfAddress) & d.SelfMask) == 0
	peerOK := ((d.PeerAddress ^ peerAddress) & d.PeerMask) == 0
	return selfOK && peerOK
}

// Type enumerates how a PacketTemplateField's raw integer value should be
// interpreted when formatted.
type Type int32

const (
	TypeNumber   Type = 1
	TypeTime     Type = 3
	TypeWeekTime Type = 4
	TypeDateTime Type = 5
)

// TypeID references a Type.
type TypeID int32

// PacketTemplateFieldPart is one offset/bitmask/factor triple contributing
// to a field's raw integer value.
type PacketTemplateFieldPart struct {
	Offset   int32
	BitPos   uint8
	Mask     uint8
	IsSigned bool
	Factor   int64
}

// PacketTemplateField describes one named, typed, scaled field within a
// PacketTemplate.
type PacketTemplateField struct {
	IDTextIndex            TextIndex
	NameLocalizedTextIndex LocalizedTextIndex
	UnitID                 UnitID
	Precision              int32
	TypeID                 TypeID
	Parts                  []PacketTemplateFieldPart
}

// PacketTemplate matches a (destination, source, command) triple by mask
// and command equality, and lists the fields found within its frame data.
type PacketTemplate struct {
	DestinationAddress uint16
	DestinationMask    uint16
	SourceAddress       uint16
	SourceMask          uint16
	Command             uint16
	Fields              []PacketTemplateField
}

// Matches reports whether (destination, source, command) satisfies this
// template's masked-XOR match rule plus exact command equality (see
// DESIGN.md Open Question 2).
func (p PacketTemplate) Matches(destination, source, command uint16) bool {
	dstOK := ((p.DestinationAddress ^ destination) & p.DestinationMask) == 0
	srcOK := ((p.SourceAddress ^ source) & p.SourceMask) == 0
	return dstOK && srcOK && p.Command == command
}

// File is a fully parsed, validated VSF1 specification file.
type File struct {
	Datecode        int32
	Texts           []string
	LocalizedTexts  []LocalizedText
	Units           []Unit
	DeviceTemplates []DeviceTemplate
	PacketTemplates []PacketTemplate
}

// TextByIndex looks up a text row; it panics if idx is out of range, since
// every index embedded in a loaded File has already been bounds-checked at
// load time.
func (f *File) TextByIndex(idx TextIndex) string {
	return f.Texts[idx]
}

// LocalizedTextByIndex looks up a localized text row.
func (f *File) LocalizedTextByIndex(idx LocalizedTextIndex) LocalizedText {
	return f.LocalizedTexts[idx]
}

// UnitByID finds a Unit by its UnitID, or reports ok=false if absent
// (UnknownUnit per spec.md §7).
func (f *File) UnitByID(id UnitID) (Unit, bool) {
	for _, u := range f.Units {
		if u.UnitID == id {
			return u, true
		}
	}
	return Unit{}, false
}

// FindDeviceTemplate returns the first DeviceTemplate matching the address
// pair, or ok=false.
func (f *File) FindDeviceTemplate(selfAddress, peerAddress uint16) (DeviceTemplate, bool) {
	for _, d := range f.DeviceTemplates {
		if d.Matches(selfAddress, peerAddress) {
			return d, true
		}
	}
	return DeviceTemplate{}, false
}

// FindPacketTemplate returns the first PacketTemplate matching the triple,
// or ok=false (UnknownPacket per spec.md §7).
func (f *File) FindPacketTemplate(destination, source, command uint16) (PacketTemplate, bool) {
	for _, p := range f.PacketTemplates {
		if p.Matches(destination, source, command) {
			return p, true
		}
	}
	return PacketTemplate{}, false
}

func checkOffset(data []byte, offset, entrySize, count int) bool {
	if offset < 0 || entrySize < 0 || count < 0 {
		return false
	}
	end := offset + entrySize*count
	return offset <= len(data) && end <= len(data) && end >= offset
}

func sliceEntry(data []byte, offset, size int) []byte {
	return data[offset : offset+size]
}

func sliceTableEntry(data []byte, tableOffset, entrySize, index int) []byte {
	start := tableOffset + entrySize*index
	return data[start : start+entrySize]
}

// FromBytes parses and fully validates a VSF1 byte image: the FILEHEADER,
// its CRC16, and every table it references, per SPEC_FULL.md §4.3.1.
func FromBytes(data []byte) (*File, error) {
	if len(data) < 16 {
		return nil, errAt(ErrTruncatedHeader, 0)
	}

	checksumA := binary.LittleEndian.Uint16(data[0x00:0x02])
	checksumB := binary.LittleEndian.Uint16(data[0x02:0x04])
	totalLength := int32(binary.LittleEndian.Uint32(data[0x04:0x08]))
	dataVersion := int32(binary.LittleEndian.Uint32(data[0x08:0x0C]))
	specificationOffset := int32(binary.LittleEndian.Uint32(data[0x0C:0x10]))

	if int(totalLength) != len(data) {
		return nil, errAt(ErrBadTotalLength, 0x04)
	}
	if checksumA != checksumB {
		return nil, errAt(ErrChecksumMismatch, 0x02)
	}
	if vbus.CRC16(data[0x04:totalLength]) != checksumA {
		return nil, errAt(ErrChecksumMismatch, 0x00)
	}
	if dataVersion != 1 {
		return nil, errAt(ErrUnsupportedDataVersion, 0x08)
	}
	if !checkOffset(data, int(specificationOffset), 0x2C, 1) {
		return nil, errAt(ErrBadSpecificationOffset, 0x0C)
	}

	f := &File{}
	if err := f.parseSpecificationBlock(data, int(specificationOffset)); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) parseSpecificationBlock(data []byte, offset int) error {
	block := sliceEntry(data, offset, 0x2C)

	datecode := int32(binary.LittleEndian.Uint32(block[0x00:0x04]))
	textCount := int(int32(binary.LittleEndian.Uint32(block[0x04:0x08])))
	textTableOffset := int(int32(binary.LittleEndian.Uint32(block[0x08:0x0C])))
	localizedTextCount := int(int32(binary.LittleEndian.Uint32(block[0x0C:0x10])))
	localizedTextTableOffset := int(int32(binary.LittleEndian.Uint32(block[0x10:0x14])))
	unitCount := int(int32(binary.LittleEndian.Uint32(block[0x14:0x18])))
	unitTableOffset := int(int32(binary.LittleEndian.Uint32(block[0x18:0x1C])))
	deviceTemplateCount := int(int32(binary.LittleEndian.Uint32(block[0x1C:0x20])))
	deviceTemplateTableOffset := int(int32(binary.LittleEndian.Uint32(block[0x20:0x24])))
	packetTemplateCount := int(int32(binary.LittleEndian.Uint32(block[0x24:0x28])))
	packetTemplateTableOffset := int(int32(binary.LittleEndian.Uint32(block[0x28:0x2C])))

	if !checkOffset(data, textTableOffset, 0x04, textCount) {
		return errAt(ErrInvalidTextTable, offset+0x08)
	}
	if !checkOffset(data, localizedTextTableOffset, 0x0C, localizedTextCount) {
		return errAt(ErrInvalidLocalizedTextTable, offset+0x10)
	}
	if !checkOffset(data, unitTableOffset, 0x10, unitCount) {
		return errAt(ErrInvalidUnitTable, offset+0x18)
	}
	if !checkOffset(data, deviceTemplateTableOffset, 0x0C, deviceTemplateCount) {
		return errAt(ErrInvalidDeviceTemplateTable, offset+0x20)
	}
	if !checkOffset(data, packetTemplateTableOffset, 0x14, packetTemplateCount) {
		return errAt(ErrInvalidPacketTemplateTable, offset+0x28)
	}

	f.Datecode = datecode

	for i := 0; i < textCount; i++ {
		s, err := parseTextBlock(data, textTableOffset, i)
		if err != nil {
			return err
		}
		f.Texts = append(f.Texts, s)
	}

	for i := 0; i < localizedTextCount; i++ {
		lt, err := f.parseLocalizedTextBlock(data, localizedTextTableOffset, i)
		if err != nil {
			return err
		}
		f.LocalizedTexts = append(f.LocalizedTexts, lt)
	}

	for i := 0; i < unitCount; i++ {
		u, err := f.parseUnitBlock(data, unitTableOffset, i)
		if err != nil {
			return err
		}
		f.Units = append(f.Units, u)
	}

	for i := 0; i < deviceTemplateCount; i++ {
		dt, err := f.parseDeviceTemplateBlock(data, deviceTemplateTableOffset, i)
		if err != nil {
			return err
		}
		f.DeviceTemplates = append(f.DeviceTemplates, dt)
	}

	for i := 0; i < packetTemplateCount; i++ {
		pt, err := f.parsePacketTemplateBlock(data, packetTemplateTableOffset, i)
		if err != nil {
			return err
		}
		f.PacketTemplates = append(f.PacketTemplates, pt)
	}

	return nil
}

func parseTextBlock(data []byte, tableOffset, index int) (string, error) {
	entry := sliceTableEntry(data, tableOffset, 0x04, index)
	stringOffset := int(int32(binary.LittleEndian.Uint32(entry[0x00:0x04])))

	if !checkOffset(data, stringOffset, 1, 1) {
		return "", errAt(ErrInvalidTextStringOffset, tableOffset+0x04*index)
	}

	end := stringOffset
	for end < len(data) && data[end] != 0 {
		end++
	}
	if end >= len(data) || !utf8.Valid(data[stringOffset:end]) {
		return "", errAt(ErrInvalidTextContent, stringOffset)
	}
	return string(data[stringOffset:end]), nil
}

func (f *File) parseLocalizedTextBlock(data []byte, tableOffset, index int) (LocalizedText, error) {
	entry := sliceTableEntry(data, tableOffset, 0x0C, index)
	en := TextIndex(int32(binary.LittleEndian.Uint32(entry[0x00:0x04])))
	de := TextIndex(int32(binary.LittleEndian.Uint32(entry[0x04:0x08])))
	fr := TextIndex(int32(binary.LittleEndian.Uint32(entry[0x08:0x0C])))

	base := tableOffset + 0x0C*index
	if en < 0 || int(en) >= len(f.Texts) {
		return LocalizedText{}, errAt(ErrInvalidLocalizedTextIndex, base)
	}
	if de < 0 || int(de) >= len(f.Texts) {
		return LocalizedText{}, errAt(ErrInvalidLocalizedTextIndex, base+0x04)
	}
	if fr < 0 || int(fr) >= len(f.Texts) {
		return LocalizedText{}, errAt(ErrInvalidLocalizedTextIndex, base+0x08)
	}
	return LocalizedText{TextIndexEn: en, TextIndexDe: de, TextIndexFr: fr}, nil
}

func (f *File) parseUnitBlock(data []byte, tableOffset, index int) (Unit, error) {
	entry := sliceTableEntry(data, tableOffset, 0x10, index)
	unitID := UnitID(int32(binary.LittleEndian.Uint32(entry[0x00:0x04])))
	unitFamilyID := UnitFamilyID(int32(binary.LittleEndian.Uint32(entry[0x04:0x08])))
	codeIdx := TextIndex(int32(binary.LittleEndian.Uint32(entry[0x08:0x0C])))
	textIdx := TextIndex(int32(binary.LittleEndian.Uint32(entry[0x0C:0x10])))

	base := tableOffset + 0x10*index
	if unitFamilyID < -1 || unitFamilyID > 6 {
		return Unit{}, errAt(ErrInvalidUnitFamilyID, base+0x04)
	}
	if int(codeIdx) < 0 || int(codeIdx) >= len(f.Texts) {
		return Unit{}, errAt(ErrInvalidUnitTextIndex, base+0x08)
	}
	if int(textIdx) < 0 || int(textIdx) >= len(f.Texts) {
		return Unit{}, errAt(ErrInvalidUnitTextIndex, base+0x0C)
	}
	return Unit{UnitID: unitID, UnitFamilyID: unitFamilyID, UnitCodeTextIndex: codeIdx, UnitTextTextIndex: textIdx}, nil
}

func (f *File) parseDeviceTemplateBlock(data []byte, tableOffset, index int) (DeviceTemplate, error) {
	entry := sliceTableEntry(data, tableOffset, 0x0C, index)
	selfAddress := binary.LittleEndian.Uint16(entry[0x00:0x02])
	selfMask := binary.LittleEndian.Uint16(entry[0x02:0x04])
	peerAddress := binary.LittleEndian.Uint16(entry[0x04:0x06])
	peerMask := binary.LittleEndian.Uint16(entry[0x06:0x08])
	nameIdx := LocalizedTextIndex(int32(binary.LittleEndian.Uint32(entry[0x08:0x0C])))

	if int(nameIdx) < 0 || int(nameIdx) >= len(f.LocalizedTexts) {
		return DeviceTemplate{}, errAt(ErrInvalidDeviceTemplateTextIndex, tableOffset+0x0C*index+0x08)
	}
	return DeviceTemplate{
		SelfAddress:            selfAddress,
		SelfMask:               selfMask,
		PeerAddress:            peerAddress,
		PeerMask:               peerMask,
		NameLocalizedTextIndex: nameIdx,
	}, nil
}

func (f *File) parsePacketTemplateBlock(data []byte, tableOffset, index int) (PacketTemplate, error) {
	entry := sliceTableEntry(data, tableOffset, 0x14, index)
	destinationAddress := binary.LittleEndian.Uint16(entry[0x00:0x02])
	destinationMask := binary.LittleEndian.Uint16(entry[0x02:0x04])
	sourceAddress := binary.LittleEndian.Uint16(entry[0x04:0x06])
	sourceMask := binary.LittleEndian.Uint16(entry[0x06:0x08])
	command := binary.LittleEndian.Uint16(entry[0x08:0x0A])
	fieldCount := int(int32(binary.LittleEndian.Uint32(entry[0x0C:0x10])))
	fieldTableOffset := int(int32(binary.LittleEndian.Uint32(entry[0x10:0x14])))

	if !checkOffset(data, fieldTableOffset, 0x1C, fieldCount) {
		return PacketTemplate{}, errAt(ErrInvalidPacketTemplateFieldTable, tableOffset+0x14*index+0x10)
	}

	fields := make([]PacketTemplateField, 0, fieldCount)
	for i := 0; i < fieldCount; i++ {
		field, err := f.parsePacketTemplateFieldBlock(data, fieldTableOffset, i)
		if err != nil {
			return PacketTemplate{}, err
		}
		fields = append(fields, field)
	}

	return PacketTemplate{
		DestinationAddress: destinationAddress,
		DestinationMask:    destinationMask,
		SourceAddress:      sourceAddress,
		SourceMask:         sourceMask,
		Command:            command,
		Fields:             fields,
	}, nil
}

func (f *File) parsePacketTemplateFieldBlock(data []byte, tableOffset, index int) (PacketTemplateField, error) {
	entry := sliceTableEntry(data, tableOffset, 0x1C, index)
	idTextIndex := TextIndex(int32(binary.LittleEndian.Uint32(entry[0x00:0x04])))
	nameIdx := LocalizedTextIndex(int32(binary.LittleEndian.Uint32(entry[0x04:0x08])))
	unitID := UnitID(int32(binary.LittleEndian.Uint32(entry[0x08:0x0C])))
	precision := int32(binary.LittleEndian.Uint32(entry[0x0C:0x10]))
	typeID := TypeID(int32(binary.LittleEndian.Uint32(entry[0x10:0x14])))
	partCount := int(int32(binary.LittleEndian.Uint32(entry[0x14:0x18])))
	partTableOffset := int(int32(binary.LittleEndian.Uint32(entry[0x18:0x1C])))

	base := tableOffset + 0x1C*index
	if int(idTextIndex) < 0 || int(idTextIndex) >= len(f.Texts) {
		return PacketTemplateField{}, errAt(ErrInvalidPacketTemplateFieldTextIndex, base)
	}
	if int(nameIdx) < 0 || int(nameIdx) >= len(f.LocalizedTexts) {
		return PacketTemplateField{}, errAt(ErrInvalidPacketTemplateFieldTextIndex, base+0x04)
	}
	if !f.hasUnit(unitID) {
		return PacketTemplateField{}, errAt(ErrInvalidPacketTemplateFieldUnitID, base+0x08)
	}
	switch typeID {
	case TypeID(TypeNumber), TypeID(TypeTime), TypeID(TypeWeekTime), TypeID(TypeDateTime):
	default:
		return PacketTemplateField{}, errAt(ErrInvalidPacketTemplateFieldTypeID, base+0x10)
	}
	if !checkOffset(data, partTableOffset, 0x10, partCount) {
		return PacketTemplateField{}, errAt(ErrInvalidPacketTemplateFieldPartTable, base+0x18)
	}

	parts := make([]PacketTemplateFieldPart, 0, partCount)
	for i := 0; i < partCount; i++ {
		parts = append(parts, parsePacketTemplateFieldPartBlock(data, partTableOffset, i))
	}

	return PacketTemplateField{
		IDTextIndex:            idTextIndex,
		NameLocalizedTextIndex: nameIdx,
		UnitID:                 unitID,
		Precision:              precision,
		TypeID:                 typeID,
		Parts:                  parts,
	}, nil
}

func (f *File) hasUnit(id UnitID) bool {
	for _, u := range f.Units {
		if u.UnitID == id {
			return true
		}
	}
	return false
}

func parsePacketTemplateFieldPartBlock(data []byte, tableOffset, index int) PacketTemplateFieldPart {
	entry := sliceTableEntry(data, tableOffset, 0x10, index)
	offset := int32(binary.LittleEndian.Uint32(entry[0x00:0x04]))
	bitPos := entry[0x04]
	mask := entry[0x05]
	isSigned := entry[0x06] != 0
	factor := int64(binary.LittleEndian.Uint64(entry[0x08:0x10]))

	return PacketTemplateFieldPart{
		Offset:   offset,
		BitPos:   bitPos,
		Mask:     mask,
		IsSigned: isSigned,
		Factor:   factor,
	}
}
