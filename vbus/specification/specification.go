// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package specification resolves decoded VBus frame payloads into typed,
// scaled, localized field values using a loaded VSF1 specification file.
package specification

import (
	"fmt"
	"strings"
	"time"

	"github.com/danielwippermann/resol-vbus.rs/vbus"
	"github.com/danielwippermann/resol-vbus.rs/vbus/specfile"
)

// DeviceSpec describes one VBus device as resolved against a device
// template, or as a synthesized "unknown device" fallback.
type DeviceSpec struct {
	DeviceID    string
	Channel     uint8
	SelfAddress uint16
	PeerAddress *uint16
	Name        string
}

// PacketFieldSpec describes one typed, scaled field within a packet.
type PacketFieldSpec struct {
	FieldID       string
	PacketFieldID string
	Name          string
	UnitID        specfile.UnitID
	UnitFamily    specfile.UnitFamily
	UnitCode      string
	UnitText      string
	Precision     int32
	Type          specfile.Type
	Parts         []specfile.PacketTemplateFieldPart
	Language      specfile.Language
}

// PacketSpec describes one packet template's resolved identity, device
// endpoints, and field list.
type PacketSpec struct {
	PacketID           string
	Channel            uint8
	DestinationAddress uint16
	SourceAddress      uint16
	Command            uint16
	DestinationDevice  *DeviceSpec
	SourceDevice       *DeviceSpec
	Name               string
	Fields             []PacketFieldSpec
}

// GetFieldSpec finds a field by its field ID, or nil.
func (p *PacketSpec) GetFieldSpec(id string) *PacketFieldSpec {
	for i := range p.Fields {
		if p.Fields[i].FieldID == id {
			return &p.Fields[i]
		}
	}
	return nil
}

// Specification resolves VBus identities against a loaded VSF1 file in a
// fixed target language. It holds no mutable cache: device and packet specs
// are small enough to recompute per lookup, which keeps the type safe for
// concurrent read-only use without the reference-counted cache the original
// implementation layers on top of the same file.
type Specification struct {
	file     *specfile.File
	language specfile.Language
}

// New constructs a Specification over file, resolving localized text in
// language.
func New(file *specfile.File, language specfile.Language) *Specification {
	return &Specification{file: file, language: language}
}

// Language returns the target language this Specification resolves text
// in.
func (s *Specification) Language() specfile.Language {
	return s.language
}

// GetDeviceSpec resolves (channel, selfAddress, peerAddress) against the
// file's device templates, falling back to a synthesized "unknown device"
// name when no template matches.
func (s *Specification) GetDeviceSpec(channel uint8, selfAddress, peerAddress uint16) *DeviceSpec {
	template, ok := s.file.FindDeviceTemplate(selfAddress, peerAddress)

	var peerAddressOption *uint16
	if ok && template.PeerMask != 0 {
		addr := peerAddress
		peerAddressOption = &addr
	}

	var deviceID string
	if peerAddressOption == nil {
		deviceID = fmt.Sprintf("%02X_%04X", channel, selfAddress)
	} else {
		deviceID = fmt.Sprintf("%02X_%04X_%04X", channel, selfAddress, *peerAddressOption)
	}

	var name string
	if ok {
		lt := s.file.LocalizedTextByIndex(template.NameLocalizedTextIndex)
		name = s.file.TextByIndex(lt.Slot(s.language))
	} else {
		switch s.language {
		case specfile.LanguageDe:
			name = fmt.Sprintf("Unbekanntes Gerät 0x%04X", selfAddress)
		default:
			name = fmt.Sprintf("Unknown device 0x%04X", selfAddress)
		}
	}

	if channel != 0 {
		name = fmt.Sprintf("VBus %d: %s", channel, name)
	}

	return &DeviceSpec{
		DeviceID:    deviceID,
		Channel:     channel,
		SelfAddress: selfAddress,
		PeerAddress: peerAddressOption,
		Name:        name,
	}
}

// GetPacketSpec resolves (channel, destination, source, command) against
// the file's packet templates, its device endpoints, and every field
// template the packet carries.
func (s *Specification) GetPacketSpec(channel uint8, destination, source, command uint16) *PacketSpec {
	packetID := vbus.PacketID{Channel: channel, DestinationAddress: destination, SourceAddress: source, Command: command}

	destinationDevice := s.GetDeviceSpec(channel, destination, source)
	sourceDevice := s.GetDeviceSpec(channel, source, destination)

	packetIDString := packetID.String()

	var name string
	if destination == 0x0010 {
		name = sourceDevice.Name
	} else {
		name = fmt.Sprintf("%s => %s", sourceDevice.Name, destinationDevice.Name)
	}

	var fields []PacketFieldSpec
	if template, ok := s.file.FindPacketTemplate(destination, source, command); ok {
		fields = make([]PacketFieldSpec, 0, len(template.Fields))
		for _, field := range template.Fields {
			fieldID := s.file.TextByIndex(field.IDTextIndex)
			unit, _ := s.file.UnitByID(field.UnitID)
			lt := s.file.LocalizedTextByIndex(field.NameLocalizedTextIndex)

			fields = append(fields, PacketFieldSpec{
				FieldID:       fieldID,
				PacketFieldID: fmt.Sprintf("%s_%s", packetIDString, fieldID),
				Name:          s.file.TextByIndex(lt.Slot(s.language)),
				UnitID:        field.UnitID,
				UnitFamily:    specfile.UnitFamily(unit.UnitFamilyID),
				UnitCode:      s.file.TextByIndex(unit.UnitCodeTextIndex),
				UnitText:      s.file.TextByIndex(unit.UnitTextTextIndex),
				Precision:     field.Precision,
				Type:          specfile.Type(field.TypeID),
				Parts:         field.Parts,
				Language:      s.language,
			})
		}
	}

	return &PacketSpec{
		PacketID:           packetIDString,
		Channel:            channel,
		DestinationAddress: destination,
		SourceAddress:      source,
		Command:            command,
		DestinationDevice:  destinationDevice,
		SourceDevice:       sourceDevice,
		Name:               name,
		Fields:             fields,
	}
}

// GetPacketSpecByID is GetPacketSpec taking a vbus.PacketID.
func (s *Specification) GetPacketSpecByID(id vbus.PacketID) *PacketSpec {
	return s.GetPacketSpec(id.Channel, id.DestinationAddress, id.SourceAddress, id.Command)
}

// UnitByUnitCode finds a Unit by its short code text ("DegreesCelsius").
func (s *Specification) UnitByUnitCode(code string) (specfile.Unit, bool) {
	for _, u := range s.file.Units {
		if s.file.TextByIndex(u.UnitCodeTextIndex) == code {
			return u, true
		}
	}
	return specfile.Unit{}, false
}

// FmtTimestamp formats t as a VBus DateTime value in this Specification's
// language.
func (s *Specification) FmtTimestamp(t time.Time) string {
	return RawValueFormatter{
		Language:  s.language,
		Type:      specfile.TypeDateTime,
		Precision: 0,
		RawValue:  t.Unix() - macEpochOffset,
		UnitText:  "",
	}.String()
}

// RawValueI64 assembles a signed 64-bit raw value from buf by folding this
// field's offset/bitmask/bitshift/factor parts in declared order, per the
// VSF field-part contract. It returns ok=false if every part's offset fell
// outside buf (no applicable data), which callers treat as UnknownField.
func (f *PacketFieldSpec) RawValueI64(buf []byte) (int64, bool) {
	var rawValue int64
	valid := false

	for _, part := range f.Parts {
		offset := int(part.Offset)
		if offset < 0 || offset >= len(buf) {
			continue
		}

		var partValue int64
		if part.IsSigned {
			partValue = int64(int8(buf[offset]))
		} else {
			partValue = int64(buf[offset])
		}
		if part.Mask != 0xFF {
			partValue &= int64(part.Mask)
		}
		if part.BitPos > 0 {
			partValue >>= part.BitPos
		}
		rawValue += partValue * part.Factor
		valid = true
	}

	return rawValue, valid
}

// RawValueF64 is RawValueI64 scaled by 10^-precision.
func (f *PacketFieldSpec) RawValueF64(buf []byte) (float64, bool) {
	raw, ok := f.RawValueI64(buf)
	if !ok {
		return 0, false
	}
	if f.Precision > 0 {
		return float64(raw) / powerOfTenF64(f.Precision), true
	}
	return float64(raw) * powerOfTenF64(-f.Precision), true
}

// FmtRawValue formats a raw value already extracted via RawValueI64/F64. ok
// should be the second return value from that extraction; when false this
// returns an empty string (UnknownField has no textual representation).
func (f *PacketFieldSpec) FmtRawValue(rawValue int64, ok bool, appendUnit bool) string {
	if !ok {
		return ""
	}
	unitText := ""
	if appendUnit {
		unitText = f.UnitText
	}
	return RawValueFormatter{
		Language:  f.Language,
		Type:      f.Type,
		Precision: f.Precision,
		RawValue:  rawValue,
		UnitText:  unitText,
	}.String()
}

// macEpochOffset converts between Unix epoch seconds and the VBus DateTime
// epoch (2001-01-01T00:00:00Z, the "Mac epoch" RESOL's tooling inherited).
const macEpochOffset = 978307200

var weekdaysEn = [...]string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}
var weekdaysDe = [...]string{"Mo", "Di", "Mi", "Do", "Fr", "Sa", "So"}
var weekdaysFr = [...]string{"Lu", "Ma", "Me", "Je", "Ve", "Sa", "Di"}

// RawValueFormatter renders a raw integer value as text according to a
// field's Type, Precision, and target Language.
type RawValueFormatter struct {
	Language  specfile.Language
	Type      specfile.Type
	Precision int32
	RawValue  int64
	UnitText  string
}

func (r RawValueFormatter) String() string {
	switch r.Type {
	case specfile.TypeTime:
		hours := r.RawValue / 60
		minutes := r.RawValue % 60
		return fmt.Sprintf("%02d:%02d", hours, minutes)

	case specfile.TypeWeekTime:
		weekdayIdx := (r.RawValue / 1440) % 7
		hours := (r.RawValue / 60) % 24
		minutes := r.RawValue % 60
		var weekdays [7]string
		switch r.Language {
		case specfile.LanguageDe:
			weekdays = weekdaysDe
		case specfile.LanguageFr:
			weekdays = weekdaysFr
		default:
			weekdays = weekdaysEn
		}
		return fmt.Sprintf("%s,%02d:%02d", weekdays[weekdayIdx], hours, minutes)

	case specfile.TypeDateTime:
		t := time.Unix(r.RawValue+macEpochOffset, 0).UTC()
		if r.Language == specfile.LanguageDe {
			return t.Format("02.01.2006 15:04:05")
		}
		return t.Format("02/01/2006 15:04:05")

	default: // specfile.TypeNumber
		if r.Precision <= 0 {
			return fmt.Sprintf("%d%s", r.RawValue, r.UnitText)
		}

		sign := ""
		raw := r.RawValue
		if raw < 0 {
			sign = "-"
			raw = -raw
		}
		factor := powerOfTenI64(r.Precision)
		leftPart := raw / factor
		rightPart := raw % factor

		separator := "."
		if r.Language == specfile.LanguageDe || r.Language == specfile.LanguageFr {
			separator = ","
		}

		var b strings.Builder
		fmt.Fprintf(&b, "%s%d%s%0*d%s", sign, leftPart, separator, int(r.Precision), rightPart, r.UnitText)
		return b.String()
	}
}

func powerOfTenI64(n int32) int64 {
	result := int64(1)
	for i := int32(0); i < n; i++ {
		result *= 10
	}
	return result
}

func powerOfTenF64(n int32) float64 {
	result := 1.0
	neg := n < 0
	if neg {
		n = -n
	}
	for i := int32(0); i < n; i++ {
		result *= 10
	}
	if neg {
		return 1 / result
	}
	return result
}
