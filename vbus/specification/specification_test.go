// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package specification

import (
	"testing"

	"github.com/danielwippermann/resol-vbus.rs/vbus/specfile"
)

func mustDefault(t *testing.T) *specfile.File {
	t.Helper()
	f, err := specfile.Default()
	if err != nil {
		t.Fatalf("specfile.Default(): %v", err)
	}
	return f
}

func TestGetPacketSpecResolvesFields(t *testing.T) {
	spec := New(mustDefault(t), specfile.LanguageEn)

	ps := spec.GetPacketSpec(0x01, 0x0010, 0x7E11, 0x0100)
	if len(ps.Fields) == 0 {
		t.Fatal("expected at least one field")
	}
	if ps.Fields[0].FieldID != "000_2_0" {
		t.Fatalf("FieldID = %q, want 000_2_0", ps.Fields[0].FieldID)
	}
	if ps.Fields[0].PacketFieldID != ps.PacketID+"_000_2_0" {
		t.Fatalf("PacketFieldID = %q", ps.Fields[0].PacketFieldID)
	}
}

func TestGetPacketSpecUnknownPacketHasNoFields(t *testing.T) {
	spec := New(mustDefault(t), specfile.LanguageEn)

	ps := spec.GetPacketSpec(0x00, 0xFFFF, 0xFFFF, 0xFFFF)
	if len(ps.Fields) != 0 {
		t.Fatalf("expected no fields for unmatched packet, got %d", len(ps.Fields))
	}
}

func TestGetDeviceSpecUnknownDeviceName(t *testing.T) {
	spec := New(mustDefault(t), specfile.LanguageEn)

	ds := spec.GetDeviceSpec(0x00, 0x1234, 0x5678)
	if ds.Name != "Unknown device 0x1234" {
		t.Fatalf("Name = %q", ds.Name)
	}
	if ds.PeerAddress != nil {
		t.Fatalf("expected nil PeerAddress for unmatched device, got %v", *ds.PeerAddress)
	}
}

func TestGetDeviceSpecKnownDevice(t *testing.T) {
	spec := New(mustDefault(t), specfile.LanguageEn)

	ds := spec.GetDeviceSpec(0x00, 0x0010, 0x7E11)
	if ds.Name == "" || ds.Name[:7] == "Unknown" {
		t.Fatalf("expected a resolved device name, got %q", ds.Name)
	}
}

func TestRawValueI64(t *testing.T) {
	field := PacketFieldSpec{
		Parts: []specfile.PacketTemplateFieldPart{
			{Offset: 0, Mask: 0xFF, Factor: 1},
			{Offset: 1, Mask: 0xFF, Factor: 256},
		},
	}
	buf := []byte{0x34, 0x12}
	raw, ok := field.RawValueI64(buf)
	if !ok {
		t.Fatal("expected valid raw value")
	}
	if raw != 0x1234 {
		t.Fatalf("raw = 0x%X, want 0x1234", raw)
	}
}

func TestRawValueI64SignExtendsAndShifts(t *testing.T) {
	field := PacketFieldSpec{
		Parts: []specfile.PacketTemplateFieldPart{
			{Offset: 0, Mask: 0xF0, BitPos: 4, IsSigned: true, Factor: 1},
		},
	}
	// 0xF0 is sign-extended to -16 first; masking with 0xF0 then drops the
	// extended high bits, and shifting right by 4 yields 0x0F.
	buf := []byte{0xF0}
	raw, ok := field.RawValueI64(buf)
	if !ok {
		t.Fatal("expected valid raw value")
	}
	if raw != 0x0F {
		t.Fatalf("raw = %d, want 15", raw)
	}
}

func TestRawValueI64OffsetOutOfRangeIsUnknown(t *testing.T) {
	field := PacketFieldSpec{
		Parts: []specfile.PacketTemplateFieldPart{
			{Offset: 10, Mask: 0xFF, Factor: 1},
		},
	}
	_, ok := field.RawValueI64([]byte{0x01, 0x02})
	if ok {
		t.Fatal("expected unknown/invalid for out-of-range offset")
	}
}

func TestRawValueF64AppliesPrecision(t *testing.T) {
	field := PacketFieldSpec{
		Precision: 1,
		Parts: []specfile.PacketTemplateFieldPart{
			{Offset: 0, Mask: 0xFF, Factor: 1, IsSigned: true},
		},
	}
	v, ok := field.RawValueF64([]byte{250})
	if !ok {
		t.Fatal("expected valid value")
	}
	if v != -0.6 {
		t.Fatalf("v = %v, want -0.6", v)
	}
}

func TestFmtRawValueNumberWithPrecision(t *testing.T) {
	field := PacketFieldSpec{Type: specfile.TypeNumber, Precision: 1, UnitText: " °C", Language: specfile.LanguageEn}
	s := field.FmtRawValue(-15, true, true)
	if s != "-1.5 °C" {
		t.Fatalf("got %q", s)
	}
}

func TestFmtRawValueUnknownIsEmpty(t *testing.T) {
	field := PacketFieldSpec{Type: specfile.TypeNumber, Precision: 1}
	if s := field.FmtRawValue(0, false, true); s != "" {
		t.Fatalf("got %q, want empty string", s)
	}
}

func TestRawValueFormatterTime(t *testing.T) {
	f := RawValueFormatter{Type: specfile.TypeTime, RawValue: 90}
	if s := f.String(); s != "01:30" {
		t.Fatalf("got %q, want 01:30", s)
	}
}

func TestRawValueFormatterWeekTime(t *testing.T) {
	f := RawValueFormatter{Type: specfile.TypeWeekTime, RawValue: 1440 + 90, Language: specfile.LanguageEn}
	if s := f.String(); s != "Tu,01:30" {
		t.Fatalf("got %q, want Tu,01:30", s)
	}
}

func TestUnitByUnitCode(t *testing.T) {
	spec := New(mustDefault(t), specfile.LanguageEn)
	if _, ok := spec.UnitByUnitCode("%"); !ok {
		t.Fatal("expected to find the % unit code")
	}
	if _, ok := spec.UnitByUnitCode("NoSuchUnit"); ok {
		t.Fatal("expected lookup miss for unknown unit code")
	}
}
