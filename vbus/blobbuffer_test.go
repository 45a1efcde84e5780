// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vbus

import (
	"bytes"
	"testing"
)

func TestBlobBufferExtendConsume(t *testing.T) {
	b := NewBlobBuffer()
	if !b.IsEmpty() {
		t.Fatal("expected empty buffer")
	}

	b.ExtendFromSlice([]byte{0x01, 0x02, 0x03})
	if b.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", b.Len())
	}
	if !bytes.Equal(b.Bytes(), []byte{0x01, 0x02, 0x03}) {
		t.Fatalf("Bytes() = %v", b.Bytes())
	}

	b.Consume(1)
	if b.Offset() != 1 {
		t.Fatalf("Offset() = %d, want 1", b.Offset())
	}
	if !bytes.Equal(b.Bytes(), []byte{0x02, 0x03}) {
		t.Fatalf("Bytes() after Consume(1) = %v", b.Bytes())
	}

	b.ExtendFromSlice([]byte{0x04})
	if !bytes.Equal(b.Bytes(), []byte{0x02, 0x03, 0x04}) {
		t.Fatalf("Bytes() after extend = %v", b.Bytes())
	}
}

func TestBlobBufferConsumeNoop(t *testing.T) {
	b := NewBlobBuffer()
	b.ExtendFromSlice([]byte{0x01})
	b.Consume(0)
	b.Consume(-1)
	if b.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after no-op Consume calls", b.Len())
	}
}
