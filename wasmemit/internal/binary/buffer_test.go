package binary

import (
	"bytes"
	"testing"
)

func TestWriteU32(t *testing.T) {
	tests := []struct {
		want []byte
		v    uint32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x7F}, 127},
		{[]byte{0x80, 0x01}, 128},
		{[]byte{0xE5, 0x8E, 0x26}, 624485},
		{[]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F}, 0xFFFFFFFF},
	}
	for _, tt := range tests {
		var b Buffer
		b.WriteU32(tt.v)
		if !bytes.Equal(b.Bytes, tt.want) {
			t.Errorf("WriteU32(%d) = %x, want %x", tt.v, b.Bytes, tt.want)
		}
	}
}

func TestWriteI32(t *testing.T) {
	tests := []struct {
		want []byte
		v    int32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x7F}, -1},
		{[]byte{0x3F}, 63},
		{[]byte{0xC0, 0x00}, 64},
		{[]byte{0x40}, -64},
		{[]byte{0xBF, 0x7F}, -65},
		{[]byte{0x80, 0x80, 0x80, 0x80, 0x78}, -2147483648},
	}
	for _, tt := range tests {
		var b Buffer
		b.WriteI32(tt.v)
		if !bytes.Equal(b.Bytes, tt.want) {
			t.Errorf("WriteI32(%d) = %x, want %x", tt.v, b.Bytes, tt.want)
		}
	}
}

func TestWriteSection(t *testing.T) {
	var content Buffer
	content.WriteString("run")

	var b Buffer
	b.WriteSection(7, &content)
	want := []byte{7, 4, 3, 'r', 'u', 'n'}
	if !bytes.Equal(b.Bytes, want) {
		t.Fatalf("expected %x, got %x", want, b.Bytes)
	}
	if b.Len() != len(want) {
		t.Fatalf("expected length %d, got %d", len(want), b.Len())
	}
}
