// Package binary writes the WebAssembly binary encoding.
package binary

// Buffer accumulates encoded bytes.
type Buffer struct {
	Bytes []byte
}

func (b *Buffer) AppendByte(v byte) {
	b.Bytes = append(b.Bytes, v)
}

func (b *Buffer) WriteBytes(v []byte) {
	b.Bytes = append(b.Bytes, v...)
}

// WriteU32 writes unsigned LEB128 encoding.
func (b *Buffer) WriteU32(v uint32) {
	for {
		byt := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			byt |= 0x80
		}
		b.AppendByte(byt)
		if v == 0 {
			break
		}
	}
}

// WriteI32 writes signed LEB128 encoding.
func (b *Buffer) WriteI32(v int32) {
	for {
		byt := byte(v & 0x7F)
		v >>= 7
		if (v == 0 && byt&0x40 == 0) || (v == -1 && byt&0x40 != 0) {
			b.AppendByte(byt)
			break
		}
		b.AppendByte(byt | 0x80)
	}
}

// WriteString writes a length-prefixed name.
func (b *Buffer) WriteString(s string) {
	b.WriteU32(uint32(len(s)))
	b.WriteBytes([]byte(s))
}

// WriteSection appends a section with its id and byte size.
func (b *Buffer) WriteSection(id byte, content *Buffer) {
	b.AppendByte(id)
	b.WriteU32(uint32(len(content.Bytes)))
	b.WriteBytes(content.Bytes)
}

// Len returns the number of bytes written.
func (b *Buffer) Len() int { return len(b.Bytes) }
