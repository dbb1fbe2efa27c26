package pngrepack

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// Signature is the eight byte header of every PNG file.
const Signature = "\x89PNG\r\n\x1a\n"

const (
	maxChunkLen = 0x7fffffff

	// chunkOverhead is the length, type and CRC around a
	// chunk's payload.
	chunkOverhead = 12
)

// Chunk types handled specially by the recompressor.
const (
	TypeIDAT = "IDAT"
	TypeIEND = "IEND"
)

// A Chunk is a single record of a PNG chunk stream.
type Chunk struct {
	// Type is the four byte chunk tag, such as "IHDR".
	Type string

	// Data is the chunk payload. Its length is the chunk's
	// declared length.
	Data []byte

	// CRC is the checksum stored in the file. It is not
	// verified by Decode and not used by Encode.
	CRC uint32
}

// Checksum computes the CRC-32 of the chunk's type and
// payload.
func (c Chunk) Checksum() uint32 {
	crc := crc32.NewIEEE()
	crc.Write([]byte(c.Type))
	crc.Write(c.Data)
	return crc.Sum32()
}

// Valid reports whether the stored CRC matches the chunk.
func (c Chunk) Valid() bool {
	return c.CRC == c.Checksum()
}

// HasSignature reports whether data starts with the PNG
// signature.
func HasSignature(data []byte) bool {
	return bytes.HasPrefix(data, []byte(Signature))
}

// Decode splits a PNG file into its chunks, up to and
// including the first IEND chunk. Anything after IEND is
// ignored. If the data ends cleanly on a chunk boundary
// before an IEND chunk, the chunks read so far are
// returned.
//
// Chunk payloads alias data.
//
// Decode returns ErrNotPNG if the signature is missing, and
// an error wrapping ErrMalformedChunk if a chunk does not
// fit in the remaining data.
func Decode(data []byte) ([]Chunk, error) {
	if !HasSignature(data) {
		return nil, ErrNotPNG
	}

	var chunks []Chunk
	off := len(Signature)
	for off < len(data) {
		if len(data)-off < 8 {
			return nil, fmt.Errorf("%w: truncated chunk header at offset %d", ErrMalformedChunk, off)
		}
		length := binary.BigEndian.Uint32(data[off:])
		kind := string(data[off+4 : off+8])
		if length > maxChunkLen {
			return nil, fmt.Errorf("%w: %q chunk at offset %d has bad length %d",
				ErrMalformedChunk, kind, off, length)
		}
		if uint64(len(data)-off-8) < uint64(length)+4 {
			return nil, fmt.Errorf("%w: %q chunk at offset %d overruns the file",
				ErrMalformedChunk, kind, off)
		}

		payload := data[off+8 : off+8+int(length)]
		crc := binary.BigEndian.Uint32(data[off+8+int(length):])
		chunks = append(chunks, Chunk{Type: kind, Data: payload, CRC: crc})
		off += chunkOverhead + int(length)

		if kind == TypeIEND {
			break
		}
	}
	return chunks, nil
}

// Encode serializes chunks into a PNG file, computing each
// chunk's length and CRC from its type and payload.
func Encode(chunks []Chunk) ([]byte, error) {
	size := len(Signature)
	for _, c := range chunks {
		if len(c.Type) != 4 {
			return nil, fmt.Errorf("%w: type %q is not four bytes", ErrInvalidChunk, c.Type)
		}
		if len(c.Data) > maxChunkLen {
			return nil, fmt.Errorf("%w: %q payload of %d bytes is too large",
				ErrInvalidChunk, c.Type, len(c.Data))
		}
		size += chunkOverhead + len(c.Data)
	}

	out := make([]byte, 0, size)
	out = append(out, Signature...)
	for _, c := range chunks {
		out = binary.BigEndian.AppendUint32(out, uint32(len(c.Data)))
		start := len(out)
		out = append(out, c.Type...)
		out = append(out, c.Data...)
		out = binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(out[start:]))
	}
	return out, nil
}
