// Copyright 2026 The Rewind Authors
// SPDX-License-Identifier: Apache-2.0

// Package archive implements the on-disk container for exported
// session history. An archive is a single payload (CBOR-encoded by the
// caller) wrapped in a small header carrying the compression algorithm,
// the payload sizes, and a keyed BLAKE3 checksum of the uncompressed
// bytes. Corruption anywhere in the file is detected before the caller
// sees a byte of payload.
//
// Layout:
//
//	offset  size  field
//	0       4     magic "RWND"
//	4       1     format version (currently 1)
//	5       1     compression tag
//	6       4     uncompressed payload size (big-endian uint32)
//	10      4     compressed payload size (big-endian uint32)
//	14      32    keyed BLAKE3 checksum of the uncompressed payload
//	46      n     compressed payload
package archive

import (
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// FormatVersion is the current archive format version, stored in the
// header. Readers reject archives with a version they do not know.
const FormatVersion = 1

// magic identifies a Rewind archive. Present at offset 0 of every file.
var magic = [4]byte{'R', 'W', 'N', 'D'}

const headerSize = 4 + 1 + 1 + 4 + 4 + 32

// maxPayloadSize bounds the uncompressed payload a reader will accept.
// Session histories are interactive debugging data; anything past this
// is a corrupt header, not a real export.
const maxPayloadSize = 256 << 20

// Checksum is the 32-byte keyed BLAKE3 digest of an archive payload.
type Checksum [32]byte

// payloadDomainKey is the BLAKE3 key for archive payload checksums.
// Domain separation keeps archive checksums from colliding with any
// other keyed hash of the same bytes. The byte values are the ASCII
// encoding of the domain name, zero-padded to 32 bytes, so the key is
// readable in hex dumps without losing any cryptographic property.
var payloadDomainKey = [32]byte{
	'r', 'e', 'w', 'i', 'n', 'd', '.', 'a', 'r', 'c', 'h', 'i', 'v', 'e', '.',
	'p', 'a', 'y', 'l', 'o', 'a', 'd', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// HashPayload computes the payload-domain keyed BLAKE3 checksum of
// uncompressed payload bytes.
func HashPayload(data []byte) Checksum {
	hasher, err := blake3.NewKeyed(payloadDomainKey[:])
	if err != nil {
		panic("archive: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var checksum Checksum
	copy(checksum[:], hasher.Sum(nil))
	return checksum
}

// FormatChecksum returns the hex-encoded string form of a checksum,
// used in logs and CLI output.
func FormatChecksum(checksum Checksum) string {
	return hex.EncodeToString(checksum[:])
}

// Info describes an archive's header, returned alongside the payload
// by Decode and on its own by Inspect.
type Info struct {
	// Compression is the algorithm the payload was stored with.
	Compression CompressionTag

	// UncompressedSize is the payload size before compression.
	UncompressedSize int

	// CompressedSize is the payload size as stored.
	CompressedSize int

	// Checksum is the keyed BLAKE3 digest of the uncompressed payload.
	Checksum Checksum
}

// Encode wraps payload in an archive. Compression is chosen by probing
// the payload; incompressible data is stored as-is.
func Encode(payload []byte) ([]byte, error) {
	if len(payload) > maxPayloadSize {
		return nil, fmt.Errorf("archive: payload is %d bytes, limit is %d", len(payload), maxPayloadSize)
	}

	tag := selectCompression(payload)
	compressed, err := compress(payload, tag)
	if err != nil {
		if err == errIncompressible {
			tag = CompressionNone
			compressed = payload
		} else {
			return nil, fmt.Errorf("archive: %w", err)
		}
	}

	checksum := HashPayload(payload)

	out := make([]byte, headerSize+len(compressed))
	copy(out[0:4], magic[:])
	out[4] = FormatVersion
	out[5] = byte(tag)
	binary.BigEndian.PutUint32(out[6:10], uint32(len(payload)))
	binary.BigEndian.PutUint32(out[10:14], uint32(len(compressed)))
	copy(out[14:46], checksum[:])
	copy(out[headerSize:], compressed)
	return out, nil
}

// Decode unwraps an archive, verifies the checksum, and returns the
// uncompressed payload with its header description.
func Decode(data []byte) ([]byte, Info, error) {
	info, err := parseHeader(data)
	if err != nil {
		return nil, Info{}, err
	}

	body := data[headerSize:]
	if len(body) != info.CompressedSize {
		return nil, Info{}, fmt.Errorf("archive: payload is %d bytes, header declares %d", len(body), info.CompressedSize)
	}

	payload, err := decompress(body, info.Compression, info.UncompressedSize)
	if err != nil {
		return nil, Info{}, fmt.Errorf("archive: %w", err)
	}

	actual := HashPayload(payload)
	if subtle.ConstantTimeCompare(actual[:], info.Checksum[:]) != 1 {
		return nil, Info{}, fmt.Errorf("archive: checksum mismatch: payload hashes to %s, header declares %s",
			FormatChecksum(actual), FormatChecksum(info.Checksum))
	}

	return payload, info, nil
}

// Inspect parses and validates an archive header without decompressing
// the payload. The checksum is not verified; use Decode for that.
func Inspect(data []byte) (Info, error) {
	return parseHeader(data)
}

func parseHeader(data []byte) (Info, error) {
	if len(data) < headerSize {
		return Info{}, fmt.Errorf("archive: %d bytes is too short for a header (%d required)", len(data), headerSize)
	}
	if data[0] != magic[0] || data[1] != magic[1] || data[2] != magic[2] || data[3] != magic[3] {
		return Info{}, fmt.Errorf("archive: bad magic %q, not a rewind archive", data[0:4])
	}
	if data[4] != FormatVersion {
		return Info{}, fmt.Errorf("archive: unsupported format version %d (supported: %d)", data[4], FormatVersion)
	}

	info := Info{
		Compression:      CompressionTag(data[5]),
		UncompressedSize: int(binary.BigEndian.Uint32(data[6:10])),
		CompressedSize:   int(binary.BigEndian.Uint32(data[10:14])),
	}
	copy(info.Checksum[:], data[14:46])

	if info.UncompressedSize > maxPayloadSize {
		return Info{}, fmt.Errorf("archive: declared payload size %d exceeds limit %d", info.UncompressedSize, maxPayloadSize)
	}
	switch info.Compression {
	case CompressionNone, CompressionLZ4, CompressionZstd:
	default:
		return Info{}, fmt.Errorf("archive: unknown compression tag %d", info.Compression)
	}
	return info, nil
}
