// Package artifact implements the binary container for a saved world:
// the opaque spatial-map payload plus an optional thumbnail image, bundled
// into a single blob suitable for file or remote asset storage.
//
// The codec has no knowledge of provenance: the same bytes round-trip
// whether they came from local disk or a remote blob. Decoding is
// all-or-nothing; a malformed container never yields a partial result.
package artifact

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Container layout:
//
//	[0:4]   magic "PMAP"
//	[4]     version byte
//	[5:9]   uint32 LE map payload length
//	        map payload bytes
//	[..+4]  uint32 LE thumbnail length (0 = absent)
//	        thumbnail bytes
//	[-32:]  SHA-256 over everything between the magic and the checksum
var magic = []byte("PMAP")

const (
	version      = 1
	headerSize   = 4 + 1 + 4
	checksumSize = sha256.Size
)

// DecodeError indicates malformed artifact bytes. Decoding never partially
// applies state: on error, no map or thumbnail is returned.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed artifact: %s", e.Reason)
}

// Encode bundles an opaque map payload and an optional thumbnail into a
// single artifact blob. The map payload is carried bit-for-bit; pass nil
// thumbnail to omit it.
func Encode(mapData []byte, thumbnail []byte) ([]byte, error) {
	if len(mapData) == 0 {
		return nil, fmt.Errorf("encoding artifact: map payload is empty")
	}

	size := headerSize + len(mapData) + 4 + len(thumbnail) + checksumSize
	buf := bytes.NewBuffer(make([]byte, 0, size))

	buf.Write(magic)
	buf.WriteByte(version)
	binary.Write(buf, binary.LittleEndian, uint32(len(mapData)))
	buf.Write(mapData)
	binary.Write(buf, binary.LittleEndian, uint32(len(thumbnail)))
	buf.Write(thumbnail)

	sum := sha256.Sum256(buf.Bytes()[len(magic):])
	buf.Write(sum[:])

	return buf.Bytes(), nil
}

// Decode unpacks an artifact blob into its map payload and thumbnail.
// The thumbnail is nil when the artifact carries none.
func Decode(data []byte) (mapData []byte, thumbnail []byte, err error) {
	if len(data) < headerSize+4+checksumSize {
		return nil, nil, &DecodeError{Reason: "truncated container"}
	}
	if !bytes.Equal(data[:4], magic) {
		return nil, nil, &DecodeError{Reason: "bad magic"}
	}
	if data[4] != version {
		return nil, nil, &DecodeError{Reason: fmt.Sprintf("unsupported version %d", data[4])}
	}

	body := data[len(magic) : len(data)-checksumSize]
	sum := sha256.Sum256(body)
	if !bytes.Equal(sum[:], data[len(data)-checksumSize:]) {
		return nil, nil, &DecodeError{Reason: "checksum mismatch"}
	}

	// Declared lengths are untrusted; compare in int64 so a hostile value
	// near MaxUint32 cannot wrap the bounds check.
	mapLen := int64(binary.LittleEndian.Uint32(data[5:9]))
	if mapLen == 0 {
		return nil, nil, &DecodeError{Reason: "empty map payload"}
	}
	rest := data[headerSize : len(data)-checksumSize]
	if int64(len(rest)) < mapLen+4 {
		return nil, nil, &DecodeError{Reason: "map length exceeds container"}
	}
	mapData = rest[:mapLen]

	thumbLen := int64(binary.LittleEndian.Uint32(rest[mapLen : mapLen+4]))
	thumbRest := rest[mapLen+4:]
	if int64(len(thumbRest)) != thumbLen {
		return nil, nil, &DecodeError{Reason: "thumbnail length exceeds container"}
	}
	if thumbLen > 0 {
		thumbnail = thumbRest
	}

	// Copy out so callers never alias the input buffer.
	mapData = append([]byte(nil), mapData...)
	if thumbnail != nil {
		thumbnail = append([]byte(nil), thumbnail...)
	}
	return mapData, thumbnail, nil
}
