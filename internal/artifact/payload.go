package artifact

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// TransformSize is the fixed byte width of a serialized anchor transform
// (a 4x4 float32 matrix as produced by the tracking layer).
const TransformSize = 64

// Anchor is a named, positioned marker inside a map payload.
// The transform is opaque to the sync engine.
type Anchor struct {
	Name      string
	Transform [TransformSize]byte
}

// Map payload layout, as produced by the tracking layer:
//
//	uint32 LE anchor count
//	per anchor: uint16 LE name length, name bytes, 64-byte transform
//	uint32 LE tracking blob length, tracking blob
//
// The tracking blob is fully opaque; only the anchor table is readable here.

// EncodeMapPayload serializes an anchor table plus opaque tracking data into
// a map payload.
func EncodeMapPayload(anchors []Anchor, tracking []byte) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(len(anchors)))
	for _, a := range anchors {
		binary.Write(&buf, binary.LittleEndian, uint16(len(a.Name)))
		buf.WriteString(a.Name)
		buf.Write(a.Transform[:])
	}
	binary.Write(&buf, binary.LittleEndian, uint32(len(tracking)))
	buf.Write(tracking)
	return buf.Bytes()
}

// DecodeMapPayload parses the anchor table of a map payload.
// The returned tracking slice aliases the input.
func DecodeMapPayload(mapData []byte) ([]Anchor, []byte, error) {
	r := bytes.NewReader(mapData)

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, nil, &DecodeError{Reason: "map payload: missing anchor count"}
	}

	// An anchor occupies at least 2+TransformSize bytes, so an honest count
	// never exceeds the remaining payload. Checked before allocating: a
	// hostile count must not size the slice.
	if int64(count) > int64(r.Len())/(2+TransformSize) {
		return nil, nil, &DecodeError{Reason: "map payload: anchor count exceeds payload"}
	}

	anchors := make([]Anchor, 0, count)
	for i := uint32(0); i < count; i++ {
		var nameLen uint16
		if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
			return nil, nil, &DecodeError{Reason: fmt.Sprintf("map payload: anchor %d truncated", i)}
		}
		name := make([]byte, nameLen)
		if _, err := r.Read(name); err != nil || r.Len() < TransformSize {
			return nil, nil, &DecodeError{Reason: fmt.Sprintf("map payload: anchor %d truncated", i)}
		}
		var a Anchor
		a.Name = string(name)
		r.Read(a.Transform[:])
		anchors = append(anchors, a)
	}

	var trackingLen uint32
	if err := binary.Read(r, binary.LittleEndian, &trackingLen); err != nil {
		return nil, nil, &DecodeError{Reason: "map payload: missing tracking length"}
	}
	if uint32(r.Len()) != trackingLen {
		return nil, nil, &DecodeError{Reason: "map payload: tracking blob truncated"}
	}
	tracking := mapData[len(mapData)-int(trackingLen):]
	return anchors, tracking, nil
}

// AnchorNames returns the names in a map payload's anchor table, in table
// order, unfiltered.
func AnchorNames(mapData []byte) ([]string, error) {
	anchors, _, err := DecodeMapPayload(mapData)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(anchors))
	for i, a := range anchors {
		names[i] = a.Name
	}
	return names, nil
}
