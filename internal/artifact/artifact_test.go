package artifact_test

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"testing"

	"pinpoint-go/internal/artifact"
)

func TestEncodeDecode(t *testing.T) {
	t.Run("round-trips map and thumbnail", func(t *testing.T) {
		mapData := []byte("opaque spatial map bytes \x00\x01\x02")
		thumb := []byte("png bytes")

		blob, err := artifact.Encode(mapData, thumb)
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}

		gotMap, gotThumb, err := artifact.Decode(blob)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if !bytes.Equal(gotMap, mapData) {
			t.Errorf("map payload not preserved: got %q", gotMap)
		}
		if !bytes.Equal(gotThumb, thumb) {
			t.Errorf("thumbnail not preserved: got %q", gotThumb)
		}
	})

	t.Run("round-trips without thumbnail", func(t *testing.T) {
		mapData := []byte{0xde, 0xad, 0xbe, 0xef}

		blob, err := artifact.Encode(mapData, nil)
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}

		gotMap, gotThumb, err := artifact.Decode(blob)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if !bytes.Equal(gotMap, mapData) {
			t.Errorf("map payload not preserved: got %x", gotMap)
		}
		if gotThumb != nil {
			t.Errorf("expected nil thumbnail, got %d bytes", len(gotThumb))
		}
	})

	t.Run("rejects empty map payload", func(t *testing.T) {
		if _, err := artifact.Encode(nil, []byte("thumb")); err == nil {
			t.Error("Encode() expected error for empty map payload")
		}
	})
}

func TestDecode_Malformed(t *testing.T) {
	valid, err := artifact.Encode([]byte("map"), []byte("thumb"))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	cases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated header", valid[:8]},
		{"bad magic", append([]byte("XXXX"), valid[4:]...)},
		{"truncated payload", valid[:len(valid)-40]},
		{"flipped byte", flip(valid, len(valid)/2)},
		{"oversized map length", withMapLen(valid, 0xFFFFFFFD)},
		{"map length just past container", withMapLen(valid, uint32(len(valid)))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, th, err := artifact.Decode(tc.data)
			var de *artifact.DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("Decode() error = %v, want *DecodeError", err)
			}
			if m != nil || th != nil {
				t.Error("Decode() returned partial result on error")
			}
		})
	}
}

func flip(data []byte, i int) []byte {
	out := append([]byte(nil), data...)
	out[i] ^= 0xff
	return out
}

// withMapLen patches the declared map payload length and recomputes the
// checksum, so only the length check can reject the result.
func withMapLen(data []byte, n uint32) []byte {
	out := append([]byte(nil), data...)
	binary.LittleEndian.PutUint32(out[5:9], n)
	sum := sha256.Sum256(out[4 : len(out)-sha256.Size])
	copy(out[len(out)-sha256.Size:], sum[:])
	return out
}

func TestMapPayload(t *testing.T) {
	anchors := []artifact.Anchor{
		{Name: "keys 🔑"},
		{Name: "guide"},
		{Name: "passport"},
	}
	for i := range anchors {
		anchors[i].Transform[0] = byte(i + 1)
	}
	tracking := []byte("feature points and whatnot")

	payload := artifact.EncodeMapPayload(anchors, tracking)

	t.Run("decodes anchor table and tracking blob", func(t *testing.T) {
		got, gotTracking, err := artifact.DecodeMapPayload(payload)
		if err != nil {
			t.Fatalf("DecodeMapPayload() error = %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("anchor count = %d, want 3", len(got))
		}
		if got[0].Name != "keys 🔑" || got[0].Transform[0] != 1 {
			t.Errorf("anchor 0 = %+v", got[0])
		}
		if !bytes.Equal(gotTracking, tracking) {
			t.Errorf("tracking blob not preserved")
		}
	})

	t.Run("AnchorNames returns table order, unfiltered", func(t *testing.T) {
		names, err := artifact.AnchorNames(payload)
		if err != nil {
			t.Fatalf("AnchorNames() error = %v", err)
		}
		want := []string{"keys 🔑", "guide", "passport"}
		if len(names) != len(want) {
			t.Fatalf("names = %v, want %v", names, want)
		}
		for i := range want {
			if names[i] != want[i] {
				t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
			}
		}
	})

	t.Run("rejects truncated payload", func(t *testing.T) {
		if _, _, err := artifact.DecodeMapPayload(payload[:10]); err == nil {
			t.Error("DecodeMapPayload() expected error for truncated payload")
		}
	})

	t.Run("rejects oversized anchor count", func(t *testing.T) {
		bad := make([]byte, 8)
		binary.LittleEndian.PutUint32(bad, 0xFFFFFFFF)

		_, _, err := artifact.DecodeMapPayload(bad)
		var de *artifact.DecodeError
		if !errors.As(err, &de) {
			t.Fatalf("DecodeMapPayload() error = %v, want *DecodeError", err)
		}
	})
}
