package memory

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestVectorToBytes(t *testing.T) {
	v := []float32{1.5, -2.25, 0}
	b := []byte(vectorToBytes(v))

	if len(b) != 12 {
		t.Fatalf("expected 12 bytes, got %d", len(b))
	}
	for i, want := range v {
		got := math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
		if got != want {
			t.Errorf("element %d: got %g, want %g", i, got, want)
		}
	}
}

func TestEscapeTag(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"wine-user-1", `wine\-user\-1`},
		{"plain", "plain"},
		{"a.b@c", `a\.b\@c`},
		{"with space", `with\ space`},
	}
	for _, tt := range tests {
		if got := escapeTag(tt.in); got != tt.want {
			t.Errorf("escapeTag(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseFieldPairs_SkipsBrokenPairs(t *testing.T) {
	// Odd trailing element must be ignored, not panic.
	pairs := parseFieldPairs(nil)
	if len(pairs) != 0 {
		t.Errorf("expected empty map, got %v", pairs)
	}
}

func TestMemoryKey(t *testing.T) {
	s := &Store{prefix: "sommelier:"}
	if got := s.memoryKey("abc"); got != "sommelier:memory:abc" {
		t.Errorf("memoryKey: got %q", got)
	}
}
