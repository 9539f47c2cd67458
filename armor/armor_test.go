package armor

import (
	"bytes"
	"crypto/rand"
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 100, 4096} {
		data := make([]byte, n)
		if _, err := rand.Read(data); err != nil {
			t.Fatal(err)
		}

		var buf bytes.Buffer
		if err := Encode(&buf, data); err != nil {
			t.Fatalf("length %d: Encode: %v", n, err)
		}

		got, err := Decode(&buf)
		if err != nil {
			t.Fatalf("length %d: Decode: %v", n, err)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("length %d: round-trip mismatch", n)
		}
	}
}

func TestEncodeWrapsAt64Columns(t *testing.T) {
	data := bytes.Repeat([]byte{0x42}, 1000)
	var buf bytes.Buffer
	if err := Encode(&buf, data); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	for _, line := range lines[1 : len(lines)-2] {
		if len(line) != columns {
			t.Fatalf("interior line length = %d, want %d", len(line), columns)
		}
	}
}

func TestDecodeRejectsMissingMarkers(t *testing.T) {
	if _, err := Decode(strings.NewReader("not armor\n")); err == nil {
		t.Fatal("expected error for missing begin marker")
	}
	if _, err := Decode(strings.NewReader(beginMarker + "\nAAAA\n")); err == nil {
		t.Fatal("expected error for missing end marker")
	}
}

func TestEncodeHasNoCRCFooter(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, []byte("six!!!")); err != nil { // 6 bytes: no base64 padding to confuse the check
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	// OpenPGP armor ends with a dedicated "=XXXX" CRC24 line right before
	// the END banner; age armor has no such line, so the line before END
	// must be ordinary base64 body.
	last := lines[len(lines)-2]
	if strings.HasPrefix(last, "=") && len(last) == 5 {
		t.Fatalf("unexpected CRC-shaped line before END marker: %q", last)
	}
}
