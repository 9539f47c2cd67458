package stream

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatal(err)
	}
	return key
}

func TestSealOpenRoundTrip_BoundaryLengths(t *testing.T) {
	lengths := []int{0, 1, 65535, ChunkSize, ChunkSize + 1, 2 * ChunkSize}
	key := testKey(t)
	for _, n := range lengths {
		plaintext := make([]byte, n)
		if _, err := rand.Read(plaintext); err != nil {
			t.Fatal(err)
		}

		var buf bytes.Buffer
		if err := Seal(&buf, key, plaintext); err != nil {
			t.Fatalf("length %d: Seal: %v", n, err)
		}

		got, err := Open(&buf, key)
		if err != nil {
			t.Fatalf("length %d: Open: %v", n, err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Fatalf("length %d: round-trip mismatch", n)
		}
	}
}

func TestSealExactChunkSizeEmitsTrailingEmptyChunk(t *testing.T) {
	key := testKey(t)
	plaintext := make([]byte, ChunkSize)

	var buf bytes.Buffer
	if err := Seal(&buf, key, plaintext); err != nil {
		t.Fatal(err)
	}
	// One full chunk (ChunkSize+tagSize bytes) plus a trailing empty
	// last chunk (tagSize bytes only).
	want := (ChunkSize + tagSize) + tagSize
	if buf.Len() != want {
		t.Fatalf("wire length = %d, want %d", buf.Len(), want)
	}
}

func TestOpenRejectsTamperedChunk(t *testing.T) {
	key := testKey(t)
	plaintext := []byte("attack at dawn")

	var buf bytes.Buffer
	if err := Seal(&buf, key, plaintext); err != nil {
		t.Fatal(err)
	}
	wire := buf.Bytes()
	wire[0] ^= 0xff

	if _, err := Open(bytes.NewReader(wire), key); err != ErrAuthentication {
		t.Fatalf("got %v, want ErrAuthentication", err)
	}
}

func TestOpenRejectsTruncatedStream(t *testing.T) {
	key := testKey(t)
	plaintext := make([]byte, ChunkSize+100)

	var buf bytes.Buffer
	if err := Seal(&buf, key, plaintext); err != nil {
		t.Fatal(err)
	}
	wire := buf.Bytes()[:ChunkSize] // cut mid-first-chunk

	if _, err := Open(bytes.NewReader(wire), key); err == nil {
		t.Fatal("expected an error for truncated stream")
	}
}

func TestOpenRejectsEmptyInput(t *testing.T) {
	key := testKey(t)
	if _, err := Open(bytes.NewReader(nil), key); err != ErrAuthentication {
		t.Fatalf("got %v, want ErrAuthentication", err)
	}
}

func TestOpenRejectsTrailingDataAfterFinalChunk(t *testing.T) {
	key := testKey(t)
	var buf bytes.Buffer
	if err := Seal(&buf, key, []byte("hello")); err != nil {
		t.Fatal(err)
	}
	buf.WriteByte(0x00)

	if _, err := Open(&buf, key); err == nil {
		t.Fatal("expected an error for trailing data")
	}
}
