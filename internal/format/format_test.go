package format

import (
	"bytes"
	"strings"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	hdr := &Header{
		Recipients: []*Stanza{
			{Type: "no-op", Body: []byte("0123456789ABCDEF")},
			{Type: "tlock", Args: []string{"42", "deadbeef"}, Body: bytes.Repeat([]byte{0x42}, 80)},
		},
		MAC: bytes.Repeat([]byte{0x01}, 32),
	}

	var buf bytes.Buffer
	if err := hdr.Marshal(&buf); err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	parsed, rest, err := Parse(&buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(parsed.Recipients) != 2 {
		t.Fatalf("got %d recipients, want 2", len(parsed.Recipients))
	}
	if parsed.Recipients[0].Type != "no-op" || string(parsed.Recipients[0].Body) != "0123456789ABCDEF" {
		t.Fatalf("recipient 0 mismatch: %+v", parsed.Recipients[0])
	}
	if parsed.Recipients[1].Type != "tlock" || len(parsed.Recipients[1].Args) != 2 {
		t.Fatalf("recipient 1 mismatch: %+v", parsed.Recipients[1])
	}
	if !bytes.Equal(parsed.MAC, hdr.MAC) {
		t.Fatalf("MAC mismatch")
	}
	if n, _ := rest.Read(make([]byte, 1)); n != 0 {
		t.Fatalf("expected no payload bytes left, got %d", n)
	}
}

func TestStanzaBodyExactMultipleOf64EmitsTrailingEmptyLine(t *testing.T) {
	s := &Stanza{Type: "no-op", Body: bytes.Repeat([]byte{0xAA}, 48)} // 48 bytes -> 64 base64 chars
	var buf bytes.Buffer
	if err := s.marshal(&buf); err != nil {
		t.Fatalf("marshal: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if lines[len(lines)-1] != "" {
		t.Fatalf("expected trailing empty line, got %q", lines[len(lines)-1])
	}
}

func TestValidateTokenRejectsNonPrintable(t *testing.T) {
	if err := ValidateToken(""); err == nil {
		t.Fatal("expected error for empty token")
	}
	if err := ValidateToken("bad\ttoken"); err == nil {
		t.Fatal("expected error for token containing a tab")
	}
	if err := ValidateToken("good-token_123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseRejectsMalformedClosingLine(t *testing.T) {
	raw := V1Magic + "\n" + "---not-a-mac\n"
	_, _, err := Parse(strings.NewReader(raw))
	if err == nil {
		t.Fatal("expected error for malformed closing line")
	}
}

func TestParseRejectsMissingTrailingNewline(t *testing.T) {
	raw := V1Magic + "\n" + "--- " + b64.EncodeToString(bytes.Repeat([]byte{1}, 32))
	_, _, err := Parse(strings.NewReader(raw))
	if err == nil {
		t.Fatal("expected error for missing trailing newline")
	}
}
