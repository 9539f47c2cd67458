package tlock

import (
	"bytes"
	"testing"
)

func TestNoopRoundTrip(t *testing.T) {
	plaintext := []byte("hello, timelock")

	var buf bytes.Buffer
	if err := Encrypt(&buf, plaintext, NoopRecipient{}); err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	got, err := Decrypt(&buf, NoopIdentity{})
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("got %q, want %q", got, plaintext)
	}
}

func TestNoopIdentityRejectsUnrelatedStanza(t *testing.T) {
	_, err := NoopIdentity{}.Unwrap([]*Stanza{{Type: "tlock", Args: []string{"1", "abc"}, Body: []byte("x")}})
	if err != ErrIncorrectIdentity {
		t.Fatalf("got %v, want ErrIncorrectIdentity", err)
	}
}
