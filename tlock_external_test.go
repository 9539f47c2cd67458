package tlock_test

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/anisharma07/tlock"
	"github.com/anisharma07/tlock/ibe"
	"github.com/anisharma07/tlock/internal/format"
	"github.com/anisharma07/tlock/networks/fixed"
)

// roundIdentity mirrors the unexported convention in tlock.go: SHA-256 of the
// round as an 8-byte big-endian integer. Reimplemented here (rather than
// imported) because this file lives in an external test package to avoid an
// import cycle through networks/fixed, which itself imports tlock.
func roundIdentity(round uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], round)
	sum := sha256.Sum256(b[:])
	return sum[:]
}

func newTestChain(t *testing.T, schemeID string) (*fixed.Client, tlock.ChainInfo, func(round uint64) tlock.Beacon) {
	t.Helper()

	variant, err := ibe.VariantForScheme(schemeID)
	if err != nil {
		t.Fatal(err)
	}
	sk, pk, err := ibe.GenerateMasterKey(variant)
	if err != nil {
		t.Fatal(err)
	}

	info := tlock.ChainInfo{
		SchemeID:        schemeID,
		PeriodSeconds:   3,
		GenesisTimeUnix: 1_600_000_000,
		ChainHash:       "test-chain-hash",
		PublicKey:       pk,
	}

	sign := func(round uint64) tlock.Beacon {
		sig, err := ibe.Sign(variant, sk, roundIdentity(round))
		if err != nil {
			t.Fatal(err)
		}
		return tlock.Beacon{Round: round, Signature: sig}
	}

	client := fixed.New(info)
	return client, info, sign
}

func TestTlockEncryptDecryptRoundTrip(t *testing.T) {
	schemes := []string{
		tlock.SchemePedersenBLSUnchained,
		tlock.SchemeBLSUnchainedOnG1,
		tlock.SchemeBLSUnchainedG1RFC9380,
	}
	for _, schemeID := range schemes {
		t.Run(schemeID, func(t *testing.T) {
			client, _, sign := newTestChain(t, schemeID)
			client.AddBeacon(sign(10))

			var buf bytes.Buffer
			plaintext := []byte("the treasure is buried at noon")
			if err := tlock.Encrypt(&buf, plaintext, tlock.NewEncrypter(client, 10)); err != nil {
				t.Fatalf("Encrypt: %v", err)
			}

			got, err := tlock.Decrypt(&buf, tlock.NewDecrypter(client))
			if err != nil {
				t.Fatalf("Decrypt: %v", err)
			}
			if !bytes.Equal(got, plaintext) {
				t.Fatal("round-trip mismatch")
			}
		})
	}
}

func TestTlockDecryptTooEarly(t *testing.T) {
	client, _, _ := newTestChain(t, tlock.SchemePedersenBLSUnchained)
	// round 10's beacon was never added.

	var buf bytes.Buffer
	if err := tlock.Encrypt(&buf, []byte("shh"), tlock.NewEncrypter(client, 10)); err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	_, err := tlock.Decrypt(&buf, tlock.NewDecrypter(client))
	if err == nil {
		t.Fatal("expected a too-early error")
	}
	var terr *tlock.TooEarlyError
	if !asTooEarly(err, &terr) {
		t.Fatalf("got %v, want *TooEarlyError", err)
	}
	if terr.Round != 10 {
		t.Fatalf("round = %d, want 10", terr.Round)
	}
}

func TestTlockDecryptRejectsMultipleTlockStanzas(t *testing.T) {
	client, info, _ := newTestChain(t, tlock.SchemePedersenBLSUnchained)

	stanza := &format.Stanza{
		Type: "tlock",
		Args: []string{"1", info.ChainHash},
		Body: bytes.Repeat([]byte{0x01}, 48+16+16),
	}
	hdr := &format.Header{
		Recipients: []*format.Stanza{stanza, stanza},
		MAC:        bytes.Repeat([]byte{0x00}, 32),
	}
	var buf bytes.Buffer
	if err := hdr.Marshal(&buf); err != nil {
		t.Fatal(err)
	}

	_, err := tlock.Decrypt(&buf, tlock.NewDecrypter(client))
	if err == nil {
		t.Fatal("expected error for duplicate tlock stanzas")
	}
	var terr *tlock.Error
	if !asProtocolError(err, &terr) {
		t.Fatalf("got %v, want KindProtocolError", err)
	}
}

func asProtocolError(err error, target **tlock.Error) bool {
	for err != nil {
		if e, ok := err.(*tlock.Error); ok && e.Kind == tlock.KindProtocolError {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func TestTlockDecryptRejectsChainHashMismatch(t *testing.T) {
	client, info, sign := newTestChain(t, tlock.SchemePedersenBLSUnchained)
	client.AddBeacon(sign(1))

	var buf bytes.Buffer
	if err := tlock.Encrypt(&buf, []byte("hi"), tlock.NewEncrypter(client, 1)); err != nil {
		t.Fatal(err)
	}

	other := fixed.New(tlock.ChainInfo{
		SchemeID:        info.SchemeID,
		PeriodSeconds:   info.PeriodSeconds,
		GenesisTimeUnix: info.GenesisTimeUnix,
		ChainHash:       "a-different-chain",
		PublicKey:       info.PublicKey,
	}, sign(1))

	_, err := tlock.Decrypt(&buf, tlock.NewDecrypter(other))
	if err == nil {
		t.Fatal("expected chain hash mismatch error")
	}
}

func asTooEarly(err error, target **tlock.TooEarlyError) bool {
	for err != nil {
		if t, ok := err.(*tlock.TooEarlyError); ok {
			*target = t
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
