// Copyright 2019 Google LLC
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file or at
// https://developers.google.com/open-source/licenses/bsd

// Package tlock implements timelock encryption: identity-based encryption
// under a future drand-style beacon round, composed with the
// age-encryption.org/v1 file format and its ChaCha20-Poly1305 STREAM
// payload (spec §1-§2).
//
// Most callers only need Encrypt and Decrypt with a tlock Recipient/Identity
// (see NewEncrypter/NewDecrypter); the Identity/Recipient/Stanza types below
// are the same data-driven recipient-stanza abstraction age itself uses
// (spec §9), generalized only to the two fixed interpreters this package
// ships: "tlock" and "no-op".
package tlock

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/anisharma07/tlock/internal/format"
	"github.com/anisharma07/tlock/internal/stream"
)

// ErrIncorrectIdentity is returned by Unwrap for recipient stanzas that
// don't match the identity; any other error is fatal to Decrypt.
var ErrIncorrectIdentity = errors.New("tlock: incorrect identity for recipient stanza")

// Stanza is a recipient block of the age header (spec §3 "Stanza").
type Stanza struct {
	Type string
	Args []string
	Body []byte
}

// Identity can decrypt the file key from a recipient stanza it recognizes.
type Identity interface {
	Unwrap(stanzas []*Stanza) (fileKey []byte, err error)
}

// Recipient can wrap a file key into one or more recipient stanzas.
type Recipient interface {
	Wrap(fileKey []byte) ([]*Stanza, error)
}

// Encrypt writes plaintext to dst as an age file (spec §4.6 "Encrypt
// pipeline"): it generates a fresh 16-byte file key, asks recipient to wrap
// it, builds the canonical header with its HMAC, and STREAM-seals the
// payload behind a fresh 16-byte nonce.
func Encrypt(dst io.Writer, plaintext []byte, recipient Recipient) error {
	fileKey := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, fileKey); err != nil {
		return Errorf(KindInternal, "tlock: generate file key: %w", err)
	}

	stanzas, err := recipient.Wrap(fileKey)
	if err != nil {
		var terr *Error
		if errors.As(err, &terr) {
			return err
		}
		return Errorf(KindInternal, "tlock: wrap file key: %w", err)
	}
	if len(stanzas) == 0 {
		return Errorf(KindInputValidation, "tlock: recipient produced no stanzas")
	}

	hdr := &format.Header{}
	for _, s := range stanzas {
		hdr.Recipients = append(hdr.Recipients, (*format.Stanza)(s))
	}

	mac, err := headerMAC(fileKey, hdr)
	if err != nil {
		return Errorf(KindInternal, "tlock: compute header MAC: %w", err)
	}
	hdr.MAC = mac

	if err := hdr.Marshal(dst); err != nil {
		return Errorf(KindInternal, "tlock: write header: %w", err)
	}

	nonce := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return Errorf(KindInternal, "tlock: generate payload nonce: %w", err)
	}
	if _, err := dst.Write(nonce); err != nil {
		return Errorf(KindInternal, "tlock: write payload nonce: %w", err)
	}

	payloadKey, err := streamKey(fileKey, nonce)
	if err != nil {
		return Errorf(KindInternal, "tlock: derive payload key: %w", err)
	}
	if err := stream.Seal(dst, payloadKey, plaintext); err != nil {
		return Errorf(KindInternal, "tlock: seal payload: %w", err)
	}
	return nil
}

// Decrypt reads an age file from src and returns its plaintext (spec §4.6
// "Decrypt pipeline"). identity must recognize exactly the stanzas present;
// the whole plaintext is returned at once, never partially, on failure.
func Decrypt(src io.Reader, identity Identity) ([]byte, error) {
	hdr, payload, err := format.Parse(src)
	if err != nil {
		return nil, Errorf(KindInputValidation, "tlock: parse header: %w", err)
	}

	stanzas := make([]*Stanza, len(hdr.Recipients))
	for i, s := range hdr.Recipients {
		stanzas[i] = (*Stanza)(s)
	}

	fileKey, err := identity.Unwrap(stanzas)
	if err != nil {
		if errors.Is(err, ErrIncorrectIdentity) {
			return nil, Errorf(KindProtocolError, "tlock: %w", err)
		}
		return nil, err
	}

	mac, err := headerMAC(fileKey, hdr)
	if err != nil {
		return nil, Errorf(KindInternal, "tlock: compute header MAC: %w", err)
	}
	if !hmac.Equal(mac, hdr.MAC) {
		return nil, Errorf(KindAuthentication, "tlock: bad header MAC")
	}

	nonce := make([]byte, 16)
	if _, err := io.ReadFull(payload, nonce); err != nil {
		return nil, Errorf(KindInputValidation, "tlock: read payload nonce: %w", err)
	}

	payloadKey, err := streamKey(fileKey, nonce)
	if err != nil {
		return nil, Errorf(KindInternal, "tlock: derive payload key: %w", err)
	}
	plaintext, err := stream.Open(payload, payloadKey)
	if err != nil {
		return nil, Errorf(KindAuthentication, "tlock: %w", err)
	}
	return plaintext, nil
}

// headerMAC computes HMAC-SHA256 over the header's canonical bytes up to and
// including the literal "---", keyed by HKDF-SHA256(fileKey, salt=nil,
// info="header") (spec §3 "AgeHeader", §4.4 "HMAC").
func headerMAC(fileKey []byte, hdr *format.Header) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, fileKey, nil, []byte("header")), key); err != nil {
		return nil, err
	}
	data, err := hdr.MarshalWithoutMAC()
	if err != nil {
		return nil, err
	}
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil), nil
}

// streamKey derives the STREAM payload key (spec §4.3): HKDF-SHA256(fileKey,
// salt=nonce, info="payload").
func streamKey(fileKey, nonce []byte) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, fileKey, nonce, []byte("payload")), key); err != nil {
		return nil, err
	}
	return key, nil
}
