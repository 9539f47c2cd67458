// Copyright 2022 The age Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package testkit builds age-format test vectors byte by byte, independent
// of the format/stream/age packages under test, so a bug that would make
// both sides of a round-trip test agree can't hide behind it.
package testkit

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// TestFileKey is the file key used by vectors that don't call FileKey.
var TestFileKey = []byte("YELLOW SUBMARINE")

// NotCanonicalBase64 perturbs the last character of a base64 string into a
// different encoding of the same bit pattern, for "accepts non-canonical
// base64" / "rejects non-canonical base64" edge-case tests.
func NotCanonicalBase64(s string) string {
	alphabet := "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	idx := strings.IndexByte(alphabet, s[len(s)-1])
	return s[:len(s)-1] + string(alphabet[idx+1])
}

// TestFile builds an age file byte by byte: header lines, stanzas, the MAC
// footer, and the STREAM-encrypted payload, mirroring the wire format
// exactly rather than calling into the package under test.
type TestFile struct {
	Buf  bytes.Buffer
	Rand func(n int) []byte

	fileKey   []byte
	streamKey []byte
	nonce     [12]byte
	payload   bytes.Buffer
	expect    string
	comment   string
}

// NewTestFile returns a TestFile seeded with TestFileKey and a deterministic
// CSPRNG (ChaCha20 keyed on a fixed string), so golden vectors are
// reproducible without being predictable to a casual reader.
func NewTestFile() *TestFile {
	c, _ := chacha20.NewUnauthenticatedCipher(
		[]byte("TEST RANDOMNESS TEST RANDOMNESS!"), make([]byte, chacha20.NonceSize))
	rand := func(n int) []byte {
		out := make([]byte, n)
		c.XORKeyStream(out, out)
		return out
	}
	return &TestFile{Rand: rand, expect: "success", fileKey: TestFileKey}
}

// FileKey overrides the default file key.
func (f *TestFile) FileKey(key []byte) {
	f.fileKey = key
}

func (f *TestFile) TextLine(s string) {
	f.Buf.WriteString(s)
	f.Buf.WriteString("\n")
}

// UnreadLine removes and returns the last line written, for tests that need
// to corrupt or omit it.
func (f *TestFile) UnreadLine() string {
	buf := bytes.TrimSuffix(f.Buf.Bytes(), []byte("\n"))
	idx := bytes.LastIndex(buf[:len(buf)-1], []byte("\n")) + 1
	f.Buf.Reset()
	f.Buf.Write(buf[:idx])
	return string(buf[idx:])
}

func (f *TestFile) VersionLine(v string) {
	f.TextLine("age-encryption.org/" + v)
}

func (f *TestFile) ArgsLine(args ...string) {
	f.TextLine(strings.Join(append([]string{"->"}, args...), " "))
}

var b64 = base64.RawStdEncoding.EncodeToString

func (f *TestFile) Body(body []byte) {
	for {
		line := body
		if len(line) > 48 {
			line = line[:48]
		}
		f.TextLine(b64(line))
		body = body[len(line):]
		if len(line) < 48 {
			break
		}
	}
}

func (f *TestFile) Stanza(args []string, body []byte) {
	f.ArgsLine(args...)
	f.Body(body)
}

func (f *TestFile) AEADBody(key, body []byte) {
	aead, _ := chacha20poly1305.New(key)
	f.Body(aead.Seal(nil, make([]byte, chacha20poly1305.NonceSize), body, nil))
}

// NoOp appends a "no-op" stanza carrying fileKey in the clear, matching
// NoopRecipient.Wrap.
func (f *TestFile) NoOp(fileKey []byte) {
	f.Stanza([]string{"no-op"}, fileKey)
}

// Tlock appends a "tlock" stanza for round/chainHash, with ciphertext
// produced by the caller via ibe.Encrypt — testkit builds the wire framing,
// not the IBE math it frames, so a bug in one can't mask a bug in the other.
func (f *TestFile) Tlock(round uint64, chainHash string, ciphertext []byte) {
	f.Stanza([]string{"tlock", strconv.FormatUint(round, 10), chainHash}, ciphertext)
}

func (f *TestFile) HMACLine(h []byte) {
	f.TextLine("--- " + b64(h))
}

func (f *TestFile) HMAC() {
	key := make([]byte, 32)
	hkdf.New(sha256.New, f.fileKey, nil, []byte("header")).Read(key)
	h := hmac.New(sha256.New, key)
	h.Write(f.Buf.Bytes())
	h.Write([]byte("---"))
	f.HMACLine(h.Sum(nil))
}

func (f *TestFile) Nonce(nonce []byte) {
	f.streamKey = make([]byte, 32)
	hkdf.New(sha256.New, f.fileKey, nonce, []byte("payload")).Read(f.streamKey)
	f.Buf.Write(nonce)
}

func (f *TestFile) PayloadChunk(plaintext []byte) {
	f.payload.Write(plaintext)
	aead, _ := chacha20poly1305.New(f.streamKey)
	f.Buf.Write(aead.Seal(nil, f.nonce[:], plaintext, nil))
	f.nonce[10]++
}

func (f *TestFile) PayloadChunkFinal(plaintext []byte) {
	f.payload.Write(plaintext)
	f.nonce[11] = 1
	aead, _ := chacha20poly1305.New(f.streamKey)
	f.Buf.Write(aead.Seal(nil, f.nonce[:], plaintext, nil))
}

// Payload writes plaintext as a single final chunk behind a fresh nonce,
// the common case for vectors under the 64 KiB chunk size.
func (f *TestFile) Payload(plaintext string) {
	f.Nonce(f.Rand(16))
	f.PayloadChunkFinal([]byte(plaintext))
}

func (f *TestFile) ExpectHeaderFailure() {
	f.expect = "header failure"
}

func (f *TestFile) ExpectPayloadFailure() {
	f.expect = "payload failure"
}

func (f *TestFile) Comment(c string) {
	f.comment = c
}

// Generate prints the vector in the same key: value preamble plus raw body
// format the age test-vector corpus uses, for tests that want to diff
// against a golden file instead of asserting in Go.
func (f *TestFile) Generate() {
	fmt.Printf("expect: %s\n", f.expect)
	if f.expect == "success" {
		fmt.Printf("payload: %x\n", sha256.Sum256(f.payload.Bytes()))
	}
	fmt.Printf("file key: %x\n", f.fileKey)
	if f.comment != "" {
		fmt.Printf("comment: %s\n", f.comment)
	}
	fmt.Println()
	io.Copy(os.Stdout, &f.Buf)
}
