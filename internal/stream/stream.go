// Copyright 2019 Google LLC
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file or at
// https://developers.google.com/open-source/licenses/bsd

// Package stream implements the age STREAM construction: ChaCha20-Poly1305
// in 64 KiB chunks with an 11-byte big-endian counter plus a last-chunk flag
// as the nonce (spec §4.3).
package stream

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// ChunkSize is the maximum plaintext size of a single STREAM chunk.
const ChunkSize = 64 * 1024

const tagSize = chacha20poly1305.Overhead

// nonce is the 12-byte STREAM nonce: an 11-byte big-endian counter and a
// final trailing byte that is 1 on the last chunk, 0 otherwise.
type nonce struct {
	counter uint64 // low 64 bits; the top 3 bytes live in hi
	hi      uint32 // top 24 bits of the 88-bit counter (11 bytes total)
	last    bool
}

func (n *nonce) bytes() ([chacha20poly1305.NonceSize]byte, error) {
	var out [chacha20poly1305.NonceSize]byte
	if n.hi > 0xffffff {
		return out, errors.New("stream: nonce counter overflow")
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n.counter)
	// buf holds the low 64 bits of the counter right-justified; the
	// 11-byte counter is hi(3 bytes) || buf(8 bytes).
	out[0] = byte(n.hi >> 16)
	out[1] = byte(n.hi >> 8)
	out[2] = byte(n.hi)
	copy(out[3:11], buf[:])
	if n.last {
		out[11] = 1
	}
	return out, nil
}

func (n *nonce) increment() error {
	n.counter++
	if n.counter == 0 {
		n.hi++
		if n.hi > 0xffffff {
			return errors.New("stream: nonce counter overflow")
		}
	}
	return nil
}

// Seal chunks plaintext into ChunkSize pieces and writes
// ChaCha20-Poly1305(key, nonce_i, chunk) for each to w, including an empty
// final chunk with the last flag set when len(plaintext) is an exact
// multiple of ChunkSize (spec §4.3 "Last chunk").
func Seal(w io.Writer, key []byte, plaintext []byte) error {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return fmt.Errorf("stream: %w", err)
	}

	var n nonce
	for {
		// A chunk is non-final whenever more plaintext remains after it,
		// including the boundary case where exactly ChunkSize bytes are
		// left: that chunk goes out with last=false, and the loop comes
		// back around to emit a trailing empty chunk with last=true, per
		// spec §4.3's exact-multiple rule.
		chunk := plaintext
		last := len(chunk) < ChunkSize
		if !last {
			chunk = chunk[:ChunkSize]
		}
		plaintext = plaintext[len(chunk):]

		n.last = last
		nb, err := n.bytes()
		if err != nil {
			return err
		}
		sealed := aead.Seal(nil, nb[:], chunk, nil)
		if _, err := w.Write(sealed); err != nil {
			return fmt.Errorf("stream: write ciphertext: %w", err)
		}
		if last {
			return nil
		}
		if err := n.increment(); err != nil {
			return err
		}
	}
}

// Open is the inverse of Seal: it reads chunks of ChunkSize+tagSize bytes
// from r, opening each with the matching per-chunk nonce, and returns the
// concatenated plaintext. Any tag failure reports ErrAuthentication.
func Open(r io.Reader, key []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("stream: %w", err)
	}

	var out bytes.Buffer
	var n nonce
	buf := make([]byte, ChunkSize+tagSize)
	for {
		read, err := io.ReadFull(r, buf)
		switch {
		case err == io.EOF && read == 0:
			return nil, ErrAuthentication // no chunk ever carried last=1
		case err == io.ErrUnexpectedEOF || err == io.EOF:
			// short read: this must be the final chunk.
		case err != nil:
			return nil, fmt.Errorf("stream: read ciphertext: %w", err)
		}

		chunk := buf[:read]
		last := read < len(buf)
		if last {
			// Confirm there really is nothing left to read.
			var probe [1]byte
			if m, _ := r.Read(probe[:]); m > 0 {
				return nil, fmt.Errorf("stream: trailing data after final chunk")
			}
		}

		n.last = last
		nb, nerr := n.bytes()
		if nerr != nil {
			return nil, nerr
		}
		opened, oerr := aead.Open(nil, nb[:], chunk, nil)
		if oerr != nil {
			return nil, ErrAuthentication
		}
		out.Write(opened)

		if last {
			return out.Bytes(), nil
		}
		if err := n.increment(); err != nil {
			return nil, err
		}
	}
}

// ErrAuthentication is returned when any STREAM chunk fails Poly1305
// verification.
var ErrAuthentication = errors.New("stream: chunk authentication failed")
