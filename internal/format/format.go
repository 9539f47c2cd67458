// Copyright 2019 Google LLC
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file or at
// https://developers.google.com/open-source/licenses/bsd

// Package format implements the age-encryption.org/v1 header: recipient
// stanzas and the HMAC-SHA-256 footer that authenticates them (spec §4.4).
package format

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// V1Magic is the literal version line that starts every age header.
const V1Magic = "age-encryption.org/v1"

const columnsPerLine = 64

var b64 = base64.RawStdEncoding

// Stanza is one recipient block of the header (spec §3 "Stanza").
type Stanza struct {
	Type string
	Args []string
	Body []byte
}

// Header is the ordered list of stanzas plus the header MAC (spec §3
// "AgeHeader").
type Header struct {
	Recipients []*Stanza
	MAC        []byte
}

// ValidateToken checks that s is non-empty and every byte is a printable
// ASCII character in [33, 126], the invariant spec §3/§4.4 place on a
// stanza's type and each arg.
func ValidateToken(s string) error {
	if s == "" {
		return errors.New("empty token")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 33 || s[i] > 126 {
			return fmt.Errorf("invalid character %q in token %q", s[i], s)
		}
	}
	return nil
}

func (s *Stanza) marshal(w io.Writer) error {
	if err := ValidateToken(s.Type); err != nil {
		return fmt.Errorf("invalid stanza type: %w", err)
	}
	for _, a := range s.Args {
		if err := ValidateToken(a); err != nil {
			return fmt.Errorf("invalid stanza arg: %w", err)
		}
	}
	args := append([]string{"->", s.Type}, s.Args...)
	if _, err := io.WriteString(w, strings.Join(args, " ")+"\n"); err != nil {
		return err
	}

	body := b64.EncodeToString(s.Body)
	for len(body) > 0 {
		line := body
		if len(line) > columnsPerLine {
			line = line[:columnsPerLine]
		}
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
		body = body[len(line):]
		if len(line) < columnsPerLine {
			return nil
		}
	}
	// Body length was an exact multiple of 64 (or empty): emit the
	// trailing empty line required to disambiguate end-of-body.
	_, err := io.WriteString(w, "\n")
	return err
}

// Marshal writes the canonical header: the version line, every stanza, and
// the "--- <mac>" trailing line, terminated with a newline.
func (h *Header) Marshal(w io.Writer) error {
	if _, err := io.WriteString(w, V1Magic+"\n"); err != nil {
		return err
	}
	for _, s := range h.Recipients {
		if err := s.marshal(w); err != nil {
			return err
		}
	}
	if len(h.MAC) == 0 {
		return errors.New("header MAC not set")
	}
	_, err := io.WriteString(w, "--- "+b64.EncodeToString(h.MAC)+"\n")
	return err
}

// MarshalWithoutMAC returns the canonical bytes the header MAC is computed
// over: the version line, every stanza, and the literal "---" with no
// trailing space or newline (spec §4.4 "HMAC").
func (h *Header) MarshalWithoutMAC() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(V1Magic + "\n")
	for _, s := range h.Recipients {
		if err := s.marshal(&buf); err != nil {
			return nil, err
		}
	}
	buf.WriteString("---")
	return buf.Bytes(), nil
}

// Parse reads an age header from r and returns it along with a Reader
// positioned right after the header's trailing newline, ready to read the
// payload nonce and STREAM ciphertext.
func Parse(r io.Reader) (*Header, io.Reader, error) {
	br := bufio.NewReader(r)

	line, err := readLine(br)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read version line: %w", err)
	}
	if line != V1Magic {
		return nil, nil, fmt.Errorf("unexpected version %q", line)
	}

	hdr := &Header{}
	for {
		line, err = readLine(br)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read header: %w", err)
		}
		if strings.HasPrefix(line, "---") {
			macStr := strings.TrimPrefix(line, "--- ")
			if macStr == line {
				return nil, nil, errors.New("malformed closing line")
			}
			mac, err := b64.DecodeString(macStr)
			if err != nil {
				return nil, nil, fmt.Errorf("malformed header MAC: %w", err)
			}
			hdr.MAC = mac
			break
		}
		if !strings.HasPrefix(line, "-> ") {
			return nil, nil, fmt.Errorf("malformed stanza opening line: %q", line)
		}
		args := strings.Split(strings.TrimPrefix(line, "-> "), " ")
		if len(args) < 1 || args[0] == "" {
			return nil, nil, errors.New("malformed stanza: missing type")
		}
		s := &Stanza{Type: args[0], Args: args[1:]}
		if err := ValidateToken(s.Type); err != nil {
			return nil, nil, fmt.Errorf("invalid stanza type: %w", err)
		}
		for _, a := range s.Args {
			if err := ValidateToken(a); err != nil {
				return nil, nil, fmt.Errorf("invalid stanza arg: %w", err)
			}
		}

		var b strings.Builder
		for {
			line, err = readLine(br)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to read stanza body: %w", err)
			}
			b.WriteString(line)
			if len(line) < columnsPerLine {
				break
			}
		}
		body, err := b64.DecodeString(b.String())
		if err != nil {
			return nil, nil, fmt.Errorf("malformed stanza body: %w", err)
		}
		s.Body = body
		hdr.Recipients = append(hdr.Recipients, s)
	}

	return hdr, br, nil
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return "", errors.New("missing trailing newline")
		}
		return "", err
	}
	return strings.TrimSuffix(line, "\n"), nil
}
