// Package armor implements the ASCII-armor envelope around an age file
// (spec §4.5): a 64-char-wrapped base64 body between BEGIN/END banners, with
// no CRC footer (unlike OpenPGP armor).
package armor

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

const (
	beginMarker = "-----BEGIN AGE ENCRYPTED FILE-----"
	endMarker   = "-----END AGE ENCRYPTED FILE-----"
	columns     = 64
)

// Encode wraps the entirety of data (a full age file) in the armor envelope
// and writes it to w.
func Encode(w io.Writer, data []byte) error {
	if _, err := io.WriteString(w, beginMarker+"\n"); err != nil {
		return err
	}
	enc := base64.StdEncoding.EncodeToString(data)
	for len(enc) > 0 {
		line := enc
		if len(line) > columns {
			line = line[:columns]
		}
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
		enc = enc[len(line):]
	}
	_, err := io.WriteString(w, endMarker+"\n")
	return err
}

// Decode reads an armored envelope from r and returns the decoded age file
// bytes. It tolerates CR/LF and trailing whitespace on the banner lines, and
// is strict about the base64 alphabet of the body.
func Decode(r io.Reader) ([]byte, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	if !sc.Scan() {
		return nil, fmt.Errorf("armor: empty input")
	}
	if trimLine(sc.Text()) != beginMarker {
		return nil, fmt.Errorf("armor: missing begin marker")
	}

	var b64 bytes.Buffer
	for {
		if !sc.Scan() {
			return nil, fmt.Errorf("armor: missing end marker")
		}
		line := trimLine(sc.Text())
		if line == endMarker {
			break
		}
		b64.WriteString(line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("armor: %w", err)
	}

	data, err := base64.StdEncoding.DecodeString(b64.String())
	if err != nil {
		return nil, fmt.Errorf("armor: invalid base64 body: %w", err)
	}
	return data, nil
}

func trimLine(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), "\r\n")
}
