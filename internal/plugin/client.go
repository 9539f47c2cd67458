// Copyright 2021 Google LLC
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file or at
// https://developers.google.com/open-source/licenses/bsd

// Package plugin implements a subprocess protocol for delegating beacon
// access to an external program, the way filippo.io/age delegates
// recipient/identity wrapping to "age-plugin-<name>" binaries: here the
// two-phase request/response exchange carries tlock.Network's ChainInfo and
// Beacon operations instead of Wrap/Unwrap, so a round's signature can come
// from a remote signer, an HSM, or an interactive prompt without tlock's
// core ever dialing out itself.
package plugin

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	exec "golang.org/x/sys/execabs"

	"github.com/anisharma07/tlock"
)

// Network is a tlock.Network backed by an "tlock-plugin-<name>" subprocess.
type Network struct {
	name string

	// DisplayMessage is invoked if the plugin wishes to display a message to
	// the user. If nil or it returns an error, failure is reported back to
	// the plugin.
	DisplayMessage func(message string) error
	// RequestValue is invoked if the plugin wishes to request a value (e.g.
	// a PIN unlocking a hardware signer) from the user.
	RequestValue func(message string, secret bool) (string, error)
}

var _ tlock.Network = &Network{}

// New returns a Network that shells out to "tlock-plugin-<name>" for every
// ChainInfo/Beacon call.
func New(name string) *Network {
	return &Network{name: name}
}

// Name returns the plugin name, used in the subprocess binary name
// ("tlock-plugin-name").
func (n *Network) Name() string { return n.name }

// ChainInfo implements tlock.Network by running the plugin's "chain-info"
// exchange.
func (n *Network) ChainInfo(ctx context.Context) (info *tlock.ChainInfo, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("tlock-plugin-%s: %w", n.name, err)
		}
	}()

	conn, err := openClientConnection(ctx, n.name)
	if err != nil {
		return nil, fmt.Errorf("couldn't start plugin: %w", err)
	}
	defer conn.Close()

	if err := writeStanza(conn, stanza{Type: "chain-info"}); err != nil {
		return nil, err
	}
	if err := writeStanza(conn, stanza{Type: "done"}); err != nil {
		return nil, err
	}

	return runResponseLoop(n, conn, func(s stanza) (*tlock.ChainInfo, bool, error) {
		if s.Type != "chain-info" {
			return nil, false, nil
		}
		var info tlock.ChainInfo
		if err := json.Unmarshal(s.Body, &info); err != nil {
			return nil, false, fmt.Errorf("malformed chain-info body: %w", err)
		}
		return &info, true, nil
	})
}

// Beacon implements tlock.Network by running the plugin's "beacon"
// exchange. A plugin that doesn't yet have the round's signature responds
// with a "too-early" stanza carrying the unlock unix time as its argument.
func (n *Network) Beacon(ctx context.Context, round uint64) (beacon *tlock.Beacon, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("tlock-plugin-%s: %w", n.name, err)
		}
	}()

	conn, err := openClientConnection(ctx, n.name)
	if err != nil {
		return nil, fmt.Errorf("couldn't start plugin: %w", err)
	}
	defer conn.Close()

	if err := writeStanza(conn, stanza{Type: "beacon", Args: []string{strconv.FormatUint(round, 10)}}); err != nil {
		return nil, err
	}
	if err := writeStanza(conn, stanza{Type: "done"}); err != nil {
		return nil, err
	}

	return runResponseLoop(n, conn, func(s stanza) (*tlock.Beacon, bool, error) {
		switch s.Type {
		case "beacon":
			var b tlock.Beacon
			if err := json.Unmarshal(s.Body, &b); err != nil {
				return nil, false, fmt.Errorf("malformed beacon body: %w", err)
			}
			return &b, true, nil
		case "too-early":
			if len(s.Args) != 1 {
				return nil, false, fmt.Errorf("malformed too-early stanza")
			}
			unlockAt, err := strconv.ParseInt(s.Args[0], 10, 64)
			if err != nil {
				return nil, false, fmt.Errorf("malformed too-early stanza: %w", err)
			}
			return nil, false, &tlock.TooEarlyError{Round: round, UnlockAt: unlockAt}
		default:
			return nil, false, nil
		}
	})
}

// runResponseLoop drives the plugin's phase-2 response loop, handling the
// "msg"/"request-secret"/"request-public"/"error"/"done" commands common to
// both exchanges, and delegating everything else to handle.
func runResponseLoop[T any](n *Network, conn *clientConnection, handle func(stanza) (T, bool, error)) (T, error) {
	var zero T
	sr := bufio.NewReader(conn)
	for {
		s, err := readStanza(sr)
		if err != nil {
			return zero, err
		}

		switch s.Type {
		case "msg":
			if n.DisplayMessage == nil || n.DisplayMessage(string(s.Body)) != nil {
				if err := writeStanza(conn, stanza{Type: "fail"}); err != nil {
					return zero, err
				}
				continue
			}
			if err := writeStanza(conn, stanza{Type: "ok"}); err != nil {
				return zero, err
			}
		case "request-secret", "request-public":
			if n.RequestValue == nil {
				if err := writeStanza(conn, stanza{Type: "fail"}); err != nil {
					return zero, err
				}
				continue
			}
			value, err := n.RequestValue(string(s.Body), s.Type == "request-secret")
			if err != nil {
				if err := writeStanza(conn, stanza{Type: "fail"}); err != nil {
					return zero, err
				}
				continue
			}
			if err := writeStanza(conn, stanza{Type: "ok", Body: []byte(value)}); err != nil {
				return zero, err
			}
		case "error":
			writeStanza(conn, stanza{Type: "ok"})
			return zero, fmt.Errorf("plugin reported error: %q", s.Body)
		case "done":
			return zero, fmt.Errorf("plugin sent no response before done")
		default:
			result, ok, err := handle(s)
			if err != nil {
				return zero, err
			}
			if !ok {
				if err := writeStanza(conn, stanza{Type: "unsupported"}); err != nil {
					return zero, err
				}
				continue
			}
			if err := writeStanza(conn, stanza{Type: "ok"}); err != nil {
				return zero, err
			}
			// Drain until "done" so the subprocess can exit cleanly.
			for {
				tail, err := readStanza(sr)
				if err != nil {
					return zero, err
				}
				if tail.Type == "done" {
					return result, nil
				}
				writeStanza(conn, stanza{Type: "unsupported"})
			}
		}
	}
}

// stanza is the wire unit of the plugin protocol: one "-> type args\n"
// opening line, then the body as 64-column-wrapped unpadded base64,
// terminated by a short line (spec §4.4's stanza-body convention, reused
// here for a request/response line protocol rather than an AGE header).
type stanza struct {
	Type string
	Args []string
	Body []byte
}

const columnsPerLine = 64

var b64 = base64.RawStdEncoding

func writeStanza(w io.Writer, s stanza) error {
	fields := append([]string{"->", s.Type}, s.Args...)
	if _, err := io.WriteString(w, strings.Join(fields, " ")+"\n"); err != nil {
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
	_, err := io.WriteString(w, "\n")
	return err
}

func readStanza(r *bufio.Reader) (stanza, error) {
	line, err := readLine(r)
	if err != nil {
		return stanza{}, err
	}
	if !strings.HasPrefix(line, "-> ") {
		return stanza{}, fmt.Errorf("malformed plugin line: %q", line)
	}
	fields := strings.Split(strings.TrimPrefix(line, "-> "), " ")
	if len(fields) < 1 || fields[0] == "" {
		return stanza{}, fmt.Errorf("malformed plugin line: missing type")
	}
	s := stanza{Type: fields[0], Args: fields[1:]}

	var b strings.Builder
	for {
		line, err := readLine(r)
		if err != nil {
			return stanza{}, err
		}
		b.WriteString(line)
		if len(line) < columnsPerLine {
			break
		}
	}
	body, err := b64.DecodeString(b.String())
	if err != nil {
		return stanza{}, fmt.Errorf("malformed plugin stanza body: %w", err)
	}
	s.Body = body
	return s, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return "", fmt.Errorf("missing trailing newline")
		}
		return "", err
	}
	return strings.TrimSuffix(line, "\n"), nil
}

type clientConnection struct {
	cmd       *exec.Cmd
	io.Reader // stdout
	io.Writer // stdin
	stderr    bytes.Buffer
	close     func()
}

func openClientConnection(ctx context.Context, name string) (*clientConnection, error) {
	cmd := exec.CommandContext(ctx, "tlock-plugin-"+name, "--tlock-plugin=network-v1")

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}

	cc := &clientConnection{
		cmd:    cmd,
		Reader: stdout,
		Writer: stdin,
		close: func() {
			stdin.Close()
			stdout.Close()
		},
	}

	if os.Getenv("TLOCKDEBUG") == "plugin" {
		cc.Reader = io.TeeReader(cc.Reader, os.Stderr)
		cc.Writer = io.MultiWriter(cc.Writer, os.Stderr)
	}

	cmd.Stderr = &cc.stderr
	cmd.Dir = os.TempDir()

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cc, nil
}

func (cc *clientConnection) Close() error {
	cc.close()
	cc.cmd.Process.Signal(os.Interrupt)
	return cc.cmd.Wait()
}
