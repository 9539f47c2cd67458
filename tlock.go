package tlock

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"strconv"

	"github.com/anisharma07/tlock/ibe"
)

const tlockType = "tlock"

// NewEncrypter returns a Recipient that time-locks a file key to round on
// network's chain (spec §4.7 "encrypt_wrapper").
func NewEncrypter(network Network, round uint64) Recipient {
	return &tleRecipient{network: network, round: round}
}

// NewDecrypter returns an Identity that unlocks "tlock" stanzas once their
// round's beacon is available on network's chain (spec §4.7
// "decrypt_wrapper").
func NewDecrypter(network Network) Identity {
	return &tleIdentity{network: network}
}

// roundIdentity is the IBE identity string for a beacon round: SHA-256 of
// the round encoded as an 8-byte big-endian integer (spec §4.7, matching the
// beacon network's own round-to-identity convention).
func roundIdentity(round uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], round)
	sum := sha256.Sum256(b[:])
	return sum[:]
}

// tleRecipient implements Recipient by IBE-encrypting the file key to the
// identity of a future beacon round.
type tleRecipient struct {
	network Network
	round   uint64
}

func (t *tleRecipient) Wrap(fileKey []byte) ([]*Stanza, error) {
	ctx := context.Background()
	info, err := t.network.ChainInfo(ctx)
	if err != nil {
		return nil, Errorf(KindNetwork, "tlock: fetch chain info: %w", err)
	}
	if !SupportedScheme(info.SchemeID) {
		return nil, Errorf(KindUnsupportedScheme, "tlock: unsupported scheme %q", info.SchemeID)
	}
	variant, err := ibe.VariantForScheme(info.SchemeID)
	if err != nil {
		return nil, Errorf(KindUnsupportedScheme, "tlock: %w", err)
	}

	var message [ibe.MessageSize]byte
	if len(fileKey) != ibe.MessageSize {
		return nil, Errorf(KindInputValidation, "tlock: file key must be %d bytes", ibe.MessageSize)
	}
	copy(message[:], fileKey)

	ct, err := ibe.Encrypt(variant, info.PublicKey, roundIdentity(t.round), message)
	if err != nil {
		return nil, Errorf(KindInvalidCiphertext, "tlock: ibe encrypt: %w", err)
	}

	return []*Stanza{{
		Type: tlockType,
		Args: []string{strconv.FormatUint(t.round, 10), info.ChainHash},
		Body: ct.Bytes(),
	}}, nil
}

// tleIdentity implements Identity by fetching the beacon for the round named
// in a "tlock" stanza and IBE-decrypting the file key once it is available.
type tleIdentity struct {
	network Network
}

func (t *tleIdentity) Unwrap(stanzas []*Stanza) ([]byte, error) {
	var matches []*Stanza
	for _, candidate := range stanzas {
		if candidate.Type == tlockType {
			matches = append(matches, candidate)
		}
	}
	if len(matches) == 0 {
		return nil, ErrIncorrectIdentity
	}
	if len(matches) != 1 {
		return nil, Errorf(KindProtocolError, "tlock: expected exactly one tlock stanza, got %d", len(matches))
	}
	s := matches[0]
	if len(s.Args) != 2 {
		return nil, Errorf(KindProtocolError, "tlock: stanza takes two arguments, got %d", len(s.Args))
	}

	round, err := strconv.ParseUint(s.Args[0], 10, 64)
	if err != nil {
		return nil, Errorf(KindProtocolError, "tlock: invalid round argument: %w", err)
	}
	chainHash := s.Args[1]

	ctx := context.Background()
	info, err := t.network.ChainInfo(ctx)
	if err != nil {
		return nil, Errorf(KindNetwork, "tlock: fetch chain info: %w", err)
	}
	if info.ChainHash != chainHash {
		return nil, Errorf(KindProtocolError, "tlock: chain hash mismatch")
	}
	if !SupportedScheme(info.SchemeID) {
		return nil, Errorf(KindUnsupportedScheme, "tlock: unsupported scheme %q", info.SchemeID)
	}
	variant, err := ibe.VariantForScheme(info.SchemeID)
	if err != nil {
		return nil, Errorf(KindUnsupportedScheme, "tlock: %w", err)
	}

	beacon, err := t.network.Beacon(ctx, round)
	if err != nil {
		var tooEarly *TooEarlyError
		if errors.As(err, &tooEarly) {
			return nil, err
		}
		return nil, Errorf(KindNetwork, "tlock: fetch beacon: %w", err)
	}

	ct, err := ibe.ParseCiphertext(variant, s.Body)
	if err != nil {
		return nil, Errorf(KindInvalidCiphertext, "tlock: %w", err)
	}

	message, err := ibe.Decrypt(variant, beacon.Signature, ct)
	if err != nil {
		return nil, Errorf(KindAuthentication, "tlock: ibe decrypt: %w", err)
	}
	return message[:], nil
}
