package tlock

// noopType is the stanza type for the no-op recipient (spec §9 "two fixed
// stanza interpreters"): it stores the file key directly in the stanza body,
// with no encryption of its own. It exists for tests and for composing tlock
// ciphertexts with a second, always-available recipient during development;
// it provides no confidentiality and is not meant for production use.
const noopType = "no-op"

// NoopRecipient wraps a file key by writing it unencrypted into a "no-op"
// stanza body.
type NoopRecipient struct{}

// Wrap implements Recipient.
func (NoopRecipient) Wrap(fileKey []byte) ([]*Stanza, error) {
	body := append([]byte(nil), fileKey...)
	return []*Stanza{{Type: noopType, Body: body}}, nil
}

// NoopIdentity unwraps a file key from a "no-op" stanza.
type NoopIdentity struct{}

// Unwrap implements Identity.
func (NoopIdentity) Unwrap(stanzas []*Stanza) ([]byte, error) {
	for _, s := range stanzas {
		if s.Type != noopType {
			continue
		}
		if len(s.Args) != 0 {
			return nil, Errorf(KindProtocolError, "tlock: no-op stanza takes no arguments")
		}
		return append([]byte(nil), s.Body...), nil
	}
	return nil, ErrIncorrectIdentity
}
