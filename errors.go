package tlock

import "fmt"

// Kind classifies a tlock error per the taxonomy in the spec: callers can
// switch on it without string-matching error messages.
type Kind int

const (
	// KindInternal covers counter overflow, CSPRNG failure, and other
	// conditions that should never occur given correct inputs.
	KindInternal Kind = iota
	// KindInputValidation covers malformed headers, invalid stanza args,
	// non-printable characters, and bad base64.
	KindInputValidation
	// KindProtocolError covers a stanza of the wrong type or count, or a
	// version line mismatch.
	KindProtocolError
	// KindUnsupportedScheme covers an unrecognized chain scheme_id.
	KindUnsupportedScheme
	// KindTooEarly covers decryption attempted before the round's beacon
	// has been published.
	KindTooEarly
	// KindNetwork covers any failure surfaced by the beacon client.
	KindNetwork
	// KindAuthentication covers a header MAC mismatch, a STREAM chunk tag
	// failure, or an IBE correctness-check failure.
	KindAuthentication
	// KindInvalidCiphertext covers a non-subgroup point or a wrong-length
	// IBE body for the selected scheme.
	KindInvalidCiphertext
)

func (k Kind) String() string {
	switch k {
	case KindInputValidation:
		return "input validation"
	case KindProtocolError:
		return "protocol error"
	case KindUnsupportedScheme:
		return "unsupported scheme"
	case KindTooEarly:
		return "too early"
	case KindNetwork:
		return "network"
	case KindAuthentication:
		return "authentication"
	case KindInvalidCiphertext:
		return "invalid ciphertext"
	default:
		return "internal"
	}
}

// Error is the error type the tlock package returns from Encrypt, Decrypt
// and its Recipient/Identity implementations. The ibe, format, stream and
// armor packages return plain errors, which tlock wraps with a Kind. Wrap
// with Errorf so Kind and the underlying cause both survive
// errors.Is/errors.As.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// Errorf constructs an *Error of the given kind. The format/args build the
// message exactly as fmt.Errorf would; a trailing %w verb, if present, is
// also captured as the wrapped cause.
func Errorf(kind Kind, format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	return &Error{Kind: kind, msg: err.Error(), err: unwrapOne(err)}
}

func unwrapOne(err error) error {
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		return u.Unwrap()
	}
	return nil
}

// TooEarlyError is returned by decrypt when the beacon for a round has not
// yet been published. Round and UnlockAt let the caller decide whether to
// retry later without parsing the error string.
type TooEarlyError struct {
	Round    uint64
	UnlockAt int64
}

func (e *TooEarlyError) Error() string {
	return fmt.Sprintf("round %d not yet available, unlocks at %d", e.Round, e.UnlockAt)
}

// Kind reports KindTooEarly, for callers that classify errors through a
// Kind() method (*Error carries its kind in a field instead). The canonical
// check is var e *tlock.TooEarlyError; errors.As(err, &e).
func (e *TooEarlyError) Kind() Kind { return KindTooEarly }
