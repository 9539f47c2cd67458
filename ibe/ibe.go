package ibe

import (
	cryptorand "crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"golang.org/x/crypto/hkdf"
)

// MessageSize is the fixed size of the plaintext IBE encrypts: the AGE file
// key (spec §3 "FileKey").
const MessageSize = 16

const (
	sigmaSize = 16
	vSize     = 16
)

// Ciphertext is the Boneh-Franklin triple (U, V, W) from spec §3
// "IbeCiphertext". U's length depends on the Variant (48 or 96 bytes); V is
// always 16 bytes and W is always 16 bytes, matching MessageSize.
type Ciphertext struct {
	U []byte
	V [vSize]byte
	W [MessageSize]byte
}

// Bytes serializes the ciphertext as U_compressed || V || W.
func (c *Ciphertext) Bytes() []byte {
	out := make([]byte, 0, len(c.U)+vSize+MessageSize)
	out = append(out, c.U...)
	out = append(out, c.V[:]...)
	out = append(out, c.W[:]...)
	return out
}

// ParseCiphertext parses the wire encoding for the given variant, rejecting
// inputs of the wrong length and a U that is not a valid point of the
// variant's master group (spec §7 "InvalidCiphertext").
func ParseCiphertext(v Variant, b []byte) (*Ciphertext, error) {
	want := v.uSize() + vSize + MessageSize
	if len(b) != want {
		return nil, fmt.Errorf("ibe: invalid ciphertext length %d, want %d", len(b), want)
	}
	var err error
	if v.MasterGroup == G1 {
		_, err = decodeG1(b[:v.uSize()])
	} else {
		_, err = decodeG2(b[:v.uSize()])
	}
	if err != nil {
		return nil, fmt.Errorf("ibe: ciphertext U: %w", err)
	}
	ct := &Ciphertext{U: append([]byte(nil), b[:v.uSize()]...)}
	copy(ct.V[:], b[v.uSize():v.uSize()+vSize])
	copy(ct.W[:], b[v.uSize()+vSize:])
	return ct, nil
}

// Encrypt encrypts a 16-byte message to identity under masterPK, following
// the variant's group layout (spec §4.2).
func Encrypt(v Variant, masterPK []byte, identity []byte, message [MessageSize]byte) (*Ciphertext, error) {
	sigma, err := randomBytes(sigmaSize)
	if err != nil {
		return nil, fmt.Errorf("ibe: draw sigma: %w", err)
	}
	r, err := deriveR(sigma, message[:])
	if err != nil {
		return nil, err
	}

	switch v.MasterGroup {
	case G1:
		return encryptG1(v, masterPK, identity, message, sigma, r)
	default:
		return encryptG2(v, masterPK, identity, message, sigma, r)
	}
}

// Decrypt recovers the message given the beacon signature for the round and
// the ciphertext it wraps (spec §4.2).
func Decrypt(v Variant, signature []byte, ct *Ciphertext) ([MessageSize]byte, error) {
	switch v.MasterGroup {
	case G1:
		return decryptG1(v, signature, ct)
	default:
		return decryptG2(v, signature, ct)
	}
}

// --- master_pk, U on G1; identity, signature on G2 ---------------------

func encryptG1(v Variant, masterPK, identity []byte, message [MessageSize]byte, sigma []byte, r *big.Int) (*Ciphertext, error) {
	pk, err := decodeG1(masterPK)
	if err != nil {
		return nil, fmt.Errorf("ibe: master public key: %w", err)
	}
	p, err := hashToG2(identity, v.IdentityDST)
	if err != nil {
		return nil, fmt.Errorf("ibe: hash identity: %w", err)
	}

	u := scalarMulG1(g1Gen, r)
	// gidt = e(masterPK, P)^r = e(masterPK, P*r)
	pr := scalarMulG2(p, r)
	gt, err := pair(pk, pr)
	if err != nil {
		return nil, fmt.Errorf("ibe: pairing: %w", err)
	}

	ub := u.Bytes()
	ct := &Ciphertext{U: ub[:]}
	xorInto(ct.V[:], sigma, h2(gt))
	xorInto(ct.W[:], message[:], h4(sigma))
	return ct, nil
}

func decryptG1(v Variant, signature []byte, ct *Ciphertext) (out [MessageSize]byte, err error) {
	sig, err := decodeG2(signature)
	if err != nil {
		return out, fmt.Errorf("ibe: signature: %w", err)
	}
	u, err := decodeG1(ct.U)
	if err != nil {
		return out, fmt.Errorf("ibe: ciphertext U: %w", err)
	}

	gt, err := pair(u, sig)
	if err != nil {
		return out, fmt.Errorf("ibe: pairing: %w", err)
	}
	sigma := make([]byte, sigmaSize)
	xorInto(sigma, ct.V[:], h2(gt))
	xorInto(out[:], ct.W[:], h4(sigma))

	r, err := deriveR(sigma, out[:])
	if err != nil {
		return out, err
	}
	uCheck := scalarMulG1(g1Gen, r)
	if uCheck.Bytes() != u.Bytes() {
		return [MessageSize]byte{}, fmt.Errorf("ibe: correctness check failed")
	}
	return out, nil
}

// --- master_pk, U on G2; identity, signature on G1 ---------------------

func encryptG2(v Variant, masterPK, identity []byte, message [MessageSize]byte, sigma []byte, r *big.Int) (*Ciphertext, error) {
	pk, err := decodeG2(masterPK)
	if err != nil {
		return nil, fmt.Errorf("ibe: master public key: %w", err)
	}
	p, err := hashToG1(identity, v.IdentityDST)
	if err != nil {
		return nil, fmt.Errorf("ibe: hash identity: %w", err)
	}

	u := scalarMulG2(g2Gen, r)
	pr := scalarMulG1(p, r)
	gt, err := pair(pr, pk)
	if err != nil {
		return nil, fmt.Errorf("ibe: pairing: %w", err)
	}

	ub := u.Bytes()
	ct := &Ciphertext{U: ub[:]}
	xorInto(ct.V[:], sigma, h2(gt))
	xorInto(ct.W[:], message[:], h4(sigma))
	return ct, nil
}

func decryptG2(v Variant, signature []byte, ct *Ciphertext) (out [MessageSize]byte, err error) {
	sig, err := decodeG1(signature)
	if err != nil {
		return out, fmt.Errorf("ibe: signature: %w", err)
	}
	u, err := decodeG2(ct.U)
	if err != nil {
		return out, fmt.Errorf("ibe: ciphertext U: %w", err)
	}

	gt, err := pair(sig, u)
	if err != nil {
		return out, fmt.Errorf("ibe: pairing: %w", err)
	}
	sigma := make([]byte, sigmaSize)
	xorInto(sigma, ct.V[:], h2(gt))
	xorInto(out[:], ct.W[:], h4(sigma))

	r, err := deriveR(sigma, out[:])
	if err != nil {
		return out, err
	}
	uCheck := scalarMulG2(g2Gen, r)
	if uCheck.Bytes() != u.Bytes() {
		return [MessageSize]byte{}, fmt.Errorf("ibe: correctness check failed")
	}
	return out, nil
}

// --- shared hashes -------------------------------------------------------

// h2 hashes a pairing result to a 16-byte mask (spec §4.2 step 6): SHA-256
// over the 576-byte reversed-coefficient Fp12 serialization, truncated to
// the first 16 bytes.
func h2(gt bls12381.GT) [sigmaSize]byte {
	sum := sha256.Sum256(serializeGT(gt))
	var out [sigmaSize]byte
	copy(out[:], sum[:sigmaSize])
	return out
}

// h4 hashes sigma to a 16-byte mask (spec §4.2 step 7).
func h4(sigma []byte) [MessageSize]byte {
	h := sha256.New()
	h.Write(sigma)
	h.Write([]byte("IBE-H4"))
	sum := h.Sum(nil)
	var out [MessageSize]byte
	copy(out[:], sum[:MessageSize])
	return out
}

// deriveR implements H3 (spec §4.2 step 2): HKDF-SHA256(ikm=sigma||message,
// info="IBE-H3") expanded to 32 bytes, parsed big-endian and reduced mod the
// scalar field order q; a zero result re-expands with an incremented salt
// rather than being accepted (spec §4.2 "InvalidCiphertext" on r == 0).
func deriveR(sigma, message []byte) (*big.Int, error) {
	q := scalarOrder()
	salt := []byte{0}
	for attempt := 0; attempt < 256; attempt++ {
		kdf := hkdf.New(sha256.New, append(append([]byte(nil), sigma...), message...), salt, []byte("IBE-H3"))
		buf := make([]byte, 32)
		if _, err := io.ReadFull(kdf, buf); err != nil {
			return nil, fmt.Errorf("ibe: hkdf: %w", err)
		}
		r := new(big.Int).SetBytes(buf)
		r.Mod(r, q)
		if r.Sign() != 0 {
			return r, nil
		}
		salt = []byte{byte(attempt + 1)}
	}
	return nil, fmt.Errorf("ibe: invalid ciphertext: r derivation did not converge")
}

func xorInto(dst, a []byte, b [sigmaSize]byte) {
	for i := range dst {
		dst[i] = a[i] ^ b[i]
	}
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(cryptorand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}
