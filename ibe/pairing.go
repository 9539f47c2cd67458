// Package ibe implements the Boneh-Franklin identity-based encryption core
// (spec §4.2) over BLS12-381 (spec §4.1), wired onto
// github.com/consensys/gnark-crypto's bls12-381 curve implementation rather
// than hand-rolled field/pairing arithmetic.
package ibe

import (
	"crypto/rand"
	"fmt"
	"math/big"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// Domain-separation tags for RFC 9380 hash-to-curve, as required by spec
// §4.1 to match the external beacon network bit-for-bit.
var (
	dstG1 = []byte("BLS_SIG_BLS12381G1_XMD:SHA-256_SSWU_RO_NUL_")
	dstG2 = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_NUL_")
	// dstG1Legacy is the DST bls-unchained-on-g1 uses to hash identities
	// onto G1: the G2 DST string, reused by mistake in the scheme's
	// original definition. Decrypt must still accept it (spec §4.2).
	dstG1Legacy = dstG2
)

var (
	g1Gen bls12381.G1Affine
	g2Gen bls12381.G2Affine
)

func init() {
	_, _, g1Gen, g2Gen = bls12381.Generators()
}

// scalarOrder returns the prime order q of G1/G2/GT's scalar field.
func scalarOrder() *big.Int {
	return fr.Modulus()
}

// randomScalar draws a uniformly random non-zero scalar mod q.
func randomScalar() (*big.Int, error) {
	q := scalarOrder()
	for {
		s, err := rand.Int(rand.Reader, q)
		if err != nil {
			return nil, err
		}
		if s.Sign() != 0 {
			return s, nil
		}
	}
}

// decodeG1 parses a 48-byte compressed G1 point, rejecting points not on the
// curve or not in the prime-order subgroup (spec §4.2 "invalid point").
func decodeG1(b []byte) (bls12381.G1Affine, error) {
	var p bls12381.G1Affine
	if len(b) != 48 {
		return p, fmt.Errorf("ibe: invalid G1 encoding length %d", len(b))
	}
	if _, err := p.SetBytes(b); err != nil {
		return p, fmt.Errorf("ibe: invalid G1 point: %w", err)
	}
	if !p.IsInSubGroup() {
		return p, fmt.Errorf("ibe: G1 point not in prime-order subgroup")
	}
	return p, nil
}

// decodeG2 parses a 96-byte compressed G2 point with the same validation as
// decodeG1.
func decodeG2(b []byte) (bls12381.G2Affine, error) {
	var p bls12381.G2Affine
	if len(b) != 96 {
		return p, fmt.Errorf("ibe: invalid G2 encoding length %d", len(b))
	}
	if _, err := p.SetBytes(b); err != nil {
		return p, fmt.Errorf("ibe: invalid G2 point: %w", err)
	}
	if !p.IsInSubGroup() {
		return p, fmt.Errorf("ibe: G2 point not in prime-order subgroup")
	}
	return p, nil
}

func scalarMulG1(p bls12381.G1Affine, s *big.Int) bls12381.G1Affine {
	var out bls12381.G1Affine
	out.ScalarMultiplication(&p, s)
	return out
}

func scalarMulG2(p bls12381.G2Affine, s *big.Int) bls12381.G2Affine {
	var out bls12381.G2Affine
	out.ScalarMultiplication(&p, s)
	return out
}

func hashToG1(msg, dst []byte) (bls12381.G1Affine, error) {
	return bls12381.HashToG1(msg, dst)
}

func hashToG2(msg, dst []byte) (bls12381.G2Affine, error) {
	return bls12381.HashToG2(msg, dst)
}

func pair(a bls12381.G1Affine, b bls12381.G2Affine) (bls12381.GT, error) {
	return bls12381.Pair([]bls12381.G1Affine{a}, []bls12381.G2Affine{b})
}
