package ibe

import bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"

// serializeGT encodes a GT (Fp12) element using the reversed,
// top-coefficient-first ordering spec §4.1 requires for the IBE pairing
// hash: c1||c0 at the Fp12 level, c2||c1||c0 at the Fp6 level, c1||c0 at the
// Fp2 level, each Fp element 48 bytes big-endian. 576 bytes total.
//
// This ordering is a protocol requirement, not gnark-crypto's native
// marshaling order, so it is implemented by hand against GT's exported
// tower-of-extensions fields rather than via GT.Bytes().
func serializeGT(gt bls12381.GT) []byte {
	out := make([]byte, 0, 576)
	out = append(out, serializeE6(gt.C1)...)
	out = append(out, serializeE6(gt.C0)...)
	return out
}

func serializeE6(e bls12381.E6) []byte {
	out := make([]byte, 0, 288)
	out = append(out, serializeE2(e.B2)...)
	out = append(out, serializeE2(e.B1)...)
	out = append(out, serializeE2(e.B0)...)
	return out
}

func serializeE2(e bls12381.E2) []byte {
	a1 := e.A1.Bytes()
	a0 := e.A0.Bytes()
	out := make([]byte, 0, 96)
	out = append(out, a1[:]...)
	out = append(out, a0[:]...)
	return out
}
