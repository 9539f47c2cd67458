package ibe

import "math/big"

// GenerateMasterKey draws a fresh master secret scalar and returns it
// alongside the corresponding public key point, encoded for v's master
// group. This has no role in the production decrypt path — the master
// secret is the beacon network's, never this library's — but it gives
// tests and single-node/offline setups a way to stand up a self-contained
// chain without a live network.
func GenerateMasterKey(v Variant) (secret *big.Int, publicKey []byte, err error) {
	sk, err := randomScalar()
	if err != nil {
		return nil, nil, err
	}
	if v.MasterGroup == G1 {
		pk := scalarMulG1(g1Gen, sk)
		b := pk.Bytes()
		return sk, b[:], nil
	}
	pk := scalarMulG2(g2Gen, sk)
	b := pk.Bytes()
	return sk, b[:], nil
}

// Sign computes the beacon signature for identity under secret: the
// identity hashed onto the group opposite v.MasterGroup, multiplied by
// secret. This is exactly what a drand-style beacon node does each round;
// it is exposed here so a fixed/offline chain can be exercised end to end
// without a live beacon to poll.
func Sign(v Variant, secret *big.Int, identity []byte) ([]byte, error) {
	if v.MasterGroup == G1 {
		p, err := hashToG2(identity, v.IdentityDST)
		if err != nil {
			return nil, err
		}
		sig := scalarMulG2(p, secret)
		b := sig.Bytes()
		return b[:], nil
	}
	p, err := hashToG1(identity, v.IdentityDST)
	if err != nil {
		return nil, err
	}
	sig := scalarMulG1(p, secret)
	b := sig.Bytes()
	return b[:], nil
}
