package dkim

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
)

// ErrDigestTooLarge is returned by a KeyAdapter's Sign or Verify when the
// digest (plus PKCS#1 v1.5 padding) doesn't fit the key's modulus (spec
// §6.3 "DigestTooLargeError").
var ErrDigestTooLarge = errors.New("dkim: digest too large for modulus")

// PrivateKey and PublicKey are opaque handles produced by a KeyAdapter and
// consumed only by that same adapter's Sign/Verify. The core never inspects
// their internals (spec §1: PEM/DER parsing and RSA math are external
// collaborators).
type PrivateKey interface{ privateKey() }
type PublicKey interface{ publicKey() }

// KeyAdapter is the RSA primitive interface of spec §4.I / §6.3. The core
// depends on it rather than on crypto/rsa directly, so tests can substitute
// deterministic fakes.
type KeyAdapter interface {
	ParsePrivateKey(pemBytes []byte) (PrivateKey, error)
	ParsePublicKey(derBytes []byte) (PublicKey, error)
	Sign(h crypto.Hash, digest []byte, priv PrivateKey) ([]byte, error)
	Verify(h crypto.Hash, digest []byte, sig []byte, pub PublicKey) error
}

// StdKeyAdapter is the default KeyAdapter, built on crypto/rsa and
// crypto/x509 — the same stack the reference implementation calls directly.
// See DESIGN.md for why no third-party ASN.1/bignum library replaces it.
type StdKeyAdapter struct{}

type stdPrivateKey struct{ key *rsa.PrivateKey }

func (stdPrivateKey) privateKey() {}

type stdPublicKey struct{ key *rsa.PublicKey }

func (stdPublicKey) publicKey() {}

// ParsePrivateKey parses a PEM-encoded RSA private key, accepting both
// PKCS#1 ("RSA PRIVATE KEY") and PKCS#8 ("PRIVATE KEY") blocks.
func (StdKeyAdapter) ParsePrivateKey(pemBytes []byte) (PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, keyFormatErrorf("no PEM block found")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return stdPrivateKey{key}, nil
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, keyFormatErrorf("unparsable private key: %v", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, keyFormatErrorf("not an RSA private key")
	}
	return stdPrivateKey{rsaKey}, nil
}

// ParsePublicKey parses a DER SubjectPublicKeyInfo public key.
func (StdKeyAdapter) ParsePublicKey(derBytes []byte) (PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(derBytes)
	if err != nil {
		return nil, keyFormatErrorf("unparsable public key: %v", err)
	}
	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, keyFormatErrorf("not an RSA public key")
	}
	return stdPublicKey{rsaKey}, nil
}

// Sign performs RSASSA-PKCS1-v1.5 signing over a pre-computed digest.
func (StdKeyAdapter) Sign(h crypto.Hash, digest []byte, priv PrivateKey) ([]byte, error) {
	key, ok := priv.(stdPrivateKey)
	if !ok {
		return nil, keyFormatErrorf("private key not produced by StdKeyAdapter")
	}
	sig, err := rsa.SignPKCS1v15(rand.Reader, key.key, h, digest)
	if err != nil {
		if err == rsa.ErrMessageTooLong {
			return nil, ErrDigestTooLarge
		}
		return nil, err
	}
	return sig, nil
}

// Verify performs RSASSA-PKCS1-v1.5 verification over a pre-computed
// digest.
func (StdKeyAdapter) Verify(h crypto.Hash, digest []byte, sig []byte, pub PublicKey) error {
	key, ok := pub.(stdPublicKey)
	if !ok {
		return keyFormatErrorf("public key not produced by StdKeyAdapter")
	}
	if err := rsa.VerifyPKCS1v15(key.key, h, digest, sig); err != nil {
		if err == rsa.ErrMessageTooLong {
			return ErrDigestTooLarge
		}
		return err
	}
	return nil
}
