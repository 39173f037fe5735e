// Package cryptox implements the transport-boundary cryptography of the
// password manager: RSA encryption for credential fields crossing the
// network, and salted one-way hashing for credentials at rest.
//
// Public keys travel as base64-encoded PKIX (DER) blobs, ciphertexts as
// base64 strings, so every value is safe to carry in an HTTP header.
package cryptox

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/simplepm/internal/common"
	"github.com/google/uuid"
)

// KeyPair is the process-wide RSA key pair. It is generated once at startup
// and never persisted: ciphertexts produced for a previous process instance
// are permanently undecryptable. The epoch identifier lets clients detect a
// key change without relying on process identity.
type KeyPair struct {
	private   *rsa.PrivateKey
	publicB64 string
	epoch     string
	createdAt time.Time
}

// GenerateKeyPair creates a fresh RSA key pair of the given size and stamps
// it with a new epoch identifier.
func GenerateKeyPair(bits int) (*KeyPair, error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCryptoFailure, err)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCryptoFailure, err)
	}
	return &KeyPair{
		private:   key,
		publicB64: base64.StdEncoding.EncodeToString(der),
		epoch:     hexID(),
		createdAt: time.Now(),
	}, nil
}

// PublicKey returns the transport form of the public key.
func (kp *KeyPair) PublicKey() string { return kp.publicB64 }

// Epoch identifies this key pair's lifetime. A new epoch means previously
// fetched public keys are stale and in-flight ciphertexts are void.
func (kp *KeyPair) Epoch() string { return kp.epoch }

// CreatedAt reports when the pair was generated.
func (kp *KeyPair) CreatedAt() time.Time { return kp.createdAt }

// Decrypt decodes cipherText from base64, decrypts it under the private key
// and returns the plaintext. A malformed encoded form yields
// ErrInvalidCiphertext; a wrong key and a corrupted payload are both
// reported as ErrCryptoFailure and cannot be told apart.
func (kp *KeyPair) Decrypt(cipherText string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(cipherText)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvalidCiphertext, err)
	}
	plain, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, kp.private, raw, nil)
	if err != nil {
		return "", common.ErrCryptoFailure
	}
	if !utf8.Valid(plain) {
		return "", common.ErrDecodingError
	}
	return string(plain), nil
}

// Encrypt encrypts plainText under a base64/PKIX public key and returns the
// base64 ciphertext. The OAEP padding bounds plaintext length by key size;
// oversized input is reported as ErrCryptoFailure.
func Encrypt(plainText, publicKey string) (string, error) {
	pub, err := parsePublicKey(publicKey)
	if err != nil {
		return "", err
	}
	cipher, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, []byte(plainText), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrCryptoFailure, err)
	}
	return base64.StdEncoding.EncodeToString(cipher), nil
}

func parsePublicKey(publicKey string) (*rsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidKey, err)
	}
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidKey, err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", common.ErrInvalidKey)
	}
	return pub, nil
}

// hexID returns a 32-character lowercase hex identifier. Used for account
// IDs, one-time operation codes and key epochs.
func hexID() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:])
}

// NewID exposes hexID for callers outside the package.
func NewID() string { return hexID() }
