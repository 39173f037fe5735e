package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/simplepm/internal/common"
)

const saltLength = 16

// GenerateSalt produces a 16-byte cryptographically random salt,
// base64-encoded for storage and transport.
func GenerateSalt() (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrCryptoFailure, err)
	}
	return base64.StdEncoding.EncodeToString(salt), nil
}

// SaltAndHash concatenates plainText with salt and returns the base64 of the
// SHA-256 digest. Deterministic for identical inputs; used both to create
// and to verify credentials, never to recover them.
func SaltAndHash(plainText, salt string) string {
	sum := sha256.Sum256([]byte(plainText + salt))
	return base64.StdEncoding.EncodeToString(sum[:])
}
