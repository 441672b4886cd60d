package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"
)

// secretChars contains the characters used in generated admin secrets.
// Only URL- and shell-safe characters are used so the value can be pasted
// into an environment file without quoting.
const secretChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// MinSecretLength is the shortest secret GenerateSecret will produce.
const MinSecretLength = 16

// ErrSecretTooShort is returned when a requested secret is below MinSecretLength.
var ErrSecretTooShort = errors.New("secret length must be at least 16 characters")

// GenerateSecret generates a random secret suitable for ADMIN_PASSWORD.
func GenerateSecret(length int) (string, error) {
	if length < MinSecretLength {
		return "", ErrSecretTooShort
	}
	return generateRandomString(length, secretChars)
}

// generateRandomString generates a random string of the specified length
// using characters from the provided character set. The charset length must
// divide 256 so the mapping stays uniform.
func generateRandomString(length int, charset string) (string, error) {
	result := make([]byte, length)
	charsetLen := len(charset)

	randomBytes := make([]byte, length)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	for i := 0; i < length; i++ {
		result[i] = charset[int(randomBytes[i])%charsetLen]
	}

	return string(result), nil
}
