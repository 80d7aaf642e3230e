package crypto

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// Alphanumeric is the character set used for URL-safe opaque tokens.
const Alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// HashPassword returns a bcrypt hash of the supplied password.
func HashPassword(password []byte, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword(password, cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares the hashed password with the plaintext candidate.
func VerifyPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// RandomString draws length characters uniformly from alphabet using the supplied
// entropy source (crypto/rand when nil).
func RandomString(r io.Reader, length int, alphabet string) (string, error) {
	if length <= 0 {
		return "", errors.New("crypto: length must be positive")
	}
	if len(alphabet) < 2 {
		return "", errors.New("crypto: alphabet too small")
	}
	if r == nil {
		r = rand.Reader
	}

	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(r, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}
