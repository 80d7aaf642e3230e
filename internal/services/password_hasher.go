package services

import "github.com/charlesng35/signup/pkg/crypto"

// BcryptHasher hashes registration passwords with bcrypt. A zero Cost uses the library default.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(plain []byte) (string, error) {
	return crypto.HashPassword(plain, h.Cost)
}
