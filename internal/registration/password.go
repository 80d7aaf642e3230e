package registration

import "errors"

// PasswordHasher turns a plaintext password into its stored one-way form.
type PasswordHasher interface {
	Hash(plain []byte) (string, error)
}

// PasswordHasherFunc adapts a function to PasswordHasher.
type PasswordHasherFunc func(plain []byte) (string, error)

func (f PasswordHasherFunc) Hash(plain []byte) (string, error) { return f(plain) }

// PasswordEntry holds the plaintext password between request binding and hashing.
// It is never persisted or serialised.
type PasswordEntry struct {
	plain []byte
}

// NewPasswordEntry copies the supplied password into a new entry.
func NewPasswordEntry(password string) *PasswordEntry {
	return &PasswordEntry{plain: []byte(password)}
}

// Len returns the number of bytes still held by the entry.
func (e *PasswordEntry) Len() int {
	if e == nil {
		return 0
	}
	return len(e.plain)
}

// Cleared reports whether the plaintext has been wiped.
func (e *PasswordEntry) Cleared() bool {
	return e == nil || e.plain == nil
}

// Clear zeroes the plaintext.
func (e *PasswordEntry) Clear() {
	if e == nil {
		return
	}
	for i := range e.plain {
		e.plain[i] = 0
	}
	e.plain = nil
}

// EncryptAndClear hashes the plaintext and wipes it, whether or not hashing succeeded.
func (e *PasswordEntry) EncryptAndClear(hasher PasswordHasher) (string, error) {
	if e.Cleared() {
		return "", errors.New("password entry already consumed")
	}
	defer e.Clear()
	return hasher.Hash(e.plain)
}
