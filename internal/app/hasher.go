package app

import "golang.org/x/crypto/bcrypt"

// Verifier is the opaque one-way hash/verify capability guarding
// password-protected rooms. Compare is computationally expensive by
// design and must never run under a room's lock.
type Verifier interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// BcryptVerifier hashes with bcrypt at a fixed cost.
type BcryptVerifier struct {
	Cost int
}

func NewBcryptVerifier() BcryptVerifier {
	return BcryptVerifier{Cost: 10}
}

func (v BcryptVerifier) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), v.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (v BcryptVerifier) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
