package security

import "golang.org/x/crypto/bcrypt"

// Cost 10 lands around tens of milliseconds per hash on commodity hardware.
const hashCost = 10

// HashPassword hashes a plain text password with bcrypt. The salt is baked
// into the returned hash.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), hashCost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with a plaintext candidate.
func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
