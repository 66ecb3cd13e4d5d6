package crypto

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes plaintext using bcrypt.
func HashPassword(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
}

// ComparePassword compares plaintext to hashed secret.
func ComparePassword(hash []byte, plain string) error {
	return bcrypt.CompareHashAndPassword(hash, []byte(plain))
}

// VerifyPassword reports whether plain matches hash. Malformed digests yield false.
func VerifyPassword(hash []byte, plain string) bool {
	if len(hash) == 0 {
		return false
	}
	return ComparePassword(hash, plain) == nil
}
