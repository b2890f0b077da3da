package auth

import "golang.org/x/crypto/bcrypt"

// Cost 12 keeps a hash around a quarter second on current hardware, slow
// enough for account passwords without stalling registration.
const bcryptCost = 12

// HashPassword hashes an account password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ComparePassword reports whether password matches the stored hash.
func ComparePassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
