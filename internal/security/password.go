package security

import "github.com/matthewhartstonge/argon2"

// HashPassword derives an argon2id hash of the password in the standard
// encoded form, including the salt and cost parameters.
func HashPassword(password string) (string, error) {
	argon := argon2.DefaultConfig()

	encoded, err := argon.HashEncoded([]byte(password))
	if err != nil {
		return "", err
	}

	return string(encoded), nil
}

// VerifyPassword compares a plaintext password against an encoded argon2
// hash. The comparison is constant time.
func VerifyPassword(password, encodedHash string) (bool, error) {
	return argon2.VerifyEncoded([]byte(password), []byte(encodedHash))
}
