package models

import "encoding/base64"

// EncodePassword applies the reversible storage encoding to a plain password.
// This is not a hash; stored values can be decoded back.
func EncodePassword(plain string) string {
	return base64.StdEncoding.EncodeToString([]byte(plain))
}

// DecodePassword reverses EncodePassword.
func DecodePassword(encoded string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
