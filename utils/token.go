package utils

import "github.com/google/uuid"

// CreateToken returns an opaque random token built from two v4 UUIDs.
func CreateToken() (string, error) {
	first, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}

	second, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}

	return first.String() + second.String(), nil
}
