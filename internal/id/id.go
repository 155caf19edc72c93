// Package id generates random identifiers with NanoID.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// lowerAlphabet keeps generated fragments valid inside slugs and object keys.
const lowerAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Generate returns prefix-nanoid, e.g. "ses-V1StGXR8_Z5jdHi6B-myT".
func Generate(prefix string) (string, error) {
	v, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + v, nil
}

// Short returns n random characters from [0-9a-z].
func Short(n int) (string, error) {
	v, err := gonanoid.Generate(lowerAlphabet, n)
	if err != nil {
		return "", fmt.Errorf("generate short id: %w", err)
	}
	return v, nil
}
