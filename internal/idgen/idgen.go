// Package idgen provides short, URL-safe unique ID generation backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes identify what an ID names.
const (
	FieldPrefix      = "fld-"
	SectionPrefix    = "sec-"
	SubmissionPrefix = "sub-"
)

// Alphabet defines the character set used for the random portion of the ID.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 10

// Field returns a new form field ID.
func Field() (string, error) {
	return GenerateWithPrefix(FieldPrefix)
}

// Section returns a new form section ID.
func Section() (string, error) {
	return GenerateWithPrefix(SectionPrefix)
}

// Submission returns a new submission ID.
func Submission() (string, error) {
	return GenerateWithPrefix(SubmissionPrefix)
}

// GenerateWithPrefix returns a new unique ID with the given prefix.
func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
