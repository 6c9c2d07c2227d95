// Package ident generates identifiers for new records.
package ident

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// New returns a time-ordered identifier: a version 7 UUID whose leading 48
// bits are the Unix millisecond clock and whose remaining bits are random.
// Successive calls within the process never sort backwards.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fallback()
	}
	return id.String()
}

func fallback() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}
