// Package passwords implements the adaptive password hashing used for user
// credentials and for stored refresh-token secrets.
//
// Hashes are bcrypt. Two version tags circulate in stored data: "$2y$" (what
// this package writes) and "$2b$" (written by an older system). Both encode
// the identical algorithm, so verification rewrites the tag to the one the
// Go implementation understands before comparing.
package passwords

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the work factor for newly written hashes.
const DefaultCost = 12

// MaxPlaintextLen is the longest input bcrypt consumes in full.
const MaxPlaintextLen = 72

const (
	tagWritten = "$2y$"
	tagLegacy  = "$2b$"
	tagNative  = "$2a$"
	tagLen     = len(tagWritten)
)

// Hasher produces and checks one-way password hashes.
type Hasher interface {
	// Hash returns a new hash of plaintext.
	Hash(plaintext string) (string, error)
	// Verify reports whether plaintext matches hash. It never fails loudly:
	// malformed hashes and mismatches both yield false.
	Verify(plaintext, hash string) bool
}

// BcryptHasher is a Hasher backed by golang.org/x/crypto/bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher with the given cost.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

// Hash returns a "$2y$"-tagged bcrypt hash of plaintext.
// Plaintexts longer than 72 bytes are rejected by bcrypt.
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return retag(string(b), tagWritten), nil
}

// Verify accepts hashes tagged "$2y$", "$2b$" or "$2a$".
//
// A plaintext longer than MaxPlaintextLen never matches: bcrypt would only
// compare its prefix. The comparison still runs on that prefix so the cost
// of a rejection does not depend on the input length.
func (h *BcryptHasher) Verify(plaintext, hash string) bool {
	if !hasKnownTag(hash) {
		return false
	}

	p := []byte(plaintext)
	tooLong := len(p) > MaxPlaintextLen
	if tooLong {
		p = p[:MaxPlaintextLen]
	}

	ok := bcrypt.CompareHashAndPassword([]byte(retag(hash, tagNative)), p) == nil
	return ok && !tooLong
}

func hasKnownTag(hash string) bool {
	return strings.HasPrefix(hash, tagWritten) ||
		strings.HasPrefix(hash, tagLegacy) ||
		strings.HasPrefix(hash, tagNative)
}

// retag swaps the 4-byte version prefix; the caller guarantees one is present.
func retag(hash, tag string) string {
	if len(hash) < tagLen {
		return hash
	}
	return tag + hash[tagLen:]
}
