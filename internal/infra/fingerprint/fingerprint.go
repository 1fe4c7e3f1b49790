// Package fingerprint computes content fingerprints. The contract is
// exact-byte: no canonicalization happens here, callers must pass
// byte-identical content for identical fingerprints.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"seald/internal/domain"
)

// Alg names the hash algorithm behind every fingerprint this engine
// produces.
const Alg = "sha256"

// HexLen is the length of a fingerprint in lowercase hex.
const HexLen = sha256.Size * 2

// aggregateDelimiter separates member fingerprints in the aggregate
// preimage. Newline is not in the hex alphabet, so member boundaries are
// unambiguous.
const aggregateDelimiter = "\n"

// Sum returns the fingerprint of data as lowercase hex. Zero-length input
// is rejected: silently hashing the empty string would let a seal of
// nothing look valid.
func Sum(data []byte) (string, error) {
	if len(data) == 0 {
		return "", domain.ErrEmptyInput
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// SumAggregate returns the aggregate fingerprint over an ordered sequence
// of member fingerprints. Order is part of the identity: reordering the
// same members yields a different aggregate.
func SumAggregate(members []string) (string, error) {
	if len(members) == 0 {
		return "", domain.ErrEmptyInput
	}
	for _, m := range members {
		if !Valid(m) {
			return "", domain.ErrInvalidRequest
		}
	}
	preimage := strings.Join(members, aggregateDelimiter)
	sum := sha256.Sum256([]byte(preimage))
	return hex.EncodeToString(sum[:]), nil
}

// Valid reports whether s looks like a fingerprint this engine produced.
func Valid(s string) bool {
	if len(s) != HexLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Engine adapts the package functions to the interface the seal and
// verification workflows take their fingerprinter through.
type Engine struct{}

func (Engine) Sum(data []byte) (string, error) { return Sum(data) }

func (Engine) SumAggregate(members []string) (string, error) { return SumAggregate(members) }
