// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

// Package fingerprint derives content digests used to detect duplicate
// uploads. Equal bytes always produce equal fingerprints; the digest is a
// dedup key, not an integrity or authenticity guarantee.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// Prefix tags fingerprints with the digest algorithm.
const Prefix = "sha256:"

// Sum returns the fingerprint of b.
func Sum(b []byte) string {
	sum := sha256.Sum256(b)
	return Prefix + hex.EncodeToString(sum[:])
}

// Reader streams r through the digest and returns the fingerprint and the
// number of bytes read.
func Reader(r io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, fmt.Errorf("hashing content: %w", err)
	}
	return Prefix + hex.EncodeToString(h.Sum(nil)), n, nil
}

// Valid reports whether s looks like a fingerprint produced by this package.
func Valid(s string) bool {
	hexPart, ok := strings.CutPrefix(s, Prefix)
	if !ok || len(hexPart) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(hexPart)
	return err == nil
}

// Short returns an abbreviated form for logs.
func Short(s string) string {
	hexPart := strings.TrimPrefix(s, Prefix)
	if len(hexPart) > 12 {
		return hexPart[:12]
	}
	return hexPart
}
