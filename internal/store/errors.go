// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package store

import (
	"errors"

	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

// Sentinel errors for store operations.
// These errors can be checked using errors.Is() for classification.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a conflict occurred (e.g. a duplicate content hash
	// or record id).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input parameters are invalid or malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDatabase indicates a general database error occurred.
	// This is a catch-all for unexpected database failures.
	ErrDatabase = errors.New("database error")
)

// ErrorCode maps the store sentinel in err's chain to an error code.
func ErrorCode(err error) slotherr.Code {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return slotherr.CodeStoreRecordNotFound
	case errors.Is(err, ErrConflict):
		return slotherr.CodeStoreRecordConflict
	case errors.Is(err, ErrInvalidInput):
		return slotherr.CodeStoreRecordInvalid
	default:
		return slotherr.CodeStoreDatabaseFailure
	}
}

// AsCoded wraps a store error with the code matching its sentinel.
func AsCoded(err error, msg string, fields ...slotherr.Attr) error {
	if err == nil {
		return nil
	}
	return slotherr.Wrap(err, ErrorCode(err), msg, fields...)
}
