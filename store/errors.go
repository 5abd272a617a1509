// Copyright (c) 2024 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package store

import (
	"github.com/pkg/errors"
)

// ErrBlockNotFound is returned by GetBlock when no block with the
// requested state hash has been stored.
var ErrBlockNotFound = errors.New("block not found")

// IOError wraps a failure of the underlying datastore. It is the only
// error from this package that is safe to retry: a failed commit
// leaves the datastore exactly as it was before the call.
type IOError struct {
	Op  string
	Err error
}

// Error satisfies the error interface.
func (e *IOError) Error() string {
	return "store " + e.Op + ": " + e.Err.Error()
}

// Unwrap returns the datastore error.
func (e *IOError) Unwrap() error {
	return e.Err
}

// Cause returns the datastore error for errors.Cause.
func (e *IOError) Cause() error {
	return errors.Cause(e.Err)
}

// IsIOError reports whether any error in err's chain is an IOError.
func IsIOError(err error) bool {
	var ioErr *IOError
	return errors.As(err, &ioErr)
}

func ioError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Err: errors.WithStack(err)}
}
