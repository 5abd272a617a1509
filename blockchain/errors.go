// Copyright (c) 2022 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package blockchain

import (
	"errors"
	"fmt"
	"github.com/project-illium/idxd/types"
)

// AssertError identifies an error that indicates an internal code consistency
// issue and should be treated as a critical and unrecoverable error.
type AssertError string

// Error returns the assertion error as a human-readable string and satisfies
// the error interface.
func (e AssertError) Error() string {
	return "assertion failed: " + string(e)
}

type ErrorCode int

const (
	// ErrMissingParent indicates the block's parent is not yet known.
	// The block can be processed again once the parent is connected.
	ErrMissingParent ErrorCode = iota
	ErrInvalidHeight
	ErrInvalidGenesis
	ErrInvalidBlock
	ErrUnknownBlock
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrMissingParent:  "ErrMissingParent",
	ErrInvalidHeight:  "ErrInvalidHeight",
	ErrInvalidGenesis: "ErrInvalidGenesis",
	ErrInvalidBlock:   "ErrInvalidBlock",
	ErrUnknownBlock:   "ErrUnknownBlock",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// RuleError identifies a block that cannot be connected to the
// witness tree. The caller can use type assertions to determine
// if a failure was specifically due to a rule violation and access
// the ErrorCode field to ascertain the specific reason.
type RuleError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human-readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// ruleError creates an RuleError given a set of arguments.
func ruleError(c ErrorCode, desc string) RuleError {
	return RuleError{ErrorCode: c, Description: desc}
}

// ErrorIs reports whether err is, or wraps, a RuleError with the
// given code.
func ErrorIs(err error, code ErrorCode) bool {
	var ruleErr RuleError
	if errors.As(err, &ruleErr) && ruleErr.ErrorCode == code {
		return true
	}
	return false
}

// FinalityViolationError is returned when connecting a block would
// require a canonical block to become orphaned. This means a reorg
// deeper than the canonical threshold, or an internal bug. It is
// never resolved automatically.
type FinalityViolationError struct {
	// StateHash and Height identify the canonical block that would
	// have been orphaned.
	StateHash types.ID
	Height    uint32
	// Tip is the best tip that required the change.
	Tip types.ID
}

// Error satisfies the error interface.
func (e FinalityViolationError) Error() string {
	return fmt.Sprintf("finality violation: canonical block %s at height %d would be orphaned by tip %s",
		e.StateHash, e.Height, e.Tip)
}

// IsFinalityViolation reports whether err is, or wraps, a
// FinalityViolationError.
func IsFinalityViolation(err error) bool {
	var fv FinalityViolationError
	return errors.As(err, &fv)
}
