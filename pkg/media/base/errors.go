/*
   MediaDrive - removable media resolution for PC emulators
   Copyright (c) 2025, Alexander Vollschwitz

   This file is part of MediaDrive.

   MediaDrive is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   MediaDrive is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with MediaDrive. If not, see <http://www.gnu.org/licenses/>.
*/

package base

import (
	"errors"
	"fmt"
)

// Kind classifies media layer errors. Callers (UI, emulator core, control API)
// decide how to react based on the kind, never on message text.
type Kind int

const (
	KindUnknown Kind = iota
	// transport or filesystem failure reaching the bytes
	KindIo
	// bytes do not parse as a recognized container or filesystem structure
	KindFormat
	// archive entry uses a codec not available on this build target
	KindUnsupportedCodec
	// archive present but entry is corrupt
	KindArchive
	// mutation attempted on a read-only mount
	KindReadOnly
	// source cannot be written back to the host
	KindReadOnlyMedium
	KindNoSpace
	KindInvalidPath
	KindNotFound
	KindOutOfBounds
	// host-side content changed since last fetch
	KindConflict
	// write-exclusivity violation
	KindAlreadyMounted
	KindCanceled
	KindExists
	KindNotEmpty
)

var kindNames = map[Kind]string{
	KindUnknown:          "unknown",
	KindIo:               "io error",
	KindFormat:           "format error",
	KindUnsupportedCodec: "unsupported codec",
	KindArchive:          "archive error",
	KindReadOnly:         "read only",
	KindReadOnlyMedium:   "read only medium",
	KindNoSpace:          "no space",
	KindInvalidPath:      "invalid path",
	KindNotFound:         "not found",
	KindOutOfBounds:      "out of bounds",
	KindConflict:         "conflict",
	KindAlreadyMounted:   "already mounted",
	KindCanceled:         "canceled",
	KindExists:           "exists",
	KindNotEmpty:         "not empty",
}

//
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Recoverable reports whether an error of this kind leaves an existing mount
// usable, i.e. the caller may simply retry with different input.
func (k Kind) Recoverable() bool {
	switch k {
	case KindReadOnly, KindNoSpace, KindInvalidPath, KindNotFound,
		KindOutOfBounds, KindExists, KindNotEmpty, KindConflict:
		return true
	}
	return false
}

// sentinels for use with errors.Is
var (
	ErrIo               = &Error{Kind: KindIo}
	ErrFormat           = &Error{Kind: KindFormat}
	ErrUnsupportedCodec = &Error{Kind: KindUnsupportedCodec}
	ErrArchive          = &Error{Kind: KindArchive}
	ErrReadOnly         = &Error{Kind: KindReadOnly}
	ErrReadOnlyMedium   = &Error{Kind: KindReadOnlyMedium}
	ErrNoSpace          = &Error{Kind: KindNoSpace}
	ErrInvalidPath      = &Error{Kind: KindInvalidPath}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrOutOfBounds      = &Error{Kind: KindOutOfBounds}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrAlreadyMounted   = &Error{Kind: KindAlreadyMounted}
	ErrCanceled         = &Error{Kind: KindCanceled}
	ErrExists           = &Error{Kind: KindExists}
	ErrNotEmpty         = &Error{Kind: KindNotEmpty}
)

// Error is the error type returned at all public boundaries of the media
// layer. Op names the stage or operation that failed (e.g. "fetch",
// "classify", "write"), Path the affected source, entry, or file if any.
type Error struct {
	Kind  Kind
	Op    string
	Path  string
	Cause error
}

//
func (e *Error) Error() string {

	msg := e.Kind.String()

	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s '%s'", msg, e.Path)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}

	return msg
}

//
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so sentinels like ErrNoSpace can be
// used with errors.Is regardless of Op, Path, and Cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

//
func NewError(k Kind, op, path string, cause error) *Error {
	return &Error{Kind: k, Op: op, Path: path, Cause: cause}
}

//
func Errorf(k Kind, op, path, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Op: op, Path: path, Cause: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost *Error in err's chain, KindUnknown
// if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Wrap returns err unchanged if it already carries a kind, otherwise wraps it
// into an *Error of kind k.
func Wrap(k Kind, op, path string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	return NewError(k, op, path, err)
}
