// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package unfinalized

import (
	"errors"
	"fmt"
)

// ErrDecoding is returned when a journal record or the last-finalized
// pointer cannot be decoded. It is always checked with errors.Is.
var ErrDecoding = errors.New("unfinalized: malformed journal record")

// DbError wraps a failure returned by the supplied MetaDb during
// construction. Unwrap exposes the underlying error for errors.As/Is.
type DbError struct {
	Err error
}

func (e *DbError) Error() string { return fmt.Sprintf("unfinalized: meta store: %v", e.Err) }
func (e *DbError) Unwrap() error { return e.Err }

// ProgrammerError marks a violated precondition on Insert or Finalize.
// These are not recoverable runtime conditions; the contract is to
// abort loudly, so every constructor of this error is raised via panic.
type ProgrammerError struct {
	msg string
}

func (e *ProgrammerError) Error() string { return e.msg }

// fail panics with a *ProgrammerError. It is used for preconditions
// that must never be violated by a correct caller, where returning an
// error would only let the violation propagate further before surfacing.
func fail(format string, args ...any) {
	panic(&ProgrammerError{msg: fmt.Sprintf(format, args...)})
}
