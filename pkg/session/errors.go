// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrUnavailable indicates a failed presence check; nothing was sent.
	ErrUnavailable = errors.New("recipient is unavailable")

	// ErrTimeout indicates that no reply arrived in time.
	ErrTimeout = errors.New("no reply within deadline")

	// ErrCancelled indicates that a Call was aborted, either by closing the Session or by its context.
	ErrCancelled = errors.New("call was cancelled")

	// ErrTransportFailure indicates an error of the underlying Connection.
	ErrTransportFailure = errors.New("transport failure")

	// ErrMalformedReply indicates a Packet matching a Call's ID and sender, but not being a reply.
	ErrMalformedReply = errors.New("malformed reply")

	// ErrDuplicateID indicates a Call whose ID is already used by another outstanding Call.
	ErrDuplicateID = errors.New("duplicate call ID")

	// ErrInvalidPacket indicates a Packet which failed its validity check.
	ErrInvalidPacket = errors.New("invalid packet")

	// ErrClosed indicates an operation on a closed Session.
	ErrClosed = errors.New("session is closed")
)

// sessionError attaches one of the sentinel errors as its kind to an underlying cause.
type sessionError struct {
	kind  error
	cause error
}

// newError creates an error of the given kind. errors.Is matches both the kind and the cause.
func newError(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return &sessionError{kind: kind, cause: cause}
}

func (e *sessionError) Error() string {
	return fmt.Sprintf("%v: %v", e.kind, e.cause)
}

func (e *sessionError) Is(target error) bool {
	return target == e.kind
}

func (e *sessionError) Unwrap() error {
	return e.cause
}

// Cause returns the underlying error, as used by github.com/pkg/errors.
func (e *sessionError) Cause() error {
	return e.cause
}
