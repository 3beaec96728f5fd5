// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package m2m

import (
	"fmt"
	"io"

	"github.com/dtn7/cboring"

	"github.com/dtn7/imoperator-go/pkg/packet"
)

// Condition classifies an Error, following the names of XMPP's stanza errors.
type Condition string

const (
	BadRequest            Condition = "bad-request"
	FeatureNotImplemented Condition = "feature-not-implemented"
	Forbidden             Condition = "forbidden"
	InternalServerError   Condition = "internal-server-error"
	ItemNotFound          Condition = "item-not-found"
	NotAuthorized         Condition = "not-authorized"
	RecipientUnavailable  Condition = "recipient-unavailable"
	RemoteServerTimeout   Condition = "remote-server-timeout"
	ServiceUnavailable    Condition = "service-unavailable"
)

// Error is the payload of a Packet of packet.KindError.
type Error struct {
	Condition Condition
	Message   string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Condition)
	}
	return fmt.Sprintf("%s: %s", e.Condition, e.Message)
}

func (e *Error) PayloadType() string {
	return "m2m.error"
}

func (e *Error) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}
	if err := cboring.WriteTextString(string(e.Condition), w); err != nil {
		return err
	}
	return cboring.WriteTextString(e.Message, w)
}

func (e *Error) UnmarshalCbor(r io.Reader) error {
	if n, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if n != 2 {
		return fmt.Errorf("Error: expected array of 2 elements, got %d", n)
	}

	if cond, err := cboring.ReadTextString(r); err != nil {
		return err
	} else {
		e.Condition = Condition(cond)
	}

	if msg, err := cboring.ReadTextString(r); err != nil {
		return err
	} else {
		e.Message = msg
	}
	return nil
}

// NewErrorReply creates a Packet of packet.KindError answering the request.
func NewErrorReply(req packet.Packet, cond Condition, msg string) (packet.Packet, error) {
	reply := req.Reply(packet.KindError)
	err := registry.Attach(&reply, &Error{Condition: cond, Message: msg})
	return reply, err
}

// ReplyError extracts the Error from a Packet of packet.KindError. For other Kinds, nil is returned.
func ReplyError(p packet.Packet) error {
	if p.Kind != packet.KindError {
		return nil
	}

	payload, err := registry.Extract(p)
	if err != nil {
		return &Error{Condition: InternalServerError, Message: fmt.Sprintf("unreadable error reply: %v", err)}
	}

	if e, ok := payload.(*Error); ok {
		return e
	}
	return &Error{Condition: InternalServerError, Message: fmt.Sprintf("error reply carries %s", p.Type)}
}
