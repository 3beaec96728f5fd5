// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package packet

import "fmt"

// Kind discriminates the different types of Packets.
type Kind uint64

const (
	// KindUnknown is the zero value and is never valid on the wire.
	KindUnknown Kind = iota

	// KindMessage is a plain, uncorrelated message.
	KindMessage

	// KindRequest asks the recipient for a Result or an Error with the same ID.
	KindRequest

	// KindResult answers a Request.
	KindResult

	// KindError answers a Request which could not be processed.
	KindError
)

var kindNames = map[Kind]string{
	KindMessage: "message",
	KindRequest: "request",
	KindResult:  "result",
	KindError:   "error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind returns the Kind for its name, as returned by String.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown packet kind %q", name)
}

// IsValid checks if this Kind is one of the defined Kinds.
func (k Kind) IsValid() bool {
	_, ok := kindNames[k]
	return ok
}

// IsRequestReply is true for the request/reply family: Request, Result and Error.
func (k Kind) IsRequestReply() bool {
	return k == KindRequest || k.IsReply()
}

// IsReply is true for Kinds which answer a Request.
func (k Kind) IsReply() bool {
	return k == KindResult || k == KindError
}
