// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package packet

import (
	"fmt"
	"io"
	"strings"

	"github.com/dtn7/cboring"
)

// Address identifies an agent in the form node@domain/resource. Only the domain part is mandatory.
type Address struct {
	Node     string
	Domain   string
	Resource string
}

// ParseAddress creates an Address from its string representation. Node and domain are case-insensitive and will be
// lower-cased; the resource is kept as it is.
func ParseAddress(s string) (addr Address, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		err = fmt.Errorf("address is empty")
		return
	}

	rest := s
	if i := strings.Index(rest, "/"); i >= 0 {
		addr.Resource = rest[i+1:]
		rest = rest[:i]

		if addr.Resource == "" {
			err = fmt.Errorf("address %q has an empty resource", s)
			return
		}
	}

	if i := strings.Index(rest, "@"); i >= 0 {
		addr.Node = strings.ToLower(rest[:i])
		rest = rest[i+1:]

		if addr.Node == "" {
			err = fmt.Errorf("address %q has an empty node", s)
			return
		}
	}

	addr.Domain = strings.ToLower(rest)
	if addr.Domain == "" {
		err = fmt.Errorf("address %q has no domain", s)
	} else if strings.ContainsAny(addr.Domain, "@ ") || strings.ContainsAny(addr.Node, "@ ") {
		err = fmt.Errorf("address %q contains illegal characters", s)
	}
	return
}

// MustParseAddress is like ParseAddress, but panics on an error.
func MustParseAddress(s string) Address {
	addr, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

func (addr Address) String() string {
	var b strings.Builder
	if addr.Node != "" {
		b.WriteString(addr.Node)
		b.WriteByte('@')
	}
	b.WriteString(addr.Domain)
	if addr.Resource != "" {
		b.WriteByte('/')
		b.WriteString(addr.Resource)
	}
	return b.String()
}

// Bare returns this Address without its resource.
func (addr Address) Bare() Address {
	return Address{Node: addr.Node, Domain: addr.Domain}
}

// IsZero checks if this Address is unset.
func (addr Address) IsZero() bool {
	return addr == Address{}
}

// Equal checks if both Addresses are identical, including their resource.
func (addr Address) Equal(other Address) bool {
	return addr == other
}

// MarshalCbor writes this Address as a CBOR text string. An unset Address becomes an empty string.
func (addr *Address) MarshalCbor(w io.Writer) error {
	return cboring.WriteTextString(addr.String(), w)
}

// UnmarshalCbor reads an Address from a CBOR text string.
func (addr *Address) UnmarshalCbor(r io.Reader) error {
	s, err := cboring.ReadTextString(r)
	if err != nil {
		return err
	}

	if s == "" {
		*addr = Address{}
		return nil
	}

	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*addr = parsed
	return nil
}
