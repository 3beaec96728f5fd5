// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package m2m

import (
	"fmt"
	"io"

	"github.com/dtn7/cboring"
	"github.com/hashicorp/go-multierror"

	"github.com/dtn7/imoperator-go/pkg/codec"
)

// Text is a plain text payload, e.g., a chat message's body.
type Text struct {
	Body string
}

func (t *Text) PayloadType() string {
	return "m2m.text"
}

func (t *Text) MarshalCbor(w io.Writer) error {
	return cboring.WriteTextString(t.Body, w)
}

func (t *Text) UnmarshalCbor(r io.Reader) error {
	body, err := cboring.ReadTextString(r)
	if err != nil {
		return err
	}
	t.Body = body
	return nil
}

// List is an ordered list of strings.
type List struct {
	Items []string
}

func (l *List) PayloadType() string {
	return "m2m.list"
}

func (l *List) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(uint64(len(l.Items)), w); err != nil {
		return err
	}

	for _, item := range l.Items {
		if err := cboring.WriteTextString(item, w); err != nil {
			return err
		}
	}
	return nil
}

func (l *List) UnmarshalCbor(r io.Reader) error {
	n, err := cboring.ReadArrayLength(r)
	if err != nil {
		return err
	}

	l.Items = make([]string, 0, n)
	for i := uint64(0); i < n; i++ {
		item, err := cboring.ReadTextString(r)
		if err != nil {
			return err
		}
		l.Items = append(l.Items, item)
	}
	return nil
}

// Invocation asks an agent to invoke a method on some opaque arguments. It carries all decorations.
type Invocation struct {
	RPC          RPC
	Confidence   Confidence
	Validity     TimeBounded
	Personalized Personalized

	// Args are the method's serialized arguments.
	Args []byte
}

// NewInvocation creates an unbounded Invocation without any confidence assertion.
func NewInvocation(method string, args []byte) *Invocation {
	return &Invocation{
		RPC:      NewRPC(method),
		Validity: MaxInterval(),
		Args:     args,
	}
}

// CheckValid checks the Invocation's decorations.
func (inv *Invocation) CheckValid() (errs error) {
	if inv.RPC.MethodName == "" {
		errs = multierror.Append(errs, fmt.Errorf("invocation has no method name"))
	}
	if err := inv.Confidence.CheckValid(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := inv.Validity.CheckValid(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return
}

func (inv *Invocation) PayloadType() string {
	return "m2m.invocation"
}

func (inv *Invocation) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(5, w); err != nil {
		return err
	}

	if err := cboring.Marshal(&inv.RPC, w); err != nil {
		return fmt.Errorf("RPC failed: %v", err)
	}
	if err := cboring.WriteFloat64(float64(inv.Confidence), w); err != nil {
		return err
	}
	if err := cboring.Marshal(&inv.Validity, w); err != nil {
		return fmt.Errorf("TimeBounded failed: %v", err)
	}
	if err := cboring.Marshal(&inv.Personalized, w); err != nil {
		return fmt.Errorf("Personalized failed: %v", err)
	}
	return cboring.WriteByteString(inv.Args, w)
}

func (inv *Invocation) UnmarshalCbor(r io.Reader) error {
	if n, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if n != 5 {
		return fmt.Errorf("Invocation: expected array of 5 elements, got %d", n)
	}

	if err := cboring.Unmarshal(&inv.RPC, r); err != nil {
		return fmt.Errorf("RPC failed: %v", err)
	}

	if c, err := cboring.ReadFloat64(r); err != nil {
		return err
	} else {
		inv.Confidence = Confidence(c)
	}

	if err := cboring.Unmarshal(&inv.Validity, r); err != nil {
		return fmt.Errorf("TimeBounded failed: %v", err)
	}
	if err := cboring.Unmarshal(&inv.Personalized, r); err != nil {
		return fmt.Errorf("Personalized failed: %v", err)
	}

	if args, err := cboring.ReadByteString(r); err != nil {
		return err
	} else {
		inv.Args = args
	}

	return inv.CheckValid()
}

var registry = codec.NewRegistry(codec.WithCompression(1024)).MustRegister(
	&Text{},
	&List{},
	&Invocation{},
	&Error{},
)

// Registry returns the codec.Registry knowing all payloads of this package. Further payload types might be
// registered by agents.
func Registry() *codec.Registry {
	return registry
}
