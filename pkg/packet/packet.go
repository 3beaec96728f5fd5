// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package packet

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dtn7/cboring"
	"github.com/hashicorp/go-multierror"
)

// Packet is the unit of communication between two agents.
type Packet struct {
	// ID correlates requests and their replies. A reply's ID equals its request's ID.
	ID string

	// From is the sender's Address. It might be unset for outbound Packets and will be set by the transport.
	From Address

	// To is the recipient's Address.
	To Address

	Kind Kind

	// Type names the Payload's type, as set by the serialization provider.
	Type string

	// Payload is the opaque, serialized content.
	Payload []byte
}

// Reply creates a new Packet of the given Kind answering this one. The reply is addressed back to this Packet's
// sender, originates from this Packet's recipient and shares its ID.
func (p Packet) Reply(kind Kind) Packet {
	return Packet{
		ID:   p.ID,
		From: p.To,
		To:   p.From,
		Kind: kind,
	}
}

// IsReplyTo checks if this Packet is a correlated reply to the given request.
func (p Packet) IsReplyTo(req Packet) bool {
	return p.Kind.IsReply() && p.ID != "" && p.ID == req.ID && p.From == req.To
}

func (p Packet) String() string {
	return fmt.Sprintf("%s(%s, %v -> %v, %s)", p.Kind, p.ID, p.From, p.To, p.Type)
}

// CheckValid checks if this Packet is well-formed enough to be sent.
func (p Packet) CheckValid() (errs error) {
	if p.To.IsZero() {
		errs = multierror.Append(errs, fmt.Errorf("packet has no recipient"))
	}

	if !p.Kind.IsValid() {
		errs = multierror.Append(errs, fmt.Errorf("packet has an unknown kind %d", p.Kind))
	} else if p.Kind.IsRequestReply() && p.ID == "" {
		errs = multierror.Append(errs, fmt.Errorf("packet of kind %v requires an ID", p.Kind))
	}

	if len(p.Payload) > 0 && p.Type == "" {
		errs = multierror.Append(errs, fmt.Errorf("packet has a payload without a type"))
	}

	return
}

// MarshalCbor writes the CBOR representation of a Packet, terminated by a CRC-16 over its preceding fields.
func (p *Packet) MarshalCbor(w io.Writer) error {
	crcBuff := new(bytes.Buffer)
	mw := io.MultiWriter(w, crcBuff)

	if err := cboring.WriteArrayLength(7, mw); err != nil {
		return err
	}

	if err := cboring.WriteUInt(uint64(p.Kind), mw); err != nil {
		return err
	}

	if err := cboring.WriteTextString(p.ID, mw); err != nil {
		return err
	}

	for _, addr := range []*Address{&p.From, &p.To} {
		if err := cboring.Marshal(addr, mw); err != nil {
			return fmt.Errorf("Address failed: %v", err)
		}
	}

	if err := cboring.WriteTextString(p.Type, mw); err != nil {
		return err
	}

	if err := cboring.WriteByteString(p.Payload, mw); err != nil {
		return err
	}

	if crcVal, err := calculateCRCBuff(crcBuff); err != nil {
		return err
	} else {
		return cboring.WriteByteString(crcVal, w)
	}
}

// UnmarshalCbor reads the CBOR representation of a Packet and checks its CRC.
func (p *Packet) UnmarshalCbor(r io.Reader) error {
	// Pipe incoming bytes into a separate CRC buffer
	crcBuff := new(bytes.Buffer)
	tr := io.TeeReader(r, crcBuff)

	if l, err := cboring.ReadArrayLength(tr); err != nil {
		return err
	} else if l != 7 {
		return fmt.Errorf("expected array with 7 elements, got %d", l)
	}

	if k, err := cboring.ReadUInt(tr); err != nil {
		return err
	} else {
		p.Kind = Kind(k)
	}

	if id, err := cboring.ReadTextString(tr); err != nil {
		return err
	} else {
		p.ID = id
	}

	for _, addr := range []*Address{&p.From, &p.To} {
		if err := cboring.Unmarshal(addr, tr); err != nil {
			return fmt.Errorf("Address failed: %v", err)
		}
	}

	if typ, err := cboring.ReadTextString(tr); err != nil {
		return err
	} else {
		p.Type = typ
	}

	if payload, err := cboring.ReadByteString(tr); err != nil {
		return err
	} else {
		p.Payload = payload
	}

	if crcCalc, crcErr := calculateCRCBuff(crcBuff); crcErr != nil {
		return crcErr
	} else if crcVal, err := cboring.ReadByteString(r); err != nil {
		return err
	} else if !bytes.Equal(crcCalc, crcVal) {
		return fmt.Errorf("invalid CRC value: %x instead of expected %x", crcVal, crcCalc)
	}

	return nil
}
