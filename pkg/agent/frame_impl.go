// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"fmt"
	"io"

	"github.com/dtn7/cboring"

	"github.com/dtn7/imoperator-go/pkg/packet"
)

// frameStatus acknowledges a registration or reports an error with a non-empty string.
type frameStatus struct {
	errorMsg string
}

func newStatusFrame(err error) *frameStatus {
	if err == nil {
		return &frameStatus{""}
	}
	return &frameStatus{err.Error()}
}

func (_ *frameStatus) typeCode() uint64 {
	return frameStatusCode
}

// err returns the reported error or nil for a positive acknowledgement.
func (fs *frameStatus) err() error {
	if fs.errorMsg == "" {
		return nil
	}
	return fmt.Errorf("%s", fs.errorMsg)
}

func (fs *frameStatus) MarshalCbor(w io.Writer) error {
	return cboring.WriteTextString(fs.errorMsg, w)
}

func (fs *frameStatus) UnmarshalCbor(r io.Reader) (err error) {
	fs.errorMsg, err = cboring.ReadTextString(r)
	return
}

// frameRegister is sent from a client to the Hub to claim an Address.
type frameRegister struct {
	address  packet.Address
	password string
}

func newRegisterFrame(address packet.Address, password string) *frameRegister {
	return &frameRegister{address, password}
}

func (_ *frameRegister) typeCode() uint64 {
	return frameRegisterCode
}

func (fr *frameRegister) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}
	if err := cboring.Marshal(&fr.address, w); err != nil {
		return err
	}
	return cboring.WriteTextString(fr.password, w)
}

func (fr *frameRegister) UnmarshalCbor(r io.Reader) (err error) {
	if n, arrErr := cboring.ReadArrayLength(r); arrErr != nil {
		return arrErr
	} else if n != 2 {
		return fmt.Errorf("expected array of two elements, got %d", n)
	}
	if err = cboring.Unmarshal(&fr.address, r); err != nil {
		return
	}
	fr.password, err = cboring.ReadTextString(r)
	return
}

// framePacket carries a Packet in both directions.
type framePacket struct {
	p packet.Packet
}

func newPacketFrame(p packet.Packet) *framePacket {
	return &framePacket{p}
}

func (_ *framePacket) typeCode() uint64 {
	return framePacketCode
}

func (fp *framePacket) MarshalCbor(w io.Writer) error {
	return cboring.Marshal(&fp.p, w)
}

func (fp *framePacket) UnmarshalCbor(r io.Reader) error {
	return cboring.Unmarshal(&fp.p, r)
}

// frameSubscribe is sent from a client to the Hub to subscribe to an Address' presence. The Hub answers with an
// acknowledging framePresence.
type frameSubscribe struct {
	address packet.Address
}

func newSubscribeFrame(address packet.Address) *frameSubscribe {
	return &frameSubscribe{address}
}

func (_ *frameSubscribe) typeCode() uint64 {
	return frameSubscribeCode
}

func (fs *frameSubscribe) MarshalCbor(w io.Writer) error {
	return cboring.Marshal(&fs.address, w)
}

func (fs *frameSubscribe) UnmarshalCbor(r io.Reader) error {
	return cboring.Unmarshal(&fs.address, r)
}

// framePresence publishes a client's own presence or informs a client about a subscribed Address.
type framePresence struct {
	address   packet.Address
	available bool
	ack       bool
}

func newPresenceFrame(address packet.Address, available, ack bool) *framePresence {
	return &framePresence{address, available, ack}
}

func (_ *framePresence) typeCode() uint64 {
	return framePresenceCode
}

func (fp *framePresence) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(3, w); err != nil {
		return err
	}
	if err := cboring.Marshal(&fp.address, w); err != nil {
		return err
	}
	if err := cboring.WriteBoolean(fp.available, w); err != nil {
		return err
	}
	return cboring.WriteBoolean(fp.ack, w)
}

func (fp *framePresence) UnmarshalCbor(r io.Reader) (err error) {
	if n, arrErr := cboring.ReadArrayLength(r); arrErr != nil {
		return arrErr
	} else if n != 3 {
		return fmt.Errorf("expected array of three elements, got %d", n)
	}
	if err = cboring.Unmarshal(&fp.address, r); err != nil {
		return
	}
	if fp.available, err = cboring.ReadBoolean(r); err != nil {
		return
	}
	fp.ack, err = cboring.ReadBoolean(r)
	return
}
