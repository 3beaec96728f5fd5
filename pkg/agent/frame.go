// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"fmt"
	"io"
	"reflect"

	"github.com/dtn7/cboring"
)

// frame describes a message which might be sent over the Hub's WebSocket connection.
// Implementations are available in frame_impl.go.
type frame interface {
	// typeCode is an unique identifier for each frame type.
	typeCode() uint64

	// CborMarshaler must only be implemented for the type's logic.
	// A generic wrapper for the typeCode is available in the marshalFrame and unmarshalFrame functions.
	cboring.CborMarshaler
}

const (
	frameStatusCode    uint64 = 0
	frameRegisterCode  uint64 = 1
	framePacketCode    uint64 = 2
	frameSubscribeCode uint64 = 3
	framePresenceCode  uint64 = 4
)

var frameMapping = map[uint64]reflect.Type{
	frameStatusCode:    reflect.TypeOf(frameStatus{}),
	frameRegisterCode:  reflect.TypeOf(frameRegister{}),
	framePacketCode:    reflect.TypeOf(framePacket{}),
	frameSubscribeCode: reflect.TypeOf(frameSubscribe{}),
	framePresenceCode:  reflect.TypeOf(framePresence{}),
}

// marshalFrame writes a frame wrapped with its type code as CBOR.
func marshalFrame(f frame, w io.Writer) error {
	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}

	if err := cboring.WriteUInt(f.typeCode(), w); err != nil {
		return err
	}

	return cboring.Marshal(f, w)
}

// unmarshalFrame reads a new frame based on its type code from CBOR.
func unmarshalFrame(r io.Reader) (f frame, err error) {
	if n, arrErr := cboring.ReadArrayLength(r); arrErr != nil {
		err = arrErr
		return
	} else if n != 2 {
		err = fmt.Errorf("expected array of two elements, got %d", n)
		return
	}

	if n, typeErr := cboring.ReadUInt(r); typeErr != nil {
		err = typeErr
		return
	} else if t, ok := frameMapping[n]; !ok {
		err = fmt.Errorf("no known frame type code %d", n)
		return
	} else {
		f = reflect.New(t).Interface().(frame)
	}

	err = cboring.Unmarshal(f, r)
	return
}
