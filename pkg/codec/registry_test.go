// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package codec

import (
	"bytes"
	"io"
	"testing"

	"github.com/dtn7/cboring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtn7/imoperator-go/pkg/packet"
)

// blob is a trivial Payload, only used for testing.
type blob struct {
	Name string
	Data []byte
}

func (b *blob) PayloadType() string {
	return "blob"
}

func (b *blob) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}
	if err := cboring.WriteTextString(b.Name, w); err != nil {
		return err
	}
	return cboring.WriteByteString(b.Data, w)
}

func (b *blob) UnmarshalCbor(r io.Reader) error {
	if n, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if n != 2 {
		return io.ErrUnexpectedEOF
	}

	name, err := cboring.ReadTextString(r)
	if err != nil {
		return err
	}
	data, err := cboring.ReadByteString(r)
	if err != nil {
		return err
	}

	b.Name, b.Data = name, data
	return nil
}

// otherBlob claims the same type name as blob.
type otherBlob struct {
	blob
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(&blob{}))
	require.NoError(t, r.Register(&blob{}), "registering the same type twice failed")
	assert.Error(t, r.Register(&otherBlob{}), "type name was registered twice")
	assert.Equal(t, 1, r.Types())
}

func TestRegistryRoundTrip(t *testing.T) {
	r := NewRegistry().MustRegister(&blob{})
	in := &blob{Name: "greeting", Data: []byte("hello world")}

	typ, data, err := r.Encode(in)
	require.NoError(t, err)
	assert.Equal(t, "blob", typ)
	assert.Equal(t, envelopePlain, data[0])

	out, err := r.Decode(typ, data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestRegistryCompression(t *testing.T) {
	r := NewRegistry(WithCompression(128)).MustRegister(&blob{})

	small := &blob{Name: "small", Data: []byte("tiny")}
	large := &blob{Name: "large", Data: bytes.Repeat([]byte("abcdefgh"), 4096)}

	_, data, err := r.Encode(small)
	require.NoError(t, err)
	assert.Equal(t, envelopePlain, data[0])

	typ, data, err := r.Encode(large)
	require.NoError(t, err)
	assert.Equal(t, envelopeXZ, data[0])
	assert.Less(t, len(data), len(large.Data), "compression did not shrink a repetitive payload")

	out, err := r.Decode(typ, data)
	require.NoError(t, err)
	assert.Equal(t, large, out)
}

func TestRegistryErrors(t *testing.T) {
	r := NewRegistry()

	_, _, err := r.Encode(&blob{})
	assert.Error(t, err, "unregistered type was encoded")

	_, err = r.Decode("blob", []byte{envelopePlain})
	assert.Error(t, err, "unregistered type was decoded")

	r.MustRegister(&blob{})

	_, err = r.Decode("blob", nil)
	assert.Error(t, err)

	_, err = r.Decode("blob", []byte{0x42, 0x00})
	assert.Error(t, err, "unknown envelope was accepted")

	_, err = r.Decode("blob", []byte{envelopeXZ, 0x00, 0x01})
	assert.Error(t, err, "garbage xz stream was accepted")
}

func TestRegistryAttachExtract(t *testing.T) {
	r := NewRegistry().MustRegister(&blob{})

	p := packet.Packet{Kind: packet.KindMessage}
	require.NoError(t, r.Attach(&p, &blob{Name: "x", Data: []byte{1, 2, 3}}))
	assert.Equal(t, "blob", p.Type)

	payload, err := r.Extract(p)
	require.NoError(t, err)
	assert.Equal(t, &blob{Name: "x", Data: []byte{1, 2, 3}}, payload)

	_, err = r.Extract(packet.Packet{})
	assert.Error(t, err)
}
