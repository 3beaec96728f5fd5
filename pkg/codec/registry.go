// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package codec

import (
	"bytes"
	"fmt"
	"io"
	"reflect"
	"sync"

	"github.com/dtn7/cboring"
	log "github.com/sirupsen/logrus"
	"github.com/ulikunitz/xz"

	"github.com/dtn7/imoperator-go/pkg/packet"
)

// Payload is a serializable Packet content.
type Payload interface {
	// CborMarshaler must be implemented on the pointer type.
	cboring.CborMarshaler

	// PayloadType is an unique name for each Payload type.
	PayloadType() string
}

const (
	envelopePlain byte = 0
	envelopeXZ    byte = 1
)

// MaxDecodedSize limits the size of a decompressed payload.
const MaxDecodedSize = 16 * 1024 * 1024

// Registry maps payload type names to their Go types.
type Registry struct {
	mutex sync.RWMutex
	types map[string]reflect.Type

	compressThreshold int
}

// Option configures a Registry.
type Option func(r *Registry)

// WithCompression enables xz compression for payloads exceeding the threshold in bytes. A non-positive threshold
// disables compression, which is the default.
func WithCompression(threshold int) Option {
	return func(r *Registry) {
		r.compressThreshold = threshold
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{types: make(map[string]reflect.Type)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register a Payload type by a pointer prototype, e.g., &Text{}.
func (r *Registry) Register(prototype Payload) error {
	t := reflect.TypeOf(prototype)
	if t.Kind() != reflect.Ptr {
		return fmt.Errorf("prototype %T is no pointer", prototype)
	}

	name := prototype.PayloadType()
	if name == "" {
		return fmt.Errorf("prototype %T has an empty type name", prototype)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if known, ok := r.types[name]; ok && known != t.Elem() {
		return fmt.Errorf("type name %q is already used by %v", name, known)
	}
	r.types[name] = t.Elem()
	return nil
}

// MustRegister is like Register, but panics on an error.
func (r *Registry) MustRegister(prototypes ...Payload) *Registry {
	for _, p := range prototypes {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r
}

// Types returns the number of registered types.
func (r *Registry) Types() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.types)
}

// Encode a Payload into its type name and serialized form.
func (r *Registry) Encode(p Payload) (typ string, data []byte, err error) {
	typ = p.PayloadType()

	r.mutex.RLock()
	_, known := r.types[typ]
	r.mutex.RUnlock()

	if !known {
		err = fmt.Errorf("payload type %q is not registered", typ)
		return
	}

	buff := new(bytes.Buffer)
	if err = cboring.Marshal(p, buff); err != nil {
		return
	}

	if r.compressThreshold <= 0 || buff.Len() <= r.compressThreshold {
		data = append([]byte{envelopePlain}, buff.Bytes()...)
		return
	}

	plainLen := buff.Len()
	compressed := bytes.NewBuffer([]byte{envelopeXZ})
	xzw, xzErr := xz.NewWriter(compressed)
	if xzErr != nil {
		err = xzErr
		return
	}
	if _, err = io.Copy(xzw, buff); err != nil {
		return
	}
	if err = xzw.Close(); err != nil {
		return
	}

	log.WithFields(log.Fields{
		"type":       typ,
		"plain":      plainLen,
		"compressed": compressed.Len(),
	}).Trace("Compressed payload")

	data = compressed.Bytes()
	return
}

// Decode a serialized Payload of the named type.
func (r *Registry) Decode(typ string, data []byte) (Payload, error) {
	r.mutex.RLock()
	t, known := r.types[typ]
	r.mutex.RUnlock()

	if !known {
		return nil, fmt.Errorf("payload type %q is not registered", typ)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("payload of type %q is empty", typ)
	}

	var reader io.Reader
	switch data[0] {
	case envelopePlain:
		reader = bytes.NewReader(data[1:])

	case envelopeXZ:
		xzr, err := xz.NewReader(bytes.NewReader(data[1:]))
		if err != nil {
			return nil, err
		}

		plain, err := io.ReadAll(io.LimitReader(xzr, MaxDecodedSize+1))
		if err != nil {
			return nil, err
		} else if len(plain) > MaxDecodedSize {
			return nil, fmt.Errorf("decompressed payload exceeds %d bytes", MaxDecodedSize)
		}
		reader = bytes.NewReader(plain)

	default:
		return nil, fmt.Errorf("unknown payload envelope %d", data[0])
	}

	p := reflect.New(t).Interface().(Payload)
	if err := cboring.Unmarshal(p, reader); err != nil {
		return nil, fmt.Errorf("decoding %q failed: %v", typ, err)
	}
	return p, nil
}

// Attach a Payload to a Packet, setting its Type and Payload.
func (r *Registry) Attach(p *packet.Packet, payload Payload) error {
	typ, data, err := r.Encode(payload)
	if err != nil {
		return err
	}

	p.Type = typ
	p.Payload = data
	return nil
}

// Extract a Packet's Payload.
func (r *Registry) Extract(p packet.Packet) (Payload, error) {
	if p.Type == "" {
		return nil, fmt.Errorf("packet %v has no payload type", p)
	}
	return r.Decode(p.Type, p.Payload)
}
