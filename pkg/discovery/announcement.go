// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package discovery

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"

	"github.com/dtn7/cboring"
)

// Announcement of some Hub's WebSocket endpoint for a service, i.e., the domain part of its clients' Addresses.
type Announcement struct {
	Service string
	Port    uint
	Path    string
	TLS     bool
}

// URL of the announced endpoint, reachable at the announcing host.
func (announcement Announcement) URL(host string) string {
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(host, strconv.Itoa(int(announcement.Port))),
		Path:   announcement.Path,
	}
	if announcement.TLS {
		u.Scheme = "wss"
	}
	return u.String()
}

// UnmarshalAnnouncements creates a new array of Announcement based on a CBOR byte string.
func UnmarshalAnnouncements(data []byte) (announcements []Announcement, err error) {
	buff := bytes.NewBuffer(data)

	if l, cErr := cboring.ReadArrayLength(buff); cErr != nil {
		err = cErr
		return
	} else {
		announcements = make([]Announcement, l)
	}

	for i := 0; i < len(announcements); i++ {
		if cErr := cboring.Unmarshal(&announcements[i], buff); cErr != nil {
			err = fmt.Errorf("unmarshalling Announcement %d failed: %v", i, cErr)
			return
		}
	}

	return
}

// MarshalAnnouncements into a CBOR byte string.
func MarshalAnnouncements(announcements []Announcement) (data []byte, err error) {
	buff := new(bytes.Buffer)

	if cErr := cboring.WriteArrayLength(uint64(len(announcements)), buff); cErr != nil {
		err = cErr
		return
	}

	for i := range announcements {
		if cErr := cboring.Marshal(&announcements[i], buff); cErr != nil {
			err = fmt.Errorf("marshalling Announcement %d (%v) failed: %v", i, announcements[i], cErr)
			return
		}
	}

	data = buff.Bytes()
	return
}

// MarshalCbor creates a CBOR representation for an Announcement.
func (announcement *Announcement) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(4, w); err != nil {
		return err
	}

	if err := cboring.WriteTextString(announcement.Service, w); err != nil {
		return err
	}
	if err := cboring.WriteUInt(uint64(announcement.Port), w); err != nil {
		return err
	}
	if err := cboring.WriteTextString(announcement.Path, w); err != nil {
		return err
	}
	return cboring.WriteBoolean(announcement.TLS, w)
}

// UnmarshalCbor creates an Announcement from its CBOR representation.
func (announcement *Announcement) UnmarshalCbor(r io.Reader) (err error) {
	if l, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if l != 4 {
		return fmt.Errorf("wrong array length: %d instead of 4", l)
	}

	if announcement.Service, err = cboring.ReadTextString(r); err != nil {
		return
	}
	if n, err := cboring.ReadUInt(r); err != nil {
		return err
	} else if n > 0xffff {
		return fmt.Errorf("port %d exceeds the valid range", n)
	} else {
		announcement.Port = uint(n)
	}
	if announcement.Path, err = cboring.ReadTextString(r); err != nil {
		return
	}
	announcement.TLS, err = cboring.ReadBoolean(r)
	return
}

func (announcement Announcement) String() string {
	return fmt.Sprintf("Announcement(%s,%d,%s,%t)",
		announcement.Service, announcement.Port, announcement.Path, announcement.TLS)
}
