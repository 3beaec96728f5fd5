// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package m2m

import (
	"github.com/dtn7/imoperator-go/pkg/codec"
	"github.com/dtn7/imoperator-go/pkg/packet"
)

// NewPacket creates a Packet of some Kind carrying a payload. Recipient and ID are left to the session.
func NewPacket(kind packet.Kind, payload codec.Payload) (packet.Packet, error) {
	p := packet.Packet{Kind: kind}
	err := registry.Attach(&p, payload)
	return p, err
}

// NewTextMessage creates a message Packet carrying a Text.
func NewTextMessage(body string) (packet.Packet, error) {
	return NewPacket(packet.KindMessage, &Text{Body: body})
}

// NewReply creates a Packet of packet.KindResult answering the request with a payload.
func NewReply(req packet.Packet, payload codec.Payload) (packet.Packet, error) {
	reply := req.Reply(packet.KindResult)
	err := registry.Attach(&reply, payload)
	return reply, err
}

// TextOf extracts the body of a Packet carrying a Text. The second value is false for other payloads.
func TextOf(p packet.Packet) (string, bool) {
	if p.Type != (&Text{}).PayloadType() {
		return "", false
	}

	payload, err := registry.Extract(p)
	if err != nil {
		return "", false
	}

	t, ok := payload.(*Text)
	if !ok {
		return "", false
	}
	return t.Body, true
}
