// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package codec serializes typed payloads into a Packet's opaque payload bytes.
//
// Payload types are registered by a prototype in a Registry. Each serialized payload is CBOR, prefixed by a one byte
// envelope flag indicating if the CBOR was compressed by xz. The Packet's Type field names the payload type.
package codec
