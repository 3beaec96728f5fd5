// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package agent connects Sessions through a WebSocket based Hub.
//
// The Hub's view of each connection is an ApplicationAgent, which only requires two channels for incoming and
// outgoing Messages next to a list of Addresses. All connected clients are multiplexed by a MuxAgent. The client side
// is the Dialer, whose Conn implements the session package's Connection. On top of a Session, the EchoAgent answers
// incoming messages and requests.
package agent
