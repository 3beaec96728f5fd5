// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dtn7/imoperator-go/pkg/packet"
)

// mockConn is an in-memory Connection, only used for testing.
type mockConn struct {
	sync.Mutex

	local packet.Address

	// sent receives every transmitted Packet.
	sent chan packet.Packet

	// responder optionally creates Packets to be delivered for each transmitted one.
	responder func(p packet.Packet) []packet.Packet

	onPacket   func(packet.Packet)
	onPresence func(packet.Address, bool)

	available     map[packet.Address]bool
	subscriptions map[packet.Address]int
	selfAvailable bool

	sendErr      error
	subscribeErr error
	closeErr     error
	closed       bool

	// deliverMutex serializes deliveries, as a real Connection has one delivery context.
	deliverMutex sync.Mutex
	responders   sync.WaitGroup
}

func newMockConn(local string) *mockConn {
	return &mockConn{
		local:         packet.MustParseAddress(local),
		sent:          make(chan packet.Packet, 100),
		available:     make(map[packet.Address]bool),
		subscriptions: make(map[packet.Address]int),
	}
}

func (m *mockConn) LocalAddress() packet.Address {
	return m.local
}

func (m *mockConn) Send(p packet.Packet) error {
	m.Lock()
	err, responder := m.sendErr, m.responder
	m.Unlock()

	if err != nil {
		return err
	}

	p.From = m.local
	m.sent <- p

	if responder != nil {
		m.responders.Add(1)
		go func() {
			defer m.responders.Done()
			for _, reply := range responder(p) {
				m.deliver(reply)
			}
		}()
	}
	return nil
}

func (m *mockConn) OnPacket(fn func(packet.Packet)) {
	m.Lock()
	m.onPacket = fn
	m.Unlock()
}

func (m *mockConn) OnPresence(fn func(packet.Address, bool)) {
	m.Lock()
	m.onPresence = fn
	m.Unlock()
}

func (m *mockConn) IsAvailable(addr packet.Address) bool {
	m.Lock()
	defer m.Unlock()

	return m.available[addr]
}

func (m *mockConn) EnsureSubscribed(addr packet.Address) error {
	m.Lock()
	defer m.Unlock()

	if m.subscribeErr != nil {
		return m.subscribeErr
	}
	m.subscriptions[addr]++
	return nil
}

func (m *mockConn) SetAvailable(available bool) error {
	m.Lock()
	defer m.Unlock()

	if m.closed {
		return fmt.Errorf("connection is closed")
	}
	m.selfAvailable = available
	return nil
}

func (m *mockConn) Close() error {
	m.responders.Wait()

	m.Lock()
	defer m.Unlock()

	m.closed = true
	return m.closeErr
}

// deliver an inbound Packet.
func (m *mockConn) deliver(p packet.Packet) {
	m.deliverMutex.Lock()
	defer m.deliverMutex.Unlock()

	m.Lock()
	fn := m.onPacket
	m.Unlock()

	fn(p)
}

// setPresence changes an Address' presence and notifies the Session.
func (m *mockConn) setPresence(addr packet.Address, available bool) {
	m.Lock()
	m.available[addr] = available
	fn := m.onPresence
	m.Unlock()

	fn(addr, available)
}

func (m *mockConn) subscriptionCount(addr packet.Address) int {
	m.Lock()
	defer m.Unlock()

	return m.subscriptions[addr]
}

// nextSent returns the next transmitted Packet or fails after a timeout.
func (m *mockConn) nextSent(t *testing.T) packet.Packet {
	t.Helper()

	select {
	case p := <-m.sent:
		return p
	case <-time.After(time.Second):
		t.Fatal("No packet was sent")
		return packet.Packet{}
	}
}

// noneSent fails if any Packet was transmitted.
func (m *mockConn) noneSent(t *testing.T) {
	t.Helper()

	select {
	case p := <-m.sent:
		t.Fatalf("Unexpected packet was sent: %v", p)
	default:
	}
}

// mockRoster is an in-memory Roster.
type mockRoster struct {
	sync.Mutex

	addrs    []packet.Address
	presence map[packet.Address]bool
}

func (r *mockRoster) Remember(addr packet.Address) error {
	r.Lock()
	defer r.Unlock()

	for _, known := range r.addrs {
		if known == addr {
			return nil
		}
	}
	r.addrs = append(r.addrs, addr)
	return nil
}

func (r *mockRoster) Addresses() ([]packet.Address, error) {
	r.Lock()
	defer r.Unlock()

	return append([]packet.Address(nil), r.addrs...), nil
}

func (r *mockRoster) UpdatePresence(addr packet.Address, available bool) error {
	r.Lock()
	defer r.Unlock()

	if r.presence == nil {
		r.presence = make(map[packet.Address]bool)
	}
	r.presence[addr] = available
	return nil
}

// mockDialer returns its Connection or error.
type mockDialer struct {
	conn *mockConn
	err  error
}

func (d mockDialer) Dial(_ context.Context) (Connection, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

// waitFor polls until the condition holds or fails after a timeout.
func waitFor(t *testing.T, msg string, cond func() bool) {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("Timeout while waiting for: %s", msg)
		case <-time.After(5 * time.Millisecond):
		}
	}
}
