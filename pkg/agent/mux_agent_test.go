// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"reflect"
	"testing"
	"time"

	"github.com/dtn7/imoperator-go/pkg/packet"
)

func TestMuxAgent(t *testing.T) {
	p1 := createPacket("src@example.org/a", "mock-1@example.org/a")

	mux := NewMuxAgent()

	mock1 := newMockAgent([]packet.Address{packet.MustParseAddress("mock-1@example.org/a")})
	mock2 := newMockAgent([]packet.Address{packet.MustParseAddress("mock-2@example.org/a")})

	mux.Register(mock1)
	mux.Register(mock2)

	if addrs := mux.Addresses(); len(addrs) != 2 {
		t.Fatalf("expected two addresses, got %v", addrs)
	}

	mux.MessageReceiver() <- PacketMessage{p1}
	time.Sleep(250 * time.Millisecond)

	for i, mock := range []*mockAgent{mock1, mock2} {
		if msgs := mock.inbox(); len(msgs) != 1-i {
			t.Fatalf("mock agent%d did not receied %d messages; msgs := %v", i+1, 1-i, msgs)
		} else if 1-i > 0 && !reflect.DeepEqual(msgs[0].(PacketMessage).Packet, p1) {
			t.Fatalf("message is not p1; %v %v", msgs[0], p1)
		}
	}

	mock1.MessageSender() <- ShutdownMessage{}
	time.Sleep(250 * time.Millisecond)

	select {
	case msg := <-mux.MessageSender():
		t.Fatalf("Mux forwarded shutdown message %v", msg)

	case <-time.After(250 * time.Millisecond):
		break
	}

	p1.To = packet.MustParseAddress("mock-2@example.org/a")
	mux.MessageReceiver() <- PacketMessage{p1}
	time.Sleep(250 * time.Millisecond)

	if msgs := mock1.inbox(); len(msgs) != 0 {
		t.Fatalf("shutdowned mock agent1 received messages %v", msgs)
	}

	if msgs := mock2.inbox(); len(msgs) != 1 {
		t.Fatalf("mock agent2 did not receied messages; msgs := %v", msgs)
	} else if !reflect.DeepEqual(msgs[0].(PacketMessage).Packet, p1) {
		t.Fatalf("message is not p1; %v %v", msgs[0], p1)
	}

	mock2.send(PacketMessage{p1})

	select {
	case msg := <-mux.MessageSender():
		if msg, ok := msg.(PacketMessage); !ok {
			t.Fatal("Message is no packet message")
		} else if !reflect.DeepEqual(msg.Packet, p1) {
			t.Fatalf("Expected %v, got %v", p1, msg.Packet)
		}

	case <-time.After(250 * time.Millisecond):
		t.Fatal("Mux did not received message")
	}

	mux.MessageReceiver() <- ShutdownMessage{}
	time.Sleep(250 * time.Millisecond)

	if msgs := mock2.inbox(); len(msgs) != 1 {
		t.Fatalf("mock agent did not received one message; msgs := %v", msgs)
	} else if !reflect.DeepEqual(msgs[0], ShutdownMessage{}) {
		t.Fatalf("expected %v, got %v", ShutdownMessage{}, msgs[0])
	}

	// The MuxAgent waits for its remaining child before closing down.
	close(mock2.MessageSender())

	select {
	case _, ok := <-mux.MessageSender():
		if ok {
			t.Fatal("Mux sent a message after its shutdown")
		}

	case <-time.After(250 * time.Millisecond):
		t.Fatal("Mux did not close its sender")
	}

	late := newMockAgent(nil)
	defer close(late.MessageReceiver())
	if mux.Register(late) {
		t.Fatal("Mux accepted a child after its shutdown")
	}
}

func TestMuxAgentPresenceRecipients(t *testing.T) {
	alice := packet.MustParseAddress("alice@example.org/a")
	bob := packet.MustParseAddress("bob@example.org/a")
	carol := packet.MustParseAddress("carol@example.org/a")

	mux := NewMuxAgent()

	mocks := []*mockAgent{
		newMockAgent([]packet.Address{alice}),
		newMockAgent([]packet.Address{bob}),
		newMockAgent([]packet.Address{carol}),
	}
	for _, mock := range mocks {
		mux.Register(mock)
	}

	mux.MessageReceiver() <- PresenceMessage{Address: carol, Available: true, Subscribers: []packet.Address{alice, bob}}
	time.Sleep(250 * time.Millisecond)

	for i, expected := range []int{1, 1, 0} {
		if msgs := mocks[i].inbox(); len(msgs) != expected {
			t.Fatalf("mock agent %d received %d messages, expected %d", i, len(msgs), expected)
		}
	}

	mux.MessageReceiver() <- ShutdownMessage{}
	for _, mock := range mocks {
		close(mock.MessageSender())
	}

	for range mux.MessageSender() {
	}
}
