// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package m2m

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dtn7/cboring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtn7/imoperator-go/pkg/codec"
	"github.com/dtn7/imoperator-go/pkg/packet"
)

func TestOIDGenerator(t *testing.T) {
	gen := &OIDGenerator{}

	assert.Equal(t, "1", gen.NextOID())

	gen.SetPrefix("agent@example.org")
	assert.Equal(t, "agent@example.org:2", gen.NextOID())

	var (
		wg    sync.WaitGroup
		mutex sync.Mutex
		oids  = make(map[string]struct{})
	)

	wg.Add(4)
	for i := 0; i < 4; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 250; j++ {
				oid := gen.NextOID()

				mutex.Lock()
				oids[oid] = struct{}{}
				mutex.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, oids, 1000)
}

func TestNewRPC(t *testing.T) {
	a, b := NewRPC("lookup"), NewRPC("lookup")
	assert.Equal(t, "lookup", a.MethodName)
	assert.NotEqual(t, a.OID, b.OID)
}

func TestConfidence(t *testing.T) {
	for _, level := range []float64{-1, -0.5, 0, 0.75, 1} {
		_, err := NewConfidence(level)
		assert.NoError(t, err, "level %v", level)
	}

	for _, level := range []float64{-1.01, 1.5, 23} {
		_, err := NewConfidence(level)
		assert.Error(t, err, "level %v", level)
	}
}

func TestTimeBounded(t *testing.T) {
	max := MaxInterval()
	require.NoError(t, max.CheckValid())
	assert.True(t, max.Contains(time.Now()))

	now := time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC)
	tb := TimeBounded{Start: now, End: now.Add(time.Hour)}
	assert.True(t, tb.Contains(now))
	assert.True(t, tb.Contains(now.Add(time.Hour)))
	assert.False(t, tb.Contains(now.Add(-time.Second)))

	assert.Error(t, TimeBounded{Start: now, End: now.Add(-time.Hour)}.CheckValid())
	assert.Error(t, TimeBounded{Start: now, End: MaxTime.Add(time.Second)}.CheckValid())
}

func TestTimeBoundedCbor(t *testing.T) {
	for _, tb1 := range []TimeBounded{MaxInterval(), {Start: time.Unix(1700000000, 42).UTC(), End: MaxTime}} {
		buff := new(bytes.Buffer)
		require.NoError(t, cboring.Marshal(&tb1, buff))

		var tb2 TimeBounded
		require.NoError(t, cboring.Unmarshal(&tb2, buff))

		assert.True(t, tb1.Start.Equal(tb2.Start), "start differs: %v, %v", tb1.Start, tb2.Start)
		assert.True(t, tb1.End.Equal(tb2.End), "end differs: %v, %v", tb1.End, tb2.End)
	}
}

func TestPayloadsCodec(t *testing.T) {
	inv := NewInvocation("geocode", []byte("berlin"))
	inv.Confidence = 0.5
	inv.Personalized = Personalized{Subject: "alice@example.org", Label: "home"}
	inv.RPC.Priority = 3
	inv.RPC.Creator = "geocoder"

	tests := []struct {
		name    string
		payload codec.Payload
	}{
		{"text", &Text{Body: "hello world"}},
		{"list", &List{Items: []string{"a", "b", "c"}}},
		{"error", &Error{Condition: ItemNotFound, Message: "no such thing"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p, err := NewPacket(packet.KindResult, test.payload)
			require.NoError(t, err)

			out, err := Registry().Extract(p)
			require.NoError(t, err)
			assert.Equal(t, test.payload, out)
		})
	}

	p, err := NewPacket(packet.KindRequest, inv)
	require.NoError(t, err)

	out, err := Registry().Extract(p)
	require.NoError(t, err)

	inv2, ok := out.(*Invocation)
	require.True(t, ok, "payload is a %T", out)
	assert.Equal(t, inv.RPC, inv2.RPC)
	assert.Equal(t, inv.Confidence, inv2.Confidence)
	assert.Equal(t, inv.Personalized, inv2.Personalized)
	assert.Equal(t, inv.Args, inv2.Args)
	assert.True(t, inv.Validity.Start.Equal(inv2.Validity.Start))
	assert.True(t, inv.Validity.End.Equal(inv2.Validity.End))
}

func TestInvocationInvalid(t *testing.T) {
	inv := NewInvocation("", nil)
	inv.Confidence = 2
	assert.Error(t, inv.CheckValid())

	p, err := NewPacket(packet.KindRequest, inv)
	require.NoError(t, err)

	_, err = Registry().Extract(p)
	assert.Error(t, err, "invalid invocation was decoded")
}

func TestLargeListCompressed(t *testing.T) {
	items := make([]string, 500)
	for i := range items {
		items[i] = strings.Repeat("x", 16)
	}

	p, err := NewPacket(packet.KindResult, &List{Items: items})
	require.NoError(t, err)
	assert.Less(t, len(p.Payload), 500*16)

	out, err := Registry().Extract(p)
	require.NoError(t, err)
	assert.Equal(t, items, out.(*List).Items)
}

func TestErrorReply(t *testing.T) {
	req := packet.Packet{
		ID:   "23",
		From: packet.MustParseAddress("alice@example.org/a"),
		To:   packet.MustParseAddress("bob@example.org/b"),
		Kind: packet.KindRequest,
	}

	reply, err := NewErrorReply(req, RecipientUnavailable, "bob is offline")
	require.NoError(t, err)
	assert.True(t, reply.IsReplyTo(req))
	assert.Equal(t, packet.KindError, reply.Kind)

	replyErr := ReplyError(reply)
	require.Error(t, replyErr)
	assert.Equal(t, "recipient-unavailable: bob is offline", replyErr.Error())

	assert.NoError(t, ReplyError(req))
}

func TestTextOf(t *testing.T) {
	p, err := NewTextMessage("hello")
	require.NoError(t, err)
	assert.Equal(t, packet.KindMessage, p.Kind)

	body, ok := TextOf(p)
	assert.True(t, ok)
	assert.Equal(t, "hello", body)

	p, err = NewPacket(packet.KindMessage, &List{Items: []string{"hello"}})
	require.NoError(t, err)
	_, ok = TextOf(p)
	assert.False(t, ok)
}
