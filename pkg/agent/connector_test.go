// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtn7/imoperator-go/pkg/config"
	"github.com/dtn7/imoperator-go/pkg/m2m"
	"github.com/dtn7/imoperator-go/pkg/packet"
	"github.com/dtn7/imoperator-go/pkg/session"
)

var (
	_ session.Dialer     = (*Dialer)(nil)
	_ session.Connection = (*Conn)(nil)
)

func TestNewDialer(t *testing.T) {
	conf, err := config.Parse(`
[connection]
host     = "localhost"
port     = 8080
service  = "example.org"
username = "alice"
password = "secret"
resource = "phone"
`)
	require.NoError(t, err)

	d, err := NewDialer(conf.Connection)
	require.NoError(t, err)

	assert.Equal(t, "ws://localhost:8080/ws", d.URL)
	assert.Equal(t, packet.MustParseAddress("alice@example.org/phone"), d.Address)
	assert.Equal(t, "secret", d.Password)
}

func TestConnUnreachable(t *testing.T) {
	d := &Dialer{
		URL:     "ws://localhost:1/ws",
		Address: packet.MustParseAddress("alice@example.org/phone"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := session.Dial(ctx, d)
	require.Error(t, err)
	assert.True(t, errors.Is(err, session.ErrTransportFailure))
}

func TestConnRecipientUnavailable(t *testing.T) {
	_, hubAddr := startHub(t)

	alice := dialSession(t, hubAddr, "alice@example.org/phone")
	nobody := packet.MustParseAddress("nobody@example.org/x")

	req, err := m2m.NewPacket(packet.KindRequest, &m2m.Text{Body: "anyone?"})
	require.NoError(t, err)

	// Without the presence requirement, the Hub answers with an error.
	reply, err := alice.Call(context.Background(), nobody, req, false, 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, packet.KindError, reply.Kind)

	replyErr, ok := m2m.ReplyError(reply).(*m2m.Error)
	require.True(t, ok)
	assert.Equal(t, m2m.RecipientUnavailable, replyErr.Condition)

	// With the presence requirement, the request is not even sent.
	_, err = alice.Call(context.Background(), nobody, req, true, 2*time.Second)
	assert.True(t, errors.Is(err, session.ErrUnavailable), err)
}

func TestConnPresence(t *testing.T) {
	_, hubAddr := startHub(t)

	alice := dialSession(t, hubAddr, "alice@example.org/phone")
	bobAddr := packet.MustParseAddress("bob@example.org/laptop")

	available, err := alice.Available(bobAddr)
	require.NoError(t, err)
	assert.False(t, available)

	bob := dialSession(t, hubAddr, bobAddr.String())
	awaitAvailable(t, alice, bobAddr)

	require.NoError(t, bob.SetAvailable(false))
	assert.Eventually(t, func() bool {
		available, err := alice.Available(bobAddr)
		return err == nil && !available
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, bob.SetAvailable(true))
	awaitAvailable(t, alice, bobAddr)

	require.NoError(t, bob.Close())
	assert.Eventually(t, func() bool {
		available, err := alice.Available(bobAddr)
		return err == nil && !available
	}, 2*time.Second, 20*time.Millisecond)
}

func TestConnConcurrentCalls(t *testing.T) {
	_, hubAddr := startHub(t)

	alice := dialSession(t, hubAddr, "alice@example.org/phone")
	bob := dialSession(t, hubAddr, "bob@example.org/echo")
	carol := dialSession(t, hubAddr, "carol@example.org/echo")

	for _, s := range []*session.Session{bob, carol} {
		_, err := NewEcho(s)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			to := bob.LocalAddress()
			if i%2 == 1 {
				to = carol.LocalAddress()
			}

			body := packet.NewID()
			req, err := m2m.NewPacket(packet.KindRequest, &m2m.Text{Body: body})
			if !assert.NoError(t, err) {
				return
			}

			reply, err := alice.Call(context.Background(), to, req, false, 2*time.Second)
			if !assert.NoError(t, err) {
				return
			}

			assert.Equal(t, to, reply.From)
			replyBody, _ := m2m.TextOf(reply)
			assert.Equal(t, body, replyBody)
		}(i)
	}
	wg.Wait()
}

func TestConnClosed(t *testing.T) {
	_, hubAddr := startHub(t)

	d := &Dialer{URL: "ws://" + hubAddr + "/ws", Address: packet.MustParseAddress("alice@example.org/phone")}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := d.Connect(ctx)
	require.NoError(t, err)
	c.OnPacket(func(packet.Packet) {})

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	assert.Error(t, c.Send(createPacket("alice@example.org/phone", "bob@example.org/laptop")))
	assert.Error(t, c.EnsureSubscribed(packet.MustParseAddress("bob@example.org/laptop")))
	assert.Error(t, c.SetAvailable(true))
}

func TestDialSession(t *testing.T) {
	_, hubAddr := startHub(t)

	host, port, err := net.SplitHostPort(hubAddr)
	require.NoError(t, err)

	conf, err := config.Parse(fmt.Sprintf(`
[connection]
host     = "%s"
port     = %s
service  = "example.org"
username = "alice"
resource = "phone"
`, host, port))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s, err := DialSession(ctx, conf)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, packet.MustParseAddress("alice@example.org/phone"), s.LocalAddress())
	assert.True(t, s.Connected())
}

// startReluctantHub serves a minimal hub accepting every registration. Subscriptions are reported and only
// acknowledged from the ackFrom-th attempt on.
func startReluctantHub(t *testing.T, ackFrom int) (string, <-chan packet.Address) {
	subscriptions := make(chan packet.Address, 10)
	upgrader := websocket.Upgrader{}

	handler := http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		attempts := 0
		for {
			_, reader, err := conn.NextReader()
			if err != nil {
				return
			}
			f, err := unmarshalFrame(reader)
			if err != nil {
				return
			}

			var reply frame
			switch f := f.(type) {
			case *frameRegister:
				reply = newStatusFrame(nil)

			case *frameSubscribe:
				attempts++
				subscriptions <- f.address
				if attempts >= ackFrom {
					reply = newPresenceFrame(f.address, true, true)
				}
			}
			if reply == nil {
				continue
			}

			w, err := conn.NextWriter(websocket.BinaryMessage)
			if err != nil {
				return
			}
			if err := marshalFrame(reply, w); err != nil {
				return
			}
			if err := w.Close(); err != nil {
				return
			}
		}
	})

	addr := fmt.Sprintf("localhost:%d", randomPort(t))
	httpServer := &http.Server{Addr: addr, Handler: handler}
	go func() { _ = httpServer.ListenAndServe() }()

	for i := 1; i <= 3; i++ {
		time.Sleep(100 * time.Millisecond)

		if isAddrReachable(addr) {
			break
		} else if i == 3 {
			t.Fatal("Hub seems to be unreachable")
		}
	}
	t.Cleanup(func() { _ = httpServer.Close() })

	return fmt.Sprintf("ws://%s/ws", addr), subscriptions
}

func awaitSubscription(t *testing.T, subscriptions <-chan packet.Address, expected packet.Address) {
	t.Helper()

	select {
	case addr := <-subscriptions:
		assert.Equal(t, expected, addr)
	case <-time.After(2 * time.Second):
		t.Fatal("No subscription was sent")
	}
}

func TestConnSubscriptionRetriedAfterTimeout(t *testing.T) {
	hubURL, subscriptions := startReluctantHub(t, 2)
	mock := clock.NewMock()
	bob := packet.MustParseAddress("bob@example.org/desk")

	d := &Dialer{
		URL:              hubURL,
		Address:          packet.MustParseAddress("alice@example.org/phone"),
		SubscribeTimeout: time.Second,
		Clock:            mock,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := d.Connect(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	c.OnPacket(func(packet.Packet) {})

	firstErr := make(chan error, 1)
	go func() { firstErr <- c.EnsureSubscribed(bob) }()

	// The timer exists before the subscription is sent.
	awaitSubscription(t, subscriptions, bob)
	mock.Add(time.Second)

	select {
	case err := <-firstErr:
		require.Error(t, err, "unacknowledged subscription succeeded")
	case <-time.After(2 * time.Second):
		t.Fatal("Subscription did not time out")
	}

	secondErr := make(chan error, 1)
	go func() { secondErr <- c.EnsureSubscribed(bob) }()

	awaitSubscription(t, subscriptions, bob)

	select {
	case err := <-secondErr:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Subscription was not acknowledged")
	}
	assert.True(t, c.IsAvailable(bob))

	// An acknowledged subscription is not sent again.
	require.NoError(t, c.EnsureSubscribed(bob))
	select {
	case addr := <-subscriptions:
		t.Fatalf("Subscription to %v was sent again", addr)
	default:
	}
}
