// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"context"
	"crypto/tls"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/imoperator-go/pkg/config"
	"github.com/dtn7/imoperator-go/pkg/discovery"
	"github.com/dtn7/imoperator-go/pkg/packet"
	"github.com/dtn7/imoperator-go/pkg/session"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultSubscribeTimeout = 5 * time.Second
)

// errConnClosed is returned for operations on a closed Conn.
var errConnClosed = errors.New("connection is closed")

// Dialer connects to a Hub and registers an Address. It implements session.Dialer.
type Dialer struct {
	URL      string
	Address  packet.Address
	Password string

	// AllowSelfSigned disables the TLS certificate verification.
	AllowSelfSigned bool

	HandshakeTimeout time.Duration
	SubscribeTimeout time.Duration

	// Clock for the subscription timeouts; defaults to the real clock.
	Clock clock.Clock
}

// NewDialer creates a Dialer for a configured connection.
func NewDialer(conf config.Connection) (*Dialer, error) {
	addr, err := conf.Address()
	if err != nil {
		return nil, err
	}

	return &Dialer{
		URL:             conf.URL(),
		Address:         addr,
		Password:        conf.Password,
		AllowSelfSigned: conf.AllowSelfSigned,
	}, nil
}

// DialSession establishes a Session based on an agent's configuration. Without a configured host, the Hub is
// discovered on the local network first.
func DialSession(ctx context.Context, conf config.Config, opts ...session.Option) (*session.Session, error) {
	d, err := NewDialer(conf.Connection)
	if err != nil {
		return nil, err
	}

	if d.URL, err = discovery.ConnectionURL(conf); err != nil {
		return nil, err
	}

	return session.Dial(ctx, d, opts...)
}

// Dial is Connect returning a session.Connection.
func (d *Dialer) Dial(ctx context.Context) (session.Connection, error) {
	return d.Connect(ctx)
}

// Connect establishes a WebSocket connection to the Hub and registers this Dialer's Address.
func (d *Dialer) Connect(ctx context.Context) (c *Conn, err error) {
	wsDialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	if wsDialer.HandshakeTimeout <= 0 {
		wsDialer.HandshakeTimeout = defaultHandshakeTimeout
	}
	if d.AllowSelfSigned {
		wsDialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	wsConn, _, err := wsDialer.DialContext(ctx, d.URL, nil)
	if err != nil {
		return nil, err
	}

	c = &Conn{
		conn:             wsConn,
		address:          d.Address,
		subscribeTimeout: d.SubscribeTimeout,
		clock:            d.Clock,

		msgOut:    make(chan frame),
		msgOutErr: make(chan error),

		presence:      make(map[packet.Address]bool),
		subscriptions: make(map[packet.Address]chan struct{}),

		ready:      make(chan struct{}),
		closeSyn:   make(chan struct{}),
		closeAck:   make(chan struct{}),
		readerDone: make(chan struct{}),
	}
	if c.subscribeTimeout <= 0 {
		c.subscribeTimeout = defaultSubscribeTimeout
	}
	if c.clock == nil {
		c.clock = clock.New()
	}

	if err = c.register(ctx, d.Password); err != nil {
		_ = wsConn.Close()
		return nil, err
	}

	go c.handler()
	go c.handleReader()

	c.log().Info("Connected to hub")
	return c, nil
}

// Conn is the client side of a Hub connection. It implements session.Connection.
type Conn struct {
	conn             *websocket.Conn
	address          packet.Address
	subscribeTimeout time.Duration
	clock            clock.Clock

	msgOut    chan frame
	msgOutErr chan error

	mutex         sync.Mutex
	onPacket      func(packet.Packet)
	onPresence    func(packet.Address, bool)
	presence      map[packet.Address]bool
	subscriptions map[packet.Address]chan struct{}

	ready      chan struct{}
	readyOnce  sync.Once
	closeSyn   chan struct{}
	closeAck   chan struct{}
	readerDone chan struct{}
	closeOnce  sync.Once
}

func (c *Conn) log() *log.Entry {
	return log.WithField("conn", c.address.String())
}

func (c *Conn) writeFrame(f frame) error {
	wc, wcErr := c.conn.NextWriter(websocket.BinaryMessage)
	if wcErr != nil {
		return wcErr
	}

	if cborErr := marshalFrame(f, wc); cborErr != nil {
		return cborErr
	}

	return wc.Close()
}

func (c *Conn) readFrame() (frame, error) {
	if mt, r, err := c.conn.NextReader(); err != nil {
		return nil, err
	} else if mt != websocket.BinaryMessage {
		return nil, errors.Errorf("expected binary message, got %d", mt)
	} else {
		return unmarshalFrame(r)
	}
}

// register this Conn's Address. This happens before the handler and the reader are started.
func (c *Conn) register(ctx context.Context, password string) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetReadDeadline(deadline)
		_ = c.conn.SetWriteDeadline(deadline)
		defer func() {
			_ = c.conn.SetReadDeadline(time.Time{})
			_ = c.conn.SetWriteDeadline(time.Time{})
		}()
	}

	if err := c.writeFrame(newRegisterFrame(c.address, password)); err != nil {
		return err
	}

	if f, err := c.readFrame(); err != nil {
		return err
	} else if status, ok := f.(*frameStatus); !ok {
		return errors.Errorf("expected status frame, got %T", f)
	} else if err := status.err(); err != nil {
		return errors.Wrap(err, "registration was rejected")
	}
	return nil
}

// handler serializes all outgoing frames.
func (c *Conn) handler() {
	defer func() {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = c.conn.Close()

		close(c.closeAck)
	}()

	for {
		select {
		case <-c.closeSyn:
			return

		case f := <-c.msgOut:
			c.msgOutErr <- c.writeFrame(f)
		}
	}
}

// handleReader delivers incoming frames, starting after a packet callback was registered.
func (c *Conn) handleReader() {
	defer close(c.readerDone)

	select {
	case <-c.ready:
	case <-c.closeSyn:
		return
	}

	for {
		f, err := c.readFrame()
		if err != nil {
			select {
			case <-c.closeSyn:
				c.log().WithError(err).Debug("Reader stopped due to closing down")
			default:
				c.log().WithError(err).Warn("Reading from hub errored")
			}
			return
		}

		switch f := f.(type) {
		case *framePacket:
			c.mutex.Lock()
			onPacket := c.onPacket
			c.mutex.Unlock()

			onPacket(f.p)

		case *framePresence:
			c.handlePresence(f)

		case *frameStatus:
			if err := f.err(); err != nil {
				c.log().WithError(err).Warn("Hub reported an error")
			}

		default:
			c.log().WithField("frame", f).Info("Received unknown / unsupported frame")
		}
	}
}

func (c *Conn) handlePresence(f *framePresence) {
	c.mutex.Lock()
	c.presence[f.address] = f.available
	if f.ack {
		if ch, ok := c.subscriptions[f.address]; ok {
			select {
			case <-ch:
			default:
				close(ch)
			}
		}
	}
	onPresence := c.onPresence
	c.mutex.Unlock()

	c.log().WithFields(log.Fields{
		"address":   f.address,
		"available": f.available,
		"ack":       f.ack,
	}).Debug("Received presence")

	if !f.ack && onPresence != nil {
		onPresence(f.address, f.available)
	}
}

// send a frame through the handler.
func (c *Conn) send(f frame) error {
	select {
	case c.msgOut <- f:
		return <-c.msgOutErr
	case <-c.closeSyn:
		return errConnClosed
	}
}

func (c *Conn) LocalAddress() packet.Address {
	return c.address
}

func (c *Conn) Send(p packet.Packet) error {
	return c.send(newPacketFrame(p))
}

// OnPacket registers the packet callback and starts the delivery of incoming frames.
func (c *Conn) OnPacket(fn func(p packet.Packet)) {
	c.mutex.Lock()
	c.onPacket = fn
	c.mutex.Unlock()

	c.readyOnce.Do(func() { close(c.ready) })
}

func (c *Conn) OnPresence(fn func(addr packet.Address, available bool)) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.onPresence = fn
}

func (c *Conn) IsAvailable(addr packet.Address) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.presence[addr]
}

// EnsureSubscribed subscribes once to an Address and waits for the Hub's acknowledgement. An unacknowledged
// subscription is dropped after the timeout, so the next call subscribes again.
func (c *Conn) EnsureSubscribed(addr packet.Address) error {
	timer := c.clock.Timer(c.subscribeTimeout)
	defer timer.Stop()

	c.mutex.Lock()
	ch, ok := c.subscriptions[addr]
	if !ok {
		ch = make(chan struct{})
		c.subscriptions[addr] = ch
	}
	c.mutex.Unlock()

	if !ok {
		if err := c.send(newSubscribeFrame(addr)); err != nil {
			c.mutex.Lock()
			delete(c.subscriptions, addr)
			c.mutex.Unlock()
			return err
		}
	}

	select {
	case <-ch:
		return nil
	case <-timer.C:
		c.dropSubscription(addr, ch)
		return errors.Errorf("subscription to %v was not acknowledged within %v", addr, c.subscribeTimeout)
	case <-c.closeSyn:
		return errConnClosed
	}
}

// dropSubscription removes an unacknowledged subscription, unless it was acknowledged or replaced meanwhile.
func (c *Conn) dropSubscription(addr packet.Address, ch chan struct{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if current, ok := c.subscriptions[addr]; !ok || current != ch {
		return
	}

	select {
	case <-ch:
	default:
		delete(c.subscriptions, addr)
		c.log().WithField("address", addr).Warn("Subscription was not acknowledged, dropping it")
	}
}

func (c *Conn) SetAvailable(available bool) error {
	return c.send(newPresenceFrame(c.address, available, false))
}

// Close the connection and wait for the reader to finish. Must not be called from a callback.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closeSyn)
		<-c.closeAck
		<-c.readerDone

		c.log().Info("Closed connection")
	})
	return nil
}
