// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/imoperator-go/pkg/packet"
)

// defaultDispatchQueue is the initial capacity of the queue between the inbound router and the dispatcher.
const defaultDispatchQueue = 64

// Session is an agent's connection, including presence knowledge, bindings and pending Calls.
type Session struct {
	conn   Connection
	clock  clock.Clock
	roster Roster
	ids    *packet.IDGenerator
	logger *log.Entry

	connected atomic.Bool

	presence      map[packet.Address]bool
	presenceMutex sync.RWMutex

	bindings      []binding
	bindingsMutex sync.RWMutex
	nextBinding   BindingID

	pending *pendingCalls

	inbox *inbox

	// stop{Syn,Ack} are used to supervise the dispatcher's shutdown, see Close()
	stopSyn chan struct{}
	stopAck chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// Option configures a Session.
type Option func(s *Session)

// WithClock sets the Clock for Call deadlines, e.g., a mocked one for testing.
func WithClock(c clock.Clock) Option {
	return func(s *Session) {
		s.clock = c
	}
}

// WithRoster sets a Roster to remember contacted Addresses. Its known Addresses are subscribed to on startup.
func WithRoster(r Roster) Option {
	return func(s *Session) {
		s.roster = r
	}
}

// WithIDGenerator sets the source of Packet IDs.
func WithIDGenerator(gen *packet.IDGenerator) Option {
	return func(s *Session) {
		s.ids = gen
	}
}

// WithDispatchQueue sets the initial capacity of the queue of inbound Packets waiting for the Handlers. The queue
// grows as needed, so the Connection is never blocked by busy Handlers.
func WithDispatchQueue(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.inbox = newInbox(n)
		}
	}
}

// WithLogger sets the logger for this Session.
func WithLogger(logger *log.Entry) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// New creates a Session for an established Connection.
func New(conn Connection, opts ...Option) *Session {
	s := &Session{
		conn:  conn,
		clock: clock.New(),
		ids:   packet.NewIDGenerator(),

		presence: make(map[packet.Address]bool),
		pending:  newPendingCalls(),

		inbox: newInbox(defaultDispatchQueue),

		stopSyn: make(chan struct{}),
		stopAck: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = log.WithField("session", conn.LocalAddress().String())
	}

	s.connected.Store(true)

	conn.OnPresence(s.onPresence)
	conn.OnPacket(s.route)

	go s.dispatcher()

	if s.roster != nil {
		s.resubscribe()
	}

	s.log().Info("Session started")
	return s
}

// Dial establishes a Connection, creates a Session for it and publishes the available presence.
func Dial(ctx context.Context, dialer Dialer, opts ...Option) (*Session, error) {
	conn, err := dialer.Dial(ctx)
	if err != nil {
		return nil, newError(ErrTransportFailure, err)
	}

	s := New(conn, opts...)
	if err := s.SetAvailable(true); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) log() *log.Entry {
	return s.logger
}

// LocalAddress of this Session's Connection.
func (s *Session) LocalAddress() packet.Address {
	return s.conn.LocalAddress()
}

// Connected reports if this Session was not closed yet.
func (s *Session) Connected() bool {
	return s.connected.Load()
}

// NextID returns an unused Packet ID.
func (s *Session) NextID() string {
	return s.ids.NextID()
}

// route is the Connection's callback for inbound Packets.
func (s *Session) route(p packet.Packet) {
	if !s.Connected() {
		s.log().WithField("packet", p).Debug("Dropping inbound packet for closed session")
		return
	}

	if s.pending.resolve(p) {
		s.log().WithField("packet", p).Debug("Inbound packet resolved a pending call")
	}

	s.inbox.push(delivery{packet: p, bindings: s.snapshotBindings()})
}

// dispatcher is the goroutine executing Handlers.
func (s *Session) dispatcher() {
	defer close(s.stopAck)

	for {
		select {
		case <-s.stopSyn:
			s.log().WithField("dropped", s.inbox.len()).Debug("Dispatcher received closing signal")
			return

		case <-s.inbox.signal:
			if !s.drainInbox() {
				s.log().WithField("dropped", s.inbox.len()).Debug("Dispatcher received closing signal")
				return
			}
		}
	}
}

// drainInbox dispatches all queued deliveries. Returns false if the Session was closed meanwhile.
func (s *Session) drainInbox() bool {
	for {
		select {
		case <-s.stopSyn:
			return false
		default:
		}

		d, ok := s.inbox.pop()
		if !ok {
			return true
		}
		s.dispatch(d)
	}
}

// Send a Packet to an Address without waiting for any reply. If requirePresence is set, the Packet is only sent if
// the recipient is known to be available; otherwise ErrUnavailable is returned. An empty ID will be generated.
func (s *Session) Send(to packet.Address, p packet.Packet, requirePresence bool) error {
	_, err := s.send(to, p, requirePresence)
	return err
}

// SendNoError is like Send, but only logs errors. This is meant for advisory Packets.
func (s *Session) SendNoError(to packet.Address, p packet.Packet, requirePresence bool) {
	if err := s.Send(to, p, requirePresence); err != nil {
		s.log().WithError(err).WithFields(log.Fields{
			"to":     to,
			"packet": p,
		}).Debug("Sending packet failed")
	}
}

// send prepares, checks and transmits a Packet. Returns the Packet as it was sent.
func (s *Session) send(to packet.Address, p packet.Packet, requirePresence bool) (packet.Packet, error) {
	p, err := s.prepare(to, p)
	if err != nil {
		return p, err
	}

	if requirePresence {
		if err := s.checkPresence(to); err != nil {
			return p, err
		}
	}

	return p, s.transmit(p)
}

// prepare addresses a Packet and assigns an ID, if missing.
func (s *Session) prepare(to packet.Address, p packet.Packet) (packet.Packet, error) {
	if !s.Connected() {
		return p, ErrClosed
	}

	p.To = to
	if p.ID == "" {
		p.ID = s.ids.NextID()
	}

	if err := p.CheckValid(); err != nil {
		return p, newError(ErrInvalidPacket, err)
	}
	return p, nil
}

func (s *Session) transmit(p packet.Packet) error {
	if err := s.conn.Send(p); err != nil {
		s.log().WithError(err).WithField("packet", p).Debug("Transport failed to send packet")
		return newError(ErrTransportFailure, err)
	}

	s.log().WithField("packet", p).Debug("Sent packet")
	return nil
}

// SetAvailable publishes this Session's presence.
func (s *Session) SetAvailable(available bool) error {
	if !s.Connected() {
		return ErrClosed
	}

	if err := s.conn.SetAvailable(available); err != nil {
		return newError(ErrTransportFailure, err)
	}
	return nil
}

// Close this Session. All bindings are removed and pending Calls fail with ErrCancelled. Afterwards, the unavailable
// presence is published and the Connection is closed.
//
// Close must not be called synchronously from within a Handler, as it waits for the dispatcher to finish.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.connected.Store(false)

		s.bindingsMutex.Lock()
		s.bindings = nil
		s.bindingsMutex.Unlock()

		cancelled := s.pending.cancelAll(newError(ErrCancelled, ErrClosed))

		close(s.stopSyn)
		<-s.stopAck

		var errs error
		if err := s.conn.SetAvailable(false); err != nil {
			errs = multierror.Append(errs, newError(ErrTransportFailure, err))
		}
		if err := s.conn.Close(); err != nil {
			errs = multierror.Append(errs, newError(ErrTransportFailure, err))
		}
		s.closeErr = errs

		s.log().WithField("cancelled-calls", cancelled).Info("Session closed")
	})

	return s.closeErr
}
