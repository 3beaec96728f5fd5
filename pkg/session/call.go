// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/imoperator-go/pkg/packet"
)

// Call sends a request and blocks until its reply arrives. A reply must share the request's ID and must originate
// from the request's recipient.
//
// An unset Kind becomes KindRequest and an empty ID will be generated. If requirePresence is set, the request is only
// sent to available recipients. A non-positive timeout disables the deadline.
//
// Exactly one of the following is returned: the reply Packet, which might be of KindError, or an error matching
// ErrUnavailable, ErrTimeout, ErrCancelled, ErrTransportFailure or ErrMalformedReply. Misuse results in ErrClosed,
// ErrInvalidPacket or ErrDuplicateID.
func (s *Session) Call(ctx context.Context, to packet.Address, req packet.Packet, requirePresence bool, timeout time.Duration) (packet.Packet, error) {
	if req.Kind == packet.KindUnknown {
		req.Kind = packet.KindRequest
	}

	req, err := s.prepare(to, req)
	if err != nil {
		return packet.Packet{}, err
	}

	if requirePresence {
		if err := s.checkPresence(to); err != nil {
			return packet.Packet{}, err
		}
	}

	// The timer must exist before the pendingCall becomes visible.
	var deadline time.Time
	var timeoutChan <-chan time.Time
	if timeout > 0 {
		timer := s.clock.Timer(timeout)
		defer timer.Stop()

		deadline = s.clock.Now().Add(timeout)
		timeoutChan = timer.C
	}

	pc := newPendingCall(req.ID, to, deadline)
	if err := s.pending.register(pc); err != nil {
		return packet.Packet{}, err
	}
	defer s.pending.remove(pc)

	logger := s.log().WithFields(log.Fields{
		"id": req.ID,
		"to": to,
	})

	if err := s.transmit(req); err != nil {
		return packet.Packet{}, err
	}

	logger.Debug("Waiting for reply")

	select {
	case o := <-pc.result:
		if o.err != nil {
			logger.WithError(o.err).Debug("Call failed")
			return packet.Packet{}, o.err
		}

		logger.WithField("reply", o.reply).Debug("Call received reply")
		return o.reply, nil

	case <-timeoutChan:
		logger.WithField("timeout", timeout).Debug("Call timed out")
		return packet.Packet{}, errors.Wrapf(ErrTimeout, "after %v", timeout)

	case <-ctx.Done():
		logger.WithError(ctx.Err()).Debug("Call's context is done")
		return packet.Packet{}, newError(ErrCancelled, ctx.Err())
	}
}
