// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/imoperator-go/pkg/filter"
	"github.com/dtn7/imoperator-go/pkg/m2m"
	"github.com/dtn7/imoperator-go/pkg/packet"
	"github.com/dtn7/imoperator-go/pkg/session"
)

// EchoMethod is the only m2m.Invocation method an EchoAgent answers.
const EchoMethod = "echo"

// EchoAgent is a simple agent on top of a Session to "echo" incoming Packets.
//
// Text messages are sent back to their sender. Requests are answered with a Result carrying the request's payload,
// except for Invocations of another method than EchoMethod or outside their validity.
type EchoAgent struct {
	filter  *filter.Composite
	binding session.BindingID
}

// NewEcho binds a new EchoAgent to a Session.
func NewEcho(s *session.Session) (*EchoAgent, error) {
	self := s.LocalAddress()

	f := filter.NewComposite(filter.NewByKind(packet.KindMessage, packet.KindRequest))
	f.AddExclude(filter.Func(func(p packet.Packet) bool {
		return p.From == self
	}))

	e := &EchoAgent{filter: f}

	id, err := s.Bind(f, e)
	if err != nil {
		return nil, err
	}
	e.binding = id

	return e, nil
}

func (e *EchoAgent) log() *log.Entry {
	return log.WithField("EchoAgent", e.binding)
}

// Filter is the EchoAgent's Filter, which might be altered to restrict its peers.
func (e *EchoAgent) Filter() *filter.Composite {
	return e.filter
}

// HandlePacket answers a Packet, implementing session.Handler.
func (e *EchoAgent) HandlePacket(s *session.Session, p packet.Packet) {
	switch p.Kind {
	case packet.KindMessage:
		e.echoMessage(s, p)

	case packet.KindRequest:
		e.answerRequest(s, p)

	default:
		e.log().WithField("packet", p).Info("Received unsupported Packet")
	}
}

func (e *EchoAgent) echoMessage(s *session.Session, p packet.Packet) {
	body, ok := m2m.TextOf(p)
	if !ok {
		e.log().WithField("packet", p).Debug("Ignoring non-text message")
		return
	}

	reply, err := m2m.NewTextMessage(body)
	if err != nil {
		e.log().WithError(err).Warn("Creating echo message errored")
		return
	}

	e.log().WithField("packet", p).Info("Echoing message")
	s.SendNoError(p.From, reply, false)
}

func (e *EchoAgent) answerRequest(s *session.Session, p packet.Packet) {
	reply, err := e.reply(p)
	if err != nil {
		e.log().WithError(err).WithField("packet", p).Warn("Creating reply errored")
		return
	}

	e.log().WithFields(log.Fields{
		"request": p,
		"reply":   reply,
	}).Info("Answering request")
	s.SendNoError(p.From, reply, false)
}

func (e *EchoAgent) reply(p packet.Packet) (packet.Packet, error) {
	if p.Type == (&m2m.Invocation{}).PayloadType() {
		payload, err := m2m.Registry().Extract(p)
		if err != nil {
			return m2m.NewErrorReply(p, m2m.BadRequest, err.Error())
		}

		inv := payload.(*m2m.Invocation)
		if inv.RPC.MethodName != EchoMethod {
			return m2m.NewErrorReply(p, m2m.FeatureNotImplemented,
				fmt.Sprintf("unknown method %q", inv.RPC.MethodName))
		} else if !inv.Validity.Contains(time.Now()) {
			return m2m.NewErrorReply(p, m2m.BadRequest,
				fmt.Sprintf("invocation is only valid within %v", inv.Validity))
		}
	}

	reply := p.Reply(packet.KindResult)
	reply.Type = p.Type
	reply.Payload = append([]byte(nil), p.Payload...)
	return reply, nil
}

// Close unbinds the EchoAgent from its Session.
func (e *EchoAgent) Close(s *session.Session) bool {
	return s.Unbind(e.binding)
}
