// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/imoperator-go/pkg/packet"
)

// Available returns the known presence of an Address. On the first contact, the Address' presence will be subscribed
// to and, if configured, remembered in the Roster.
func (s *Session) Available(addr packet.Address) (bool, error) {
	s.presenceMutex.RLock()
	available, known := s.presence[addr]
	s.presenceMutex.RUnlock()

	if known {
		return available, nil
	}
	return s.subscribe(addr)
}

// subscribe to an Address' presence and store its current state.
func (s *Session) subscribe(addr packet.Address) (bool, error) {
	if err := s.conn.EnsureSubscribed(addr); err != nil {
		return false, newError(ErrTransportFailure, err)
	}

	available := s.conn.IsAvailable(addr)

	s.presenceMutex.Lock()
	if known, ok := s.presence[addr]; ok {
		// A presence update arrived in the meantime.
		available = known
	} else {
		s.presence[addr] = available
	}
	s.presenceMutex.Unlock()

	if s.roster != nil {
		if err := s.roster.Remember(addr); err != nil {
			s.log().WithError(err).WithField("address", addr).Warn("Failed to remember address in roster")
		}
	}

	s.log().WithFields(log.Fields{
		"address":   addr,
		"available": available,
	}).Debug("Subscribed to presence")

	return available, nil
}

// onPresence is the Connection's callback for presence changes.
func (s *Session) onPresence(addr packet.Address, available bool) {
	s.presenceMutex.Lock()
	s.presence[addr] = available
	s.presenceMutex.Unlock()

	if s.roster != nil {
		if err := s.roster.UpdatePresence(addr, available); err != nil {
			s.log().WithError(err).WithField("address", addr).Debug("Failed to update presence in roster")
		}
	}

	s.log().WithFields(log.Fields{
		"address":   addr,
		"available": available,
	}).Debug("Presence changed")
}

// resubscribe to all Addresses known to the Roster.
func (s *Session) resubscribe() {
	addrs, err := s.roster.Addresses()
	if err != nil {
		s.log().WithError(err).Warn("Failed to read addresses from roster")
		return
	}

	for _, addr := range addrs {
		if _, err := s.subscribe(addr); err != nil {
			s.log().WithError(err).WithField("address", addr).Warn("Failed to resubscribe to presence")
		}
	}
}

// checkPresence fails with ErrUnavailable if the Address is not known to be available.
func (s *Session) checkPresence(addr packet.Address) error {
	if available, err := s.Available(addr); err != nil {
		return err
	} else if !available {
		return errors.Wrapf(ErrUnavailable, "address %v", addr)
	}
	return nil
}
