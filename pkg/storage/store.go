// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"os"
	"path"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold"

	"github.com/dtn7/imoperator-go/pkg/packet"
)

const dirBadger string = "db"

// Store implements a persistent roster of Addresses together with their last known presence.
// It implements the session package's Roster.
type Store struct {
	bh *badgerhold.Store

	badgerDir string
}

// NewStore creates a new Store or opens an existing Store from the given path.
func NewStore(dir string) (s *Store, err error) {
	badgerDir := path.Join(dir, dirBadger)

	opts := badgerhold.DefaultOptions
	opts.Dir = badgerDir
	opts.ValueDir = badgerDir
	opts.Logger = log.StandardLogger()
	opts.Options.ValueLogFileSize = 1<<28 - 1

	if dirErr := os.MkdirAll(badgerDir, 0700); dirErr != nil {
		err = dirErr
		return
	}

	if bh, bhErr := badgerhold.Open(opts); bhErr != nil {
		err = bhErr
	} else {
		s = &Store{
			bh: bh,

			badgerDir: badgerDir,
		}
	}
	return
}

// Close the Store. It must not be used afterwards.
func (s *Store) Close() error {
	return s.bh.Close()
}

// Remember an Address. Already known Addresses are left untouched.
func (s *Store) Remember(addr packet.Address) error {
	if s.Knows(addr) {
		log.WithField("address", addr).Debug("Address is known, ignoring remember")
		return nil
	}

	log.WithField("address", addr).Info("Address is unknown, inserting RosterItem")

	ri := newRosterItem(addr)
	return s.bh.Insert(ri.Id, ri)
}

// Forget an Address. Unknown Addresses are ignored.
func (s *Store) Forget(addr packet.Address) error {
	if err := s.bh.Delete(rosterKey(addr), RosterItem{}); err != nil && err != badgerhold.ErrNotFound {
		return err
	}

	log.WithField("address", addr).Info("Store forgets RosterItem")
	return nil
}

// QueryAddress fetches the RosterItem for the requested Address.
func (s *Store) QueryAddress(addr packet.Address) (ri RosterItem, err error) {
	err = s.bh.Get(rosterKey(addr), &ri)
	return
}

// Knows checks if such an Address is remembered.
func (s *Store) Knows(addr packet.Address) bool {
	_, err := s.QueryAddress(addr)
	return err != badgerhold.ErrNotFound
}

// Addresses returns all remembered Addresses, sorted by their string representation.
func (s *Store) Addresses() ([]packet.Address, error) {
	var ris []RosterItem
	if err := s.bh.Find(&ris, nil); err != nil {
		return nil, err
	}

	sort.Slice(ris, func(i, j int) bool {
		return ris[i].Id < ris[j].Id
	})

	addrs := make([]packet.Address, 0, len(ris))
	for _, ri := range ris {
		addrs = append(addrs, ri.Address)
	}
	return addrs, nil
}

// UpdatePresence of a remembered Address. Presence updates for unknown Addresses are ignored.
func (s *Store) UpdatePresence(addr packet.Address, available bool) error {
	ri, err := s.QueryAddress(addr)
	if err == badgerhold.ErrNotFound {
		return nil
	} else if err != nil {
		return err
	}

	ri.Available = available
	if available {
		ri.LastSeen = time.Now()
	}

	log.WithFields(log.Fields{
		"address":   addr,
		"available": available,
	}).Debug("Store updates RosterItem")

	return s.bh.Update(ri.Id, ri)
}

// QueryAvailable fetches all RosterItems whose last known presence was available.
func (s *Store) QueryAvailable() (ris []RosterItem, err error) {
	err = s.bh.Find(&ris, badgerhold.Where("Available").Eq(true))
	return
}

// ForgetStale removes all Addresses which were not seen available since the given time.
func (s *Store) ForgetStale(before time.Time) {
	var ris []RosterItem
	if err := s.bh.Find(&ris, badgerhold.Where("LastSeen").Lt(before)); err != nil {
		log.WithError(err).Warn("Failed to get stale RosterItems")
		return
	}

	for _, ri := range ris {
		logger := log.WithField("address", ri.Address)
		if err := s.Forget(ri.Address); err != nil {
			logger.WithError(err).Warn("Failed to forget stale Address")
		} else {
			logger.Info("Forgot stale Address")
		}
	}
}
