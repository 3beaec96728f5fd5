// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package discovery

import (
	"fmt"
	"time"

	"github.com/schollz/peerdiscovery"
	log "github.com/sirupsen/logrus"
)

// discoverySet bundles the peerdiscovery configuration for one IP version.
type discoverySet struct {
	active           bool
	multicastAddress string
	ipVersion        peerdiscovery.IPVersion
}

func discoverySets(ipv4, ipv6 bool) []discoverySet {
	return []discoverySet{
		{ipv4, address4, peerdiscovery.IPv4},
		{ipv6, address6, peerdiscovery.IPv6},
	}
}

// settings for peerdiscovery based on this discoverySet.
func (set discoverySet) settings(payload []byte, delay, timeLimit time.Duration, stopChan chan struct{},
	notify func(peerdiscovery.Discovered)) peerdiscovery.Settings {

	if set.ipVersion == peerdiscovery.IPv6 && notify != nil {
		notify4 := notify
		notify = func(discovered peerdiscovery.Discovered) {
			discovered.Address = fmt.Sprintf("[%s]", discovered.Address)
			notify4(discovered)
		}
	}

	return peerdiscovery.Settings{
		Limit:            -1,
		Port:             fmt.Sprintf("%d", port),
		MulticastAddress: set.multicastAddress,
		Payload:          payload,
		Delay:            delay,
		TimeLimit:        timeLimit,
		StopChan:         stopChan,
		AllowSelf:        true,
		IPVersion:        set.ipVersion,
		Notify:           notify,
	}
}

// Manager publishes Announcements.
type Manager struct {
	announcements []Announcement
	stopChans     []chan struct{}
}

// NewManager for Announcements will be created and started.
func NewManager(announcements []Announcement, announcementInterval time.Duration, ipv4, ipv6 bool) (*Manager, error) {
	var manager = &Manager{announcements: announcements}

	log.WithFields(log.Fields{
		"interval":      announcementInterval,
		"IPv4":          ipv4,
		"IPv6":          ipv6,
		"announcements": announcements,
	}).Info("Starting Manager")

	msg, err := MarshalAnnouncements(announcements)
	if err != nil {
		return nil, err
	}

	for _, set := range discoverySets(ipv4, ipv6) {
		if !set.active {
			continue
		}

		stopChan := make(chan struct{})
		settings := set.settings(msg, announcementInterval, -1, stopChan, nil)

		discoverErrChan := make(chan error, 1)
		go func() {
			_, discoverErr := peerdiscovery.Discover(settings)
			discoverErrChan <- discoverErr
		}()

		select {
		case discoverErr := <-discoverErrChan:
			if discoverErr != nil {
				manager.Close()
				return nil, discoverErr
			}

		case <-time.After(time.Second):
			break
		}

		manager.stopChans = append(manager.stopChans, stopChan)
	}

	return manager, nil
}

// Close this Manager.
func (manager *Manager) Close() {
	for _, c := range manager.stopChans {
		close(c)
	}
	manager.stopChans = nil
}
