// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package discovery

import (
	"fmt"
	"time"

	"github.com/schollz/peerdiscovery"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/imoperator-go/pkg/config"
)

// lookupDelay between the discovering multicast packages.
const lookupDelay = 500 * time.Millisecond

// matchAnnouncements returns the URL of the first Announcement for a service, received from some host.
func matchAnnouncements(service string, discovered peerdiscovery.Discovered) (string, bool) {
	announcements, err := UnmarshalAnnouncements(discovered.Payload)
	if err != nil {
		log.WithError(err).WithField("peer", discovered.Address).Debug("Discovery failed to parse incoming package")
		return "", false
	}

	for _, announcement := range announcements {
		if announcement.Service == service {
			return announcement.URL(discovered.Address), true
		}
	}
	return "", false
}

// Discover the URL of a Hub announcing the given service. Returns an error if no Hub was found within the timeout.
func Discover(service string, timeout time.Duration, ipv4, ipv6 bool) (string, error) {
	if !ipv4 && !ipv6 {
		return "", fmt.Errorf("neither IPv4 nor IPv6 discovery is enabled")
	}

	// An empty list of Announcements, ignored by other peers.
	msg, err := MarshalAnnouncements(nil)
	if err != nil {
		return "", err
	}

	found := make(chan string, 1)
	notify := func(discovered peerdiscovery.Discovered) {
		if u, ok := matchAnnouncements(service, discovered); ok {
			select {
			case found <- u:
			default:
			}
		}
	}

	var stopChans []chan struct{}
	defer func() {
		for _, c := range stopChans {
			close(c)
		}
	}()

	for _, set := range discoverySets(ipv4, ipv6) {
		if !set.active {
			continue
		}

		stopChan := make(chan struct{})
		stopChans = append(stopChans, stopChan)

		settings := set.settings(msg, lookupDelay, timeout, stopChan, notify)
		go func() {
			if _, err := peerdiscovery.Discover(settings); err != nil {
				log.WithError(err).Warn("Discovery errored")
			}
		}()
	}

	select {
	case u := <-found:
		log.WithFields(log.Fields{
			"service": service,
			"url":     u,
		}).Info("Discovered hub")
		return u, nil

	case <-time.After(timeout):
		return "", fmt.Errorf("no hub for service %q was discovered within %v", service, timeout)
	}
}

// ConnectionURL of the configured Hub. Without a configured host, the Hub is discovered on the local network.
func ConnectionURL(conf config.Config) (string, error) {
	if conf.Connection.Host != "" {
		return conf.Connection.URL(), nil
	}

	timeout, err := conf.Discovery.TimeoutDuration()
	if err != nil {
		return "", err
	}
	return Discover(conf.Discovery.Service, timeout, conf.Discovery.IPv4, conf.Discovery.IPv6)
}
