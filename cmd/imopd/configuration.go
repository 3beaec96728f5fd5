// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/imoperator-go/pkg/agent"
	"github.com/dtn7/imoperator-go/pkg/config"
	"github.com/dtn7/imoperator-go/pkg/discovery"
	"github.com/dtn7/imoperator-go/pkg/packet"
)

// tomlConfig describes the TOML-configuration.
type tomlConfig struct {
	Hub       hubConf
	Logging   config.Logging
	Discovery discoveryConf
}

// hubConf describes the Hub-configuration block.
type hubConf struct {
	Listen    string
	Path      string
	TLS       bool `toml:"tls"`
	Profiling bool
	Account   []accountConf
}

// accountConf describes an optional account. Without any account, each address might register.
type accountConf struct {
	Address  string
	Password string
}

// discoveryConf describes the Discovery-configuration block.
type discoveryConf struct {
	IPv4     bool
	IPv6     bool
	Interval uint
	Announce []string
}

// daemon bundles everything started from the configuration.
type daemon struct {
	hub        *agent.Hub
	httpServer *http.Server
	discovery  *discovery.Manager
	profiling  bool
}

// loadConfig decodes and checks a TOML configuration file.
func loadConfig(filename string) (conf tomlConfig, err error) {
	if _, err = toml.DecodeFile(filename, &conf); err != nil {
		return
	}

	if conf.Hub.Path == "" {
		conf.Hub.Path = "/ws"
	}

	if conf.Hub.Listen == "" {
		err = multierror.Append(err, fmt.Errorf("hub.listen is empty"))
	}
	if logErr := conf.Logging.CheckValid(); logErr != nil {
		err = multierror.Append(err, logErr)
	}
	for i, account := range conf.Hub.Account {
		if _, addrErr := packet.ParseAddress(account.Address); addrErr != nil {
			err = multierror.Append(err, fmt.Errorf("hub.account %d: %v", i, addrErr))
		}
	}
	return
}

// parseAnnouncements for the configured services, reachable at the listening port.
func parseAnnouncements(conf tomlConfig) ([]discovery.Announcement, error) {
	_, portStr, err := net.SplitHostPort(conf.Hub.Listen)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}

	var announcements []discovery.Announcement
	for _, service := range conf.Discovery.Announce {
		announcements = append(announcements, discovery.Announcement{
			Service: service,
			Port:    uint(port),
			Path:    conf.Hub.Path,
			TLS:     conf.Hub.TLS,
		})
	}
	return announcements, nil
}

// parseDaemon creates the Hub and its HTTP server based on the given TOML configuration.
func parseDaemon(filename string) (d *daemon, err error) {
	conf, err := loadConfig(filename)
	if err != nil {
		return
	}

	conf.Logging.Apply()

	var opts []agent.HubOption
	for _, account := range conf.Hub.Account {
		opts = append(opts, agent.WithAccount(packet.MustParseAddress(account.Address), account.Password))
	}

	d = &daemon{
		hub:       agent.NewHub(conf.Hub.Path, opts...),
		profiling: conf.Hub.Profiling,
	}
	d.httpServer = &http.Server{
		Addr:              conf.Hub.Listen,
		Handler:           d.hub,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.WithFields(log.Fields{
		"listen":   conf.Hub.Listen,
		"path":     conf.Hub.Path,
		"accounts": len(conf.Hub.Account),
	}).Info("Starting hub")

	if (conf.Discovery.IPv4 || conf.Discovery.IPv6) && len(conf.Discovery.Announce) > 0 {
		announcements, annErr := parseAnnouncements(conf)
		if annErr != nil {
			d.hub.Close()
			return nil, annErr
		}

		interval := time.Duration(conf.Discovery.Interval) * time.Second
		if interval == 0 {
			interval = 10 * time.Second
		}

		if d.discovery, err = discovery.NewManager(announcements, interval, conf.Discovery.IPv4, conf.Discovery.IPv6); err != nil {
			d.hub.Close()
			return nil, err
		}
	}

	return
}

// reloadLogging is the configuration watcher's callback.
func reloadLogging(filename string) error {
	conf, err := loadConfig(filename)
	if err != nil {
		return err
	}

	conf.Logging.Apply()
	log.WithField("config", filename).Info("Reloaded logging configuration")
	return nil
}
