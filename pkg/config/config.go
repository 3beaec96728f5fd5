// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"

	"github.com/dtn7/imoperator-go/pkg/packet"
)

// DefaultPort is used for connections without an explicit port.
const DefaultPort = 5222

// Config describes an agent's TOML configuration.
type Config struct {
	Connection Connection
	Logging    Logging
	Roster     Roster
	Discovery  Discovery
}

// Connection describes the connection-configuration block.
type Connection struct {
	Host string
	Port uint16

	// Service is the domain part of the agent's Address.
	Service string

	// Username is the node part of the agent's Address.
	Username string
	Password string

	// Resource distinguishes multiple connections of the same user.
	Resource string

	TLS             bool   `toml:"tls"`
	AllowSelfSigned bool   `toml:"allow-self-signed"`
	Path            string `toml:"path"`
}

// Roster describes the roster-configuration block.
type Roster struct {
	// Store is the directory of the persistent roster. An empty Store disables it.
	Store string

	// ForgetAfter removes addresses not seen available for this duration. An empty value keeps them forever.
	ForgetAfter string `toml:"forget-after"`
}

// Discovery describes the discovery-configuration block. If enabled, an empty Connection.Host is looked up on the
// local network.
type Discovery struct {
	IPv4    bool
	IPv6    bool
	Timeout string
	Service string
}

// Parse a TOML configuration from a string.
func Parse(data string) (conf Config, err error) {
	if _, err = toml.Decode(data, &conf); err != nil {
		return
	}

	conf.setDefaults()
	err = conf.CheckValid()
	return
}

// Load a TOML configuration file.
func Load(filename string) (conf Config, err error) {
	if _, err = toml.DecodeFile(filename, &conf); err != nil {
		return
	}

	conf.setDefaults()
	err = conf.CheckValid()
	return
}

func (conf *Config) setDefaults() {
	if conf.Connection.Port == 0 {
		conf.Connection.Port = DefaultPort
	}
	if conf.Connection.Path == "" {
		conf.Connection.Path = "/ws"
	}
	if conf.Discovery.Service == "" {
		conf.Discovery.Service = conf.Connection.Service
	}
}

// CheckValid checks the configuration for all detectable errors.
func (conf Config) CheckValid() (errs error) {
	if conf.Connection.Host == "" && !conf.Discovery.Enabled() {
		errs = multierror.Append(errs, fmt.Errorf("connection.host is empty and discovery is disabled"))
	}

	if _, err := conf.Connection.Address(); err != nil {
		errs = multierror.Append(errs, err)
	}

	if _, err := conf.Roster.ForgetAfterDuration(); err != nil {
		errs = multierror.Append(errs, err)
	}

	if _, err := conf.Discovery.TimeoutDuration(); err != nil {
		errs = multierror.Append(errs, err)
	}

	if err := conf.Logging.CheckValid(); err != nil {
		errs = multierror.Append(errs, err)
	}

	return
}

// Address of the configured agent, i.e., username@service/resource.
func (c Connection) Address() (packet.Address, error) {
	if c.Service == "" {
		return packet.Address{}, fmt.Errorf("connection.service is empty")
	}

	s := c.Service
	if c.Username != "" {
		s = c.Username + "@" + s
	}
	if c.Resource != "" {
		s = s + "/" + c.Resource
	}
	return packet.ParseAddress(s)
}

// URL of the configured WebSocket endpoint.
func (c Connection) URL() string {
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(int(c.Port))),
		Path:   c.Path,
	}
	if c.TLS {
		u.Scheme = "wss"
	}
	return u.String()
}

// ForgetAfterDuration parses roster.forget-after. Zero disables forgetting.
func (r Roster) ForgetAfterDuration() (time.Duration, error) {
	if r.ForgetAfter == "" {
		return 0, nil
	}

	dur, err := time.ParseDuration(r.ForgetAfter)
	if err != nil {
		return 0, fmt.Errorf("roster.forget-after: %v", err)
	}
	return dur, nil
}

// Enabled reports if any discovery protocol is selected.
func (d Discovery) Enabled() bool {
	return d.IPv4 || d.IPv6
}

// TimeoutDuration parses the discovery timeout, defaulting to five seconds.
func (d Discovery) TimeoutDuration() (time.Duration, error) {
	if d.Timeout == "" {
		return 5 * time.Second, nil
	}

	dur, err := time.ParseDuration(d.Timeout)
	if err != nil {
		return 0, fmt.Errorf("discovery.timeout: %v", err)
	}
	return dur, nil
}
