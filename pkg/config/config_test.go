// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtn7/imoperator-go/pkg/packet"
)

const exampleConfig = `
[connection]
host = "localhost"
service = "Example.org"
username = "alice"
password = "secret"
resource = "phone"

[logging]
level = "debug"
report-caller = true
format = "json"

[roster]
store = "/tmp/roster"
forget-after = "720h"
`

func TestParse(t *testing.T) {
	conf, err := Parse(exampleConfig)
	require.NoError(t, err)

	assert.Equal(t, uint16(DefaultPort), conf.Connection.Port)
	assert.Equal(t, "secret", conf.Connection.Password)
	assert.True(t, conf.Logging.ReportCaller)
	assert.Equal(t, "/tmp/roster", conf.Roster.Store)

	forgetAfter, err := conf.Roster.ForgetAfterDuration()
	require.NoError(t, err)
	assert.Equal(t, 720*time.Hour, forgetAfter)

	addr, err := conf.Connection.Address()
	require.NoError(t, err)
	assert.Equal(t, packet.MustParseAddress("alice@example.org/phone"), addr)

	assert.Equal(t, "ws://localhost:5222/ws", conf.Connection.URL())

	timeout, err := conf.Discovery.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, timeout)
}

func TestConnectionURL(t *testing.T) {
	c := Connection{Host: "::1", Port: 8443, TLS: true, Path: "/im"}
	assert.Equal(t, "wss://[::1]:8443/im", c.URL())
}

func TestParseInvalid(t *testing.T) {
	tests := []string{
		// Neither host nor discovery
		"[connection]\nservice = \"example.org\"",
		// No service
		"[connection]\nhost = \"localhost\"",
		// Broken log level
		"[connection]\nhost = \"h\"\nservice = \"s\"\n[logging]\nlevel = \"loud\"",
		// Broken log format
		"[connection]\nhost = \"h\"\nservice = \"s\"\n[logging]\nformat = \"xml\"",
		// Broken timeout
		"[connection]\nservice = \"s\"\n[discovery]\nipv4 = true\ntimeout = \"soon\"",
		// Broken roster duration
		"[connection]\nhost = \"h\"\nservice = \"s\"\n[roster]\nforget-after = \"never\"",
		// No TOML
		"[connection",
	}

	for _, test := range tests {
		if _, err := Parse(test); err == nil {
			t.Fatalf("Configuration was accepted:\n%s", test)
		}
	}
}

func TestParseDiscovery(t *testing.T) {
	conf, err := Parse("[connection]\nservice = \"example.org\"\n[discovery]\nipv4 = true\ntimeout = \"2s\"")
	require.NoError(t, err)

	assert.True(t, conf.Discovery.Enabled())
	assert.Equal(t, "example.org", conf.Discovery.Service)
}

func TestLoggingApply(t *testing.T) {
	level, formatter := log.GetLevel(), log.StandardLogger().Formatter
	defer func() {
		log.SetLevel(level)
		log.SetFormatter(formatter)
		log.SetReportCaller(false)
	}()

	Logging{Level: "trace", Format: "json"}.Apply()
	assert.Equal(t, log.TraceLevel, log.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)

	Logging{Level: "warn"}.Apply()
	assert.Equal(t, log.WarnLevel, log.GetLevel())
	assert.IsType(t, &log.TextFormatter{}, log.StandardLogger().Formatter)
}

func TestLoadAndWatch(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "agent.toml")

	require.NoError(t, os.WriteFile(filename, []byte(exampleConfig), 0o600))

	conf, err := Load(filename)
	require.NoError(t, err)
	assert.Equal(t, "debug", conf.Logging.Level)

	reloaded := make(chan Config, 10)
	w, err := Watch(filename, func(c Config) { reloaded <- c })
	require.NoError(t, err)
	defer w.Close()

	// An invalid file is skipped.
	require.NoError(t, os.WriteFile(filename, []byte("[connection"), 0o600))
	time.Sleep(100 * time.Millisecond)

	updated := exampleConfig + "\n[discovery]\ntimeout = \"9s\"\n"
	require.NoError(t, os.WriteFile(filename, []byte(updated), 0o600))

	deadline := time.After(3 * time.Second)
	for {
		select {
		case c := <-reloaded:
			if c.Discovery.Timeout == "9s" {
				return
			}

		case <-deadline:
			t.Fatal("Configuration was not reloaded")
		}
	}
}
