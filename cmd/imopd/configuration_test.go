// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtn7/imoperator-go/pkg/discovery"
)

func writeConfig(t *testing.T, data string) string {
	filename := filepath.Join(t.TempDir(), "imopd.toml")
	require.NoError(t, os.WriteFile(filename, []byte(data), 0600))
	return filename
}

func TestLoadConfig(t *testing.T) {
	filename := writeConfig(t, `
[hub]
listen = "localhost:8080"

[[hub.account]]
address  = "alice@example.org"
password = "secret"

[logging]
level = "debug"

[discovery]
ipv4     = true
announce = ["example.org"]
`)

	conf, err := loadConfig(filename)
	require.NoError(t, err)

	assert.Equal(t, "/ws", conf.Hub.Path)
	require.Len(t, conf.Hub.Account, 1)
	assert.Equal(t, "secret", conf.Hub.Account[0].Password)

	announcements, err := parseAnnouncements(conf)
	require.NoError(t, err)
	assert.Equal(t, []discovery.Announcement{{Service: "example.org", Port: 8080, Path: "/ws"}}, announcements)
}

func TestLoadConfigInvalid(t *testing.T) {
	filename := writeConfig(t, `
[hub]

[[hub.account]]
address = "@"

[logging]
level = "loud"
`)

	_, err := loadConfig(filename)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hub.listen")
	assert.Contains(t, err.Error(), "hub.account 0")
	assert.Contains(t, err.Error(), "logging.level")
}
