// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config reads an agent's TOML configuration.
//
// An example configuration might look like this:
//
//	[connection]
//	host = "localhost"
//	port = 5222
//	service = "example.org"
//	username = "alice"
//	password = "secret"
//	resource = "phone"
//
//	[logging]
//	level = "debug"
//	format = "text"
//
//	[roster]
//	store = "/var/lib/imop/roster"
//	forget-after = "720h"
package config
