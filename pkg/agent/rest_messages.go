// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package agent

// PresenceResponse describes a JSON response for GET /presence/{address}.
type PresenceResponse struct {
	Error     string `json:"error"`
	Address   string `json:"address"`
	Connected bool   `json:"connected"`
	Available bool   `json:"available"`
}

// ClientsResponse describes a JSON response for GET /clients.
type ClientsResponse struct {
	Error     string   `json:"error"`
	Addresses []string `json:"addresses"`
}
