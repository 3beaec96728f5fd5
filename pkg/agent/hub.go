// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/imoperator-go/pkg/m2m"
	"github.com/dtn7/imoperator-go/pkg/packet"
)

// Hub is a WebSocket based relay between clients, e.g., Sessions connected through a Dialer. Each client registers
// for an Address, exchanges Packets with other clients and publishes its presence to its subscribers.
//
// Requests addressed to an unregistered Address are answered with an m2m.RecipientUnavailable error.
type Hub struct {
	mutex       sync.Mutex
	clients     map[packet.Address]*hubClient
	available   map[packet.Address]bool
	subscribers map[packet.Address]map[packet.Address]struct{}
	accounts    map[packet.Address]string

	clientMux *MuxAgent
	router    *mux.Router
	upgrader  websocket.Upgrader

	stopSyn   chan struct{}
	stopAck   chan struct{}
	closeOnce sync.Once
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithAccount restricts registrations to the configured accounts. An account is identified by its bare Address,
// allowing multiple resources for the same account. Without any account, each Address might register.
func WithAccount(addr packet.Address, password string) HubOption {
	return func(hub *Hub) {
		hub.accounts[addr.Bare()] = password
	}
}

// NewHub will be started with its handler. The Hub itself is a http.Handler and serves the WebSocket endpoint at
// the given path next to its REST endpoints.
func NewHub(path string, opts ...HubOption) (hub *Hub) {
	hub = &Hub{
		clients:     make(map[packet.Address]*hubClient),
		available:   make(map[packet.Address]bool),
		subscribers: make(map[packet.Address]map[packet.Address]struct{}),
		accounts:    make(map[packet.Address]string),

		clientMux: NewMuxAgent(),
		router:    mux.NewRouter(),
		upgrader:  websocket.Upgrader{},

		stopSyn: make(chan struct{}),
		stopAck: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(hub)
	}

	hub.router.Handle(path, http.HandlerFunc(hub.serveWebSocket))
	hub.router.HandleFunc("/presence/{address:.+}", hub.servePresence).Methods(http.MethodGet)
	hub.router.HandleFunc("/clients", hub.serveClients).Methods(http.MethodGet)

	go hub.handler()

	return
}

func (hub *Hub) log() *log.Entry {
	return log.WithField("hub", fmt.Sprintf("%p", hub))
}

// handler routes all Messages from the connected clients until the MuxAgent closes down.
func (hub *Hub) handler() {
	defer close(hub.stopAck)

	for msg := range hub.clientMux.MessageSender() {
		switch msg := msg.(type) {
		case PacketMessage:
			hub.routePacket(msg.Packet)

		case SubscribeMessage:
			hub.handleSubscribe(msg)

		case PresenceMessage:
			hub.handlePresence(msg)

		case LeaveMessage:
			hub.handleLeave(msg)

		default:
			hub.log().WithField("message", msg).Info("Received unsupported Message")
		}
	}
}

// forward a Message to the clients; dropped when the Hub is closing down.
func (hub *Hub) forward(msg Message) {
	select {
	case hub.clientMux.MessageReceiver() <- msg:
	case <-hub.stopSyn:
		hub.log().WithField("message", msg).Debug("Dropping Message due to shutdown")
	}
}

func (hub *Hub) routePacket(p packet.Packet) {
	hub.mutex.Lock()
	_, hasRecipient := hub.clients[p.To]
	_, hasSender := hub.clients[p.From]
	hub.mutex.Unlock()

	logger := hub.log().WithField("packet", p)

	if hasRecipient {
		logger.Debug("Routing Packet")
		hub.forward(PacketMessage{p})
		return
	}

	if p.Kind != packet.KindRequest || !hasSender {
		logger.Info("Dropping Packet for an unknown recipient")
		return
	}

	reply, err := m2m.NewErrorReply(p, m2m.RecipientUnavailable, fmt.Sprintf("%v is not connected", p.To))
	if err != nil {
		logger.WithError(err).Warn("Creating error reply errored")
		return
	}

	logger.Info("Answering Request for an unknown recipient")
	hub.forward(PacketMessage{reply})
}

func (hub *Hub) handleSubscribe(msg SubscribeMessage) {
	hub.mutex.Lock()
	subs, ok := hub.subscribers[msg.Target]
	if !ok {
		subs = make(map[packet.Address]struct{})
		hub.subscribers[msg.Target] = subs
	}
	subs[msg.Subscriber] = struct{}{}
	available := hub.available[msg.Target]
	hub.mutex.Unlock()

	hub.log().WithFields(log.Fields{
		"subscriber": msg.Subscriber,
		"target":     msg.Target,
		"available":  available,
	}).Debug("Subscribed to presence")

	hub.forward(PresenceMessage{
		Address:     msg.Target,
		Available:   available,
		Ack:         true,
		Subscribers: []packet.Address{msg.Subscriber},
	})
}

// subscribersOf returns the current subscribers of an Address. The mutex must be held.
func (hub *Hub) subscribersOf(addr packet.Address) (subs []packet.Address) {
	for sub := range hub.subscribers[addr] {
		subs = append(subs, sub)
	}
	return
}

func (hub *Hub) handlePresence(msg PresenceMessage) {
	hub.mutex.Lock()
	if _, ok := hub.clients[msg.Address]; !ok {
		hub.mutex.Unlock()
		return
	}
	changed := hub.available[msg.Address] != msg.Available
	hub.available[msg.Address] = msg.Available
	subs := hub.subscribersOf(msg.Address)
	hub.mutex.Unlock()

	hub.log().WithFields(log.Fields{
		"address":   msg.Address,
		"available": msg.Available,
	}).Debug("Presence update")

	if changed && len(subs) > 0 {
		hub.forward(PresenceMessage{Address: msg.Address, Available: msg.Available, Subscribers: subs})
	}
}

func (hub *Hub) handleLeave(msg LeaveMessage) {
	hub.mutex.Lock()
	delete(hub.clients, msg.Address)
	wasAvailable := hub.available[msg.Address]
	delete(hub.available, msg.Address)
	for _, subs := range hub.subscribers {
		delete(subs, msg.Address)
	}
	subs := hub.subscribersOf(msg.Address)
	hub.mutex.Unlock()

	hub.log().WithField("address", msg.Address).Info("Client left")

	if wasAvailable && len(subs) > 0 {
		hub.forward(PresenceMessage{Address: msg.Address, Available: false, Subscribers: subs})
	}
}

// register a client for an Address, checked against the configured accounts.
func (hub *Hub) register(client *hubClient, addr packet.Address, password string) error {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	select {
	case <-hub.stopSyn:
		return errors.New("hub is closing down")
	default:
	}

	if addr.Node == "" || addr.Resource == "" {
		return errors.Errorf("address %v requires both a node and a resource", addr)
	}

	if len(hub.accounts) > 0 {
		if expected, ok := hub.accounts[addr.Bare()]; !ok || expected != password {
			return errors.Errorf("not authorized for %v", addr)
		}
	}

	if _, exists := hub.clients[addr]; exists {
		return errors.Errorf("address %v is already registered", addr)
	}

	hub.clients[addr] = client
	return nil
}

// ServeHTTP serves the WebSocket endpoint and the REST endpoints.
func (hub *Hub) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	hub.router.ServeHTTP(rw, r)
}

func (hub *Hub) serveWebSocket(rw http.ResponseWriter, r *http.Request) {
	select {
	case <-hub.stopSyn:
		http.Error(rw, "hub is closing down", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, connErr := hub.upgrader.Upgrade(rw, r, nil)
	if connErr != nil {
		hub.log().WithError(connErr).Warn("Upgrading HTTP request to WebSocket errored")
		return
	}

	newHubClient(hub, conn).start()
}

func (hub *Hub) servePresence(rw http.ResponseWriter, r *http.Request) {
	var response PresenceResponse

	if addr, err := packet.ParseAddress(mux.Vars(r)["address"]); err != nil {
		response.Error = err.Error()
		rw.WriteHeader(http.StatusBadRequest)
	} else {
		hub.mutex.Lock()
		_, response.Connected = hub.clients[addr]
		response.Available = hub.available[addr]
		hub.mutex.Unlock()

		response.Address = addr.String()
	}

	rw.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(rw).Encode(response); err != nil {
		hub.log().WithError(err).Warn("Writing presence response errored")
	}
}

func (hub *Hub) serveClients(rw http.ResponseWriter, _ *http.Request) {
	var response ClientsResponse
	for _, addr := range hub.Addresses() {
		response.Addresses = append(response.Addresses, addr.String())
	}

	rw.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(rw).Encode(response); err != nil {
		hub.log().WithError(err).Warn("Writing clients response errored")
	}
}

// Addresses of all currently connected clients, sorted by their string representation.
func (hub *Hub) Addresses() []packet.Address {
	addrs := hub.clientMux.Addresses()
	sort.Slice(addrs, func(i, j int) bool {
		return addrs[i].String() < addrs[j].String()
	})
	return addrs
}

// Close all client connections and wait for the handler to finish.
func (hub *Hub) Close() {
	hub.closeOnce.Do(func() {
		hub.log().Info("Hub received a shutdown")

		close(hub.stopSyn)
		hub.clientMux.MessageReceiver() <- ShutdownMessage{}
		<-hub.stopAck
	})
}
