// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/imoperator-go/pkg/packet"
)

// hubClient is the Hub's ApplicationAgent for one WebSocket connection.
type hubClient struct {
	sync.Mutex

	hub      *Hub
	conn     *websocket.Conn
	address  packet.Address
	receiver chan Message
	sender   chan Message

	writeMutex sync.Mutex
	closeOnce  sync.Once
}

func newHubClient(hub *Hub, conn *websocket.Conn) *hubClient {
	return &hubClient{
		hub:      hub,
		conn:     conn,
		receiver: make(chan Message),
		sender:   make(chan Message),
	}
}

func (client *hubClient) log() *log.Entry {
	return log.WithField("hub client", client.conn.RemoteAddr().String())
}

// start blocks until the connection is closed.
func (client *hubClient) start() {
	go client.handleReceiver()

	if !client.hub.clientMux.Register(client) {
		client.log().Debug("Hub is closing down, rejecting client")
		_ = client.writeFrame(newStatusFrame(fmt.Errorf("hub is closing down")))
		client.closeConn()
		close(client.receiver)
		return
	}

	client.handleConn()
}

func (client *hubClient) closeConn() {
	client.closeOnce.Do(func() {
		client.log().Debug("Closing connection")
		_ = client.conn.Close()
	})
}

// handleReceiver writes Messages from the Hub to the connection. It drains its receiver until closed, even after
// the connection has failed.
func (client *hubClient) handleReceiver() {
	logger := client.log()

	for msg := range client.receiver {
		var err error

		switch msg := msg.(type) {
		case ShutdownMessage:
			logger.Debug("Received Shutdown")
			client.closeConn()

		case PacketMessage:
			if err = client.writeFrame(newPacketFrame(msg.Packet)); err == nil {
				logger.WithField("packet", msg.Packet).Debug("Sent Packet to client")
			}

		case PresenceMessage:
			err = client.writeFrame(newPresenceFrame(msg.Address, msg.Available, msg.Ack))

		default:
			logger.WithField("message", msg).Info("Received unknown / unsupported message")
		}

		if err != nil {
			logger.WithError(err).WithField("message", msg).Warn("Writing to client errored")
			client.closeConn()
		}
	}
}

// handleConn reads frames from the connection. It is the only one to close the sender.
func (client *hubClient) handleConn() {
	defer func() {
		if addr := client.registeredAddress(); !addr.IsZero() {
			client.sender <- LeaveMessage{Address: addr}
		}
		close(client.sender)
		client.closeConn()
	}()

	logger := client.log()

	for {
		messageType, reader, err := client.conn.NextReader()
		if err != nil {
			var netErr *net.OpError
			if errors.As(err, &netErr) || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.WithError(err).Debug("Reader errored due to closed connection")
			} else {
				logger.WithError(err).Warn("Opening next WebSocket Reader errored")
			}
			return
		} else if messageType != websocket.BinaryMessage {
			logger.WithField("message type", messageType).Warn("WebSocket Reader's type is not binary")
			return
		}

		f, err := unmarshalFrame(reader)
		if err != nil {
			logger.WithError(err).Warn("Unmarshal CBOR errored")
			return
		}

		if f, isRegister := f.(*frameRegister); isRegister {
			regErr := client.handleRegister(f)
			if err := client.writeFrame(newStatusFrame(regErr)); err != nil || regErr != nil {
				logger.WithError(multierror.Append(regErr, err)).Warn("Handling registration errored")
				return
			}
			continue
		}

		addr := client.registeredAddress()
		if addr.IsZero() {
			logger.WithField("frame", f).Warn("Received frame before registration")
			_ = client.writeFrame(newStatusFrame(fmt.Errorf("not registered")))
			return
		}

		switch f := f.(type) {
		case *framePacket:
			p := f.p
			p.From = addr
			logger.WithField("packet", p).Debug("Received Packet")
			client.sender <- PacketMessage{p}

		case *frameSubscribe:
			client.sender <- SubscribeMessage{Subscriber: addr, Target: f.address}

		case *framePresence:
			client.sender <- PresenceMessage{Address: addr, Available: f.available}

		default:
			logger.WithField("frame", f).Info("Received unknown / unsupported frame")
		}
	}
}

func (client *hubClient) handleRegister(f *frameRegister) error {
	client.Lock()
	defer client.Unlock()

	logger := client.log().WithField("address", f.address)

	if !client.address.IsZero() {
		logger.Warn("Register errored, an address is already present")
		return fmt.Errorf("register errored, address %v is already present", client.address)
	}

	if err := client.hub.register(client, f.address, f.password); err != nil {
		logger.WithError(err).Warn("Registration was rejected")
		return err
	}

	logger.Info("Client registered")
	client.address = f.address
	return nil
}

func (client *hubClient) registeredAddress() packet.Address {
	client.Lock()
	defer client.Unlock()

	return client.address
}

func (client *hubClient) writeFrame(f frame) error {
	client.writeMutex.Lock()
	defer client.writeMutex.Unlock()

	wc, wcErr := client.conn.NextWriter(websocket.BinaryMessage)
	if wcErr != nil {
		return wcErr
	}

	if cborErr := marshalFrame(f, wc); cborErr != nil {
		return cborErr
	}

	return wc.Close()
}

func (client *hubClient) Addresses() []packet.Address {
	if addr := client.registeredAddress(); !addr.IsZero() {
		return []packet.Address{addr}
	}
	return nil
}

func (client *hubClient) MessageReceiver() chan Message {
	return client.receiver
}

func (client *hubClient) MessageSender() chan Message {
	return client.sender
}
