// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// imop-call sends one request to an agent and prints its reply.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/imoperator-go/pkg/agent"
	"github.com/dtn7/imoperator-go/pkg/config"
	"github.com/dtn7/imoperator-go/pkg/m2m"
	"github.com/dtn7/imoperator-go/pkg/packet"
)

func showHelp() {
	fmt.Printf("imop-call configuration.toml ADDRESS TEXT [TIMEOUT]\n\n")
	fmt.Printf("  sends TEXT as a request to ADDRESS and prints the reply\n\n")
	fmt.Printf("Examples:\n")
	fmt.Printf("  imop-call alice.toml \"echo@example.org/bot\" \"hello world\"\n")
	fmt.Printf("  imop-call alice.toml \"echo@example.org/bot\" \"hello world\" 10s\n")
}

func call(conf config.Config, to packet.Address, text string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s, err := agent.DialSession(ctx, conf)
	if err != nil {
		return err
	}
	defer s.Close()

	req, err := m2m.NewPacket(packet.KindRequest, &m2m.Text{Body: text})
	if err != nil {
		return err
	}

	reply, err := s.Call(ctx, to, req, false, timeout)
	if err != nil {
		return err
	}

	if replyErr := m2m.ReplyError(reply); replyErr != nil {
		return replyErr
	}

	if body, ok := m2m.TextOf(reply); ok {
		fmt.Println(body)
	} else {
		fmt.Printf("%s reply of %d bytes\n", reply.Type, len(reply.Payload))
	}
	return nil
}

func main() {
	args := os.Args[1:]

	if len(args) < 3 || len(args) > 4 {
		showHelp()
		os.Exit(1)
	}

	conf, err := config.Load(args[0])
	if err != nil {
		log.WithError(err).Fatal("Failed to parse config")
	}
	conf.Logging.Apply()

	to, err := packet.ParseAddress(args[1])
	if err != nil {
		log.WithError(err).Fatal("Failed to parse address")
	}

	timeout := 10 * time.Second
	if len(args) == 4 {
		if timeout, err = time.ParseDuration(args[3]); err != nil {
			log.WithError(err).Fatal("Failed to parse timeout")
		}
	}

	if err := call(conf, to, args[2], timeout); err != nil {
		log.WithError(err).Fatal("Call failed")
	}
}
