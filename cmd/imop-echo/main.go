// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// imop-echo connects to a hub and echoes all incoming messages and requests.
package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/imoperator-go/pkg/agent"
	"github.com/dtn7/imoperator-go/pkg/config"
	"github.com/dtn7/imoperator-go/pkg/cron"
	"github.com/dtn7/imoperator-go/pkg/session"
	"github.com/dtn7/imoperator-go/pkg/storage"
)

// waitSigint blocks the current thread until a SIGINT appears.
func waitSigint() {
	signalSyn := make(chan os.Signal, 1)
	signal.Notify(signalSyn, os.Interrupt)
	<-signalSyn
}

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("Usage: %s configuration.toml", os.Args[0])
	}

	conf, err := config.Load(os.Args[1])
	if err != nil {
		log.WithError(err).Fatal("Failed to parse config")
	}
	conf.Logging.Apply()

	var opts []session.Option
	var store *storage.Store
	if conf.Roster.Store != "" {
		if store, err = storage.NewStore(conf.Roster.Store); err != nil {
			log.WithError(err).Fatal("Failed to open roster store")
		}
		opts = append(opts, session.WithRoster(store))
	}

	jobs := cron.NewCron()
	if forgetAfter, _ := conf.Roster.ForgetAfterDuration(); store != nil && forgetAfter > 0 {
		forgetStale := func() { store.ForgetStale(time.Now().Add(-forgetAfter)) }
		forgetStale()

		if err := jobs.Register("forget-stale", forgetStale, time.Hour); err != nil {
			log.WithError(err).Fatal("Failed to schedule roster cleanup")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	s, err := agent.DialSession(ctx, conf, opts...)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("Failed to connect")
	}

	echo, err := agent.NewEcho(s)
	if err != nil {
		log.WithError(err).Fatal("Failed to start echo agent")
	}

	watcher, err := config.Watch(os.Args[1], func(c config.Config) {
		c.Logging.Apply()
		log.Info("Reloaded logging configuration")
	})
	if err != nil {
		log.WithError(err).Warn("Failed to watch config, hot reloading is disabled")
	}

	log.WithField("address", s.LocalAddress()).Info("Echo agent is running")

	waitSigint()
	log.Info("Shutting down..")

	if watcher != nil {
		_ = watcher.Close()
	}

	jobs.Stop()

	echo.Close(s)
	if err := s.Close(); err != nil {
		log.WithError(err).Warn("Closing session errored")
	}

	if store != nil {
		if err := store.Close(); err != nil {
			log.WithError(err).Warn("Closing roster store errored")
		}
	}
}
