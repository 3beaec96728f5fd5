// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// Logging describes the logging-configuration block.
type Logging struct {
	Level        string
	ReportCaller bool `toml:"report-caller"`
	Format       string
}

// CheckValid checks the log level and format.
func (l Logging) CheckValid() error {
	if l.Level != "" {
		if _, err := log.ParseLevel(l.Level); err != nil {
			return fmt.Errorf("logging.level: %v", err)
		}
	}

	switch l.Format {
	case "", "text", "json":
		return nil
	default:
		return fmt.Errorf("logging.format: unknown format %q", l.Format)
	}
}

// Apply configures the global logrus logger.
func (l Logging) Apply() {
	if l.Level != "" {
		if lvl, err := log.ParseLevel(l.Level); err != nil {
			log.WithFields(log.Fields{
				"level":    l.Level,
				"error":    err,
				"provided": "panic,fatal,error,warn,info,debug,trace",
			}).Warn("Failed to set log level. Please select one of the provided ones")
		} else {
			log.SetLevel(lvl)
		}
	}

	log.SetReportCaller(l.ReportCaller)

	switch l.Format {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})

	case "json":
		log.SetFormatter(&log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})

	default:
		log.Warn("Unknown logging format")
	}
}
