// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watcher reloads a configuration file on changes.
type Watcher struct {
	filename string
	decode   func(filename string) error
	watcher  *fsnotify.Watcher

	stopSyn chan struct{}
	stopAck chan struct{}
}

// Watch a configuration file. After each modification, the file is reloaded and passed to fn, unless it is invalid.
func Watch(filename string, fn func(Config)) (*Watcher, error) {
	return WatchFile(filename, func(filename string) error {
		conf, err := Load(filename)
		if err != nil {
			return err
		}

		fn(conf)
		return nil
	})
}

// WatchFile calls decode for every modification of some file.
//
// The file's directory is watched instead of the file itself, because editors tend to replace files on saving.
func WatchFile(filename string, decode func(filename string) error) (*Watcher, error) {
	filename = filepath.Clean(filename)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(filename)); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	w := &Watcher{
		filename: filename,
		decode:   decode,
		watcher:  watcher,
		stopSyn:  make(chan struct{}),
		stopAck:  make(chan struct{}),
	}

	go w.handler()

	return w, nil
}

func (w *Watcher) handler() {
	defer close(w.stopAck)

	for {
		select {
		case <-w.stopSyn:
			return

		case e, ok := <-w.watcher.Events:
			if !ok {
				w.logClosed("Event")
				return
			}

			if filepath.Clean(e.Name) != w.filename || e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				log.WithFields(log.Fields{
					"file":      e.Name,
					"operation": e.Op.String(),
				}).Trace("Ignoring fsnotify event")
				continue
			}

			if err := w.decode(w.filename); err != nil {
				log.WithError(err).WithField("file", w.filename).Warn("Reloading configuration failed")
			} else {
				log.WithField("file", w.filename).Info("Reloaded configuration")
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				w.logClosed("Errors")
				return
			}

			log.WithError(err).Warn("fsnotify errored")
		}
	}
}

// logClosed reports a closed fsnotify channel, unless this Watcher is closing.
func (w *Watcher) logClosed(channel string) {
	select {
	case <-w.stopSyn:
	default:
		log.Errorf("fsnotify's %s channel was closed", channel)
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	close(w.stopSyn)
	err := w.watcher.Close()
	<-w.stopAck
	return err
}
