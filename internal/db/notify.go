package db

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay lets a burst of writes to the database and its journal
// finish before data_version is compared.
const settleDelay = 150 * time.Millisecond

// Changes implements watch.Notifier. The first call starts watching the
// database directory; a value is sent when another process commits to the
// database. Writes made through this Store do not signal.
func (s *Store) Changes() <-chan struct{} {
	s.notifyOnce.Do(s.startNotifier)
	return s.changes
}

func (s *Store) startNotifier() {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to create file watcher; external changes will not be detected")
		return
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		s.log.Warn().Err(err).Msg("failed to watch data directory; external changes will not be detected")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer w.Close()

		var settle <-chan time.Time
		for {
			select {
			case <-s.done:
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if s.isDatabaseFile(ev.Name) && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					settle = time.After(settleDelay)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Debug().Err(err).Msg("file watcher error")
			case <-settle:
				settle = nil
				changed, err := s.changedExternally()
				if err != nil {
					s.log.Debug().Err(err).Msg("failed to read data_version")
					continue
				}
				if changed {
					s.signal()
				}
			}
		}
	}()
}

// isDatabaseFile matches the database and its -wal/-journal siblings.
func (s *Store) isDatabaseFile(name string) bool {
	base := filepath.Base(s.path)
	return strings.HasPrefix(filepath.Base(name), base)
}

func (s *Store) signal() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

func (s *Store) readDataVersion() (int64, error) {
	var v int64
	err := s.db.QueryRow("PRAGMA data_version").Scan(&v)
	return v, err
}

// changedExternally reports whether another connection committed since the
// last call.
func (s *Store) changedExternally() (bool, error) {
	v, err := s.readDataVersion()
	if err != nil {
		return false, err
	}
	s.versionMu.Lock()
	defer s.versionMu.Unlock()
	if v == s.dataVersion {
		return false, nil
	}
	s.dataVersion = v
	return true, nil
}
