// Package state is the flat-file StateStore backend: two small JSON
// documents, one holding the hash of the last dispatched message and one
// holding the sorted slot-key list it covered.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/courtwatch/courtwatch/internal/domain/slot"
)

const (
	hashFile = "last_sent_hash.json"
	keysFile = "last_slots.json"
	lockFile = "run.lock"
)

var _ slot.StateStore = (*FileStore)(nil)

type FileStore struct {
	dir string
	log *zap.Logger
}

func NewFileStore(dir string, log *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	if log == nil {
		log = zap.L()
	}
	return &FileStore{dir: dir, log: log.With(zap.String("component", "state.file"))}, nil
}

type hashDoc struct {
	Hash string `json:"hash"`
}

// Load reads both documents. A missing or unparsable file yields the
// empty baseline: first run and corruption are both "nothing previously
// observed".
func (s *FileStore) Load(_ context.Context) (slot.ObservedState, error) {
	st := slot.EmptyState()

	if raw, err := os.ReadFile(filepath.Join(s.dir, keysFile)); err == nil {
		var keys []slot.Key
		if jerr := json.Unmarshal(raw, &keys); jerr == nil {
			st.Keys = slot.NewKeySet(keys...)
		} else {
			s.log.Warn("slot-key file unparsable; using empty baseline", zap.Error(jerr))
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		s.log.Warn("slot-key file unreadable; using empty baseline", zap.Error(err))
	}

	if raw, err := os.ReadFile(filepath.Join(s.dir, hashFile)); err == nil {
		var doc hashDoc
		if jerr := json.Unmarshal(raw, &doc); jerr == nil {
			st.LastHash = doc.Hash
		} else {
			s.log.Warn("hash file unparsable; using empty hash", zap.Error(jerr))
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		s.log.Warn("hash file unreadable; using empty hash", zap.Error(err))
	}

	return st, nil
}

func (s *FileStore) Commit(_ context.Context, st slot.ObservedState) error {
	if err := s.writeAtomic(keysFile, st.Keys.Sorted()); err != nil {
		return fmt.Errorf("commit slot keys: %w", err)
	}
	if err := s.writeAtomic(hashFile, hashDoc{Hash: st.LastHash}); err != nil {
		return fmt.Errorf("commit hash: %w", err)
	}
	return nil
}

func (s *FileStore) writeAtomic(name string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := filepath.Join(s.dir, name+".tmp")
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(s.dir, name))
}

// Lock creates an exclusive lockfile carrying the holder's pid. A lock
// whose recorded holder is no longer running is stale (crashed run) and
// gets stolen; a live holder rejects the caller with ErrLocked.
func (s *FileStore) Lock(_ context.Context) (func(), error) {
	path := filepath.Join(s.dir, lockFile)
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, _ = f.WriteString(strconv.Itoa(os.Getpid()))
			_ = f.Close()
			return func() {
				if err := os.Remove(path); err != nil {
					s.log.Warn("remove lockfile", zap.Error(err))
				}
			}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("create lockfile: %w", err)
		}
		if attempt > 0 || !s.lockHolderDead(path) {
			return nil, slot.ErrLocked
		}
		s.log.Warn("removing stale lockfile from a dead holder", zap.String("path", path))
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			return nil, slot.ErrLocked
		}
	}
	return nil, slot.ErrLocked
}

// lockHolderDead reports whether the pid recorded in the lockfile no
// longer names a running process. An unreadable pid counts as dead; a
// permission error on signal 0 means the holder is alive under another
// user.
func (s *FileStore) lockHolderDead(path string) bool {
	raw, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || pid <= 0 {
		return true
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return true
	}
	serr := proc.Signal(syscall.Signal(0))
	return errors.Is(serr, os.ErrProcessDone) || errors.Is(serr, syscall.ESRCH)
}
