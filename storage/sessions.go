package storage

import (
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"labelmail/utils"
)

// SessionStore keeps fiber sessions in bbolt. It implements fiber.Storage.
// Each value is prefixed with its expiry as unix nanoseconds (0 = never).
type SessionStore struct {
	db      *bbolt.DB
	now     func() time.Time
	done    chan struct{}
	closeMu sync.Once
}

// NewSessionStore wraps db. A positive gcInterval starts a loop that
// drops expired sessions.
func NewSessionStore(db *bbolt.DB, gcInterval time.Duration) *SessionStore {
	s := &SessionStore{
		db:   db,
		now:  time.Now,
		done: make(chan struct{}),
	}
	if gcInterval > 0 {
		go s.gcLoop(gcInterval)
	}
	return s
}

func (s *SessionStore) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket([]byte(sessionsBucket)).Get([]byte(key))
		value, ok := s.decode(raw)
		if !ok {
			return nil
		}
		out = append([]byte(nil), value...)
		return nil
	})
	return out, err
}

func (s *SessionStore) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	var expiresAt int64
	if exp > 0 {
		expiresAt = s.now().Add(exp).UnixNano()
	}
	buf := make([]byte, 8+len(val))
	binary.BigEndian.PutUint64(buf, uint64(expiresAt))
	copy(buf[8:], val)

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(sessionsBucket)).Put([]byte(key), buf)
	})
}

func (s *SessionStore) Delete(key string) error {
	if key == "" {
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(sessionsBucket)).Delete([]byte(key))
	})
}

func (s *SessionStore) Reset() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(sessionsBucket)); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket([]byte(sessionsBucket))
		return err
	})
}

// Close stops the gc loop. The database is owned by the caller.
func (s *SessionStore) Close() error {
	s.closeMu.Do(func() { close(s.done) })
	return nil
}

// decode returns the value part of raw unless it is malformed or expired.
func (s *SessionStore) decode(raw []byte) ([]byte, bool) {
	if len(raw) < 8 {
		return nil, false
	}
	expiresAt := int64(binary.BigEndian.Uint64(raw[:8]))
	if expiresAt != 0 && s.now().UnixNano() >= expiresAt {
		return nil, false
	}
	return raw[8:], true
}

// GC removes expired sessions and returns how many were dropped.
func (s *SessionStore) GC() (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(sessionsBucket))
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			if _, ok := s.decode(v); !ok {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

func (s *SessionStore) gcLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := s.GC()
			if err != nil {
				utils.Log.Error("Session cleanup failed: %v", err)
				continue
			}
			if n > 0 {
				utils.Log.Debug("Removed %d expired sessions", n)
			}
		case <-s.done:
			return
		}
	}
}
