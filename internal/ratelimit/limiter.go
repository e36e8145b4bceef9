// Package ratelimit guards logins with a rolling window of failed attempts
// per username, persisted in BadgerDB.
package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const keyPrefix = "attempts/"

// Decision is the outcome of a Check.
type Decision struct {
	Allowed bool
	// Failures counts failed attempts inside the window.
	Failures int
	// RetryAfter is set when Allowed is false.
	RetryAfter time.Duration
}

type Limiter struct {
	db          *badger.DB
	maxFailures int
	window      time.Duration
	now         func() time.Time
}

func NewLimiter(db *badger.DB, maxFailures int, window time.Duration) *Limiter {
	return &Limiter{db: db, maxFailures: maxFailures, window: window, now: time.Now}
}

func key(username string) []byte {
	return []byte(keyPrefix + username)
}

// Check reports whether username may attempt another login.
func (l *Limiter) Check(ctx context.Context, username string) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	var failures []int64
	err := l.db.View(func(txn *badger.Txn) error {
		var err error
		failures, err = l.load(txn, username)
		return err
	})
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit check: %w", err)
	}

	d := Decision{Allowed: true, Failures: len(failures)}
	if len(failures) >= l.maxFailures {
		oldest := time.Unix(failures[0], 0)
		d.Allowed = false
		d.RetryAfter = oldest.Add(l.window).Sub(l.now())
		if d.RetryAfter < time.Second {
			d.RetryAfter = time.Second
		}
	}
	return d, nil
}

// Record stores the outcome of a login attempt. A success clears the
// failure history. Concurrent writers may lose an update; the limit is
// approximate under contention.
func (l *Limiter) Record(ctx context.Context, username string, success bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := l.db.Update(func(txn *badger.Txn) error {
		if success {
			return txn.Delete(key(username))
		}

		failures, err := l.load(txn, username)
		if err != nil {
			return err
		}
		failures = append(failures, l.now().Unix())

		data, err := json.Marshal(failures)
		if err != nil {
			return err
		}
		return txn.SetEntry(badger.NewEntry(key(username), data).WithTTL(l.window))
	})
	if errors.Is(err, badger.ErrConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("rate limit record: %w", err)
	}
	return nil
}

// load returns the failure timestamps still inside the window, oldest first.
func (l *Limiter) load(txn *badger.Txn, username string) ([]int64, error) {
	item, err := txn.Get(key(username))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var stored []int64
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &stored)
	}); err != nil {
		return nil, err
	}

	cutoff := l.now().Add(-l.window).Unix()
	kept := stored[:0]
	for _, ts := range stored {
		if ts > cutoff {
			kept = append(kept, ts)
		}
	}
	return kept, nil
}
