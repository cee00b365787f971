// Package domain contains the core business entities and value objects.
package domain

import "sync/atomic"

// KeyRotator is a thread-safe round-robin selector over an immutable
// credential pool. It has no concept of "good" vs "exhausted" credentials;
// that judgment belongs to the caller driving the retry loop.
//
// The cursor starts unset: Current fails until the first Next call. Next
// uses a lock-free atomic increment, so concurrent callers always observe
// distinct, monotonically wrapping positions.
type KeyRotator struct {
	keys []string

	// cursor counts completed Next calls. 0 means unset; position in the
	// pool is (cursor-1) mod len(keys).
	cursor atomic.Int64
}

// NewKeyRotator creates a rotator over the given credentials. Empty entries
// are skipped and duplicates collapsed. Returns ErrEmptyCredentialPool when
// nothing usable remains.
func NewKeyRotator(keys []string) (*KeyRotator, error) {
	pool := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		pool = append(pool, k)
	}

	if len(pool) == 0 {
		return nil, ErrEmptyCredentialPool
	}

	return &KeyRotator{keys: pool}, nil
}

// Next advances the cursor by one modulo pool size and returns the
// credential at the new position. It wraps indefinitely.
func (r *KeyRotator) Next() string {
	n := r.cursor.Add(1)
	return r.keys[int((n-1)%int64(len(r.keys)))]
}

// Current returns the credential at the present cursor position without
// advancing. Before any Next call it fails with ErrNoCurrentCredential
// rather than returning a default.
func (r *KeyRotator) Current() (string, error) {
	n := r.cursor.Load()
	if n == 0 {
		return "", ErrNoCurrentCredential
	}
	return r.keys[int((n-1)%int64(len(r.keys)))], nil
}

// Count returns the pool size. Callers use it to bound retry attempts.
func (r *KeyRotator) Count() int {
	return len(r.keys)
}
