// Package ranges models the IP range documents published by cloud providers
// and reduces them to a single ordered list of prefixes.
package ranges

import (
	"errors"
	"fmt"

	"github.com/anisimovdk/cloud-range-blocker/internal/prefix"
)

var (
	// ErrMissingPrefix is returned for an entry that carries neither an IPv4 nor an IPv6 prefix.
	ErrMissingPrefix = errors.New("neither an ipv4 nor an ipv6 prefix exists")
	// ErrConflictingPrefix is returned for an entry that carries both.
	ErrConflictingPrefix = errors.New("both an ipv4 and an ipv6 prefix exist")
)

// Normalizer is implemented by every provider document.
type Normalizer interface {
	// EntryCount returns the number of raw entries in the document.
	EntryCount() int
	// Prefixes resolves every entry, in document order. The first entry that
	// cannot be resolved aborts the call and no prefixes are returned.
	Prefixes() ([]prefix.Prefix, error)
}

// EntryError reports the position of the entry that failed normalization.
type EntryError struct {
	Index int
	Err   error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("entry %d: %v", e.Index, e.Err)
}

func (e *EntryError) Unwrap() error { return e.Err }

func resolve(v4 *prefix.V4Prefix, v6 *prefix.V6Prefix) (prefix.Prefix, error) {
	switch {
	case v4 != nil && v6 != nil:
		return prefix.Prefix{}, ErrConflictingPrefix
	case v4 != nil:
		return prefix.FromV4(*v4), nil
	case v6 != nil:
		return prefix.FromV6(*v6), nil
	default:
		return prefix.Prefix{}, ErrMissingPrefix
	}
}
