package ranges

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/anisimovdk/cloud-range-blocker/internal/prefix"
)

// GoogleRanges mirrors https://www.gstatic.com/ipranges/goog.json and cloud.json.
type GoogleRanges struct {
	SyncToken    string        `json:"syncToken"`
	CreationTime string        `json:"creationTime"`
	Entries      []GoogleEntry `json:"prefixes"`
}

// GoogleEntry carries service and scope only in cloud.json.
type GoogleEntry struct {
	IPv4Prefix *prefix.V4Prefix `json:"ipv4Prefix,omitempty"`
	IPv6Prefix *prefix.V6Prefix `json:"ipv6Prefix,omitempty"`
	Service    *string          `json:"service,omitempty"`
	Scope      *string          `json:"scope,omitempty"`
}

var _ Normalizer = (*GoogleRanges)(nil)

// DecodeGoogle reads one goog.json or cloud.json document.
func DecodeGoogle(r io.Reader) (*GoogleRanges, error) {
	var doc GoogleRanges
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode google ranges: %w", err)
	}
	return &doc, nil
}

// EntryCount returns the number of entries in the prefixes list.
func (r *GoogleRanges) EntryCount() int {
	return len(r.Entries)
}

// Prefixes resolves every entry in order and stops at the first invalid one.
func (r *GoogleRanges) Prefixes() ([]prefix.Prefix, error) {
	out := make([]prefix.Prefix, 0, len(r.Entries))
	for i, entry := range r.Entries {
		p, err := resolve(entry.IPv4Prefix, entry.IPv6Prefix)
		if err != nil {
			return nil, &EntryError{Index: i, Err: err}
		}
		out = append(out, p)
	}
	return out, nil
}
