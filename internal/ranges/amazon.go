package ranges

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/anisimovdk/cloud-range-blocker/internal/prefix"
)

// AmazonRanges mirrors https://ip-ranges.amazonaws.com/ip-ranges.json.
type AmazonRanges struct {
	SyncToken  string        `json:"syncToken"`
	CreateDate string        `json:"createDate"`
	Entries    []AmazonEntry `json:"prefixes"`
	// IPv6Entries is published next to Entries; its items only set ipv6_prefix.
	IPv6Entries []AmazonEntry `json:"ipv6_prefixes,omitempty"`
}

// AmazonEntry is one item of prefixes or ipv6_prefixes. Exactly one prefix field is set.
type AmazonEntry struct {
	IPPrefix           *prefix.V4Prefix `json:"ip_prefix,omitempty"`
	IPv6Prefix         *prefix.V6Prefix `json:"ipv6_prefix,omitempty"`
	Region             string           `json:"region"`
	Service            string           `json:"service"`
	NetworkBorderGroup string           `json:"network_border_group"`
}

var _ Normalizer = (*AmazonRanges)(nil)

// DecodeAmazon reads one ip-ranges.json document.
func DecodeAmazon(r io.Reader) (*AmazonRanges, error) {
	var doc AmazonRanges
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode amazon ranges: %w", err)
	}
	return &doc, nil
}

// EntryCount counts the entries of both the prefixes and ipv6_prefixes lists.
func (r *AmazonRanges) EntryCount() int {
	return len(r.Entries) + len(r.IPv6Entries)
}

// Prefixes resolves prefixes first, then ipv6_prefixes. Entry indexes in
// errors continue across the two lists.
func (r *AmazonRanges) Prefixes() ([]prefix.Prefix, error) {
	out := make([]prefix.Prefix, 0, r.EntryCount())
	for i, entry := range r.Entries {
		p, err := entry.resolve()
		if err != nil {
			return nil, &EntryError{Index: i, Err: err}
		}
		out = append(out, p)
	}
	for i, entry := range r.IPv6Entries {
		p, err := entry.resolve()
		if err != nil {
			return nil, &EntryError{Index: len(r.Entries) + i, Err: err}
		}
		out = append(out, p)
	}
	return out, nil
}

func (e AmazonEntry) resolve() (prefix.Prefix, error) {
	return resolve(e.IPPrefix, e.IPv6Prefix)
}
