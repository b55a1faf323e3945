package ipdata

import (
	"errors"
	"io"
	"sort"

	"github.com/anisimovdk/cloud-range-blocker/internal/ranges"
)

// ErrUnknownProvider is returned for a provider name with no registered feeds.
var ErrUnknownProvider = errors.New("unknown provider")

// Feed is one published range document.
type Feed struct {
	Name   string
	URL    string
	Decode func(io.Reader) (ranges.Normalizer, error)
}

var providers = map[string][]Feed{
	"amazon": {
		{Name: "amazon", URL: "https://ip-ranges.amazonaws.com/ip-ranges.json", Decode: decodeAmazon},
	},
	"google": {
		{Name: "google-cloud", URL: "https://www.gstatic.com/ipranges/cloud.json", Decode: decodeGoogle},
		{Name: "google", URL: "https://www.gstatic.com/ipranges/goog.json", Decode: decodeGoogle},
	},
}

func decodeAmazon(r io.Reader) (ranges.Normalizer, error) {
	doc, err := ranges.DecodeAmazon(r)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeGoogle(r io.Reader) (ranges.Normalizer, error) {
	doc, err := ranges.DecodeGoogle(r)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Providers returns the registered provider names in sorted order.
func Providers() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
