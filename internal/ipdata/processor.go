package ipdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/anisimovdk/cloud-range-blocker/internal/config"
	"github.com/anisimovdk/cloud-range-blocker/internal/prefix"
	"github.com/anisimovdk/cloud-range-blocker/internal/ranges"
	"github.com/anisimovdk/cloud-range-blocker/internal/version"
)

const maxResponseBytes = 32 << 20 // ip-ranges.json is a few MiB

// HTTPClient interface for making HTTP requests (allows mocking)
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type cacheEntry struct {
	prefixes  []prefix.Prefix
	fetchedAt time.Time
}

// Processor downloads provider feeds, normalizes them and caches the result per provider.
type Processor struct {
	cache        map[string]cacheEntry
	cacheTTL     time.Duration
	fetchTimeout time.Duration
	strict       bool
	dedupe       bool
	snapshotDir  string
	feeds        map[string][]Feed
	mutex        sync.RWMutex
	refresh      singleflight.Group
	httpClient   HTTPClient
	downloader   Downloader
}

// NewProcessor creates a new processor
func NewProcessor(cfg *config.Config) *Processor {
	return NewProcessorWithClient(cfg, http.DefaultClient)
}

// NewProcessorWithClient creates a new processor with a custom HTTP client (useful for testing)
func NewProcessorWithClient(cfg *config.Config, httpClient HTTPClient) *Processor {
	return &Processor{
		cache:        make(map[string]cacheEntry),
		cacheTTL:     cfg.CacheTTL(),
		fetchTimeout: cfg.FetchTimeoutDuration(),
		strict:       cfg.StrictLengths,
		dedupe:       cfg.Dedupe,
		snapshotDir:  cfg.SnapshotDir,
		feeds:        providers,
		httpClient:   httpClient,
		downloader:   newGrabDownloader(),
	}
}

// GetPrefixes returns the normalized prefixes of every feed of provider, in feed order.
// The returned slice is owned by the caller.
func (p *Processor) GetPrefixes(ctx context.Context, provider string) ([]prefix.Prefix, error) {
	provider = strings.ToLower(provider)
	feeds, ok := p.feeds[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	if cached, ok := p.cached(provider); ok {
		return slices.Clone(cached), nil
	}

	// The shared load outlives any single caller; each caller stops waiting on its own ctx.
	loadCtx := context.WithoutCancel(ctx)
	ch := p.refresh.DoChan(provider, func() (any, error) {
		// Another caller may have refreshed while we waited.
		if cached, ok := p.cached(provider); ok {
			return cached, nil
		}

		prefixes, err := p.loadProvider(loadCtx, provider, feeds)
		if err != nil {
			return nil, err
		}

		p.mutex.Lock()
		p.cache[provider] = cacheEntry{prefixes: prefixes, fetchedAt: time.Now()}
		p.mutex.Unlock()
		return prefixes, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("failed to download and process data: %w", res.Err)
		}
		return slices.Clone(res.Val.([]prefix.Prefix)), nil
	}
}

func (p *Processor) cached(provider string) ([]prefix.Prefix, bool) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	entry, ok := p.cache[provider]
	if !ok || time.Since(entry.fetchedAt) >= p.cacheTTL {
		return nil, false
	}
	return entry.prefixes, true
}

func (p *Processor) loadProvider(ctx context.Context, provider string, feeds []Feed) ([]prefix.Prefix, error) {
	var all []prefix.Prefix
	for _, feed := range feeds {
		doc, err := p.fetchFeed(ctx, feed)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", feed.Name, err)
		}

		prefixes, err := doc.Prefixes()
		if err != nil {
			return nil, fmt.Errorf("%s: failed to normalize %d entries: %w", feed.Name, doc.EntryCount(), err)
		}

		if p.strict {
			for _, pfx := range prefixes {
				if err := pfx.Validate(); err != nil {
					return nil, fmt.Errorf("%s: %w", feed.Name, err)
				}
			}
		}

		log.Debug("Feed normalized", "feed", feed.Name, "entries", doc.EntryCount(), "prefixes", len(prefixes))
		all = append(all, prefixes...)
	}

	if p.dedupe {
		before := len(all)
		all = prefix.Dedupe(all)
		log.Debug("Removed duplicate prefixes", "provider", provider, "removed", before-len(all))
	}

	log.Info("Provider ranges processed", "provider", provider, "prefixes", len(all))
	return all, nil
}

func (p *Processor) fetchFeed(ctx context.Context, feed Feed) (ranges.Normalizer, error) {
	ctx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	if p.snapshotDir != "" {
		return p.fetchSnapshot(ctx, feed)
	}

	log.Info("Downloading provider ranges", "feed", feed.Name, "url", feed.URL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 response: %d", resp.StatusCode)
	}

	doc, err := feed.Decode(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	return doc, nil
}

func (p *Processor) fetchSnapshot(ctx context.Context, feed Feed) (ranges.Normalizer, error) {
	path, err := p.downloader.Download(ctx, p.snapshotDir, feed.URL)
	if err != nil {
		return nil, err
	}
	log.Info("Feed snapshot saved", "feed", feed.Name, "path", path)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	doc, err := feed.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("error reading snapshot %s: %w", path, err)
	}
	return doc, nil
}
