package ipdata

import (
	"context"
	"fmt"

	"github.com/cavaliergopher/grab/v3"

	"github.com/anisimovdk/cloud-range-blocker/internal/version"
)

// Downloader saves a remote document into dir and returns the saved file path.
type Downloader interface {
	Download(ctx context.Context, dir, url string) (string, error)
}

type grabDownloader struct {
	client *grab.Client
}

func newGrabDownloader() *grabDownloader {
	client := grab.NewClient()
	client.UserAgent = version.UserAgent()
	return &grabDownloader{client: client}
}

func (d *grabDownloader) Download(ctx context.Context, dir, url string) (string, error) {
	req, err := grab.NewRequest(dir, url)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req = req.WithContext(ctx)
	// Feeds are rewritten in place upstream, so a partial file is never resumable.
	req.NoResume = true

	resp := d.client.Do(req)
	if err := resp.Err(); err != nil {
		return "", fmt.Errorf("failed to download data: %w", err)
	}
	return resp.Filename, nil
}
