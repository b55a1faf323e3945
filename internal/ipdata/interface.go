package ipdata

import (
	"context"

	"github.com/anisimovdk/cloud-range-blocker/internal/prefix"
)

// IPProcessor defines the interface for provider range processing
type IPProcessor interface {
	GetPrefixes(ctx context.Context, provider string) ([]prefix.Prefix, error)
}

// Ensure Processor implements IPProcessor
var _ IPProcessor = (*Processor)(nil)
