// Package stats summarizes the static catalog: entry count and storage size.
package stats

import (
	"context"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/lehigh-university-libraries/gallery/internal/media"
	"github.com/lehigh-university-libraries/gallery/internal/models"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds the parallel HEAD requests.
const DefaultConcurrency = 8

// Sizer reports the size of a remote resource
type Sizer interface {
	Head(ctx context.Context, url string) (*media.Info, error)
}

// Stats is the catalog summary
type Stats struct {
	TotalEntries   int     `json:"totalImages"`
	TotalStorageMB float64 `json:"totalStorageMB"`
	Estimated      int     `json:"estimated"`
}

// Estimate is the assumed size in bytes of a file whose size could not be read.
func Estimate(locator string) int64 {
	switch models.Extension(locator) {
	case "jpg", "jpeg":
		return 150000
	case "png":
		return 300000
	case "gif":
		return 500000
	case "svg":
		return 10000
	case "mp4", "mov":
		return 2000000
	}
	return 100000
}

// Calculator computes Stats with bounded parallel HEAD requests
type Calculator struct {
	sizer       Sizer
	resolve     func(locator string) string
	concurrency int
}

// NewCalculator creates a calculator. resolve maps a locator to the URL to HEAD.
func NewCalculator(sizer Sizer, resolve func(string) string) *Calculator {
	return &Calculator{
		sizer:       sizer,
		resolve:     resolve,
		concurrency: DefaultConcurrency,
	}
}

// Compute sums the sizes of entries. A missing Content-Length counts as zero;
// a failed HEAD falls back to Estimate.
func (c *Calculator) Compute(ctx context.Context, entries []models.Entry) Stats {
	var total, estimated atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, e := range entries {
		g.Go(func() error {
			info, err := c.sizer.Head(gctx, c.resolve(e.Locator))
			if err != nil {
				slog.Debug("Size lookup failed, using estimate", "locator", e.Locator, "err", err)
				total.Add(Estimate(e.Locator))
				estimated.Add(1)
				return nil
			}
			total.Add(info.Size)
			return nil
		})
	}
	_ = g.Wait()

	return Stats{
		TotalEntries:   len(entries),
		TotalStorageMB: ToMB(total.Load()),
		Estimated:      int(estimated.Load()),
	}
}

// ToMB converts bytes to megabytes rounded to one decimal.
func ToMB(bytes int64) float64 {
	return math.Round(float64(bytes)/(1024*1024)*10) / 10
}
