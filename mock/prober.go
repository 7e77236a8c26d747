package mock

import (
	"context"

	"github.com/fwojciec/parley"
)

// Interface compliance check.
var _ parley.ImageProber = (*ImageProber)(nil)

// ImageProber is a test double for parley.ImageProber.
type ImageProber struct {
	IsImageFn func(ctx context.Context, url string) (bool, error)
}

// IsImage delegates to IsImageFn.
func (p *ImageProber) IsImage(ctx context.Context, url string) (bool, error) {
	return p.IsImageFn(ctx, url)
}

// Images returns an ImageProber that reports exactly the given URLs as images.
func Images(urls ...string) *ImageProber {
	set := make(map[string]bool, len(urls))
	for _, u := range urls {
		set[u] = true
	}
	return &ImageProber{IsImageFn: func(_ context.Context, url string) (bool, error) {
		return set[url], nil
	}}
}
