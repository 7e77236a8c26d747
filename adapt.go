package parley

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Placeholder fills the gaps the Anthropic role-alternation repair inserts.
const Placeholder = "<no message>"

// urlPattern matches the http(s) URLs considered for image detection.
var urlPattern = regexp.MustCompile(`https?://[^\s,"{}]+`)

// ImageProber reports whether a URL points at an image. Errors are treated
// as "not an image" by the Adapter.
type ImageProber interface {
	IsImage(ctx context.Context, url string) (bool, error)
}

// Adaptation is a message list reshaped for one provider.
type Adaptation struct {
	Messages []AdaptedMessage

	// System is set when system messages were lifted out of Messages.
	System *string
}

type adaptFunc func(ctx context.Context, model ModelDescriptor, msgs []Message, detail ImageDetail) (Adaptation, error)

// Adapter converts canonical messages into each provider's wire shape.
type Adapter struct {
	prober     ImageProber
	logger     *slog.Logger
	probeLimit int
	table      map[ProviderKind]adaptFunc
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithAdapterLogger sets the logger used for probe failures.
func WithAdapterLogger(l *slog.Logger) AdapterOption {
	return func(a *Adapter) { a.logger = l }
}

// WithProbeLimit bounds the number of concurrent image probes.
func WithProbeLimit(n int) AdapterOption {
	return func(a *Adapter) { a.probeLimit = n }
}

// NewAdapter returns an Adapter that detects images with prober.
func NewAdapter(prober ImageProber, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		prober:     prober,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		probeLimit: 4,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.table = map[ProviderKind]adaptFunc{
		ProviderOpenAICompatible: a.adaptOpenAI,
		ProviderAnthropic:        adaptAnthropic,
		ProviderGoogle:           passThrough,
	}
	return a
}

// Adapt reshapes msgs for model. The only I/O is the best-effort image probe
// for vision models; the returned error is non-nil only when ctx ends first.
func (a *Adapter) Adapt(ctx context.Context, model ModelDescriptor, msgs []Message, detail ImageDetail) (Adaptation, error) {
	fn, ok := a.table[model.Provider]
	if !ok {
		fn = passThrough
	}
	return fn(ctx, model, msgs, detail)
}

func passThrough(_ context.Context, _ ModelDescriptor, msgs []Message, _ ImageDetail) (Adaptation, error) {
	return Adaptation{Messages: PassThrough(msgs)}, nil
}

func adaptAnthropic(_ context.Context, _ ModelDescriptor, msgs []Message, _ ImageDetail) (Adaptation, error) {
	out, system := AdaptAnthropic(msgs)
	return Adaptation{Messages: out, System: &system}, nil
}

func (a *Adapter) adaptOpenAI(ctx context.Context, model ModelDescriptor, msgs []Message, detail ImageDetail) (Adaptation, error) {
	if !model.SupportsVision {
		return Adaptation{Messages: PassThrough(msgs)}, nil
	}
	if !detail.IsValid() {
		detail = ImageDetailLow
	}
	images, err := a.probeAll(ctx, msgs)
	if err != nil {
		return Adaptation{}, err
	}
	out := make([]AdaptedMessage, len(msgs))
	for i, m := range msgs {
		out[i] = AdaptedMessage{Role: m.Role, Content: m.Content, Name: m.Name}
		if m.Role == RoleUser {
			out[i].Blocks = segment(m.Content, detail, images)
		}
	}
	return Adaptation{Messages: out}, nil
}

// SegmentContent splits content into text and image segments, probing every
// URL it contains.
func (a *Adapter) SegmentContent(ctx context.Context, content string, detail ImageDetail) ([]ContentBlock, error) {
	images, err := a.probeAll(ctx, []Message{{Role: RoleUser, Content: content}})
	if err != nil {
		return nil, err
	}
	return segment(content, detail, images), nil
}

// probeAll probes each distinct URL found in user messages concurrently and
// returns the set of URLs that are images. Probe failures count as "not an
// image".
func (a *Adapter) probeAll(ctx context.Context, msgs []Message) (map[string]bool, error) {
	seen := make(map[string]bool)
	var urls []string
	for _, m := range msgs {
		if m.Role != RoleUser {
			continue
		}
		for _, u := range urlPattern.FindAllString(m.Content, -1) {
			if !seen[u] {
				seen[u] = true
				urls = append(urls, u)
			}
		}
	}
	images := make(map[string]bool, len(urls))
	if len(urls) == 0 || a.prober == nil {
		return images, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.probeLimit)
	for _, u := range urls {
		g.Go(func() error {
			ok, err := a.prober.IsImage(gctx, u)
			if err != nil {
				a.logger.Debug("image probe failed, treating as text", "url", u, "error", err)
				return nil
			}
			mu.Lock()
			images[u] = ok
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return images, nil
}

// segment splits content at URLs. URLs found in images become image
// segments; everything else is merged into the adjacent text segment.
func segment(content string, detail ImageDetail, images map[string]bool) []ContentBlock {
	blocks := []ContentBlock{}
	appendText := func(s string) {
		if s == "" {
			return
		}
		if n := len(blocks); n > 0 {
			if t, ok := blocks[n-1].(TextBlock); ok {
				blocks[n-1] = TextBlock{Text: t.Text + s}
				return
			}
		}
		blocks = append(blocks, TextBlock{Text: s})
	}
	prev := 0
	for _, loc := range urlPattern.FindAllStringIndex(content, -1) {
		appendText(content[prev:loc[0]])
		u := content[loc[0]:loc[1]]
		if images[u] {
			blocks = append(blocks, ImageURLBlock{URL: u, Detail: detail})
		} else {
			appendText(u)
		}
		prev = loc[1]
	}
	appendText(content[prev:])
	return blocks
}

// AdaptAnthropic lifts system messages into a newline-joined system text and
// repairs the remainder so that it is non-empty, starts and ends with a user
// message, and strictly alternates roles. Empty messages, system ones
// included, are dropped.
func AdaptAnthropic(msgs []Message) ([]AdaptedMessage, string) {
	var system []string
	out := make([]AdaptedMessage, 0, len(msgs)+2)
	for _, m := range msgs {
		switch {
		case m.Role == RoleSystem:
			if m.Content != "" {
				system = append(system, m.Content)
			}
		case m.Content != "":
			out = append(out, AdaptedMessage{Role: m.Role, Content: m.Content})
		}
	}

	if len(out) == 0 || out[0].Role == RoleAssistant {
		out = append([]AdaptedMessage{{Role: RoleUser, Content: Placeholder}}, out...)
	}
	for i := len(out) - 1; i > 0; i-- {
		if out[i].Role == out[i-1].Role {
			filler := AdaptedMessage{Role: out[i].Role.opposite(), Content: Placeholder}
			out = append(out[:i], append([]AdaptedMessage{filler}, out[i:]...)...)
		}
	}
	if out[len(out)-1].Role == RoleAssistant {
		out = append(out, AdaptedMessage{Role: RoleUser, Content: Placeholder})
	}
	return out, strings.Join(system, "\n")
}

// CountImages returns the number of image segments in msgs.
func CountImages(msgs []AdaptedMessage) int {
	n := 0
	for _, m := range msgs {
		for _, b := range m.Blocks {
			if _, ok := b.(ImageURLBlock); ok {
				n++
			}
		}
	}
	return n
}
