package parley

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Generation holds the user's generation settings.
type Generation struct {
	Temperature *float64
	MaxTokens   int
	ImageDetail ImageDetail
}

// Prepared is a request ready for dispatch.
type Prepared struct {
	Model        ModelDescriptor
	Request      Request
	PromptTokens int
	Trimmed      bool
}

// Pipeline assembles requests: it resolves the model, trims the canonical
// messages to the context window, adapts them for the provider, and hands
// the result to the Dispatcher.
type Pipeline struct {
	registry   *Registry
	counter    TokenCounter
	trimmer    *Trimmer
	adapter    *Adapter
	resolver   ProviderResolver
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineLogger sets the logger.
func WithPipelineLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// WithTrimmer replaces the default Trimmer built from the counter.
func WithTrimmer(t *Trimmer) PipelineOption {
	return func(p *Pipeline) { p.trimmer = t }
}

// NewPipeline wires the request assembly components together.
func NewPipeline(registry *Registry, counter TokenCounter, adapter *Adapter, resolver ProviderResolver, dispatcher *Dispatcher, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		registry:   registry,
		counter:    counter,
		adapter:    adapter,
		resolver:   resolver,
		dispatcher: dispatcher,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.trimmer == nil {
		p.trimmer = NewTrimmer(counter, WithTrimLogger(p.logger))
	}
	return p
}

// Resolve looks up modelID, returning an *Error of KindModelNotFound when it
// is not registered.
func (p *Pipeline) Resolve(modelID string) (ModelDescriptor, error) {
	m, err := p.registry.Resolve(modelID)
	if err != nil {
		return ModelDescriptor{}, NewError(KindModelNotFound, fmt.Sprintf("Model %q is not available.", modelID), err)
	}
	return m, nil
}

// Prepare builds the provider request for msgs. The prompt is trimmed to the
// model's context window minus the requested completion length; if that is
// impossible, Prepare refuses with KindTokenBudgetUnsatisfiable rather than
// sending an oversized request.
func (p *Pipeline) Prepare(ctx context.Context, modelID string, msgs []Message, gen Generation) (Prepared, error) {
	model, err := p.Resolve(modelID)
	if err != nil {
		return Prepared{}, err
	}
	return p.prepare(ctx, model, msgs, gen)
}

func (p *Pipeline) prepare(ctx context.Context, model ModelDescriptor, msgs []Message, gen Generation) (Prepared, error) {
	window := model.ContextWindow()
	res, err := p.trimmer.Trim(msgs, model.ID, window-gen.MaxTokens)
	if err != nil && !errors.Is(err, ErrBudgetUnsatisfiable) {
		return Prepared{}, err
	}
	if total := res.After + gen.MaxTokens; total > window {
		return Prepared{}, NewError(KindTokenBudgetUnsatisfiable,
			fmt.Sprintf("combined prompt and completion tokens (%d + %d = %d) exceeds this model's maximum context window of %d.",
				res.After, gen.MaxTokens, total, window),
			ErrBudgetUnsatisfiable)
	}

	a, err := p.adapter.Adapt(ctx, model, res.Messages, gen.ImageDetail)
	if err != nil {
		return Prepared{}, err
	}
	req := Request{
		Model:       model.ID,
		System:      a.System,
		Messages:    a.Messages,
		MaxTokens:   gen.MaxTokens,
		Temperature: gen.Temperature,
	}
	if err := req.Validate(); err != nil {
		return Prepared{}, err
	}
	return Prepared{Model: model, Request: req, PromptTokens: res.After, Trimmed: res.Trimmed}, nil
}

// Submit dispatches msgs to modelID. Trimming, adaptation, and the provider
// call all run on the dispatcher's worker; their failures reach sink.OnError.
// Submit itself fails only when the model is unknown or a request is already
// in flight.
func (p *Pipeline) Submit(ctx context.Context, modelID string, msgs []Message, gen Generation, sink Sink) (*Call, error) {
	model, err := p.Resolve(modelID)
	if err != nil {
		return nil, err
	}
	snapshot := CloneMessages(msgs)
	job := Job{Model: model, Open: func(ctx context.Context) (Stream, error) {
		prepared, err := p.prepare(ctx, model, snapshot, gen)
		if err != nil {
			return nil, err
		}
		provider, err := p.resolver.Provider(model)
		if err != nil {
			return nil, err
		}
		return provider.Stream(ctx, prepared.Request)
	}}
	return p.dispatcher.Submit(ctx, job, sink)
}

// Cancel cancels the in-flight request, if any.
func (p *Pipeline) Cancel() { p.dispatcher.Cancel() }

// Busy reports whether a request is in flight.
func (p *Pipeline) Busy() bool { return p.dispatcher.Busy() }

// Estimate projects the token usage and price of sending msgs to modelID.
// Images are counted by segmenting user messages for vision models.
func (p *Pipeline) Estimate(ctx context.Context, modelID string, msgs []Message, gen Generation) (CostEstimate, error) {
	model, err := p.Resolve(modelID)
	if err != nil {
		return CostEstimate{}, err
	}
	images := 0
	if model.SupportsVision {
		a, err := p.adapter.Adapt(ctx, model, msgs, gen.ImageDetail)
		if err != nil {
			return CostEstimate{}, err
		}
		images = CountImages(a.Messages)
	}
	return Estimate(model, p.counter.Count(msgs, model.ID), gen.MaxTokens, images, gen.ImageDetail), nil
}

// FileNamingModel is the model asked to suggest chat log names.
const FileNamingModel = "gpt-3.5-turbo"

// fileNamingBudget caps the prompt sent for a name suggestion.
const fileNamingBudget = 4096

const fileNamingInstruction = "The user is saving this chat log. In your next message, please write only a suggested name for the file. " +
	"It should be in the format 'file-name-is-separated-by-hyphens', it should be descriptive of the chat you had with the user, " +
	"and it should be very concise - no more than 4 words (and ideally just 2 or 3). " +
	"Do not acknowledge this system message with any additional words, please simply write the suggested filename."

// SuggestFileName asks FileNamingModel for a short hyphenated name for the
// conversation. It blocks until the reply is complete.
func (p *Pipeline) SuggestFileName(ctx context.Context, msgs []Message) (string, error) {
	model, err := p.Resolve(FileNamingModel)
	if err != nil {
		return "", err
	}
	prompt := append(CloneMessages(msgs), Message{Role: RoleSystem, Content: fileNamingInstruction})
	res, err := p.trimmer.Trim(prompt, model.ID, fileNamingBudget)
	if err != nil {
		// Over budget: send the best-effort prompt anyway.
		p.logger.Debug("file name prompt over budget", "model", model.ID, "tokens", res.After, "budget", fileNamingBudget, "error", err)
	}

	provider, err := p.resolver.Provider(model)
	if err != nil {
		return "", err
	}
	stream, err := provider.Stream(ctx, Request{Model: model.ID, Messages: PassThrough(res.Messages)})
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var b strings.Builder
	for {
		ev, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		if e, ok := ev.(EventTextDelta); ok {
			b.WriteString(e.Delta)
		}
	}
	return strings.TrimSpace(b.String()), nil
}
