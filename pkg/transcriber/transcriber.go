// Package transcriber is the library entry point: it turns a PDF into one
// text file by rendering each page and asking a vision model to transcribe it.
package transcriber

import (
	"context"

	"github.com/spherical/pdf-transcriber/internal/config"
	"github.com/spherical/pdf-transcriber/internal/domain"
	"github.com/spherical/pdf-transcriber/internal/extract"
	"github.com/spherical/pdf-transcriber/internal/llm"
	"github.com/spherical/pdf-transcriber/internal/observability"
	"github.com/spherical/pdf-transcriber/internal/render"
)

// Re-export event types for public API
type (
	Config      = config.Config
	StreamEvent = domain.StreamEvent
	EventType   = domain.EventType
	PageResult  = domain.PageResult
	Result      = extract.Result
)

// Event type constants
const (
	EventStart          = domain.EventStart
	EventRendered       = domain.EventRendered
	EventPageProcessing = domain.EventPageProcessing
	EventPageChunk      = domain.EventPageChunk
	EventPageComplete   = domain.EventPageComplete
	EventError          = domain.EventError
	EventComplete       = domain.EventComplete
)

// Client is the main entry point for the transcriber library
type Client struct {
	cfg      *config.Config
	service  *extract.Service
	renderer domain.Renderer
}

// Option customizes how a Client is assembled
type Option func(*options)

type options struct {
	logger    *observability.Logger
	extractor domain.Extractor
	renderer  domain.Renderer
	llmOpts   []llm.Option
}

// WithLogger sets the logger shared by every stage
func WithLogger(logger *observability.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithExtractor replaces the model client, e.g. with a stub in tests
func WithExtractor(e domain.Extractor) Option {
	return func(o *options) { o.extractor = e }
}

// WithRenderer replaces the configured rendering backend
func WithRenderer(r domain.Renderer) Option {
	return func(o *options) { o.renderer = r }
}

// WithChunkHandler receives model output as it streams in
func WithChunkHandler(fn func(pageNumber int, chunk string)) Option {
	return func(o *options) { o.llmOpts = append(o.llmOpts, llm.WithChunkHandler(fn)) }
}

// New creates a client for an already loaded and validated configuration
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, domain.ConfigError("configuration is required", nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = observability.Nop()
	}

	renderer := o.renderer
	if renderer == nil {
		r, err := render.NewRenderer(cfg, o.logger)
		if err != nil {
			return nil, err
		}
		renderer = r
	}

	extractor := o.extractor
	if extractor == nil {
		llmOpts := append([]llm.Option{llm.WithLogger(o.logger)}, o.llmOpts...)
		extractor = llm.NewClient(cfg, llmOpts...)
	}

	return &Client{
		cfg:      cfg,
		service:  extract.NewService(renderer, extractor, o.logger),
		renderer: renderer,
	}, nil
}

// Run transcribes the configured input into the configured output.
// eventCh may be nil; it is never closed by Run.
func (c *Client) Run(ctx context.Context, eventCh chan<- StreamEvent) (*Result, error) {
	return c.service.Process(ctx, c.cfg.InputPath, c.cfg.OutputPath, eventCh)
}

// Close releases the rendering backend
func (c *Client) Close() error {
	return c.renderer.Close()
}
