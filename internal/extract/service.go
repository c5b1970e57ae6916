package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spherical/pdf-transcriber/internal/aggregate"
	"github.com/spherical/pdf-transcriber/internal/domain"
	"github.com/spherical/pdf-transcriber/internal/observability"
)

// Result summarizes a completed run
type Result struct {
	RunID      string
	OutputPath string
	Pages      []domain.PageResult
	Duration   time.Duration
}

// Service runs the render -> extract -> aggregate pipeline
type Service struct {
	renderer  domain.Renderer
	extractor domain.Extractor
	logger    *observability.Logger
}

// NewService creates a new pipeline service
func NewService(renderer domain.Renderer, extractor domain.Extractor, logger *observability.Logger) *Service {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Service{
		renderer:  renderer,
		extractor: extractor,
		logger:    logger.WithComponent("extract"),
	}
}

// Process renders every page of pdfPath, transcribes the pages one at a time
// in page order and writes the combined text to outputPath.
// Any failure stops the run before outputPath is touched.
func (s *Service) Process(ctx context.Context, pdfPath, outputPath string, eventCh chan<- domain.StreamEvent) (*Result, error) {
	startTime := time.Now()
	runID := uuid.NewString()
	logger := s.logger.WithRun(runID)

	s.emitEvent(eventCh, domain.StreamEvent{
		Type:      domain.EventStart,
		Payload:   fmt.Sprintf("Starting extraction of %s", pdfPath),
		Timestamp: time.Now(),
	})

	logger.Info().Str("path", pdfPath).Msg("Rendering PDF pages")
	images, err := s.renderer.Render(ctx, pdfPath)
	if err != nil {
		return nil, s.fail(eventCh, logger, "Rendering failed", err)
	}

	logger.Info().Int("pages", len(images)).Msg("Rendered pages")
	s.emitEvent(eventCh, domain.StreamEvent{
		Type:       domain.EventRendered,
		TotalPages: len(images),
		Payload:    fmt.Sprintf("Rendered %d pages", len(images)),
		Timestamp:  time.Now(),
	})

	agg := aggregate.New()
	results := make([]domain.PageResult, 0, len(images))

	for _, image := range images {
		select {
		case <-ctx.Done():
			return nil, s.fail(eventCh, logger, "Run cancelled", ctx.Err())
		default:
		}

		s.emitEvent(eventCh, domain.StreamEvent{
			Type:       domain.EventPageProcessing,
			PageNumber: image.PageNumber,
			TotalPages: len(images),
			ImagePath:  image.ImagePath,
			Payload:    fmt.Sprintf("Processing page %d: %s", image.PageNumber, image.ImagePath),
			Timestamp:  time.Now(),
		})

		pageStart := time.Now()
		text, err := s.extractor.Extract(ctx, image)
		if err != nil {
			err = domain.ExtractionError("model call failed", err).ForPage(image.PageNumber)
			return nil, s.fail(eventCh, logger, "Page extraction failed", err)
		}

		if err := agg.Add(image.PageNumber, text); err != nil {
			return nil, s.fail(eventCh, logger, "Page out of order", err)
		}

		result := domain.PageResult{
			PageNumber: image.PageNumber,
			ImagePath:  image.ImagePath,
			Text:       text,
			Duration:   time.Since(pageStart),
		}
		results = append(results, result)

		logger.Info().
			Int("page", image.PageNumber).
			Int("chars", len(text)).
			Dur("elapsed", result.Duration).
			Msg("Page complete")

		s.emitEvent(eventCh, domain.StreamEvent{
			Type:       domain.EventPageComplete,
			PageNumber: image.PageNumber,
			TotalPages: len(images),
			ImagePath:  image.ImagePath,
			Payload:    fmt.Sprintf("Page %d done", image.PageNumber),
			Timestamp:  time.Now(),
		})
	}

	if err := agg.WriteFile(outputPath); err != nil {
		return nil, s.fail(eventCh, logger, "Writing output failed", err)
	}

	duration := time.Since(startTime)
	logger.Info().
		Int("pages", agg.Pages()).
		Str("output", outputPath).
		Dur("elapsed", duration).
		Msg("Extraction complete")

	s.emitEvent(eventCh, domain.StreamEvent{
		Type:       domain.EventComplete,
		TotalPages: len(images),
		Payload:    fmt.Sprintf("Extraction complete, saved to %s", outputPath),
		Timestamp:  time.Now(),
	})

	return &Result{
		RunID:      runID,
		OutputPath: outputPath,
		Pages:      results,
		Duration:   duration,
	}, nil
}

// emitEvent hands an event to the channel without ever blocking the pipeline
func (s *Service) emitEvent(eventCh chan<- domain.StreamEvent, event domain.StreamEvent) {
	if eventCh != nil {
		select {
		case eventCh <- event:
		default:
			s.logger.Warn().Str("event", string(event.Type)).Msg("Event channel full, dropping event")
		}
	}
}

// fail records err with a stack, logs it, emits an error event and returns it.
func (s *Service) fail(eventCh chan<- domain.StreamEvent, logger *observability.Logger, msg string, err error) error {
	err = domain.WithStack(err)
	event := logger.Error().Err(err)
	if page, ok := domain.PageOf(err); ok {
		event = event.Int("page", page)
	}
	event.Msg(msg)
	s.emitError(eventCh, err)
	return err
}

// emitError emits an error event
func (s *Service) emitError(eventCh chan<- domain.StreamEvent, err error) {
	s.emitEvent(eventCh, domain.StreamEvent{
		Type:      domain.EventError,
		Payload:   err.Error(),
		Timestamp: time.Now(),
	})
}
