// Package render rasterizes PDF pages into image files on disk.
package render

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/spherical/pdf-transcriber/internal/config"
	"github.com/spherical/pdf-transcriber/internal/domain"
	"github.com/spherical/pdf-transcriber/internal/observability"
)

// Options controls where and how pages are written.
type Options struct {
	WorkDir     string
	DPI         float64
	Ext         string // ".png" or ".jpg"
	JPEGQuality int
}

// OptionsFromConfig derives rendering options from the run configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		WorkDir:     cfg.WorkDir,
		DPI:         cfg.DPI(),
		Ext:         cfg.Renderer.ImageExt(),
		JPEGQuality: cfg.Renderer.JPEGQuality,
	}
}

// NewRenderer creates the renderer selected by renderer.backend.
func NewRenderer(cfg *config.Config, logger *observability.Logger) (domain.Renderer, error) {
	opts := OptionsFromConfig(cfg)
	switch cfg.Renderer.Backend {
	case config.BackendFitz, "":
		return NewFitzRenderer(opts, logger), nil
	case config.BackendPDFium:
		return NewPDFiumRenderer(opts, logger)
	default:
		return nil, domain.ConfigError(fmt.Sprintf("unknown renderer backend %q", cfg.Renderer.Backend), nil)
	}
}

// PagePath returns the image path for a 1-based page number.
func PagePath(workDir string, pageNumber int, ext string) string {
	return filepath.Join(workDir, fmt.Sprintf("page_%d%s", pageNumber, ext))
}

// pageSource is an opened document as seen by a rendering backend.
type pageSource interface {
	pageCount() (int, error)
	renderPage(index int, dpi float64) (image.Image, error)
}

// rasterize renders every page of src into opts.WorkDir, in page order.
func rasterize(ctx context.Context, src pageSource, opts Options, logger *observability.Logger) ([]domain.PageImage, error) {
	pageCount, err := src.pageCount()
	if err != nil {
		return nil, domain.ConversionError("Failed to read page count", err)
	}
	if pageCount == 0 {
		return nil, domain.ValidationError("PDF has no pages", nil)
	}

	if err := os.MkdirAll(opts.WorkDir, 0o755); err != nil {
		return nil, domain.IOError(fmt.Sprintf("Failed to create work directory %s", opts.WorkDir), err)
	}

	encodeOpts := []imaging.EncodeOption{imaging.JPEGQuality(opts.JPEGQuality)}
	images := make([]domain.PageImage, 0, pageCount)

	for index := 0; index < pageCount; index++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		pageNumber := index + 1
		img, err := src.renderPage(index, opts.DPI)
		if err != nil {
			return nil, domain.ConversionError("Failed to render page", err).ForPage(pageNumber)
		}

		outputPath := PagePath(opts.WorkDir, pageNumber, opts.Ext)
		if err := imaging.Save(img, outputPath, encodeOpts...); err != nil {
			return nil, domain.IOError("Failed to save page image", err).ForPage(pageNumber)
		}

		bounds := img.Bounds()
		images = append(images, domain.PageImage{
			PageNumber: pageNumber,
			ImagePath:  outputPath,
			Width:      bounds.Dx(),
			Height:     bounds.Dy(),
		})

		logger.Debug().
			Int("page", pageNumber).
			Str("path", outputPath).
			Int("width", bounds.Dx()).
			Int("height", bounds.Dy()).
			Msg("Rendered page")
	}

	return images, nil
}
