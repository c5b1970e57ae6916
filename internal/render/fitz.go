package render

import (
	"context"
	"image"

	"github.com/gen2brain/go-fitz"

	"github.com/spherical/pdf-transcriber/internal/domain"
	"github.com/spherical/pdf-transcriber/internal/observability"
)

// FitzRenderer rasterizes pages with MuPDF through go-fitz
type FitzRenderer struct {
	opts      Options
	validator *Validator
	logger    *observability.Logger
}

// NewFitzRenderer creates a MuPDF-backed renderer
func NewFitzRenderer(opts Options, logger *observability.Logger) *FitzRenderer {
	if logger == nil {
		logger = observability.Nop()
	}
	return &FitzRenderer{
		opts:      opts,
		validator: NewValidator(logger),
		logger:    logger.WithComponent("render.fitz"),
	}
}

// Render writes one image per page of pdfPath into the work directory
func (r *FitzRenderer) Render(ctx context.Context, pdfPath string) ([]domain.PageImage, error) {
	if err := r.validator.ValidatePDFPath(pdfPath); err != nil {
		return nil, err
	}

	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, domain.ConversionError("Failed to open PDF", err)
	}
	defer doc.Close()

	r.logger.Info().Str("path", pdfPath).Int("pages", doc.NumPage()).Msg("Opened PDF")

	return rasterize(ctx, fitzSource{doc: doc}, r.opts, r.logger)
}

// Close is a no-op; documents are closed at the end of each Render.
func (r *FitzRenderer) Close() error {
	return nil
}

type fitzSource struct {
	doc *fitz.Document
}

func (s fitzSource) pageCount() (int, error) {
	return s.doc.NumPage(), nil
}

func (s fitzSource) renderPage(index int, dpi float64) (image.Image, error) {
	return s.doc.ImageDPI(index, dpi)
}
