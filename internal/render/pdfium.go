package render

import (
	"context"
	"image"
	"math"
	"os"
	"time"

	"github.com/disintegration/imaging"
	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"

	"github.com/spherical/pdf-transcriber/internal/domain"
	"github.com/spherical/pdf-transcriber/internal/observability"
)

const instanceTimeout = 30 * time.Second

// PDFiumRenderer rasterizes pages with PDFium compiled to WebAssembly (no CGo)
type PDFiumRenderer struct {
	opts      Options
	validator *Validator
	logger    *observability.Logger
	pool      pdfium.Pool
	instance  pdfium.Pdfium
}

// NewPDFiumRenderer starts a single-worker PDFium pool
func NewPDFiumRenderer(opts Options, logger *observability.Logger) (*PDFiumRenderer, error) {
	if logger == nil {
		logger = observability.Nop()
	}

	// One worker: pages are rendered strictly one after another
	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  1,
		MaxTotal: 1,
	})
	if err != nil {
		return nil, domain.ConversionError("Failed to initialize PDFium", err)
	}

	instance, err := pool.GetInstance(instanceTimeout)
	if err != nil {
		pool.Close()
		return nil, domain.ConversionError("Failed to get PDFium instance", err)
	}

	return &PDFiumRenderer{
		opts:      opts,
		validator: NewValidator(logger),
		logger:    logger.WithComponent("render.pdfium"),
		pool:      pool,
		instance:  instance,
	}, nil
}

// Render writes one image per page of pdfPath into the work directory
func (r *PDFiumRenderer) Render(ctx context.Context, pdfPath string) ([]domain.PageImage, error) {
	if err := r.validator.ValidatePDFPath(pdfPath); err != nil {
		return nil, err
	}

	pdfBytes, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, domain.IOError("Failed to read PDF", err)
	}

	doc, err := r.instance.OpenDocument(&requests.OpenDocument{
		File: &pdfBytes,
	})
	if err != nil {
		return nil, domain.ConversionError("Failed to open PDF", err)
	}
	defer r.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
		Document: doc.Document,
	})

	r.logger.Info().Str("path", pdfPath).Msg("Opened PDF")

	return rasterize(ctx, pdfiumSource{instance: r.instance, doc: doc.Document}, r.opts, r.logger)
}

// Close returns the instance and shuts the pool down
func (r *PDFiumRenderer) Close() error {
	var err error
	if r.instance != nil {
		err = r.instance.Close()
		r.instance = nil
	}
	if r.pool != nil {
		if closeErr := r.pool.Close(); err == nil {
			err = closeErr
		}
		r.pool = nil
	}
	return err
}

type pdfiumSource struct {
	instance pdfium.Pdfium
	doc      references.FPDF_DOCUMENT
}

func (s pdfiumSource) pageCount() (int, error) {
	resp, err := s.instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: s.doc,
	})
	if err != nil {
		return 0, err
	}
	return resp.PageCount, nil
}

func (s pdfiumSource) renderPage(index int, dpi float64) (image.Image, error) {
	rendered, err := s.instance.RenderPageInDPI(&requests.RenderPageInDPI{
		DPI: int(math.Round(dpi)),
		Page: requests.Page{
			ByIndex: &requests.PageByIndex{
				Document: s.doc,
				Index:    index,
			},
		},
	})
	if err != nil {
		return nil, err
	}
	defer rendered.Cleanup()

	// The result buffer lives in WebAssembly memory and is freed by Cleanup
	return imaging.Clone(rendered.Result.Image), nil
}
