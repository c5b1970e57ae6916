package domain

import "context"

// Renderer defines the interface for rasterizing PDF pages into image files
type Renderer interface {
	// Render writes one image per page and returns them in ascending page order
	Render(ctx context.Context, pdfPath string) ([]PageImage, error)

	// Close releases resources held by the rendering backend
	Close() error
}

// Extractor defines the interface for turning one page image into text
type Extractor interface {
	Extract(ctx context.Context, image PageImage) (string, error)
}
