package domain

import (
	"fmt"
	"time"
)

// PageImage represents a single rasterized PDF page
type PageImage struct {
	PageNumber int    // 1-based
	ImagePath  string // Path to the rendered image inside the work directory
	Width      int
	Height     int
}

// PageResult is the model output for one page
type PageResult struct {
	PageNumber int
	ImagePath  string
	Text       string
	Duration   time.Duration
}

// PageDelimiter returns the header written before a page's text in the output.
func PageDelimiter(pageNumber int) string {
	return fmt.Sprintf("--- Page %d ---", pageNumber)
}

// EventType represents the type of stream event
type EventType string

const (
	EventStart          EventType = "start"
	EventRendered       EventType = "rendered"
	EventPageProcessing EventType = "page_processing"
	EventPageChunk      EventType = "page_chunk"
	EventPageComplete   EventType = "page_complete"
	EventError          EventType = "error"
	EventComplete       EventType = "complete"
)

// StreamEvent represents an event emitted during processing
type StreamEvent struct {
	Type       EventType   `json:"type"`
	PageNumber int         `json:"page_number,omitempty"`
	TotalPages int         `json:"total_pages,omitempty"`
	ImagePath  string      `json:"image_path,omitempty"`
	Payload    interface{} `json:"payload,omitempty"` // Text chunk or status message
	Timestamp  time.Time   `json:"timestamp"`
}
