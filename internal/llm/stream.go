package llm

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrEmptyStream is returned when a response carries no completion data at all
	ErrEmptyStream = errors.New("stream ended without any completion data")

	// ErrTruncatedStream is returned when the body ends before [DONE] or a finish reason
	ErrTruncatedStream = errors.New("stream ended before the completion finished")

	// ErrGenerationStopped is returned when the model ends a completion abnormally,
	// e.g. a safety or content filter block
	ErrGenerationStopped = errors.New("generation stopped")
)

// maxLineSize bounds one SSE line
const maxLineSize = 1024 * 1024

// StreamParser handles parsing of Server-Sent Events (SSE) streams
type StreamParser struct {
	scanner *bufio.Scanner
	events  int
}

// NewStreamParser creates a new stream parser
func NewStreamParser(reader io.Reader) *StreamParser {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &StreamParser{scanner: scanner}
}

// StreamChunk represents a single chunk from the stream
type StreamChunk struct {
	Content      string
	FinishReason string
	Done         bool
}

// streamError is the error object some providers send inside the stream
type streamError struct {
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Next reads the next chunk from the stream
func (p *StreamParser) Next() (*StreamChunk, error) {
	for p.scanner.Scan() {
		line := p.scanner.Text()

		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

		if data == "[DONE]" {
			p.events++
			return &StreamChunk{Done: true}, nil
		}

		var se streamError
		if err := json.Unmarshal([]byte(data), &se); err == nil && se.Error != nil {
			return nil, fmt.Errorf("provider error: %s", se.Error.Message)
		}

		var resp Response
		if err := json.Unmarshal([]byte(data), &resp); err != nil {
			// Skip invalid JSON lines
			continue
		}
		p.events++

		if len(resp.Choices) > 0 {
			choice := resp.Choices[0]
			content := choice.Delta.Content
			if content == "" {
				content = choice.Message.Content
			}
			if reason := choice.FinishReason; reason != "" && !normalFinish(reason) {
				return nil, fmt.Errorf("%w: %s", ErrGenerationStopped, reason)
			}
			return &StreamChunk{
				Content:      content,
				FinishReason: choice.FinishReason,
				Done:         choice.FinishReason != "",
			}, nil
		}
	}

	if err := p.scanner.Err(); err != nil {
		return nil, err
	}

	if p.events == 0 {
		return nil, ErrEmptyStream
	}

	return nil, ErrTruncatedStream
}

// normalFinish reports whether a finish reason means the model completed its answer.
// Gemini reports STOP and MAX_TOKENS natively, stop and length through the
// OpenAI-compatible endpoint.
func normalFinish(reason string) bool {
	switch strings.ToLower(reason) {
	case "stop", "length", "max_tokens":
		return true
	}
	return false
}

// ParseAll reads all chunks from the stream and hands their content to fn
func (p *StreamParser) ParseAll(fn func(string)) error {
	for {
		chunk, err := p.Next()
		if err != nil {
			return err
		}

		// Final chunks can still carry content
		if chunk.Content != "" {
			fn(chunk.Content)
		}

		if chunk.Done {
			return nil
		}
	}
}
