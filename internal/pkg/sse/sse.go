// Package sse provides Server-Sent Events plumbing: a line decoder for
// consuming upstream event streams and a writer for producing them.
package sse

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxLineBytes bounds a single SSE line; chat completion deltas are small
// but error payloads can carry whole response bodies.
const maxLineBytes = 1 << 20

// Decoder incrementally parses "data: <payload>" lines from an SSE stream.
// Bytes are pulled from the reader only as the consumer advances.
type Decoder struct {
	scanner  *bufio.Scanner
	sentinel string
	done     bool
}

// NewDecoder wraps r. When sentinel is non-empty, a data line carrying
// exactly that payload terminates the stream without being yielded.
func NewDecoder(r io.Reader, sentinel string) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	return &Decoder{scanner: scanner, sentinel: sentinel}
}

// Next returns the payload of the next data line. It skips blank lines,
// comments and non-data fields. Returns io.EOF when the stream is exhausted
// or the sentinel is seen.
func (d *Decoder) Next() ([]byte, error) {
	if d.done {
		return nil, io.EOF
	}
	for d.scanner.Scan() {
		line := strings.TrimSpace(d.scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if d.sentinel != "" && data == d.sentinel {
			d.done = true
			return nil, io.EOF
		}
		return []byte(data), nil
	}
	d.done = true
	if err := d.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Writer emits SSE events on an HTTP response, flushing after each one.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter sets SSE headers on w and returns a Writer. Fails when the
// response writer cannot flush, since unflushed events defeat streaming.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering

	return &Writer{w: w, flusher: flusher}, nil
}

// Send marshals v and writes it as a single "data: <json>" event.
func (w *Writer) Send(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal sse event: %w", err)
	}
	if _, err := fmt.Fprintf(w.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("write sse event: %w", err)
	}
	w.flusher.Flush()
	return nil
}
