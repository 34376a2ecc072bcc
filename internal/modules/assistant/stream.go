package assistant

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/modular-ai/core/internal/pkg/sse"
	"go.uber.org/zap"
)

// StreamResult relays an upstream chat stream to the client as application
// SSE events and returns the accumulated text. The boolean reports whether
// the stream completed normally; a partial stream must not be cached.
func (r *Runner) StreamResult(c *gin.Context, result *RunResult) (string, bool) {
	defer result.Stream.Close()

	w, err := sse.NewWriter(c.Writer)
	if err != nil {
		r.log.Error("streaming unsupported by connection", zap.Error(err))
		return "", false
	}

	module := result.Module
	meta := metadataEvent(module.ID, module.MarkdownEnabled, module.Output, false, result.CurlPreview)
	if err := w.Send(meta); err != nil {
		return "", false
	}

	var accumulated string
	for {
		select {
		case <-c.Request.Context().Done():
			r.log.Debug("client disconnected mid-stream", zap.Int64("module_id", module.ID))
			return "", false
		default:
		}

		chunk, err := result.Stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			r.log.Warn("upstream stream failed", zap.Int64("module_id", module.ID), zap.Error(err))
			w.Send(ErrorEvent{Type: "error", Message: "The response stream was interrupted.", Code: "upstream_error"})
			return "", false
		}

		if content := chunk.Content(); content != "" {
			accumulated += content
			if err := w.Send(ChunkEvent{Type: "chunk", Content: content}); err != nil {
				return "", false
			}
		}
		if chunk.Stopped() {
			break
		}
	}

	if err := w.Send(DoneEvent{Type: "done"}); err != nil {
		return accumulated, false
	}
	return accumulated, true
}

// ReplayCached emits a cached streamed result as a minimal three-event
// stream: metadata flagged as cached, one chunk with the full text, done.
func (r *Runner) ReplayCached(c *gin.Context, entry *CacheEntry) {
	w, err := sse.NewWriter(c.Writer)
	if err != nil {
		r.log.Error("streaming unsupported by connection", zap.Error(err))
		return
	}

	meta := MetadataEvent{
		Type:         "metadata",
		ModuleID:     entry.ModuleID,
		Cached:       true,
		OutputFormat: "text",
	}
	if entry.Metadata != nil {
		meta.MarkdownEnabled = entry.Metadata.MarkdownEnabled
		if entry.Metadata.OutputFormat != "" {
			meta.OutputFormat = entry.Metadata.OutputFormat
		}
	}
	if err := w.Send(meta); err != nil {
		return
	}
	if entry.Content != "" {
		if err := w.Send(ChunkEvent{Type: "chunk", Content: entry.Content}); err != nil {
			return
		}
	}
	w.Send(DoneEvent{Type: "done"})
}
