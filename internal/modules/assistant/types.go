package assistant

import (
	"context"

	"github.com/modular-ai/core/internal/models"
)

// ModuleStore resolves module configuration. Implementations return
// (nil, nil) when the module does not exist.
type ModuleStore interface {
	FindModule(ctx context.Context, id int64) (*models.ModuleModel, error)
}

// ModelStore resolves upstream model configuration.
type ModelStore interface {
	FindModel(ctx context.Context, id int64) (*models.ModelModel, error)
}

// PageStore resolves content documents referenced as execution context.
type PageStore interface {
	FindPage(ctx context.Context, id int64) (*models.PageModel, error)
}

// RunRequest describes a single module execution.
type RunRequest struct {
	ModuleID int64
	Query    string
	// ContextID optionally names the page the module should analyze.
	ContextID *int64
	ShowCurl  bool
	// StreamingOverride is a tri-state request-level override: nil leaves
	// the module/model hierarchy in charge.
	StreamingOverride *bool
}

// ChatMessage is one turn of the upstream chat exchange.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RunError is a structured execution failure.
type RunError struct {
	Code    string
	Message string
	Status  int
}

func (e *RunError) Error() string { return e.Message }

func newRunError(code, message string, status int) *RunError {
	return &RunError{Code: code, Message: message, Status: status}
}

// RunResult is the outcome of a module execution: either a fully formatted
// buffered response, or a live stream handle plus everything the transport
// layer needs to frame and cache it.
type RunResult struct {
	Streaming bool

	// Buffered mode.
	Content     string
	Format      string
	CurlPreview string

	// Streaming mode. Stream must be closed by the consumer.
	Stream   *ChatStream
	Module   *models.ModuleModel
	Model    *models.ModelModel
	Messages []ChatMessage
	ShowCurl bool
}

// SSE event payloads of the client-facing stream protocol. Exactly one
// metadata event opens a stream; exactly one done or error event ends it.

type MetadataEvent struct {
	Type            string `json:"type"`
	ModuleID        int64  `json:"module_id"`
	MarkdownEnabled bool   `json:"markdown_enabled"`
	OutputFormat    string `json:"output_format"`
	Cached          bool   `json:"cached,omitempty"`
	CurlPreview     string `json:"curl_preview,omitempty"`
}

type ChunkEvent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type DoneEvent struct {
	Type string `json:"type"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func metadataEvent(moduleID int64, markdownEnabled bool, output string, cached bool, curlPreview string) MetadataEvent {
	return MetadataEvent{
		Type:            "metadata",
		ModuleID:        moduleID,
		MarkdownEnabled: markdownEnabled,
		OutputFormat:    wireOutputFormat(output),
		Cached:          cached,
		CurlPreview:     curlPreview,
	}
}

// wireOutputFormat maps the stored output kind to the wire protocol value:
// everything that is not html is announced as plain text.
func wireOutputFormat(output string) string {
	if output == models.OutputHTML {
		return "html"
	}
	return "text"
}
