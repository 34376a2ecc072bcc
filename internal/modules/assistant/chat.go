package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/modular-ai/core/internal/config"
	"github.com/modular-ai/core/internal/models"
	"github.com/modular-ai/core/internal/pkg/sse"
)

const streamDoneSentinel = "[DONE]"

// ChatClient talks to OpenAI-compatible chat completion endpoints, in either
// buffered or streamed mode.
type ChatClient struct {
	http       *http.Client
	streamHTTP *http.Client
}

// NewChatClient builds a client with separate timeouts for buffered and
// streamed calls; streamed generations can run long.
func NewChatClient(cfg config.UpstreamConfig) *ChatClient {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout()}
	transport := &http.Transport{
		DialContext:       dialer.DialContext,
		ForceAttemptHTTP2: true,
	}
	return &ChatClient{
		http:       &http.Client{Transport: transport, Timeout: cfg.ChatTimeout()},
		streamHTTP: &http.Client{Transport: transport, Timeout: cfg.StreamTimeout()},
	}
}

// ChatResponse is a decoded buffered completion.
type ChatResponse struct {
	Text    string
	RawBody []byte
	Status  int
}

// Chat issues one buffered chat completion call.
func (c *ChatClient) Chat(ctx context.Context, model *models.ModelModel, messages []ChatMessage) (*ChatResponse, *RunError) {
	if runErr := validateModel(model); runErr != nil {
		return nil, runErr
	}

	resp, runErr := c.post(ctx, c.http, model, messages, false)
	if runErr != nil {
		return nil, runErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, upstreamError(resp.StatusCode, err.Error())
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, upstreamError(resp.StatusCode, extractUpstreamError(body))
	}

	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, upstreamError(resp.StatusCode, fmt.Sprintf("malformed response body: %v", err))
	}
	if len(decoded.Choices) == 0 {
		return nil, upstreamError(resp.StatusCode, extractUpstreamError(body))
	}

	return &ChatResponse{
		Text:    decoded.Choices[0].Message.Content,
		RawBody: body,
		Status:  resp.StatusCode,
	}, nil
}

// OpenStream issues one streamed chat completion call and returns a lazy
// handle over the upstream chunk sequence. The caller must Close it on every
// exit path so the connection is released.
func (c *ChatClient) OpenStream(ctx context.Context, model *models.ModelModel, messages []ChatMessage) (*ChatStream, *RunError) {
	if runErr := validateModel(model); runErr != nil {
		return nil, runErr
	}

	resp, runErr := c.post(ctx, c.streamHTTP, model, messages, true)
	if runErr != nil {
		return nil, runErr
	}

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, upstreamError(resp.StatusCode, extractUpstreamError(body))
	}

	return &ChatStream{
		body: resp.Body,
		dec:  sse.NewDecoder(resp.Body, streamDoneSentinel),
	}, nil
}

func (c *ChatClient) post(ctx context.Context, client *http.Client, model *models.ModelModel, messages []ChatMessage, stream bool) (*http.Response, *RunError) {
	payload, err := json.Marshal(map[string]interface{}{
		"model":    model.ModelID,
		"messages": messages,
		"stream":   stream,
	})
	if err != nil {
		return nil, upstreamError(0, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSpace(model.Endpoint), bytes.NewReader(payload))
	if err != nil {
		return nil, upstreamError(0, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(model.APIKey))
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, upstreamError(0, err.Error())
	}
	return resp, nil
}

func validateModel(model *models.ModelModel) *RunError {
	switch {
	case model == nil || strings.TrimSpace(model.Endpoint) == "":
		return newRunError("missing_endpoint", "Endpoint missing", http.StatusBadRequest)
	case strings.TrimSpace(model.APIKey) == "":
		return newRunError("missing_key", "API key missing", http.StatusBadRequest)
	case strings.TrimSpace(model.ModelID) == "":
		return newRunError("missing_model", "Model ID missing", http.StatusBadRequest)
	}
	return nil
}

func upstreamError(status int, message string) *RunError {
	msg := strings.TrimSpace(message)
	if msg == "" {
		msg = "upstream request failed"
	}
	if status > 0 {
		msg = fmt.Sprintf("request error (HTTP %d): %s", status, msg)
	}
	return newRunError("upstream_error", msg, http.StatusInternalServerError)
}

// extractUpstreamError pulls a human-readable message out of an upstream
// error body: {"error":"..."} or {"error":{"message":"..."}}, falling back
// to the raw body.
func extractUpstreamError(body []byte) string {
	var decoded struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &decoded); err == nil {
		if len(decoded.Error) > 0 {
			var asString string
			if json.Unmarshal(decoded.Error, &asString) == nil && asString != "" {
				return asString
			}
			var asObject struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(decoded.Error, &asObject) == nil && asObject.Message != "" {
				return asObject.Message
			}
		}
		if decoded.Message != "" {
			return decoded.Message
		}
	}
	return strings.TrimSpace(string(body))
}

// ChatChunk is one decoded upstream streaming event. Providers place
// finish_reason either on the choice or inside the delta; both are decoded.
type ChatChunk struct {
	Choices []struct {
		Delta struct {
			Content      string `json:"content"`
			FinishReason string `json:"finish_reason"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Content returns the text fragment of the chunk, if any.
func (c *ChatChunk) Content() string {
	if len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Delta.Content
}

// Stopped reports whether the chunk carries a stop finish reason at either
// level.
func (c *ChatChunk) Stopped() bool {
	if len(c.Choices) == 0 {
		return false
	}
	return c.Choices[0].FinishReason == "stop" || c.Choices[0].Delta.FinishReason == "stop"
}

// ChatStream is a lazy pull-based sequence of upstream chunks. Bytes are
// read from the network only as Next is called.
type ChatStream struct {
	body io.ReadCloser
	dec  *sse.Decoder
}

// Next returns the next decoded chunk. Undecodable data lines are skipped.
// Returns io.EOF when the upstream sent its terminator or closed the stream.
func (s *ChatStream) Next() (*ChatChunk, error) {
	for {
		data, err := s.dec.Next()
		if err != nil {
			return nil, err
		}
		var chunk ChatChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			continue
		}
		return &chunk, nil
	}
}

// Close releases the underlying connection.
func (s *ChatStream) Close() error {
	return s.body.Close()
}
