package assistant

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/modular-ai/core/internal/models"
	"github.com/modular-ai/core/internal/pkg/sse"
)

func newStreamFrom(raw string) *ChatStream {
	body := io.NopCloser(strings.NewReader(raw))
	return &ChatStream{body: body, dec: sse.NewDecoder(body, streamDoneSentinel)}
}

func decodeEvents(t *testing.T, body string) []map[string]interface{} {
	t.Helper()
	var events []map[string]interface{}
	dec := sse.NewDecoder(strings.NewReader(body), "")
	for {
		payload, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("decode events: %v", err)
		}
		var event map[string]interface{}
		if err := json.Unmarshal(payload, &event); err != nil {
			t.Fatalf("unmarshal event %q: %v", payload, err)
		}
		events = append(events, event)
	}
	return events
}

func streamTestContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest("POST", "/api/v1/run", nil)
	return c, rec
}

func TestStreamResultReframesUpstream(t *testing.T) {
	t.Parallel()

	upstream := "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n" +
		"data: [DONE]\n\n"

	c, rec := streamTestContext(t)
	runner := newTestRunner(&fakeStore{})
	result := &RunResult{
		Streaming: true,
		Stream:    newStreamFrom(upstream),
		Module: &models.ModuleModel{
			Base:            models.Base{ID: 3},
			MarkdownEnabled: true,
			Output:          models.OutputHTML,
		},
	}

	accumulated, complete := runner.StreamResult(c, result)
	if !complete {
		t.Fatal("stream should complete")
	}
	if accumulated != "Hello" {
		t.Errorf("accumulated = %q", accumulated)
	}

	events := decodeEvents(t, rec.Body.String())
	if len(events) != 4 {
		t.Fatalf("got %d events, want metadata + 2 chunks + done", len(events))
	}
	if events[0]["type"] != "metadata" {
		t.Errorf("first event type = %v", events[0]["type"])
	}
	if events[0]["module_id"] != float64(3) {
		t.Errorf("metadata module_id = %v", events[0]["module_id"])
	}
	if events[0]["output_format"] != "html" {
		t.Errorf("metadata output_format = %v", events[0]["output_format"])
	}
	if events[0]["markdown_enabled"] != true {
		t.Errorf("metadata markdown_enabled = %v", events[0]["markdown_enabled"])
	}
	if events[1]["type"] != "chunk" || events[1]["content"] != "Hel" {
		t.Errorf("second event = %v", events[1])
	}
	if events[3]["type"] != "done" {
		t.Errorf("last event type = %v", events[3]["type"])
	}

	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestStreamResultStopsOnFinishReason(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		upstream string
	}{
		{
			name: "choice level",
			upstream: "data: {\"choices\":[{\"delta\":{\"content\":\"done\"},\"finish_reason\":\"stop\"}]}\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"never\"}}]}\n\n",
		},
		{
			name: "delta level",
			upstream: "data: {\"choices\":[{\"delta\":{\"content\":\"done\",\"finish_reason\":\"stop\"}}]}\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"never\"}}]}\n\n" +
				"data: [DONE]\n\n",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, rec := streamTestContext(t)
			runner := newTestRunner(&fakeStore{})
			result := &RunResult{
				Streaming: true,
				Stream:    newStreamFrom(tt.upstream),
				Module:    &models.ModuleModel{Base: models.Base{ID: 1}},
			}

			accumulated, complete := runner.StreamResult(c, result)
			if !complete {
				t.Fatal("stream should complete")
			}
			if accumulated != "done" {
				t.Errorf("accumulated = %q, chunks after stop must be ignored", accumulated)
			}
			if strings.Contains(rec.Body.String(), "never") {
				t.Error("content after finish_reason stop leaked to the client")
			}
		})
	}
}

func TestReplayCachedEmitsThreeEvents(t *testing.T) {
	t.Parallel()

	c, rec := streamTestContext(t)
	runner := newTestRunner(&fakeStore{})
	runner.ReplayCached(c, &CacheEntry{
		Content:   "cached answer",
		ModuleID:  5,
		Streaming: true,
		Metadata:  &streamCacheMeta{MarkdownEnabled: true, OutputFormat: "html"},
	})

	events := decodeEvents(t, rec.Body.String())
	if len(events) != 3 {
		t.Fatalf("got %d events, want metadata + chunk + done", len(events))
	}
	if events[0]["type"] != "metadata" || events[0]["cached"] != true {
		t.Errorf("metadata event = %v", events[0])
	}
	if events[0]["output_format"] != "html" {
		t.Errorf("output_format = %v", events[0]["output_format"])
	}
	if events[1]["type"] != "chunk" || events[1]["content"] != "cached answer" {
		t.Errorf("chunk event = %v", events[1])
	}
	if events[2]["type"] != "done" {
		t.Errorf("final event = %v", events[2])
	}
}

func TestReplayCachedEmptyContentSkipsChunk(t *testing.T) {
	t.Parallel()

	c, rec := streamTestContext(t)
	runner := newTestRunner(&fakeStore{})
	runner.ReplayCached(c, &CacheEntry{ModuleID: 5, Streaming: true})

	events := decodeEvents(t, rec.Body.String())
	if len(events) != 2 {
		t.Fatalf("got %d events, want metadata + done", len(events))
	}
	if events[1]["type"] != "done" {
		t.Errorf("final event = %v", events[1])
	}
}
