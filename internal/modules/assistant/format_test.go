package assistant

import (
	"strings"
	"testing"

	"github.com/modular-ai/core/internal/models"
)

func TestFormatResponseMarkdownToHTML(t *testing.T) {
	t.Parallel()

	content, format := formatResponse("# Title\n\nSome **bold** text", true, models.OutputHTML)
	if format != models.OutputHTML {
		t.Fatalf("format = %q, want html", format)
	}
	if !strings.Contains(content, "<h1") || !strings.Contains(content, "<strong>bold</strong>") {
		t.Errorf("markdown was not rendered: %q", content)
	}
}

func TestFormatResponseHTMLSanitized(t *testing.T) {
	t.Parallel()

	content, _ := formatResponse(`<p onclick="x()">hi</p><script>evil()</script>`, false, models.OutputHTML)
	if strings.Contains(content, "script") || strings.Contains(content, "onclick") {
		t.Errorf("dangerous markup survived sanitization: %q", content)
	}
	if !strings.Contains(content, "<p>hi</p>") {
		t.Errorf("safe markup was removed: %q", content)
	}
}

func TestFormatResponsePlainStripsTags(t *testing.T) {
	t.Parallel()

	content, format := formatResponse("<b>answer</b>", false, models.OutputPlain)
	if format != models.OutputPlain {
		t.Fatalf("format = %q, want plain", format)
	}
	if strings.Contains(content, "<b>") {
		t.Errorf("tags survived plain output: %q", content)
	}
	if !strings.Contains(content, "answer") {
		t.Errorf("text content lost: %q", content)
	}
}

func TestFormatResponsePlainPreservesLineBreaks(t *testing.T) {
	t.Parallel()

	content, _ := formatResponse("line one\nline two", false, models.OutputPlain)
	if !strings.Contains(content, "<br />") {
		t.Errorf("newlines not converted to breaks: %q", content)
	}
}

func TestConvertListsToPlainText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unordered dash", "- first\n- second", "first\nsecond"},
		{"unordered star", "* item", "item"},
		{"ordered", "1. one\n2. two", "one\ntwo"},
		{"indented", "  - nested", "nested"},
		{"plain text untouched", "no lists here", "no lists here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := convertListsToPlainText(tt.input); got != tt.want {
				t.Errorf("convertListsToPlainText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestWireOutputFormat(t *testing.T) {
	t.Parallel()

	if got := wireOutputFormat(models.OutputHTML); got != "html" {
		t.Errorf("html output maps to %q", got)
	}
	if got := wireOutputFormat(models.OutputPlain); got != "text" {
		t.Errorf("plain output maps to %q", got)
	}
	if got := wireOutputFormat(""); got != "text" {
		t.Errorf("empty output maps to %q", got)
	}
}
