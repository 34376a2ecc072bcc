package assistant

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/modular-ai/core/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

var markdownEngine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
	),
)

var (
	// ugcPolicy keeps structural and inline tags, strips scripts, styles
	// and event handler attributes.
	ugcPolicy = bluemonday.UGCPolicy()
	// stripPolicy removes every tag and escapes what remains.
	stripPolicy = bluemonday.StrictPolicy()
)

var (
	unorderedItemPattern = regexp.MustCompile(`(?m)^[\s]*[-*+]\s+(.+)$`)
	orderedItemPattern   = regexp.MustCompile(`(?m)^[\s]*\d+\.\s+(.+)$`)
)

// formatResponse converts raw model output into the module's declared output
// representation. The result is safe to inject into a document as-is.
func formatResponse(text string, markdownEnabled bool, output string) (content, format string) {
	if markdownEnabled {
		text = markdownToHTML(text)
	} else {
		// Models emit markdown list syntax even when asked for plain
		// text; strip the markers so they do not leak into the output.
		text = convertListsToPlainText(text)
	}

	if output == models.OutputHTML {
		return ugcPolicy.Sanitize(text), models.OutputHTML
	}
	return nl2br(stripPolicy.Sanitize(text)), models.OutputPlain
}

// markdownToHTML renders markdown; on failure the unconverted text is
// returned rather than an error.
func markdownToHTML(text string) string {
	var out bytes.Buffer
	if err := markdownEngine.Convert([]byte(text), &out); err != nil {
		return text
	}
	return out.String()
}

// convertListsToPlainText strips markdown list markers while preserving the
// line structure.
func convertListsToPlainText(text string) string {
	text = unorderedItemPattern.ReplaceAllString(text, "$1")
	return orderedItemPattern.ReplaceAllString(text, "$1")
}

func nl2br(text string) string {
	return strings.ReplaceAll(text, "\n", "<br />\n")
}
