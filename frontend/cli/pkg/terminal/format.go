package terminal

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"

	"github.com/furisto/promptbuilder/backend/model"
)

var (
	leadingWhitespaceWithANSI  = regexp.MustCompile(`^(?:\x1b\[[0-9;]*m|\s)*`)
	trailingWhitespaceWithANSI = regexp.MustCompile(`(?:\x1b\[[0-9;]*m|\s)*$`)
)

// formatAsMarkdown renders content for the terminal. The raw content is returned
// when rendering fails.
func formatAsMarkdown(content string, width int) string {
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"), // avoid OSC background queries
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}

	out, err := md.Render(content)
	if err != nil {
		return content
	}
	trimmed := trimLeadingWhitespaceWithANSI(out)
	return trimTrailingWhitespaceWithANSI(trimmed)
}

func trimLeadingWhitespaceWithANSI(s string) string {
	return leadingWhitespaceWithANSI.ReplaceAllString(s, "")
}

func trimTrailingWhitespaceWithANSI(s string) string {
	return trailingWhitespaceWithANSI.ReplaceAllString(s, "")
}

// FormatUsage renders token counts and the estimated cost, e.g.
// "1,234 tokens (in 1,000 / out 234) · ~$0.0443".
func FormatUsage(usage model.Usage, pricing model.ModelPricing) string {
	tokens := fmt.Sprintf("%s tokens (in %s / out %s)",
		humanize.Comma(usage.Total()),
		humanize.Comma(usage.InputTokens),
		humanize.Comma(usage.OutputTokens),
	)

	cost := usage.Cost(pricing)
	if cost.IsZero() {
		return tokens
	}
	return fmt.Sprintf("%s · ~$%s", tokens, cost.Round(4).StringFixed(4))
}

func indent(content, indentation string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			lines[i] = indentation + line
		}
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, width int) string {
	if width <= 3 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}

func humanizeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}
