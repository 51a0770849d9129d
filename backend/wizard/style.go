package wizard

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

type Style string

const (
	StyleCreative       Style = "Creative"
	StyleTechnical      Style = "Technical"
	StyleConversational Style = "Conversational"
	StyleConcise        Style = "Concise"
	StyleFormal         Style = "Formal"
	StyleFriendly       Style = "Friendly"

	DefaultStyle = StyleCreative
)

func Styles() []Style {
	return []Style{
		StyleCreative,
		StyleTechnical,
		StyleConversational,
		StyleConcise,
		StyleFormal,
		StyleFriendly,
	}
}

func (s Style) Valid() bool {
	for _, style := range Styles() {
		if s == style {
			return true
		}
	}
	return false
}

// ParseStyle accepts the exact name of a style in any case, or an unambiguous fuzzy
// abbreviation such as "tech" or "conv".
func ParseStyle(input string) (Style, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", &ValidationError{Field: "style", Reason: "style must not be empty"}
	}

	names := make([]string, 0, len(Styles()))
	for _, style := range Styles() {
		if strings.EqualFold(string(style), input) {
			return style, nil
		}
		names = append(names, string(style))
	}

	matches := fuzzy.Find(strings.ToLower(input), lower(names))
	switch {
	case len(matches) == 0:
		return "", &ValidationError{Field: "style", Reason: fmt.Sprintf("unknown style %q, must be one of %s", input, strings.Join(names, ", "))}
	case len(matches) > 1 && matches[0].Score == matches[1].Score:
		return "", &ValidationError{Field: "style", Reason: fmt.Sprintf("style %q is ambiguous", input)}
	}

	return Styles()[matches[0].Index], nil
}

func lower(values []string) []string {
	result := make([]string, len(values))
	for i, v := range values {
		result[i] = strings.ToLower(v)
	}
	return result
}
