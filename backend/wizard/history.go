package wizard

import (
	"fmt"
	"time"
)

const PreviewLength = 100

type HistoryItem struct {
	Index     int
	Preview   string
	Prompt    string
	CreatedAt time.Time
}

// Preview returns the first PreviewLength characters of prompt, followed by an
// ellipsis when the prompt is longer.
func Preview(prompt string) string {
	runes := []rune(prompt)
	if len(runes) <= PreviewLength {
		return prompt
	}
	return string(runes[:PreviewLength]) + "..."
}

// HistoryView projects the history with 1-based indices, oldest first.
func (s *Session) HistoryView() []HistoryItem {
	items := make([]HistoryItem, len(s.History))
	for i, entry := range s.History {
		items[i] = HistoryItem{
			Index:     i + 1,
			Preview:   Preview(entry.Prompt),
			Prompt:    entry.Prompt,
			CreatedAt: entry.CreatedAt,
		}
	}
	return items
}

func (s *Session) HistoryItem(index int) (HistoryItem, error) {
	if index < 1 || index > len(s.History) {
		return HistoryItem{}, fmt.Errorf("history entry %d does not exist, history has %d entries", index, len(s.History))
	}
	return s.HistoryView()[index-1], nil
}
