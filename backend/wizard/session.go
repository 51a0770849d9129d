package wizard

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/furisto/promptbuilder/backend/model"
)

type Step int

const (
	StepGoal Step = iota
	StepClarify
	StepResult
)

func (s Step) String() string {
	switch s {
	case StepGoal:
		return "goal"
	case StepClarify:
		return "clarify"
	case StepResult:
		return "result"
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

// Answer is the reply to a single clarifying question. A delegated answer asks the
// completion service to pick a sensible default.
type Answer struct {
	Text      string
	Delegated bool
}

func Delegate() Answer {
	return Answer{Delegated: true}
}

// TextAnswer builds an answer from user input. Blank input is stored as a delegated
// answer so both cases share one representation.
func TextAnswer(text string) Answer {
	text = strings.TrimSpace(text)
	if text == "" {
		return Delegate()
	}
	return Answer{Text: text}
}

type HistoryEntry struct {
	Prompt    string
	Goal      string
	Style     Style
	CreatedAt time.Time
}

type Session struct {
	ID              uuid.UUID
	Step            Step
	Goal            string
	Style           Style
	Questions       []string
	Answers         map[string]Answer
	GeneratedPrompt string
	History         []HistoryEntry
	Usage           model.Usage
}

func NewSession() *Session {
	return &Session{
		ID:      uuid.New(),
		Step:    StepGoal,
		Style:   DefaultStyle,
		Answers: make(map[string]Answer),
	}
}

// Prompts returns the generated prompts in history order.
func (s *Session) Prompts() []string {
	prompts := make([]string, len(s.History))
	for i, entry := range s.History {
		prompts[i] = entry.Prompt
	}
	return prompts
}

func (s *Session) DelegatedCount() int {
	count := 0
	for _, q := range s.Questions {
		if a, ok := s.Answers[q]; !ok || a.Delegated {
			count++
		}
	}
	return count
}

// Clone returns a deep copy, so a transition can run on the copy while the original
// is still being displayed.
func (s *Session) Clone() *Session {
	clone := *s
	clone.Questions = slices.Clone(s.Questions)
	clone.Answers = maps.Clone(s.Answers)
	if clone.Answers == nil {
		clone.Answers = make(map[string]Answer)
	}
	clone.History = slices.Clone(s.History)
	return &clone
}
