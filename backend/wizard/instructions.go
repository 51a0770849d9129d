package wizard

import (
	"fmt"
	"strings"
)

const (
	SystemRole = "You are an expert prompt engineer."

	// NoQuestionsMarker is returned by the service when the goal needs no clarification.
	NoQuestionsMarker = "NONE"

	// DelegateMarker is how delegated answers are rendered in the generation instruction.
	DelegateMarker = "Let AI Answer"

	MaxQuestions = 5
)

func questionsInstruction(goal string) string {
	var b strings.Builder
	b.WriteString("You are a helpful AI prompt engineer.\n\n")
	b.WriteString("The user wants to do the following task:\n")
	b.WriteString(goal)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Based on this, list up to %d short, specific questions you need to ask the user before crafting the best possible AI prompt.\n", MaxQuestions)
	fmt.Fprintf(&b, "If no questions are needed, just return: %s.\n\n", NoQuestionsMarker)
	b.WriteString("Return only the questions in plain text, one per line.\n")
	return b.String()
}

func promptInstruction(goal string, style Style, questions []string, answers map[string]Answer) string {
	var b strings.Builder
	b.WriteString("You are an expert AI prompt engineer.\n\n")
	b.WriteString("The user wants to:\n")
	b.WriteString(goal)
	b.WriteString("\n\n")

	if len(questions) > 0 {
		b.WriteString("Here are some clarifying details:\n")
		for _, q := range questions {
			answer, ok := answers[q]
			if !ok {
				answer = Delegate()
			}
			fmt.Fprintf(&b, "- %s: %s\n", q, renderAnswer(answer))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Preferred prompt style: %s\n\n", style)
	if len(questions) > 0 {
		fmt.Fprintf(&b, "For any answers marked '%s', fill in appropriate defaults instead of repeating the marker.\n\n", DelegateMarker)
	}
	b.WriteString("Your task is to write a clear, detailed prompt that the user can copy and paste into ChatGPT or another AI tool.\n")
	b.WriteString("Do not respond to the request. Instead, write the prompt that should be used.\n")
	b.WriteString("If image generation is involved, write for Midjourney or DALL·E.\n")
	b.WriteString("Only output the final prompt.\n")
	return b.String()
}

func renderAnswer(a Answer) string {
	if a.Delegated || strings.TrimSpace(a.Text) == "" {
		return DelegateMarker
	}
	return a.Text
}

// parseQuestions turns the service response into questions. A nil result means the
// service asked for no clarification.
func parseQuestions(response string) []string {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" || strings.EqualFold(trimmed, NoQuestionsMarker) {
		return nil
	}

	var questions []string
	for _, line := range strings.Split(trimmed, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			questions = append(questions, line)
		}
	}
	return questions
}

// Capture holds the fields of the CAPTURE prompt formula.
type Capture struct {
	Context   string
	Audience  string
	Purpose   string
	Tone      string
	UseCase   string
	Relevance string
	Examples  string
}

func (c Capture) Empty() bool {
	return c == Capture{}
}

func BuildCaptureInstruction(c Capture) string {
	var b strings.Builder
	b.WriteString("Create a prompt using the CAPTURE formula:\n")
	fmt.Fprintf(&b, "- Context: %s\n", c.Context)
	fmt.Fprintf(&b, "- Audience: %s\n", c.Audience)
	fmt.Fprintf(&b, "- Purpose: %s\n", c.Purpose)
	fmt.Fprintf(&b, "- Tone: %s\n", c.Tone)
	fmt.Fprintf(&b, "- Use case: %s\n", c.UseCase)
	fmt.Fprintf(&b, "- Relevance: %s\n", c.Relevance)
	fmt.Fprintf(&b, "- Examples: %s", c.Examples)
	return b.String()
}
