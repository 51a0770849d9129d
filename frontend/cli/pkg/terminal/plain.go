package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/furisto/promptbuilder/backend/analytics"
	"github.com/furisto/promptbuilder/backend/export"
	"github.com/furisto/promptbuilder/backend/model"
	"github.com/furisto/promptbuilder/backend/wizard"
)

// PlainRunner drives the wizard over line based input and output, for pipes and
// terminals that cannot host the full screen interface.
type PlainRunner struct {
	Wizard    *wizard.Wizard
	Session   *wizard.Session
	Exporter  *export.Exporter
	Pricing   model.ModelPricing
	OutputDir string
	In        io.Reader
	Out       io.Writer
	// Animate shows a spinner while waiting for the completion service.
	Animate     bool
	FormatError func(error) string

	lines <-chan lineResult
}

type lineResult struct {
	text string
	err  error
}

// Run loops through the wizard until input ends or the user quits.
func (r *PlainRunner) Run(ctx context.Context) error {
	if r.Session == nil {
		r.Session = wizard.NewSession()
	}
	if r.FormatError == nil {
		r.FormatError = func(err error) string { return err.Error() }
	}
	r.lines = readLines(ctx, r.In)

	for {
		var err error
		switch r.Session.Step {
		case wizard.StepGoal:
			err = r.goal(ctx)
		case wizard.StepClarify:
			err = r.clarify(ctx)
		case wizard.StepResult:
			err = r.result(ctx)
		}

		switch {
		case errors.Is(err, io.EOF), errors.Is(err, errQuit):
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			fmt.Fprintf(r.Out, "%s %s\n", SmallErrorSymbol, r.FormatError(err))
		}
	}
}

var errQuit = errors.New("quit")

func (r *PlainRunner) goal(ctx context.Context) error {
	fmt.Fprintf(r.Out, "\n%s What do you want the AI to do? (style: %s)\n", ActionSymbol, r.Session.Style)
	goal, err := r.readLine(ctx, "> ")
	if err != nil {
		return err
	}

	return r.transition(ctx, "Looking for clarifying questions", func(ctx context.Context) error {
		return r.Wizard.SubmitGoal(ctx, r.Session, goal, r.Session.Style)
	})
}

func (r *PlainRunner) clarify(ctx context.Context) error {
	fmt.Fprintf(r.Out, "\n%s A few questions to sharpen the prompt. Leave an answer empty to let AI answer, or type * to let AI answer all remaining questions.\n", InfoSymbol)

	answers := make(map[string]wizard.Answer, len(r.Session.Questions))
	delegateRest := false
	for _, q := range r.Session.Questions {
		if delegateRest {
			answers[q] = wizard.Delegate()
			continue
		}

		fmt.Fprintf(r.Out, "%s %s\n", QuestionSymbol, q)
		line, err := r.readLine(ctx, "> ")
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) == "*" {
			delegateRest = true
			answers[q] = wizard.Delegate()
			continue
		}
		answers[q] = wizard.TextAnswer(line)
	}

	return r.transition(ctx, "Writing your prompt", func(ctx context.Context) error {
		return r.Wizard.SubmitAnswers(ctx, r.Session, answers)
	})
}

func (r *PlainRunner) result(ctx context.Context) error {
	fmt.Fprintf(r.Out, "\n%s Your prompt:\n\n%s\n\n%s\n", SuccessSymbol, r.Session.GeneratedPrompt, FormatUsage(r.Session.Usage, r.Pricing))

	for {
		fmt.Fprintln(r.Out, "\n[r] new prompt  [s] save prompt.txt  [p/m/t] export history as pdf/markdown/text  [l] list history  [q] quit")
		choice, err := r.readLine(ctx, "> ")
		if err != nil {
			return err
		}

		choice = strings.ToLower(strings.TrimSpace(choice))
		switch choice {
		case "r":
			return r.Wizard.Restart(r.Session)
		case "s":
			path := filepath.Join(r.OutputDir, export.DefaultPromptFile)
			if err := r.Exporter.WritePrompt(path, r.Session.GeneratedPrompt); err != nil {
				return err
			}
			fmt.Fprintf(r.Out, "%s Saved prompt to %s\n", SuccessSymbol, path)
		case "p", "m", "t":
			format, _ := export.ParseFormat(map[string]string{"p": "pdf", "m": "markdown", "t": "text"}[choice])
			path, err := r.Exporter.WriteHistory(filepath.Join(r.OutputDir, export.DefaultHistoryName), format, r.Session.Prompts())
			if err != nil {
				return err
			}
			analytics.EmitHistoryExported(r.Wizard.Analytics(), r.Session.ID.String(), string(format), len(r.Session.History))
			fmt.Fprintf(r.Out, "%s Saved %d prompts to %s\n", SuccessSymbol, len(r.Session.History), path)
		case "l":
			for _, item := range r.Session.HistoryView() {
				fmt.Fprintf(r.Out, "%s %s\n", export.Label(item.Index), item.Preview)
			}
		case "q":
			return errQuit
		case "":
		default:
			fmt.Fprintf(r.Out, "%s Unknown choice %q\n", SmallErrorSymbol, choice)
		}
	}
}

func (r *PlainRunner) transition(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	_, err := SpinnerFunc(r.Out, label, func() (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, WithAnimation(r.Animate), WithSuccessMsg(label), WithErrorMsg(label))
	return err
}

func (r *PlainRunner) readLine(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(r.Out, prompt)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-r.lines:
		if !ok {
			return "", io.EOF
		}
		return line.text, line.err
	}
}

// readLines reads from in until it is exhausted or ctx is done. A partial last
// line is still delivered.
func readLines(ctx context.Context, in io.Reader) <-chan lineResult {
	lines := make(chan lineResult)
	send := func(line lineResult) bool {
		select {
		case lines <- line:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(lines)
		reader := bufio.NewReader(in)
		for {
			text, err := reader.ReadString('\n')
			text = strings.TrimRight(text, "\r\n")
			if err != nil {
				if text != "" && !send(lineResult{text: text}) {
					return
				}
				if !errors.Is(err, io.EOF) {
					send(lineResult{err: err})
				}
				return
			}
			if !send(lineResult{text: text}) {
				return
			}
		}
	}()
	return lines
}
