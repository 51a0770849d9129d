package terminal

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/furisto/promptbuilder/backend/analytics"
	"github.com/furisto/promptbuilder/backend/export"
	"github.com/furisto/promptbuilder/backend/feedback"
	"github.com/furisto/promptbuilder/backend/model"
	"github.com/furisto/promptbuilder/backend/wizard"
)

var ErrFeedbackUnavailable = errors.New("feedback is not configured")

type screen int

const (
	screenGoal screen = iota
	screenClarify
	screenResult
	screenHistory
	screenFeedback
)

const (
	feedbackName = iota
	feedbackEmail
	feedbackMessage
)

type WizardConfig struct {
	Wizard   *wizard.Wizard
	Session  *wizard.Session
	Exporter *export.Exporter
	// Sink is optional. Without one the feedback form reports ErrFeedbackUnavailable.
	Sink      feedback.Sink
	Pricing   model.ModelPricing
	OutputDir string
	// FormatError renders an error as a single line. Defaults to err.Error().
	FormatError func(error) string
	// Copy writes text to the system clipboard. Defaults to clipboard.WriteAll.
	Copy func(string) error
}

type transitionDoneMsg struct {
	session *wizard.Session
	err     error
}

type feedbackDoneMsg struct {
	err error
}

type Model struct {
	ctx     context.Context
	cfg     WizardConfig
	session *wizard.Session

	screen   screen
	previous screen

	goalInput textarea.Model
	style     int

	answerInputs []textinput.Model
	delegated    []bool
	delegateAll  bool
	focus        int

	resultView viewport.Model

	historyCursor int
	historyOpen   bool

	feedbackInputs []textinput.Model
	feedbackFocus  int

	spinner   spinner.Model
	busy      bool
	busyLabel string
	cancel    context.CancelFunc

	status string
	err    error

	width  int
	height int
}

func NewWizardModel(ctx context.Context, cfg WizardConfig) Model {
	if cfg.Session == nil {
		cfg.Session = wizard.NewSession()
	}
	if cfg.FormatError == nil {
		cfg.FormatError = func(err error) string { return err.Error() }
	}
	if cfg.Copy == nil {
		cfg.Copy = clipboard.WriteAll
	}

	ta := textarea.New()
	ta.Placeholder = "What do you want the AI to do?"
	ta.ShowLineNumbers = false
	ta.CharLimit = 4000
	ta.SetWidth(76)
	ta.SetHeight(4)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	ta.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = activeStepStyle

	m := Model{
		ctx:            ctx,
		cfg:            cfg,
		session:        cfg.Session,
		goalInput:      ta,
		resultView:     viewport.New(76, 12),
		feedbackInputs: newFeedbackInputs(),
		spinner:        sp,
		width:          80,
		height:         24,
	}
	m.enterStep()
	return m
}

// RunWizard starts the interactive wizard and blocks until the user quits. The
// returned session holds everything generated while the program ran.
func RunWizard(ctx context.Context, cfg WizardConfig, opts ...tea.ProgramOption) (*wizard.Session, error) {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	program := tea.NewProgram(NewWizardModel(ctx, cfg), opts...)

	final, err := program.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return nil, err
	}
	if m, ok := final.(Model); ok {
		return m.session, nil
	}
	return cfg.Session, nil
}

func (m Model) Session() *wizard.Session {
	return m.session
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case transitionDoneMsg:
		m.finish()
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.session = msg.session
		m.enterStep()
		return m, nil

	case feedbackDoneMsg:
		m.finish()
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.feedbackInputs = newFeedbackInputs()
		m.feedbackFocus = 0
		m.screen = m.previous
		m.status = "Thank you for your feedback!"
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			if m.busy {
				m.cancel()
				return m, nil
			}
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}

		switch m.screen {
		case screenGoal:
			return m.updateGoal(msg)
		case screenClarify:
			return m.updateClarify(msg)
		case screenResult:
			return m.updateResult(msg)
		case screenHistory:
			return m.updateHistory(msg)
		case screenFeedback:
			return m.updateFeedback(msg)
		}
	}

	return m.updateFocused(msg)
}

func (m Model) updateGoal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		goal := m.goalInput.Value()
		style := m.currentStyle()
		return m, m.run("Looking for clarifying questions", func(ctx context.Context, s *wizard.Session) error {
			return m.cfg.Wizard.SubmitGoal(ctx, s, goal, style)
		})
	case "tab":
		m.style = (m.style + 1) % len(wizard.Styles())
		return m, nil
	case "shift+tab":
		m.style = (m.style + len(wizard.Styles()) - 1) % len(wizard.Styles())
		return m, nil
	case "ctrl+l":
		m.openHistory()
		return m, nil
	case "ctrl+f":
		m.openFeedback()
		return m, nil
	}
	return m.updateFocused(msg)
}

func (m Model) updateClarify(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+d":
		m.delegated[m.focus] = !m.delegated[m.focus]
		return m, nil
	case "ctrl+a":
		m.delegateAll = !m.delegateAll
		return m, nil
	case "tab", "down":
		return m, m.focusAnswer(m.focus + 1)
	case "shift+tab", "up":
		return m, m.focusAnswer(m.focus - 1)
	case "enter":
		if m.focus < len(m.answerInputs)-1 {
			return m, m.focusAnswer(m.focus + 1)
		}
		return m, m.submitAnswers()
	case "ctrl+s":
		return m, m.submitAnswers()
	}
	return m.updateFocused(msg)
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil
	m.status = ""

	switch msg.String() {
	case "r":
		if err := m.cfg.Wizard.Restart(m.session); err != nil {
			m.err = err
			return m, nil
		}
		m.enterStep()
		return m, textarea.Blink
	case "h":
		m.openHistory()
	case "c":
		m.copyPrompt(m.session.GeneratedPrompt)
	case "s":
		m.savePrompt()
	case "p":
		m.exportHistory(export.FormatPDF)
	case "m":
		m.exportHistory(export.FormatMarkdown)
	case "t":
		m.exportHistory(export.FormatText)
	case "f":
		m.openFeedback()
	case "q", "esc":
		return m, tea.Quit
	default:
		var cmd tea.Cmd
		m.resultView, cmd = m.resultView.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateHistory(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil
	m.status = ""
	items := m.session.HistoryView()

	switch msg.String() {
	case "up", "k":
		if m.historyCursor > 0 {
			m.historyCursor--
		}
	case "down", "j":
		if m.historyCursor < len(items)-1 {
			m.historyCursor++
		}
	case "enter":
		m.historyOpen = !m.historyOpen
	case "c":
		if item, err := m.session.HistoryItem(m.historyCursor + 1); err == nil {
			m.copyPrompt(item.Prompt)
		}
	case "p":
		m.exportHistory(export.FormatPDF)
	case "m":
		m.exportHistory(export.FormatMarkdown)
	case "t":
		m.exportHistory(export.FormatText)
	case "esc", "b", "q":
		m.historyOpen = false
		m.screen = m.previous
	}
	return m, nil
}

func (m Model) updateFeedback(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.err = nil
		m.screen = m.previous
		return m, nil
	case "tab", "down":
		return m, m.focusFeedback(m.feedbackFocus + 1)
	case "shift+tab", "up":
		return m, m.focusFeedback(m.feedbackFocus - 1)
	case "enter":
		if m.feedbackFocus < feedbackMessage {
			return m, m.focusFeedback(m.feedbackFocus + 1)
		}
		return m, m.submitFeedback()
	}
	return m.updateFocused(msg)
}

// updateFocused forwards a message to the input that currently has focus.
func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.screen {
	case screenGoal:
		m.goalInput, cmd = m.goalInput.Update(msg)
	case screenClarify:
		if len(m.answerInputs) > 0 {
			m.answerInputs[m.focus], cmd = m.answerInputs[m.focus].Update(msg)
		}
	case screenFeedback:
		m.feedbackInputs[m.feedbackFocus], cmd = m.feedbackInputs[m.feedbackFocus].Update(msg)
	case screenResult:
		m.resultView, cmd = m.resultView.Update(msg)
	}
	return m, cmd
}

// run executes a transition on a copy of the session. The copy replaces the
// session once the transition succeeds, so a failed or canceled call leaves the
// visible state untouched.
func (m *Model) run(label string, transition func(ctx context.Context, s *wizard.Session) error) tea.Cmd {
	ctx, cancel := context.WithCancel(m.ctx)
	m.busy = true
	m.busyLabel = label
	m.cancel = cancel
	m.err = nil
	m.status = ""

	next := m.session.Clone()
	return tea.Batch(func() tea.Msg {
		defer cancel()
		return transitionDoneMsg{session: next, err: transition(ctx, next)}
	}, m.spinner.Tick)
}

func (m *Model) finish() {
	m.busy = false
	m.busyLabel = ""
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *Model) submitAnswers() tea.Cmd {
	questions := m.session.Questions
	answers := make(map[string]wizard.Answer, len(questions))
	if m.delegateAll {
		answers = wizard.DelegateAll(questions)
	} else {
		for i, q := range questions {
			if m.delegated[i] {
				answers[q] = wizard.Delegate()
				continue
			}
			answers[q] = wizard.TextAnswer(m.answerInputs[i].Value())
		}
	}

	return m.run("Writing your prompt", func(ctx context.Context, s *wizard.Session) error {
		return m.cfg.Wizard.SubmitAnswers(ctx, s, answers)
	})
}

func (m *Model) submitFeedback() tea.Cmd {
	submission := feedback.Submission{
		Name:    m.feedbackInputs[feedbackName].Value(),
		Email:   m.feedbackInputs[feedbackEmail].Value(),
		Message: m.feedbackInputs[feedbackMessage].Value(),
	}
	if err := feedback.Validate(submission); err != nil {
		m.err = err
		return nil
	}
	if m.cfg.Sink == nil {
		m.err = ErrFeedbackUnavailable
		return nil
	}

	ctx, cancel := context.WithCancel(m.ctx)
	m.busy = true
	m.busyLabel = "Sending feedback"
	m.cancel = cancel
	m.err = nil

	sink := m.cfg.Sink
	return tea.Batch(func() tea.Msg {
		defer cancel()
		return feedbackDoneMsg{err: feedback.Send(ctx, sink, submission)}
	}, m.spinner.Tick)
}

// enterStep lines the screen up with the step of the session.
func (m *Model) enterStep() {
	switch m.session.Step {
	case wizard.StepGoal:
		m.screen = screenGoal
		m.goalInput.Reset()
		m.goalInput.Focus()
		m.style = max(slices.Index(wizard.Styles(), m.session.Style), 0)
	case wizard.StepClarify:
		m.screen = screenClarify
		m.answerInputs = make([]textinput.Model, len(m.session.Questions))
		for i := range m.session.Questions {
			ti := textinput.New()
			ti.Placeholder = "Leave empty to let AI answer"
			ti.Prompt = "> "
			ti.CharLimit = 1000
			ti.Width = m.inputWidth()
			m.answerInputs[i] = ti
		}
		m.delegated = make([]bool, len(m.session.Questions))
		m.delegateAll = false
		m.focus = 0
		m.focusAnswer(0)
	case wizard.StepResult:
		m.screen = screenResult
		m.resultView.SetContent(m.resultContent())
		m.resultView.GotoTop()
	}
}

func (m *Model) focusAnswer(index int) tea.Cmd {
	if len(m.answerInputs) == 0 {
		return nil
	}
	index = (index + len(m.answerInputs)) % len(m.answerInputs)
	m.answerInputs[m.focus].Blur()
	m.focus = index
	return m.answerInputs[m.focus].Focus()
}

func (m *Model) focusFeedback(index int) tea.Cmd {
	index = (index + len(m.feedbackInputs)) % len(m.feedbackInputs)
	m.feedbackInputs[m.feedbackFocus].Blur()
	m.feedbackFocus = index
	return m.feedbackInputs[m.feedbackFocus].Focus()
}

func (m *Model) openHistory() {
	if len(m.session.History) == 0 {
		m.status = "No prompts generated yet"
		return
	}
	if m.screen != screenHistory && m.screen != screenFeedback {
		m.previous = m.screen
	}
	m.screen = screenHistory
	m.historyCursor = len(m.session.History) - 1
	m.historyOpen = false
}

func (m *Model) openFeedback() {
	if m.screen != screenHistory && m.screen != screenFeedback {
		m.previous = m.screen
	}
	m.screen = screenFeedback
	m.err = nil
	m.focusFeedback(feedbackName)
}

func (m *Model) copyPrompt(prompt string) {
	if err := m.cfg.Copy(prompt); err != nil {
		m.err = fmt.Errorf("copy to clipboard: %w", err)
		return
	}
	m.status = "Copied prompt to clipboard"
}

func (m *Model) savePrompt() {
	path := filepath.Join(m.cfg.OutputDir, export.DefaultPromptFile)
	if err := m.cfg.Exporter.WritePrompt(path, m.session.GeneratedPrompt); err != nil {
		m.err = err
		return
	}
	m.status = "Saved prompt to " + path
}

func (m *Model) exportHistory(format export.Format) {
	base := filepath.Join(m.cfg.OutputDir, export.DefaultHistoryName)
	path, err := m.cfg.Exporter.WriteHistory(base, format, m.session.Prompts())
	if err != nil {
		m.err = err
		return
	}
	analytics.EmitHistoryExported(m.cfg.Wizard.Analytics(), m.session.ID.String(), string(format), len(m.session.History))
	m.status = fmt.Sprintf("Saved %d prompts to %s", len(m.session.History), path)
}

func (m *Model) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.width = width
	m.height = height

	m.goalInput.SetWidth(m.inputWidth())
	for i := range m.answerInputs {
		m.answerInputs[i].Width = m.inputWidth()
	}
	for i := range m.feedbackInputs {
		m.feedbackInputs[i].Width = m.inputWidth()
	}

	m.resultView.Width = m.inputWidth()
	m.resultView.Height = max(height-12, 5)
	if m.screen == screenResult {
		m.resultView.SetContent(m.resultContent())
	}
}

func (m Model) inputWidth() int {
	return max(m.width-4, 20)
}

func (m Model) currentStyle() wizard.Style {
	return wizard.Styles()[m.style]
}

func (m Model) resultContent() string {
	return formatAsMarkdown(m.session.GeneratedPrompt, m.inputWidth()-4)
}

func newFeedbackInputs() []textinput.Model {
	placeholders := []string{"Name (optional)", "Email (optional)", "Message"}
	inputs := make([]textinput.Model, len(placeholders))
	for i, placeholder := range placeholders {
		ti := textinput.New()
		ti.Placeholder = placeholder
		ti.Prompt = "> "
		ti.CharLimit = 2000
		inputs[i] = ti
	}
	return inputs
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Prompt Builder"))
	b.WriteString("\n")
	b.WriteString(m.stepsView())
	b.WriteString("\n\n")

	switch m.screen {
	case screenGoal:
		b.WriteString(m.goalView())
	case screenClarify:
		b.WriteString(m.clarifyView())
	case screenResult:
		b.WriteString(m.resultViewContent())
	case screenHistory:
		b.WriteString(m.historyView())
	case screenFeedback:
		b.WriteString(m.feedbackView())
	}

	b.WriteString("\n")
	switch {
	case m.busy:
		fmt.Fprintf(&b, "\n%s %s %s", m.spinner.View(), m.busyLabel, dimStyle.Render("(ctrl+c to cancel)"))
	case m.err != nil:
		fmt.Fprintf(&b, "\n%s %s", SmallErrorSymbol, errorLineStyle.Render(m.cfg.FormatError(m.err)))
	case m.status != "":
		fmt.Fprintf(&b, "\n%s %s", SuccessSymbol, statusLineStyle.Render(m.status))
	}

	b.WriteString(helpStyle.Render(m.helpView()))
	return b.String()
}

func (m Model) stepsView() string {
	steps := []wizard.Step{wizard.StepGoal, wizard.StepClarify, wizard.StepResult}
	names := []string{"1. Goal", "2. Clarify", "3. Result"}

	parts := make([]string, len(steps))
	for i, step := range steps {
		if step == m.session.Step {
			parts[i] = activeStepStyle.Render(names[i])
		} else {
			parts[i] = stepStyle.Render(names[i])
		}
	}
	return strings.Join(parts, stepStyle.Render(" › "))
}

func (m Model) goalView() string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("What do you want the AI to do?"))
	b.WriteString("\n")
	b.WriteString(m.goalInput.View())
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Style: "))

	styles := wizard.Styles()
	for i, style := range styles {
		if i == m.style {
			b.WriteString(selectedStyle.Render("[" + string(style) + "]"))
		} else {
			b.WriteString(dimStyle.Render(" " + string(style) + " "))
		}
		if i < len(styles)-1 {
			b.WriteString(" ")
		}
	}
	return b.String()
}

func (m Model) clarifyView() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Goal:"), truncate(m.session.Goal, m.inputWidth()-6))
	b.WriteString(dimStyle.Render("Answer what you can. Empty answers are left to the AI."))
	b.WriteString("\n\n")

	allBox := "[ ]"
	if m.delegateAll {
		allBox = "[x]"
	}
	fmt.Fprintf(&b, "%s Let AI answer all questions\n\n", allBox)

	for i, q := range m.session.Questions {
		fmt.Fprintf(&b, "%s %s\n", QuestionSymbol, labelStyle.Render(q))
		if m.delegateAll || m.delegated[i] {
			fmt.Fprintf(&b, "  %s %s\n\n", DelegateSymbol, dimStyle.Render(wizard.DelegateMarker))
			continue
		}
		b.WriteString(indent(m.answerInputs[i].View(), "  "))
		b.WriteString("\n\n")
	}
	return b.String()
}

func (m Model) resultViewContent() string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("Your prompt"))
	b.WriteString("\n")
	b.WriteString(promptBoxStyle.Render(m.resultView.View()))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(FormatUsage(m.session.Usage, m.cfg.Pricing)))
	return b.String()
}

func (m Model) historyView() string {
	items := m.session.HistoryView()

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", labelStyle.Render(fmt.Sprintf("History (%d)", len(items))))
	for i, item := range items {
		line := fmt.Sprintf("%s %s %s", export.Label(item.Index), truncate(item.Preview, m.inputWidth()-30), dimStyle.Render(humanizeTime(item.CreatedAt)))
		if i == m.historyCursor {
			b.WriteString(selectedStyle.Render("> ") + line)
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")

		if i == m.historyCursor && m.historyOpen {
			b.WriteString(indent(promptBoxStyle.Width(m.inputWidth()-4).Render(item.Prompt), "  "))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) feedbackView() string {
	labels := []string{"Name", "Email", "Message"}

	var b strings.Builder
	b.WriteString(labelStyle.Render("Send feedback"))
	b.WriteString("\n\n")
	for i, input := range m.feedbackInputs {
		b.WriteString(labels[i])
		b.WriteString("\n")
		b.WriteString(input.View())
		b.WriteString("\n\n")
	}
	return b.String()
}

func (m Model) helpView() string {
	switch m.screen {
	case screenGoal:
		return "enter submit • alt+enter newline • tab style • ctrl+l history • ctrl+f feedback • ctrl+c quit"
	case screenClarify:
		return "enter next/submit • tab move • ctrl+d let AI answer • ctrl+a let AI answer all • ctrl+s submit • ctrl+c quit"
	case screenResult:
		return "r restart • h history • c copy • s save prompt.txt • p/m/t export pdf/markdown/text • f feedback • q quit"
	case screenHistory:
		return "↑/↓ select • enter expand • c copy • p/m/t export pdf/markdown/text • esc back"
	case screenFeedback:
		return "tab move • enter next/send • esc back"
	}
	return ""
}
