package terminal

import "github.com/charmbracelet/lipgloss"

var (
	infoSymbolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true).
			SetString("ⓘ")

	errorSymbolStyle = lipgloss.NewStyle().
				SetString("❌")

	smallErrorSymbolStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("196")).
				Bold(true).
				SetString("✗")

	warningSymbolStyle = lipgloss.NewStyle().
				SetString("⚠️")

	successSymbolStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("10")).
				Bold(true).
				SetString("✔")

	questionSymbolStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("212")).
				Bold(true).
				SetString("?")

	actionSymbolStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				SetString("▶")

	linkSymbolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75")).
			SetString("→")

	delegateSymbolStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("141")).
				SetString("✦")
)

var (
	// InfoSymbol (ⓘ)
	InfoSymbol = infoSymbolStyle.String()

	// WarningSymbol (⚠️)
	WarningSymbol = warningSymbolStyle.String()

	// ErrorSymbol (❌)
	ErrorSymbol = errorSymbolStyle.String()

	// SmallErrorSymbol (✗)
	SmallErrorSymbol = smallErrorSymbolStyle.String()

	// SuccessSymbol (✔)
	SuccessSymbol = successSymbolStyle.String()

	// QuestionSymbol (?)
	QuestionSymbol = questionSymbolStyle.String()

	// ActionSymbol (▶)
	ActionSymbol = actionSymbolStyle.String()

	// LinkSymbol (→)
	LinkSymbol = linkSymbolStyle.String()

	// DelegateSymbol (✦) marks answers left to the completion service.
	DelegateSymbol = delegateSymbolStyle.String()
)
