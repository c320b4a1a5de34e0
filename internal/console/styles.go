package console

import "github.com/charmbracelet/lipgloss"

var (
	styleTitle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	styleOption  = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	styleKey     = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	styleLabel   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Bold(true)
	styleOK      = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	styleFail    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleHelp    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	styleDivider = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)
