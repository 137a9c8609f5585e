package tui

import "github.com/charmbracelet/lipgloss"

// Semantic color palette.
var (
	colorPrimary    = lipgloss.Color("#00BFFF")
	colorAccent     = lipgloss.Color("#FFD700")
	colorSuccess    = lipgloss.Color("#00E676")
	colorDanger     = lipgloss.Color("#FF5252")
	colorMuted      = lipgloss.Color("#636363")
	colorMutedLight = lipgloss.Color("#8C8C8C")
	colorWhite      = lipgloss.Color("#EEEEEE")
	colorSurface    = lipgloss.Color("#1E1E2E")
	colorSurfaceDim = lipgloss.Color("#181825")
)

// Placeholder glyphs for tiles without pixels.
const (
	glyphPending = '·'
	glyphError   = '×'
)

// Status bar styles.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(colorSurface).
			Foreground(colorWhite).
			Bold(true).
			Padding(0, 1)

	styleStatusLabel = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	styleStatusValue = lipgloss.NewStyle().
				Foreground(colorWhite)

	styleStatusWarn = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true)
)

// Chart styles.
var (
	styleHeader = lipgloss.NewStyle().
			Foreground(colorMutedLight)

	styleLabel = lipgloss.NewStyle().
			Foreground(colorMutedLight)

	stylePending = lipgloss.NewStyle().
			Foreground(colorMuted)

	styleError = lipgloss.NewStyle().
			Foreground(colorDanger).
			Bold(true)

	styleReadyCount = lipgloss.NewStyle().
			Foreground(colorSuccess)
)

// Footer styles.
var (
	styleFooter = lipgloss.NewStyle().
			Foreground(colorMuted).
			Background(colorSurfaceDim)

	styleFooterKey = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	styleFooterDesc = lipgloss.NewStyle().
			Foreground(colorMutedLight)

	styleFooterSep = lipgloss.NewStyle().
			Foreground(colorMuted)
)
