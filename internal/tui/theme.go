package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/lu-zhengda/appsweep/internal/remover"
)

// ---------------------------------------------------------------------------
// Color palette -- single source of truth for all TUI colors.
// Values are ANSI-256 color codes passed to lipgloss.Color().
// ---------------------------------------------------------------------------

var (
	colorPrimary   = lipgloss.Color("170")
	colorSecondary = lipgloss.Color("212")
	colorSuccess   = lipgloss.Color("82")
	colorWarning   = lipgloss.Color("214")
	colorDanger    = lipgloss.Color("196")
	colorDim       = lipgloss.Color("241")
	colorSubtle    = lipgloss.Color("236")
	colorText      = lipgloss.Color("252")
	colorWhite     = lipgloss.Color("255")
	colorDangerBg  = lipgloss.Color("52")
)

// ---------------------------------------------------------------------------
// Bar colors -- used for share-of-total bars in the details panel.
// ---------------------------------------------------------------------------

var (
	barColorHigh   = lipgloss.Color("196")
	barColorMedium = lipgloss.Color("214")
	barColorLow    = lipgloss.Color("82")
)

// barColor returns a color based on a 0.0-1.0 ratio.
//   - >= 0.75 -> high (red)
//   - >= 0.40 -> medium (orange/yellow)
//   - < 0.40  -> low (green)
func barColor(ratio float64) lipgloss.Color {
	switch {
	case ratio >= 0.75:
		return barColorHigh
	case ratio >= 0.40:
		return barColorMedium
	default:
		return barColorLow
	}
}

// lineStyle picks the log panel style for a removal progress line.
func lineStyle(tone remover.LineTone) lipgloss.Style {
	switch tone {
	case remover.ToneOK:
		return successStyle
	case remover.ToneError:
		return failStyle
	case remover.ToneWarn:
		return warnStyle
	default:
		return lipgloss.NewStyle()
	}
}
