package tui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
)

type styledText struct {
	text  string
	style tcell.Style
}

func drawBox(screen tcell.Screen, x, y, width, height int) {
	if width < 2 || height < 2 {
		return
	}
	right := x + width - 1
	bottom := y + height - 1

	screen.SetContent(x, y, '+', nil, tcell.StyleDefault)
	screen.SetContent(right, y, '+', nil, tcell.StyleDefault)
	screen.SetContent(x, bottom, '+', nil, tcell.StyleDefault)
	screen.SetContent(right, bottom, '+', nil, tcell.StyleDefault)

	for col := x + 1; col < right; col++ {
		screen.SetContent(col, y, '-', nil, tcell.StyleDefault)
		screen.SetContent(col, bottom, '-', nil, tcell.StyleDefault)
	}
	for row := y + 1; row < bottom; row++ {
		screen.SetContent(x, row, '|', nil, tcell.StyleDefault)
		screen.SetContent(right, row, '|', nil, tcell.StyleDefault)
	}
}

func drawText(screen tcell.Screen, x, y, width int, text string, style tcell.Style) {
	drawStyled(screen, x, y, width, []styledText{{text: text, style: style}})
}

// drawStyled writes parts left to right, clipping at width and blanking the
// rest of the span.
func drawStyled(screen tcell.Screen, x, y, width int, parts []styledText) {
	if width <= 0 {
		return
	}
	col := x
	for _, part := range parts {
		for _, r := range part.text {
			if col >= x+width {
				return
			}
			screen.SetContent(col, y, r, nil, part.style)
			col++
		}
	}
	for col < x+width {
		screen.SetContent(col, y, ' ', nil, tcell.StyleDefault)
		col++
	}
}

func padOrTrim(value string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(value)
	if len(runes) > width {
		return string(runes[:width])
	}
	return value + strings.Repeat(" ", width-len(runes))
}
