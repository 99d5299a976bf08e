package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/angeloszaimis/siglab-monitor/internal/display"
	"github.com/angeloszaimis/siglab-monitor/internal/snapshot"
)

const (
	DefaultRefresh = 500 * time.Millisecond
	minWidth       = 30
	minHeight      = 6
	gaugeWidth     = 20
)

// Source is satisfied by *snapshot.Store.
type Source interface {
	Current() (snapshot.Snapshot, bool)
}

type UI struct {
	source     Source
	refresh    time.Duration
	staleAfter time.Duration
	now        func() time.Time
}

// New returns a UI reading from source every refresh. Views older than
// staleAfter are flagged; zero disables the flag.
func New(source Source, refresh, staleAfter time.Duration) *UI {
	if refresh <= 0 {
		refresh = DefaultRefresh
	}
	return &UI{source: source, refresh: refresh, staleAfter: staleAfter, now: time.Now}
}

// Run takes over the terminal until ctx is cancelled or the user quits.
// Quitting returns context.Canceled.
func (u *UI) Run(ctx context.Context) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	return u.RunOn(ctx, screen)
}

// RunOn drives an initialised screen. The caller owns the screen.
func (u *UI) RunOn(ctx context.Context, screen tcell.Screen) error {
	screen.HideCursor()

	eventCh := make(chan tcell.Event, 1)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case eventCh <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(u.refresh)
	defer ticker.Stop()

	u.draw(screen)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-eventCh:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyCtrlC || ev.Key() == tcell.KeyEscape || ev.Rune() == 'q' {
					return context.Canceled
				}
			case *tcell.EventResize:
				screen.Sync()
				u.draw(screen)
			}
		case <-ticker.C:
			u.draw(screen)
		}
	}
}

func (u *UI) draw(screen tcell.Screen) {
	snap, _ := u.source.Current()
	now := u.now()
	vm := display.ToViewModel(snap)
	render(screen, vm, vm.Stale(now, u.staleAfter), now)
}

func render(screen tcell.Screen, vm display.ViewModel, stale bool, now time.Time) {
	screen.Clear()
	width, height := screen.Size()
	if width < minWidth || height < minHeight {
		screen.Show()
		return
	}

	header := fmt.Sprintf(" siglab-monitor  %s  (q to quit)", now.Format("2006-01-02 15:04:05"))
	drawText(screen, 0, 0, width, header, tcell.StyleDefault.Bold(true))

	status := []styledText{
		{text: " " + vm.Headline, style: toneStyle(vm.HeadlineTone).Bold(true)},
	}
	if !vm.Waiting {
		status = append(status, styledText{
			text:  fmt.Sprintf("  cycle #%d at %s", vm.CycleSeq, vm.GeneratedAt.Format("15:04:05")),
			style: tcell.StyleDefault.Foreground(tcell.ColorGray),
		})
	}
	if stale {
		status = append(status, styledText{text: "  STALE", style: toneStyle(display.ToneDown).Bold(true)})
	}
	drawStyled(screen, 0, 1, width, status)

	summary := []styledText{
		{text: " Availability ", style: tcell.StyleDefault},
		{text: padOrTrim(vm.AvailabilityLabel, 4), style: toneStyle(vm.HeadlineTone)},
		{text: " " + gauge(vm.AvailabilityGaugeValue, gaugeWidth), style: toneStyle(vm.HeadlineTone)},
		{text: "  Active " + vm.ActiveServersLabel, style: tcell.StyleDefault},
		{text: "  Users " + vm.TotalUsersLabel, style: tcell.StyleDefault},
	}
	drawStyled(screen, 0, 2, width, summary)

	boxHeight := len(vm.PerInstanceBadges) + 2
	if boxHeight > height-3 {
		boxHeight = height - 3
	}
	drawBox(screen, 0, 3, width, boxHeight)
	drawText(screen, 2, 3, width-4, " servers ", tcell.StyleDefault.Bold(true))

	for i := 0; i < len(vm.PerInstanceBadges) && i < boxHeight-2; i++ {
		drawStyled(screen, 1, 4+i, width-2, badgeLine(vm.PerInstanceBadges[i]))
	}

	screen.Show()
}

func badgeLine(b display.Badge) []styledText {
	style := toneStyle(b.Tone)
	parts := []styledText{
		{text: " " + padOrTrim(b.ID, 16), style: tcell.StyleDefault},
		{text: " " + padOrTrim(b.Label, 12), style: style},
		{text: " users " + padOrTrim(b.Users, 8), style: tcell.StyleDefault},
		{text: " latency " + padOrTrim(b.Latency, 8), style: tcell.StyleDefault},
	}
	if b.Failures > 0 {
		parts = append(parts, styledText{text: fmt.Sprintf(" failures %d", b.Failures), style: style})
	}
	return parts
}

func gauge(value, width int) string {
	filled := value * width / 100
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(" ", width-filled) + "]"
}

func toneStyle(t display.Tone) tcell.Style {
	switch t {
	case display.ToneOK:
		return tcell.StyleDefault.Foreground(tcell.ColorGreen)
	case display.ToneWarn:
		return tcell.StyleDefault.Foreground(tcell.ColorYellow)
	case display.ToneDown:
		return tcell.StyleDefault.Foreground(tcell.ColorRed)
	default:
		return tcell.StyleDefault.Foreground(tcell.ColorGray)
	}
}
