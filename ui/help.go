package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

type shortcut struct {
	keys string
	desc string
}

// helpSections lists the shortcuts shown in the help modal, in display order
var helpSections = []struct {
	title     string
	shortcuts []shortcut
}{
	{"Playback Controls", []shortcut{
		{"Space", "Play/Pause current track"},
		{"Enter", "Play selected track"},
		{"n / →", "Next track (radio once results run out)"},
		{"p / ←", "Previous track"},
		{"l", "Like/Unlike current track"},
	}},
	{"Search", []shortcut{
		{"/", "Focus search box"},
		{"Enter", "Search for the typed text"},
		{"↓", "Move to suggestions"},
		{"ESC", "Clear search box"},
	}},
	{"Navigation", []shortcut{
		{"↑ / ↓", "Move within a panel"},
		{"Tab", "Next panel"},
		{"gg / G", "First/Last entry"},
		{"?", "Show this help panel"},
	}},
	{"General", []shortcut{
		{"ESC", "Close modal / Exit program"},
		{"Ctrl+C", "Exit program"},
	}},
}

func helpText() string {
	var b strings.Builder
	b.WriteString("[yellow::b]Keyboard Shortcuts[-:-:-]\n")
	for _, section := range helpSections {
		fmt.Fprintf(&b, "\n[lightgreen]%s:[-]\n", section.title)
		for _, s := range section.shortcuts {
			fmt.Fprintf(&b, "  [white]%-10s[-]  %s\n", s.keys, s.desc)
		}
	}
	b.WriteString("\n[yellow]Press ESC or ? to close this help panel[-]\n")
	return b.String()
}

// HelpView is the keyboard shortcuts modal
type HelpView struct {
	app      *App
	textView *tview.TextView
	restore  tview.Primitive
	isActive bool
}

// NewHelpView creates a new help view
func NewHelpView(app *App) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(true).
		SetText(helpText())
	tv.SetBorder(true).
		SetTitle(" Help (ESC to close) ").
		SetBorderColor(tcell.ColorYellow)

	return &HelpView{app: app, textView: tv}
}

// Show centers the help modal over the main layout
func (hv *HelpView) Show() {
	if hv.isActive {
		return
	}
	hv.isActive = true
	hv.restore = hv.app.tviewApp.GetFocus()

	modal := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().
			SetDirection(tview.FlexColumn).
			AddItem(nil, 0, 1, false).
			AddItem(hv.textView, 60, 0, true).
			AddItem(nil, 0, 1, false), 28, 0, true).
		AddItem(nil, 0, 1, false)

	hv.app.tviewApp.SetRoot(modal, true)
	hv.app.tviewApp.SetFocus(hv.textView)
}

// Close returns to the main layout and the panel that had focus
func (hv *HelpView) Close() {
	hv.isActive = false
	hv.app.tviewApp.SetRoot(hv.app.rootFlex, true)
	focus := hv.restore
	if focus == nil {
		focus = hv.app.resultTable
	}
	hv.restore = nil
	hv.app.tviewApp.SetFocus(focus)
}

// IsActive returns whether the help view is active
func (hv *HelpView) IsActive() bool {
	return hv.isActive
}
