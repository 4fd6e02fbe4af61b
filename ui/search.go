package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/yhkl-dev/SonicCLI/domain"
)

// setupTableHeaders sets up the result table header row
func (a *App) setupTableHeaders() {
	headerStyle := tcell.StyleDefault.Foreground(tcell.ColorGray).Attributes(tcell.AttrBold)

	headers := []string{"#", "Title", "Artist", "Time"}
	for col, title := range headers {
		a.resultTable.SetCell(0, col, tview.NewTableCell(title).
			SetStyle(headerStyle).
			SetSelectable(false))
	}
}

// resultAt maps a table row to its track
func (a *App) resultAt(row int) (domain.Track, bool) {
	index := row - 1
	if index < 0 || index >= len(a.shownResults) {
		return domain.Track{}, false
	}
	return a.shownResults[index], true
}

// renderResults renders the active result set
func (a *App) renderResults() {
	for i := a.resultTable.GetRowCount() - 1; i > 0; i-- {
		a.resultTable.RemoveRow(i)
	}
	a.setupTableHeaders()

	maxWidth := a.cfg.UI.MaxColumnWidth
	rowStyle := tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorDefault)

	for i, track := range a.shownResults {
		row := i + 1

		a.resultTable.SetCell(row, 0, tview.NewTableCell(fmt.Sprintf("%d:", row)).
			SetStyle(rowStyle.Foreground(tcell.ColorLightGreen)).
			SetAlign(tview.AlignRight))
		a.resultTable.SetCell(row, 1, tview.NewTableCell(Truncate(track.Title, maxWidth)).
			SetStyle(rowStyle).
			SetExpansion(1))
		a.resultTable.SetCell(row, 2, tview.NewTableCell(Truncate(orDash(track.Artist), maxWidth)).
			SetStyle(rowStyle.Foreground(tcell.ColorGray)))
		a.resultTable.SetCell(row, 3, tview.NewTableCell(FormatDuration(track.Duration)).
			SetStyle(rowStyle.Foreground(tcell.ColorGray)).
			SetAlign(tview.AlignRight))
	}

	if len(a.shownResults) > 0 {
		a.resultTable.Select(1, 0)
	}
	a.resultTable.ScrollToBeginning()
}

// renderSuggestions renders the live suggestion list
func (a *App) renderSuggestions() {
	a.suggestionList.Clear()
	width := a.cfg.UI.MaxColumnWidth
	for _, track := range a.shownSuggestions {
		label := fmt.Sprintf("%s [darkgray]%s",
			tview.Escape(Truncate(track.Title, width)),
			tview.Escape(Truncate(orDash(track.Artist), width)))
		a.suggestionList.AddItem(label, "", 0, nil)
	}
	if len(a.shownSuggestions) == 0 && a.tviewApp.GetFocus() == a.suggestionList {
		a.tviewApp.SetFocus(a.searchInput)
	}
}
