package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

// createHomepage sets up the UI layout
func (a *App) createHomepage() {
	a.progressBar = tview.NewTextView().
		SetDynamicColors(true)
	a.progressBar.SetBorder(false)

	a.statusBar = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false).
		SetWrap(true)
	a.statusBar.SetBorder(false)

	a.searchInput = tview.NewInputField().
		SetLabel("[yellow]Search: ").
		SetFieldWidth(0).
		SetPlaceholder("Type to get suggestions, ENTER to search...").
		SetFieldBackgroundColor(tcell.ColorBlack)
	a.searchInput.SetBorder(false)

	a.suggestionList = tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true).
		SetSelectedBackgroundColor(tcell.ColorDarkGreen)
	a.suggestionList.SetBorder(true).SetTitle(" Suggestions ")

	a.resultTable = tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false).
		SetFixed(1, 0)
	a.resultTable.SetBorder(false)
	a.resultTable.SetSelectedStyle(tcell.StyleDefault.
		Background(tcell.ColorDarkGreen).
		Foreground(tcell.ColorWhite))

	a.collectionList = tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true)
	a.collectionList.SetBorder(true).SetTitle(" Collections ")

	a.helpView = NewHelpView(a)
	a.recommendationView = NewRecommendationView(a)

	a.setupTableHeaders()
	a.setupSearchInput()
	a.setupInputHandlers()

	leftPanel := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.collectionList, 8, 0, false).
		AddItem(a.statusBar, 0, 1, false)

	centerPanel := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.searchInput, 1, 0, false).
		AddItem(a.suggestionList, 7, 0, false).
		AddItem(a.resultTable, 0, 1, true)

	mainLayout := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(leftPanel, 0, 1, false).
		AddItem(centerPanel, 0, 2, true).
		AddItem(a.recommendationView.GetContainer(), 0, 1, false)

	a.rootFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(mainLayout, 0, 1, true).
		AddItem(a.progressBar, 3, 0, false)

	a.tviewApp.SetRoot(a.rootFlex, true)
	a.render()
}

// setupSearchInput wires the search box to the query coordinator
func (a *App) setupSearchInput() {
	a.searchInput.SetChangedFunc(func(text string) {
		a.coord.SetQuery(text)
	})

	a.searchInput.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			a.search()
			a.tviewApp.SetFocus(a.resultTable)
		case tcell.KeyEscape:
			a.searchInput.SetText("")
			a.tviewApp.SetFocus(a.resultTable)
		}
	})

	a.searchInput.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyDown:
			if a.suggestionList.GetItemCount() > 0 {
				a.tviewApp.SetFocus(a.suggestionList)
			} else {
				a.tviewApp.SetFocus(a.resultTable)
			}
			return nil
		case tcell.KeyTab:
			a.cycleFocus()
			return nil
		}
		return event
	})
}

// setupInputHandlers sets up keyboard input handlers
func (a *App) setupInputHandlers() {
	a.resultTable.SetSelectedFunc(func(row, column int) {
		if track, ok := a.resultAt(row); ok {
			a.play(track)
		}
	})
	a.resultTable.SetSelectionChangedFunc(func(row, column int) {
		if track, ok := a.resultAt(row); ok {
			a.warm(track)
		}
	})

	a.suggestionList.SetSelectedFunc(func(index int, _ string, _ string, _ rune) {
		if index >= 0 && index < len(a.shownSuggestions) {
			a.play(a.shownSuggestions[index])
		}
	})

	a.keys = NewKeyBindingManager()
	a.registerKeyBindings()

	a.tviewApp.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if a.helpView != nil && a.helpView.IsActive() {
			if event.Key() == tcell.KeyEscape || event.Rune() == '?' {
				a.helpView.Close()
				return nil
			}
			return event
		}

		if event.Key() == tcell.KeyCtrlC {
			a.handleExit()
			return nil
		}

		// the search box receives every key it does not capture itself
		if a.tviewApp.GetFocus() == a.searchInput {
			a.keys.ResetPending()
			return event
		}

		if a.keys.HandleKey(event) {
			return nil
		}
		return event
	})
}

func (a *App) registerKeyBindings() {
	a.keys.RegisterKeyBinding(KeyAction{name: "toggle", handler: a.togglePlayback}, nil, []rune{' '})
	a.keys.RegisterKeyBinding(KeyAction{name: "next", handler: a.playNext}, []tcell.Key{tcell.KeyRight}, []rune{'n', 'N'})
	a.keys.RegisterKeyBinding(KeyAction{name: "previous", handler: a.playPrevious}, []tcell.Key{tcell.KeyLeft}, []rune{'p', 'P'})
	a.keys.RegisterKeyBinding(KeyAction{name: "like", handler: a.toggleLike}, nil, []rune{'l', 'L'})
	a.keys.RegisterKeyBinding(KeyAction{name: "search", handler: func() {
		a.tviewApp.SetFocus(a.searchInput)
	}}, nil, []rune{'/'})
	a.keys.RegisterKeyBinding(KeyAction{name: "help", handler: a.helpView.Show}, nil, []rune{'?'})
	a.keys.RegisterKeyBinding(KeyAction{name: "bottom", handler: a.selectLast}, nil, []rune{'G'})
	a.keys.RegisterKeyBinding(KeyAction{name: "panels", handler: a.cycleFocus}, []tcell.Key{tcell.KeyTab}, nil)
	a.keys.RegisterKeyBinding(KeyAction{name: "exit", handler: a.handleExit}, []tcell.Key{tcell.KeyEscape}, nil)
	a.keys.RegisterSequence(KeyAction{name: "top", handler: a.selectFirst}, "gg")
}

// cycleFocus moves focus to the next panel
func (a *App) cycleFocus() {
	order := []tview.Primitive{
		a.searchInput,
		a.suggestionList,
		a.resultTable,
		a.recommendationView.list,
		a.collectionList,
	}
	focused := a.tviewApp.GetFocus()
	next := 0
	for i, p := range order {
		if p == focused {
			next = (i + 1) % len(order)
			break
		}
	}
	a.tviewApp.SetFocus(order[next])
}

// selectFirst jumps to the first entry of the focused panel
func (a *App) selectFirst() {
	switch a.tviewApp.GetFocus() {
	case a.resultTable:
		if a.resultTable.GetRowCount() > 1 {
			a.resultTable.Select(1, 0)
			a.resultTable.ScrollToBeginning()
		}
	case a.suggestionList:
		a.suggestionList.SetCurrentItem(0)
	case a.recommendationView.list:
		a.recommendationView.list.SetCurrentItem(0)
	case a.collectionList:
		a.collectionList.SetCurrentItem(0)
	}
}

// selectLast jumps to the last entry of the focused panel
func (a *App) selectLast() {
	switch a.tviewApp.GetFocus() {
	case a.resultTable:
		if rows := a.resultTable.GetRowCount(); rows > 1 {
			a.resultTable.Select(rows-1, 0)
			a.resultTable.ScrollToEnd()
		}
	case a.suggestionList:
		a.suggestionList.SetCurrentItem(-1)
	case a.recommendationView.list:
		a.recommendationView.list.SetCurrentItem(-1)
	case a.collectionList:
		a.collectionList.SetCurrentItem(-1)
	}
}

// handleExit stops the UI; main performs the remaining cleanup
func (a *App) handleExit() {
	log.Info().Msg("exit requested")
	a.tviewApp.Stop()
}

// renderCollections fills the sidebar
func (a *App) renderCollections() {
	a.collectionList.Clear()
	if len(a.collections) == 0 {
		a.collectionList.AddItem("[darkgray]No collections", "", 0, nil)
		return
	}
	for _, col := range a.collections {
		a.collectionList.AddItem(FormatCollection(col), "", 0, nil)
	}
}

// renderSearchLabel shows the loading state next to the search box
func (a *App) renderSearchLabel() {
	if a.coord.Loading() {
		a.searchInput.SetLabel("[yellow]Searching… ")
		a.searchInput.SetFieldBackgroundColor(tcell.ColorDarkSlateGray)
		return
	}
	a.searchInput.SetLabel("[yellow]Search: ")
	if len(a.shownResults) > 0 {
		a.searchInput.SetFieldBackgroundColor(tcell.ColorDarkGreen)
	} else {
		a.searchInput.SetFieldBackgroundColor(tcell.ColorBlack)
	}
}
