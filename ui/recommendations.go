package ui

import (
	"reflect"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/yhkl-dev/SonicCLI/domain"
)

// RecommendationView lists the recommendations for the current track
type RecommendationView struct {
	app       *App
	container *tview.Flex
	list      *tview.List
	recs      []domain.Recommendation
	thumbnail string
	activeID  string
}

// NewRecommendationView creates a new recommendation panel
func NewRecommendationView(app *App) *RecommendationView {
	rv := &RecommendationView{
		app: app,
	}

	rv.list = tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true).
		SetSelectedBackgroundColor(tcell.ColorDarkGreen)

	rv.list.SetSelectedFunc(func(index int, _ string, _ string, _ rune) {
		if index >= 0 && index < len(rv.recs) {
			rv.app.play(rv.recs[index].Track(rv.thumbnail))
		}
	})

	rv.container = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(rv.list, 0, 1, true)

	rv.container.SetBorder(true).
		SetTitle(" Up Next ").
		SetBorderColor(tcell.NewHexColor(0x00bcd4))

	return rv
}

// Update redraws the panel when the recommendation list changed
func (rv *RecommendationView) Update(snap domain.PlaybackSnapshot) {
	activeID := ""
	if snap.Current != nil {
		rv.thumbnail = snap.Current.Thumbnail
		activeID = snap.Current.ID
	}
	if reflect.DeepEqual(rv.recs, snap.Recommendations) && rv.activeID == activeID {
		return
	}
	rv.recs = snap.Recommendations
	rv.activeID = activeID

	title := " Up Next "
	if snap.Radio {
		title = " Up Next (radio) "
	}
	rv.container.SetTitle(title)

	rv.list.Clear()
	if len(rv.recs) == 0 {
		rv.list.AddItem("[darkgray]No recommendations", "", 0, nil)
		return
	}
	width := rv.app.cfg.UI.MaxColumnWidth
	for i, rec := range rv.recs {
		label := tview.Escape(FormatRecommendation(i, rec, width))
		if rec.ID == activeID {
			label = "[lightgreen]" + label
		}
		rv.list.AddItem(label, "", 0, nil)
	}
}

// GetContainer returns the panel container
func (rv *RecommendationView) GetContainer() *tview.Flex {
	return rv.container
}
