package tui

import "github.com/charmbracelet/bubbles/list"

type regionItem struct {
	code    string
	name    string
	optedIn bool
}

func (r regionItem) Title() string { return r.code }

func (r regionItem) Description() string {
	if !r.optedIn {
		return r.name + " (not opted in)"
	}
	return r.name
}

func (r regionItem) FilterValue() string { return r.code + " " + r.name }

// newRegionPicker builds an empty picker; items arrive from the engine
// when the overlay opens.
func newRegionPicker() list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 60, 16)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	return l
}
