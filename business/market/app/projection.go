package app

import (
	"slices"

	"github.com/fd1az/marketlive/business/market/domain"
)

// Placeholder replaces the grid when there is nothing to list.
type Placeholder int

const (
	PlaceholderNone Placeholder = iota
	PlaceholderNoResults
	PlaceholderLoadError
)

// Placeholder texts.
const (
	NoResultsText = "No items match the applied filters."
	LoadErrorText = "Error loading items. Try again."
)

// Text returns the message shown for the placeholder.
func (p Placeholder) Text() string {
	switch p {
	case PlaceholderNoResults:
		return NoResultsText
	case PlaceholderLoadError:
		return LoadErrorText
	default:
		return ""
	}
}

// AlertKind classifies a dismissible notice.
type AlertKind int

const (
	AlertSuccess AlertKind = iota
	AlertError
	AlertInfo
)

func (k AlertKind) String() string {
	switch k {
	case AlertSuccess:
		return "success"
	case AlertError:
		return "error"
	default:
		return "info"
	}
}

// Alert is a notice that dismisses itself after the alert duration.
type Alert struct {
	ID   string
	Kind AlertKind
	Text string
}

// Offer form labels.
const (
	SubmitLabel        = "Submit offer"
	SubmitPendingLabel = "Sending..."
	ToggleOpenLabel    = "Make an offer"
	ToggleAgainLabel   = "Make another offer"
	ToggleCloseLabel   = "Close form"
)

// OfferFormState is the presentation state of the offer form.
type OfferFormState struct {
	Visible     bool
	Pending     bool
	SubmitLabel string
	ToggleLabel string
	// Resets increments every time the form inputs must be cleared.
	Resets uint64
}

// GridRow is one rendered item.
type GridRow struct {
	domain.Item
	Highlighted bool
}

// DetailView is the rendered detail of the selected item.
type DetailView struct {
	domain.ItemDetail
	Highlighted bool
}

// Snapshot is an immutable copy of the view state. Version increases
// monotonically; renderers may drop snapshots older than the last one shown.
type Snapshot struct {
	Version     uint64
	Rows        []GridRow
	Placeholder Placeholder
	Detail      *DetailView
	Alerts      []Alert
	Form        OfferFormState
}

// highlight target keys
func listKey(id string) string   { return "list:" + id }
func detailKey(id string) string { return "detail:" + id }

// projection is the mutable view state. It is not safe for concurrent use;
// Reconciler guards it.
type projection struct {
	rows        []domain.Item
	index       map[string]int
	placeholder Placeholder
	detail      *domain.ItemDetail
	offerMade   bool
	highlights  map[string]bool
	alerts      []Alert
	form        OfferFormState
	version     uint64
}

func newProjection() *projection {
	return &projection{
		index:      make(map[string]int),
		highlights: make(map[string]bool),
		form:       defaultForm(0),
	}
}

func defaultForm(resets uint64) OfferFormState {
	return OfferFormState{
		SubmitLabel: SubmitLabel,
		ToggleLabel: ToggleOpenLabel,
		Resets:      resets,
	}
}

func (p *projection) replaceRows(items []domain.Item) {
	p.rows = slices.Clone(items)
	p.index = make(map[string]int, len(items))
	for i, it := range p.rows {
		// First occurrence wins for duplicate ids.
		if _, ok := p.index[it.ID]; !ok {
			p.index[it.ID] = i
		}
	}
}

// setRowPrice updates every row with the given id.
func (p *projection) setRowPrice(id, price string) bool {
	if _, ok := p.index[id]; !ok {
		return false
	}
	for i := range p.rows {
		if p.rows[i].ID == id {
			p.rows[i].Price = price
		}
	}
	return true
}

func (p *projection) removeAlert(id string) bool {
	i := slices.IndexFunc(p.alerts, func(a Alert) bool { return a.ID == id })
	if i < 0 {
		return false
	}
	p.alerts = slices.Delete(p.alerts, i, i+1)
	return true
}

func (p *projection) snapshot() Snapshot {
	p.version++
	snap := Snapshot{
		Version:     p.version,
		Placeholder: p.placeholder,
		Alerts:      slices.Clone(p.alerts),
		Form:        p.form,
	}

	snap.Rows = make([]GridRow, len(p.rows))
	for i, it := range p.rows {
		snap.Rows[i] = GridRow{Item: it, Highlighted: p.highlights[listKey(it.ID)]}
	}

	if p.detail != nil {
		snap.Detail = &DetailView{
			ItemDetail:  *p.detail,
			Highlighted: p.highlights[detailKey(p.detail.ID)],
		}
	}
	return snap
}
