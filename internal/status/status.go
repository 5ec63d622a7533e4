// Package status maps the free-text status stored on reservations to the
// four canonical labels of the request workflow, and builds the filters
// used to find rows whose stored spelling drifted from the canonical one.
package status

import "github.com/iliyamo/services-marketplace/internal/textnorm"

// Canonical labels. They are also the values written back to storage
// when a provider changes a reservation's status.
const (
	Waiting    = "En attente"
	InProgress = "En cours"
	Done       = "Terminee"
	Cancelled  = "Annulee"
)

// Labels lists the canonical labels in workflow order.
var Labels = []string{Waiting, InProgress, Done, Cancelled}

// CSS-style classes attached to dashboard rows.
var classes = map[string]string{
	Waiting:    "status-waiting",
	InProgress: "status-progress",
	Done:       "status-done",
	Cancelled:  "status-cancelled",
}

// Class returns the display class of a canonical label, falling back to
// the waiting class for anything else.
func Class(label string) string {
	if c, ok := classes[label]; ok {
		return c
	}
	return classes[Waiting]
}

type entry struct {
	label    string
	variants []string
	keys     []string
}

// Table maps canonical labels to the raw spellings accepted for them.
// Tables are built once at init and never mutated.
type Table struct {
	entries []entry
}

func newTable(variants map[string][]string) *Table {
	t := &Table{}
	for _, label := range Labels {
		vs := variants[label]
		e := entry{label: label, variants: vs, keys: make([]string, len(vs))}
		for i, v := range vs {
			e.keys[i] = textnorm.Normalize(v)
		}
		t.entries = append(t.entries, e)
	}
	return t
}

var defaultVariants = map[string][]string{
	Waiting:    {"En attente", "Attente"},
	InProgress: {"En cours", "Encours"},
	Done:       {"Terminee", "Termine", "Terminees", "Terminée", "Terminées"},
	Cancelled:  {"Annulee", "Annule", "Annulees", "Annules", "Annulée", "Annulées"},
}

// Default is the table used by provider-facing screens.
var Default = newTable(defaultVariants)

// Extended adds the English spellings found in older staff-entered data.
var Extended = newTable(map[string][]string{
	Waiting:    defaultVariants[Waiting],
	InProgress: defaultVariants[InProgress],
	Done:       append(append([]string{}, defaultVariants[Done]...), "Complete", "Complet"),
	Cancelled:  append(append([]string{}, defaultVariants[Cancelled]...), "Cancel", "Cancelled"),
})

// Canonical returns the label whose variant equals raw after
// normalization, or "" when nothing matches. Matching is exact on the
// normalized form, never a substring test.
func (t *Table) Canonical(raw string) string {
	key := textnorm.Normalize(raw)
	if key == "" {
		return ""
	}
	for _, e := range t.entries {
		for _, k := range e.keys {
			if k == key {
				return e.label
			}
		}
	}
	return ""
}

// CanonicalOr is Canonical with a fallback for unrecognised input.
func (t *Table) CanonicalOr(raw, fallback string) string {
	if label := t.Canonical(raw); label != "" {
		return label
	}
	return fallback
}

// Variants returns a copy of the spellings registered for label.
func (t *Table) Variants(label string) []string {
	for _, e := range t.entries {
		if e.label == label {
			return append([]string(nil), e.variants...)
		}
	}
	return nil
}
