package status

import "strings"

// Predicate matches stored statuses equal, ignoring case, to any of a
// label's variants. The zero Predicate matches nothing.
type Predicate struct {
	variants []string
}

// Predicate builds the filter for label. An unknown label yields the
// empty predicate.
func (t *Table) Predicate(label string) Predicate {
	return Predicate{variants: t.Variants(label)}
}

// Empty reports whether p can never match.
func (p Predicate) Empty() bool { return len(p.variants) == 0 }

// SQL renders the predicate as a WHERE fragment over column. SQLite's
// LOWER and UPPER only fold ASCII, so each variant is compared both
// lower-cased and upper-cased: "annulées" matches through LOWER,
// "ANNULÉES" through UPPER. Variants carry at most one accented letter,
// which keeps the two comparisons sufficient.
func (p Predicate) SQL(column string) (string, []any) {
	if p.Empty() {
		return "1=0", nil
	}
	parts := make([]string, 0, len(p.variants))
	args := make([]any, 0, 2*len(p.variants))
	for _, v := range p.variants {
		parts = append(parts, "LOWER("+column+") = ? OR UPPER("+column+") = ?")
		args = append(args, strings.ToLower(v), strings.ToUpper(v))
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}
