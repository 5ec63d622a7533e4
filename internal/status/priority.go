package status

import "github.com/iliyamo/services-marketplace/internal/textnorm"

// Priority is the coarse urgency shown on the staff dashboard.
type Priority string

const (
	High   Priority = "Haute"
	Medium Priority = "Moyenne"
	Low    Priority = "Basse"
)

var priorityClasses = map[Priority]string{
	High:   "priority-high",
	Medium: "priority-medium",
	Low:    "priority-low",
}

// Class returns the display class for p.
func (p Priority) Class() string {
	if c, ok := priorityClasses[p]; ok {
		return c
	}
	return priorityClasses[Medium]
}

var (
	urgentTerms = []string{"urgent", "danger", "panne", "fuite", "immediat", "immediate"}
	lowTerms    = []string{"devis", "information", "renseignement", "question"}
)

// shortDescription is the normalized length under which a request is
// considered too vague to be pressing.
const shortDescription = 35

// InferPriority guesses how urgent a reservation is from its description
// and raw status. The first matching rule wins:
//
//  1. waiting and an urgent keyword: High
//  2. a low keyword, or a short description: Low
//  3. in progress: Medium
//  4. done: Low
//  5. otherwise: Medium
func InferPriority(description, rawStatus string) Priority {
	text := textnorm.Normalize(description)
	label := Extended.Canonical(rawStatus)
	switch {
	case label == Waiting && textnorm.ContainsAny(text, urgentTerms...):
		return High
	case textnorm.ContainsAny(text, lowTerms...) || len(text) < shortDescription:
		return Low
	case label == InProgress:
		return Medium
	case label == Done:
		return Low
	}
	return Medium
}
