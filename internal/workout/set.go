package workout

import (
	"sort"
	"time"
)

// Set represents one extracted workout set
type Set struct {
	Date      string `json:"date"`   // ISO 8601 format (YYYY-MM-DD)
	Exercise  string `json:"exercise"`
	Weight    string `json:"weight"` // free text, e.g. "135 lb", "50 kg", "BW"
	Reps      int    `json:"reps"`
	SetNumber int    `json:"set_number"`
	Notes     string `json:"notes"`
}

// parseDate parses an ISO date, falling back to the zero time so that
// unparseable dates sort last rather than breaking the batch.
func parseDate(date string) time.Time {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}
	}
	return t
}

// SortByDateDesc sorts sets by date, newest first. The sort is stable so
// sets with equal dates keep their append order across files.
func SortByDateDesc(sets []Set) {
	sort.SliceStable(sets, func(i, j int) bool {
		return parseDate(sets[i].Date).After(parseDate(sets[j].Date))
	})
}
