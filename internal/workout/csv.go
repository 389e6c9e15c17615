package workout

import (
	"fmt"
	"strings"
	"time"
)

// CSVContentType is the MIME type for the exported artifact
const CSVContentType = "text/csv;charset=utf-8"

// csvHeader is the fixed header row of the export
const csvHeader = "date,exercise,weight,reps,set_number,notes"

// quote wraps a field in double quotes, doubling any embedded quotes
func quote(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// ExportCSV serializes sets to CSV text. Text fields (date, exercise, weight,
// notes) are always quoted; reps and set_number are emitted as plain integers.
// Returns an empty string when there is nothing to export.
func ExportCSV(sets []Set) string {
	if len(sets) == 0 {
		return ""
	}

	rows := make([]string, 0, len(sets)+1)
	rows = append(rows, csvHeader)
	for _, set := range sets {
		rows = append(rows, fmt.Sprintf("%s,%s,%s,%d,%d,%s",
			quote(set.Date),
			quote(set.Exercise),
			quote(set.Weight),
			set.Reps,
			set.SetNumber,
			quote(set.Notes),
		))
	}
	return strings.Join(rows, "\n")
}

// ExportFilename returns the download filename for an export performed at now
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("workout_batch_export_%s.csv", now.Format("2006-01-02"))
}
