package grading

import "github.com/noah-isme/sma-scoring-engine/internal/models"

// MarklistSummary is the derived total of one marklist entry.
type MarklistSummary struct {
	Total      float64 `json:"total"`
	MaxCounted float64 `json:"max_counted"`
	Percentage float64 `json:"percentage"`
	Grade      string  `json:"grade"`
}

type band struct {
	min   float64
	grade string
}

var bands = []band{
	{90, "A+"},
	{80, "A"},
	{70, "B"},
	{60, "C"},
	{50, "D"},
	{40, "E"},
}

// LetterGrade maps a percentage onto the fixed grade bands.
func LetterGrade(pct float64) string {
	for _, b := range bands {
		if pct >= b.min {
			return b.grade
		}
	}
	return "F"
}

// AggregateMarks totals an entry from its full mark set. Required columns always
// count toward the denominator; optional columns count only when marked.
// Marks for columns not in the config are ignored.
func AggregateMarks(columns []models.MarklistColumn, marks []models.Mark) MarklistSummary {
	byColumn := make(map[string]float64, len(marks))
	for _, m := range marks {
		byColumn[m.ColumnID] = m.Score
	}

	var total, maxCounted float64
	for _, col := range columns {
		score, marked := byColumn[col.ID]
		if col.IsOptional && !marked {
			continue
		}
		maxCounted += col.MaxMarks
		total += score
	}

	pct := 0.0
	if maxCounted > 0 {
		pct = clamp(total/maxCounted*100, 0, 100)
	}
	return MarklistSummary{
		Total:      total,
		MaxCounted: maxCounted,
		Percentage: pct,
		Grade:      LetterGrade(pct),
	}
}

// PercentageOf returns earned/total as a clamped percentage; zero when total is zero.
func PercentageOf(earned, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return clamp(earned/total*100, 0, 100)
}
