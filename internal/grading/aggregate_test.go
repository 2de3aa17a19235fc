package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-scoring-engine/internal/models"
)

func TestAggregateMarksOptionalColumnExcluded(t *testing.T) {
	columns := []models.MarklistColumn{
		{ID: "c-req", MaxMarks: 50},
		{ID: "c-opt", MaxMarks: 50, IsOptional: true},
	}
	marks := []models.Mark{{ColumnID: "c-req", Score: 40}}

	got := AggregateMarks(columns, marks)
	assert.Equal(t, 40.0, got.Total)
	assert.Equal(t, 50.0, got.MaxCounted)
	assert.Equal(t, 80.0, got.Percentage)
	assert.Equal(t, "A", got.Grade)
}

func TestAggregateMarksOptionalColumnCountedWhenMarked(t *testing.T) {
	columns := []models.MarklistColumn{
		{ID: "c-req", MaxMarks: 50},
		{ID: "c-opt", MaxMarks: 50, IsOptional: true},
	}
	marks := []models.Mark{{ColumnID: "c-req", Score: 40}, {ColumnID: "c-opt", Score: 0}}

	got := AggregateMarks(columns, marks)
	assert.Equal(t, 100.0, got.MaxCounted)
	assert.Equal(t, 40.0, got.Percentage)
	assert.Equal(t, "E", got.Grade)
}

func TestAggregateMarksMissingRequiredCountsAsZero(t *testing.T) {
	columns := []models.MarklistColumn{{ID: "a", MaxMarks: 20}, {ID: "b", MaxMarks: 30}}
	got := AggregateMarks(columns, []models.Mark{{ColumnID: "a", Score: 20}, {ColumnID: "ghost", Score: 99}})
	assert.Equal(t, 20.0, got.Total)
	assert.Equal(t, 50.0, got.MaxCounted)
	assert.Equal(t, 40.0, got.Percentage)
}

func TestAggregateMarksEmpty(t *testing.T) {
	got := AggregateMarks(nil, nil)
	assert.Zero(t, got.Percentage)
	assert.Equal(t, "F", got.Grade)
}

func TestAggregateMarksIdempotent(t *testing.T) {
	columns := []models.MarklistColumn{{ID: "a", MaxMarks: 10}, {ID: "b", MaxMarks: 10, IsOptional: true}}
	marks := []models.Mark{{ColumnID: "a", Score: 7}, {ColumnID: "b", Score: 9}}
	assert.Equal(t, AggregateMarks(columns, marks), AggregateMarks(columns, marks))
}

func TestLetterGradeBoundaries(t *testing.T) {
	cases := map[float64]string{
		100:    "A+",
		90.0:   "A+",
		89.999: "A",
		80:     "A",
		79.99:  "B",
		70:     "B",
		60:     "C",
		50:     "D",
		40:     "E",
		39.99:  "F",
		0:      "F",
	}
	for pct, want := range cases {
		assert.Equal(t, want, LetterGrade(pct), "pct %v", pct)
	}
}

func TestPercentageOf(t *testing.T) {
	assert.Zero(t, PercentageOf(5, 0))
	assert.Equal(t, 50.0, PercentageOf(5, 10))
	assert.Equal(t, 100.0, PercentageOf(12, 10))
}
