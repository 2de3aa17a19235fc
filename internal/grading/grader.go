package grading

import (
	"context"
	"fmt"
	"math"

	"github.com/noah-isme/sma-scoring-engine/internal/models"
	appErrors "github.com/noah-isme/sma-scoring-engine/pkg/errors"
)

// PartialCreditCeiling caps keyword-based credit for short answers.
const PartialCreditCeiling = 0.8

// EssayRequest is the input handed to an essay evaluator.
type EssayRequest struct {
	QuestionText string
	Criteria     string
	Answer       string
	MaxPoints    float64
}

// EssayResult is a bounded score with free-form feedback.
type EssayResult struct {
	Score    float64
	Feedback string
}

// EssayEvaluator scores long answers. Implementations may fail; the grader never
// awards credit for a failed evaluation.
type EssayEvaluator interface {
	Evaluate(ctx context.Context, req EssayRequest) (EssayResult, error)
}

// Result is the outcome of scoring a single question.
type Result struct {
	Earned           float64
	Feedback         string
	NeedsReview      bool
	EvaluationFailed bool
}

// Grader dispatches a question to the scoring strategy of its type.
type Grader struct {
	essays EssayEvaluator
}

// NewGrader builds a grader. A nil evaluator routes every essay to manual review.
func NewGrader(essays EssayEvaluator) *Grader {
	return &Grader{essays: essays}
}

// Score grades one answer. An error is returned only for question types the
// grader does not know; evaluator failures are folded into the result.
func (g *Grader) Score(ctx context.Context, q models.Question, answer interface{}) (Result, error) {
	if !q.Type.Valid() {
		return Result{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("question %s has unsupported type %q", q.ID, q.Type))
	}
	if isBlank(answer) {
		return Result{}, nil
	}

	var res Result
	switch q.Type {
	case models.QuestionTypeMCQ:
		res = scoreMCQ(q, answer)
	case models.QuestionTypeTrueFalse:
		res = scoreTrueFalse(q, answer)
	case models.QuestionTypeShortAnswer:
		res = scoreShortAnswer(q, answer)
	case models.QuestionTypeLongAnswer:
		res = g.scoreLongAnswer(ctx, q, answer)
	}
	res.Earned = clamp(res.Earned, 0, q.Points)
	return res, nil
}

func scoreMCQ(q models.Question, answer interface{}) Result {
	idx := q.Details.CorrectOptionIndex
	if idx == nil || *idx < 0 || *idx >= len(q.Details.Options) {
		return Result{}
	}
	if s, ok := answer.(string); ok {
		if s == q.Details.Options[*idx] {
			return Result{Earned: q.Points}
		}
		return Result{}
	}
	if chosen, ok := asIndex(answer); ok && chosen == *idx {
		return Result{Earned: q.Points}
	}
	return Result{}
}

func scoreTrueFalse(q models.Question, answer interface{}) Result {
	if q.Details.ExpectedBoolean == nil {
		return Result{}
	}
	if v, ok := asBool(answer); ok && v == *q.Details.ExpectedBoolean {
		return Result{Earned: q.Points}
	}
	return Result{}
}

func scoreShortAnswer(q models.Question, answer interface{}) Result {
	given := normalize(asText(answer))
	if given == "" {
		return Result{}
	}
	if expected := normalize(q.Details.ExpectedAnswer); expected != "" && given == expected {
		return Result{Earned: q.Points}
	}

	words := wordTokens(given)
	total, matched := 0, 0
	for _, kw := range q.Details.Keywords {
		phrase := wordTokens(kw)
		if len(phrase) == 0 {
			continue
		}
		total++
		if containsPhrase(words, phrase) {
			matched++
		}
	}
	if total == 0 || matched == 0 {
		return Result{}
	}
	ratio := float64(matched) / float64(total)
	return Result{
		Earned:   ratio * q.Points * PartialCreditCeiling,
		Feedback: fmt.Sprintf("matched %d of %d keywords", matched, total),
	}
}

func (g *Grader) scoreLongAnswer(ctx context.Context, q models.Question, answer interface{}) Result {
	if g.essays == nil {
		return evaluationFailed("essay evaluator not configured")
	}
	if err := ctx.Err(); err != nil {
		return evaluationFailed(err.Error())
	}

	out, err := g.essays.Evaluate(ctx, EssayRequest{
		QuestionText: q.Text,
		Criteria:     q.Details.GradingCriteria,
		Answer:       asText(answer),
		MaxPoints:    q.Points,
	})
	if err != nil {
		return evaluationFailed(err.Error())
	}
	if math.IsNaN(out.Score) || out.Score < 0 || out.Score > q.Points {
		return evaluationFailed(fmt.Sprintf("score %v outside [0, %v]", out.Score, q.Points))
	}
	return Result{Earned: out.Score, Feedback: out.Feedback}
}

func evaluationFailed(reason string) Result {
	return Result{
		Feedback:         "AI evaluation failed, needs manual review: " + reason,
		NeedsReview:      true,
		EvaluationFailed: true,
	}
}
