package grading

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scoring-engine/internal/models"
	appErrors "github.com/noah-isme/sma-scoring-engine/pkg/errors"
)

type essayStub struct {
	result EssayResult
	err    error
	calls  int
	last   EssayRequest
}

func (s *essayStub) Evaluate(_ context.Context, req EssayRequest) (EssayResult, error) {
	s.calls++
	s.last = req
	return s.result, s.err
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func mcq() models.Question {
	return models.Question{
		ID:     "q-mcq",
		Type:   models.QuestionTypeMCQ,
		Points: 5,
		Details: models.QuestionDetails{
			Options:            []string{"Jakarta", "Bandung", "Surabaya"},
			CorrectOptionIndex: intPtr(0),
		},
	}
}

func TestGraderMCQ(t *testing.T) {
	g := NewGrader(nil)
	ctx := context.Background()

	cases := []struct {
		name   string
		answer interface{}
		want   float64
	}{
		{"exact option text", "Jakarta", 5},
		{"other option", "Bandung", 0},
		{"case differs", "jakarta", 0},
		{"json index", float64(0), 5},
		{"json number", json.Number("0"), 5},
		{"wrong index", float64(2), 0},
		{"fractional index", 0.5, 0},
		{"blank", "   ", 0},
		{"nil", nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := g.Score(ctx, mcq(), tc.answer)
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Earned)
		})
	}
}

func TestGraderTrueFalse(t *testing.T) {
	g := NewGrader(nil)
	q := models.Question{ID: "q-tf", Type: models.QuestionTypeTrueFalse, Points: 2, Details: models.QuestionDetails{ExpectedBoolean: boolPtr(true)}}

	for _, answer := range []interface{}{true, "true", " TRUE ", "True"} {
		res, err := g.Score(context.Background(), q, answer)
		require.NoError(t, err)
		assert.Equal(t, 2.0, res.Earned, "answer %v", answer)
	}
	for _, answer := range []interface{}{false, "false", "yes", 1.0} {
		res, err := g.Score(context.Background(), q, answer)
		require.NoError(t, err)
		assert.Zero(t, res.Earned, "answer %v", answer)
	}
}

func TestGraderShortAnswer(t *testing.T) {
	g := NewGrader(nil)
	q := models.Question{
		ID:     "q-sa",
		Type:   models.QuestionTypeShortAnswer,
		Points: 10,
		Details: models.QuestionDetails{
			ExpectedAnswer: "Photosynthesis",
			Keywords:       []string{"x", "y"},
		},
	}

	res, err := g.Score(context.Background(), q, "  photosynthesis ")
	require.NoError(t, err)
	assert.Equal(t, 10.0, res.Earned)

	res, err = g.Score(context.Background(), q, "the x factor")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, res.Earned, 1e-9)
	assert.Equal(t, "matched 1 of 2 keywords", res.Feedback)

	res, err = g.Score(context.Background(), q, "x and y")
	require.NoError(t, err)
	assert.InDelta(t, 8.0, res.Earned, 1e-9)

	noKeywords := q
	noKeywords.Details.Keywords = nil
	res, err = g.Score(context.Background(), noKeywords, "something else")
	require.NoError(t, err)
	assert.Zero(t, res.Earned)
}

func TestGraderShortAnswerMatchesWholeWords(t *testing.T) {
	g := NewGrader(nil)
	q := models.Question{
		ID:      "q-kw",
		Type:    models.QuestionTypeShortAnswer,
		Points:  10,
		Details: models.QuestionDetails{Keywords: []string{"art", "carbon dioxide"}},
	}

	res, err := g.Score(context.Background(), q, "a start, then carbonated dioxides")
	require.NoError(t, err)
	assert.Zero(t, res.Earned)

	res, err = g.Score(context.Background(), q, "Art!")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, res.Earned, 1e-9)

	res, err = g.Score(context.Background(), q, "plants take in Carbon-Dioxide for their art")
	require.NoError(t, err)
	assert.InDelta(t, 8.0, res.Earned, 1e-9)
	assert.Equal(t, "matched 2 of 2 keywords", res.Feedback)

	res, err = g.Score(context.Background(), q, "dioxide carbon")
	require.NoError(t, err)
	assert.Zero(t, res.Earned)
}

func TestGraderLongAnswer(t *testing.T) {
	q := models.Question{
		ID:      "q-essay",
		Type:    models.QuestionTypeLongAnswer,
		Text:    "Explain inflation",
		Points:  10,
		Details: models.QuestionDetails{GradingCriteria: "mentions prices"},
	}

	t.Run("success", func(t *testing.T) {
		stub := &essayStub{result: EssayResult{Score: 7, Feedback: "good"}}
		res, err := NewGrader(stub).Score(context.Background(), q, "prices go up")
		require.NoError(t, err)
		assert.Equal(t, 7.0, res.Earned)
		assert.Equal(t, "good", res.Feedback)
		assert.False(t, res.NeedsReview)
		assert.Equal(t, "mentions prices", stub.last.Criteria)
		assert.Equal(t, 10.0, stub.last.MaxPoints)
	})

	t.Run("evaluator failure never awards credit", func(t *testing.T) {
		stub := &essayStub{err: errors.New("timeout")}
		res, err := NewGrader(stub).Score(context.Background(), q, "prices go up")
		require.NoError(t, err)
		assert.Zero(t, res.Earned)
		assert.True(t, res.NeedsReview)
		assert.True(t, res.EvaluationFailed)
		assert.Contains(t, res.Feedback, "needs manual review")
		assert.Contains(t, res.Feedback, "timeout")
	})

	t.Run("out of range score rejected", func(t *testing.T) {
		stub := &essayStub{result: EssayResult{Score: 11}}
		res, err := NewGrader(stub).Score(context.Background(), q, "prices go up")
		require.NoError(t, err)
		assert.Zero(t, res.Earned)
		assert.True(t, res.EvaluationFailed)
	})

	t.Run("no evaluator", func(t *testing.T) {
		res, err := NewGrader(nil).Score(context.Background(), q, "prices go up")
		require.NoError(t, err)
		assert.True(t, res.NeedsReview)
	})

	t.Run("blank answer skips evaluator", func(t *testing.T) {
		stub := &essayStub{result: EssayResult{Score: 5}}
		res, err := NewGrader(stub).Score(context.Background(), q, "")
		require.NoError(t, err)
		assert.Zero(t, res.Earned)
		assert.Zero(t, stub.calls)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		stub := &essayStub{result: EssayResult{Score: 5}}
		res, err := NewGrader(stub).Score(ctx, q, "prices go up")
		require.NoError(t, err)
		assert.True(t, res.EvaluationFailed)
		assert.Zero(t, stub.calls)
	})
}

func TestGraderUnknownType(t *testing.T) {
	_, err := NewGrader(nil).Score(context.Background(), models.Question{ID: "q", Type: "MATCHING", Points: 1}, "a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestValidateQuestion(t *testing.T) {
	valid := mcq()
	require.NoError(t, ValidateQuestion(valid))

	badIndex := mcq()
	badIndex.Details.CorrectOptionIndex = intPtr(3)
	noOptions := mcq()
	noOptions.Details.Options = nil
	negative := mcq()
	negative.Points = -1

	cases := map[string]models.Question{
		"index out of range": badIndex,
		"no options":         noOptions,
		"negative points":    negative,
		"unknown type":       {ID: "q", Type: "ESSAY"},
		"tf without key":     {ID: "q", Type: models.QuestionTypeTrueFalse, Points: 1},
		"short without key":  {ID: "q", Type: models.QuestionTypeShortAnswer, Points: 1},
	}
	for name, q := range cases {
		t.Run(name, func(t *testing.T) {
			err := ValidateQuestion(q)
			require.Error(t, err)
			var appErr *appErrors.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
			assert.Equal(t, q.ID, appErr.Details["question_id"])
		})
	}

	essay := models.Question{ID: "q", Type: models.QuestionTypeLongAnswer, Points: 10}
	assert.NoError(t, ValidateQuestion(essay))
}
