package evaluator

import (
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/noah-isme/sma-scoring-engine/internal/grading"
)

// ParseEvaluation extracts {score, feedback} from model text. Anything outside
// the outermost braces, such as markdown fences, is discarded.
func ParseEvaluation(text string, maxPoints float64) (grading.EssayResult, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return grading.EssayResult{}, failure(nil, "evaluation response contains no JSON object")
	}
	obj := text[start : end+1]
	if !gjson.Valid(obj) {
		return grading.EssayResult{}, failure(nil, "evaluation response is not valid JSON")
	}

	parsed := gjson.Parse(obj)
	score := parsed.Get("score")
	if score.Type != gjson.Number {
		return grading.EssayResult{}, failure(nil, "evaluation score is missing or not a number")
	}
	value := score.Float()
	if math.IsNaN(value) || value < 0 || value > maxPoints {
		return grading.EssayResult{}, failure(nil, fmt.Sprintf("evaluation score %v outside [0, %v]", value, maxPoints))
	}

	return grading.EssayResult{
		Score:    value,
		Feedback: strings.TrimSpace(parsed.Get("feedback").String()),
	}, nil
}
