package evaluator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/sma-scoring-engine/internal/grading"
)

// BuildPrompt renders the grading instruction for one essay.
func BuildPrompt(req grading.EssayRequest) string {
	maxPoints := strconv.FormatFloat(req.MaxPoints, 'f', -1, 64)
	criteria := strings.TrimSpace(req.Criteria)
	if criteria == "" {
		criteria = "Judge accuracy, completeness and clarity."
	}

	var b strings.Builder
	b.WriteString("You are grading a student's written answer.\n\n")
	fmt.Fprintf(&b, "Question:\n%s\n\n", strings.TrimSpace(req.QuestionText))
	fmt.Fprintf(&b, "Grading criteria:\n%s\n\n", criteria)
	fmt.Fprintf(&b, "Student answer:\n%s\n\n", strings.TrimSpace(req.Answer))
	fmt.Fprintf(&b, "Award a score between 0 and %s.\n", maxPoints)
	b.WriteString(`Respond with a single JSON object and nothing else: {"score": <number>, "feedback": "<one paragraph>"}`)
	return b.String()
}
