// Package sample generates synthetic grading tables for demos and tests.
package sample

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ppiankov/gradelens/internal/model"
	"github.com/ppiankov/gradelens/internal/validate"
)

// Options sizes the generated table
type Options struct {
	Students  int    `json:"students" validate:"gte=1,lte=10000"`
	Questions int    `json:"questions" validate:"gte=1,lte=100"`
	Seed      uint64 `json:"seed"`
}

// DefaultOptions returns 30 students x 6 questions with seed 42.
func DefaultOptions() Options {
	return Options{Students: 30, Questions: 6, Seed: 42}
}

// MaxPoints is 10 for the first three questions and 15 after that.
func MaxPoints(question int) float64 {
	if question <= 3 {
		return 10
	}
	return 15
}

// Rows produces raw rows in student-major order. TA scores are uniform in
// [40%, 95%] of max points; LLM scores add normal noise (sigma = 10% of max)
// clipped to [0, max]; confidence falls with disagreement and is clipped
// to [0.3, 1]. Output is deterministic for a given seed.
func Rows(opts Options) ([]string, []model.Row) {
	src := rand.NewPCG(opts.Seed, opts.Seed)
	header := append([]string(nil), model.OriginalColumns...)
	rows := make([]model.Row, 0, opts.Students*opts.Questions)

	for s := 1; s <= opts.Students; s++ {
		for q := 1; q <= opts.Questions; q++ {
			maxPts := MaxPoints(q)
			ta := distuv.Uniform{Min: maxPts * 0.4, Max: maxPts * 0.95, Src: src}.Rand()
			noise := distuv.Normal{Mu: 0, Sigma: maxPts * 0.1, Src: src}.Rand()
			llm := clip(ta+noise, 0, maxPts)
			confidence := clip(1-math.Abs(llm-ta)/maxPts, 0.3, 1)

			rows = append(rows, model.Row{
				model.ColStudentID:  fmt.Sprintf("S%03d", s),
				model.ColQuestionID: fmt.Sprintf("Q%d", q),
				model.ColTAScore:    round(ta, 2),
				model.ColLLMScore:   round(llm, 2),
				model.ColMaxPoints:  maxPts,
				model.ColConfidence: round(confidence, 3),
				model.ColFlags:      confidence < 0.5,
			})
		}
	}
	return header, rows
}

// Generate builds a validated dataset through the same entry point as file
// input.
func Generate(opts Options) (model.Dataset, error) {
	if opts.Students < 1 || opts.Questions < 1 {
		return model.Dataset{}, fmt.Errorf("sample needs at least one student and one question (got %d x %d)", opts.Students, opts.Questions)
	}
	header, rows := Rows(opts)
	ds, err := validate.NewValidator().Validate(header, rows)
	if err != nil {
		return model.Dataset{}, fmt.Errorf("validate sample: %w", err)
	}
	return ds, nil
}

func clip(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
