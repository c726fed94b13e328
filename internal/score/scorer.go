package score

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ppiankov/gradelens/internal/flagging"
	"github.com/ppiankov/gradelens/internal/model"
)

// loaZ is the normal quantile used for Bland-Altman limits of agreement
const loaZ = 1.96

// Scorer computes metrics snapshots. It holds configuration only and is
// safe for concurrent use.
type Scorer struct {
	rule  flagging.Rule
	order model.QuestionOrder
	now   func() time.Time
}

// NewScorer creates a new scorer. The rule supplies the thresholds used for
// the low-confidence and high-error counts.
func NewScorer(rule flagging.Rule, order model.QuestionOrder) *Scorer {
	if order == "" {
		order = model.OrderAppearance
	}
	return &Scorer{
		rule:  rule,
		order: order,
		now:   time.Now,
	}
}

// WithOrder returns a copy of the scorer using a different per-question order.
func (s *Scorer) WithOrder(order model.QuestionOrder) *Scorer {
	cp := *s
	if order != "" {
		cp.order = order
	}
	return &cp
}

// Calculate computes the metrics snapshot of a (validated, flagged) view.
// Undefined metrics are NaN Values; counts are never undefined.
func (s *Scorer) Calculate(ds model.Dataset) model.Snapshot {
	n := ds.Len()
	snap := model.Snapshot{
		GeneratedAt:    s.now().UTC(),
		TotalItems:     n,
		MAE:            model.Undefined(),
		RMSE:           model.Undefined(),
		MAPE:           model.Undefined(),
		MaxError:       model.Undefined(),
		Bias:           model.Undefined(),
		StdError:       model.Undefined(),
		LowerLoA:       model.Undefined(),
		UpperLoA:       model.Undefined(),
		MeanConfidence: model.Undefined(),
		FlagPercent:    model.Undefined(),
		Questions:      []model.QuestionSummary{},
		Students:       []model.StudentSummary{},
	}

	ta := make([]float64, n)
	llm := make([]float64, n)
	signed := make([]float64, n)
	abs := make([]float64, n)
	squared := make([]float64, n)
	conf := make([]float64, n)
	var pcts []float64

	students := make(map[string]struct{})
	questions := make(map[string]struct{})

	for i, rec := range ds.Records {
		ta[i] = rec.TAScore
		llm[i] = rec.LLMScore
		signed[i] = rec.LLMScore - rec.TAScore
		abs[i] = math.Abs(signed[i])
		squared[i] = abs[i] * abs[i]
		conf[i] = rec.Confidence

		pct := flagging.PercentError(abs[i], rec.MaxPoints)
		if rec.MaxPoints > 0 {
			pcts = append(pcts, pct)
		}

		if rec.Flags {
			snap.FlagCount++
		}
		if rec.Confidence < s.rule.ConfidenceThreshold {
			snap.LowConfidenceCount++
		}
		if pct > s.rule.PercentErrorThreshold {
			snap.HighErrorCount++
		}

		students[rec.StudentID] = struct{}{}
		questions[rec.QuestionID] = struct{}{}
	}

	snap.TotalStudents = len(students)
	snap.TotalQuestions = len(questions)

	if n > 0 {
		snap.MAE = model.Value(stat.Mean(abs, nil))
		snap.RMSE = model.Value(math.Sqrt(stat.Mean(squared, nil)))
		snap.MaxError = model.Value(floats.Max(abs))
		snap.Bias = model.Value(stat.Mean(signed, nil))
		snap.MeanConfidence = model.Value(stat.Mean(conf, nil))
		snap.FlagPercent = model.Value(float64(snap.FlagCount) / float64(n) * 100)
	}
	if len(pcts) > 0 {
		snap.MAPE = model.Value(stat.Mean(pcts, nil))
	}
	if n > 1 {
		snap.StdError = model.Value(stat.StdDev(signed, nil))
		snap.LowerLoA = snap.Bias - loaZ*snap.StdError
		snap.UpperLoA = snap.Bias + loaZ*snap.StdError
	}

	pearson := Pearson(ta, llm)
	spearman := Spearman(ta, llm)
	snap.PearsonR, snap.PearsonP = pearson.R, pearson.P
	snap.SpearmanR, snap.SpearmanP = spearman.R, spearman.P

	snap.Questions = SummarizeQuestions(ds, s.order)
	snap.Students = SummarizeStudents(ds)
	snap.Signals = Interpret(snap)

	return snap
}
