package score

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ppiankov/gradelens/internal/model"
)

// questionAcc accumulates one question_id group in a single pass
type questionAcc struct {
	id     string
	absErr []float64
	conf   []float64
	ta     []float64
	llm    []float64
	flags  int
	maxAbs float64
}

func (a *questionAcc) add(rec model.GradingRecord) {
	e := math.Abs(rec.LLMScore - rec.TAScore)
	a.absErr = append(a.absErr, e)
	a.conf = append(a.conf, rec.Confidence)
	a.ta = append(a.ta, rec.TAScore)
	a.llm = append(a.llm, rec.LLMScore)
	if rec.Flags {
		a.flags++
	}
	if e > a.maxAbs {
		a.maxAbs = e
	}
}

func (a *questionAcc) summary() model.QuestionSummary {
	n := len(a.absErr)
	qs := model.QuestionSummary{
		QuestionID:     a.id,
		Count:          n,
		MAE:            model.Value(stat.Mean(a.absErr, nil)),
		StdAbsError:    model.Undefined(),
		MaxAbsError:    model.Value(a.maxAbs),
		MeanConfidence: model.Value(stat.Mean(a.conf, nil)),
		FlagCount:      a.flags,
		FlagPercent:    model.Value(float64(a.flags) / float64(n) * 100),
		PearsonR:       Pearson(a.ta, a.llm).R,
	}
	if n > 1 {
		qs.StdAbsError = model.Value(stat.StdDev(a.absErr, nil))
	}
	return qs
}

// SummarizeQuestions groups ds by question_id. Groups are built in one pass
// and emitted in first-appearance order unless another order is requested.
func SummarizeQuestions(ds model.Dataset, order model.QuestionOrder) []model.QuestionSummary {
	groups := make(map[string]*questionAcc)
	var seq []*questionAcc

	for _, rec := range ds.Records {
		acc, ok := groups[rec.QuestionID]
		if !ok {
			acc = &questionAcc{id: rec.QuestionID}
			groups[rec.QuestionID] = acc
			seq = append(seq, acc)
		}
		acc.add(rec)
	}

	out := make([]model.QuestionSummary, len(seq))
	for i, acc := range seq {
		out[i] = acc.summary()
	}

	switch order {
	case model.OrderID:
		sort.SliceStable(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	case model.OrderMAEDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].MAE > out[j].MAE })
	}
	return out
}
