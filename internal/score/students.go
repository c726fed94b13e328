package score

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ppiankov/gradelens/internal/flagging"
	"github.com/ppiankov/gradelens/internal/model"
)

type studentAcc struct {
	id     string
	absErr []float64
	pcts   []float64
	flags  int
}

func (a *studentAcc) add(rec model.GradingRecord) {
	e := math.Abs(rec.LLMScore - rec.TAScore)
	a.absErr = append(a.absErr, e)
	if rec.MaxPoints > 0 {
		a.pcts = append(a.pcts, flagging.PercentError(e, rec.MaxPoints))
	}
	if rec.Flags {
		a.flags++
	}
}

func (a *studentAcc) summary() model.StudentSummary {
	ss := model.StudentSummary{
		StudentID:        a.id,
		Count:            len(a.absErr),
		MAE:              model.Value(stat.Mean(a.absErr, nil)),
		MeanPercentError: model.Undefined(),
		FlagCount:        a.flags,
	}
	if len(a.pcts) > 0 {
		ss.MeanPercentError = model.Value(stat.Mean(a.pcts, nil))
	}
	return ss
}

// SummarizeStudents groups ds by student_id in one pass and sorts the
// groups by MAE descending. Ties keep first-appearance order, so the head
// of the list needs review most and the tail agrees best.
func SummarizeStudents(ds model.Dataset) []model.StudentSummary {
	groups := make(map[string]*studentAcc)
	var seq []*studentAcc

	for _, rec := range ds.Records {
		acc, ok := groups[rec.StudentID]
		if !ok {
			acc = &studentAcc{id: rec.StudentID}
			groups[rec.StudentID] = acc
			seq = append(seq, acc)
		}
		acc.add(rec)
	}

	out := make([]model.StudentSummary, len(seq))
	for i, acc := range seq {
		out[i] = acc.summary()
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MAE > out[j].MAE })
	return out
}
