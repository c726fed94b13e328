package score

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/gradelens/internal/flagging"
	"github.com/ppiankov/gradelens/internal/model"
)

func rec(sid, qid string, ta, llm, max, conf float64) model.GradingRecord {
	return model.GradingRecord{StudentID: sid, QuestionID: qid, TAScore: ta, LLMScore: llm, MaxPoints: max, Confidence: conf}
}

func flagged(recs ...model.GradingRecord) model.Dataset {
	return flagging.DefaultRule().Apply(model.Dataset{Records: recs})
}

func newTestScorer(order model.QuestionOrder) *Scorer {
	s := NewScorer(flagging.DefaultRule(), order)
	s.now = func() time.Time { return time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC) }
	return s
}

func TestScorer_Calculate_Scenario(t *testing.T) {
	ds := flagged(
		rec("S1", "Q1", 8, 8, 10, 0.9),
		rec("S2", "Q1", 5, 9, 10, 0.9),
		rec("S3", "Q2", 7, 7, 10, 0.3),
	)

	snap := newTestScorer("").Calculate(ds)

	assert.Equal(t, 3, snap.TotalItems)
	assert.Equal(t, 3, snap.TotalStudents)
	assert.Equal(t, 2, snap.TotalQuestions)
	assert.InDelta(t, 4.0/3, snap.MAE.Float(), 1e-9)
	assert.InDelta(t, math.Sqrt(16.0/3), snap.RMSE.Float(), 1e-9)
	assert.InDelta(t, 40.0/3, snap.MAPE.Float(), 1e-9)
	assert.InDelta(t, 4.0, snap.MaxError.Float(), 1e-12)
	assert.InDelta(t, 4.0/3, snap.Bias.Float(), 1e-9)
	assert.InDelta(t, math.Sqrt(16.0/3), snap.StdError.Float(), 1e-9)
	assert.InDelta(t, snap.Bias.Float()-1.96*snap.StdError.Float(), snap.LowerLoA.Float(), 1e-9)
	assert.InDelta(t, snap.Bias.Float()+1.96*snap.StdError.Float(), snap.UpperLoA.Float(), 1e-9)

	assert.InDelta(t, -0.6546537, snap.PearsonR.Float(), 1e-6)
	assert.InDelta(t, 0.5456, snap.PearsonP.Float(), 1e-3)
	assert.InDelta(t, -0.5, snap.SpearmanR.Float(), 1e-9)

	assert.Equal(t, 2, snap.FlagCount)
	assert.InDelta(t, 66.6667, snap.FlagPercent.Float(), 1e-3)
	assert.Equal(t, 1, snap.LowConfidenceCount)
	assert.Equal(t, 1, snap.HighErrorCount)
	assert.InDelta(t, 0.7, snap.MeanConfidence.Float(), 1e-9)
	assert.Equal(t, time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC), snap.GeneratedAt)

	require.Len(t, snap.Questions, 2)
	assert.Equal(t, "Q1", snap.Questions[0].QuestionID)
	assert.Equal(t, 2, snap.Questions[0].Count)
	assert.InDelta(t, 2.0, snap.Questions[0].MAE.Float(), 1e-12)
	assert.Equal(t, 1, snap.Questions[0].FlagCount)
	assert.Equal(t, "Q2", snap.Questions[1].QuestionID)
	assert.False(t, snap.Questions[1].StdAbsError.Defined())
	assert.False(t, snap.Questions[1].PearsonR.Defined())

	require.Len(t, snap.Students, 3)
	assert.Equal(t, "S2", snap.Students[0].StudentID)
	assert.InDelta(t, 4.0, snap.Students[0].MAE.Float(), 1e-12)
	assert.Equal(t, 1, snap.Students[0].FlagCount)
}

func TestScorer_Calculate_Empty(t *testing.T) {
	snap := newTestScorer("").Calculate(model.Dataset{})

	for name, v := range map[string]model.Value{
		"mae": snap.MAE, "rmse": snap.RMSE, "mape": snap.MAPE, "max": snap.MaxError,
		"bias": snap.Bias, "std": snap.StdError, "pearson": snap.PearsonR, "spearman": snap.SpearmanR,
		"flag_pct": snap.FlagPercent,
	} {
		assert.False(t, v.Defined(), "%s should be undefined", name)
	}
	assert.Equal(t, 0, snap.TotalItems)
	assert.Equal(t, 0, snap.FlagCount)
	assert.NotNil(t, snap.Questions)
	assert.Empty(t, snap.Questions)
	assert.NotNil(t, snap.Students)
	assert.Empty(t, snap.Students)
}

func TestScorer_Calculate_SingleRecord(t *testing.T) {
	snap := newTestScorer("").Calculate(flagged(rec("S1", "Q1", 4, 5, 10, 1)))

	assert.InDelta(t, 1.0, snap.MAE.Float(), 1e-12)
	assert.False(t, snap.StdError.Defined())
	assert.False(t, snap.LowerLoA.Defined())
	assert.False(t, snap.PearsonR.Defined())
	assert.False(t, snap.SpearmanR.Defined())
}

func TestScorer_Calculate_ZeroVariance(t *testing.T) {
	snap := newTestScorer("").Calculate(flagged(
		rec("S1", "Q1", 5, 4, 10, 1),
		rec("S2", "Q1", 5, 6, 10, 1),
		rec("S3", "Q1", 5, 9, 10, 1),
	))
	assert.False(t, snap.PearsonR.Defined())
	assert.False(t, snap.PearsonP.Defined())
	assert.False(t, snap.SpearmanR.Defined())
	assert.True(t, snap.MAE.Defined())
}

func TestScorer_MAPEExcludesUndefinedPercent(t *testing.T) {
	recs := []model.GradingRecord{
		rec("S1", "Q1", 5, 6, 10, 1),
		rec("S2", "Q1", 5, 6, 0, 1), // percent error undefined
	}
	snap := newTestScorer("").Calculate(model.Dataset{Records: recs})
	assert.InDelta(t, 10.0, snap.MAPE.Float(), 1e-9)
}

func TestScorer_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	scorer := newTestScorer("")

	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(40)
		recs := make([]model.GradingRecord, n)
		for i := range recs {
			max := float64(5 + rng.Intn(20))
			recs[i] = rec("S", string(rune('A'+rng.Intn(5))), rng.Float64()*max, rng.Float64()*max, max, rng.Float64())
		}
		ds := flagged(recs...)
		snap := scorer.Calculate(ds)

		assert.GreaterOrEqual(t, snap.MAE.Float(), 0.0)
		assert.GreaterOrEqual(t, snap.RMSE.Float()+1e-12, snap.MAE.Float())

		// count-weighted per-question MAE reconstructs the global MAE
		var weighted float64
		var total int
		for _, q := range snap.Questions {
			weighted += q.MAE.Float() * float64(q.Count)
			total += q.Count
		}
		assert.Equal(t, n, total)
		assert.InDelta(t, snap.MAE.Float(), weighted/float64(total), 1e-9)

		// flag count agrees with the predicate
		count := 0
		for _, r := range ds.Records {
			if flagging.DefaultRule().ShouldFlag(r.Confidence, r.AbsError, r.PercentError.Float(), r.MaxPoints) {
				count++
			}
		}
		assert.Equal(t, count, snap.FlagCount)
	}
}

func TestScorer_RMSEEqualsMAEWhenErrorsEqual(t *testing.T) {
	snap := newTestScorer("").Calculate(flagged(
		rec("S1", "Q1", 5, 7, 10, 1),
		rec("S2", "Q1", 6, 4, 10, 1),
	))
	assert.InDelta(t, snap.MAE.Float(), snap.RMSE.Float(), 1e-12)
}

func TestSummarizeQuestions_Orders(t *testing.T) {
	ds := flagged(
		rec("S1", "Q3", 5, 5, 10, 1),
		rec("S1", "Q1", 5, 9, 10, 1),
		rec("S1", "Q2", 5, 7, 10, 1),
		rec("S2", "Q3", 5, 6, 10, 1),
	)

	ids := func(qs []model.QuestionSummary) []string {
		out := make([]string, len(qs))
		for i, q := range qs {
			out[i] = q.QuestionID
		}
		return out
	}

	assert.Equal(t, []string{"Q3", "Q1", "Q2"}, ids(SummarizeQuestions(ds, model.OrderAppearance)))
	assert.Equal(t, []string{"Q1", "Q2", "Q3"}, ids(SummarizeQuestions(ds, model.OrderID)))
	assert.Equal(t, []string{"Q1", "Q2", "Q3"}, ids(SummarizeQuestions(ds, model.OrderMAEDesc)))

	q3 := SummarizeQuestions(ds, model.OrderAppearance)[0]
	assert.Equal(t, 2, q3.Count)
	assert.InDelta(t, 0.5, q3.MAE.Float(), 1e-12)
	assert.InDelta(t, 1.0, q3.MaxAbsError.Float(), 1e-12)
	assert.InDelta(t, math.Sqrt(0.5), q3.StdAbsError.Float(), 1e-12)
}

func TestSummarizeStudents(t *testing.T) {
	ds := flagged(
		rec("S1", "Q1", 5, 6, 10, 1),
		rec("S2", "Q1", 5, 5, 10, 1),
		rec("S1", "Q2", 5, 8, 20, 1),
		rec("S3", "Q1", 5, 9, 10, 0.2),
		rec("S2", "Q2", 5, 5, 20, 1),
	)

	students := SummarizeStudents(ds)
	require.Len(t, students, 3)

	ids := make([]string, len(students))
	for i, s := range students {
		ids[i] = s.StudentID
	}
	assert.Equal(t, []string{"S3", "S1", "S2"}, ids)

	s1 := students[1]
	assert.Equal(t, 2, s1.Count)
	assert.InDelta(t, 2.0, s1.MAE.Float(), 1e-12)
	assert.InDelta(t, 12.5, s1.MeanPercentError.Float(), 1e-12) // (10% + 15%) / 2
	assert.Equal(t, 0, s1.FlagCount)

	assert.Equal(t, 1, students[0].FlagCount)
	assert.InDelta(t, 0.0, students[2].MAE.Float(), 1e-12)
}

func TestSummarizeStudents_TiesKeepAppearance(t *testing.T) {
	students := SummarizeStudents(flagged(
		rec("B", "Q1", 5, 6, 10, 1),
		rec("A", "Q1", 5, 6, 10, 1),
		rec("C", "Q1", 5, 7, 10, 1),
	))
	require.Len(t, students, 3)
	assert.Equal(t, "C", students[0].StudentID)
	assert.Equal(t, "B", students[1].StudentID)
	assert.Equal(t, "A", students[2].StudentID)
}

func TestScorer_WithOrder(t *testing.T) {
	base := newTestScorer(model.OrderAppearance)
	byID := base.WithOrder(model.OrderID)
	assert.Equal(t, model.OrderAppearance, base.order)
	assert.Equal(t, model.OrderID, byID.order)
}
