package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/gradelens/internal/model"
)

func TestInterpret_Bands(t *testing.T) {
	snap := model.Snapshot{
		PearsonR:  0.85,
		SpearmanR: 0.5,
		Bias:      -1.5,
		StdError:  3.2,
		RMSE:      1.2,
		MAPE:      20,
	}

	signals := Interpret(snap)
	require.Len(t, signals, 7)

	want := map[model.SignalType]string{
		model.SignalPearson:   "strong",
		model.SignalSpearman:  "moderate",
		model.SignalBias:      "moderate",
		model.SignalSpread:    "high",
		model.SignalRMSE:      "good",
		model.SignalMAPE:      "fair",
		model.SignalAgreement: "excellent",
	}
	for _, sig := range signals {
		assert.Equal(t, want[sig.Type], sig.Label, "signal %s", sig.Type)
	}
}

func TestInterpret_Undefined(t *testing.T) {
	snap := model.Snapshot{
		PearsonR:  model.Undefined(),
		SpearmanR: model.Undefined(),
		Bias:      model.Undefined(),
		StdError:  model.Undefined(),
		RMSE:      model.Undefined(),
		MAPE:      model.Undefined(),
	}
	for _, sig := range Interpret(snap) {
		assert.Equal(t, "insufficient data", sig.Label)
		assert.Equal(t, model.SeverityInfo, sig.Severity)
	}
}

func TestInterpret_AgreementLevels(t *testing.T) {
	cases := map[float64]string{0.81: "excellent", 0.7: "good", 0.5: "moderate", 0.1: "poor", -0.9: "poor"}
	for r, label := range cases {
		sig := agreementSignal(model.Value(r))
		assert.Equal(t, label, sig.Label, "r=%v", r)
	}
}
