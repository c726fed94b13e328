package score

import (
	"fmt"
	"math"

	"github.com/ppiankov/gradelens/internal/model"
)

// band maps a metric to a label once it falls under an upper bound
type band struct {
	below    float64
	label    string
	severity model.SignalSeverity
}

// Interpret turns snapshot metrics into labelled signals
func Interpret(s model.Snapshot) []model.Signal {
	return []model.Signal{
		strengthSignal(model.SignalPearson, "Pearson correlation", s.PearsonR),
		strengthSignal(model.SignalSpearman, "Spearman correlation", s.SpearmanR),
		bandSignal(model.SignalBias, "Mean bias", s.Bias, math.Abs, []band{
			{1, "low", model.SeverityInfo},
			{2, "moderate", model.SeverityWarning},
		}, band{label: "high", severity: model.SeverityCritical}),
		bandSignal(model.SignalSpread, "Error standard deviation", s.StdError, nil, []band{
			{1.5, "low", model.SeverityInfo},
			{3, "moderate", model.SeverityWarning},
		}, band{label: "high", severity: model.SeverityCritical}),
		bandSignal(model.SignalRMSE, "RMSE", s.RMSE, nil, []band{
			{2, "good", model.SeverityInfo},
			{4, "fair", model.SeverityWarning},
		}, band{label: "poor", severity: model.SeverityCritical}),
		bandSignal(model.SignalMAPE, "MAPE", s.MAPE, nil, []band{
			{15, "good", model.SeverityInfo},
			{30, "fair", model.SeverityWarning},
		}, band{label: "poor", severity: model.SeverityCritical}),
		agreementSignal(s.PearsonR),
	}
}

func strengthSignal(t model.SignalType, name string, r model.Value) model.Signal {
	if !r.Defined() {
		return insufficient(t, name, r)
	}
	sig := model.Signal{Type: t, Value: r}
	switch {
	case r > 0.7:
		sig.Label, sig.Severity = "strong", model.SeverityInfo
	case r > 0.4:
		sig.Label, sig.Severity = "moderate", model.SeverityWarning
	default:
		sig.Label, sig.Severity = "weak", model.SeverityCritical
	}
	sig.Description = fmt.Sprintf("%s %s (r = %s)", name, sig.Label, r.Format(3))
	return sig
}

func agreementSignal(r model.Value) model.Signal {
	const name = "Agreement level"
	if !r.Defined() {
		return insufficient(model.SignalAgreement, name, r)
	}
	sig := model.Signal{Type: model.SignalAgreement, Value: r}
	switch {
	case r > 0.8:
		sig.Label, sig.Severity = "excellent", model.SeverityInfo
	case r > 0.6:
		sig.Label, sig.Severity = "good", model.SeverityInfo
	case r > 0.4:
		sig.Label, sig.Severity = "moderate", model.SeverityWarning
	default:
		sig.Label, sig.Severity = "poor", model.SeverityCritical
	}
	sig.Description = fmt.Sprintf("%s: %s", name, sig.Label)
	return sig
}

func bandSignal(t model.SignalType, name string, v model.Value, transform func(float64) float64, bands []band, last band) model.Signal {
	if !v.Defined() {
		return insufficient(t, name, v)
	}
	x := v.Float()
	if transform != nil {
		x = transform(x)
	}
	chosen := last
	for _, b := range bands {
		if x < b.below {
			chosen = b
			break
		}
	}
	return model.Signal{
		Type:        t,
		Severity:    chosen.severity,
		Label:       chosen.label,
		Description: fmt.Sprintf("%s %s (%s)", name, chosen.label, v.Format(2)),
		Value:       v,
	}
}

func insufficient(t model.SignalType, name string, v model.Value) model.Signal {
	return model.Signal{
		Type:        t,
		Severity:    model.SeverityInfo,
		Label:       "insufficient data",
		Description: name + ": insufficient data",
		Value:       v,
	}
}
