package report

import (
	"fmt"
	"io"
	"text/template"

	"github.com/raterudder/gridbalancer/pkg/types"
)

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"f1": func(v float64) string { return fmt.Sprintf("%.1f", v) },
	"f2": func(v float64) string { return fmt.Sprintf("%.2f", v) },
}).Parse(`# Energy Report: {{.City}}

Grid **{{.GridID}}** at {{.Balancing.Timestamp.Format "2006-01-02 15:04 MST"}}

## Weather Conditions

| Metric | Value |
|---|---|
| Conditions | {{.Weather.Condition}} ({{.Weather.Description}}) |
| Temperature | {{f1 .Weather.TemperatureC}} °C ({{.ThermalAssessment}}) |
| Humidity | {{f1 .Weather.HumidityPct}} % |
| Wind speed | {{f1 .Weather.WindSpeedMS}} m/s |
| Cloud cover | {{f1 .Weather.CloudCoverPct}} % |
| Source | {{.Weather.Source}}{{if not .Weather.RealData}} (synthetic){{end}} |

## Energy Metrics

| Metric | Value |
|---|---|
| Demand | {{f2 .Balancing.DemandMW}} MW |
| Solar generation | {{f2 .Balancing.SolarGenerationMW}} MW ({{f1 .Potential.SolarPotential}} % potential) |
| Wind generation | {{f2 .Balancing.WindGenerationMW}} MW ({{f1 .Potential.WindPotential}} % potential) |
| Renewable share | {{f2 .Balancing.RenewablePercentage}} % ({{.RenewableRating}}) |
| Supply/demand ratio | {{f2 .Balancing.SupplyDemandRatio}} |

## Energy Mix

| Source | MW |
|---|---|
| Renewable used | {{f2 .Balancing.EnergyMix.RenewableUsedMW}} |
| Storage discharged | {{f2 .Balancing.EnergyMix.StorageDischargedMW}} |
| Conventional | {{f2 .Balancing.EnergyMix.ConventionalUsedMW}} |
| Storage charged | {{f2 .Balancing.EnergyMix.StorageChargedMW}} |
| Curtailed | {{f2 .Balancing.EnergyMix.CurtailedRenewableMW}} |
{{- if gt .Balancing.EnergyMix.UnservedMW 0.0}}
| **Unserved** | {{f2 .Balancing.EnergyMix.UnservedMW}} |
{{- end}}

## Scorecard

- Grid balance: **{{.Balancing.GridBalance}}** ({{.Balancing.Stability}})
- Stability index: {{f2 .Balancing.StabilityIndex}} / 100
- Storage: {{f2 .Balancing.StorageLevelMWh}} MWh ({{f1 .Balancing.StorageSOCPercent}} % SOC)
- Carbon intensity: {{f2 .Balancing.CarbonIntensityGCO2KWh}} gCO2/kWh
- Efficiency: {{f1 .Balancing.Efficiency}} %

{{.StatusAnalysis}}

## Recommendations
{{range .Balancing.Recommendations}}
- {{.}}
{{- else}}
- No action required
{{- end}}
`))

type reportData struct {
	types.Cycle
	ThermalAssessment string
	RenewableRating   string
	StatusAnalysis    string
}

func thermalAssessment(tempC float64) string {
	switch {
	case tempC >= 20 && tempC <= 30:
		return "optimal"
	case tempC > 35 || tempC < 15:
		return "challenging"
	default:
		return "acceptable"
	}
}

func renewableRating(pct float64) string {
	switch {
	case pct > 70:
		return "excellent"
	case pct > 50:
		return "good"
	case pct > 30:
		return "moderate"
	default:
		return "low"
	}
}

func statusAnalysis(b types.GridBalance) string {
	switch b {
	case types.GridBalanceBalanced:
		return "The grid is balanced with supply meeting demand."
	case types.GridBalanceSurplus:
		return "Excess generation is available for storage or export."
	case types.GridBalanceTight:
		return "The grid is operating near its capacity limits and needs close monitoring."
	case types.GridBalanceDeficit:
		return "Generation is insufficient and immediate action is required to keep the grid stable."
	default:
		return "Grid status unknown."
	}
}

// Generate writes a markdown report of the cycle to w. Values are rounded for
// presentation only.
func Generate(w io.Writer, c types.Cycle) error {
	c.Balancing = c.Balancing.Rounded()
	data := reportData{
		Cycle:             c,
		ThermalAssessment: thermalAssessment(c.Weather.TemperatureC),
		RenewableRating:   renewableRating(c.Balancing.RenewablePercentage),
		StatusAnalysis:    statusAnalysis(c.Balancing.GridBalance),
	}
	if err := reportTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}
