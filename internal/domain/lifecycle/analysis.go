package lifecycle

import (
	"fmt"
	"math"

	"github.com/hgp-lactario/milkbank/internal/domain/models"
)

// Colors that trigger automatic rejection at physical inspection.
const (
	ColorBlood = "Rojo/Sangre"
	ColorPus   = "Verde/Pus"
)

// AcidityNormalMin is the lower bound of the documented normal Dornic
// range. Values below it are accepted but flagged for review.
const AcidityNormalMin = 1.0

// PhysicalInput carries the visual inspection values for one jar.
type PhysicalInput struct {
	Color         string
	OffFlavor     bool
	Contamination string
}

// PhysicalOutcome is the verdict of the visual inspection. The decision
// is a pure function of the input, so re-evaluating unchanged inputs
// always yields the same verdict.
type PhysicalOutcome struct {
	Rejected bool
	Reason   string
}

// EvaluatePhysical auto-rejects on visible contamination or an abnormal
// color. Contamination takes priority over color when both are present.
func EvaluatePhysical(in PhysicalInput) PhysicalOutcome {
	if in.Contamination != "" {
		return PhysicalOutcome{Rejected: true, Reason: "Contaminación visible: " + in.Contamination}
	}
	if in.Color == ColorBlood || in.Color == ColorPus {
		return PhysicalOutcome{Rejected: true, Reason: "Color anormal: " + in.Color}
	}
	return PhysicalOutcome{}
}

// ChemicalInput carries the three Dornic aliquots and the creamatocrit reading.
type ChemicalInput struct {
	Aliquots     [3]float64
	Creamatocrit float64
}

// ChemicalOutcome is the verdict of the chemical analysis.
// AcidityAvg is rounded to one decimal for recording; the rejection
// threshold is applied to the unrounded mean so a measured 8.01°D is
// rejected even though it records as 8.0.
type ChemicalOutcome struct {
	AcidityAvg    float64
	CaloricClass  models.CaloricClass
	Rejected      bool
	Reason        string
	ReviewFlagged bool
}

// EvaluateChemical averages the aliquots, classifies the creamatocrit
// and applies the acidity cutoff (strictly greater than rejects).
func EvaluateChemical(in ChemicalInput, acidityCutoff float64) ChemicalOutcome {
	mean := (in.Aliquots[0] + in.Aliquots[1] + in.Aliquots[2]) / 3

	out := ChemicalOutcome{
		AcidityAvg:   math.Round(mean*10) / 10,
		CaloricClass: ClassifyCreamatocrit(in.Creamatocrit),
	}

	if mean > acidityCutoff {
		out.Rejected = true
		out.Reason = fmt.Sprintf("Acidez Dornic %.2f°D excede el límite de %.1f°D", mean, acidityCutoff)
		return out
	}

	if mean < AcidityNormalMin {
		out.ReviewFlagged = true
	}
	return out
}

// ClassifyCreamatocrit maps a caloric density reading (Kcal/L) to its
// class. The 500-700 band is inclusive on both ends.
func ClassifyCreamatocrit(kcalPerL float64) models.CaloricClass {
	switch {
	case kcalPerL < 500:
		return models.Hypocaloric
	case kcalPerL > 700:
		return models.Hypercaloric
	default:
		return models.Normocaloric
	}
}

// BatchAnalysisSummary aggregates analysis results over a batch's jars.
//
// AvgAcidity covers every jar with a chemical result, rejected ones
// included, matching the reporting convention of the bank's ledgers.
// AvgAcidityPassed restricts to jars that passed.
type BatchAnalysisSummary struct {
	Total            int
	Passed           int
	Rejected         int
	AvgAcidity       float64
	AvgAcidityPassed float64
}

// SummarizeBatch tallies pass/reject counts and acidity averages for
// the member jars of a batch.
func SummarizeBatch(jars []models.MilkJar) BatchAnalysisSummary {
	sum := BatchAnalysisSummary{Total: len(jars)}

	var acidityAll, acidityPassed float64
	var withChemistry, passedWithChemistry int

	for _, jar := range jars {
		switch jar.Status {
		case models.JarAnalyzed:
			sum.Passed++
		case models.JarDiscarded:
			sum.Rejected++
		}
		if jar.Chemical == nil {
			continue
		}
		acidityAll += jar.Chemical.AcidityAvg
		withChemistry++
		if jar.Status == models.JarAnalyzed {
			acidityPassed += jar.Chemical.AcidityAvg
			passedWithChemistry++
		}
	}

	if withChemistry > 0 {
		sum.AvgAcidity = math.Round(acidityAll/float64(withChemistry)*10) / 10
	}
	if passedWithChemistry > 0 {
		sum.AvgAcidityPassed = math.Round(acidityPassed/float64(passedWithChemistry)*10) / 10
	}
	return sum
}
