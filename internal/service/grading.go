package service

import (
	"math"

	"github.com/noah-isme/eduorg-api/internal/models"
)

// PassingScore is the minimum weighted average that passes.
const PassingScore = 60.0

var letterBands = []struct {
	min    float64
	letter string
}{
	{97, "A+"}, {93, "A"}, {90, "A-"},
	{87, "B+"}, {83, "B"}, {80, "B-"},
	{77, "C+"}, {70, "C"},
	{60, "D"},
}

// LetterGrade maps a percentage onto its letter band.
func LetterGrade(pct float64) string {
	for _, band := range letterBands {
		if pct >= band.min {
			return band.letter
		}
	}
	return "F"
}

// SummarizeGrades aggregates the non-dropped grades of one enrollment.
//
// The weighted average is the plain sum of pct*weight/100 and is not divided by
// the total weight, so weights that do not add up to 100 shift the result.
// A zero total weight falls back to the unweighted mean.
func SummarizeGrades(enrollmentID string, grades []models.Grade) models.GradeSummary {
	summary := models.GradeSummary{
		EnrollmentID: enrollmentID,
		LetterGrade:  LetterGrade(0),
		Breakdown:    map[string]models.GradeTypeBreakdown{},
	}

	var pctSum, weightSum, weighted float64
	typePct := map[string]float64{}
	for _, g := range grades {
		if g.IsDropped || g.MaxScore <= 0 {
			continue
		}
		pct := g.Score / g.MaxScore * 100
		summary.TotalGrades++
		pctSum += pct
		weightSum += g.Weight
		weighted += pct * g.Weight / 100

		b := summary.Breakdown[g.GradeType]
		b.Count++
		b.Weight += g.Weight
		summary.Breakdown[g.GradeType] = b
		typePct[g.GradeType] += pct
	}
	if summary.TotalGrades == 0 {
		return summary
	}

	for gradeType, b := range summary.Breakdown {
		b.Average = round2(typePct[gradeType] / float64(b.Count))
		summary.Breakdown[gradeType] = b
	}

	summary.AverageScore = pctSum / float64(summary.TotalGrades)
	if weightSum == 0 {
		summary.WeightedAverage = summary.AverageScore
	} else {
		summary.WeightedAverage = weighted
	}
	summary.LetterGrade = LetterGrade(summary.WeightedAverage)
	summary.IsPassing = summary.WeightedAverage >= PassingScore
	summary.AverageScore = round2(summary.AverageScore)
	summary.WeightedAverage = round2(summary.WeightedAverage)
	return summary
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
